// Package xfatal 在进程因未捕获 panic 终止前，先把当前请求的关联信息刷到错误输出。
//
// 每个进程只能安装一个 [Listener]（[Install] 第二次调用返回 [ErrAlreadyInstalled]），
// 由此保证默认终止路径恰好执行一次。
//
// 接入方式：
//
//	l, err := xfatal.Install(emitter)
//	loop := xloop.New(xloop.WithPanicHandler(l.Handle))
//
//	go func() {
//	    defer xfatal.GuardContext(ctx) // 或 defer xfatal.Guard()
//	    ...
//	}()
//
// [Listener.Handle] 从循环的 slot 取身份，只在循环 goroutine 上使用。
// [Guard]、[GuardContext] 与 [Listener.HandleFor] 不访问 slot，适用于其他 goroutine：
// 身份来自 context.Context，没有时输出不带前缀。
//
// Listener 不改变失败本身：输出的是原始 panic 值与堆栈，随后以 Go 默认的 panic
// 退出码（2）退出。
package xfatal
