// Package xrun 管理 xcorrd 的进程生命周期，基于 errgroup + context。
//
// 任一服务返回错误、收到终止信号或父 context 取消时，所有服务收到取消信号。
// 信号退出时 [Run] 返回 [*SignalError]，可用 errors.Is(err, ErrSignal) 判断。
//
//	err := xrun.Run(ctx, []xrun.Option{xrun.WithName("xcorrd")},
//	    xrun.Service("loop", xrun.Loop(loop, 5*time.Second)),
//	    xrun.Service("http", server.ListenAndServe),
//	)
//
// # 事件循环
//
// [Loop] 把 xloop.Loop 包装为服务：运行期间持有循环，取消后先让在途工作
// 在 drain 时长内自然结束，超时再强制 Stop。
package xrun
