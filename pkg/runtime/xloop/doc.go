// Package xloop 实现一个单 goroutine 的协作式事件循环。
//
// 所有 continuation（macrotask、tick、定时器回调、后台 I/O 的完成回调）都在
// 调用 [Loop.Run] 的 goroutine 上串行执行，彼此之间没有抢占。
// 阻塞 I/O 通过 [Loop.Go] 放到受限的后台 goroutine 中执行，完成回调再投递回循环。
//
// # 调度顺序
//
//   - tick 队列（[Loop.NextTick]）在当前 continuation 结束后、下一个 macrotask 或定时器之前清空
//   - 到期定时器按截止时间执行，截止时间相同按创建顺序执行
//   - macrotask（[Loop.Post]、后台 I/O 完成）按投递顺序执行
//
// # 线程约束
//
// 只有 [Loop.Post]、[Loop.Go]、[Loop.Hold]、[Loop.Stop] 可以从任意 goroutine 调用。
// NextTick、SetTimeout、SetInterval、ClearTimer 只能在循环 goroutine 上调用
// （即在某个 continuation 内部，或 Run 尚未开始时）。
//
// # 生命周期
//
// [Loop.Run] 在以下任一条件满足时返回：
//   - 循环空闲：没有待执行的 tick、macrotask、定时器、后台操作和 Hold
//   - 调用了 [Loop.Stop]（返回 nil）
//   - ctx 被取消（返回 ctx.Err()）
//
// xloop 不感知请求关联；关联身份的捕获与恢复由 xhook 在调度入口处完成。
package xloop
