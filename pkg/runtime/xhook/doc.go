// Package xhook 提供带请求关联传播的调度入口。
//
// 事件循环（xloop）只负责"稍后执行某个函数"，不知道请求身份。[Registry] 在每个
// 交出 continuation 的入口处捕获或新建关联身份（[xcorr.Context]），
// continuation 执行时再恢复，从而让处理请求期间产生的所有日志都带上同一身份。
//
// # 两种策略
//
// Propagate：continuation 属于当前已活跃的逻辑操作，捕获调用时刻的活跃身份。
//   - [Registry.NextTick]、[Registry.SetTimeout]、[Registry.SetInterval]、[Registry.SetCron]
//   - [FS] 上的全部文件系统操作（Stat、Rename、ReadFile、Watch 等）
//   - [Do]：把任意阻塞操作接入同一机制
//
// Mint-new：continuation 代表一个新的逻辑操作，使用新建的身份。
//   - 出站调用：[Client.Request]、[Client.Get]（[Registry.HTTP] / [Registry.HTTPS]）
//   - 入站分发：[Registry.Dispatch]、[Registry.Handler]、[Server]（明文与 TLS），
//     新身份覆盖整个同步分发过程，分发返回后恢复原值
//
// 中间件形式的分发钩子见 [Registry.Middleware]。
//
// # 出站策略与指标
//
// [WithRetry] 对幂等请求在传输错误或 5xx 时重试，[WithCircuitBreaker] 按目标主机熔断。
// 重试与熔断都发生在同一次后台操作内，回调仍只执行一次。
// [WithMeterProvider] 记录入站分发次数（xcorr.dispatch.total）与出站耗时
// （xcorr.outbound.duration）。
//
// # 线程约束
//
// 除 [Registry.Handler] 返回的 http.Handler 与 [Server] 外，所有入口只能在循环
// goroutine 上调用。绕过这些入口调度的工作（裸 go 语句、直接调用 xloop.Loop.Post）
// 不会携带身份，这是已知限制。
//
// continuation 为 nil 时操作照常执行，仅不做传播。
package xhook
