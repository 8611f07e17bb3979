// Package xcorrlog 输出带请求关联前缀的行式日志。
//
// [Emitter] 包装普通输出与错误输出两个 sink。每次输出时读取当前活跃的
// [xcorr.Context]：
//
//   - 没有活跃 Context：原样输出消息
//   - 有活跃 Context：首次需要时分配 id，输出 "[<pid>:<id>] <msg>"
//   - 该 Context 第一次输出且带 method 时，先输出一行 header：
//     "[<pid>:<id>] Method: <method>  - url: <target>"
//
// 同一 Context 的 header 只输出一次。[Emitter.Fatal] 用于致命错误，
// 无论 header 是否已输出都会在错误 sink 上强制输出一次。
//
// # 适配
//
//   - [Emitter.Writer] / [Emitter.ErrorWriter]: io.Writer 适配，按行打前缀，
//     前缀取自 slot，只在循环 goroutine 上写入
//   - [Emitter.WriterFor] / [Emitter.ErrorWriterFor]: 固定身份的 io.Writer 适配，
//     不访问 slot，可用于 log.SetOutput 等可能从任意 goroutine 写入的场景
//   - [NewHandler]: slog.Handler 适配，Error 及以上级别写入错误 sink
//
// 输出只做行式文本，不做缓冲、采样或结构化存储。
package xcorrlog
