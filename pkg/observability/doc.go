// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xcorrlog: 带 "[<pid>:<id>] " 前缀的行日志与 slog 适配
//   - xrotate: 日志文件轮转
//
// 设计原则：
//   - 输出为逐行文本，单行一次写入
//   - 写入失败只计数，不影响调用方
package observability
