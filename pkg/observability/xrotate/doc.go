// Package xrotate 为关联日志提供按大小轮转的文件输出。
//
// [NewLumberjack] 创建单个轮转文件，[OpenSinks] 创建 xcorrlog 需要的一对输出
// （普通输出与错误输出）。错误文件未配置时两者共用同一个轮转文件。
//
// 所有 Rotator 实现并发安全，可以直接作为 xcorrlog.WithOutput /
// xcorrlog.WithErrorOutput 的参数。
package xrotate
