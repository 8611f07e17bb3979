// Package context 提供请求关联身份相关的子包。
//
// 子包列表：
//   - xcorr: 关联身份（Context）、单循环寄存器（Slot）与 continuation 包装
//
// 设计原则：
//   - 身份只在进程内有效，不跨进程传播
//   - 寄存器只在所属循环的 goroutine 上读写，跨 goroutine 经 context.Context 传递
package context
