// Package runtime 提供单线程协作式运行时相关的子包。
//
// 子包列表：
//   - xloop: 事件循环，macrotask / tick 队列、定时器与后台阻塞操作
//   - xhook: 循环上的拦截入口，负责在 continuation 之间传递关联身份
//
// 设计原则：
//   - 所有 continuation 在循环 goroutine 上串行执行
//   - 阻塞操作在后台 goroutine 上完成，结果投递回循环
package runtime
