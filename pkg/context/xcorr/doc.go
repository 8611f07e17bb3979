// Package xcorr 提供请求关联（correlation）所需的最小原语。
//
// 在单 goroutine 协作式事件循环中，一个逻辑请求的处理会被拆分为多个延迟执行的
// continuation（定时器、I/O 完成回调、下一轮 tick 等），它们与其他请求的
// continuation 交错运行。xcorr 让这些 continuation 在执行期间都能看到
// "当前逻辑请求"，而无需在每个调用点显式传参。
//
// # 核心类型
//
//   - [Context]: 一个逻辑请求的身份（method、target、惰性分配的序号 id、header 标记）
//   - [Slot]: 当前活跃 Context 的寄存器，每个事件循环持有一个
//
// # 包装原语
//
//	slot.Run(c, fn)            - 在 c 下同步执行 fn，返回前恢复原值
//	xcorr.Wrap(slot, c, fn)    - 返回包装后的 continuation，稍后执行时恢复 c
//	xcorr.Wrap1/Wrap2/Wrap3    - 带参数的泛型版本
//	xcorr.Call(slot, c, fn)    - 带返回值的 Run
//	slot.Bind(fn)              - 捕获调用时刻的 slot.Get()（Propagate 策略）
//
// 所有包装都遵循 save → set → call → restore 顺序，restore 通过 defer 执行，
// fn panic 时同样恢复，panic 本身原样向上传播。
//
// # 与 context.Context 互通
//
// [WithContext]、[FromContext]、[Require] 以未导出 key 在 context 中存取身份，
// 用于把关联身份交给不在事件循环上运行的代码（如 slog handler）。
//
// # 序号回绕
//
// id 取值范围为 1..1e8，超过后从 1 重新开始。header 标记保存在 Context 自身，
// 不以 id 为键，因此回绕只会造成文本上的重号，不会影响 header 只输出一次的语义。
package xcorr
