package xhook

import "errors"

var (
	// ErrNilLoop 创建 Registry 时 loop 为 nil。
	ErrNilLoop = errors.New("xhook: loop is nil")

	// ErrInvalidSchedule cron 表达式无效或永不触发。
	ErrInvalidSchedule = errors.New("xhook: invalid cron schedule")

	// ErrResponseEnded 响应已结束，不能再写入。
	ErrResponseEnded = errors.New("xhook: response already ended")

	// ErrSchemeMismatch URL 的 scheme 与 Client 不一致。
	ErrSchemeMismatch = errors.New("xhook: url scheme does not match client")

	// ErrCircuitOpen 目标主机的熔断器处于打开状态，请求未发出。
	ErrCircuitOpen = errors.New("xhook: circuit breaker is open")

	// ErrLoopClosed 循环已停止，无法分发请求。
	ErrLoopClosed = errors.New("xhook: loop is closed")
)
