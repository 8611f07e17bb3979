package xloop

import "errors"

var (
	// ErrClosed 循环已停止，不再接受新任务。
	ErrClosed = errors.New("xloop: loop is closed")

	// ErrRunning 循环已在运行，同一时刻只允许一个 Run。
	ErrRunning = errors.New("xloop: loop is already running")

	// ErrNilFunc 投递的函数为 nil。
	ErrNilFunc = errors.New("xloop: nil func")
)
