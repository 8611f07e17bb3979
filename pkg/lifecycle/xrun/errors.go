package xrun

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrSignal 因收到系统信号而终止。
	ErrSignal = errors.New("received signal")

	// ErrNilFunc 服务函数为 nil。
	ErrNilFunc = errors.New("xrun: nil service func")

	// ErrNilLoop Loop 的参数为 nil。
	ErrNilLoop = errors.New("xrun: nil loop")
)

// SignalError 触发终止的信号。errors.Is(err, ErrSignal) 为 true。
type SignalError struct {
	Signal os.Signal
}

func (e *SignalError) Error() string {
	if e.Signal == nil {
		return "received signal <nil>"
	}
	return fmt.Sprintf("received signal %s", e.Signal)
}

// Unwrap 返回 ErrSignal。
func (e *SignalError) Unwrap() error {
	return ErrSignal
}
