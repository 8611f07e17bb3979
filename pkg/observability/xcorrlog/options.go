package xcorrlog

import (
	"io"
	"os"
)

// Option 配置 Emitter 的选项函数。
type Option func(*emitterOptions)

type emitterOptions struct {
	out     io.Writer
	errOut  io.Writer
	pid     int
	onError func(error)
}

func defaultOptions() *emitterOptions {
	return &emitterOptions{
		out:    os.Stdout,
		errOut: os.Stderr,
		pid:    os.Getpid(),
	}
}

// WithOutput 设置普通输出 sink，默认 os.Stdout。nil 被忽略。
func WithOutput(w io.Writer) Option {
	return func(o *emitterOptions) {
		if w != nil {
			o.out = w
		}
	}
}

// WithErrorOutput 设置错误输出 sink，默认 os.Stderr。nil 被忽略。
func WithErrorOutput(w io.Writer) Option {
	return func(o *emitterOptions) {
		if w != nil {
			o.errOut = w
		}
	}
}

// WithPID 覆盖前缀中的进程号，默认 os.Getpid()。
func WithPID(pid int) Option {
	return func(o *emitterOptions) {
		o.pid = pid
	}
}

// WithOnError 设置 sink 写入失败时的回调。
//
// 回调不得再通过同一 Emitter 输出，否则会递归。
func WithOnError(fn func(error)) Option {
	return func(o *emitterOptions) {
		o.onError = fn
	}
}
