package xloop

import "log/slog"

// DefaultWorkers 后台 I/O 默认并发数。
const DefaultWorkers = 4

// Option 配置 Loop 的选项函数。
type Option func(*loopOptions)

type loopOptions struct {
	workers int64
	onPanic func(any)
	logger  *slog.Logger
}

func defaultOptions() *loopOptions {
	return &loopOptions{
		workers: DefaultWorkers,
		logger:  slog.Default(),
	}
}

// WithWorkers 设置后台 I/O 的最大并发数，n <= 0 时忽略。
func WithWorkers(n int) Option {
	return func(o *loopOptions) {
		if n > 0 {
			o.workers = int64(n)
		}
	}
}

// WithPanicHandler 设置 continuation panic 时的处理函数。
//
// 默认行为是重新 panic，由 Go 运行时按默认方式终止进程。
// 处理函数在循环 goroutine 上、panic 的 defer 链中执行。
func WithPanicHandler(fn func(v any)) Option {
	return func(o *loopOptions) {
		o.onPanic = fn
	}
}

// WithLogger 设置运行期事件的日志记录器，默认使用 slog.Default()。
func WithLogger(logger *slog.Logger) Option {
	return func(o *loopOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
