package xfatal

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/omeyang/xcorr/pkg/context/xcorr"
	"github.com/omeyang/xcorr/pkg/observability/xcorrlog"
)

// DefaultExitCode 与 Go 运行时未捕获 panic 的退出码一致。
const DefaultExitCode = 2

// osExit 是 os.Exit 的包级变量，支持测试中 mock。
var osExit = os.Exit

// installed 进程内唯一的 Listener。
var installed atomic.Pointer[Listener]

// Option 配置 Listener 的选项函数。
type Option func(*Listener)

// WithExitCode 设置终止时的退出码，默认 DefaultExitCode。code 为 0 时忽略。
func WithExitCode(code int) Option {
	return func(l *Listener) {
		if code != 0 {
			l.code = code
		}
	}
}

// WithExitFunc 替换终止函数，默认 os.Exit。
func WithExitFunc(fn func(code int)) Option {
	return func(l *Listener) {
		if fn != nil {
			l.exit = fn
		}
	}
}

// Listener 致命失败监听器。
type Listener struct {
	e    *xcorrlog.Emitter
	code int
	exit func(int)
	once sync.Once
}

// Install 安装进程内唯一的 Listener。
func Install(e *xcorrlog.Emitter, opts ...Option) (*Listener, error) {
	if e == nil {
		return nil, ErrNilEmitter
	}
	l := &Listener{
		e:    e,
		code: DefaultExitCode,
		exit: func(code int) { osExit(code) },
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(l)
	}
	if !installed.CompareAndSwap(nil, l) {
		return nil, ErrAlreadyInstalled
	}
	return l, nil
}

// Installed 返回已安装的 Listener，未安装时返回 nil。
func Installed() *Listener {
	return installed.Load()
}

// Handle 处理一次致命失败：强制输出关联 header，输出 panic 值与堆栈，然后终止进程。
//
// 多次调用（包括并发调用）只有第一次生效。应在 panic 的 defer 链中调用，
// 这样堆栈中包含 panic 发生的位置。
//
// 身份取自 Emitter 的 slot，因此 Handle 只能作为循环的 panic 处理函数
// （xloop.WithPanicHandler）或在循环 goroutine 上调用。其他 goroutine 使用 [Listener.HandleFor]。
func (l *Listener) Handle(v any) {
	l.once.Do(func() {
		l.e.Fatal(panicMessage(v))
		l.exit(l.code)
	})
}

// HandleFor 与 [Listener.Handle] 相同，但使用给定的身份，不访问 slot，
// 可在任意 goroutine 上调用。c 为 nil 时不输出 header。
func (l *Listener) HandleFor(c *xcorr.Context, v any) {
	l.once.Do(func() {
		l.e.FatalFor(c, panicMessage(v))
		l.exit(l.code)
	})
}

func panicMessage(v any) string {
	return fmt.Sprintf("panic: %v\n\n%s", v, debug.Stack())
}

// Guard 以 defer 方式使用，捕获当前 goroutine 的 panic 并交给已安装的 Listener。
// 未安装 Listener 时重新 panic，保持 Go 默认行为。
//
// Guard 不读取循环的 slot，输出不带关联前缀；需要关联身份时使用 [GuardContext]。
//
//	defer xfatal.Guard()
func Guard() {
	r := recover()
	if r == nil {
		return
	}
	l := installed.Load()
	if l == nil {
		panic(r)
	}
	l.HandleFor(nil, r)
}

// GuardContext 与 [Guard] 相同，身份取自 ctx 中的关联信息（[xcorr.FromContext]）。
//
//	defer xfatal.GuardContext(ctx)
func GuardContext(ctx context.Context) {
	r := recover()
	if r == nil {
		return
	}
	l := installed.Load()
	if l == nil {
		panic(r)
	}
	l.HandleFor(xcorr.FromContext(ctx), r)
}
