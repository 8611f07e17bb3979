package xloop

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Loop 单 goroutine 协作式事件循环。
type Loop struct {
	opts *loopOptions
	sem  *semaphore.Weighted

	// mu 保护以下可跨 goroutine 访问的字段
	mu      sync.Mutex
	tasks   []func()
	pending int // 未完成的后台操作 + Hold 数量
	closed  bool
	done    chan struct{}

	wake    chan struct{}
	running atomic.Bool

	// 以下字段只在循环 goroutine 上访问
	ticks  []func()
	timers timerHeap
	seq    uint64
}

// New 创建事件循环。
func New(opts ...Option) *Loop {
	options := defaultOptions()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(options)
	}
	return &Loop{
		opts: options,
		sem:  semaphore.NewWeighted(options.workers),
		done: make(chan struct{}),
		wake: make(chan struct{}, 1),
	}
}

// Post 投递一个 macrotask，可从任意 goroutine 调用。
func (l *Loop) Post(fn func()) error {
	if fn == nil {
		return ErrNilFunc
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()
	l.signal()
	return nil
}

// NextTick 将 fn 加入 tick 队列，在当前 continuation 结束后立即执行。
// 只能在循环 goroutine 上调用。fn 为 nil 时忽略。
func (l *Loop) NextTick(fn func()) {
	if fn == nil {
		return
	}
	l.ticks = append(l.ticks, fn)
}

// Go 在后台 goroutine 中执行 work，完成后将其返回的 continuation 投递回循环。
//
// 后台并发数受 WithWorkers 限制。未完成的操作会让 Run 保持运行。
// 循环停止后完成的操作，其 continuation 被丢弃。
func (l *Loop) Go(work func() (done func())) {
	if work == nil {
		return
	}
	l.mu.Lock()
	l.pending++
	l.mu.Unlock()

	go func() {
		// context.Background 永不取消，Acquire 不会失败
		_ = l.sem.Acquire(context.Background(), 1)
		done := work()
		l.sem.Release(1)
		l.complete(done)
	}()
}

// Hold 让循环在没有其他工作时保持运行（例如监听中的服务器）。
// 返回的 release 可重复调用，仅第一次生效。
func (l *Loop) Hold() (release func()) {
	l.mu.Lock()
	l.pending++
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			l.pending--
			l.mu.Unlock()
			l.signal()
		})
	}
}

// Stop 停止循环，已排队但未执行的任务被丢弃。可重复调用。
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.done)
	}
	l.tasks = nil
	l.mu.Unlock()
	l.signal()
}

// Done 返回在 Stop 时关闭的 channel，供等待循环结果的外部 goroutine 使用。
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Closed 报告循环是否已停止。
func (l *Loop) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Run 在当前 goroutine 上运行循环，直到空闲、Stop 或 ctx 取消。
func (l *Loop) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer l.running.Store(false)

	l.opts.logger.Debug("loop started")
	defer l.opts.logger.Debug("loop exited")

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Run 开始前登记的 tick 也要执行
		l.drainTicks()
		l.runTimers(time.Now())

		batch, closed, idle := l.takeTasks()
		if closed {
			return nil
		}
		for _, fn := range batch {
			l.invoke(fn)
			l.drainTicks()
			if l.Closed() {
				return nil
			}
		}
		if len(batch) > 0 {
			continue
		}

		deadline, hasTimer := l.nextDeadline()
		if idle && !hasTimer && len(l.ticks) == 0 {
			return nil
		}

		var timerC <-chan time.Time
		if hasTimer {
			d := time.Until(deadline)
			if d <= 0 {
				continue
			}
			timer.Reset(d)
			timerC = timer.C
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		case <-timerC:
		}
		if hasTimer {
			timer.Stop()
		}
	}
}

// takeTasks 取出当前所有 macrotask。
// idle 表示取出时没有任何任务或未完成的后台操作。
func (l *Loop) takeTasks() (batch []func(), closed, idle bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, true, false
	}
	batch = l.tasks
	l.tasks = nil
	return batch, false, len(batch) == 0 && l.pending == 0
}

// complete 投递后台操作的 continuation 并减少未完成计数。
// 两步在同一临界区内完成，Run 的空闲判断不会看到中间状态。
func (l *Loop) complete(done func()) {
	l.mu.Lock()
	l.pending--
	if !l.closed && done != nil {
		l.tasks = append(l.tasks, done)
	}
	l.mu.Unlock()
	l.signal()
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// drainTicks 清空 tick 队列，执行期间新加入的 tick 同样在本轮执行。
func (l *Loop) drainTicks() {
	for len(l.ticks) > 0 {
		fn := l.ticks[0]
		l.ticks[0] = nil
		l.ticks = l.ticks[1:]
		l.invoke(fn)
	}
}

// invoke 执行一个 continuation，panic 交给 panic handler。
func (l *Loop) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if l.opts.onPanic == nil {
				panic(r)
			}
			l.opts.logger.Debug("continuation panicked", slog.Any("panic", r))
			l.opts.onPanic(r)
		}
	}()
	fn()
}
