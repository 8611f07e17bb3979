package xcorrlog

import (
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/omeyang/xcorr/pkg/context/xcorr"
)

// sink 输出目标
type sink int

const (
	sinkOut sink = iota
	sinkErr
)

// Emitter 带请求关联前缀的日志输出器。
//
// 所有方法可并发调用，单次输出（header + 消息）以一次 Write 完成，不会与其他输出交错。
type Emitter struct {
	slot *xcorr.Slot
	opts *emitterOptions
	pid  string

	mu         sync.Mutex
	errorCount atomic.Uint64
}

// New 创建 Emitter，从 slot 读取当前活跃的 Context。
func New(slot *xcorr.Slot, opts ...Option) (*Emitter, error) {
	if slot == nil {
		return nil, ErrNilSlot
	}
	options := defaultOptions()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(options)
	}
	return &Emitter{
		slot: slot,
		opts: options,
		pid:  strconv.Itoa(options.pid),
	}, nil
}

// Slot 返回 Emitter 读取的 slot。
func (e *Emitter) Slot() *xcorr.Slot {
	return e.slot
}

// Log 向普通 sink 输出一行。
func (e *Emitter) Log(msg string) {
	e.emit(e.slot.Get(), sinkOut, msg, false, true)
}

// Logf 格式化后向普通 sink 输出一行。
func (e *Emitter) Logf(format string, args ...any) {
	e.Log(fmt.Sprintf(format, args...))
}

// Error 向错误 sink 输出一行。
func (e *Emitter) Error(msg string) {
	e.emit(e.slot.Get(), sinkErr, msg, false, true)
}

// Errorf 格式化后向错误 sink 输出一行。
func (e *Emitter) Errorf(format string, args ...any) {
	e.Error(fmt.Sprintf(format, args...))
}

// Fatal 用于致命错误：在错误 sink 上强制输出 header（不论是否已输出过），
// 随后输出带前缀的 msg。msg 为空时只输出 header。
//
// 身份优先取 panic 穿出时所在的 Context（[xcorr.Slot.TakeFailed]），
// 因为 restore 已在 panic 传播途中把 slot 恢复为外层值。
// 会读写 slot，只能在循环 goroutine 上调用；其他 goroutine 使用 [Emitter.FatalFor]。
func (e *Emitter) Fatal(msg string) {
	c := e.slot.TakeFailed()
	if c == nil {
		c = e.slot.Get()
	}
	e.FatalFor(c, msg)
}

// FatalFor 与 [Emitter.Fatal] 相同，但身份由调用方给出，不访问 slot，
// 可在任意 goroutine 上调用。c 为 nil 时只输出原始 msg。
func (e *Emitter) FatalFor(c *xcorr.Context, msg string) {
	e.emit(c, sinkErr, msg, true, msg != "")
}

// Errors 返回 sink 写入失败的累计次数。
func (e *Emitter) Errors() uint64 {
	return e.errorCount.Load()
}

// Prefix 返回 c 对应的行前缀 "[<pid>:<id>] "，c 为 nil 时返回空字符串。
// 会为 c 分配 id。
func (e *Emitter) Prefix(c *xcorr.Context) string {
	if c == nil {
		return ""
	}
	return "[" + e.pid + ":" + strconv.FormatUint(uint64(c.ID()), 10) + "] "
}

// emit 输出一条消息。
//
// force 为 true 时无视 header 标记强制输出 header；withMsg 为 false 时只输出 header。
func (e *Emitter) emit(c *xcorr.Context, s sink, msg string, force, withMsg bool) {
	if c == nil {
		if withMsg {
			e.write(s, []byte(msg+"\n"))
		}
		return
	}

	prefix := e.Prefix(c)
	buf := make([]byte, 0, 2*len(prefix)+len(msg)+len(c.Target())+32)
	if c.Method() != "" {
		// MarkHeader 必须执行：强制输出也要把标记置位，避免后续普通输出重复 header
		marked := c.MarkHeader()
		if force || marked {
			buf = append(buf, prefix...)
			buf = append(buf, "Method: "...)
			buf = append(buf, c.Method()...)
			buf = append(buf, "  - url: "...)
			buf = append(buf, c.Target()...)
			buf = append(buf, '\n')
		}
	}
	if withMsg {
		buf = append(buf, prefix...)
		buf = append(buf, msg...)
		buf = append(buf, '\n')
	}
	if len(buf) > 0 {
		e.write(s, buf)
	}
}

func (e *Emitter) writer(s sink) io.Writer {
	if s == sinkErr {
		return e.opts.errOut
	}
	return e.opts.out
}

func (e *Emitter) write(s sink, p []byte) {
	e.mu.Lock()
	_, err := e.writer(s).Write(p)
	e.mu.Unlock()
	if err != nil {
		e.errorCount.Add(1)
		if e.opts.onError != nil {
			e.opts.onError(err)
		}
	}
}
