package xcorrlog

import (
	"bytes"
	"sync"

	"github.com/omeyang/xcorr/pkg/context/xcorr"
)

// LineWriter 将字节流按行切分，逐行通过 Emitter 输出。
//
// 不完整的尾行保留在缓冲区，直到收到换行符。
type LineWriter struct {
	e    *Emitter
	sink sink

	// fixed 为 true 时使用固定身份 c，不读取 slot
	fixed bool
	c     *xcorr.Context

	mu  sync.Mutex
	buf []byte
}

// Writer 返回普通 sink 的 io.Writer 适配，前缀取自写入换行符时 slot 中的活跃 Context。
//
// 读取 slot，只能在循环 goroutine 上写入。标准库 log 等可能从任意 goroutine
// 写入的场景使用 [Emitter.WriterFor]。
func (e *Emitter) Writer() *LineWriter {
	return &LineWriter{e: e, sink: sinkOut}
}

// ErrorWriter 返回错误 sink 的 io.Writer 适配，限制同 [Emitter.Writer]。
func (e *Emitter) ErrorWriter() *LineWriter {
	return &LineWriter{e: e, sink: sinkErr}
}

// WriterFor 返回普通 sink 的 io.Writer 适配，每行使用固定身份 c（nil 表示不加前缀）。
// 不访问 slot，可从任意 goroutine 写入。
func (e *Emitter) WriterFor(c *xcorr.Context) *LineWriter {
	return &LineWriter{e: e, sink: sinkOut, fixed: true, c: c}
}

// ErrorWriterFor 错误 sink 版本的 [Emitter.WriterFor]。
func (e *Emitter) ErrorWriterFor(c *xcorr.Context) *LineWriter {
	return &LineWriter{e: e, sink: sinkErr, fixed: true, c: c}
}

func (w *LineWriter) current() *xcorr.Context {
	if w.fixed {
		return w.c
	}
	return w.e.slot.Get()
}

// Write 实现 io.Writer，总是返回 len(p), nil；sink 的写入错误由 Emitter 计数。
func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	w.buf = append(w.buf, p...)
	var lines []string
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, string(w.buf[:i]))
		w.buf = w.buf[i+1:]
	}
	if len(w.buf) == 0 {
		w.buf = nil
	}
	w.mu.Unlock()

	c := w.current()
	for _, line := range lines {
		w.e.emit(c, w.sink, line, false, true)
	}
	return len(p), nil
}

// Flush 输出缓冲区中不完整的尾行（如果有）。
func (w *LineWriter) Flush() {
	w.mu.Lock()
	rest := string(w.buf)
	w.buf = nil
	w.mu.Unlock()
	if rest != "" {
		w.e.emit(w.current(), w.sink, rest, false, true)
	}
}
