package xloop

import (
	"container/heap"
	"time"
)

// minInterval SetInterval 的最小周期。
const minInterval = time.Millisecond

// Timer 由 SetTimeout / SetInterval 创建的定时器。
type Timer struct {
	loop    *Loop
	fn      func()
	when    time.Time
	period  time.Duration // 0 表示一次性定时器
	seq     uint64
	index   int // 在堆中的位置，-1 表示不在堆中
	stopped bool
}

// Stop 取消定时器。只能在循环 goroutine 上调用，重复调用无副作用。
// 对正在执行中的周期定时器调用 Stop，本次回调结束后不再重新排期。
func (t *Timer) Stop() {
	if t == nil || t.loop == nil {
		return
	}
	t.loop.ClearTimer(t)
}

// Active 报告定时器是否仍会触发。
func (t *Timer) Active() bool {
	return t != nil && !t.stopped
}

// timerHeap 按 (when, seq) 排序的最小堆。
type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].seq < h[j].seq
	}
	return h[i].when.Before(h[j].when)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t, ok := x.(*Timer)
	if !ok {
		return
	}
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// SetTimeout 在 d 之后执行一次 fn。d < 0 按 0 处理。
func (l *Loop) SetTimeout(fn func(), d time.Duration) *Timer {
	return l.addTimer(fn, max(d, 0), 0)
}

// SetInterval 每隔 d 执行一次 fn，直到 Stop。d 小于 1ms 时按 1ms 处理。
func (l *Loop) SetInterval(fn func(), d time.Duration) *Timer {
	d = max(d, minInterval)
	return l.addTimer(fn, d, d)
}

// ClearTimer 取消定时器，t 为 nil 时无操作。
func (l *Loop) ClearTimer(t *Timer) {
	if t == nil || t.stopped {
		return
	}
	t.stopped = true
	if t.index >= 0 {
		heap.Remove(&l.timers, t.index)
	}
}

func (l *Loop) addTimer(fn func(), d, period time.Duration) *Timer {
	l.seq++
	t := &Timer{
		loop:   l,
		fn:     fn,
		when:   time.Now().Add(d),
		period: period,
		seq:    l.seq,
		index:  -1,
	}
	if fn == nil {
		t.stopped = true
		return t
	}
	heap.Push(&l.timers, t)
	return t
}

// runTimers 执行所有在 now 之前到期的定时器。
func (l *Loop) runTimers(now time.Time) {
	for l.timers.Len() > 0 {
		t := l.timers[0]
		if t.when.After(now) {
			return
		}
		heap.Pop(&l.timers)
		if t.period == 0 {
			t.stopped = true
		}
		l.invoke(t.fn)
		if t.period > 0 && !t.stopped {
			l.seq++
			t.seq = l.seq
			t.when = time.Now().Add(t.period)
			heap.Push(&l.timers, t)
		}
		l.drainTicks()
	}
}

// nextDeadline 返回最近的定时器截止时间。
func (l *Loop) nextDeadline() (time.Time, bool) {
	if l.timers.Len() == 0 {
		return time.Time{}, false
	}
	return l.timers[0].when, true
}
