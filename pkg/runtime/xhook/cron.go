package xhook

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/omeyang/xcorr/pkg/runtime/xloop"
)

// CronTimer 由 SetCron 创建的周期定时器。
type CronTimer struct {
	r       *Registry
	sched   cron.Schedule
	fn      func()
	timer   *xloop.Timer
	stopped bool
}

// SetCron 按标准 cron 表达式（5 字段，支持 @every / @hourly 等描述符）周期执行 cb，
// 每次都运行在调用时刻的活跃身份下。
//
// cb 为 nil 时定时器照常按调度运行，触发时什么都不做，也不传播身份。
func (r *Registry) SetCron(spec string, cb func()) (*CronTimer, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchedule, err)
	}
	ct := &CronTimer{r: r, sched: sched, fn: r.slot.Bind(cb)}
	if ct.fn == nil {
		ct.fn = func() {}
	}
	if !ct.arm(time.Now()) {
		return nil, fmt.Errorf("%w: %q never fires", ErrInvalidSchedule, spec)
	}
	return ct, nil
}

// Stop 停止定时器。只能在循环 goroutine 上调用，重复调用无副作用。
func (ct *CronTimer) Stop() {
	if ct == nil || ct.stopped {
		return
	}
	ct.stopped = true
	ct.r.loop.ClearTimer(ct.timer)
}

// Next 返回下一次触发时间，已停止时返回零值。
func (ct *CronTimer) Next() time.Time {
	if ct == nil || ct.stopped {
		return time.Time{}
	}
	return ct.sched.Next(time.Now())
}

// arm 按调度计算下一次触发并注册一次性定时器。调度不再触发时返回 false。
func (ct *CronTimer) arm(now time.Time) bool {
	next := ct.sched.Next(now)
	if next.IsZero() {
		ct.stopped = true
		return false
	}
	ct.timer = ct.r.loop.SetTimeout(ct.fire, next.Sub(now))
	return true
}

func (ct *CronTimer) fire() {
	if ct.stopped {
		return
	}
	ct.fn()
	if !ct.stopped {
		ct.arm(time.Now())
	}
}
