package xhook

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/omeyang/xcorr/pkg/context/xcorr"
	"github.com/omeyang/xcorr/pkg/runtime/xloop"
)

// =============================================================================
// Watch：基于 fsnotify 的事件监视
// =============================================================================

// Watcher 由 Watch 创建的事件监视器。监视期间事件循环保持运行。
type Watcher struct {
	w       *fsnotify.Watcher
	release func()
	once    sync.Once
	closed  chan struct{}
}

// Watch 监视 name（文件或目录）的变化，每个事件或错误都在调用时刻的活跃身份下回调。
//
// 创建失败时同步返回错误。cb 为 nil 时照常监视，事件被丢弃。
func (f *FS) Watch(name string, cb func(fsnotify.Event, error)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("xhook: create watcher: %w", err)
	}
	if err := fw.Add(name); err != nil {
		return nil, errors.Join(fmt.Errorf("xhook: watch %s: %w", name, err), fw.Close())
	}

	w := &Watcher{
		w:       fw,
		release: f.r.loop.Hold(),
		closed:  make(chan struct{}),
	}
	go w.forward(f.r.loop, xcorr.Wrap2(&f.r.slot, f.r.slot.Get(), cb))
	return w, nil
}

// Unwatch 停止 Watch 创建的监视器，等价于 w.Close()。
func (f *FS) Unwatch(w *Watcher) error {
	if w == nil {
		return nil
	}
	return w.Close()
}

// Close 停止监视，可重复调用。Close 之后不再有回调。
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closed)
		err = w.w.Close()
		w.release()
	})
	return err
}

// forward 把 fsnotify 事件转发到循环上。cb 为 nil 时只消费事件。
func (w *Watcher) forward(loop *xloop.Loop, cb func(fsnotify.Event, error)) {
	for {
		select {
		case ev, ok := <-w.w.Events:
			if !ok {
				return
			}
			if cb != nil {
				w.post(loop, func() { cb(ev, nil) })
			}
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			if cb != nil {
				w.post(loop, func() { cb(fsnotify.Event{}, err) })
			}
		case <-w.closed:
			return
		}
	}
}

// post 投递回调，回调执行时若已 Close 则丢弃。
func (w *Watcher) post(loop *xloop.Loop, fn func()) {
	_ = loop.Post(func() {
		select {
		case <-w.closed:
		default:
			fn()
		}
	})
}

// =============================================================================
// WatchFile：基于轮询的 stat 监视
// =============================================================================

// FileWatcher 由 WatchFile 创建的轮询监视器。
type FileWatcher struct {
	f       *FS
	name    string
	timer   *xloop.Timer
	cb      func(curr, prev fs.FileInfo)
	prev    fs.FileInfo
	polling bool
	stopped bool
}

// WatchFile 每隔 interval 轮询 name 的 stat，发生变化时以 (curr, prev) 回调。
//
// 文件不存在时对应的 FileInfo 为 nil。interval <= 0 时使用 WithWatchInterval 的值。
// 回调运行在调用时刻的活跃身份下。cb 为 nil 时返回 nil。
func (f *FS) WatchFile(name string, interval time.Duration, cb func(curr, prev fs.FileInfo)) *FileWatcher {
	if cb == nil {
		return nil
	}
	if interval <= 0 {
		interval = f.r.opts.watchInterval
	}
	fw := &FileWatcher{
		f:    f,
		name: name,
		cb:   xcorr.Wrap2(&f.r.slot, f.r.slot.Get(), cb),
	}
	f.watchers[name] = append(f.watchers[name], fw)

	// 先取基线，之后每个周期比较一次
	fw.poll(false)
	fw.timer = f.r.loop.SetInterval(func() { fw.poll(true) }, interval)
	return fw
}

// UnwatchFile 停止 name 上的全部轮询监视器。
func (f *FS) UnwatchFile(name string) {
	for _, fw := range f.watchers[name] {
		fw.stop()
	}
	delete(f.watchers, name)
}

// Stop 只停止当前监视器。
func (fw *FileWatcher) Stop() {
	if fw == nil {
		return
	}
	fw.stop()
	list := fw.f.watchers[fw.name]
	for i, w := range list {
		if w == fw {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(fw.f.watchers, fw.name)
	} else {
		fw.f.watchers[fw.name] = list
	}
}

func (fw *FileWatcher) stop() {
	fw.stopped = true
	fw.f.r.loop.ClearTimer(fw.timer)
}

// poll 在后台执行 stat，上一次未完成时跳过本周期。
func (fw *FileWatcher) poll(notify bool) {
	if fw.polling || fw.stopped {
		return
	}
	fw.polling = true
	fw.f.r.loop.Go(func() func() {
		fi, err := os.Stat(fw.name)
		if err != nil {
			fi = nil
		}
		return func() {
			fw.polling = false
			if fw.stopped {
				return
			}
			prev := fw.prev
			fw.prev = fi
			if notify && statChanged(fi, prev) {
				fw.cb(fi, prev)
			}
		}
	})
}

// statChanged 比较两次 stat 结果。
func statChanged(a, b fs.FileInfo) bool {
	if a == nil || b == nil {
		return (a == nil) != (b == nil)
	}
	return a.Size() != b.Size() || !a.ModTime().Equal(b.ModTime()) || a.Mode() != b.Mode()
}
