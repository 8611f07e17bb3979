package xcorr

import (
	"sync"
	"sync/atomic"
)

// IDSpace 序号空间大小，id 取值范围为 [1, IDSpace]。
const IDSpace = 100000000

// idCounter 进程级序号计数器。
//
// 设计决策: 使用互斥锁而非 atomic.Add，"先取模再自增"需要读-改-写两步，
// 多个事件循环共存时仍需保证序号严格递增（模 IDSpace）。
var idCounter struct {
	mu  sync.Mutex
	val uint32
}

// nextID 分配下一个序号：counter = counter mod IDSpace; id = ++counter。
func nextID() uint32 {
	idCounter.mu.Lock()
	defer idCounter.mu.Unlock()
	idCounter.val %= IDSpace
	idCounter.val++
	return idCounter.val
}

// ResetIDs 将序号计数器归零，下一个分配的 id 为 1。
//
// 仅用于测试：运行期调用会让新旧 Context 的 id 重号。
func ResetIDs() {
	idCounter.mu.Lock()
	idCounter.val = 0
	idCounter.mu.Unlock()
}

// Context 一个逻辑请求（或出站调用）的关联身份。
//
// Context 通过指针共享：在它活跃期间捕获的所有 continuation 引用同一个值，
// 看到同一个 id，修改同一个 header 标记。
// 零值可用，但没有 method 时不会输出 header 行。
type Context struct {
	method string
	target string

	id     atomic.Uint32 // 0 表示尚未分配
	header atomic.Bool
}

// NewContext 创建新的关联身份。id 不在此处分配，而是在首次需要时分配。
func NewContext(method, target string) *Context {
	return &Context{method: method, target: target}
}

// Method 返回请求方法，可能为空。
func (c *Context) Method() string {
	if c == nil {
		return ""
	}
	return c.method
}

// Target 返回请求目标（URL 或路径），可能为空。
func (c *Context) Target() string {
	if c == nil {
		return ""
	}
	return c.target
}

// ID 返回序号，首次调用时分配。nil Context 返回 0。
//
// 同一 Context 上的并发首次调用只会消耗一个序号。
func (c *Context) ID() uint32 {
	if c == nil {
		return 0
	}
	if id := c.id.Load(); id != 0 {
		return id
	}
	id := nextID()
	if c.id.CompareAndSwap(0, id) {
		return id
	}
	// 另一调用方已完成分配，丢弃本次序号
	return c.id.Load()
}

// Assigned 读取序号但不分配。
func (c *Context) Assigned() (uint32, bool) {
	if c == nil {
		return 0, false
	}
	id := c.id.Load()
	return id, id != 0
}

// MarkHeader 将 header 标记从 false 置为 true。
// 只有完成翻转的调用方得到 true。
func (c *Context) MarkHeader() bool {
	if c == nil {
		return false
	}
	return c.header.CompareAndSwap(false, true)
}

// HeaderEmitted 报告 header 行是否已输出。
func (c *Context) HeaderEmitted() bool {
	if c == nil {
		return false
	}
	return c.header.Load()
}

// String 返回 "METHOD target" 形式，便于调试输出。
func (c *Context) String() string {
	if c == nil {
		return "<none>"
	}
	switch {
	case c.method == "":
		return c.target
	case c.target == "":
		return c.method
	default:
		return c.method + " " + c.target
	}
}
