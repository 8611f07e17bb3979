package xcorr

// Slot 当前活跃 Context 的寄存器。
//
// 任一时刻最多持有一个 Context。Slot 本身不是栈：嵌套由每个 continuation
// 在自身执行前后 save/restore 实现，save/restore 的调用关系形成与
// continuation 动态嵌套一致的隐式栈。
//
// Slot 不加锁，只能由所属事件循环的 goroutine 读写。需要跨 goroutine 传递身份时，
// 使用 [WithContext] 放入 context.Context。
//
// 零值可直接使用。
type Slot struct {
	cur *Context

	// failed 最内层以 panic 方式退出的包装所使用的 Context。
	// restore 会在 panic 传播途中清掉 cur，致命错误处理需要靠它找回出错的请求。
	failed *Context
}

// Get 返回当前活跃的 Context，没有时返回 nil。
func (s *Slot) Get() *Context {
	return s.cur
}

// Set 替换当前 Context，返回被替换的旧值，供调用方恢复。
func (s *Slot) Set(c *Context) (prev *Context) {
	prev = s.cur
	s.cur = c
	return prev
}

// TakeFailed 返回并清除最近一次 panic 穿出包装时所在的 Context。
// 没有记录时返回 nil。
func (s *Slot) TakeFailed() *Context {
	c := s.failed
	s.failed = nil
	return c
}

// Run 在 c 下同步执行 fn，无论 fn 正常返回还是 panic，返回前都恢复原值。
// panic 原样向上传播。
func (s *Slot) Run(c *Context, fn func()) {
	// 进入包装时没有 panic 在传播，旧记录已失效
	s.failed = nil
	prev := s.Set(c)
	ok := false
	defer func() {
		if !ok && s.failed == nil {
			s.failed = c
		}
		s.Set(prev)
	}()
	fn()
	ok = true
}

// Bind 捕获调用时刻的 Get()，返回在该 Context 下执行 fn 的 continuation。
// fn 为 nil 时返回 nil。
func (s *Slot) Bind(fn func()) func() {
	return Wrap(s, s.Get(), fn)
}

// Wrap 返回在 c 下执行 fn 的 continuation。fn 为 nil 时返回 nil。
func Wrap(s *Slot, c *Context, fn func()) func() {
	if fn == nil {
		return nil
	}
	return func() {
		s.Run(c, fn)
	}
}

// Wrap1 单参数版本的 [Wrap]。
func Wrap1[A any](s *Slot, c *Context, fn func(A)) func(A) {
	if fn == nil {
		return nil
	}
	return func(a A) {
		s.Run(c, func() { fn(a) })
	}
}

// Wrap2 双参数版本的 [Wrap]，常用于 (result, error) 形式的完成回调。
func Wrap2[A, B any](s *Slot, c *Context, fn func(A, B)) func(A, B) {
	if fn == nil {
		return nil
	}
	return func(a A, b B) {
		s.Run(c, func() { fn(a, b) })
	}
}

// Wrap3 三参数版本的 [Wrap]。
func Wrap3[A, B, C any](s *Slot, c *Context, fn func(A, B, C)) func(A, B, C) {
	if fn == nil {
		return nil
	}
	return func(a A, b B, cc C) {
		s.Run(c, func() { fn(a, b, cc) })
	}
}

// Call 在 c 下执行 fn 并返回其结果。
func Call[R any](s *Slot, c *Context, fn func() R) R {
	var r R
	s.Run(c, func() { r = fn() })
	return r
}
