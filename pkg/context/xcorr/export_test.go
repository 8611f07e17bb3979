package xcorr

// SetIDCounter 设置序号计数器当前值（仅用于测试回绕）。
func SetIDCounter(v uint32) {
	idCounter.mu.Lock()
	idCounter.val = v
	idCounter.mu.Unlock()
}
