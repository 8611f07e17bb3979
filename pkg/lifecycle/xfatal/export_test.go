package xfatal

// Uninstall 移除已安装的 Listener（仅用于测试）。
func Uninstall() {
	installed.Store(nil)
}

// SetOSExit 替换默认终止函数，返回恢复函数（仅用于测试）。
func SetOSExit(fn func(int)) (restore func()) {
	prev := osExit
	osExit = fn
	return func() { osExit = prev }
}
