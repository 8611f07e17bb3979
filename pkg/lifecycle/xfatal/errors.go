package xfatal

import "errors"

var (
	// ErrAlreadyInstalled 进程内已安装 Listener。
	ErrAlreadyInstalled = errors.New("xfatal: listener already installed")

	// ErrNilEmitter 安装时 emitter 为 nil。
	ErrNilEmitter = errors.New("xfatal: emitter is nil")
)
