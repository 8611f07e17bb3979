package xcorrlog

import "errors"

var (
	// ErrNilSlot 创建 Emitter 时 slot 为 nil。
	ErrNilSlot = errors.New("xcorrlog: slot is nil")

	// ErrNilEmitter 创建 Handler 时 emitter 为 nil。
	ErrNilEmitter = errors.New("xcorrlog: emitter is nil")
)
