package xcorr

import "errors"

// contextKey 包私有的 context key 类型，避免与其他包冲突。
type contextKey string

const keyContext = contextKey("xcorr:context")

var (
	// ErrNilContext 表示传入的 context 为 nil。
	ErrNilContext = errors.New("xcorr: nil context")

	// ErrMissingContext 表示 context 中没有关联身份。
	ErrMissingContext = errors.New("xcorr: missing correlation context")
)
