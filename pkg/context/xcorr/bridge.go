package xcorr

import (
	"context"
	"log/slog"
	"os"
)

// 日志属性 Key 常量
const (
	KeyPID       = "pid"
	KeyRequestID = "request_id"
	KeyMethod    = "method"
	KeyURL       = "url"

	// attrCount 属性数量（用于预分配）
	attrCount = 4
)

// WithContext 将关联身份注入 context。
//
// 如果 ctx 为 nil，返回 ErrNilContext。c 为 nil 时原样写入，
// 可用于在子 context 中显式清除身份。
func WithContext(ctx context.Context, c *Context) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	return context.WithValue(ctx, keyContext, c), nil
}

// FromContext 从 context 提取关联身份，不存在返回 nil。
func FromContext(ctx context.Context) *Context {
	if ctx == nil {
		return nil
	}
	if c, ok := ctx.Value(keyContext).(*Context); ok {
		return c
	}
	return nil
}

// Require 从 context 获取关联身份，不存在则返回错误。
func Require(ctx context.Context) (*Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	c := FromContext(ctx)
	if c == nil {
		return nil, ErrMissingContext
	}
	return c, nil
}

// AppendAttrs 将 c 的字段以 slog.Attr 形式追加到 attrs。
//
// 会为 c 分配 id（与日志输出行为一致）。空字段不输出。
func AppendAttrs(attrs []slog.Attr, c *Context) []slog.Attr {
	if c == nil {
		return attrs
	}
	attrs = append(attrs,
		slog.Int(KeyPID, os.Getpid()),
		slog.Uint64(KeyRequestID, uint64(c.ID())),
	)
	if c.method != "" {
		attrs = append(attrs, slog.String(KeyMethod, c.method))
	}
	if c.target != "" {
		attrs = append(attrs, slog.String(KeyURL, c.target))
	}
	return attrs
}

// Attrs 返回 c 的 slog 属性，c 为 nil 时返回 nil。
func Attrs(c *Context) []slog.Attr {
	if c == nil {
		return nil
	}
	return AppendAttrs(make([]slog.Attr, 0, attrCount), c)
}
