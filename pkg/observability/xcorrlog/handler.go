package xcorrlog

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/omeyang/xcorr/pkg/context/xcorr"
)

// HandlerOptions Handler 配置。
type HandlerOptions struct {
	// Level 最低输出级别，nil 表示 slog.LevelInfo。
	Level slog.Leveler

	// UseSlot 为 true 时，ctx 中没有身份的记录回退读取 Emitter 的 slot。
	// slot 只能在循环 goroutine 上读取，开启后该 Handler 只应在循环上使用。
	UseSlot bool
}

// Handler 将 slog 记录渲染为一行文本，经 Emitter 输出。
//
// 行格式为 "<LEVEL> <msg> k=v ..."，前缀与 header 规则与 [Emitter.Log] 相同。
// 关联身份取自 ctx（[xcorr.FromContext]），因此在循环 goroutine 之外
// 也可以通过 context 传递身份；开启 [HandlerOptions.UseSlot] 后回退到 slot。
type Handler struct {
	e      *Emitter
	level  slog.Leveler
	slot   bool
	attrs  string // 预渲染的 WithAttrs 属性
	prefix string // 当前 group 前缀，如 "g1.g2."
}

var _ slog.Handler = (*Handler)(nil)

// NewHandler 创建 Handler。
func NewHandler(e *Emitter, opts *HandlerOptions) (*Handler, error) {
	if e == nil {
		return nil, ErrNilEmitter
	}
	h := &Handler{e: e, level: slog.LevelInfo}
	if opts != nil {
		if opts.Level != nil {
			h.level = opts.Level
		}
		h.slot = opts.UseSlot
	}
	return h, nil
}

// Enabled 报告 level 是否达到最低输出级别。
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle 渲染并输出一条记录。
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	var sb strings.Builder
	sb.WriteString(r.Level.String())
	sb.WriteByte(' ')
	sb.WriteString(r.Message)
	sb.WriteString(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&sb, h.prefix, a)
		return true
	})

	c := xcorr.FromContext(ctx)
	if c == nil && h.slot {
		c = h.e.slot.Get()
	}
	s := sinkOut
	if r.Level >= slog.LevelError {
		s = sinkErr
	}
	h.e.emit(c, s, sb.String(), false, true)
	return nil
}

// WithAttrs 返回带额外属性的新 Handler。
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var sb strings.Builder
	sb.WriteString(h.attrs)
	for _, a := range attrs {
		appendAttr(&sb, h.prefix, a)
	}
	h2 := *h
	h2.attrs = sb.String()
	return &h2
}

// WithGroup 返回带分组的新 Handler，后续属性 key 以 "name." 为前缀。
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

// appendAttr 以 " key=value" 形式追加属性，group 展开为点分 key。
func appendAttr(sb *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			appendAttr(sb, p, ga)
		}
		return
	}
	sb.WriteByte(' ')
	sb.WriteString(prefix)
	sb.WriteString(a.Key)
	sb.WriteByte('=')
	sb.WriteString(quoteIfNeeded(a.Value.String()))
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
