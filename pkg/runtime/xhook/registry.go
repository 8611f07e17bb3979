package xhook

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/omeyang/xcorr/pkg/context/xcorr"
	"github.com/omeyang/xcorr/pkg/runtime/xloop"
)

// Registry 一个事件循环的拦截入口集合，持有该循环的 [xcorr.Slot]。
type Registry struct {
	loop *xloop.Loop
	slot xcorr.Slot
	opts *registryOptions

	http    *Client
	https   *Client
	fs      *FS
	policy  *outboundPolicy
	metrics *instruments
}

// New 为 loop 创建 Registry。
func New(loop *xloop.Loop, opts ...Option) (*Registry, error) {
	if loop == nil {
		return nil, ErrNilLoop
	}
	options := defaultOptions()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(options)
	}

	metrics, err := newInstruments(options.meterProvider)
	if err != nil {
		return nil, err
	}
	r := &Registry{loop: loop, opts: options, policy: newOutboundPolicy(options), metrics: metrics}

	plain := options.httpClient
	if plain == nil {
		plain = &http.Client{Timeout: options.httpTimeout}
	}
	r.http = &Client{r: r, scheme: "http", hc: plain}

	tr := http.DefaultTransport.(*http.Transport).Clone()
	if options.tlsConfig != nil {
		tr.TLSClientConfig = options.tlsConfig.Clone()
	}
	r.https = &Client{r: r, scheme: "https", hc: &http.Client{Transport: tr, Timeout: options.httpTimeout}}

	r.fs = &FS{r: r, watchers: make(map[string][]*FileWatcher)}
	return r, nil
}

// Slot 返回该循环的关联寄存器。
func (r *Registry) Slot() *xcorr.Slot {
	return &r.slot
}

// Loop 返回底层事件循环。
func (r *Registry) Loop() *xloop.Loop {
	return r.loop
}

// Current 返回当前活跃的关联身份。
func (r *Registry) Current() *xcorr.Context {
	return r.slot.Get()
}

// HTTP 返回明文出站 Client。
func (r *Registry) HTTP() *Client {
	return r.http
}

// HTTPS 返回 TLS 出站 Client。
func (r *Registry) HTTPS() *Client {
	return r.https
}

// FS 返回文件系统操作入口。
func (r *Registry) FS() *FS {
	return r.fs
}

// CloseIdleConnections 关闭两个出站 Client 的空闲连接。
func (r *Registry) CloseIdleConnections() {
	r.http.hc.CloseIdleConnections()
	r.https.hc.CloseIdleConnections()
}

// tlsConfig 返回服务端使用的 TLS 配置副本，未配置时返回 nil。
func (r *Registry) tlsConfig() *tls.Config {
	if r.opts.tlsConfig == nil {
		return nil
	}
	return r.opts.tlsConfig.Clone()
}

// =============================================================================
// Propagate：延迟回调与定时器
// =============================================================================

// NextTick 在当前 continuation 结束后执行 cb，cb 运行在调用时刻的活跃身份下。
func (r *Registry) NextTick(cb func()) {
	r.loop.NextTick(r.slot.Bind(cb))
}

// SetTimeout 在 d 之后执行 cb，cb 运行在调用时刻的活跃身份下。
func (r *Registry) SetTimeout(cb func(), d time.Duration) *xloop.Timer {
	return r.loop.SetTimeout(r.slot.Bind(cb), d)
}

// SetInterval 每隔 d 执行 cb，每次都运行在调用时刻的活跃身份下。
func (r *Registry) SetInterval(cb func(), d time.Duration) *xloop.Timer {
	return r.loop.SetInterval(r.slot.Bind(cb), d)
}

// ClearTimer 取消 SetTimeout / SetInterval 创建的定时器。
func (r *Registry) ClearTimer(t *xloop.Timer) {
	r.loop.ClearTimer(t)
}

// =============================================================================
// Propagate：通用阻塞操作
// =============================================================================

// Do 在后台执行 work，完成后在调用时刻的活跃身份下执行 cb。
//
// 用于把不在 FS / Client 中的阻塞操作（数据库调用、外部命令等）接入关联传播。
// cb 为 nil 时 work 照常执行。
func Do[T any](r *Registry, work func() (T, error), cb func(T, error)) {
	wrapped := xcorr.Wrap2(&r.slot, r.slot.Get(), cb)
	r.loop.Go(func() func() {
		v, err := work()
		if wrapped == nil {
			return nil
		}
		return func() { wrapped(v, err) }
	})
}

// doErr 只返回 error 的 Do。
func doErr(r *Registry, work func() error, cb func(error)) {
	wrapped := xcorr.Wrap1(&r.slot, r.slot.Get(), cb)
	r.loop.Go(func() func() {
		err := work()
		if wrapped == nil {
			return nil
		}
		return func() { wrapped(err) }
	})
}
