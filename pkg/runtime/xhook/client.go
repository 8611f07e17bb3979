package xhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/omeyang/xcorr/pkg/context/xcorr"
)

// RequestOptions 出站请求参数。Host 可带端口，Path 可带查询串。
type RequestOptions struct {
	Method string // 默认 GET
	Host   string
	Path   string // 默认 "/"
	Header http.Header
	Body   []byte
}

// Response 出站请求的结果。Body 已在后台完整读取。
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client 固定 scheme 的出站 HTTP 入口。
//
// 出站调用开启新的逻辑操作：完成回调运行在新建的 Context 下，
// 而不是发起调用时的活跃身份。
type Client struct {
	r      *Registry
	scheme string
	hc     *http.Client
}

// Scheme 返回 "http" 或 "https"。
func (c *Client) Scheme() string {
	return c.scheme
}

// Request 发起请求，cb 运行在 NewContext(method, path) 下。
// cb 为 nil 时请求照常发出，不做任何身份包装。
func (c *Client) Request(opts RequestOptions, cb func(*Response, error)) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	path := opts.Path
	if path == "" {
		path = "/"
	}
	rawURL := c.scheme + "://" + opts.Host + path
	c.do(xcorr.NewContext(method, path), method, rawURL, opts.Header, opts.Body, cb)
}

// Get 发起 GET 请求，cb 运行在 NewContext("GET", rawURL) 下。
// rawURL 无法解析或 scheme 与 Client 不一致时同步返回错误，不发起请求。
func (c *Client) Get(rawURL string, cb func(*Response, error)) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("xhook: parse url: %w", err)
	}
	if u.Scheme != c.scheme {
		return fmt.Errorf("%w: %q on %s client", ErrSchemeMismatch, u.Scheme, c.scheme)
	}
	c.do(xcorr.NewContext(http.MethodGet, rawURL), http.MethodGet, rawURL, nil, nil, cb)
	return nil
}

func (c *Client) do(minted *xcorr.Context, method, rawURL string, header http.Header, body []byte, cb func(*Response, error)) {
	wrapped := xcorr.Wrap2(&c.r.slot, minted, cb)
	c.r.loop.Go(func() func() {
		res, err := c.roundTrip(minted, method, rawURL, header, body)
		if wrapped == nil {
			return nil
		}
		return func() { wrapped(res, err) }
	})
}

// roundTrip 在后台 goroutine 上按重试与熔断策略执行请求。
// 新建的 Context 同时放入请求的 context.Context，供自定义 Transport 读取。
func (c *Client) roundTrip(minted *xcorr.Context, method, rawURL string, header http.Header, body []byte) (*Response, error) {
	ctx, err := xcorr.WithContext(context.Background(), minted)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("xhook: parse url: %w", err)
	}

	start := time.Now()
	resp, err := c.r.policy.do(ctx, method, u.Host, func() (*Response, error) {
		return c.send(ctx, method, rawURL, header, body)
	})
	c.r.metrics.recordOutbound(ctx, c.scheme, method, start, resp, err)
	return resp, err
}

// send 发出一次请求并读完响应体。
func (c *Client) send(ctx context.Context, method, rawURL string, header http.Header, body []byte) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("xhook: build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("xhook: read response body: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}
