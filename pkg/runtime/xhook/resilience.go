package xhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker/v2"
)

// errServerStatus 标记 5xx 响应：计入熔断失败并触发重试，
// 最终仍作为正常响应交给回调。
var errServerStatus = errors.New("xhook: server error status")

// outboundPolicy 出站调用的重试与熔断。在后台 goroutine 上调用，并发安全。
type outboundPolicy struct {
	opts *registryOptions

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[*Response]
}

func newOutboundPolicy(opts *registryOptions) *outboundPolicy {
	return &outboundPolicy{
		opts:     opts,
		breakers: make(map[string]*gobreaker.CircuitBreaker[*Response]),
	}
}

// breaker 返回 host 的熔断器，未开启熔断时返回 nil。
func (p *outboundPolicy) breaker(host string) *gobreaker.CircuitBreaker[*Response] {
	if p.opts.breakerFailures == 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if cb, ok := p.breakers[host]; ok {
		return cb
	}
	failures := p.opts.breakerFailures
	logger := p.opts.logger
	cb := gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:        host,
		MaxRequests: 1,
		Timeout:     p.opts.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("outbound circuit breaker state changed",
				slog.String("host", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
	p.breakers[host] = cb
	return cb
}

// do 按策略执行 send。5xx 响应在重试耗尽后以 nil 错误返回最后一次响应。
func (p *outboundPolicy) do(ctx context.Context, method, host string, send func() (*Response, error)) (*Response, error) {
	var last *Response
	attempt := func() (*Response, error) {
		resp, err := send()
		if err != nil {
			return nil, err
		}
		last = resp
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errServerStatus
		}
		return resp, nil
	}

	if cb := p.breaker(host); cb != nil {
		inner := attempt
		attempt = func() (*Response, error) {
			resp, err := cb.Execute(inner)
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return nil, retry.Unrecoverable(fmt.Errorf("%w: %s: %w", ErrCircuitOpen, host, err))
			}
			return resp, err
		}
	}

	var resp *Response
	var err error
	if p.opts.retryAttempts > 1 && idempotent(method) {
		resp, err = retry.NewWithData[*Response](
			retry.Context(ctx),
			retry.Attempts(p.opts.retryAttempts),
			retry.Delay(p.opts.retryDelay),
			retry.DelayType(retry.FixedDelay),
			retry.LastErrorOnly(true),
		).Do(attempt)
	} else {
		resp, err = attempt()
	}

	if errors.Is(err, errServerStatus) {
		return last, nil
	}
	return resp, err
}

// idempotent 报告 method 重试是否安全。
func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}
