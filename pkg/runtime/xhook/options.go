package xhook

import (
	"crypto/tls"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	// DefaultHTTPTimeout 出站调用默认超时。
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultWatchInterval WatchFile 默认轮询间隔。
	DefaultWatchInterval = 5007 * time.Millisecond
)

// Option 配置 Registry 的选项函数。
type Option func(*registryOptions)

type registryOptions struct {
	httpClient    *http.Client
	tlsConfig     *tls.Config
	httpTimeout   time.Duration
	watchInterval time.Duration
	logger        *slog.Logger
	meterProvider metric.MeterProvider

	retryAttempts   uint
	retryDelay      time.Duration
	breakerFailures uint32
	breakerTimeout  time.Duration
}

func defaultOptions() *registryOptions {
	return &registryOptions{
		httpTimeout:   DefaultHTTPTimeout,
		watchInterval: DefaultWatchInterval,
		logger:        slog.Default(),
		meterProvider: otel.GetMeterProvider(),
		retryAttempts: 1,
	}
}

// WithHTTPClient 设置明文出站调用使用的 http.Client。
// 默认使用带 DefaultHTTPTimeout 超时的新 Client。
func WithHTTPClient(c *http.Client) Option {
	return func(o *registryOptions) {
		o.httpClient = c
	}
}

// WithTLSConfig 设置 TLS 配置，同时用于 HTTPS 出站调用和 TLS 服务端。
func WithTLSConfig(cfg *tls.Config) Option {
	return func(o *registryOptions) {
		o.tlsConfig = cfg
	}
}

// WithHTTPTimeout 设置出站调用超时，d <= 0 时忽略。
func WithHTTPTimeout(d time.Duration) Option {
	return func(o *registryOptions) {
		if d > 0 {
			o.httpTimeout = d
		}
	}
}

// WithWatchInterval 设置 WatchFile 的默认轮询间隔，d <= 0 时忽略。
func WithWatchInterval(d time.Duration) Option {
	return func(o *registryOptions) {
		if d > 0 {
			o.watchInterval = d
		}
	}
}

// WithLogger 设置运行期事件的日志记录器，默认使用 slog.Default()。
func WithLogger(logger *slog.Logger) Option {
	return func(o *registryOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMeterProvider 设置分发计数与出站耗时指标的 MeterProvider，
// 默认使用 otel.GetMeterProvider()。
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *registryOptions) {
		if mp != nil {
			o.meterProvider = mp
		}
	}
}

// WithRetry 出站的幂等请求在传输错误或 5xx 响应时重试，attempts 为总尝试次数，
// 两次尝试之间至少间隔 delay。attempts <= 1 时不重试。
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(o *registryOptions) {
		o.retryAttempts = max(attempts, 1)
		o.retryDelay = max(delay, 0)
	}
}

// WithCircuitBreaker 为每个出站目标主机维护一个熔断器：连续 failures 次失败
// （传输错误或 5xx）后打开，timeout 后放行一个探测请求。failures 为 0 时关闭熔断。
func WithCircuitBreaker(failures uint32, timeout time.Duration) Option {
	return func(o *registryOptions) {
		o.breakerFailures = failures
		o.breakerTimeout = timeout
	}
}
