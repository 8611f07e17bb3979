package xconf

import (
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
)

// Daemon xcorrd 的全部配置。
type Daemon struct {
	// Listen 明文服务监听地址，为空时不启动明文服务。
	Listen string `koanf:"listen"`

	TLS TLS `koanf:"tls"`
	Log Log `koanf:"log"`

	// Workers 后台阻塞操作的并发上限。
	Workers int `koanf:"workers"`

	// Upstream 演示处理函数发起出站调用的目标，为空时不发起。
	Upstream string `koanf:"upstream"`

	Outbound Outbound `koanf:"outbound"`
}

// Outbound 出站调用的超时、重试与熔断。时长支持 "1500ms"、"30s" 形式。
type Outbound struct {
	Timeout time.Duration `koanf:"timeout"`
	// Attempts 幂等请求的总尝试次数，1 表示不重试。
	Attempts   uint          `koanf:"attempts"`
	RetryDelay time.Duration `koanf:"retry_delay"`
	// BreakerFailures 连续失败多少次后熔断，0 表示关闭熔断。
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
}

// TLS 安全服务配置。Listen 为空时不启动。
type TLS struct {
	Listen   string `koanf:"listen"`
	CertFile string `koanf:"cert_file"`
	KeyFile  string `koanf:"key_file"`
}

// Log 关联日志输出配置。File 为空时输出到标准输出与标准错误。
type Log struct {
	File       string `koanf:"file"`
	ErrorFile  string `koanf:"error_file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
}

// DefaultDaemon 返回默认配置。
func DefaultDaemon() *Daemon {
	return &Daemon{
		Listen:  ":8080",
		Workers: 4,
		Log: Log{
			MaxSizeMB:  100,
			MaxBackups: 7,
			MaxAgeDays: 30,
		},
		Outbound: Outbound{
			Timeout:         30 * time.Second,
			Attempts:        1,
			RetryDelay:      100 * time.Millisecond,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
	}
}

// LoadDaemon 在 DefaultDaemon 之上叠加 cfg 中出现的键并校验。
// cfg 为 nil 时返回默认配置。
func LoadDaemon(cfg Config) (*Daemon, error) {
	d := DefaultDaemon()
	if cfg != nil {
		if err := cfg.Unmarshal("", d); err != nil {
			return nil, err
		}
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate 校验配置。
func (d *Daemon) Validate() error {
	if d.Listen == "" && d.TLS.Listen == "" {
		return fmt.Errorf("%w: neither listen nor tls.listen is set", ErrInvalidConfig)
	}
	if d.Listen != "" {
		if _, _, err := net.SplitHostPort(d.Listen); err != nil {
			return fmt.Errorf("%w: listen %q: %w", ErrInvalidConfig, d.Listen, err)
		}
	}
	if d.TLS.Listen != "" {
		if _, _, err := net.SplitHostPort(d.TLS.Listen); err != nil {
			return fmt.Errorf("%w: tls.listen %q: %w", ErrInvalidConfig, d.TLS.Listen, err)
		}
		if d.TLS.CertFile == "" || d.TLS.KeyFile == "" {
			return fmt.Errorf("%w: tls.listen requires tls.cert_file and tls.key_file", ErrInvalidConfig)
		}
	}
	if d.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, d.Workers)
	}
	if d.Upstream != "" {
		u, err := url.Parse(d.Upstream)
		if err != nil {
			return fmt.Errorf("%w: upstream: %w", ErrInvalidConfig, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("%w: upstream scheme must be http or https, got %q", ErrInvalidConfig, u.Scheme)
		}
	}
	if d.Outbound.Timeout <= 0 {
		return fmt.Errorf("%w: outbound.timeout must be positive, got %s", ErrInvalidConfig, d.Outbound.Timeout)
	}
	if d.Outbound.Attempts == 0 {
		return fmt.Errorf("%w: outbound.attempts must be at least 1", ErrInvalidConfig)
	}
	if d.Outbound.RetryDelay < 0 || d.Outbound.BreakerTimeout < 0 {
		return fmt.Errorf("%w: outbound delays must not be negative", ErrInvalidConfig)
	}
	if d.Log.ErrorFile != "" && d.Log.File == "" {
		return fmt.Errorf("%w: log.error_file requires log.file", ErrInvalidConfig)
	}
	return nil
}

// Marshal 以 format 输出配置，键名与配置文件一致。
func (d *Daemon) Marshal(format Format) ([]byte, error) {
	m := map[string]any{
		"listen":   d.Listen,
		"workers":  d.Workers,
		"upstream": d.Upstream,
		"tls": map[string]any{
			"listen":    d.TLS.Listen,
			"cert_file": d.TLS.CertFile,
			"key_file":  d.TLS.KeyFile,
		},
		"log": map[string]any{
			"file":         d.Log.File,
			"error_file":   d.Log.ErrorFile,
			"max_size_mb":  d.Log.MaxSizeMB,
			"max_backups":  d.Log.MaxBackups,
			"max_age_days": d.Log.MaxAgeDays,
		},
		"outbound": map[string]any{
			"timeout":          d.Outbound.Timeout.String(),
			"attempts":         d.Outbound.Attempts,
			"retry_delay":      d.Outbound.RetryDelay.String(),
			"breaker_failures": d.Outbound.BreakerFailures,
			"breaker_timeout":  d.Outbound.BreakerTimeout.String(),
		},
	}
	switch format {
	case FormatYAML:
		return yaml.Parser().Marshal(m)
	case FormatJSON:
		return json.Parser().Marshal(m)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
