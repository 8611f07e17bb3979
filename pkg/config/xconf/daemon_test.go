package xconf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDaemonDefaults(t *testing.T) {
	d, err := LoadDaemon(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultDaemon(), d)
}

func TestLoadDaemonOverlay(t *testing.T) {
	path := writeFile(t, "xcorrd.yaml", `
listen: "127.0.0.1:9000"
workers: "8"
upstream: https://upstream.internal
tls:
  listen: ":9443"
  cert_file: /etc/xcorrd/tls.crt
  key_file: /etc/xcorrd/tls.key
log:
  file: /var/log/xcorrd.log
  max_backups: 3
outbound:
  timeout: 1500ms
  attempts: 3
`)
	cfg, err := New(path)
	require.NoError(t, err)

	d, err := LoadDaemon(cfg)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", d.Listen)
	assert.Equal(t, 8, d.Workers)
	assert.Equal(t, "https://upstream.internal", d.Upstream)
	assert.Equal(t, TLS{Listen: ":9443", CertFile: "/etc/xcorrd/tls.crt", KeyFile: "/etc/xcorrd/tls.key"}, d.TLS)
	assert.Equal(t, "/var/log/xcorrd.log", d.Log.File)
	assert.Equal(t, 3, d.Log.MaxBackups)
	// 未出现的键保留默认值
	assert.Equal(t, 100, d.Log.MaxSizeMB)
	assert.Equal(t, 30, d.Log.MaxAgeDays)
	assert.Equal(t, 1500*time.Millisecond, d.Outbound.Timeout)
	assert.Equal(t, uint(3), d.Outbound.Attempts)
	assert.Equal(t, 30*time.Second, d.Outbound.BreakerTimeout)
}

func TestLoadDaemonJSON(t *testing.T) {
	cfg, err := NewFromBytes([]byte(`{"listen":"","tls":{"listen":":8443","cert_file":"c","key_file":"k"}}`), FormatJSON)
	require.NoError(t, err)
	d, err := LoadDaemon(cfg)
	require.NoError(t, err)
	assert.Empty(t, d.Listen)
	assert.Equal(t, ":8443", d.TLS.Listen)
}

func TestDaemonValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *Daemon)
	}{
		{"没有任何监听", func(d *Daemon) { d.Listen = "" }},
		{"监听地址非法", func(d *Daemon) { d.Listen = "8080" }},
		{"TLS 地址非法", func(d *Daemon) { d.TLS.Listen = "nope" }},
		{"TLS 缺证书", func(d *Daemon) { d.TLS.Listen = ":8443" }},
		{"workers 为 0", func(d *Daemon) { d.Workers = 0 }},
		{"upstream scheme", func(d *Daemon) { d.Upstream = "ftp://x" }},
		{"upstream 无法解析", func(d *Daemon) { d.Upstream = "http://[::1" }},
		{"只有错误日志文件", func(d *Daemon) { d.Log.ErrorFile = "/tmp/e.log" }},
		{"出站超时为 0", func(d *Daemon) { d.Outbound.Timeout = 0 }},
		{"出站尝试次数为 0", func(d *Daemon) { d.Outbound.Attempts = 0 }},
		{"重试间隔为负", func(d *Daemon) { d.Outbound.RetryDelay = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DefaultDaemon()
			tt.mutate(d)
			assert.ErrorIs(t, d.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoadDaemonInvalid(t *testing.T) {
	cfg, err := NewFromBytes([]byte("workers: -1\n"), FormatYAML)
	require.NoError(t, err)
	_, err = LoadDaemon(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg, err = NewFromBytes([]byte("workers: [1, 2]\n"), FormatYAML)
	require.NoError(t, err)
	_, err = LoadDaemon(cfg)
	assert.ErrorIs(t, err, ErrUnmarshalFailed)
}

func TestDaemonMarshalReloads(t *testing.T) {
	d := DefaultDaemon()
	d.Upstream = "http://127.0.0.1:9000/status"
	d.Log.File = "/var/log/xcorrd.log"
	d.Outbound.RetryDelay = 250 * time.Millisecond

	for _, format := range []Format{FormatYAML, FormatJSON} {
		t.Run(string(format), func(t *testing.T) {
			data, err := d.Marshal(format)
			require.NoError(t, err)
			cfg, err := NewFromBytes(data, format)
			require.NoError(t, err)
			got, err := LoadDaemon(cfg)
			require.NoError(t, err)
			assert.Equal(t, d, got)
		})
	}

	_, err := d.Marshal("toml")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
