package xrotate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

var _ io.WriteCloser = (Rotator)(nil)

// Rotator 轮转文件输出。
//
// Close 之后 Write 与 Rotate 返回 [ErrClosed]，重复 Close 同样返回 ErrClosed。
type Rotator interface {
	Write(p []byte) (n int, err error)
	Close() error
	// Rotate 立即轮转：当前文件改名为备份，之后的写入进入新文件
	Rotate() error
}

const (
	// DefaultMaxSizeMB 单个文件默认上限（MB）
	DefaultMaxSizeMB = 100

	// DefaultMaxBackups 默认保留的备份数
	DefaultMaxBackups = 7

	// DefaultMaxAgeDays 默认保留天数
	DefaultMaxAgeDays = 30

	maxSizeMB  = 10240
	maxBackups = 1024
	maxAgeDays = 3650
)

type config struct {
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
	compress   bool
	localTime  bool
}

// Option 轮转配置选项。
type Option func(*config)

// WithMaxSize 设置单个文件上限（MB）。
func WithMaxSize(mb int) Option {
	return func(c *config) { c.maxSizeMB = mb }
}

// WithMaxBackups 设置保留的备份数，0 表示只按天数清理。
func WithMaxBackups(n int) Option {
	return func(c *config) { c.maxBackups = n }
}

// WithMaxAge 设置备份保留天数，0 表示只按数量清理。
func WithMaxAge(days int) Option {
	return func(c *config) { c.maxAgeDays = days }
}

// WithCompress 设置是否 gzip 压缩备份。
func WithCompress(compress bool) Option {
	return func(c *config) { c.compress = compress }
}

// WithLocalTime 设置备份文件名使用本地时间（默认 UTC）。
func WithLocalTime(local bool) Option {
	return func(c *config) { c.localTime = local }
}

func (c *config) validate() error {
	if c.maxSizeMB <= 0 || c.maxSizeMB > maxSizeMB {
		return fmt.Errorf("%w: got %d, want 1~%d", ErrInvalidMaxSize, c.maxSizeMB, maxSizeMB)
	}
	if c.maxBackups < 0 || c.maxBackups > maxBackups {
		return fmt.Errorf("%w: got %d, want 0~%d", ErrInvalidMaxBackups, c.maxBackups, maxBackups)
	}
	if c.maxAgeDays < 0 || c.maxAgeDays > maxAgeDays {
		return fmt.Errorf("%w: got %d, want 0~%d", ErrInvalidMaxAge, c.maxAgeDays, maxAgeDays)
	}
	if c.maxBackups == 0 && c.maxAgeDays == 0 {
		return ErrNoCleanupPolicy
	}
	return nil
}

func buildConfig(opts []Option) (*config, error) {
	cfg := &config{
		maxSizeMB:  DefaultMaxSizeMB,
		maxBackups: DefaultMaxBackups,
		maxAgeDays: DefaultMaxAgeDays,
		compress:   true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// lumberjackRotator 基于 lumberjack 的 Rotator。
type lumberjackRotator struct {
	logger *lumberjack.Logger
	closed atomic.Bool
}

// NewLumberjack 创建写入 filename 的轮转文件，父目录不存在时以 0750 创建。
// 文件在首次写入时才打开。
func NewLumberjack(filename string, opts ...Option) (Rotator, error) {
	cfg, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}
	return newLumberjack(filename, cfg)
}

func newLumberjack(filename string, cfg *config) (*lumberjackRotator, error) {
	if filename == "" {
		return nil, ErrEmptyFilename
	}
	path, err := filepath.Abs(filepath.Clean(filename))
	if err != nil {
		return nil, fmt.Errorf("xrotate: resolve %s: %w", filename, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("xrotate: create dir for %s: %w", path, err)
	}
	return &lumberjackRotator{
		logger: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    cfg.maxSizeMB,
			MaxBackups: cfg.maxBackups,
			MaxAge:     cfg.maxAgeDays,
			Compress:   cfg.compress,
			LocalTime:  cfg.localTime,
		},
	}, nil
}

func (r *lumberjackRotator) Write(p []byte) (int, error) {
	if r.closed.Load() {
		return 0, ErrClosed
	}
	n, err := r.logger.Write(p)
	// Close 可能在写入途中完成，此时统一报告 ErrClosed
	if err != nil && r.closed.Load() {
		return n, ErrClosed
	}
	return n, err
}

func (r *lumberjackRotator) Close() error {
	if r.closed.Swap(true) {
		return ErrClosed
	}
	return r.logger.Close()
}

func (r *lumberjackRotator) Rotate() error {
	if r.closed.Load() {
		return ErrClosed
	}
	err := r.logger.Rotate()
	if err != nil && r.closed.Load() {
		return ErrClosed
	}
	return err
}
