package xconf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Format 配置格式。
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Config 已加载的配置。
type Config interface {
	// Client 返回底层 koanf 实例。
	Client() *koanf.Koanf

	// Unmarshal 把 path 下的配置解到 target，path 为空时解整个配置。
	// target 中已有的值在配置缺少对应键时保持不变。
	Unmarshal(path string, target any) error

	// Path 返回配置文件路径，从字节创建时为空。
	Path() string

	Format() Format
}

type koanfConfig struct {
	k      *koanf.Koanf
	path   string
	format Format
	opts   *Options
}

// New 从文件加载配置，格式由扩展名决定。
func New(path string, opts ...Option) (Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	format, err := detectFormat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	c, err := load(data, format, opts)
	if err != nil {
		return nil, err
	}
	c.path = path
	return c, nil
}

// NewFromBytes 从内存数据加载配置。空数据得到空配置。
func NewFromBytes(data []byte, format Format, opts ...Option) (Config, error) {
	switch format {
	case FormatYAML, FormatJSON:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return load(data, format, opts)
}

func load(data []byte, format Format, opts []Option) (*koanfConfig, error) {
	options := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	k := koanf.New(options.Delim)
	if len(data) > 0 {
		parser := koanf.Parser(yaml.Parser())
		if format == FormatJSON {
			parser = json.Parser()
		}
		if err := k.Load(rawbytes.Provider(data), parser); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
		}
	}
	return &koanfConfig{k: k, format: format, opts: options}, nil
}

func (c *koanfConfig) Client() *koanf.Koanf {
	return c.k
}

func (c *koanfConfig) Unmarshal(path string, target any) error {
	if err := c.k.UnmarshalWithConf(path, target, koanf.UnmarshalConf{Tag: c.opts.Tag}); err != nil {
		return fmt.Errorf("%w: %w", ErrUnmarshalFailed, err)
	}
	return nil
}

func (c *koanfConfig) Path() string {
	return c.path
}

func (c *koanfConfig) Format() Format {
	return c.format
}

func detectFormat(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown extension %q", ErrUnsupportedFormat, ext)
	}
}
