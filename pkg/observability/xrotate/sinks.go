package xrotate

import (
	"errors"
	"io"
)

// Sinks 关联日志的一对输出。
//
// 设计决策: 错误文件未配置时 Err 与 Out 是同一个 Rotator，
// 这样 header 与错误行保持在同一文件内的相对顺序。
type Sinks struct {
	Out Rotator
	Err Rotator
}

// OpenSinks 创建普通输出 outFile 与错误输出 errFile，两者共享 opts。
// errFile 为空或与 outFile 相同时共用一个文件。
func OpenSinks(outFile, errFile string, opts ...Option) (*Sinks, error) {
	cfg, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}
	out, err := newLumberjack(outFile, cfg)
	if err != nil {
		return nil, err
	}
	if errFile == "" || errFile == outFile {
		return &Sinks{Out: out, Err: out}, nil
	}
	errOut, err := newLumberjack(errFile, cfg)
	if err != nil {
		return nil, errors.Join(err, out.Close())
	}
	return &Sinks{Out: out, Err: errOut}, nil
}

// Shared 报告两路输出是否共用一个文件。
func (s *Sinks) Shared() bool {
	return s.Out == s.Err
}

// Writers 以 io.Writer 形式返回两路输出。
func (s *Sinks) Writers() (out, errOut io.Writer) {
	return s.Out, s.Err
}

// Rotate 轮转两路输出。
func (s *Sinks) Rotate() error {
	if s.Shared() {
		return s.Out.Rotate()
	}
	return errors.Join(s.Out.Rotate(), s.Err.Rotate())
}

// Close 关闭两路输出，共用时只关闭一次。
func (s *Sinks) Close() error {
	if s.Shared() {
		return s.Out.Close()
	}
	return errors.Join(s.Out.Close(), s.Err.Close())
}

