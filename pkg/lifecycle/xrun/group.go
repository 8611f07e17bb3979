package xrun

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Group 并发运行多个服务，任一服务出错时取消其余服务。
//
// Go 与 Cancel 可并发调用，Wait 只应调用一次。
type Group struct {
	eg       *errgroup.Group
	ctx      context.Context
	causeCtx context.Context
	cancel   context.CancelCauseFunc
	opts     *groupOptions
}

// NewGroup 创建 Group，返回的 context 在任一服务出错或 Cancel 时取消。
// ctx 为 nil 时使用 context.Background()。
func NewGroup(ctx context.Context, opts ...Option) (*Group, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	options := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	causeCtx, cancel := context.WithCancelCause(ctx)
	eg, egCtx := errgroup.WithContext(causeCtx)
	return &Group{
		eg:       eg,
		ctx:      egCtx,
		causeCtx: causeCtx,
		cancel:   cancel,
		opts:     options,
	}, egCtx
}

// Go 以 name 启动一个服务。fn 应在 ctx 取消后尽快返回。
func (g *Group) Go(name string, fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		log := g.opts.logger.With(slog.String("group", g.opts.name), slog.String("service", name))
		log.Debug("service starting")
		err := fn(g.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("service exited with error", slog.Any("error", err))
		} else {
			log.Debug("service stopped")
		}
		return err
	})
}

// Wait 等待全部服务返回。
//
// 返回第一个非取消类错误；因 Cancel(cause) 或信号退出时返回 cause；
// 普通取消返回 nil。
func (g *Group) Wait() error {
	defer g.cancel(nil)

	err := g.eg.Wait()
	g.opts.logger.Debug("all services stopped", slog.String("group", g.opts.name))

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	// 取消来自服务内部而非 Group 时原样返回
	if err != nil && g.causeCtx.Err() == nil {
		return err
	}
	if g.causeCtx.Err() != nil {
		if cause := context.Cause(g.causeCtx); cause != nil && !errors.Is(cause, context.Canceled) {
			return cause
		}
	}
	return nil
}

// Cancel 取消全部服务，Wait 将返回 cause（nil 时返回 nil）。
// cause 不应包装 context.Canceled，否则会被当作普通取消。
func (g *Group) Cancel(cause error) {
	g.cancel(cause)
}

// Context 返回 Group 的 context。
func (g *Group) Context() context.Context {
	return g.ctx
}

// NamedService 带名称的服务函数。
type NamedService struct {
	Name string
	Run  func(ctx context.Context) error
}

// Service 构造 NamedService。
func Service(name string, run func(ctx context.Context) error) NamedService {
	return NamedService{Name: name, Run: run}
}

// Run 运行 services 直到全部返回，默认同时监听终止信号。
func Run(ctx context.Context, opts []Option, services ...NamedService) error {
	g, _ := NewGroup(ctx, opts...)
	if !g.opts.noSignalHandler {
		g.Go("signal", g.waitSignal)
	}
	for _, svc := range services {
		g.Go(svc.Name, svc.Run)
	}
	return g.Wait()
}
