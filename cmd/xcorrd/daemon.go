package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"time"

	"github.com/omeyang/xcorr/pkg/config/xconf"
	"github.com/omeyang/xcorr/pkg/context/xcorr"
	"github.com/omeyang/xcorr/pkg/lifecycle/xrun"
	"github.com/omeyang/xcorr/pkg/observability/xcorrlog"
	"github.com/omeyang/xcorr/pkg/observability/xrotate"
	"github.com/omeyang/xcorr/pkg/runtime/xhook"
	"github.com/omeyang/xcorr/pkg/runtime/xloop"
)

// drainTimeout 收到终止信号后等待在途请求与定时器结束的时长。
const drainTimeout = 5 * time.Second

type daemonOptions struct {
	configPath string
	heartbeat  string
	stdout     io.Writer
	stderr     io.Writer
}

// daemon 把事件循环、关联日志和 HTTP 服务组装在一起。
type daemon struct {
	cfg  *xconf.Daemon
	opts daemonOptions

	sinks *xrotate.Sinks
	loop  *xloop.Loop
	reg   *xhook.Registry

	// corr 读取循环 slot 的关联日志，只能在循环 goroutine 上使用。
	corr *xcorrlog.Emitter
	// loopLog 基于 corr 的结构化日志，同样只能在循环上使用。
	loopLog *slog.Logger
	// log 运行期日志，身份只取自 context，可在任意 goroutine 使用。
	log *slog.Logger

	// onPanic 在 serve 之前设置，之后只在循环 goroutine 上读取。
	onPanic func(any)

	heartbeat *xhook.CronTimer
}

func newDaemon(cfg *xconf.Daemon, opts daemonOptions) (*daemon, error) {
	d := &daemon{cfg: cfg, opts: opts}

	out, errOut := opts.stdout, opts.stderr
	if cfg.Log.File != "" {
		sinks, err := xrotate.OpenSinks(cfg.Log.File, cfg.Log.ErrorFile,
			xrotate.WithMaxSize(cfg.Log.MaxSizeMB),
			xrotate.WithMaxBackups(cfg.Log.MaxBackups),
			xrotate.WithMaxAge(cfg.Log.MaxAgeDays),
		)
		if err != nil {
			return nil, err
		}
		d.sinks = sinks
		out, errOut = sinks.Writers()
	}

	// 运行期日志使用独立且永不设置的 slot，只有 context 携带身份时才带前缀
	ops, err := xcorrlog.New(new(xcorr.Slot), xcorrlog.WithOutput(out), xcorrlog.WithErrorOutput(errOut))
	if err != nil {
		return nil, d.closeOnError(err)
	}
	opsHandler, err := xcorrlog.NewHandler(ops, nil)
	if err != nil {
		return nil, d.closeOnError(err)
	}
	d.log = slog.New(opsHandler)

	d.loop = xloop.New(
		xloop.WithWorkers(cfg.Workers),
		xloop.WithLogger(d.log),
		xloop.WithPanicHandler(d.handlePanic),
	)
	d.reg, err = xhook.New(d.loop,
		xhook.WithLogger(d.log),
		xhook.WithHTTPTimeout(cfg.Outbound.Timeout),
		xhook.WithRetry(cfg.Outbound.Attempts, cfg.Outbound.RetryDelay),
		xhook.WithCircuitBreaker(cfg.Outbound.BreakerFailures, cfg.Outbound.BreakerTimeout),
	)
	if err != nil {
		return nil, d.closeOnError(err)
	}

	d.corr, err = xcorrlog.New(d.reg.Slot(), xcorrlog.WithOutput(out), xcorrlog.WithErrorOutput(errOut))
	if err != nil {
		return nil, d.closeOnError(err)
	}
	loopHandler, err := xcorrlog.NewHandler(d.corr, &xcorrlog.HandlerOptions{UseSlot: true})
	if err != nil {
		return nil, d.closeOnError(err)
	}
	d.loopLog = slog.New(loopHandler)
	return d, nil
}

func (d *daemon) closeOnError(err error) error {
	d.close()
	return err
}

// handlePanic 循环上 continuation panic 时调用。
func (d *daemon) handlePanic(v any) {
	if d.onPanic == nil {
		panic(v)
	}
	d.onPanic(v)
}

// serve 运行循环与服务，直到 ctx 结束、收到终止信号或某个服务失败。
func (d *daemon) serve(ctx context.Context) error {
	if err := d.loop.Post(d.start); err != nil {
		return err
	}

	services := []xrun.NamedService{
		xrun.Service("loop", xrun.Loop(d.loop, drainTimeout)),
		xrun.Service("housekeeping", d.housekeeping),
	}
	h := d.handler()
	if d.cfg.Listen != "" {
		srv := d.reg.NewServer(d.cfg.Listen, h)
		services = append(services, xrun.Service("http", srv.ListenAndServe))
	}
	if d.cfg.TLS.Listen != "" {
		srv := d.reg.NewServer(d.cfg.TLS.Listen, h)
		services = append(services, xrun.Service("https", func(ctx context.Context) error {
			return srv.ListenAndServeTLS(ctx, d.cfg.TLS.CertFile, d.cfg.TLS.KeyFile)
		}))
	}

	return xrun.Run(ctx, []xrun.Option{xrun.WithLogger(d.log), xrun.WithName("xcorrd")}, services...)
}

// start 在循环上注册常驻任务：心跳与配置文件变更提示。
func (d *daemon) start() {
	if d.opts.heartbeat != "" {
		ct, err := d.reg.SetCron(d.opts.heartbeat, func() {
			d.loopLog.Info("heartbeat", slog.Uint64("log_write_errors", d.corr.Errors()))
		})
		if err != nil {
			d.log.Warn("heartbeat disabled", slog.Any("error", err))
		} else {
			d.heartbeat = ct
		}
	}
	if d.opts.configPath != "" {
		d.reg.FS().WatchFile(d.opts.configPath, 0, func(curr, _ fs.FileInfo) {
			if curr == nil {
				d.loopLog.Warn("config file removed", slog.String("path", d.opts.configPath))
				return
			}
			d.loopLog.Info("config file changed, restart to apply", slog.String("path", d.opts.configPath))
		})
	}
}

// housekeeping 在停止时注销常驻任务，让循环可以在 drain 期间自然退出。
func (d *daemon) housekeeping(ctx context.Context) error {
	<-ctx.Done()
	err := d.loop.Post(func() {
		d.heartbeat.Stop()
		if d.opts.configPath != "" {
			d.reg.FS().UnwatchFile(d.opts.configPath)
		}
	})
	if errors.Is(err, xloop.ErrClosed) {
		return nil
	}
	return err
}

// close 释放出站连接与日志文件。
func (d *daemon) close() {
	if d.reg != nil {
		d.reg.CloseIdleConnections()
	}
	if d.sinks != nil {
		// sink 已关闭，错误只能写到标准错误
		if err := d.sinks.Close(); err != nil {
			fmt.Fprintf(d.opts.stderr, "close log sinks: %v\n", err)
		}
	}
}
