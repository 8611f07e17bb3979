package xrun

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// DefaultSignals 返回默认监听的信号：SIGHUP、SIGINT、SIGTERM、SIGQUIT。
// 每次返回新切片。
func DefaultSignals() []os.Signal {
	return []os.Signal{syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT}
}

// 设计决策: 测试通过 context 注入信号通道，避免向测试进程发送真实信号。
type testSigChanKey struct{}

func testSigChan(ctx context.Context) <-chan os.Signal {
	c, _ := ctx.Value(testSigChanKey{}).(<-chan os.Signal)
	return c
}

func withTestSigChan(ctx context.Context, c <-chan os.Signal) context.Context {
	return context.WithValue(ctx, testSigChanKey{}, c)
}

// waitSignal 等待信号，收到后以 *SignalError 取消 Group。
func (g *Group) waitSignal(ctx context.Context) error {
	signals := g.opts.signals
	if len(signals) == 0 {
		signals = DefaultSignals()
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, signals...)
	defer signal.Stop(sigCh)

	var sig os.Signal
	select {
	case sig = <-testSigChan(ctx):
	case sig = <-sigCh:
	case <-ctx.Done():
		return ctx.Err()
	}
	g.opts.logger.Info("received signal",
		slog.String("group", g.opts.name),
		slog.String("signal", sig.String()))
	g.cancel(&SignalError{Signal: sig})
	return nil
}
