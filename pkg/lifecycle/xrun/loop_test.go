package xrun

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xcorr/pkg/runtime/xloop"
)

func TestLoopNil(t *testing.T) {
	assert.ErrorIs(t, Loop(nil, time.Second)(context.Background()), ErrNilLoop)
}

func TestLoopDrainsInFlightWork(t *testing.T) {
	l := xloop.New()
	ctx, cancel := context.WithCancel(context.Background())

	var fired atomic.Bool
	require.NoError(t, l.Post(func() {
		l.SetTimeout(func() { fired.Store(true) }, 20*time.Millisecond)
		cancel()
	}))

	start := time.Now()
	require.NoError(t, Loop(l, 5*time.Second)(ctx))
	assert.True(t, fired.Load(), "drain 期间定时器应执行")
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.False(t, l.Closed())
}

func TestLoopStopsAfterDrainTimeout(t *testing.T) {
	l := xloop.New()
	ctx, cancel := context.WithCancel(context.Background())

	var fired atomic.Bool
	require.NoError(t, l.Post(func() {
		l.SetTimeout(func() { fired.Store(true) }, time.Hour)
		cancel()
	}))

	require.NoError(t, Loop(l, 10*time.Millisecond)(ctx))
	assert.False(t, fired.Load())
	assert.True(t, l.Closed())
}

func TestLoopImmediateStop(t *testing.T) {
	l := xloop.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, Loop(l, 0)(ctx))
	assert.True(t, l.Closed())
}

func TestLoopExternalStop(t *testing.T) {
	l := xloop.New()
	require.NoError(t, l.Post(l.Stop))
	assert.NoError(t, Loop(l, time.Second)(context.Background()))
}

func TestRunLoopWithGroup(t *testing.T) {
	l := xloop.New()
	g, _ := NewGroup(context.Background())
	g.Go("loop", Loop(l, time.Second))

	ran := make(chan struct{})
	require.NoError(t, l.Post(func() { close(ran) }))
	<-ran
	g.Cancel(nil)
	assert.NoError(t, g.Wait())
}
