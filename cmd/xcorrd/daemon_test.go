package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xcorr/pkg/config/xconf"
	"github.com/omeyang/xcorr/pkg/context/xcorr"
)

// syncBuffer 可并发写入的缓冲区。
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := strings.TrimSuffix(b.buf.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// newTestDaemon 创建输出到内存的 daemon，心跳关闭。
func newTestDaemon(t *testing.T, cfg *xconf.Daemon) (*daemon, *syncBuffer) {
	t.Helper()
	xcorr.ResetIDs()
	if cfg == nil {
		cfg = xconf.DefaultDaemon()
	}
	out := &syncBuffer{}
	d, err := newDaemon(cfg, daemonOptions{stdout: out, stderr: out})
	require.NoError(t, err)
	t.Cleanup(d.close)
	return d, out
}

// startLoop 在后台运行 daemon 的循环直到测试结束。
func startLoop(t *testing.T, d *daemon) {
	t.Helper()
	release := d.loop.Hold()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.loop.Run(ctx) }()
	t.Cleanup(func() {
		release()
		cancel()
		<-done
	})
}

// serveHTTP 把 daemon 的处理链挂到 httptest 服务器上。
func serveHTTP(t *testing.T, d *daemon) *httptest.Server {
	t.Helper()
	startLoop(t, d)
	srv := httptest.NewServer(d.reg.Handler(d.handler()))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url) //nolint:noctx // 测试
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func prefix(id int) string {
	return fmt.Sprintf("[%d:%d] ", os.Getpid(), id)
}

// withPrefix 过滤出以 p 开头的行。
func withPrefix(lines []string, p string) []string {
	var out []string
	for _, l := range lines {
		if strings.HasPrefix(l, p) {
			out = append(out, l)
		}
	}
	return out
}

func TestHelloRoute(t *testing.T) {
	d, out := newTestDaemon(t, nil)
	srv := serveHTTP(t, d)

	status, body := get(t, srv.URL+"/?delay=0")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "hello, request 1\n", body)

	got := withPrefix(out.lines(), prefix(1))
	require.Len(t, got, 5)
	assert.Equal(t, prefix(1)+"Method: GET  - url: /?delay=0", got[0])
	assert.Equal(t, prefix(1)+"hello: request accepted", got[1])
	assert.True(t, strings.HasPrefix(got[2], prefix(1)+"INFO dispatched remote="), got[2])
	assert.Equal(t, prefix(1)+"hello: next tick", got[3])
	assert.Equal(t, prefix(1)+"hello: responding after 0s", got[4])
}

func TestHelloConcurrentRequestsKeepIdentity(t *testing.T) {
	d, out := newTestDaemon(t, nil)
	srv := serveHTTP(t, d)

	var wg sync.WaitGroup
	for _, delay := range []string{"50", "0"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Get(srv.URL + "/?delay=" + delay) //nolint:noctx // 测试
			if assert.NoError(t, err) {
				assert.Equal(t, http.StatusOK, resp.StatusCode)
				_ = resp.Body.Close()
			}
		}()
	}
	wg.Wait()

	// 每个请求各自一行 header，之后的输出都在自己的前缀下
	lines := out.lines()
	for id := 1; id <= 2; id++ {
		got := withPrefix(lines, prefix(id))
		require.Len(t, got, 5, "request %d", id)
		assert.True(t, strings.HasPrefix(got[0], prefix(id)+"Method: GET  - url: /?delay="))
		assert.True(t, strings.HasPrefix(got[4], prefix(id)+"hello: responding after"))
	}
}

func TestHelloBadDelay(t *testing.T) {
	d, _ := newTestDaemon(t, nil)
	srv := serveHTTP(t, d)

	status, body := get(t, srv.URL+"/?delay=soon")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "invalid delay")
}

func TestHealthAndNotFound(t *testing.T) {
	d, _ := newTestDaemon(t, nil)
	srv := serveHTTP(t, d)

	status, body := get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok\n", body)

	status, _ = get(t, srv.URL+"/missing")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestUpstreamMintsNewIdentity(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "fine")
	}))
	defer up.Close()

	cfg := xconf.DefaultDaemon()
	cfg.Upstream = up.URL + "/status"
	d, out := newTestDaemon(t, cfg)
	srv := serveHTTP(t, d)

	status, body := get(t, srv.URL+"/upstream")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "upstream answered 200\n", body)

	lines := out.lines()
	inbound := withPrefix(lines, prefix(1))
	require.GreaterOrEqual(t, len(inbound), 2)
	assert.Equal(t, prefix(1)+"Method: GET  - url: /upstream", inbound[0])
	assert.Equal(t, prefix(1)+"upstream: calling "+cfg.Upstream, inbound[1])

	assert.Equal(t, []string{
		prefix(2) + "Method: GET  - url: " + cfg.Upstream,
		prefix(2) + "upstream: status 200, 4 bytes",
	}, withPrefix(lines, prefix(2)))
}

func TestUpstreamFailure(t *testing.T) {
	up := httptest.NewServer(http.NotFoundHandler())
	cfg := xconf.DefaultDaemon()
	cfg.Upstream = up.URL
	up.Close()

	d, out := newTestDaemon(t, cfg)
	srv := serveHTTP(t, d)

	status, _ := get(t, srv.URL+"/upstream")
	assert.Equal(t, http.StatusBadGateway, status)
	errLines := withPrefix(out.lines(), prefix(2))
	require.Len(t, errLines, 2)
	assert.Contains(t, errLines[1], "upstream: ")
}

func TestUpstreamNotConfigured(t *testing.T) {
	d, _ := newTestDaemon(t, nil)
	srv := serveHTTP(t, d)

	status, _ := get(t, srv.URL+"/upstream")
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestPanicReachesHandler(t *testing.T) {
	d, _ := newTestDaemon(t, nil)
	got := make(chan any, 1)
	d.onPanic = func(v any) { got <- v }
	startLoop(t, d)

	require.NoError(t, d.loop.Post(func() { panic("boom") }))
	select {
	case v := <-got:
		assert.Equal(t, "boom", v)
	case <-time.After(5 * time.Second):
		t.Fatal("panic 未交给处理函数")
	}
}

func TestLogFileSinks(t *testing.T) {
	dir := t.TempDir()
	cfg := xconf.DefaultDaemon()
	cfg.Log.File = filepath.Join(dir, "xcorrd.log")
	cfg.Log.ErrorFile = filepath.Join(dir, "xcorrd.err.log")

	xcorr.ResetIDs()
	d, err := newDaemon(cfg, daemonOptions{stdout: io.Discard, stderr: io.Discard})
	require.NoError(t, err)
	require.NotNil(t, d.sinks)
	assert.False(t, d.sinks.Shared())

	ran := make(chan struct{})
	require.NoError(t, d.loop.Post(func() {
		d.reg.Slot().Run(xcorr.NewContext("GET", "/file"), func() {
			d.corr.Log("to file")
			d.corr.Error("to error file")
		})
		close(ran)
	}))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.loop.Run(ctx))
	<-ran
	d.close()

	data, err := os.ReadFile(cfg.Log.File)
	require.NoError(t, err)
	assert.Equal(t, prefix(1)+"Method: GET  - url: /file\n"+prefix(1)+"to file\n", string(data))

	data, err = os.ReadFile(cfg.Log.ErrorFile)
	require.NoError(t, err)
	assert.Equal(t, prefix(1)+"to error file\n", string(data))
}

func TestServeStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "xcorrd.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("listen: 127.0.0.1:0\n"), 0o600))

	cfg := xconf.DefaultDaemon()
	cfg.Listen = "127.0.0.1:0"
	out := &syncBuffer{}
	d, err := newDaemon(cfg, daemonOptions{
		configPath: cfgPath,
		heartbeat:  "@every 1s",
		stdout:     out,
		stderr:     out,
	})
	require.NoError(t, err)
	defer d.close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.serve(ctx) }()

	require.Eventually(t, func() bool {
		for _, l := range out.lines() {
			if strings.Contains(l, "server listening") {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
	cancel()

	// 心跳与文件监视在停止时注销，循环无需等满 drainTimeout
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(drainTimeout):
		t.Fatal("serve 未在取消后及时返回")
	}
}

func TestServeInvalidHeartbeat(t *testing.T) {
	cfg := xconf.DefaultDaemon()
	cfg.Listen = "127.0.0.1:0"
	out := &syncBuffer{}
	d, err := newDaemon(cfg, daemonOptions{heartbeat: "not a schedule", stdout: out, stderr: out})
	require.NoError(t, err)
	defer d.close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.serve(ctx) }()

	require.Eventually(t, func() bool {
		for _, l := range out.lines() {
			if strings.HasPrefix(l, "WARN heartbeat disabled") {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}
