package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/omeyang/xcorr/pkg/runtime/xhook"
)

const (
	defaultDelay = 10 * time.Millisecond
	maxDelay     = 5 * time.Second
)

// handler 返回挂在服务器上的处理链。请求身份由 Registry.Handler 分发时建立，
// 链上先记录访问日志再路由。
func (d *daemon) handler() xhook.HandlerFunc {
	return d.reg.Chain(d.route, d.accessLog)
}

func (d *daemon) route(req *http.Request, res *xhook.ResponseWriter) {
	switch req.URL.Path {
	case "/":
		d.handleHello(req, res)
	case "/upstream":
		d.handleUpstream(req, res)
	case "/healthz":
		reply(res, http.StatusOK, "ok\n")
	default:
		reply(res, http.StatusNotFound, http.StatusText(http.StatusNotFound)+"\n")
	}
}

// accessLog 在请求身份下记录一行访问日志。
func (d *daemon) accessLog(req *http.Request, _ *xhook.ResponseWriter, next func() error) error {
	start := time.Now()
	err := next()
	d.loopLog.Info("dispatched",
		slog.String("remote", req.RemoteAddr),
		slog.Duration("took", time.Since(start)))
	return err
}

// handleHello 经过一次 NextTick 和一次定时器后响应，两处日志都带请求前缀。
// 查询参数 delay 指定等待的毫秒数。
func (d *daemon) handleHello(req *http.Request, res *xhook.ResponseWriter) {
	delay, err := parseDelay(req.URL.Query().Get("delay"))
	if err != nil {
		reply(res, http.StatusBadRequest, err.Error()+"\n")
		return
	}
	id := d.reg.Current().ID()
	d.corr.Log("hello: request accepted")
	d.reg.NextTick(func() {
		d.corr.Log("hello: next tick")
	})
	d.reg.SetTimeout(func() {
		d.corr.Logf("hello: responding after %s", delay)
		reply(res, http.StatusOK, fmt.Sprintf("hello, request %d\n", id))
	}, delay)
}

// handleUpstream 对配置的上游发起出站 GET。出站调用获得新的身份，
// 其回调中的日志带出站身份的前缀。
func (d *daemon) handleUpstream(_ *http.Request, res *xhook.ResponseWriter) {
	if d.cfg.Upstream == "" {
		reply(res, http.StatusServiceUnavailable, "no upstream configured\n")
		return
	}
	u, err := url.Parse(d.cfg.Upstream)
	if err != nil {
		reply(res, http.StatusBadGateway, err.Error()+"\n")
		return
	}
	client := d.reg.HTTP()
	if u.Scheme == d.reg.HTTPS().Scheme() {
		client = d.reg.HTTPS()
	}

	d.corr.Logf("upstream: calling %s", d.cfg.Upstream)
	err = client.Get(d.cfg.Upstream, func(resp *xhook.Response, err error) {
		if err != nil {
			d.corr.Errorf("upstream: %v", err)
			reply(res, http.StatusBadGateway, "upstream failed\n")
			return
		}
		d.corr.Logf("upstream: status %d, %d bytes", resp.StatusCode, len(resp.Body))
		reply(res, http.StatusOK, fmt.Sprintf("upstream answered %d\n", resp.StatusCode))
	})
	if err != nil {
		d.corr.Errorf("upstream: %v", err)
		reply(res, http.StatusBadGateway, "upstream failed\n")
	}
}

func reply(res *xhook.ResponseWriter, status int, body string) {
	res.Header().Set("Content-Type", "text/plain; charset=utf-8")
	res.WriteHeader(status)
	_, _ = res.Write([]byte(body))
	res.End()
}

func parseDelay(s string) (time.Duration, error) {
	if s == "" {
		return defaultDelay, nil
	}
	ms, err := strconv.Atoi(s)
	if err != nil || ms < 0 {
		return 0, fmt.Errorf("invalid delay %q", s)
	}
	delay := time.Duration(ms) * time.Millisecond
	return min(delay, maxDelay), nil
}
