package xhook

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/omeyang/xcorr/pkg/context/xcorr"
)

// DefaultShutdownTimeout Server 随 ctx 结束时等待在途请求的时长。
const DefaultShutdownTimeout = 10 * time.Second

// =============================================================================
// ResponseWriter
// =============================================================================

// ResponseWriter 在循环 goroutine 上累积的响应。
//
// 处理函数可以在任意后续 continuation 中写入，最终调用 End 结束响应，
// 之后 net/http 的服务 goroutine 才会把结果写回客户端。
// 所有方法只能在循环 goroutine 上调用。
type ResponseWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
	ended  bool
	done   chan struct{}
}

// NewResponseWriter 创建空响应，状态码默认 200。
func NewResponseWriter() *ResponseWriter {
	return &ResponseWriter{
		header: make(http.Header),
		status: http.StatusOK,
		done:   make(chan struct{}),
	}
}

// Header 返回响应头。End 之后不得再修改。
func (w *ResponseWriter) Header() http.Header {
	return w.header
}

// WriteHeader 设置状态码，End 之后忽略。
func (w *ResponseWriter) WriteHeader(code int) {
	if w.ended {
		return
	}
	w.status = code
}

// Write 追加响应体。End 之后返回 ErrResponseEnded。
func (w *ResponseWriter) Write(p []byte) (int, error) {
	if w.ended {
		return 0, ErrResponseEnded
	}
	return w.body.Write(p)
}

// End 结束响应。重复调用无副作用。
func (w *ResponseWriter) End() {
	if w.ended {
		return
	}
	w.ended = true
	close(w.done)
}

// Ended 报告 End 是否已调用。
func (w *ResponseWriter) Ended() bool {
	return w.ended
}

// Status 返回当前状态码。
func (w *ResponseWriter) Status() int {
	return w.status
}

// Body 返回当前响应体。
func (w *ResponseWriter) Body() []byte {
	return w.body.Bytes()
}

// Done 返回 End 时关闭的 channel。
func (w *ResponseWriter) Done() <-chan struct{} {
	return w.done
}

// flush 把结果写到 net/http。调用方必须先观察到 Done 关闭。
func (w *ResponseWriter) flush(hw http.ResponseWriter) {
	dst := hw.Header()
	for k, vs := range w.header {
		dst[k] = append([]string(nil), vs...)
	}
	hw.WriteHeader(w.status)
	_, _ = hw.Write(w.body.Bytes())
}

// =============================================================================
// 入站分发
// =============================================================================

// HandlerFunc 运行在循环 goroutine 上的请求处理函数。
type HandlerFunc func(req *http.Request, res *ResponseWriter)

// Dispatch 以 NewContext(req.Method, req.URL.RequestURI()) 同步执行 h，
// 返回前恢复原有的活跃身份（包括 h panic 的情况）。
func (r *Registry) Dispatch(req *http.Request, res *ResponseWriter, h HandlerFunc) {
	if h == nil {
		return
	}
	r.slot.Run(r.requestContext(req), func() { h(req, res) })
}

// requestContext 为入站请求新建 Context 并计数。
func (r *Registry) requestContext(req *http.Request) *xcorr.Context {
	r.metrics.recordDispatch(req.Method)
	return xcorr.NewContext(req.Method, req.URL.RequestURI())
}

// Handler 把 h 桥接为 http.Handler。
//
// 请求被投递到循环上并在自己的 Context 下分发，服务 goroutine 等待
// res.End、客户端断开或循环停止。循环已停止时返回 503。
// 轮到分发时客户端已断开的请求不再分发：此时 ServeHTTP 已返回，req 不能再使用。
// h panic 时先以 500 结束响应，再把 panic 交给循环的 panic handler。
func (r *Registry) Handler(h HandlerFunc) http.Handler {
	return http.HandlerFunc(func(hw http.ResponseWriter, req *http.Request) {
		res := NewResponseWriter()
		err := r.loop.Post(func() {
			if req.Context().Err() != nil {
				return
			}
			defer func() {
				if p := recover(); p != nil {
					if !res.ended {
						res.status = http.StatusInternalServerError
						res.body.Reset()
						res.End()
					}
					panic(p)
				}
			}()
			r.Dispatch(req, res, h)
		})
		if err != nil {
			http.Error(hw, ErrLoopClosed.Error(), http.StatusServiceUnavailable)
			return
		}

		select {
		case <-res.done:
			res.flush(hw)
		case <-req.Context().Done():
		case <-r.loop.Done():
			http.Error(hw, ErrLoopClosed.Error(), http.StatusServiceUnavailable)
		}
	})
}

// =============================================================================
// 中间件
// =============================================================================

// Middleware 分发钩子：在 next 执行期间把活跃身份设为请求的 Context。
type Middleware func(req *http.Request, res *ResponseWriter, next func() error) error

// Middleware 返回分发钩子。它为请求新建 Context，在其下执行 next，
// 之后恢复原有身份并原样返回 next 的错误。
func (r *Registry) Middleware() Middleware {
	return func(req *http.Request, res *ResponseWriter, next func() error) error {
		if next == nil {
			return nil
		}
		var err error
		r.slot.Run(r.requestContext(req), func() { err = next() })
		return err
	}
}

// Chain 把中间件按顺序套在 h 外层，mws[0] 最先执行。
// 链路返回错误且响应尚未结束时，以 500 结束响应。
func (r *Registry) Chain(h HandlerFunc, mws ...Middleware) HandlerFunc {
	return func(req *http.Request, res *ResponseWriter) {
		next := func() error {
			if h != nil {
				h(req, res)
			}
			return nil
		}
		for i := len(mws) - 1; i >= 0; i-- {
			mw, inner := mws[i], next
			if mw == nil {
				continue
			}
			next = func() error { return mw(req, res, inner) }
		}

		if err := next(); err != nil {
			r.opts.logger.Warn("handler chain failed",
				slog.String("method", req.Method),
				slog.String("url", req.URL.RequestURI()),
				slog.Any("error", err))
			if !res.Ended() {
				res.WriteHeader(http.StatusInternalServerError)
				_, _ = res.Write([]byte(http.StatusText(http.StatusInternalServerError)))
				res.End()
			}
		}
	}
}

// =============================================================================
// Server
// =============================================================================

// Server 把 HandlerFunc 挂到 net/http 服务器上的明文或 TLS 服务。
// 服务期间事件循环保持运行。
type Server struct {
	r   *Registry
	srv *http.Server
}

// NewServer 创建监听 addr 的服务器。TLS 配置取自 WithTLSConfig。
func (r *Registry) NewServer(addr string, h HandlerFunc) *Server {
	return &Server{
		r: r,
		srv: &http.Server{
			Addr:              addr,
			Handler:           r.Handler(h),
			TLSConfig:         r.tlsConfig(),
			ReadHeaderTimeout: 10 * time.Second,
			ErrorLog:          slog.NewLogLogger(r.opts.logger.Handler(), slog.LevelWarn),
		},
	}
}

// Addr 返回配置的监听地址。
func (s *Server) Addr() string {
	return s.srv.Addr
}

// ListenAndServe 启动明文服务，直到 ctx 结束或服务器出错。
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// ListenAndServeTLS 启动 TLS 服务。certFile / keyFile 为空时使用 TLS 配置中的证书。
func (s *Server) ListenAndServeTLS(ctx context.Context, certFile, keyFile string) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.ServeTLS(ctx, ln, certFile, keyFile)
}

// Serve 在 ln 上提供明文服务。
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	return s.run(ctx, ln.Addr(), func() error { return s.srv.Serve(ln) })
}

// ServeTLS 在 ln 上提供 TLS 服务。
func (s *Server) ServeTLS(ctx context.Context, ln net.Listener, certFile, keyFile string) error {
	return s.run(ctx, ln.Addr(), func() error { return s.srv.ServeTLS(ln, certFile, keyFile) })
}

// Shutdown 优雅关闭服务器。
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// run 持有循环并运行 serve，ctx 结束时优雅关闭。
func (s *Server) run(ctx context.Context, addr net.Addr, serve func() error) error {
	release := s.r.loop.Hold()
	defer release()

	shutdownErrCh := make(chan error, 1)
	serveDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
			defer cancel()
			shutdownErrCh <- s.srv.Shutdown(shutdownCtx)
		case <-serveDone:
		}
	}()

	s.r.opts.logger.Info("server listening", slog.String("addr", addr.String()))
	err := serve()
	if errors.Is(err, http.ErrServerClosed) {
		select {
		case shutdownErr := <-shutdownErrCh:
			return shutdownErr
		case <-ctx.Done():
			return <-shutdownErrCh
		default:
			// 外部直接调用了 Shutdown
			close(serveDone)
			return nil
		}
	}
	close(serveDone)
	return err
}
