package xhook_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/omeyang/xcorr/pkg/context/xcorr"
	"github.com/omeyang/xcorr/pkg/observability/xcorrlog"
	"github.com/omeyang/xcorr/pkg/runtime/xhook"
	"github.com/omeyang/xcorr/pkg/runtime/xloop"
)

func Example() {
	xcorr.ResetIDs()

	loop := xloop.New()
	reg, _ := xhook.New(loop)
	logger, _ := xcorrlog.New(reg.Slot(), xcorrlog.WithOutput(os.Stdout), xcorrlog.WithPID(1))

	handle := func(name string, delay time.Duration) xhook.HandlerFunc {
		return func(_ *http.Request, res *xhook.ResponseWriter) {
			logger.Log(name + " accepted")
			reg.SetTimeout(func() {
				logger.Log(name + " finished")
				res.End()
			}, delay)
		}
	}

	_ = loop.Post(func() {
		reg.Dispatch(httptest.NewRequest(http.MethodGet, "/slow", nil), xhook.NewResponseWriter(), handle("slow", 20*time.Millisecond))
		reg.Dispatch(httptest.NewRequest(http.MethodGet, "/fast", nil), xhook.NewResponseWriter(), handle("fast", time.Millisecond))
	})
	_ = loop.Run(context.Background())

	// Output:
	// [1:1] Method: GET  - url: /slow
	// [1:1] slow accepted
	// [1:2] Method: GET  - url: /fast
	// [1:2] fast accepted
	// [1:2] fast finished
	// [1:1] slow finished
}

func ExampleRegistry_Middleware() {
	xcorr.ResetIDs()

	reg, _ := xhook.New(xloop.New())
	logger, _ := xcorrlog.New(reg.Slot(), xcorrlog.WithOutput(os.Stdout), xcorrlog.WithPID(1))

	h := reg.Chain(func(_ *http.Request, res *xhook.ResponseWriter) {
		logger.Log("handled")
		res.End()
	}, reg.Middleware())
	h(httptest.NewRequest(http.MethodDelete, "/items/7", nil), xhook.NewResponseWriter())
	logger.Log("outside")

	// Output:
	// [1:1] Method: DELETE  - url: /items/7
	// [1:1] handled
	// outside
}
