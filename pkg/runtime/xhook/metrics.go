package xhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	instrumentationName = "github.com/omeyang/xcorr/xhook"

	metricDispatchTotal    = "xcorr.dispatch.total"
	metricOutboundDuration = "xcorr.outbound.duration"
)

// 出站结果取值。
const (
	outcomeOK     = "ok"
	outcomeError  = "error"
	outcomeOpen   = "circuit_open"
	outcomeServer = "server_error"
)

// instruments 分发与出站指标。
type instruments struct {
	dispatch metric.Int64Counter
	outbound metric.Float64Histogram
}

func newInstruments(mp metric.MeterProvider) (*instruments, error) {
	meter := mp.Meter(instrumentationName)

	dispatch, err := meter.Int64Counter(
		metricDispatchTotal,
		metric.WithDescription("inbound requests dispatched under a new context"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("xhook: create counter failed: %w", err)
	}

	outbound, err := meter.Float64Histogram(
		metricOutboundDuration,
		metric.WithDescription("outbound request duration including retries"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("xhook: create histogram failed: %w", err)
	}
	return &instruments{dispatch: dispatch, outbound: outbound}, nil
}

func (m *instruments) recordDispatch(method string) {
	m.dispatch.Add(context.Background(), 1, metric.WithAttributes(attribute.String("method", method)))
}

func (m *instruments) recordOutbound(ctx context.Context, scheme, method string, start time.Time, resp *Response, err error) {
	m.outbound.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("scheme", scheme),
		attribute.String("method", method),
		attribute.String("outcome", outcome(resp, err)),
	))
}

func outcome(resp *Response, err error) string {
	switch {
	case errors.Is(err, ErrCircuitOpen):
		return outcomeOpen
	case err != nil:
		return outcomeError
	case resp != nil && resp.StatusCode >= 500:
		return outcomeServer
	default:
		return outcomeOK
	}
}
