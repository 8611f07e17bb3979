package xcorr_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xcorr/pkg/context/xcorr"
)

func TestWithContextRoundTrip(t *testing.T) {
	c := xcorr.NewContext("GET", "/a")
	ctx, err := xcorr.WithContext(context.Background(), c)
	require.NoError(t, err)
	assert.Same(t, c, xcorr.FromContext(ctx))

	got, err := xcorr.Require(ctx)
	require.NoError(t, err)
	assert.Same(t, c, got)
}

func TestBridgeErrors(t *testing.T) {
	//nolint:staticcheck // 测试 nil context 处理
	_, err := xcorr.WithContext(nil, nil)
	assert.ErrorIs(t, err, xcorr.ErrNilContext)

	//nolint:staticcheck // 测试 nil context 处理
	_, err = xcorr.Require(nil)
	assert.ErrorIs(t, err, xcorr.ErrNilContext)

	_, err = xcorr.Require(context.Background())
	assert.ErrorIs(t, err, xcorr.ErrMissingContext)

	//nolint:staticcheck // 测试 nil context 处理
	assert.Nil(t, xcorr.FromContext(nil))
}

func TestAttrs(t *testing.T) {
	xcorr.ResetIDs()

	assert.Nil(t, xcorr.Attrs(nil))

	attrs := xcorr.Attrs(xcorr.NewContext("GET", "/a"))
	require.Len(t, attrs, 4)
	assert.Equal(t, slog.Int(xcorr.KeyPID, os.Getpid()), attrs[0])
	assert.Equal(t, slog.Uint64(xcorr.KeyRequestID, 1), attrs[1])
	assert.Equal(t, slog.String(xcorr.KeyMethod, "GET"), attrs[2])
	assert.Equal(t, slog.String(xcorr.KeyURL, "/a"), attrs[3])

	attrs = xcorr.Attrs(xcorr.NewContext("", ""))
	assert.Len(t, attrs, 2, "空字段不输出")
}
