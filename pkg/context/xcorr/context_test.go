package xcorr_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xcorr/pkg/context/xcorr"
)

// 注意：序号计数器为进程级全局状态，本文件的测试不可使用 t.Parallel()。

func TestContextIDLazy(t *testing.T) {
	xcorr.ResetIDs()

	c := xcorr.NewContext("GET", "/a")
	_, ok := c.Assigned()
	assert.False(t, ok, "id 不应在创建时分配")

	assert.Equal(t, uint32(1), c.ID())
	assert.Equal(t, uint32(1), c.ID(), "id 分配后保持稳定")

	id, ok := c.Assigned()
	assert.True(t, ok)
	assert.Equal(t, uint32(1), id)
}

func TestContextIDStrictlyIncreasing(t *testing.T) {
	xcorr.ResetIDs()

	var prev uint32
	for i := 0; i < 100; i++ {
		id := xcorr.NewContext("GET", "/").ID()
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestContextIDWraparound(t *testing.T) {
	xcorr.SetIDCounter(xcorr.IDSpace - 1)
	defer xcorr.ResetIDs()

	assert.Equal(t, uint32(xcorr.IDSpace), xcorr.NewContext("", "").ID())
	assert.Equal(t, uint32(1), xcorr.NewContext("", "").ID())
	assert.Equal(t, uint32(2), xcorr.NewContext("", "").ID())
}

func TestContextIDConcurrentFirstUse(t *testing.T) {
	xcorr.ResetIDs()

	c := xcorr.NewContext("GET", "/race")
	var wg sync.WaitGroup
	ids := make([]uint32, 16)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = c.ID()
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestContextMarkHeaderOnce(t *testing.T) {
	c := xcorr.NewContext("GET", "/a")
	assert.False(t, c.HeaderEmitted())
	assert.True(t, c.MarkHeader())
	assert.False(t, c.MarkHeader())
	assert.True(t, c.HeaderEmitted())
}

func TestNilContext(t *testing.T) {
	var c *xcorr.Context
	assert.Equal(t, uint32(0), c.ID())
	assert.Equal(t, "", c.Method())
	assert.Equal(t, "", c.Target())
	assert.False(t, c.MarkHeader())
	assert.False(t, c.HeaderEmitted())
	assert.Equal(t, "<none>", c.String())
	_, ok := c.Assigned()
	require.False(t, ok)
}

func TestContextString(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		want   string
	}{
		{"both", "GET", "/a", "GET /a"},
		{"method only", "GET", "", "GET"},
		{"target only", "", "/a", "/a"},
		{"empty", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, xcorr.NewContext(tt.method, tt.target).String())
		})
	}
}
