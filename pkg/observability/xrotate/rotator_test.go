package xrotate

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLumberjackValidation(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "v.log")

	tests := []struct {
		name string
		file string
		opts []Option
		want error
	}{
		{"空文件名", "", nil, ErrEmptyFilename},
		{"大小为 0", name, []Option{WithMaxSize(0)}, ErrInvalidMaxSize},
		{"大小超限", name, []Option{WithMaxSize(maxSizeMB + 1)}, ErrInvalidMaxSize},
		{"备份数为负", name, []Option{WithMaxBackups(-1)}, ErrInvalidMaxBackups},
		{"天数超限", name, []Option{WithMaxAge(maxAgeDays + 1)}, ErrInvalidMaxAge},
		{"无清理策略", name, []Option{WithMaxBackups(0), WithMaxAge(0)}, ErrNoCleanupPolicy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLumberjack(tt.file, tt.opts...)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLumberjackWriteCreatesParentDir(t *testing.T) {
	name := filepath.Join(t.TempDir(), "nested", "dir", "app.log")

	r, err := NewLumberjack(name, nil, WithCompress(false), WithLocalTime(true))
	require.NoError(t, err)

	_, err = r.Write([]byte("hello\n"))
	require.NoError(t, err)
	require.NoError(t, r.Close())

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}

func TestLumberjackRotate(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "rot.log")

	r, err := NewLumberjack(name, WithCompress(false), WithMaxBackups(3))
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Write([]byte("before\n"))
	require.NoError(t, err)
	require.NoError(t, r.Rotate())
	_, err = r.Write([]byte("after\n"))
	require.NoError(t, err)

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, "after\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "当前文件 + 一个备份")
}

func TestLumberjackClosed(t *testing.T) {
	r, err := NewLumberjack(filepath.Join(t.TempDir(), "c.log"))
	require.NoError(t, err)

	require.NoError(t, r.Close())
	assert.ErrorIs(t, r.Close(), ErrClosed)

	_, err = r.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, r.Rotate(), ErrClosed)
}

func TestLumberjackConcurrentWrites(t *testing.T) {
	name := filepath.Join(t.TempDir(), "cc.log")
	r, err := NewLumberjack(name)
	require.NoError(t, err)

	const writers, perWriter = 8, 50
	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWriter {
				_, _ = r.Write([]byte("line\n"))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, r.Close())

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Len(t, data, writers*perWriter*len("line\n"))
}
