package xcorrlog_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xcorr/pkg/context/xcorr"
	"github.com/omeyang/xcorr/pkg/observability/xcorrlog"
)

const testPID = 4242

func newEmitter(t *testing.T) (*xcorrlog.Emitter, *xcorr.Slot, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var slot xcorr.Slot
	var out, errOut bytes.Buffer
	e, err := xcorrlog.New(&slot,
		xcorrlog.WithOutput(&out),
		xcorrlog.WithErrorOutput(&errOut),
		xcorrlog.WithPID(testPID),
	)
	require.NoError(t, err)
	return e, &slot, &out, &errOut
}

func lines(b *bytes.Buffer) []string {
	s := strings.TrimSuffix(b.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func TestNewNilSlot(t *testing.T) {
	_, err := xcorrlog.New(nil)
	assert.ErrorIs(t, err, xcorrlog.ErrNilSlot)
}

func TestLogWithoutContext(t *testing.T) {
	e, _, out, errOut := newEmitter(t)
	e.Log("plain")
	e.Errorf("plain %d", 2)
	assert.Equal(t, []string{"plain"}, lines(out))
	assert.Equal(t, []string{"plain 2"}, lines(errOut))
}

func TestHeaderEmittedOnce(t *testing.T) {
	e, slot, out, errOut := newEmitter(t)
	c := xcorr.NewContext("GET", "/a")
	slot.Set(c)

	e.Log("first")
	e.Logf("second %s", "line")
	e.Error("third")

	id := c.ID()
	p := "[4242:" + itoa(id) + "] "
	assert.Equal(t, []string{
		p + "Method: GET  - url: /a",
		p + "first",
		p + "second line",
	}, lines(out))
	assert.Equal(t, []string{p + "third"}, lines(errOut), "header 已输出，错误 sink 只带前缀")
	assert.True(t, c.HeaderEmitted())
}

func TestHeaderOnErrorSinkFirst(t *testing.T) {
	e, slot, out, errOut := newEmitter(t)
	c := xcorr.NewContext("POST", "/e")
	slot.Set(c)

	e.Error("oops")
	e.Log("after")

	p := "[4242:" + itoa(c.ID()) + "] "
	assert.Equal(t, []string{p + "Method: POST  - url: /e", p + "oops"}, lines(errOut))
	assert.Equal(t, []string{p + "after"}, lines(out))
}

func TestNoHeaderWithoutMethod(t *testing.T) {
	e, slot, out, _ := newEmitter(t)
	c := xcorr.NewContext("", "/no-method")
	slot.Set(c)

	e.Log("x")
	e.Log("y")

	p := "[4242:" + itoa(c.ID()) + "] "
	assert.Equal(t, []string{p + "x", p + "y"}, lines(out))
	assert.False(t, c.HeaderEmitted())
}

func TestFatalForcesHeader(t *testing.T) {
	e, slot, out, errOut := newEmitter(t)
	c := xcorr.NewContext("GET", "/f")
	slot.Set(c)

	e.Log("normal")
	e.Fatal("")
	e.Fatal("dying")

	p := "[4242:" + itoa(c.ID()) + "] "
	assert.Equal(t, []string{p + "Method: GET  - url: /f", p + "normal"}, lines(out))
	assert.Equal(t, []string{
		p + "Method: GET  - url: /f",
		p + "Method: GET  - url: /f",
		p + "dying",
	}, lines(errOut))
}

func TestFatalWithoutContext(t *testing.T) {
	e, _, _, errOut := newEmitter(t)
	e.Fatal("")
	e.Fatal("bare")
	assert.Equal(t, []string{"bare"}, lines(errOut))
}

func TestFatalForIgnoresSlot(t *testing.T) {
	e, slot, _, errOut := newEmitter(t)
	active := xcorr.NewContext("GET", "/active")
	slot.Set(active)
	given := xcorr.NewContext("PUT", "/given")

	e.FatalFor(given, "dying")
	e.FatalFor(nil, "bare")

	p := "[4242:" + itoa(given.ID()) + "] "
	assert.Equal(t, []string{p + "Method: PUT  - url: /given", p + "dying", "bare"}, lines(errOut))
	assert.Same(t, active, slot.Get())
}

func TestDistinctContextsDistinctIDs(t *testing.T) {
	e, slot, out, _ := newEmitter(t)
	a := xcorr.NewContext("GET", "/a")
	b := xcorr.NewContext("GET", "/b")

	slot.Set(a)
	e.Log("a1")
	slot.Set(b)
	e.Log("b1")
	slot.Set(a)
	e.Log("a2")

	assert.Greater(t, b.ID(), a.ID())
	pa := "[4242:" + itoa(a.ID()) + "] "
	pb := "[4242:" + itoa(b.ID()) + "] "
	assert.Equal(t, []string{
		pa + "Method: GET  - url: /a",
		pa + "a1",
		pb + "Method: GET  - url: /b",
		pb + "b1",
		pa + "a2",
	}, lines(out))
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteErrorsCounted(t *testing.T) {
	var slot xcorr.Slot
	var got []error
	e, err := xcorrlog.New(&slot,
		xcorrlog.WithOutput(failWriter{}),
		xcorrlog.WithOnError(func(err error) { got = append(got, err) }),
	)
	require.NoError(t, err)

	e.Log("x")
	e.Log("y")
	assert.Equal(t, uint64(2), e.Errors())
	require.Len(t, got, 2)
	assert.EqualError(t, got[0], "disk full")
}

func TestPrefix(t *testing.T) {
	e, _, _, _ := newEmitter(t)
	assert.Equal(t, "", e.Prefix(nil))
	c := xcorr.NewContext("GET", "/")
	assert.Equal(t, "[4242:"+itoa(c.ID())+"] ", e.Prefix(c))
}
