package watchdog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedRSS(rss uint64) MemoryReader {
	return func() (uint64, error) { return rss, nil }
}

// exitRecorder captures exit codes instead of exiting.
type exitRecorder struct {
	calls atomic.Int32
	code  atomic.Int32
}

func (e *exitRecorder) exit(code int) {
	e.calls.Add(1)
	e.code.Store(int32(code))
}

func TestCheck_CeilingExceeded(t *testing.T) {
	rec := &exitRecorder{}
	w, err := New(time.Minute, 1000, discardLogger(), WithMemoryReader(fixedRSS(1500)), WithExit(rec.exit))
	require.NoError(t, err)

	err = w.Check()
	assert.ErrorIs(t, err, ErrResourceExhausted)
	assert.Equal(t, int32(1), rec.calls.Load())
	assert.Equal(t, int32(1), rec.code.Load())
}

func TestCheck_BelowCeiling(t *testing.T) {
	rec := &exitRecorder{}
	w, err := New(time.Minute, 1000, discardLogger(), WithMemoryReader(fixedRSS(1000)), WithExit(rec.exit))
	require.NoError(t, err)

	assert.NoError(t, w.Check())
	assert.Zero(t, rec.calls.Load())
}

func TestCheck_Disabled(t *testing.T) {
	rec := &exitRecorder{}
	w, err := New(time.Minute, 0, discardLogger(), WithMemoryReader(fixedRSS(1<<62)), WithExit(rec.exit))
	require.NoError(t, err)

	assert.False(t, w.Enabled())
	for range 3 {
		assert.NoError(t, w.Check())
	}
	assert.Zero(t, rec.calls.Load())
}

func TestCheck_ReadFailure(t *testing.T) {
	rec := &exitRecorder{}
	readErr := errors.New("proc unavailable")
	w, err := New(time.Minute, 1000, discardLogger(),
		WithMemoryReader(func() (uint64, error) { return 0, readErr }),
		WithExit(rec.exit))
	require.NoError(t, err)

	assert.ErrorIs(t, w.Check(), readErr)
	assert.Zero(t, rec.calls.Load())
}

func TestRun(t *testing.T) {
	rec := &exitRecorder{}
	w, err := New(5*time.Millisecond, 1000, discardLogger(), WithMemoryReader(fixedRSS(1500)), WithExit(rec.exit))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	w.Run(ctx)

	assert.Eventually(t, func() bool { return rec.calls.Load() > 0 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	w.Wait()
	assert.Equal(t, int32(1), rec.code.Load())
}

func TestRun_DisabledNeverExits(t *testing.T) {
	rec := &exitRecorder{}
	w, err := New(time.Millisecond, 0, discardLogger(), WithMemoryReader(fixedRSS(1<<40)), WithExit(rec.exit))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	w.Run(ctx)
	time.Sleep(20 * time.Millisecond)
	cancel()
	w.Wait()

	assert.Zero(t, rec.calls.Load())
}

func TestNew_ProcessReader(t *testing.T) {
	w, err := New(time.Minute, 0, discardLogger())
	require.NoError(t, err)

	rss, err := w.readRSS()
	require.NoError(t, err)
	assert.Positive(t, rss)
}

func TestNew_InvalidInterval(t *testing.T) {
	_, err := New(0, 1000, discardLogger())
	assert.Error(t, err)
}
