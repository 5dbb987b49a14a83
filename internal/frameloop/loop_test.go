package frameloop

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestLoop_TicksUntilStopped(t *testing.T) {
	defer goleak.VerifyNone(t)

	var n atomic.Int64
	l := New(time.Millisecond, func(ctx context.Context, dt time.Duration) {
		n.Add(1)
	}, nil)

	require.NoError(t, l.Start(context.Background()))
	assert.True(t, l.Running())
	require.Eventually(t, func() bool { return n.Load() >= 5 }, time.Second, time.Millisecond)

	l.Stop()
	assert.False(t, l.Running())

	after := n.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, n.Load(), "no tick may run after Stop returns")
	assert.Equal(t, uint64(after), l.Ticks())
}

func TestLoop_StartTwice(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := New(time.Millisecond, func(context.Context, time.Duration) {}, nil)
	require.NoError(t, l.Start(context.Background()))
	defer l.Stop()

	assert.ErrorIs(t, l.Start(context.Background()), ErrRunning)
}

func TestLoop_StopIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := New(time.Millisecond, func(context.Context, time.Duration) {}, nil)
	l.Stop()
	require.NoError(t, l.Start(context.Background()))
	l.Stop()
	l.Stop()
	assert.False(t, l.Running())
}

func TestLoop_Restart(t *testing.T) {
	defer goleak.VerifyNone(t)

	var n atomic.Int64
	l := New(time.Millisecond, func(context.Context, time.Duration) { n.Add(1) }, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Start(context.Background()))
		target := n.Load() + 2
		require.Eventually(t, func() bool { return n.Load() >= target }, time.Second, time.Millisecond)
		l.Stop()
	}
}

func TestLoop_RecoversFromPanic(t *testing.T) {
	defer goleak.VerifyNone(t)

	var n atomic.Int64
	l := New(time.Millisecond, func(context.Context, time.Duration) {
		if n.Add(1)%2 == 1 {
			panic("bad frame")
		}
	}, nil)

	require.NoError(t, l.Start(context.Background()))
	require.Eventually(t, func() bool { return n.Load() >= 6 }, time.Second, time.Millisecond)
	l.Stop()

	assert.GreaterOrEqual(t, l.Panics(), uint64(3))
	assert.Less(t, l.Panics(), l.Ticks())
}

func TestLoop_ContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	var n atomic.Int64
	l := New(time.Millisecond, func(context.Context, time.Duration) { n.Add(1) }, nil)
	require.NoError(t, l.Start(ctx))
	require.Eventually(t, func() bool { return n.Load() >= 1 }, time.Second, time.Millisecond)

	cancel()
	// Stop still returns promptly once the goroutine has exited.
	l.Stop()
	assert.False(t, l.Running())
}

func TestLoop_ContextCancelAllowsRestart(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	var n atomic.Int64
	l := New(time.Millisecond, func(context.Context, time.Duration) { n.Add(1) }, nil)
	require.NoError(t, l.Start(ctx))
	require.Eventually(t, func() bool { return n.Load() >= 1 }, time.Second, time.Millisecond)

	cancel()
	require.Eventually(t, func() bool { return !l.Running() }, time.Second, time.Millisecond)

	before := n.Load()
	require.NoError(t, l.Start(context.Background()))
	assert.True(t, l.Running())
	require.Eventually(t, func() bool { return n.Load() > before }, time.Second, time.Millisecond)
	l.Stop()
	assert.False(t, l.Running())
}

func TestLoop_DeltaTime(t *testing.T) {
	defer goleak.VerifyNone(t)

	dts := make(chan time.Duration, 16)
	l := New(5*time.Millisecond, func(_ context.Context, dt time.Duration) {
		select {
		case dts <- dt:
		default:
		}
	}, nil)
	require.NoError(t, l.Start(context.Background()))
	defer l.Stop()

	for i := 0; i < 3; i++ {
		select {
		case dt := <-dts:
			assert.Greater(t, dt, time.Duration(0))
		case <-time.After(time.Second):
			t.Fatal("no tick")
		}
	}
}

func TestNew_DefaultInterval(t *testing.T) {
	l := New(0, func(context.Context, time.Duration) {}, nil)
	assert.Equal(t, DefaultInterval, l.interval)
}
