// Package frameloop runs a tick function at a fixed cadence with a
// cancellable start/stop contract.
package frameloop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is roughly one display refresh at 60Hz.
const DefaultInterval = time.Second / 60

// ErrRunning is returned by Start when the loop is already running.
var ErrRunning = errors.New("frame loop already running")

// TickFunc is called once per frame with the time since the previous tick.
type TickFunc func(ctx context.Context, dt time.Duration)

// Loop calls a TickFunc on a ticker. A panicking tick is recovered and the
// loop carries on with the next frame.
type Loop struct {
	interval time.Duration
	tick     TickFunc
	logger   *zap.Logger

	mu     sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}

	ticks  atomic.Uint64
	panics atomic.Uint64
}

// New creates a Loop. A non-positive interval uses DefaultInterval.
func New(interval time.Duration, tick TickFunc, logger *zap.Logger) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		interval: interval,
		tick:     tick,
		logger:   logger.Named("frameloop"),
	}
}

// Start launches the loop. It stops on its own when ctx is cancelled.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopCh != nil {
		return ErrRunning
	}

	l.stopCh = make(chan struct{})
	l.doneCh = make(chan struct{})
	go l.run(ctx, l.stopCh, l.doneCh)

	l.logger.Debug("Frame loop started", zap.Duration("interval", l.interval))
	return nil
}

// Stop halts the loop and waits for an in-flight tick to return. No tick
// runs after Stop returns. Stopping a stopped loop is a no-op.
func (l *Loop) Stop() {
	l.mu.Lock()
	stopCh, doneCh := l.stopCh, l.doneCh
	l.stopCh, l.doneCh = nil, nil
	l.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh
	l.logger.Debug("Frame loop stopped", zap.Uint64("ticks", l.ticks.Load()))
}

// Running reports whether the loop has been started and not stopped.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopCh != nil
}

// Ticks returns how many ticks have completed, including ones that panicked.
func (l *Loop) Ticks() uint64 {
	return l.ticks.Load()
}

// Panics returns how many ticks were recovered from a panic.
func (l *Loop) Panics() uint64 {
	return l.panics.Load()
}

func (l *Loop) run(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			l.release(stopCh)
			return
		case now := <-ticker.C:
			// Stop may race the ticker; never tick once it has been requested.
			select {
			case <-stopCh:
				return
			default:
			}
			l.safeTick(ctx, now.Sub(last))
			last = now
		}
	}
}

// release forgets the loop's channels if they still belong to the run that
// is exiting, so a loop ended by its context can be started again.
func (l *Loop) release(stopCh chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopCh == stopCh {
		l.stopCh, l.doneCh = nil, nil
	}
}

func (l *Loop) safeTick(ctx context.Context, dt time.Duration) {
	defer func() {
		l.ticks.Add(1)
		if r := recover(); r != nil {
			l.panics.Add(1)
			l.logger.Warn("Recovered panic in frame tick", zap.Any("panic", r))
		}
	}()
	l.tick(ctx, dt)
}
