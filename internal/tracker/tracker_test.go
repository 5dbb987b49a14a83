package tracker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/geom"
	"github.com/ayusman/mudra/internal/gesture"
)

func newTestTracker(cfg Config, cam capture.Camera, det detector.Detector) (*Tracker, *Slot) {
	slot := NewSlot()
	tr := New(cfg, cam, det, nil, slot, nil, nil)
	tr.SetViewport(geom.Size{Width: 1000, Height: 500})
	return tr, slot
}

func TestTracker_Observe(t *testing.T) {
	tr, _ := newTestTracker(Config{Mirror: false}, nil, detector.NewMockDetector())
	now := time.Now()

	tests := []struct {
		name  string
		hand  detector.HandLandmarks
		label gesture.Label
	}{
		{"open palm", detector.OpenPalmLandmarks(), gesture.Grab},
		{"pointing", detector.PointingLandmarks(), gesture.Point},
		{"pinch", detector.PinchLandmarks(), gesture.Click},
		{"fist", detector.FistLandmarks(), gesture.Scroll},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hand := tt.hand
			obs := tr.observe(&hand, now)

			assert.True(t, obs.HandPresent)
			assert.Equal(t, tt.label, obs.Gesture)
			assert.Equal(t, hand.Score, obs.Confidence)
			tip := hand.Points[detector.IndexTip]
			assert.InDelta(t, tip.X*1000, obs.Target.X, 1e-9)
			assert.InDelta(t, tip.Y*500, obs.Target.Y, 1e-9)
			assert.Equal(t, now, obs.At)
			assert.True(t, tr.handSeen)
		})
	}
}

func TestTracker_ObserveNoHand(t *testing.T) {
	tr, _ := newTestTracker(DefaultConfig(), nil, detector.NewMockDetector())
	hand := detector.OpenPalmLandmarks()
	first := tr.observe(&hand, time.Now())

	obs := tr.observe(nil, time.Now())
	assert.False(t, obs.HandPresent)
	assert.Equal(t, gesture.None, obs.Gesture)
	assert.Nil(t, obs.Landmarks)
	assert.Greater(t, obs.Seq, first.Seq)
	assert.False(t, tr.handSeen)
}

func TestTracker_Mirror(t *testing.T) {
	tr, _ := newTestTracker(Config{Mirror: true}, nil, detector.NewMockDetector())
	got := tr.project(detector.Point3D{X: 0.2, Y: 0.4}, geom.Size{Width: 1000, Height: 500})
	assert.InDelta(t, 800, got.X, 1e-9)
	assert.InDelta(t, 200, got.Y, 1e-9)
}

func TestTracker_SetThresholds(t *testing.T) {
	tr, _ := newTestTracker(Config{}, nil, detector.NewMockDetector())
	hand := detector.OpenPalmLandmarks()
	assert.Equal(t, gesture.Grab, tr.observe(&hand, time.Now()).Gesture)

	// A huge pinch radius makes every hand a click.
	tr.SetThresholds(gesture.Thresholds{Pinch: 2})
	assert.Equal(t, gesture.Click, tr.observe(&hand, time.Now()).Gesture)
	assert.Equal(t, 2.0, tr.Classifier().Thresholds.Pinch)
}

func TestTracker_DetectRecoversPanic(t *testing.T) {
	det := detector.NewMockDetector()
	det.SetPanic("segfault in model")
	tr, _ := newTestTracker(Config{}, nil, det)

	hands, err := tr.detect(nil)
	assert.Nil(t, hands)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "segfault in model")
}

func TestTracker_RunRequiresOpenCamera(t *testing.T) {
	cam := capture.NewMockCamera(nil, true)
	tr, _ := newTestTracker(DefaultConfig(), cam, detector.NewMockDetector())
	assert.ErrorIs(t, tr.Run(context.Background()), capture.ErrCameraNotOpen)
}

func TestTracker_Run(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}
	defer goleak.VerifyNone(t)

	black := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer black.Close()
	white := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer white.Close()
	white.SetTo(gocv.NewScalar(255, 255, 255, 0))

	// Alternating frames keep the motion gate awake.
	cam := capture.NewMockCamera([]*gocv.Mat{&black, &white}, true)
	require.NoError(t, cam.Open())
	defer cam.Close()

	det := detector.NewMockDetector()
	det.SetHands([]detector.HandLandmarks{detector.PointingLandmarks()})

	cfg := DefaultConfig()
	cfg.Gate = capture.GateConfig{IdleFPS: 100, ActiveFPS: 100, IdleTimeout: time.Second}
	tr, slot := newTestTracker(cfg, cam, det)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()

	require.Eventually(t, func() bool {
		obs, _, ok := slot.Latest()
		return ok && obs.HandPresent && obs.Gesture == gesture.Point
	}, 2*time.Second, 5*time.Millisecond)

	// A failing detector degrades to "no hand" without stopping the loop.
	det.SetError(errors.New("pipe closed"))
	require.Eventually(t, func() bool {
		obs, _, ok := slot.Latest()
		return ok && !obs.HandPresent
	}, 2*time.Second, 5*time.Millisecond)

	det.SetError(nil)
	det.SetPanic("boom")
	calls := det.Calls()
	require.Eventually(t, func() bool { return det.Calls() > calls+2 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("tracker did not stop")
	}
	obs, _, _ := slot.Latest()
	assert.False(t, obs.HandPresent)
}

// faultyCamera panics on ReadFrame while fault is set.
type faultyCamera struct {
	*capture.MockCamera
	fault atomic.Bool
}

func (c *faultyCamera) ReadFrame() (*gocv.Mat, error) {
	if c.fault.Load() {
		panic("camera driver fault")
	}
	return c.MockCamera.ReadFrame()
}

func runAlternating(t *testing.T, cam capture.Camera, det detector.Detector) (*Slot, func()) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Gate = capture.GateConfig{IdleFPS: 100, ActiveFPS: 100, IdleTimeout: time.Second}
	tr, slot := newTestTracker(cfg, cam, det)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()

	require.Eventually(t, func() bool {
		obs, _, ok := slot.Latest()
		return ok && obs.HandPresent
	}, 2*time.Second, 5*time.Millisecond)

	return slot, func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("tracker did not stop")
		}
	}
}

func alternatingFrames(t *testing.T) []*gocv.Mat {
	t.Helper()
	black := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { black.Close() })
	white := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { white.Close() })
	white.SetTo(gocv.NewScalar(255, 255, 255, 0))
	return []*gocv.Mat{&black, &white}
}

func TestTracker_RunClearsHandWhenFramesStop(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}
	defer goleak.VerifyNone(t)

	cam := capture.NewMockCamera(alternatingFrames(t), true)
	require.NoError(t, cam.Open())
	defer cam.Close()

	det := detector.NewMockDetector()
	det.SetHands([]detector.HandLandmarks{detector.PointingLandmarks()})
	slot, stop := runAlternating(t, cam, det)
	defer stop()

	// The camera stops delivering while the detector would still report a hand.
	cam.SetFrames(nil)
	require.Eventually(t, func() bool {
		obs, _, ok := slot.Latest()
		return ok && !obs.HandPresent && obs.Gesture == gesture.None
	}, 2*time.Second, 5*time.Millisecond)
}

func TestTracker_RunRecoversStepPanic(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}
	defer goleak.VerifyNone(t)

	cam := &faultyCamera{MockCamera: capture.NewMockCamera(alternatingFrames(t), true)}
	require.NoError(t, cam.Open())
	defer cam.Close()

	det := detector.NewMockDetector()
	det.SetHands([]detector.HandLandmarks{detector.PointingLandmarks()})
	slot, stop := runAlternating(t, cam, det)
	defer stop()

	cam.fault.Store(true)
	require.Eventually(t, func() bool {
		obs, _, ok := slot.Latest()
		return ok && !obs.HandPresent
	}, 2*time.Second, 5*time.Millisecond)

	// The loop survives the panic and picks the hand up again.
	cam.fault.Store(false)
	require.Eventually(t, func() bool {
		obs, _, ok := slot.Latest()
		return ok && obs.HandPresent
	}, 2*time.Second, 5*time.Millisecond)
}

func TestTracker_RunLogsMotionOnCadenceChange(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}
	defer goleak.VerifyNone(t)

	cam := capture.NewMockCamera(alternatingFrames(t), true)
	require.NoError(t, cam.Open())
	defer cam.Close()

	core, logs := observer.New(zap.DebugLevel)
	cfg := DefaultConfig()
	cfg.Gate = capture.GateConfig{IdleFPS: 100, ActiveFPS: 100, IdleTimeout: time.Second}
	tr := New(cfg, cam, detector.NewMockDetector(), nil, NewSlot(), nil, zap.New(core))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()

	require.Eventually(t, func() bool {
		return logs.FilterMessage("Cadence changed").Len() > 0
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	entry := logs.FilterMessage("Cadence changed").All()[0]
	pct, ok := entry.ContextMap()["changed_pct"].(float64)
	require.True(t, ok)
	// Black to white changes every pixel.
	assert.Greater(t, pct, 50.0)
}
