// Package tracker runs the inference side of gesture control: camera frames
// go through the motion gate and the hand detector, and the classified result
// lands in a Slot for the render loop.
package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/geom"
	"github.com/ayusman/mudra/internal/gesture"
)

// Observation is the result of one processed camera frame.
type Observation struct {
	Gesture     gesture.Label           `json:"gesture"`
	Pose        gesture.Pose            `json:"pose"`
	Target      geom.Point              `json:"target"`
	Confidence  float64                 `json:"confidence"`
	Landmarks   *detector.HandLandmarks `json:"landmarks,omitempty"`
	HandPresent bool                    `json:"hand_present"`
	Seq         uint64                  `json:"seq"`
	At          time.Time               `json:"at"`
}

// Config tunes the tracker.
type Config struct {
	// Mirror flips X so moving the hand right moves the cursor right on a
	// front-facing camera.
	Mirror bool               `mapstructure:"mirror" json:"mirror"`
	Gate   capture.GateConfig `mapstructure:"gate" json:"gate"`
	// MotionThreshold is the changed-pixel percentage that wakes the gate.
	MotionThreshold float64 `mapstructure:"motion_threshold" json:"motion_threshold"`
}

// DefaultConfig mirrors X and uses the default cadence.
func DefaultConfig() Config {
	return Config{
		Mirror:          true,
		Gate:            capture.DefaultGateConfig(),
		MotionThreshold: capture.DefaultMotionThreshold,
	}
}

// Tracker owns the camera while running. It is started and stopped by the
// controller; Run must not be called concurrently with itself.
type Tracker struct {
	cfg      Config
	camera   capture.Camera
	detector detector.Detector
	slot     *Slot
	preview  *capture.Preview
	logger   *zap.Logger

	mu         sync.RWMutex
	classifier *gesture.Classifier
	viewport   geom.Size

	seq      uint64
	handSeen bool
}

// New creates a Tracker. preview may be nil.
func New(cfg Config, camera capture.Camera, det detector.Detector, classifier *gesture.Classifier, slot *Slot, preview *capture.Preview, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if classifier == nil {
		classifier = gesture.NewClassifier(gesture.DefaultThresholds())
	}
	return &Tracker{
		cfg:        cfg,
		camera:     camera,
		detector:   det,
		slot:       slot,
		preview:    preview,
		logger:     logger.Named("tracker"),
		classifier: classifier,
	}
}

// SetViewport sets the page size landmarks are scaled to.
func (t *Tracker) SetViewport(size geom.Size) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.viewport = size
}

// SetThresholds swaps the classifier thresholds.
func (t *Tracker) SetThresholds(th gesture.Thresholds) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.classifier = gesture.NewClassifier(th)
}

// Classifier returns the classifier currently in use.
func (t *Tracker) Classifier() *gesture.Classifier {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.classifier
}

// Run reads and processes frames until ctx is cancelled. The camera must
// already be open. Per-frame failures never end the loop.
func (t *Tracker) Run(ctx context.Context) error {
	if !t.camera.IsOpen() {
		return capture.ErrCameraNotOpen
	}

	motion := capture.NewMotionDetector(t.cfg.MotionThreshold)
	defer motion.Close()
	gate := capture.NewGate(t.cfg.Gate)
	t.handSeen = false

	t.camera.SetFPS(gate.FPS())
	ticker := time.NewTicker(time.Second / time.Duration(gate.FPS()))
	defer ticker.Stop()

	t.logger.Info("Tracking started", zap.Int("fps", gate.FPS()))
	defer t.logger.Info("Tracking stopped")

	for {
		select {
		case <-ctx.Done():
			t.publish(t.observe(nil, time.Now()))
			return nil
		case now := <-ticker.C:
			t.step(now, motion, gate, ticker)
		}
	}
}

// step handles one camera tick. Any failure, including a panic, publishes
// "no hand" so the render loop never acts on a stale observation.
func (t *Tracker) step(now time.Time, motion *capture.MotionDetector, gate *capture.Gate, ticker *time.Ticker) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Warn("Recovered panic in tracking step", zap.Any("panic", r))
			t.publish(t.observe(nil, now))
		}
	}()

	frame, err := t.camera.ReadFrame()
	if err != nil {
		t.logger.Debug("Frame read failed", zap.Error(err))
		t.publish(t.observe(nil, now))
		return
	}
	defer frame.Close()

	if t.preview != nil {
		if err := t.preview.Store(frame); err != nil {
			t.logger.Debug("Preview update failed", zap.Error(err))
		}
	}

	moved, changed := motion.Detect(frame)
	decision := gate.Update(moved, t.handSeen, now)
	if decision.Changed {
		t.camera.SetFPS(decision.FPS)
		ticker.Reset(time.Second / time.Duration(decision.FPS))
		t.logger.Debug("Cadence changed",
			zap.Bool("active", gate.Active()),
			zap.Int("fps", decision.FPS),
			zap.Float64("changed_pct", changed))
	}
	if !decision.Process {
		return
	}

	hands, err := t.detect(frame)
	if err != nil {
		t.logger.Debug("Hand detection failed", zap.Error(err))
		hands = nil
	}
	t.publish(t.observe(detector.Primary(hands), now))
}

// detect runs the detector behind a recover boundary so a crashing model
// degrades to "no hand".
func (t *Tracker) detect(frame *gocv.Mat) (hands []detector.HandLandmarks, err error) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Warn("Recovered panic in hand detector", zap.Any("panic", r))
			hands, err = nil, fmt.Errorf("detector panic: %v", r)
		}
	}()
	return t.detector.Detect(frame)
}

// observe classifies one hand (nil when none) and maps the index tip to
// page pixels.
func (t *Tracker) observe(hand *detector.HandLandmarks, now time.Time) Observation {
	t.mu.RLock()
	classifier, viewport := t.classifier, t.viewport
	t.mu.RUnlock()

	t.seq++
	obs := Observation{Seq: t.seq, At: now}
	t.handSeen = hand != nil
	if hand == nil {
		obs.Gesture = gesture.None
		obs.Pose = gesture.PoseUnknown
		return obs
	}

	obs.HandPresent = true
	obs.Landmarks = hand
	obs.Confidence = hand.Score
	obs.Pose = classifier.Pose(hand)
	obs.Gesture = obs.Pose.Intent()
	obs.Target = t.project(hand.Points[detector.IndexTip], viewport)
	return obs
}

// project maps a normalized landmark to viewport pixels.
func (t *Tracker) project(p detector.Point3D, viewport geom.Size) geom.Point {
	x := p.X
	if t.cfg.Mirror {
		x = 1 - x
	}
	return geom.Point{X: x * viewport.Width, Y: p.Y * viewport.Height}
}

func (t *Tracker) publish(obs Observation) {
	t.slot.Publish(obs)
}
