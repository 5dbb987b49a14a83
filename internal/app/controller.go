// Package app wires the gesture pipeline together. The Controller turns
// gesture mode on and off, runs the render loop and exposes status.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/frameloop"
	"github.com/ayusman/mudra/internal/geom"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/interaction"
	"github.com/ayusman/mudra/internal/motion"
	"github.com/ayusman/mudra/internal/overlay"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tracker"
)

var (
	// ErrNoSurface is returned by Enable when no page is attached.
	ErrNoSurface = errors.New("no page attached")
	// ErrNoStore is returned by sample operations when persistence is off.
	ErrNoStore = errors.New("sample storage is not configured")
	// ErrNoHand is returned by CaptureSample when no hand is being tracked.
	ErrNoHand = errors.New("no hand in view")
	// ErrEmptyViewport is returned by Enable when the page reports no area.
	ErrEmptyViewport = errors.New("page viewport is empty")
	// ErrTrackerBusy is returned by Enable while a previous tracking run is
	// still stuck in a camera read or a detection.
	ErrTrackerBusy = errors.New("previous tracking run has not finished")
)

const (
	// viewportRefresh is how many render frames pass between viewport checks.
	viewportRefresh = 60
	releaseTimeout  = time.Second
)

// DefaultStopTimeout bounds how long Disable waits for the tracker.
const DefaultStopTimeout = 2 * time.Second

// Surface is the page gesture mode drives.
type Surface interface {
	interaction.Page
	overlay.Sink
	Viewport(ctx context.Context) (geom.Size, error)
}

// Config holds the controller's collaborators. Camera and Detector are
// required; everything else is optional.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector
	Surface  Surface
	Store    *store.Store
	Preview  *capture.Preview
	// Overlay receives every render frame in addition to the Surface.
	Overlay overlay.Sink

	Tracker        tracker.Config
	Tuning         config.Tuning
	RenderInterval time.Duration
	// StopTimeout bounds how long Disable waits for the tracking goroutine.
	// Defaults to DefaultStopTimeout.
	StopTimeout time.Duration

	// Clock drives click cooldowns. Defaults to time.Now.
	Clock func() time.Time
}

// Status is a snapshot of gesture mode for the API and tray.
type Status struct {
	Enabled     bool             `json:"enabled"`
	Gesture     gesture.Label    `json:"gesture"`
	Pose        gesture.Pose     `json:"pose"`
	Mode        interaction.Mode `json:"mode"`
	Position    geom.Point       `json:"position"`
	HandPresent bool             `json:"hand_present"`
	Confidence  float64          `json:"confidence"`
	Viewport    geom.Size        `json:"viewport"`
	// Notice explains the last failure to enable. It stays set until
	// gesture mode is enabled successfully.
	Notice string `json:"notice,omitempty"`
	Frames uint64 `json:"frames"`
	Panics uint64 `json:"panics"`
	Drops  uint64 `json:"drops"`
}

// Controller owns gesture mode. While enabled, the render loop goroutine is
// the only user of the filter and the dispatcher; Disable stops it before
// touching them.
type Controller struct {
	cfg    Config
	logger *zap.Logger

	mu          sync.Mutex
	enabled     bool
	tuning      config.Tuning
	pending     *config.Tuning
	pendingMu   sync.Mutex
	trackCancel context.CancelFunc
	trackDone   chan struct{}
	// lingering is closed when a tracking run that outlived Disable exits.
	lingering chan struct{}

	slot       *tracker.Slot
	tracker    *tracker.Tracker
	loop       *frameloop.Loop
	filter     *motion.Filter
	dispatcher *interaction.Dispatcher

	frames   uint64
	viewport geom.Size

	statusMu sync.RWMutex
	status   Status
	last     tracker.Observation
}

// New builds a Controller. A tuning profile saved in the store takes
// precedence over cfg.Tuning.
func New(cfg Config, logger *zap.Logger) (*Controller, error) {
	if cfg.Camera == nil {
		return nil, errors.New("app: camera is required")
	}
	if cfg.Detector == nil {
		return nil, errors.New("app: detector is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RenderInterval <= 0 {
		cfg.RenderInterval = frameloop.DefaultInterval
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	c := &Controller{
		cfg:    cfg,
		logger: logger.Named("controller"),
		tuning: cfg.Tuning,
		slot:   tracker.NewSlot(),
	}

	if cfg.Store != nil {
		saved, err := cfg.Store.Tuning()
		switch {
		case err == nil:
			c.tuning = saved
			c.logger.Info("Loaded saved tuning profile")
		case errors.Is(err, store.ErrNotFound):
		default:
			c.logger.Warn("Ignoring unreadable tuning profile", zap.Error(err))
		}
	}
	if err := c.tuning.Validate(); err != nil {
		return nil, fmt.Errorf("app: invalid tuning: %w", err)
	}

	c.filter = motion.NewFilter(c.tuning.Motion)
	c.dispatcher = interaction.NewDispatcher(cfg.Surface, c.tuning.Interaction,
		interaction.WithClock(cfg.Clock),
		interaction.WithLogger(logger),
	)
	c.tracker = tracker.New(cfg.Tracker, cfg.Camera, cfg.Detector,
		gesture.NewClassifier(c.tuning.Gesture), c.slot, cfg.Preview, logger)
	c.loop = frameloop.New(cfg.RenderInterval, c.tick, logger)
	c.status.Mode = interaction.ModeIdle
	return c, nil
}

// Enable turns gesture mode on. On failure gesture mode stays off and the
// error is kept as the status notice.
func (c *Controller) Enable(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enabled {
		return nil
	}

	if c.cfg.Surface == nil {
		return c.fail(ErrNoSurface)
	}
	if c.lingering != nil {
		select {
		case <-c.lingering:
			c.lingering = nil
		default:
			return c.fail(ErrTrackerBusy)
		}
	}
	size, err := c.cfg.Surface.Viewport(ctx)
	if err != nil {
		return c.fail(fmt.Errorf("page unavailable: %w", err))
	}
	if size.Empty() {
		return c.fail(fmt.Errorf("page unavailable: %w", ErrEmptyViewport))
	}
	if err := c.cfg.Camera.Open(); err != nil {
		return c.fail(fmt.Errorf("camera unavailable: %w", err))
	}

	c.setViewport(size)
	c.slot.Clear()
	c.frames = 0
	c.filter.Reset(size.Center())

	// Gesture mode outlives the request that turned it on.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if err := c.loop.Start(runCtx); err != nil {
		cancel()
		c.cfg.Camera.Close()
		return c.fail(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := c.tracker.Run(runCtx); err != nil {
			c.logger.Error("Tracking ended", zap.Error(err))
			c.setNotice(fmt.Sprintf("tracking stopped: %v", err))
		}
	}()
	c.trackCancel = cancel
	c.trackDone = done
	c.enabled = true

	c.statusMu.Lock()
	c.status.Enabled = true
	c.status.Notice = ""
	c.statusMu.Unlock()

	c.logger.Info("Gesture mode enabled", zap.Float64("width", size.Width), zap.Float64("height", size.Height))
	return nil
}

// Disable turns gesture mode off, releasing any grab and leaving the cursor
// where it was.
func (c *Controller) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}

	c.loop.Stop()
	c.trackCancel()
	select {
	case <-c.trackDone:
	case <-time.After(c.cfg.StopTimeout):
		// The run exits once its blocking call returns; Enable waits for it.
		c.logger.Warn("Tracker did not stop in time", zap.Duration("timeout", c.cfg.StopTimeout))
		c.lingering = c.trackDone
	}
	c.trackCancel, c.trackDone = nil, nil

	if err := c.cfg.Camera.Close(); err != nil {
		c.logger.Warn("Failed to close camera", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	c.dispatcher.Reset(ctx)
	c.filter.Reset(c.filter.State().Current)
	c.slot.Clear()
	c.applyPending()

	if c.cfg.Surface != nil {
		if err := c.cfg.Surface.Draw(ctx, overlay.Frame{Mode: string(interaction.ModeIdle)}); err != nil {
			c.logger.Debug("Failed to hide cursor", zap.Error(err))
		}
	}

	c.enabled = false
	c.statusMu.Lock()
	c.status.Enabled = false
	c.status.HandPresent = false
	c.status.Gesture = gesture.None
	c.status.Pose = gesture.PoseUnknown
	c.status.Mode = interaction.ModeIdle
	c.statusMu.Unlock()

	c.logger.Info("Gesture mode disabled")
}

// SetEnabled is Enable or Disable for callers that hold a boolean.
func (c *Controller) SetEnabled(ctx context.Context, on bool) error {
	if on {
		return c.Enable(ctx)
	}
	c.Disable()
	return nil
}

// Enabled reports whether gesture mode is on.
func (c *Controller) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Close disables gesture mode and shuts the detector down.
func (c *Controller) Close() error {
	c.Disable()
	return c.cfg.Detector.Close()
}

// Status returns the latest snapshot.
func (c *Controller) Status() Status {
	c.statusMu.RLock()
	s := c.status
	c.statusMu.RUnlock()

	s.Frames = c.loop.Ticks()
	s.Panics = c.loop.Panics()
	s.Drops = c.slot.Drops()
	return s
}

// Slot is where tracked observations are published.
func (c *Controller) Slot() *tracker.Slot {
	return c.slot
}

// Tuning returns the active tuning values.
func (c *Controller) Tuning() config.Tuning {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tuning
}

// ApplyTuning validates t, saves it when a store is configured and applies
// it. While gesture mode is on, filter and dispatcher changes take effect on
// the next render frame.
func (c *Controller) ApplyTuning(t config.Tuning) error {
	if err := t.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.Store != nil {
		if err := c.cfg.Store.SaveTuning(t); err != nil {
			return fmt.Errorf("failed to save tuning: %w", err)
		}
	}

	c.tuning = t
	c.tracker.SetThresholds(t.Gesture)

	c.pendingMu.Lock()
	c.pending = &t
	c.pendingMu.Unlock()
	if !c.enabled {
		c.applyPending()
	}

	c.logger.Info("Tuning updated",
		zap.Float64("pinch", t.Gesture.Pinch),
		zap.Float64("stiffness", t.Motion.Stiffness),
		zap.Float64("damping", t.Motion.Damping),
		zap.Duration("click_cooldown", t.Interaction.ClickCooldown),
	)
	return nil
}

// CaptureSample stores the hand currently in view under label.
func (c *Controller) CaptureSample(label gesture.Label) (*store.Sample, error) {
	if c.cfg.Store == nil {
		return nil, ErrNoStore
	}
	if _, ok := gesture.ParseLabel(string(label)); !ok {
		return nil, fmt.Errorf("unknown gesture label %q", label)
	}

	c.statusMu.RLock()
	obs := c.last
	c.statusMu.RUnlock()
	if !obs.HandPresent || obs.Landmarks == nil {
		return nil, ErrNoHand
	}

	sample := &store.Sample{
		Label:     label,
		Predicted: obs.Gesture,
		Landmarks: *obs.Landmarks,
		Score:     obs.Confidence,
	}
	if err := c.cfg.Store.Samples().Create(sample); err != nil {
		return nil, err
	}
	c.logger.Info("Sample captured",
		zap.String("id", sample.ID),
		zap.String("label", string(label)),
		zap.String("predicted", string(obs.Gesture)),
	)
	return sample, nil
}

// Report evaluates the current classifier against the stored samples.
func (c *Controller) Report() (gesture.Report, error) {
	if c.cfg.Store == nil {
		return gesture.Report{}, ErrNoStore
	}
	return SampleReport(c.cfg.Store, c.tracker.Classifier())
}

// SampleReport evaluates classifier against every sample in st.
func SampleReport(st *store.Store, classifier *gesture.Classifier) (gesture.Report, error) {
	samples, err := st.Samples().List()
	if err != nil {
		return gesture.Report{}, fmt.Errorf("failed to list samples: %w", err)
	}
	cases := make([]gesture.Case, len(samples))
	for i, s := range samples {
		cases[i] = gesture.Case{Label: s.Label, Landmarks: s.Landmarks}
	}
	return gesture.Evaluate(classifier, cases), nil
}

func (c *Controller) fail(err error) error {
	c.logger.Error("Failed to enable gesture mode", zap.Error(err))
	c.setNotice(err.Error())
	return err
}

func (c *Controller) setNotice(msg string) {
	c.statusMu.Lock()
	c.status.Notice = msg
	c.statusMu.Unlock()
}

func (c *Controller) setViewport(size geom.Size) {
	c.viewport = size
	c.tracker.SetViewport(size)
	c.dispatcher.SetViewport(size)
	c.statusMu.Lock()
	c.status.Viewport = size
	c.statusMu.Unlock()
}

// applyPending hands queued tuning to the filter and dispatcher. It runs on
// the render goroutine, or with the loop stopped.
func (c *Controller) applyPending() {
	c.pendingMu.Lock()
	t := c.pending
	c.pending = nil
	c.pendingMu.Unlock()
	if t == nil {
		return
	}

	if err := c.filter.SetParams(t.Motion); err != nil {
		c.logger.Warn("Rejected motion parameters", zap.Error(err))
	}
	if err := c.dispatcher.SetConfig(t.Interaction); err != nil {
		c.logger.Warn("Rejected interaction parameters", zap.Error(err))
	}
}
