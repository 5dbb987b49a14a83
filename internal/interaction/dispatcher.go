// Package interaction turns classified gestures and a filtered cursor
// position into synthetic pointer, mouse and wheel events on a page.
package interaction

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ayusman/mudra/internal/geom"
	"github.com/ayusman/mudra/internal/gesture"
)

// Mode is the dispatcher's state machine state.
type Mode string

const (
	ModeIdle      Mode = "idle"
	ModeHovering  Mode = "hovering"
	ModeGrabbing  Mode = "grabbing"
	ModeScrolling Mode = "scrolling"
	ModeClicking  Mode = "clicking"
)

// Direction is the scroll direction.
type Direction int

const (
	DirectionNone Direction = 0
	DirectionUp   Direction = -1
	DirectionDown Direction = 1
)

func (d Direction) String() string {
	switch d {
	case DirectionUp:
		return "up"
	case DirectionDown:
		return "down"
	default:
		return "none"
	}
}

// Frame is the per-render-frame input.
type Frame struct {
	Gesture     gesture.Label
	Position    geom.Point
	HandPresent bool
}

// State is a snapshot of the interaction bookkeeping.
type State struct {
	Grabbing            bool      `json:"grabbing"`
	GrabTarget          Handle    `json:"grab_target,omitempty"`
	LastHovered         Handle    `json:"last_hovered,omitempty"`
	ClickCooldownActive bool      `json:"click_cooldown_active"`
	ScrollDirection     Direction `json:"scroll_direction"`
	ScrollSpeed         float64   `json:"scroll_speed"`
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock overrides the time source used by the click cooldown.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger.Named("dispatcher") }
}

// Dispatcher is the hover/grab/scroll/click state machine. It is driven from
// a single goroutine and is not safe for concurrent use.
type Dispatcher struct {
	page     Page
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
	clicks   *rate.Limiter
	viewport geom.Size

	mode    Mode
	state   State
	lastPos geom.Point
}

// NewDispatcher creates a Dispatcher for page. An invalid cfg falls back to
// DefaultConfig.
func NewDispatcher(page Page, cfg Config, opts ...Option) *Dispatcher {
	if cfg.Validate() != nil {
		cfg = DefaultConfig()
	}
	if cfg.PointerType == "" {
		cfg.PointerType = "touch"
	}
	d := &Dispatcher{
		page:   page,
		cfg:    cfg,
		logger: zap.NewNop(),
		now:    time.Now,
		mode:   ModeIdle,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.clicks = rate.NewLimiter(rate.Every(cfg.ClickCooldown), 1)
	return d
}

// Config returns the active tuning.
func (d *Dispatcher) Config() Config {
	return d.cfg
}

// SetConfig applies new tuning. A pending cooldown keeps its start time.
func (d *Dispatcher) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.PointerType == "" {
		cfg.PointerType = "touch"
	}
	d.cfg = cfg
	d.clicks.SetLimitAt(d.now(), rate.Every(cfg.ClickCooldown))
	return nil
}

// SetViewport sets the page size used to split scroll direction.
func (d *Dispatcher) SetViewport(size geom.Size) {
	d.viewport = size
}

// Mode returns the current state machine state.
func (d *Dispatcher) Mode() Mode {
	return d.mode
}

// State returns a snapshot of the interaction state.
func (d *Dispatcher) State() State {
	s := d.state
	s.ClickCooldownActive = d.clicks.TokensAt(d.now()) < 1
	return s
}

// OnFrame advances the state machine by one render frame.
func (d *Dispatcher) OnFrame(ctx context.Context, f Frame) {
	if !f.HandPresent {
		d.Reset(ctx)
		return
	}
	d.lastPos = f.Position

	if f.Gesture != gesture.Grab && d.state.Grabbing {
		d.Release(ctx)
	}
	if f.Gesture != gesture.Scroll {
		d.resetScroll()
	}

	switch f.Gesture {
	case gesture.Click:
		d.mode = ModeClicking
		d.click(ctx, f.Position)
	case gesture.Grab:
		d.mode = ModeGrabbing
		if d.state.Grabbing {
			d.drag(ctx, f.Position)
		} else {
			d.grab(ctx, f.Position)
		}
	case gesture.Scroll:
		d.mode = ModeScrolling
		d.scroll(ctx, f.Position)
	default:
		d.mode = ModeHovering
		d.hover(ctx, f.Position)
	}
}

// Release ends an active grab: up events to the grabbed element and the
// document, then pointer capture is released. Calling it with no grab in
// progress does nothing.
func (d *Dispatcher) Release(ctx context.Context) {
	if !d.state.Grabbing {
		return
	}
	target := d.state.GrabTarget
	at := d.lastPos
	d.state.Grabbing = false
	d.state.GrabTarget = NoElement

	if target != NoElement && d.exists(ctx, target) {
		d.send(ctx, Element(target), at, 0, PointerUp, MouseUp)
		if err := d.page.ReleasePointerCapture(ctx, target, d.cfg.PointerID); err != nil {
			d.logger.Debug("Release pointer capture failed", zap.String("handle", string(target)), zap.Error(err))
		}
	}
	d.send(ctx, Document(), at, 0, PointerUp, MouseUp)
	d.logger.Debug("Grab released", zap.String("handle", string(target)))
}

// Reset is the tracking-lost path: release any grab, stop scrolling and
// leave the hovered element.
func (d *Dispatcher) Reset(ctx context.Context) {
	d.Release(ctx)
	d.resetScroll()
	if h := d.state.LastHovered; h != NoElement {
		d.state.LastHovered = NoElement
		if d.exists(ctx, h) {
			d.send(ctx, Element(h), d.lastPos, 0, PointerOut, PointerLeave, MouseOut, MouseLeave)
		}
	}
	d.mode = ModeIdle
}
