package capture

import "time"

// Cadence defaults: a slow idle poll and a faster tracking rate.
const (
	IdleFPS            = 5
	ActiveFPS          = 15
	DefaultIdleTimeout = 2 * time.Second
)

// GateConfig tunes the idle/active cadence.
type GateConfig struct {
	IdleFPS     int           `mapstructure:"idle_fps" json:"idle_fps"`
	ActiveFPS   int           `mapstructure:"active_fps" json:"active_fps"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout" json:"idle_timeout"`
}

// DefaultGateConfig returns 5/15 FPS with a two second idle timeout.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		IdleFPS:     IdleFPS,
		ActiveFPS:   ActiveFPS,
		IdleTimeout: DefaultIdleTimeout,
	}
}

// Decision is the outcome of one Gate update.
type Decision struct {
	// Process says whether the frame should go to the detector.
	Process bool
	// FPS is the capture rate to use from now on.
	FPS int
	// Changed is set when the gate flipped between idle and active.
	Changed bool
}

// Gate switches between an idle cadence that only watches for motion and an
// active cadence that runs hand detection on every frame. A tracked hand
// keeps the gate active even when the scene is otherwise still.
type Gate struct {
	cfg      GateConfig
	active   bool
	lastSeen time.Time
}

// NewGate creates an idle Gate.
func NewGate(cfg GateConfig) *Gate {
	def := DefaultGateConfig()
	if cfg.IdleFPS <= 0 {
		cfg.IdleFPS = def.IdleFPS
	}
	if cfg.ActiveFPS <= 0 {
		cfg.ActiveFPS = def.ActiveFPS
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	return &Gate{cfg: cfg}
}

// Active reports whether the gate is in the tracking cadence.
func (g *Gate) Active() bool {
	return g.active
}

// FPS returns the capture rate for the current state.
func (g *Gate) FPS() int {
	if g.active {
		return g.cfg.ActiveFPS
	}
	return g.cfg.IdleFPS
}

// Update feeds one frame's motion result and whether the previous processed
// frame had a hand.
func (g *Gate) Update(moved, handSeen bool, now time.Time) Decision {
	was := g.active
	if moved || handSeen {
		g.lastSeen = now
		g.active = true
	} else if g.active && now.Sub(g.lastSeen) > g.cfg.IdleTimeout {
		g.active = false
	}
	return Decision{Process: g.active, FPS: g.FPS(), Changed: was != g.active}
}

// Reset returns the gate to idle.
func (g *Gate) Reset() {
	g.active = false
	g.lastSeen = time.Time{}
}
