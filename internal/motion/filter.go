// Package motion smooths the noisy landmark-derived target into a stable
// cursor using a spring-damper integrator with forward velocity projection.
package motion

import (
	"fmt"

	"github.com/ayusman/mudra/internal/geom"
)

// Default tuning. With these values the integrator is under-damped but the
// per-step contraction is below one, so it settles after a short wobble.
const (
	DefaultStiffness  = 0.15
	DefaultDamping    = 0.75
	DefaultProjection = 1.8
)

// Params are the filter constants.
type Params struct {
	Stiffness  float64 `mapstructure:"stiffness" json:"stiffness"`
	Damping    float64 `mapstructure:"damping" json:"damping"`
	Projection float64 `mapstructure:"projection" json:"projection"`
}

// DefaultParams returns the default filter constants.
func DefaultParams() Params {
	return Params{
		Stiffness:  DefaultStiffness,
		Damping:    DefaultDamping,
		Projection: DefaultProjection,
	}
}

// Validate rejects constants that would let the integrator gain energy.
func (p Params) Validate() error {
	if p.Stiffness <= 0 || p.Stiffness >= 1 {
		return fmt.Errorf("stiffness must be in (0, 1), got %v", p.Stiffness)
	}
	if p.Damping <= 0 || p.Damping >= 1 {
		return fmt.Errorf("damping must be in (0, 1), got %v", p.Damping)
	}
	if p.Projection < 0 {
		return fmt.Errorf("projection must be non-negative, got %v", p.Projection)
	}
	return nil
}

// State is the integrator state in page pixels.
type State struct {
	Target   geom.Point `json:"target"`
	Current  geom.Point `json:"current"`
	Velocity geom.Point `json:"velocity"`
}

// Filter integrates State once per rendered frame. It is not safe for
// concurrent use; the render loop owns it.
type Filter struct {
	params    Params
	state     State
	hasTarget bool
}

// NewFilter creates a Filter. Invalid params fall back to the defaults.
func NewFilter(p Params) *Filter {
	if p.Validate() != nil {
		p = DefaultParams()
	}
	return &Filter{params: p}
}

// Params returns the active constants.
func (f *Filter) Params() Params {
	return f.params
}

// SetParams swaps the constants without disturbing the state.
func (f *Filter) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	f.params = p
	return nil
}

// SetTarget records the newest raw position. The very first target snaps the
// cursor there so it does not sweep in from the origin.
func (f *Filter) SetTarget(p geom.Point) {
	f.state.Target = p
	if !f.hasTarget {
		f.state.Current = p
		f.state.Velocity = geom.Point{}
		f.hasTarget = true
	}
}

// HasTarget reports whether a target has been set since the last Reset.
func (f *Filter) HasTarget() bool {
	return f.hasTarget
}

// Step advances one frame and returns the projected position, which is what
// hit-testing and dispatch should use.
func (f *Filter) Step() geom.Point {
	if !f.hasTarget {
		return f.state.Current
	}
	force := f.state.Target.Sub(f.state.Current).Scale(f.params.Stiffness)
	f.state.Velocity = f.state.Velocity.Add(force).Scale(f.params.Damping)
	f.state.Current = f.state.Current.Add(f.state.Velocity)
	return f.Projected()
}

// Projected extrapolates Current along Velocity.
func (f *Filter) Projected() geom.Point {
	return f.state.Current.Add(f.state.Velocity.Scale(f.params.Projection))
}

// State returns a copy of the integrator state.
func (f *Filter) State() State {
	return f.state
}

// Reset parks the cursor at p with no velocity. The next SetTarget snaps.
func (f *Filter) Reset(p geom.Point) {
	f.state = State{Target: p, Current: p}
	f.hasTarget = false
}

// Settled reports whether the cursor is within eps of the target and nearly
// at rest.
func (f *Filter) Settled(eps float64) bool {
	return f.state.Current.Dist(f.state.Target) <= eps && f.state.Velocity.Mag() <= eps
}
