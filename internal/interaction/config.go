package interaction

import (
	"errors"
	"time"

	"github.com/ayusman/mudra/internal/geom"
)

// DefaultPointerID is outside the range browsers hand to real devices.
const DefaultPointerID = 2718

// Config holds the dispatcher's tunables.
type Config struct {
	// ClickCooldown is the minimum spacing between two click sequences.
	ClickCooldown time.Duration `mapstructure:"click_cooldown" json:"click_cooldown"`
	// FuzzyOffsets are probed in order around the cursor when resolving a
	// click target. The exact position is always probed first.
	FuzzyOffsets []geom.Point `mapstructure:"fuzzy_offsets" json:"fuzzy_offsets"`
	// ScrollBaseline is the wheel delta of the first frame in a direction.
	ScrollBaseline float64 `mapstructure:"scroll_baseline" json:"scroll_baseline"`
	// ScrollStep is added to the delta each frame the direction holds.
	ScrollStep float64 `mapstructure:"scroll_step" json:"scroll_step"`
	// ScrollMax caps the delta.
	ScrollMax   float64 `mapstructure:"scroll_max" json:"scroll_max"`
	PointerID   int     `mapstructure:"pointer_id" json:"pointer_id"`
	PointerType string  `mapstructure:"pointer_type" json:"pointer_type"`
}

// DefaultFuzzyOffsets is the exact point, a 10px cross and a 7px diagonal ring.
func DefaultFuzzyOffsets() []geom.Point {
	return []geom.Point{
		{X: 0, Y: 0},
		{X: 10, Y: 0}, {X: -10, Y: 0}, {X: 0, Y: 10}, {X: 0, Y: -10},
		{X: 7, Y: 7}, {X: -7, Y: 7}, {X: 7, Y: -7}, {X: -7, Y: -7},
	}
}

// DefaultConfig returns the stock dispatcher tuning.
func DefaultConfig() Config {
	return Config{
		ClickCooldown:  400 * time.Millisecond,
		FuzzyOffsets:   DefaultFuzzyOffsets(),
		ScrollBaseline: 8,
		ScrollStep:     2,
		ScrollMax:      60,
		PointerID:      DefaultPointerID,
		PointerType:    "touch",
	}
}

// Validate checks the config for values the state machine cannot use.
func (c Config) Validate() error {
	var errs []error
	if c.ClickCooldown <= 0 {
		errs = append(errs, errors.New("click_cooldown must be positive"))
	}
	if c.ScrollBaseline <= 0 {
		errs = append(errs, errors.New("scroll_baseline must be positive"))
	}
	if c.ScrollStep < 0 {
		errs = append(errs, errors.New("scroll_step must not be negative"))
	}
	if c.ScrollMax < c.ScrollBaseline {
		errs = append(errs, errors.New("scroll_max must be at least scroll_baseline"))
	}
	if c.PointerID <= 1 {
		errs = append(errs, errors.New("pointer_id must not collide with the mouse (1)"))
	}
	return errors.Join(errs...)
}

// offsets returns the probe ring with the exact point guaranteed first.
func (c Config) offsets() []geom.Point {
	out := []geom.Point{{}}
	for _, o := range c.FuzzyOffsets {
		if o != (geom.Point{}) {
			out = append(out, o)
		}
	}
	return out
}
