package motion

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/geom"
)

func TestFilter_ConvergesToConstantTarget(t *testing.T) {
	f := NewFilter(DefaultParams())
	f.SetTarget(geom.Point{X: 0, Y: 0})
	target := geom.Point{X: 1000, Y: -400}
	f.SetTarget(target)

	for i := 0; i < 300; i++ {
		f.Step()
	}

	s := f.State()
	assert.InDelta(t, target.X, s.Current.X, 1e-6)
	assert.InDelta(t, target.Y, s.Current.Y, 1e-6)
	assert.Less(t, s.Velocity.Mag(), 1e-6)
	assert.True(t, f.Settled(1e-6))
}

func TestFilter_VelocityDecays(t *testing.T) {
	f := NewFilter(DefaultParams())
	f.SetTarget(geom.Point{})
	f.SetTarget(geom.Point{X: 500})

	// Peak speed over successive windows must shrink: no sustained oscillation.
	prev := math.Inf(1)
	for w := 0; w < 6; w++ {
		peak := 0.0
		for i := 0; i < 20; i++ {
			f.Step()
			peak = math.Max(peak, f.State().Velocity.Mag())
		}
		assert.Less(t, peak, prev, "window %d", w)
		prev = peak
	}
}

func TestFilter_NeverTeleports(t *testing.T) {
	f := NewFilter(DefaultParams())
	f.SetTarget(geom.Point{})
	f.SetTarget(geom.Point{X: 1000})

	last := f.State().Current
	maxX := 0.0
	for i := 0; i < 200; i++ {
		f.Step()
		cur := f.State().Current
		assert.Less(t, cur.Dist(last), 250.0, "step %d jumped", i)
		maxX = math.Max(maxX, cur.X)
		last = cur
	}
	// Overshoot is allowed but bounded.
	assert.Greater(t, maxX, 1000.0)
	assert.Less(t, maxX, 1300.0)
}

func TestFilter_FirstTargetSnaps(t *testing.T) {
	f := NewFilter(DefaultParams())
	require.False(t, f.HasTarget())

	p := geom.Point{X: 320, Y: 240}
	f.SetTarget(p)

	assert.True(t, f.HasTarget())
	assert.Equal(t, p, f.State().Current)
	assert.Equal(t, p, f.Step())
}

func TestFilter_ProjectionLeadsMotion(t *testing.T) {
	f := NewFilter(DefaultParams())
	f.SetTarget(geom.Point{})
	f.SetTarget(geom.Point{X: 100})

	projected := f.Step()
	s := f.State()
	assert.InDelta(t, s.Current.X+s.Velocity.X*DefaultProjection, projected.X, 1e-9)
	assert.Greater(t, projected.X, s.Current.X)
}

func TestFilter_StepWithoutTarget(t *testing.T) {
	f := NewFilter(DefaultParams())
	assert.Equal(t, geom.Point{}, f.Step())
}

func TestFilter_ResetKeepsPosition(t *testing.T) {
	f := NewFilter(DefaultParams())
	f.SetTarget(geom.Point{})
	f.SetTarget(geom.Point{X: 300, Y: 300})
	for i := 0; i < 5; i++ {
		f.Step()
	}
	at := f.State().Current

	f.Reset(at)

	s := f.State()
	assert.Equal(t, at, s.Current)
	assert.Equal(t, geom.Point{}, s.Velocity)
	assert.False(t, f.HasTarget())
	assert.Equal(t, at, f.Step())
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"defaults", DefaultParams(), false},
		{"zero stiffness", Params{Stiffness: 0, Damping: 0.7, Projection: 1}, true},
		{"undamped", Params{Stiffness: 0.1, Damping: 1, Projection: 1}, true},
		{"negative projection", Params{Stiffness: 0.1, Damping: 0.5, Projection: -1}, true},
		{"no projection", Params{Stiffness: 0.1, Damping: 0.5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFilter_SetParams(t *testing.T) {
	f := NewFilter(Params{})
	assert.Equal(t, DefaultParams(), f.Params())

	require.Error(t, f.SetParams(Params{Stiffness: 2, Damping: 0.5}))
	assert.Equal(t, DefaultParams(), f.Params())

	p := Params{Stiffness: 0.3, Damping: 0.6, Projection: 0}
	require.NoError(t, f.SetParams(p))
	assert.Equal(t, p, f.Params())
}
