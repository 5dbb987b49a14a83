package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoint_Arithmetic(t *testing.T) {
	p := Point{X: 3, Y: 4}
	q := Point{X: 1, Y: -2}

	assert.Equal(t, Point{X: 4, Y: 2}, p.Add(q))
	assert.Equal(t, Point{X: 2, Y: 6}, p.Sub(q))
	assert.Equal(t, Point{X: 1.5, Y: 2}, p.Scale(0.5))
	assert.InDelta(t, 5.0, p.Mag(), 1e-12)
	assert.InDelta(t, 0.0, p.Dist(p), 1e-12)
	assert.InDelta(t, 5.0, Point{}.Dist(p), 1e-12)
}

func TestSize(t *testing.T) {
	s := Size{Width: 800, Height: 600}

	assert.False(t, s.Empty())
	assert.True(t, Size{Width: 800}.Empty())
	assert.Equal(t, Point{X: 400, Y: 300}, s.Center())

	tests := []struct {
		p    Point
		want bool
	}{
		{Point{X: 0, Y: 0}, true},
		{Point{X: 799.9, Y: 599.9}, true},
		{Point{X: 800, Y: 10}, false},
		{Point{X: 10, Y: 600}, false},
		{Point{X: -1, Y: 10}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.Contains(tt.p), "%+v", tt.p)
	}
}
