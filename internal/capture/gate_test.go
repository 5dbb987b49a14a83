package capture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGate_Cadence(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewGate(DefaultGateConfig())
	assert.False(t, g.Active())
	assert.Equal(t, IdleFPS, g.FPS())

	d := g.Update(false, false, start)
	assert.Equal(t, Decision{Process: false, FPS: IdleFPS}, d)

	d = g.Update(true, false, start.Add(200*time.Millisecond))
	assert.Equal(t, Decision{Process: true, FPS: ActiveFPS, Changed: true}, d)

	// Still scene inside the timeout stays active.
	d = g.Update(false, false, start.Add(2*time.Second))
	assert.Equal(t, Decision{Process: true, FPS: ActiveFPS}, d)

	d = g.Update(false, false, start.Add(2300*time.Millisecond))
	assert.Equal(t, Decision{Process: false, FPS: IdleFPS, Changed: true}, d)
}

func TestGate_HandKeepsActive(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewGate(DefaultGateConfig())

	g.Update(true, false, start)
	for i := 1; i <= 20; i++ {
		d := g.Update(false, true, start.Add(time.Duration(i)*time.Second))
		assert.True(t, d.Process, "second %d", i)
	}

	d := g.Update(false, false, start.Add(23*time.Second))
	assert.False(t, d.Process)
}

func TestGate_Reset(t *testing.T) {
	g := NewGate(GateConfig{})
	g.Update(true, false, time.Now())
	assert.True(t, g.Active())

	g.Reset()
	assert.False(t, g.Active())
}

func TestNewGate_Defaults(t *testing.T) {
	g := NewGate(GateConfig{ActiveFPS: 30})
	assert.Equal(t, GateConfig{IdleFPS: IdleFPS, ActiveFPS: 30, IdleTimeout: DefaultIdleTimeout}, g.cfg)
}
