package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCamera(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantFPS int
	}{
		{"defaults", DefaultConfig(), DefaultFPS},
		{"zero config", Config{}, DefaultFPS},
		{"explicit rate", Config{DeviceID: 1, Width: 1280, Height: 720, FPS: 30}, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := NewCamera(tt.cfg)
			require.NotNil(t, cam)
			assert.Equal(t, tt.wantFPS, cam.FPS())
			assert.False(t, cam.IsOpen())
		})
	}
}

func TestCamera_SetFPS(t *testing.T) {
	cam := NewCamera(DefaultConfig())

	steps := []struct {
		name    string
		fps     int
		wantFPS int
	}{
		{"raise to active", ActiveFPS, ActiveFPS},
		{"drop to idle", IdleFPS, IdleFPS},
		{"zero keeps previous", 0, IdleFPS},
		{"negative keeps previous", -5, IdleFPS},
	}

	for _, s := range steps {
		t.Run(s.name, func(t *testing.T) {
			cam.SetFPS(s.fps)
			assert.Equal(t, s.wantFPS, cam.FPS())
		})
	}
}

func TestCamera_NotOpened(t *testing.T) {
	cam := NewCamera(DefaultConfig())

	_, err := cam.ReadFrame()
	assert.ErrorIs(t, err, ErrCameraNotOpen)
	assert.NoError(t, cam.Close())
}

func TestCamera_OpenClose_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cam := NewCamera(DefaultConfig())
	if err := cam.Open(); err != nil {
		t.Skipf("camera not available: %v", err)
	}
	assert.True(t, cam.IsOpen())
	require.NoError(t, cam.Open(), "reopening is a no-op")

	mat, err := cam.ReadFrame()
	require.NoError(t, err)
	require.NotNil(t, mat)
	assert.False(t, mat.Empty())
	mat.Close()

	require.NoError(t, cam.Close())
	assert.False(t, cam.IsOpen())
}
