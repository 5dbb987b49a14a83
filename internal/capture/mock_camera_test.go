package capture

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestMockCamera_Playback(t *testing.T) {
	frame1 := gocv.NewMatWithSize(DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
	defer frame1.Close()
	frame2 := gocv.NewMatWithSize(DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
	defer frame2.Close()

	cam := NewMockCamera([]*gocv.Mat{&frame1, &frame2}, false)

	_, err := cam.ReadFrame()
	assert.ErrorIs(t, err, ErrCameraNotOpen)

	require.NoError(t, cam.Open())
	defer cam.Close()

	for i := 0; i < 2; i++ {
		f, err := cam.ReadFrame()
		require.NoError(t, err)
		f.Close()
	}

	_, err = cam.ReadFrame()
	assert.ErrorIs(t, err, ErrNoFrames)
}

func TestMockCamera_Loop(t *testing.T) {
	frame := gocv.NewMatWithSize(DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
	defer frame.Close()

	cam := NewMockCamera([]*gocv.Mat{&frame}, true)
	require.NoError(t, cam.Open())
	defer cam.Close()

	for i := 0; i < 5; i++ {
		f, err := cam.ReadFrame()
		require.NoError(t, err, "iteration %d", i)
		f.Close()
	}
}

func TestMockCamera_FailOpen(t *testing.T) {
	cam := NewMockCamera(nil, false)
	boom := errors.New("device busy")
	cam.FailOpen(boom)

	assert.ErrorIs(t, cam.Open(), boom)
	assert.False(t, cam.IsOpen())
	assert.Zero(t, cam.Opens())

	cam.FailOpen(nil)
	require.NoError(t, cam.Open())
	assert.Equal(t, 1, cam.Opens())
}

func TestMockCamera_Empty(t *testing.T) {
	cam := NewMockCamera(nil, true)
	require.NoError(t, cam.Open())

	_, err := cam.ReadFrame()
	assert.ErrorIs(t, err, ErrNoFrames)
}
