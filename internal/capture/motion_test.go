package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"
)

func TestNewMotionDetector(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		want      float64
	}{
		{"explicit", 5.0, 5.0},
		{"fractional", 0.5, 0.5},
		{"zero uses default", 0, DefaultMotionThreshold},
		{"negative uses default", -2, DefaultMotionThreshold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := NewMotionDetector(tt.threshold)
			defer md.Close()
			assert.Equal(t, tt.want, md.Threshold())
			assert.False(t, md.initialized)
		})
	}
}

func TestMotionDetector_StillScene(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1.0)
	defer md.Close()

	frame1 := gocv.NewMatWithSize(DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
	defer frame1.Close()
	frame2 := gocv.NewMatWithSize(DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
	defer frame2.Close()

	moved, changed := md.Detect(&frame1)
	assert.False(t, moved, "first frame only sets the baseline")
	assert.Zero(t, changed)

	moved, changed = md.Detect(&frame2)
	assert.False(t, moved, "changed = %f", changed)
}

func TestMotionDetector_SceneChange(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1.0)
	defer md.Close()

	black := gocv.NewMatWithSize(DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
	defer black.Close()
	white := gocv.NewMatWithSize(DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
	defer white.Close()
	white.SetTo(gocv.NewScalar(255, 255, 255, 0))

	md.Detect(&black)
	moved, changed := md.Detect(&white)
	assert.True(t, moved)
	assert.Greater(t, changed, 50.0)
}

func TestMotionDetector_ResolutionChangeRebaselines(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1.0)
	defer md.Close()

	small := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	defer small.Close()
	large := gocv.NewMatWithSize(DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
	defer large.Close()
	large.SetTo(gocv.NewScalar(255, 255, 255, 0))

	md.Detect(&small)
	moved, changed := md.Detect(&large)
	assert.False(t, moved)
	assert.Zero(t, changed)
}

func TestMotionDetector_Reset(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1.0)
	defer md.Close()

	frame := gocv.NewMatWithSize(DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
	defer frame.Close()

	md.Detect(&frame)
	assert.True(t, md.initialized)

	md.Reset()
	assert.False(t, md.initialized)
	assert.True(t, md.prevGray.Empty())
}

func TestMotionDetector_SetThreshold(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	md.SetThreshold(5.0)
	assert.Equal(t, 5.0, md.Threshold())

	md.SetThreshold(-1.0)
	assert.Equal(t, 5.0, md.Threshold(), "negative threshold is ignored")
}

func TestMotionDetector_NilFrame(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	moved, changed := md.Detect(nil)
	assert.False(t, moved)
	assert.Zero(t, changed)
}

func TestMotionDetector_CloseTwice(t *testing.T) {
	md := NewMotionDetector(1.0)
	assert.NotPanics(t, func() {
		md.Close()
		md.Close()
	})
}
