package detector

import (
	"errors"
	"time"

	"gocv.io/x/gocv"
)

var (
	// ErrServiceNotFound is returned when the MediaPipe helper script cannot be located.
	ErrServiceNotFound = errors.New("mediapipe_service.py not found")
	// ErrResponseTimeout is returned when the helper does not answer a frame in time.
	ErrResponseTimeout = errors.New("mediapipe service did not respond")
)

// Detector defines the interface for hand landmark sources.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands the model reports. The pointer
	// only follows one hand, so anything above 1 just widens the choice Primary makes.
	MaxHands int `mapstructure:"max_hands" json:"max_hands"`

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64 `mapstructure:"min_confidence" json:"min_confidence"`

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64 `mapstructure:"min_tracking_confidence" json:"min_tracking_confidence"`

	// ScriptPath overrides the lookup of mediapipe_service.py.
	ScriptPath string `mapstructure:"script_path" json:"script_path"`

	// PythonPath overrides the interpreter lookup (venv first, then python3).
	PythonPath string `mapstructure:"python_path" json:"python_path"`

	// IdleTimeout shuts the helper process down after this long without a frame.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" json:"idle_timeout"`

	// ResponseTimeout bounds the wait for one frame's result. A helper that
	// misses it is killed and restarted on the next frame.
	ResponseTimeout time.Duration `mapstructure:"response_timeout" json:"response_timeout"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		IdleTimeout:     30 * time.Second,
		ResponseTimeout: 10 * time.Second,
	}
}
