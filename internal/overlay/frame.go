// Package overlay carries per-frame feedback (gesture, cursor, landmarks) to
// whatever draws it: the in-page cursor and websocket viewers.
package overlay

import (
	"context"
	"errors"

	"github.com/ayusman/mudra/internal/detector"
)

// Frame is what an overlay needs to draw one render frame.
type Frame struct {
	Gesture     string                  `json:"gesture"`
	Pose        string                  `json:"pose"`
	Mode        string                  `json:"mode"`
	X           float64                 `json:"x"`
	Y           float64                 `json:"y"`
	Confidence  float64                 `json:"confidence"`
	HandPresent bool                    `json:"hand_present"`
	Landmarks   *detector.HandLandmarks `json:"landmarks,omitempty"`
	Timestamp   int64                   `json:"timestamp"`
}

// Sink consumes overlay frames. Draw is called from the render loop and
// must not block for long.
type Sink interface {
	Draw(ctx context.Context, f Frame) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, f Frame) error

// Draw implements Sink.
func (fn SinkFunc) Draw(ctx context.Context, f Frame) error {
	return fn(ctx, f)
}

// Multi fans a frame out to several sinks. Every sink is called even when an
// earlier one fails.
type Multi []Sink

// Draw implements Sink.
func (m Multi) Draw(ctx context.Context, f Frame) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Draw(ctx, f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
