package gesture

import (
	"github.com/ayusman/mudra/internal/detector"
)

const (
	// DefaultPinchThreshold is the thumb-to-index tip distance, in normalized
	// frame units, under which a hand counts as pinching.
	DefaultPinchThreshold = 0.07
	// DefaultExtensionMargin is how far above its MCP joint a finger tip must
	// sit to count as extended.
	DefaultExtensionMargin = 0.02
)

// Thresholds are the tunable classification constants.
type Thresholds struct {
	Pinch           float64 `mapstructure:"pinch_threshold" json:"pinch_threshold"`
	ExtensionMargin float64 `mapstructure:"extension_margin" json:"extension_margin"`
}

// DefaultThresholds returns the thresholds used when nothing is configured.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Pinch:           DefaultPinchThreshold,
		ExtensionMargin: DefaultExtensionMargin,
	}
}

// FingerState reports which of the four non-thumb fingers are extended.
type FingerState struct {
	Index  bool `json:"index"`
	Middle bool `json:"middle"`
	Ring   bool `json:"ring"`
	Pinky  bool `json:"pinky"`
}

// Count returns the number of extended fingers.
func (f FingerState) Count() int {
	n := 0
	for _, e := range []bool{f.Index, f.Middle, f.Ring, f.Pinky} {
		if e {
			n++
		}
	}
	return n
}

// IndexOnly reports whether the index finger is the only one extended.
func (f FingerState) IndexOnly() bool {
	return f.Index && !f.Middle && !f.Ring && !f.Pinky
}

// Classifier maps one landmark set to a label. It keeps no per-frame state
// and is safe for concurrent use as long as Thresholds is not mutated.
type Classifier struct {
	Thresholds Thresholds
}

// NewClassifier creates a Classifier with the given thresholds. Zero values
// fall back to the defaults.
func NewClassifier(t Thresholds) *Classifier {
	if t.Pinch <= 0 {
		t.Pinch = DefaultPinchThreshold
	}
	if t.ExtensionMargin < 0 {
		t.ExtensionMargin = DefaultExtensionMargin
	}
	return &Classifier{Thresholds: t}
}

// Classify returns the label for h. A nil hand means tracking was lost and
// always yields None.
func (c *Classifier) Classify(h *detector.HandLandmarks) Label {
	return c.Pose(h).Intent()
}

// Pose returns the hand shape for h. Pinch wins over any finger-extension
// shape so a closing pinch is caught mid-gesture.
func (c *Classifier) Pose(h *detector.HandLandmarks) Pose {
	if h == nil {
		return PoseUnknown
	}
	if c.PinchDistance(h) < c.Thresholds.Pinch {
		return PosePinch
	}

	f := c.Fingers(h)
	switch {
	case f.IndexOnly():
		return PosePoint
	case f.Count() == 4:
		return PoseOpen
	case f.Count() == 0:
		return PoseFist
	default:
		return PoseUnknown
	}
}

// Fingers tests each finger tip against its MCP joint. Image Y grows
// downward, so an extended finger has the smaller Y.
func (c *Classifier) Fingers(h *detector.HandLandmarks) FingerState {
	ext := func(tip, mcp int) bool {
		return h.Points[tip].Y < h.Points[mcp].Y-c.Thresholds.ExtensionMargin
	}
	return FingerState{
		Index:  ext(detector.IndexTip, detector.IndexMCP),
		Middle: ext(detector.MiddleTip, detector.MiddleMCP),
		Ring:   ext(detector.RingTip, detector.RingMCP),
		Pinky:  ext(detector.PinkyTip, detector.PinkyMCP),
	}
}

// PinchDistance is the planar thumb-tip to index-tip distance.
func (c *Classifier) PinchDistance(h *detector.HandLandmarks) float64 {
	return h.Distance2D(detector.ThumbTip, detector.IndexTip)
}
