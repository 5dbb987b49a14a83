// Package gesture classifies a single frame's hand landmarks into a discrete
// gesture label.
package gesture

// Label is the actionable gesture for one frame.
type Label string

const (
	None   Label = "none"
	Point  Label = "point"
	Click  Label = "click"
	Grab   Label = "grab"
	Scroll Label = "scroll"
)

// Labels lists every label in a stable order.
var Labels = []Label{None, Point, Click, Grab, Scroll}

// ParseLabel returns the label named s and whether it is known.
func ParseLabel(s string) (Label, bool) {
	for _, l := range Labels {
		if string(l) == s {
			return l, true
		}
	}
	return None, false
}

// Pose is the hand shape that produces a Label. Several shapes can share an
// intent, so poses are kept separate for feedback and calibration.
type Pose string

const (
	PoseUnknown Pose = "unknown"
	PoseOpen    Pose = "open"
	PosePoint   Pose = "point"
	PosePinch   Pose = "pinch"
	PoseFist    Pose = "fist"
)

// Intent maps a pose to the label the dispatcher acts on.
func (p Pose) Intent() Label {
	switch p {
	case PoseOpen:
		return Grab
	case PosePoint:
		return Point
	case PosePinch:
		return Click
	case PoseFist:
		return Scroll
	default:
		return None
	}
}
