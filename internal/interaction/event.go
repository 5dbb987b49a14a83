package interaction

import (
	"context"
	"errors"

	"github.com/ayusman/mudra/internal/geom"
)

// ErrDetached is returned when an event targets an element that is no longer
// in the document.
var ErrDetached = errors.New("element is not attached")

// EventType is a DOM event name.
type EventType string

const (
	PointerOver  EventType = "pointerover"
	PointerEnter EventType = "pointerenter"
	PointerOut   EventType = "pointerout"
	PointerLeave EventType = "pointerleave"
	PointerMove  EventType = "pointermove"
	PointerDown  EventType = "pointerdown"
	PointerUp    EventType = "pointerup"

	MouseOver  EventType = "mouseover"
	MouseEnter EventType = "mouseenter"
	MouseOut   EventType = "mouseout"
	MouseLeave EventType = "mouseleave"
	MouseMove  EventType = "mousemove"
	MouseDown  EventType = "mousedown"
	MouseUp    EventType = "mouseup"
	Click      EventType = "click"

	Wheel EventType = "wheel"
)

// IsPointer reports whether the event belongs to the PointerEvent family.
func (t EventType) IsPointer() bool {
	switch t {
	case PointerOver, PointerEnter, PointerOut, PointerLeave, PointerMove, PointerDown, PointerUp:
		return true
	}
	return false
}

// Handle identifies an element in the page. The page owns the element; a
// handle is only a lookup key and may outlive it.
type Handle string

// NoElement is the zero handle.
const NoElement Handle = ""

// TargetKind says where an event is dispatched.
type TargetKind string

const (
	TargetElement  TargetKind = "element"
	TargetDocument TargetKind = "document"
	TargetWindow   TargetKind = "window"
)

// Target is an event destination.
type Target struct {
	Kind   TargetKind `json:"kind"`
	Handle Handle     `json:"handle,omitempty"`
}

// Element targets the element behind h.
func Element(h Handle) Target { return Target{Kind: TargetElement, Handle: h} }

// Document targets the page's document.
func Document() Target { return Target{Kind: TargetDocument} }

// Window targets the page's window.
func Window() Target { return Target{Kind: TargetWindow} }

// Event is one synthetic input event. Every event bubbles and is cancelable
// so delegated listeners see it like real input.
type Event struct {
	Type        EventType `json:"type"`
	Target      Target    `json:"target"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	DeltaY      float64   `json:"deltaY,omitempty"`
	Button      int       `json:"button"`
	Buttons     int       `json:"buttons"`
	PointerID   int       `json:"pointerId"`
	PointerType string    `json:"pointerType"`
	IsPrimary   bool      `json:"isPrimary"`
	Bubbles     bool      `json:"bubbles"`
	Cancelable  bool      `json:"cancelable"`
}

// Hit is the result of hit-testing one point.
type Hit struct {
	Handle Handle `json:"handle"`
	// Actionable is true when the element is a button or link, or sits
	// inside one.
	Actionable bool `json:"actionable"`
}

// Page is the surface the dispatcher drives. Implementations must tolerate
// handles whose element has since been removed.
type Page interface {
	// HitTest returns the topmost element at p, or a zero Hit.
	HitTest(ctx context.Context, p geom.Point) (Hit, error)
	// Exists reports whether h still refers to an element attached to the page.
	Exists(ctx context.Context, h Handle) (bool, error)
	// Dispatch delivers ev synchronously.
	Dispatch(ctx context.Context, ev Event) error
	// SetPointerCapture routes later pointer events for pointerID to h.
	SetPointerCapture(ctx context.Context, h Handle, pointerID int) error
	// ReleasePointerCapture undoes SetPointerCapture.
	ReleasePointerCapture(ctx context.Context, h Handle, pointerID int) error
}
