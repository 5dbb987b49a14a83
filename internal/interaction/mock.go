package interaction

import (
	"context"
	"sync"

	"github.com/ayusman/mudra/internal/geom"
)

// MockPage is an in-memory Page made of axis-aligned boxes. Elements added
// later sit on top. Every dispatched event is recorded.
type MockPage struct {
	mu         sync.Mutex
	elements   []mockElement
	events     []Event
	captures   map[Handle]int
	captureErr error
	hitErr     error
}

type mockElement struct {
	handle     Handle
	lo, hi     geom.Point
	actionable bool
	attached   bool
}

// NewMockPage creates an empty MockPage.
func NewMockPage() *MockPage {
	return &MockPage{captures: make(map[Handle]int)}
}

// Add places an element covering the box from lo to hi (inclusive).
func (m *MockPage) Add(h Handle, lo, hi geom.Point, actionable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.elements = append(m.elements, mockElement{handle: h, lo: lo, hi: hi, actionable: actionable, attached: true})
}

// Remove detaches h from the page. Its handle stays resolvable but dead.
func (m *MockPage) Remove(h Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.elements {
		if m.elements[i].handle == h {
			m.elements[i].attached = false
		}
	}
}

// FailPointerCapture makes capture calls return err.
func (m *MockPage) FailPointerCapture(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captureErr = err
}

// FailHitTest makes HitTest return err.
func (m *MockPage) FailHitTest(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hitErr = err
}

// HitTest implements Page.
func (m *MockPage) HitTest(ctx context.Context, p geom.Point) (Hit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hitErr != nil {
		return Hit{}, m.hitErr
	}
	for i := len(m.elements) - 1; i >= 0; i-- {
		e := m.elements[i]
		if e.attached && p.X >= e.lo.X && p.X <= e.hi.X && p.Y >= e.lo.Y && p.Y <= e.hi.Y {
			return Hit{Handle: e.handle, Actionable: e.actionable}, nil
		}
	}
	return Hit{}, nil
}

// Exists implements Page.
func (m *MockPage) Exists(ctx context.Context, h Handle) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attachedLocked(h), nil
}

func (m *MockPage) attachedLocked(h Handle) bool {
	for _, e := range m.elements {
		if e.handle == h {
			return e.attached
		}
	}
	return false
}

// Dispatch implements Page. Events aimed at detached elements fail and are
// not recorded.
func (m *MockPage) Dispatch(ctx context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.Target.Kind == TargetElement && !m.attachedLocked(ev.Target.Handle) {
		return ErrDetached
	}
	m.events = append(m.events, ev)
	return nil
}

// SetPointerCapture implements Page.
func (m *MockPage) SetPointerCapture(ctx context.Context, h Handle, pointerID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.captureErr != nil {
		return m.captureErr
	}
	m.captures[h] = pointerID
	return nil
}

// ReleasePointerCapture implements Page.
func (m *MockPage) ReleasePointerCapture(ctx context.Context, h Handle, pointerID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.captureErr != nil {
		return m.captureErr
	}
	if m.captures[h] == pointerID {
		delete(m.captures, h)
	}
	return nil
}

// Events returns a copy of every recorded event.
func (m *MockPage) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// Count returns how many recorded events have type t.
func (m *MockPage) Count(t EventType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, ev := range m.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

// Captures returns the elements currently holding pointer capture.
func (m *MockPage) Captures() map[Handle]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[Handle]int, len(m.captures))
	for h, id := range m.captures {
		out[h] = id
	}
	return out
}

// Clear forgets recorded events.
func (m *MockPage) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}
