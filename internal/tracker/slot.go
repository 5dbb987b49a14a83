package tracker

import (
	"sync"
	"sync/atomic"
)

// Slot is a single-entry mailbox between the inference loop and the render
// loop. Publish never blocks and overwrites whatever is there; Latest never
// blocks and always sees the newest value.
type Slot struct {
	mu       sync.Mutex
	obs      Observation
	has      bool
	consumed bool
	drops    atomic.Uint64
}

// NewSlot creates an empty Slot.
func NewSlot() *Slot {
	return &Slot{}
}

// Publish stores obs. Overwriting an observation nobody read counts as a drop.
func (s *Slot) Publish(obs Observation) {
	s.mu.Lock()
	if s.has && !s.consumed {
		s.drops.Add(1)
	}
	s.obs = obs
	s.has = true
	s.consumed = false
	s.mu.Unlock()
}

// Latest returns the newest observation and whether it arrived since the
// previous call. ok is false until the first Publish.
func (s *Slot) Latest() (obs Observation, fresh, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.has {
		return Observation{}, false, false
	}
	fresh = !s.consumed
	s.consumed = true
	return s.obs, fresh, true
}

// Drops returns how many observations were overwritten unread.
func (s *Slot) Drops() uint64 {
	return s.drops.Load()
}

// Clear empties the slot.
func (s *Slot) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.obs = Observation{}
	s.has = false
	s.consumed = false
}
