package vlist

import (
	"sync"
	"time"
)

// ScrollQuiet is how long after the last scroll movement the list is
// still considered to be scrolling. Renderers use this to defer
// expensive work until the user settles.
const ScrollQuiet = 150 * time.Millisecond

// ScrollTracker classifies whether a scroll gesture is in progress
// based on the time of the last movement.
type ScrollTracker struct {
	mu   sync.Mutex
	last time.Time
}

// Touch records a scroll movement now.
func (s *ScrollTracker) Touch() {
	s.TouchAt(time.Now())
}

// TouchAt records a scroll movement at t.
func (s *ScrollTracker) TouchAt(t time.Time) {
	s.mu.Lock()
	if t.After(s.last) {
		s.last = t
	}
	s.mu.Unlock()
}

// Scrolling reports whether a movement happened within ScrollQuiet.
func (s *ScrollTracker) Scrolling() bool {
	return s.ScrollingAt(time.Now())
}

// ScrollingAt reports whether a movement happened within ScrollQuiet
// of now.
func (s *ScrollTracker) ScrollingAt(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last.IsZero() {
		return false
	}
	return now.Sub(s.last) < ScrollQuiet
}
