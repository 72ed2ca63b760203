// Package clock provides the wall clock and a deterministic stand-in for tests.
package clock

import (
	"sync"
	"time"
)

// System implements batch.Clock using time.Now.
type System struct{}

// NewSystem creates a System clock.
func NewSystem() *System {
	return &System{}
}

// Now returns the current time in UTC.
func (System) Now() time.Time {
	return time.Now().UTC()
}

// Stepped returns start on the first call and advances by step on every later call.
// It is safe for concurrent use.
type Stepped struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

// NewStepped creates a Stepped clock.
func NewStepped(start time.Time, step time.Duration) *Stepped {
	return &Stepped{next: start.UTC(), step: step}
}

// Now returns the current reading and advances the clock.
func (s *Stepped) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.next
	s.next = s.next.Add(s.step)
	return now
}
