// Package clock holds the simulated time of a run. Only the data source moves
// it forward; everything else reads it
package clock

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrTimeMovedBackwards is returned when an advance would rewind the clock
var ErrTimeMovedBackwards = errors.New("simulated time cannot move backwards")

// Simulated is a monotonic clock driven by market data
type Simulated struct {
	m   sync.RWMutex
	now time.Time
}

// NewSimulated returns a clock at the zero time
func NewSimulated() *Simulated {
	return &Simulated{}
}

// Now returns the current simulated time
func (s *Simulated) Now() time.Time {
	s.m.RLock()
	defer s.m.RUnlock()
	return s.now
}

// Advance moves the clock to t. Equal timestamps are allowed
func (s *Simulated) Advance(t time.Time) error {
	s.m.Lock()
	defer s.m.Unlock()
	if t.Before(s.now) {
		return fmt.Errorf("%w: %v is before %v", ErrTimeMovedBackwards, t, s.now)
	}
	s.now = t
	return nil
}

// Reset rewinds the clock to the zero time for a fresh run
func (s *Simulated) Reset() {
	s.m.Lock()
	s.now = time.Time{}
	s.m.Unlock()
}
