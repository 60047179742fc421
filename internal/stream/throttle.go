package stream

import (
	"sync"
	"time"
)

// Throttle passes at most one event per window, measured from the last
// event it passed. Events inside the window are dropped, not queued.
type Throttle struct {
	window time.Duration

	mu   sync.Mutex
	last time.Time
	seen bool
}

func NewThrottle(window time.Duration) *Throttle {
	return &Throttle{window: window}
}

func (t *Throttle) Allow(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.seen && now.Sub(t.last) < t.window {
		return false
	}
	t.last = now
	t.seen = true
	return true
}
