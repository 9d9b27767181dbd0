package middleware

import (
	"sync"
	"time"
)

// Debouncer collapses bursts of account notifications between the websocket
// stream and the feed. Validator nodes can emit several notifications per
// slot; only the first within the interval passes through.
type Debouncer struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// NewDebouncer creates a debouncer with the given minimum interval.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Allow reports whether a notification at now should pass through.
func (d *Debouncer) Allow(now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.interval <= 0 {
		return true
	}
	if !d.last.IsZero() && now.Sub(d.last) < d.interval {
		return false
	}
	d.last = now
	return true
}
