// Package throttle provides a per-category rate limiter. A denied acquisition
// is dropped, never queued: bursts produce at most one effect per window.
package throttle

import (
	"sync"
	"time"
)

// Category names an action class with its own window.
type Category string

const (
	Volume      Category = "volume"
	SoundSelect Category = "sound_select"
	Toggle      Category = "toggle"
	Doorbell    Category = "doorbell"
	Motion      Category = "motion"
	Default     Category = "default"
)

// window is the state for one category.
type window struct {
	lastFiredAt time.Time
	fired       bool
	minInterval time.Duration
}

// Gate enforces minimum intervals between acquisitions per category.
// Safe for concurrent use.
type Gate struct {
	mu       sync.Mutex
	windows  map[Category]*window
	fallback time.Duration
}

// NewGate creates a Gate. Categories missing from intervals use the Default
// entry if present, otherwise zero (always permitted).
func NewGate(intervals map[Category]time.Duration) *Gate {
	g := &Gate{windows: make(map[Category]*window, len(intervals))}
	for c, d := range intervals {
		g.windows[c] = &window{minInterval: d}
	}
	if w, ok := g.windows[Default]; ok {
		g.fallback = w.minInterval
	}
	return g
}

// TryAcquire reports whether an action in category c may fire at now. On
// success now is recorded as the category's last firing; on denial nothing
// changes.
func (g *Gate) TryAcquire(c Category, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	w, ok := g.windows[c]
	if !ok {
		w = &window{minInterval: g.fallback}
		g.windows[c] = w
	}
	if w.fired && now.Sub(w.lastFiredAt) < w.minInterval {
		return false
	}
	w.lastFiredAt = now
	w.fired = true
	return true
}

// Interval returns the configured window for c.
func (g *Gate) Interval(c Category) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if w, ok := g.windows[c]; ok {
		return w.minInterval
	}
	return g.fallback
}
