// Package notify surfaces engine alerts to the operator while the monitor
// loop runs in the foreground.
package notify

import (
	"context"
	"sync"
	"time"
)

// Level grades how urgently an event needs operator attention.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelCritical:
		return "CRITICAL"
	case LevelWarning:
		return "WARNING"
	default:
		return "INFO"
	}
}

// Event is one operator-facing notification.
type Event struct {
	Level      Level
	PositionID string
	Symbol     string
	Message    string
	Timestamp  time.Time
}

// Notifier delivers events. Implementations must not block the caller;
// a cycle's worth of alerts is handed over faster than any terminal or
// desktop channel can render them.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

// Dedup wraps a Notifier and suppresses repeats of the same event within a
// cooldown window, so a condition that persists across monitor cycles is
// announced once rather than every interval.
type Dedup struct {
	inner    Notifier
	cooldown time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time

	now func() time.Time
}

// NewDedup wraps inner with a suppression window. A non-positive cooldown
// falls back to 30 minutes.
func NewDedup(inner Notifier, cooldown time.Duration) *Dedup {
	if cooldown <= 0 {
		cooldown = 30 * time.Minute
	}
	return &Dedup{
		inner:    inner,
		cooldown: cooldown,
		lastSent: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Notify forwards the event unless an identical one was sent within the
// cooldown window.
func (d *Dedup) Notify(ctx context.Context, e Event) {
	key := e.PositionID + "|" + e.Message
	now := d.now()

	d.mu.Lock()
	if last, seen := d.lastSent[key]; seen && now.Sub(last) < d.cooldown {
		d.mu.Unlock()
		return
	}
	d.lastSent[key] = now
	if len(d.lastSent) > 256 {
		d.prune(now)
	}
	d.mu.Unlock()

	d.inner.Notify(ctx, e)
}

// prune drops expired entries; caller holds the lock.
func (d *Dedup) prune(now time.Time) {
	for key, last := range d.lastSent {
		if now.Sub(last) >= d.cooldown {
			delete(d.lastSent, key)
		}
	}
}
