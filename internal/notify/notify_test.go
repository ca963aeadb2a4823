package notify

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingNotifier) Notify(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestDedupSuppressesRepeatsWithinCooldown(t *testing.T) {
	inner := &recordingNotifier{}
	d := NewDedup(inner, 10*time.Minute)

	clock := time.Date(2025, 7, 14, 10, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return clock }

	e := Event{PositionID: "AAPL_190_1", Symbol: "AAPL", Message: "approaching stop"}

	d.Notify(context.Background(), e)
	d.Notify(context.Background(), e)
	assert.Equal(t, 1, inner.count())

	// A different message for the same position is a new event.
	d.Notify(context.Background(), Event{PositionID: "AAPL_190_1", Message: "T1 nearby"})
	assert.Equal(t, 2, inner.count())

	// Past the cooldown the original repeats.
	clock = clock.Add(11 * time.Minute)
	d.Notify(context.Background(), e)
	assert.Equal(t, 3, inner.count())
}

func TestDedupPrunesExpiredEntries(t *testing.T) {
	inner := &recordingNotifier{}
	d := NewDedup(inner, time.Minute)

	clock := time.Date(2025, 7, 14, 10, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return clock }

	for i := 0; i < 300; i++ {
		d.Notify(context.Background(), Event{PositionID: fmt.Sprintf("p%d", i), Message: "m"})
	}
	// All 300 expire; the post-insert prune clears everything but the
	// fresh entry.
	clock = clock.Add(2 * time.Minute)
	d.Notify(context.Background(), Event{PositionID: "fresh", Message: "m"})

	d.mu.Lock()
	size := len(d.lastSent)
	d.mu.Unlock()
	assert.Equal(t, 1, size)
	assert.Equal(t, 301, inner.count())
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestTerminalRendersEvent(t *testing.T) {
	out := &syncBuffer{}
	term := NewTerminal(out, zerolog.Nop())
	term.SetColorEnabled(false)
	term.SetBellEnabled(false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	term.Start(ctx)

	ts := time.Date(2025, 7, 14, 14, 3, 5, 0, time.UTC)
	term.Notify(ctx, Event{
		Level:      LevelWarning,
		PositionID: "AAPL_190_1",
		Symbol:     "AAPL",
		Message:    "price within 2.0% of recommended stop",
		Timestamp:  ts,
	})

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "14:03:05 [WARNING] AAPL_190_1: price within 2.0% of recommended stop")
	}, time.Second, 5*time.Millisecond)
}

func TestTerminalBellOnCritical(t *testing.T) {
	out := &syncBuffer{}
	term := NewTerminal(out, zerolog.Nop())
	term.SetColorEnabled(false)

	term.render(Event{Level: LevelCritical, Symbol: "NVDA", Message: "stop breached"})

	s := out.String()
	assert.Contains(t, s, "[CRITICAL] NVDA: stop breached")
	assert.True(t, strings.HasSuffix(s, "\a"))
}

func TestTerminalDropsOldestWhenSaturated(t *testing.T) {
	term := NewTerminal(&syncBuffer{}, zerolog.Nop())

	for i := 0; i < 105; i++ {
		term.Notify(context.Background(), Event{Message: fmt.Sprintf("event %d", i)})
	}

	assert.Len(t, term.events, 100)
	first := <-term.events
	assert.Equal(t, "event 5", first.Message)
}
