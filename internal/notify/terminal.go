package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// Terminal renders events to a writer while the monitor owns the
// foreground. Events flow through a buffered channel so engine cycles never
// block on a slow terminal; when the buffer fills, the oldest event is
// dropped in favor of the newest.
type Terminal struct {
	events chan Event
	out    io.Writer
	logger zerolog.Logger

	mu           sync.RWMutex
	colorEnabled bool
	bellEnabled  bool

	critical *color.Color
	warning  *color.Color
	info     *color.Color
}

// NewTerminal creates a terminal notifier writing to out.
func NewTerminal(out io.Writer, logger zerolog.Logger) *Terminal {
	return &Terminal{
		events:       make(chan Event, 100),
		out:          out,
		logger:       logger,
		colorEnabled: true,
		bellEnabled:  true,
		critical:     color.New(color.FgRed, color.Bold),
		warning:      color.New(color.FgYellow),
		info:         color.New(color.FgCyan),
	}
}

// SetColorEnabled enables or disables colored output.
func (t *Terminal) SetColorEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.colorEnabled = enabled
}

// SetBellEnabled enables or disables the terminal bell on critical events.
func (t *Terminal) SetBellEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bellEnabled = enabled
}

// Notify queues an event for rendering without blocking the caller.
func (t *Terminal) Notify(_ context.Context, e Event) {
	select {
	case t.events <- e:
	default:
		// Buffer full: drop the oldest event to make room.
		select {
		case <-t.events:
		default:
		}
		select {
		case t.events <- e:
		default:
		}
	}
}

// Start consumes and renders queued events until the context is cancelled.
func (t *Terminal) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case e := <-t.events:
				t.render(e)
			}
		}
	}()
}

func (t *Terminal) render(e Event) {
	t.mu.RLock()
	colorEnabled := t.colorEnabled
	bellEnabled := t.bellEnabled
	t.mu.RUnlock()

	tag := fmt.Sprintf("[%s]", e.Level)
	if colorEnabled {
		switch e.Level {
		case LevelCritical:
			tag = t.critical.Sprintf("[%s]", e.Level)
		case LevelWarning:
			tag = t.warning.Sprintf("[%s]", e.Level)
		default:
			tag = t.info.Sprintf("[%s]", e.Level)
		}
	}

	subject := e.Symbol
	if e.PositionID != "" {
		subject = e.PositionID
	}

	line := fmt.Sprintf("%s %s %s: %s\n",
		e.Timestamp.Format("15:04:05"), tag, subject, e.Message)
	if bellEnabled && e.Level == LevelCritical {
		line += "\a"
	}

	if _, err := io.WriteString(t.out, line); err != nil {
		t.logger.Warn().Err(err).Msg("failed to write notification")
	}
}
