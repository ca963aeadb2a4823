// Package monitor owns the periodic update schedule. The engine itself is
// schedule-free; this package wraps it with a ticker, a market-hours gate,
// and operator notifications for whatever each cycle newly raised.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"optionguard/internal/config"
	"optionguard/internal/logging"
	"optionguard/internal/models"
	"optionguard/internal/notify"
	"optionguard/pkg/utils"
)

// Updater runs one full evaluation cycle over the open book.
type Updater interface {
	UpdateAll(ctx context.Context) ([]models.Summary, error)
}

// Monitor periodically refreshes every open position and announces status
// transitions and newly raised alerts between cycles.
type Monitor struct {
	updater         Updater
	notifier        notify.Notifier
	interval        time.Duration
	marketHoursOnly bool
	logger          zerolog.Logger

	marketOpen func() bool

	prevStatus map[string]string
	prevAlerts map[string]map[string]struct{}
}

// New builds a monitor around an updater, usually the position engine.
func New(updater Updater, notifier notify.Notifier, cfg *config.Config, logger zerolog.Logger) *Monitor {
	return &Monitor{
		updater:         updater,
		notifier:        notifier,
		interval:        cfg.MonitorInterval(),
		marketHoursOnly: cfg.Monitor.MarketHoursOnly,
		logger:          logging.WithComponent(logger, "monitor"),
		marketOpen:      utils.IsMarketOpen,
		prevStatus:      make(map[string]string),
		prevAlerts:      make(map[string]map[string]struct{}),
	}
}

// SetInterval overrides the configured cycle interval. Must be called
// before Run.
func (m *Monitor) SetInterval(d time.Duration) {
	if d > 0 {
		m.interval = d
	}
}

// Run executes one cycle immediately, then one per interval until the
// context is cancelled. The context error is returned on shutdown.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info().
		Dur("interval", m.interval).
		Bool("market_hours_only", m.marketHoursOnly).
		Msg("monitor started")

	m.cycle(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("monitor stopped")
			return ctx.Err()
		case <-ticker.C:
			m.cycle(ctx)
		}
	}
}

// RunOnce executes a single cycle, bypassing the market-hours gate.
func (m *Monitor) RunOnce(ctx context.Context) {
	m.update(ctx)
}

func (m *Monitor) cycle(ctx context.Context) {
	if m.marketHoursOnly && !m.marketOpen() {
		m.logger.Debug().
			Time("next_open", utils.NextMarketOpen(time.Now())).
			Msg("market closed, skipping cycle")
		return
	}
	m.update(ctx)
}

func (m *Monitor) update(ctx context.Context) {
	start := time.Now()
	summaries, err := m.updater.UpdateAll(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("update cycle failed")
		m.notifier.Notify(ctx, notify.Event{
			Level:     notify.LevelCritical,
			Message:   fmt.Sprintf("update cycle failed: %v", err),
			Timestamp: time.Now(),
		})
		return
	}

	m.logger.Info().
		Int("positions", len(summaries)).
		Dur("elapsed", time.Since(start)).
		Msg("cycle complete")

	m.announce(ctx, summaries)
}

// announce diffs this cycle against the previous one and notifies only what
// is new: status transitions, fresh alerts, fresh warnings.
func (m *Monitor) announce(ctx context.Context, summaries []models.Summary) {
	now := time.Now()
	seen := make(map[string]struct{}, len(summaries))

	for i := range summaries {
		s := &summaries[i]
		seen[s.ID] = struct{}{}

		if prev, ok := m.prevStatus[s.ID]; ok && prev != s.Status {
			m.notifier.Notify(ctx, notify.Event{
				Level:      statusLevel(models.PositionStatus(s.Status)),
				PositionID: s.ID,
				Symbol:     s.Symbol,
				Message:    fmt.Sprintf("status %s -> %s: %s", prev, s.Status, s.ActionDetail),
				Timestamp:  now,
			})
		}
		m.prevStatus[s.ID] = s.Status

		prevSet := m.prevAlerts[s.ID]
		newSet := make(map[string]struct{}, len(s.Alerts)+len(s.Warnings))
		for _, msg := range s.Alerts {
			newSet[msg] = struct{}{}
			if _, ok := prevSet[msg]; !ok {
				m.notifier.Notify(ctx, notify.Event{
					Level:      notify.LevelCritical,
					PositionID: s.ID,
					Symbol:     s.Symbol,
					Message:    msg,
					Timestamp:  now,
				})
			}
		}
		for _, msg := range s.Warnings {
			newSet[msg] = struct{}{}
			if _, ok := prevSet[msg]; !ok {
				m.notifier.Notify(ctx, notify.Event{
					Level:      notify.LevelWarning,
					PositionID: s.ID,
					Symbol:     s.Symbol,
					Message:    msg,
					Timestamp:  now,
				})
			}
		}
		m.prevAlerts[s.ID] = newSet
	}

	// Forget positions that left the open set so a re-add starts clean.
	for id := range m.prevStatus {
		if _, ok := seen[id]; !ok {
			delete(m.prevStatus, id)
			delete(m.prevAlerts, id)
		}
	}
}

func statusLevel(status models.PositionStatus) notify.Level {
	switch status {
	case models.StatusExitStop, models.StatusExitTime, models.StatusExitTarget, models.StatusTakeFull:
		return notify.LevelCritical
	case models.StatusTakePartial, models.StatusConsiderRoll,
		models.StatusWarningGamma, models.StatusWarningIVCrush,
		models.StatusWarningTheta, models.StatusWarningLiquidity:
		return notify.LevelWarning
	default:
		return notify.LevelInfo
	}
}
