// Package engine implements the per-position evaluation cycle: it folds a
// fresh market snapshot into the position's analytics sub-records and derives
// a single status, action, and alert set. The cycle is designed to always
// reach a decision; missing or failing inputs degrade to last known values
// rather than aborting.
package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"optionguard/internal/analysis"
	"optionguard/internal/config"
	"optionguard/internal/errors"
	"optionguard/internal/gateway"
	"optionguard/internal/logging"
	"optionguard/internal/models"
	"optionguard/internal/store"
)

// Engine runs the evaluation cycle. Safe for concurrent use across distinct
// positions; a single position must only be updated by one goroutine at a time.
type Engine struct {
	gateway gateway.Gateway
	store   store.PositionStore
	cfg     config.EngineConfig

	historyDays int
	ivDays      int
	workers     int

	logger zerolog.Logger
}

// New creates a decision engine wired to a market data gateway and a store.
func New(gw gateway.Gateway, st store.PositionStore, cfg *config.Config, logger zerolog.Logger) *Engine {
	return &Engine{
		gateway:     gw,
		store:       st,
		cfg:         cfg.Engine,
		historyDays: cfg.Gateway.HistoryDays,
		ivDays:      cfg.Gateway.IVHistoryDays,
		workers:     cfg.Monitor.Concurrency,
		logger:      logging.WithComponent(logger, "engine"),
	}
}

// Update runs the full evaluation cycle on a position and returns its summary.
// The cycle always produces a status and action: fetch failures fall back to
// the previous cycle's values with a degraded-input warning, and a failed save
// still returns the in-memory result.
func (e *Engine) Update(ctx context.Context, pos *models.Position) models.Summary {
	log := logging.WithPosition(logging.WithSymbol(e.logger, pos.Symbol), pos.ID)
	now := time.Now()
	prevStatus := pos.Status

	pos.Alerts = nil
	pos.Warnings = nil

	// Live quotes, greeks, liquidity, DTE, watermarks
	e.fetchLiveData(ctx, pos, now, log)

	// IV regime
	e.updateIVMetrics(ctx, pos, log)

	// Technical context
	e.updateMarketContext(ctx, pos, log)

	// Derived analytics, in dependency order
	pos.Theta = analysis.ThetaDecay(pos.DTE, pos.CurrentOption, pos.Greeks.Theta)
	pos.Gamma = analysis.GammaRisk(pos.Greeks.Gamma, pos.CurrentUnderlying, pos.Strike, pos.DTE, pos.CurrentOption)
	pos.Expected = analysis.ExpectedMoveAnalysis(pos.CurrentUnderlying, pos.Greeks.IV, pos.DTE,
		pos.Strike, pos.IsCall(), pos.StopPrice, pos.TargetPrice)
	pos.Scenarios = analysis.ScenarioLadder(pos)

	e.computeStops(pos, log)
	e.applyScaling(pos, now, log)

	pos.Roll = analysis.RollRecommendation(pos)
	pos.Score = analysis.HealthScore(pos)

	e.classify(pos)
	e.generateAlerts(pos)

	pos.UpdatedAt = now

	if prevStatus != "" && prevStatus != pos.Status {
		logging.LogStatusChange(log, pos.ID, pos.Symbol,
			string(prevStatus), string(pos.Status), string(pos.Action))
	}

	if err := e.store.Save(ctx, pos); err != nil {
		log.Error().Err(err).Msg("saving position failed, returning in-memory result")
	}

	return models.BuildSummary(pos)
}

// UpdatePosition loads one position by id and runs the cycle on it.
func (e *Engine) UpdatePosition(ctx context.Context, id string) (models.Summary, error) {
	pos, err := e.store.Load(ctx, id)
	if err != nil {
		return models.Summary{}, errors.Wrapf(err, "loading position %s", id)
	}
	s := e.Update(ctx, pos)
	return s, nil
}

// UpdateAll runs the cycle across every open position with bounded
// concurrency. Each position degrades independently; one position's bad data
// never stops the others. Summaries come back sorted by symbol then id.
func (e *Engine) UpdateAll(ctx context.Context) ([]models.Summary, error) {
	positions, err := e.store.LoadAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading positions")
	}

	var mu sync.Mutex
	summaries := make([]models.Summary, 0, len(positions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, pos := range positions {
		pos := pos
		g.Go(func() error {
			s := e.Update(gctx, pos)
			mu.Lock()
			summaries = append(summaries, s)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Symbol != summaries[j].Symbol {
			return summaries[i].Symbol < summaries[j].Symbol
		}
		return summaries[i].ID < summaries[j].ID
	})

	return summaries, nil
}

// fetchLiveData refreshes quotes, greeks, liquidity, DTE, and the watermarks.
// Every input is optional: whatever the gateway cannot supply keeps its last
// known value and the position picks up a degraded-input warning.
func (e *Engine) fetchLiveData(ctx context.Context, pos *models.Position, now time.Time, log zerolog.Logger) {
	degraded := false

	stock, err := e.gateway.GetStockSnapshot(ctx, pos.Symbol)
	if err != nil {
		log.Warn().Err(err).Msg("stock snapshot unavailable, keeping last known price")
		degraded = true
	} else if stock.Price > 0 {
		pos.CurrentUnderlying = stock.Price
	}

	opt, err := e.gateway.GetOptionSnapshot(ctx, gateway.RequestFor(pos))
	if err != nil {
		log.Warn().Err(err).Msg("option snapshot unavailable, keeping last known quote")
		degraded = true
	} else {
		e.applyOptionSnapshot(pos, opt)
	}

	// DTE is clamped at zero so expired-but-open positions stay computable.
	days := int(pos.Expiration.Sub(now).Hours() / 24)
	if days < 0 {
		days = 0
	}
	pos.DTE = days

	// Greeks can be missing from every source on illiquid contracts;
	// synthesize them from Black-Scholes so the cycle can still decide.
	if pos.Greeks.Delta == 0 {
		e.synthesizeGreeks(pos)
	}

	// Watermarks
	if pos.IsCall() {
		if pos.CurrentUnderlying > pos.HighWaterMark {
			pos.HighWaterMark = pos.CurrentUnderlying
		}
	} else {
		if pos.LowWaterMark == 0 || pos.CurrentUnderlying < pos.LowWaterMark {
			pos.LowWaterMark = pos.CurrentUnderlying
		}
	}

	if degraded {
		pos.Warnings = append(pos.Warnings, "Degraded market data - using last known values")
	}
}

// applyOptionSnapshot folds a fresh option quote into the position. Zero
// fields in the snapshot keep the prior value; delta additionally falls back
// to the entry delta.
func (e *Engine) applyOptionSnapshot(pos *models.Position, opt *models.OptionSnapshot) {
	if m := opt.Mark(); m > 0 {
		pos.CurrentOption = m
	}

	pos.Greeks.Delta = firstNonZero(opt.Delta, pos.Greeks.Delta, pos.EntryDelta)
	pos.Greeks.Gamma = firstNonZero(opt.Gamma, pos.Greeks.Gamma)
	pos.Greeks.Theta = firstNonZero(opt.Theta, pos.Greeks.Theta)
	pos.Greeks.Vega = firstNonZero(opt.Vega, pos.Greeks.Vega)
	pos.Greeks.IV = firstNonZero(opt.IV, pos.Greeks.IV)

	pos.Liquidity = analysis.LiquidityQuality(opt.Bid, opt.Ask, pos.CurrentOption, opt.Volume, opt.OpenInterest)
}

// synthesizeGreeks fills missing greeks from the Black-Scholes closed forms
// with the documented policy defaults for volatility and time floor.
func (e *Engine) synthesizeGreeks(pos *models.Position) {
	sigma := pos.Greeks.IV
	if sigma <= 0 {
		sigma = e.cfg.DefaultIV
	}
	years := float64(pos.DTE) / 365
	if years <= 0 {
		years = 1.0 / 365
	}

	delta, gamma, theta, vega := analysis.BlackScholesGreeks(
		pos.CurrentUnderlying, pos.Strike, years, e.cfg.RiskFreeRate, sigma, pos.OptionType)

	pos.Greeks.Delta = delta
	if pos.Greeks.Gamma == 0 {
		pos.Greeks.Gamma = gamma
	}
	if pos.Greeks.Theta == 0 {
		pos.Greeks.Theta = theta
	}
	if pos.Greeks.Vega == 0 {
		pos.Greeks.Vega = vega
	}
	if pos.Greeks.IV == 0 {
		pos.Greeks.IV = sigma
	}
}

// updateIVMetrics recomputes IV rank and percentile from the trailing
// volatility series. A missing series keeps the prior rank.
func (e *Engine) updateIVMetrics(ctx context.Context, pos *models.Position, log zerolog.Logger) {
	history, err := e.gateway.GetIVHistory(ctx, pos.Symbol, e.ivDays)
	if err != nil {
		log.Warn().Err(err).Msg("iv history unavailable, keeping prior iv rank")
		return
	}
	if len(history) == 0 {
		return
	}

	iv := pos.Greeks.IV
	if iv == 0 {
		iv = e.cfg.DefaultIV
	}
	rank, percentile, high, low := analysis.IVRank(iv, history)
	pos.Greeks.IVRank = rank
	pos.Greeks.IVPercentile = percentile
	pos.Greeks.IVHigh = high
	pos.Greeks.IVLow = low
}

// updateMarketContext rebuilds the technical context from daily history,
// keeping the prior context when history is unavailable.
func (e *Engine) updateMarketContext(ctx context.Context, pos *models.Position, log zerolog.Logger) {
	history, err := e.gateway.GetStockHistory(ctx, pos.Symbol, e.historyDays)
	if err != nil {
		log.Warn().Err(err).Msg("stock history unavailable, keeping prior market context")
		return
	}
	if len(history) == 0 {
		return
	}
	pos.Context = buildMarketContext(pos, history)
}

func firstNonZero(vals ...float64) float64 {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}
