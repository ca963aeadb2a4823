package engine

import (
	"math"

	"github.com/rs/zerolog"

	"optionguard/internal/logging"
	"optionguard/internal/models"
)

// computeStops builds the candidate stop ladder, selects the highest-priority
// armed rule, and ratchets the recommendation. The recommended stop only ever
// tightens: calls take the max of the previous recommendation and the new
// candidate, puts the min.
func (e *Engine) computeStops(pos *models.Position, log zerolog.Logger) {
	atr := pos.Context.ATR
	if atr == 0 {
		atr = pos.CurrentUnderlying * e.cfg.ATRFallbackPct / 100
	}

	st := &pos.Stops
	if st.Original == 0 {
		st.Original = pos.StopPrice
	}

	offset := atr * e.cfg.BreakevenOffsetATR
	if pos.IsCall() {
		st.Breakeven = pos.EntryUnderlying + offset
		st.ATRTrail = pos.HighWaterMark - atr*e.cfg.ATRTrailMultiple
		st.RunnerTrail = pos.HighWaterMark - atr*e.cfg.RunnerTrailMultiple
	} else {
		st.Breakeven = pos.EntryUnderlying - offset
		st.ATRTrail = pos.LowWaterMark + atr*e.cfg.ATRTrailMultiple
		st.RunnerTrail = pos.LowWaterMark + atr*e.cfg.RunnerTrailMultiple
	}

	// Highest-priority armed rule wins
	pnl := pos.PnLPercent()
	var candidate float64
	switch {
	case pos.Scaling.RunnerActive:
		candidate = st.RunnerTrail
		st.ActiveRule = models.StopRuleRunnerTrail
	case pnl >= e.cfg.ATRTrailTriggerPct:
		candidate = st.ATRTrail
		st.ActiveRule = models.StopRuleATRTrail
	case pnl >= e.cfg.BreakevenTriggerPct:
		candidate = st.Breakeven
		st.ActiveRule = models.StopRuleBreakeven
	default:
		candidate = pos.StopPrice
		st.ActiveRule = models.StopRuleOriginal
	}

	// Ratchet
	prev := st.Recommended
	if pos.IsCall() {
		if candidate > st.Recommended {
			st.Recommended = candidate
		}
	} else {
		if st.Recommended == 0 || candidate < st.Recommended {
			st.Recommended = candidate
		}
	}
	if prev != 0 && st.Recommended != prev {
		logging.LogStopMove(log, pos.ID, pos.Symbol, prev, st.Recommended, string(st.ActiveRule))
	}

	st.NeedsUpdate = math.Abs(st.Recommended-pos.StopPrice) > 0.01

	st.DistanceToStop = math.Abs(pos.CurrentUnderlying - st.Recommended)
	if atr > 0 {
		st.DistanceToStopATR = st.DistanceToStop / atr
	} else {
		st.DistanceToStopATR = 0
	}

	delta := pos.Greeks.Delta
	if delta == 0 {
		delta = 0.5
	}
	gamma := pos.Greeks.Gamma
	if gamma == 0 {
		gamma = 0.02
	}

	st.OriginalOption = optionStop(pos.CurrentUnderlying, st.Original, pos.CurrentOption, delta, gamma)
	st.RecommendedOption = optionStop(pos.CurrentUnderlying, st.Recommended, pos.CurrentOption, delta, gamma)
	st.RunnerOption = optionStop(pos.CurrentUnderlying, st.RunnerTrail, pos.CurrentOption, delta, gamma)

	st.RiskDollars = (pos.CurrentOption - st.RecommendedOption) * float64(pos.Quantity) * 100
	if pos.EntryOptionPrice > 0 {
		st.RiskPercent = (pos.CurrentOption - st.RecommendedOption) / pos.EntryOptionPrice * 100
	} else {
		st.RiskPercent = 0
	}
}

// optionStop converts a stock-level stop into an estimated option price at
// that stop, using a conservative delta-gamma approximation floored at $0.01.
// A zero stock stop means the candidate is not armed and maps to zero.
func optionStop(spot, stockStop, optionPrice, delta, gamma float64) float64 {
	if stockStop == 0 {
		return 0
	}
	dist := math.Abs(spot - stockStop)
	est := optionPrice - dist*math.Abs(delta) - 0.5*dist*dist*gamma
	return math.Max(0.01, est)
}
