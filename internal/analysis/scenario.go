package analysis

import (
	"math"

	"optionguard/internal/models"
)

// ScenarioLadder projects the option price and P&L across the trade's key
// underlying levels using a delta-gamma approximation. Convexity helps a
// long option in the favorable direction and cushions it in the adverse one,
// so the gamma term is added on moves toward the position and subtracted on
// moves against it. Estimated option prices floor at $0.01.
func ScenarioLadder(pos *models.Position) models.ScenarioAnalysis {
	var a models.ScenarioAnalysis

	spot := pos.CurrentUnderlying
	option := pos.CurrentOption
	entry := pos.EntryOptionPrice

	delta := pos.Greeks.Delta
	if delta == 0 {
		delta = 0.5
	}
	gamma := pos.Greeks.Gamma
	if gamma == 0 {
		gamma = 0.02
	}

	levels := []struct {
		label string
		price float64
	}{
		{"Stop", pos.StopPrice},
		{"Entry", pos.EntryUnderlying},
		{"Current", spot},
		{"-5%", spot * 0.95},
		{"-3%", spot * 0.97},
		{"+3%", spot * 1.03},
		{"+5%", spot * 1.05},
		{"Target", pos.TargetPrice},
		{"Strike", pos.Strike},
	}

	a.Scenarios = make([]models.Scenario, 0, len(levels))
	for _, lv := range levels {
		move := lv.price - spot
		deltaImpact := move * math.Abs(delta)
		gammaImpact := 0.5 * move * move * gamma

		var est float64
		if pos.IsCall() {
			if move > 0 {
				est = option + deltaImpact + gammaImpact
			} else {
				est = option + deltaImpact - gammaImpact
			}
		} else {
			if move < 0 {
				est = option - deltaImpact + gammaImpact
			} else {
				est = option - deltaImpact - gammaImpact
			}
		}
		est = math.Max(0.01, est)

		s := models.Scenario{
			Label:           lv.label,
			UnderlyingPrice: lv.price,
			OptionPrice:     est,
			PnLDollars:      (est - entry) * float64(pos.Quantity) * 100,
		}
		if entry > 0 {
			s.PnLPercent = (est - entry) / entry * 100
		}
		a.Scenarios = append(a.Scenarios, s)
	}

	if delta != 0 {
		moveNeeded := (entry - option) / math.Abs(delta)
		if pos.IsCall() {
			a.Breakeven = spot + moveNeeded
		} else {
			a.Breakeven = spot - moveNeeded
		}
		if spot > 0 {
			a.BreakevenMovePct = (a.Breakeven - spot) / spot * 100
		}
	}

	a.MaxLoss = entry * float64(pos.Quantity) * 100

	return a
}
