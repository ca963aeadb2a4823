package analysis

import (
	"math"

	"optionguard/internal/models"
)

// GammaRisk scores the gamma concentration of a position. Risk accumulates
// from proximity to the strike, proximity to expiry, and the size of gamma
// relative to the option price; a position both near strike (<3%) and near
// expiry (<7 DTE) is flagged as explosion risk.
func GammaRisk(gamma, spot, strike float64, dte int, optionPrice float64) models.GammaAnalysis {
	a := models.GammaAnalysis{
		DollarGamma: gamma * spot / 100,
	}

	pctFromStrike := 0.0
	if strike > 0 {
		pctFromStrike = math.Abs(spot-strike) / strike * 100
	}
	a.DistanceToStrikePct = pctFromStrike
	a.NearStrike = pctFromStrike < 3
	a.NearExpiry = dte < 7
	a.ExplosionRisk = a.NearStrike && a.NearExpiry

	score := 0.0
	switch {
	case pctFromStrike < 1:
		score += 40
	case pctFromStrike < 3:
		score += 25
	case pctFromStrike < 5:
		score += 15
	}

	switch {
	case dte < 3:
		score += 40
	case dte < 7:
		score += 30
	case dte < 14:
		score += 15
	}

	if optionPrice > 0 {
		a.GammaImpactPct = gamma * spot / optionPrice * 100
	}
	switch {
	case a.GammaImpactPct > 10:
		score += 20
	case a.GammaImpactPct > 5:
		score += 10
	}

	a.Score = math.Min(100, score)
	return a
}
