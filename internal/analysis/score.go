package analysis

import (
	"math"

	"optionguard/internal/models"
)

// Weights applied to the seven health sub-scores. They sum to 1.0.
const (
	weightPnL         = 0.20
	weightTheta       = 0.20
	weightGamma       = 0.10
	weightIV          = 0.15
	weightLiquidity   = 0.10
	weightMomentum    = 0.15
	weightProbability = 0.10
)

// HealthScore folds the sub-analyses into a single 0-100 position health
// score with a letter grade. Each sub-score is clamped to [0,100] before
// weighting so a pathological input can never push the overall score out of
// range. The weakest component is reported by name for the UI.
func HealthScore(pos *models.Position) models.PositionScore {
	var s models.PositionScore

	// P&L: banded so early gains move the score quickly and deep losses
	// saturate near zero.
	pnl := pos.PnLPercent()
	switch {
	case pnl >= 100:
		s.PnL = 100
	case pnl >= 50:
		s.PnL = 80 + (pnl-50)*0.4
	case pnl >= 20:
		s.PnL = 60 + (pnl-20)*0.67
	case pnl >= 0:
		s.PnL = 50 + pnl*0.5
	case pnl >= -20:
		s.PnL = 30 + (pnl + 20)
	case pnl >= -50:
		s.PnL = 10 + (pnl+50)*0.67
	default:
		s.PnL = 10 + pnl*0.2
	}

	// Theta: more runway scores higher.
	dte := float64(pos.DTE)
	switch {
	case pos.DTE > 45:
		s.Theta = 90
	case pos.DTE > 21:
		s.Theta = 70 + (dte-21)*0.83
	case pos.DTE > 14:
		s.Theta = 50 + (dte-14)*2.86
	case pos.DTE > 7:
		s.Theta = 25 + (dte-7)*3.57
	default:
		s.Theta = dte * 3.57
	}

	// Gamma: inverted risk score.
	s.Gamma = 100 - pos.Gamma.Score

	// IV regime: long options want to have been bought at low rank, and an
	// IV drop since entry flags crush risk.
	switch rank := pos.Greeks.IVRank; {
	case rank <= 20:
		s.IVRegime = 90
	case rank <= 40:
		s.IVRegime = 75
	case rank <= 60:
		s.IVRegime = 60
	case rank <= 80:
		s.IVRegime = 40
	default:
		s.IVRegime = 25
	}
	if pos.Greeks.IV-pos.EntryIV < -0.05 {
		s.IVRegime -= 20
	}

	s.Liquidity = pos.Liquidity.Score

	momentum := pos.Context.MomentumScore()
	if pos.IsCall() {
		s.Momentum = 50 + momentum*0.5
	} else {
		s.Momentum = 50 - momentum*0.5
	}

	s.Probability = pos.Expected.ProbTarget * 1.5

	s.PnL = clampScore(s.PnL)
	s.Theta = clampScore(s.Theta)
	s.Gamma = clampScore(s.Gamma)
	s.IVRegime = clampScore(s.IVRegime)
	s.Liquidity = clampScore(s.Liquidity)
	s.Momentum = clampScore(s.Momentum)
	s.Probability = clampScore(s.Probability)

	s.Overall = s.PnL*weightPnL +
		s.Theta*weightTheta +
		s.Gamma*weightGamma +
		s.IVRegime*weightIV +
		s.Liquidity*weightLiquidity +
		s.Momentum*weightMomentum +
		s.Probability*weightProbability

	s.Grade = scoreGrade(s.Overall)
	s.Weakest = weakestComponent(&s)

	return s
}

func clampScore(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// scoreGrade maps an overall score onto its letter grade.
func scoreGrade(overall float64) string {
	switch {
	case overall >= 90:
		return "A+"
	case overall >= 80:
		return "A"
	case overall >= 70:
		return "B"
	case overall >= 60:
		return "C"
	case overall >= 50:
		return "D"
	default:
		return "F"
	}
}

// weakestComponent names the lowest of the seven sub-scores.
func weakestComponent(s *models.PositionScore) string {
	components := []struct {
		name  string
		value float64
	}{
		{"P&L", s.PnL},
		{"Theta", s.Theta},
		{"Gamma", s.Gamma},
		{"IV", s.IVRegime},
		{"Liquidity", s.Liquidity},
		{"Momentum", s.Momentum},
		{"Probability", s.Probability},
	}

	weakest := components[0]
	for _, c := range components[1:] {
		if c.value < weakest.value {
			weakest = c
		}
	}
	return weakest.name
}
