package analysis

import (
	"math"

	"optionguard/internal/models"
)

// ExpectedMoveAnalysis derives the IV-implied move over the remaining life of
// the option and the touch probabilities for the trade plan levels. All
// probabilities come from a simple lognormal-free z-score model: the move to
// each level is expressed in units of the one-sigma expected move and pushed
// through the normal CDF. Returns the zero value when IV or DTE are
// non-positive.
func ExpectedMoveAnalysis(spot, iv float64, dte int, strike float64, isCall bool, stopPrice, targetPrice float64) models.ExpectedMove {
	var a models.ExpectedMove
	if iv <= 0 || dte <= 0 {
		return a
	}

	a.PeriodIV = iv * math.Sqrt(float64(dte)/365)
	a.OneSigma = spot * a.PeriodIV
	a.TwoSigma = spot * a.PeriodIV * 2
	a.UpperOneSigma = spot + a.OneSigma
	a.LowerOneSigma = spot - a.OneSigma
	a.UpperTwoSigma = spot + a.TwoSigma
	a.LowerTwoSigma = spot - a.TwoSigma

	if a.OneSigma > 0 {
		zTarget := (targetPrice - spot) / a.OneSigma
		zStop := (stopPrice - spot) / a.OneSigma
		zStrike := (strike - spot) / a.OneSigma

		if isCall {
			a.ProbTarget = (1 - normCDF(zTarget)) * 100
			a.ProbStop = normCDF(zStop) * 100
			a.ProbITM = (1 - normCDF(zStrike)) * 100
		} else {
			a.ProbTarget = normCDF(-zTarget) * 100
			a.ProbStop = (1 - normCDF(zStop)) * 100
			a.ProbITM = normCDF(zStrike) * 100
		}
	}

	profit := math.Abs(targetPrice - spot)
	loss := math.Abs(spot - stopPrice)
	if loss > 0 {
		a.RiskReward = profit / loss
	}

	// Expected value in underlying terms
	a.ExpectedValue = (a.ProbTarget/100)*profit - (a.ProbStop/100)*loss

	return a
}
