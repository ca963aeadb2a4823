package analysis

import (
	"math"

	"optionguard/internal/models"
)

// ThetaDecay models time-decay acceleration for a long option. The decay
// phase moves through SLOW, NORMAL, ACCELERATING, and CRITICAL as expiry
// approaches, and the projected values assume theta grows with
// sqrt(DTE/(DTE-n)) over the projection window.
func ThetaDecay(dte int, optionPrice, theta float64) models.ThetaAnalysis {
	a := models.ThetaAnalysis{
		DailyDecay:  math.Abs(theta),
		WeeklyDecay: math.Abs(theta) * 7,
	}
	if optionPrice > 0 {
		a.DecayPercent = math.Abs(theta) / optionPrice * 100
	}

	switch {
	case dte > 45:
		a.Phase = models.DecaySlow
	case dte > 21:
		a.Phase = models.DecayNormal
	case dte > 7:
		a.Phase = models.DecayAccelerating
	default:
		a.Phase = models.DecayCritical
	}

	a.DaysToAcceleration = dte - 21
	if a.DaysToAcceleration < 0 {
		a.DaysToAcceleration = 0
	}
	a.DaysToCritical = dte - 7
	if a.DaysToCritical < 0 {
		a.DaysToCritical = 0
	}

	if dte > 7 {
		factor := math.Sqrt(float64(dte) / float64(dte-7))
		a.ProjectedValue7D = math.Max(0, optionPrice-math.Abs(theta)*7*factor*0.7)
	}
	if dte > 14 {
		factor := math.Sqrt(float64(dte) / float64(dte-14))
		a.ProjectedValue14D = math.Max(0, optionPrice-math.Abs(theta)*14*factor*0.5)
	}

	return a
}
