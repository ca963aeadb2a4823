package indicators

import (
	"sort"

	"optionguard/internal/models"
)

// SupportResistance derives two support and two resistance levels from the
// last 20 candles: the first level is the extreme low/high of the window, the
// second the fifth-ranked value. All four are zero with fewer than 20 candles.
func SupportResistance(candles []models.Candle) (s1, s2, r1, r2 float64) {
	if len(candles) < 20 {
		return 0, 0, 0, 0
	}

	recent := candles[len(candles)-20:]
	lows := lowPrices(recent)
	highs := highPrices(recent)

	sort.Float64s(lows)
	sort.Sort(sort.Reverse(sort.Float64Slice(highs)))

	s1 = lows[0]
	s2 = lows[4]
	r1 = highs[0]
	r2 = highs[4]
	return s1, s2, r1, r2
}
