package indicators

import "optionguard/internal/models"

// EMA calculates an exponential moving average series seeded with the simple
// average of the first period values. When the input is shorter than the
// period the input is returned unchanged, which keeps downstream length
// checks simple.
func EMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return values
	}

	mult := 2.0 / float64(period+1)
	ema := make([]float64, 0, len(values)-period+1)
	ema = append(ema, mean(values[:period]))

	for _, price := range values[period:] {
		prev := ema[len(ema)-1]
		ema = append(ema, (price-prev)*mult+prev)
	}
	return ema
}

// Trend classifies the underlying trend from the 9/21/50 EMA stack. A full
// bullish stack (price above all three, each EMA above the next) is MODERATE,
// upgraded to STRONG when price sits more than 5% beyond the 50 EMA. Without
// a stacked structure, price relative to the 21 EMA decides a weak trend.
// Fewer than 50 closes always reads NEUTRAL.
func Trend(closes []float64) models.TrendStrength {
	if len(closes) < 50 {
		return models.TrendNeutral
	}

	ema9 := EMA(closes, 9)
	ema21 := EMA(closes, 21)
	ema50 := EMA(closes, 50)
	if len(ema9) == 0 || len(ema21) == 0 || len(ema50) == 0 {
		return models.TrendNeutral
	}

	price := closes[len(closes)-1]
	e9 := ema9[len(ema9)-1]
	e21 := ema21[len(ema21)-1]
	e50 := ema50[len(ema50)-1]

	if price > e9 && e9 > e21 && e21 > e50 {
		if (price-e50)/e50*100 > 5 {
			return models.TrendStrongUp
		}
		return models.TrendModerateUp
	}
	if price < e9 && e9 < e21 && e21 < e50 {
		if (e50-price)/e50*100 > 5 {
			return models.TrendStrongDown
		}
		return models.TrendModerateDown
	}

	if price > e21 {
		return models.TrendWeakUp
	}
	if price < e21 {
		return models.TrendWeakDown
	}
	return models.TrendNeutral
}
