package engine

import (
	"optionguard/internal/analysis/indicators"
	"optionguard/internal/models"
)

// buildMarketContext derives the technical context for the underlying from
// daily history. Callers skip the rebuild when no history is available so the
// prior cycle's context survives a failed fetch.
func buildMarketContext(pos *models.Position, candles []models.Candle) models.MarketContext {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	mc := models.MarketContext{
		Trend: indicators.Trend(closes),
		RSI:   indicators.RSI(closes, 14),
	}

	_, _, histogram := indicators.MACD(closes)
	mc.MACDHistogram = histogram
	mc.MACDSignal = indicators.MACDSignal(histogram)

	mc.ATR = indicators.ATR(candles, 14)
	if pos.CurrentUnderlying > 0 {
		mc.ATRPercent = mc.ATR / pos.CurrentUnderlying * 100
	}

	mc.Support1, mc.Support2, mc.Resistance1, mc.Resistance2 = indicators.SupportResistance(candles)
	mc.VolumeVsAvg = indicators.VolumeVsAverage(candles)

	switch mc.Trend {
	case models.TrendStrongUp, models.TrendModerateUp:
		mc.TrendAligned = pos.IsCall()
	case models.TrendStrongDown, models.TrendModerateDown:
		mc.TrendAligned = !pos.IsCall()
	default:
		mc.TrendAligned = false
	}

	return mc
}
