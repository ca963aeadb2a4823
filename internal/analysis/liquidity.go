package analysis

import "optionguard/internal/models"

// LiquidityQuality scores execution quality from the quote. The score starts
// at a baseline of 50 and moves with spread tightness, open interest depth,
// and session volume, clamped to 0-100. When the ask is missing the current
// option price stands in for the mid.
func LiquidityQuality(bid, ask, currentOption float64, volume, openInterest int64) models.LiquidityAnalysis {
	a := models.LiquidityAnalysis{
		Bid:          bid,
		Ask:          ask,
		Spread:       ask - bid,
		Volume:       volume,
		OpenInterest: openInterest,
	}

	mid := currentOption
	if ask > 0 {
		mid = (bid + ask) / 2
	}
	if mid > 0 {
		a.SpreadPercent = a.Spread / mid * 100
	}
	if openInterest > 0 {
		a.VolumeOIRatio = float64(volume) / float64(openInterest)
	}

	score := 50.0
	switch {
	case a.SpreadPercent <= 1:
		score += 25
	case a.SpreadPercent <= 3:
		score += 15
	case a.SpreadPercent > 10:
		score -= 25
	}

	switch {
	case openInterest >= 1000:
		score += 15
	case openInterest >= 100:
		score += 5
	case openInterest < 50:
		score -= 15
	}

	if volume >= 100 {
		score += 10
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	a.Score = score
	a.Rating = liquidityRating(score)

	return a
}

// liquidityRating buckets a liquidity score into its categorical rating.
func liquidityRating(score float64) models.LiquidityRating {
	switch {
	case score >= 80:
		return models.LiquidityExcellent
	case score >= 60:
		return models.LiquidityGood
	case score >= 40:
		return models.LiquidityModerate
	default:
		return models.LiquidityPoor
	}
}
