package indicators

import "optionguard/internal/models"

// VolumeVsAverage returns the latest session's volume relative to the 20-day
// average. Returns 1 when the history is short or the average is zero.
func VolumeVsAverage(candles []models.Candle) float64 {
	vols := volumes(candles)
	if len(vols) < 20 {
		return 1
	}

	var total float64
	for _, v := range vols[len(vols)-20:] {
		total += float64(v)
	}
	avg := total / 20
	if avg <= 0 {
		return 1
	}
	return float64(vols[len(vols)-1]) / avg
}
