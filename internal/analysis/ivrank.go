package analysis

// IVRank places the current IV within its trailing history. Rank is the
// position of current IV in the [low, high] range scaled to 0-100, and
// percentile is the share of historical points strictly below current.
// A history shorter than 20 points (or a flat range) reads as the neutral
// 50/50 with the range pinned to the current value.
func IVRank(currentIV float64, history []float64) (rank, percentile, high, low float64) {
	if len(history) < 20 {
		return 50, 50, currentIV, currentIV
	}

	high = history[0]
	low = history[0]
	for _, iv := range history[1:] {
		if iv > high {
			high = iv
		}
		if iv < low {
			low = iv
		}
	}

	if high == low {
		rank = 50
	} else {
		rank = (currentIV - low) / (high - low) * 100
	}

	below := 0
	for _, iv := range history {
		if iv < currentIV {
			below++
		}
	}
	percentile = float64(below) / float64(len(history)) * 100

	return rank, percentile, high, low
}
