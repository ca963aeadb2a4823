package indicators

// RSI calculates the Relative Strength Index over the trailing period using
// simple averages of the last period's gains and losses. Returns the neutral
// reading 50 when the history is shorter than period+1 closes, and 100 when
// there are no losses in the window.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 50
	}

	gains := make([]float64, 0, len(closes)-1)
	losses := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains = append(gains, change)
			losses = append(losses, 0)
		} else {
			gains = append(gains, 0)
			losses = append(losses, -change)
		}
	}

	avgGain := mean(gains[len(gains)-period:])
	avgLoss := mean(losses[len(losses)-period:])

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// MACD calculates the Moving Average Convergence Divergence: the 12/26 EMA
// spread, its 9-period signal line, and the histogram between them. All three
// values are zero when fewer than 35 closes are available.
func MACD(closes []float64) (line, signal, histogram float64) {
	if len(closes) < 35 {
		return 0, 0, 0
	}

	ema12 := EMA(closes, 12)
	ema26 := EMA(closes, 26)

	n := len(ema12)
	if len(ema26) < n {
		n = len(ema26)
	}
	macdLine := make([]float64, n)
	for i := 0; i < n; i++ {
		macdLine[i] = ema12[len(ema12)-n+i] - ema26[len(ema26)-n+i]
	}

	if len(macdLine) < 9 {
		return 0, 0, 0
	}
	signalLine := EMA(macdLine, 9)

	line = macdLine[len(macdLine)-1]
	signal = signalLine[len(signalLine)-1]
	return line, signal, line - signal
}

// MACDSignal classifies the histogram into BULLISH, BEARISH, or NEUTRAL.
func MACDSignal(histogram float64) string {
	switch {
	case histogram > 0:
		return "BULLISH"
	case histogram < 0:
		return "BEARISH"
	default:
		return "NEUTRAL"
	}
}
