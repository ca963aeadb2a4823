package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"optionguard/internal/models"
)

// Property: for any positive spot, strike, expiry, and volatility, call delta
// stays within [0, 1], put delta within [-1, 0], and gamma and vega are
// non-negative. Degenerate inputs must never leak NaN or Inf.

func TestProperty_GreeksWithinBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("call delta in [0,1], put delta in [-1,0], gamma/vega >= 0", prop.ForAll(
		func(spot, strike, years, sigma float64) bool {
			callDelta, callGamma, _, callVega := BlackScholesGreeks(spot, strike, years, 0.05, sigma, models.OptionCall)
			putDelta, putGamma, _, putVega := BlackScholesGreeks(spot, strike, years, 0.05, sigma, models.OptionPut)

			if math.IsNaN(callDelta) || math.IsInf(callDelta, 0) {
				return false
			}
			if callDelta < 0 || callDelta > 1 {
				return false
			}
			if putDelta < -1 || putDelta > 0 {
				return false
			}
			if callGamma < 0 || callVega < 0 || putGamma < 0 || putVega < 0 {
				return false
			}
			return true
		},
		gen.Float64Range(1, 5000),
		gen.Float64Range(1, 5000),
		gen.Float64Range(0.001, 3),
		gen.Float64Range(0.01, 3),
	))

	properties.TestingRun(t)
}

func TestProperty_CallPutDeltaParity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("call delta minus put delta equals 1 and gammas match", prop.ForAll(
		func(spot, strike, years, sigma float64) bool {
			callDelta, callGamma, _, _ := BlackScholesGreeks(spot, strike, years, 0.05, sigma, models.OptionCall)
			putDelta, putGamma, _, _ := BlackScholesGreeks(spot, strike, years, 0.05, sigma, models.OptionPut)

			if math.Abs((callDelta-putDelta)-1) > 1e-9 {
				return false
			}
			return callGamma == putGamma
		},
		gen.Float64Range(10, 1000),
		gen.Float64Range(10, 1000),
		gen.Float64Range(0.01, 2),
		gen.Float64Range(0.05, 2),
	))

	properties.TestingRun(t)
}

func TestProperty_CallThetaNonPositive(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("long call theta never gains value from time passing", prop.ForAll(
		func(spot, strike, years, sigma float64) bool {
			_, _, theta, _ := BlackScholesGreeks(spot, strike, years, 0.05, sigma, models.OptionCall)
			return theta <= 0
		},
		gen.Float64Range(10, 1000),
		gen.Float64Range(10, 1000),
		gen.Float64Range(0.01, 2),
		gen.Float64Range(0.05, 2),
	))

	properties.TestingRun(t)
}

func TestProperty_IVRankWithinBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	// Disable shrinking so shrunk slices cannot drop below the minimum
	// history length the generator guarantees.
	parameters.MaxShrinkCount = 0

	properties := gopter.NewProperties(parameters)

	properties.Property("rank and percentile stay in [0,100] when current IV is drawn from history", prop.ForAll(
		func(history []float64, pick int) bool {
			if len(history) < 20 {
				return true
			}
			current := history[pick%len(history)]
			rank, percentile, high, low := IVRank(current, history)

			if rank < 0 || rank > 100 {
				return false
			}
			if percentile < 0 || percentile > 100 {
				return false
			}
			return low <= current && current <= high
		},
		gen.SliceOfN(60, gen.Float64Range(0.05, 2.5)),
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}

func TestProperty_ThetaProjectionsBounded(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("projected values are non-negative and never exceed the option price", prop.ForAll(
		func(dte int, price, theta float64) bool {
			a := ThetaDecay(dte, price, theta)

			if a.ProjectedValue7D < 0 || a.ProjectedValue14D < 0 {
				return false
			}
			if a.ProjectedValue7D > price || a.ProjectedValue14D > price {
				return false
			}
			if a.DailyDecay < 0 || a.WeeklyDecay != a.DailyDecay*7 {
				return false
			}
			return true
		},
		gen.IntRange(0, 120),
		gen.Float64Range(0.01, 100),
		gen.Float64Range(-5, 5),
	))

	properties.TestingRun(t)
}

func TestProperty_GammaScoreWithinBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("gamma risk score stays in [0,100] and explosion implies near strike and expiry", prop.ForAll(
		func(gamma, spot, strike float64, dte int, price float64) bool {
			a := GammaRisk(gamma, spot, strike, dte, price)

			if a.Score < 0 || a.Score > 100 {
				return false
			}
			if a.ExplosionRisk && (!a.NearStrike || !a.NearExpiry) {
				return false
			}
			return true
		},
		gen.Float64Range(0, 0.5),
		gen.Float64Range(1, 2000),
		gen.Float64Range(1, 2000),
		gen.IntRange(0, 90),
		gen.Float64Range(0.01, 200),
	))

	properties.TestingRun(t)
}

func TestProperty_LiquidityScoreWithinBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("liquidity score stays in [0,100] with a consistent rating", prop.ForAll(
		func(bid, spread float64, volume, oi int64) bool {
			ask := bid + spread
			a := LiquidityQuality(bid, ask, bid, volume, oi)

			if a.Score < 0 || a.Score > 100 {
				return false
			}
			switch {
			case a.Score >= 80:
				return a.Rating == models.LiquidityExcellent
			case a.Score >= 60:
				return a.Rating == models.LiquidityGood
			case a.Score >= 40:
				return a.Rating == models.LiquidityModerate
			default:
				return a.Rating == models.LiquidityPoor
			}
		},
		gen.Float64Range(0.01, 50),
		gen.Float64Range(0, 10),
		gen.Int64Range(0, 100000),
		gen.Int64Range(0, 100000),
	))

	properties.TestingRun(t)
}

func TestProperty_ExpectedMoveBandsOrdered(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("sigma bands bracket spot and probabilities stay in [0,100]", prop.ForAll(
		func(spot, iv float64, dte int, strike, stop, target float64) bool {
			a := ExpectedMoveAnalysis(spot, iv, dte, strike, true, stop, target)

			if a.LowerTwoSigma > a.LowerOneSigma || a.LowerOneSigma > spot {
				return false
			}
			if spot > a.UpperOneSigma || a.UpperOneSigma > a.UpperTwoSigma {
				return false
			}
			for _, p := range []float64{a.ProbTarget, a.ProbStop, a.ProbITM} {
				if p < 0 || p > 100 {
					return false
				}
			}
			return true
		},
		gen.Float64Range(10, 1000),
		gen.Float64Range(0.05, 2),
		gen.IntRange(1, 120),
		gen.Float64Range(10, 1000),
		gen.Float64Range(10, 1000),
		gen.Float64Range(10, 1000),
	))

	properties.TestingRun(t)
}

func TestProperty_ScenarioPricesFloored(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("every scenario option price respects the $0.01 floor", prop.ForAll(
		func(spot, option, entry, delta, gamma float64, isCall bool) bool {
			typ := models.OptionCall
			if !isCall {
				typ = models.OptionPut
			}
			pos := &models.Position{
				OptionType:       typ,
				Strike:           spot * 1.02,
				Quantity:         2,
				EntryUnderlying:  spot * 0.98,
				EntryOptionPrice: entry,
				StopPrice:        spot * 0.9,
				TargetPrice:      spot * 1.1,

				CurrentUnderlying: spot,
				CurrentOption:     option,
			}
			pos.Greeks.Delta = delta
			pos.Greeks.Gamma = gamma

			a := ScenarioLadder(pos)
			if len(a.Scenarios) != 9 {
				return false
			}
			for _, sc := range a.Scenarios {
				if sc.OptionPrice < 0.01 {
					return false
				}
			}
			return a.MaxLoss == entry*float64(pos.Quantity)*100
		},
		gen.Float64Range(20, 800),
		gen.Float64Range(0.05, 50),
		gen.Float64Range(0.05, 50),
		gen.Float64Range(-1, 1),
		gen.Float64Range(0, 0.2),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestProperty_HealthScoreWithinBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("overall score and every sub-score stay in [0,100] for extreme P&L", prop.ForAll(
		func(entry, current float64, dte int, ivRank, liqScore, prob float64, isCall bool) bool {
			typ := models.OptionCall
			if !isCall {
				typ = models.OptionPut
			}
			pos := &models.Position{
				OptionType:       typ,
				EntryOptionPrice: entry,
				CurrentOption:    current,
				DTE:              dte,
			}
			pos.Greeks.IVRank = ivRank
			pos.Liquidity.Score = liqScore
			pos.Expected.ProbTarget = prob

			s := HealthScore(pos)

			for _, v := range []float64{s.Overall, s.PnL, s.Theta, s.Gamma, s.IVRegime, s.Liquidity, s.Momentum, s.Probability} {
				if v < 0 || v > 100 {
					return false
				}
			}
			return s.Grade != "" && s.Weakest != ""
		},
		gen.Float64Range(0.01, 10),
		gen.Float64Range(0.0001, 600), // P&L% spans roughly -99% to +5000%
		gen.IntRange(0, 120),
		gen.Float64Range(0, 100),
		gen.Float64Range(0, 100),
		gen.Float64Range(0, 100),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
