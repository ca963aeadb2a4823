// Package analysis implements the pure financial calculations behind the
// decision engine: Black-Scholes Greeks, IV rank, theta decay, gamma risk,
// liquidity quality, expected move, scenario projection, roll scoring, and
// the composite health score. Nothing in this package performs I/O; every
// function is deterministic in its inputs and degrades to documented
// defaults instead of returning errors.
package analysis

import (
	"math"

	"optionguard/internal/models"
)

// Abramowitz-Stegun coefficients for the normal CDF approximation.
// Maximum absolute error 1.5e-7.
const (
	cdfA1 = 0.254829592
	cdfA2 = -0.284496736
	cdfA3 = 1.421413741
	cdfA4 = -1.453152027
	cdfA5 = 1.061405429
	cdfP  = 0.3275911
)

// normCDF approximates the standard normal cumulative distribution function.
func normCDF(x float64) float64 {
	sign := 1.0
	if x < 0 {
		sign = -1.0
	}
	x = math.Abs(x) / math.Sqrt2

	t := 1.0 / (1.0 + cdfP*x)
	y := 1.0 - (((((cdfA5*t+cdfA4)*t)+cdfA3)*t+cdfA2)*t+cdfA1)*t*math.Exp(-x*x)

	return 0.5 * (1.0 + sign*y)
}

// normPDF is the standard normal probability density function.
func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}

// BlackScholesGreeks computes delta, gamma, theta (per calendar day), and
// vega (per 1% IV change) for a European option under Black-Scholes.
// Degenerate inputs never produce NaN or Inf: when spot, strike, years, or
// sigma are non-positive the result is a neutral delta of +0.5 for calls and
// -0.5 for puts with all other Greeks zero.
func BlackScholesGreeks(spot, strike, years, rate, sigma float64, typ models.OptionType) (delta, gamma, theta, vega float64) {
	if years <= 0 || sigma <= 0 || spot <= 0 || strike <= 0 {
		if typ == models.OptionPut {
			return -0.5, 0, 0, 0
		}
		return 0.5, 0, 0, 0
	}

	sqrtT := math.Sqrt(years)
	d1 := (math.Log(spot/strike) + (rate+0.5*sigma*sigma)*years) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT

	if typ == models.OptionCall {
		delta = normCDF(d1)
		theta = (-spot*normPDF(d1)*sigma/(2*sqrtT) - rate*strike*math.Exp(-rate*years)*normCDF(d2)) / 365
	} else {
		delta = normCDF(d1) - 1
		theta = (-spot*normPDF(d1)*sigma/(2*sqrtT) + rate*strike*math.Exp(-rate*years)*normCDF(-d2)) / 365
	}

	gamma = normPDF(d1) / (spot * sigma * sqrtT)
	vega = spot * normPDF(d1) * sqrtT / 100

	return delta, gamma, theta, vega
}
