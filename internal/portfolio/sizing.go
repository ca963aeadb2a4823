package portfolio

import (
	"fmt"
	"math"
)

const (
	// Stop adding risk once capital at risk reaches this percent of capital.
	riskBudgetPct = 10.0
	// Cap any single new position's risk at this percent of capital.
	maxTradeRiskPct = 2.0
)

// Sizing answers "can I add another position, and how big" from the
// current risk picture.
type Sizing struct {
	OpenPositions      int      `json:"open_positions"`
	MaxRecommended     int      `json:"max_recommended"`
	CanAdd             bool     `json:"can_add"`
	RemainingBudgetPct float64  `json:"remaining_budget_pct"`
	RecommendedSizePct float64  `json:"recommended_size_pct"`
	MaxRiskPerTrade    float64  `json:"max_risk_per_trade"`
	Factors            []string `json:"factors"`
}

func sizing(risk RiskMetrics, conc Concentration, greeks GreeksTotals, openPositions int) Sizing {
	s := Sizing{OpenPositions: openPositions, Factors: []string{}}

	switch risk.Level {
	case RiskCritical:
		s.MaxRecommended = 2
	case RiskHigh:
		s.MaxRecommended = 3
	case RiskElevated:
		s.MaxRecommended = 4
	default:
		s.MaxRecommended = 5
	}
	s.CanAdd = openPositions < s.MaxRecommended && risk.Level != RiskCritical

	s.RemainingBudgetPct = math.Max(0, riskBudgetPct-risk.CapitalAtRiskPct)
	s.RecommendedSizePct = math.Min(maxTradeRiskPct, s.RemainingBudgetPct/2)
	s.MaxRiskPerTrade = risk.TotalCapital * s.RecommendedSizePct / 100

	if risk.CapitalAtRiskPct > riskBudgetPct {
		s.Factors = append(s.Factors, "Already at risk limit - reduce before adding")
	}
	if conc.Score > 60 {
		s.Factors = append(s.Factors,
			fmt.Sprintf("High %s concentration - diversify", conc.LargestSector))
	}
	if greeks.Delta > 200 {
		s.Factors = append(s.Factors, "High bullish delta - consider hedging or neutral trades")
	} else if greeks.Delta < -200 {
		s.Factors = append(s.Factors, "High bearish delta - consider hedging or neutral trades")
	}
	if greeks.Theta < -50 {
		s.Factors = append(s.Factors,
			fmt.Sprintf("Theta bleeding $%.0f/day", math.Abs(greeks.Theta)))
	}
	return s
}
