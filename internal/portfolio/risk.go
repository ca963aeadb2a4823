package portfolio

import (
	"math"

	"optionguard/internal/models"
)

// RiskLevel grades an exposure measure on a five-step ladder.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskElevated RiskLevel = "ELEVATED"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// RiskMetrics rolls per-position stop risk up to the account level.
type RiskMetrics struct {
	TotalCapital     float64 `json:"total_capital"`
	TotalValue       float64 `json:"total_value"` // open premium at current marks
	CapitalAtRisk    float64 `json:"capital_at_risk"`
	CapitalAtRiskPct float64 `json:"capital_at_risk_pct"`
	MaxLossAllStops  float64 `json:"max_loss_all_stops"`
	AvgPositionSize  float64 `json:"avg_position_size"`

	LargestPosition string  `json:"largest_position"`
	LargestValue    float64 `json:"largest_value"`
	LargestPctOfCap float64 `json:"largest_pct_of_capital"`

	Level RiskLevel `json:"level"`
}

func riskMetrics(positions []*models.Position, totalCapital float64) RiskMetrics {
	m := RiskMetrics{TotalCapital: totalCapital, Level: RiskLow}

	count := 0
	for _, pos := range positions {
		if pos == nil {
			continue
		}
		count++
		value := positionValue(pos)
		m.TotalValue += value
		m.CapitalAtRisk += positionRisk(pos, value)

		if value > m.LargestValue {
			m.LargestValue = value
			m.LargestPosition = pos.Symbol
		}
	}

	if count > 0 {
		m.AvgPositionSize = m.TotalValue / float64(count)
	}
	if totalCapital > 0 {
		m.CapitalAtRiskPct = m.CapitalAtRisk / totalCapital * 100
		m.LargestPctOfCap = m.LargestValue / totalCapital * 100
	}
	m.MaxLossAllStops = m.CapitalAtRisk
	m.Level = capitalRiskLevel(m.CapitalAtRiskPct)
	return m
}

// positionRisk is the dollar loss if the recommended stop fires. Positions
// without a computed stop risk the full premium.
func positionRisk(pos *models.Position, value float64) float64 {
	if r := math.Abs(pos.Stops.RiskDollars); r > 0 {
		return r
	}
	return value
}

func capitalRiskLevel(carPct float64) RiskLevel {
	switch {
	case carPct >= 25:
		return RiskCritical
	case carPct >= 15:
		return RiskHigh
	case carPct >= 10:
		return RiskElevated
	case carPct >= 5:
		return RiskModerate
	default:
		return RiskLow
	}
}
