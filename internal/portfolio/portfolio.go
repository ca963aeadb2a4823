// Package portfolio rolls per-position analytics up to the account level:
// net greeks, sector concentration, capital at risk, and sizing guidance
// for the next trade. Analyze is a pure fold over already-updated open
// positions. It performs no I/O and mutates nothing it is handed; callers
// refresh positions through the engine first and render the report after.
package portfolio

import (
	"fmt"
	"math"
	"sort"
	"time"

	"optionguard/internal/models"
)

// DirectionalBias labels the sign of the account's net delta.
type DirectionalBias string

const (
	BiasBullish DirectionalBias = "BULLISH"
	BiasBearish DirectionalBias = "BEARISH"
	BiasNeutral DirectionalBias = "NEUTRAL"
)

// GreeksTotals is the account-level greek exposure in dollar terms.
// Delta and Gamma are share-equivalents, Theta is dollars per day, and
// Vega is dollars per implied-volatility point.
type GreeksTotals struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`

	Bias           DirectionalBias `json:"bias"`
	Interpretation string          `json:"interpretation"`
}

// HeatMapEntry is one row of the worst-first position heat map.
type HeatMapEntry struct {
	PositionID string                `json:"position_id"`
	Symbol     string                `json:"symbol"`
	Score      float64               `json:"score"`
	Grade      string                `json:"grade"`
	Weakest    string                `json:"weakest"`
	Status     models.PositionStatus `json:"status"`
	PnLPercent float64               `json:"pnl_percent"`
}

// Report is the full account-level risk picture.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	Positions   int       `json:"positions"`

	Greeks        GreeksTotals   `json:"greeks"`
	Concentration Concentration  `json:"concentration"`
	Risk          RiskMetrics    `json:"risk"`
	Sizing        Sizing         `json:"sizing"`
	HeatMap       []HeatMapEntry `json:"heat_map"`

	Score           float64  `json:"score"` // 0-100
	Headline        string   `json:"headline"`
	Warnings        []string `json:"warnings"`
	Recommendations []string `json:"recommendations"`
}

// Analyze folds the open book into a Report. totalCapital is the account
// size used for capital-at-risk percentages and trade sizing.
func Analyze(positions []*models.Position, totalCapital float64) *Report {
	open := make([]*models.Position, 0, len(positions))
	for _, pos := range positions {
		if pos != nil {
			open = append(open, pos)
		}
	}

	r := &Report{
		GeneratedAt:     time.Now(),
		Positions:       len(open),
		Greeks:          greeksTotals(open),
		Concentration:   concentration(open),
		Risk:            riskMetrics(open, totalCapital),
		HeatMap:         heatMap(open),
		Warnings:        []string{},
		Recommendations: []string{},
	}
	r.Sizing = sizing(r.Risk, r.Concentration, r.Greeks, len(open))

	if len(open) == 0 {
		r.Score = 50
		r.Headline = "No Open Positions"
		r.Recommendations = append(r.Recommendations,
			"Portfolio is empty - look for opportunities")
		return r
	}

	r.scoreOverall()
	return r
}

// positionValue is the current premium tied up in a position, in dollars.
func positionValue(pos *models.Position) float64 {
	return pos.CurrentOption * float64(pos.Quantity) * 100
}

// positionDelta is the signed share-equivalent delta of one position.
// Missing greeks assume an at-the-money 0.5 delta, and puts always count
// against the book regardless of the sign the feed reported.
func positionDelta(pos *models.Position) float64 {
	d := pos.Greeks.Delta
	if d == 0 {
		d = 0.5
	}
	d *= float64(pos.Quantity) * 100
	if !pos.IsCall() {
		d = -math.Abs(d)
	}
	return d
}

func greeksTotals(positions []*models.Position) GreeksTotals {
	var g GreeksTotals
	for _, pos := range positions {
		qty := float64(pos.Quantity)
		g.Delta += positionDelta(pos)

		gamma := pos.Greeks.Gamma
		if gamma == 0 {
			gamma = 0.02
		}
		g.Gamma += gamma * qty * 100
		g.Theta += pos.Greeks.Theta * qty * 100
		g.Vega += pos.Greeks.Vega * qty * 100
	}

	switch {
	case g.Delta > 50:
		g.Bias = BiasBullish
	case g.Delta < -50:
		g.Bias = BiasBearish
	default:
		g.Bias = BiasNeutral
	}

	switch {
	case g.Delta > 100:
		g.Interpretation = fmt.Sprintf("Strong bullish bias (delta %+.0f) - consider hedging", g.Delta)
	case g.Delta > 50:
		g.Interpretation = fmt.Sprintf("Bullish bias (delta %+.0f)", g.Delta)
	case g.Delta < -100:
		g.Interpretation = fmt.Sprintf("Strong bearish bias (delta %+.0f) - consider hedging", g.Delta)
	case g.Delta < -50:
		g.Interpretation = fmt.Sprintf("Bearish bias (delta %+.0f)", g.Delta)
	default:
		g.Interpretation = fmt.Sprintf("Balanced exposure (delta %+.0f)", g.Delta)
	}
	return g
}

// heatMap orders positions worst score first so operator attention lands
// where it is needed.
func heatMap(positions []*models.Position) []HeatMapEntry {
	entries := make([]HeatMapEntry, 0, len(positions))
	for _, pos := range positions {
		entries = append(entries, HeatMapEntry{
			PositionID: pos.ID,
			Symbol:     pos.Symbol,
			Score:      pos.Score.Overall,
			Grade:      pos.Score.Grade,
			Weakest:    pos.Score.Weakest,
			Status:     pos.Status,
			PnLPercent: pos.PnLPercent(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score < entries[j].Score
		}
		if entries[i].Symbol != entries[j].Symbol {
			return entries[i].Symbol < entries[j].Symbol
		}
		return entries[i].PositionID < entries[j].PositionID
	})
	return entries
}

// scoreOverall turns the section results into a 0-100 portfolio score with
// headline, warnings, and recommendations. Starts from a 70 baseline and
// subtracts for each stressed dimension.
func (r *Report) scoreOverall() {
	score := 70.0

	switch r.Risk.Level {
	case RiskCritical:
		score -= 30
		r.Warnings = append(r.Warnings, "CRITICAL: Capital at risk exceeds 25%")
		r.Recommendations = append(r.Recommendations, "Close losing positions immediately")
	case RiskHigh:
		score -= 20
		r.Warnings = append(r.Warnings, "HIGH RISK: Capital at risk exceeds 15%")
		r.Recommendations = append(r.Recommendations, "Reduce position sizes or close weakest positions")
	case RiskElevated:
		score -= 10
		r.Warnings = append(r.Warnings, "Elevated risk: capital at risk exceeds 10%")
	}

	switch {
	case r.Concentration.Score > 70:
		score -= 15
		r.Warnings = append(r.Warnings,
			fmt.Sprintf("Over-concentrated in %s", r.Concentration.LargestSector))
		r.Recommendations = append(r.Recommendations, "Add positions in different sectors")
	case r.Concentration.Score > 50:
		score -= 8
	}

	if r.Greeks.Theta < -100 {
		score -= 10
		r.Warnings = append(r.Warnings,
			fmt.Sprintf("Heavy theta decay: $%.0f/day", math.Abs(r.Greeks.Theta)))
		r.Recommendations = append(r.Recommendations, "Close near-expiry positions or roll out")
	}
	if math.Abs(r.Greeks.Delta) > 300 {
		score -= 10
		r.Warnings = append(r.Warnings,
			fmt.Sprintf("Large directional bet: delta %+.0f", r.Greeks.Delta))
		r.Recommendations = append(r.Recommendations, "Consider hedging with opposite direction")
	}

	switch {
	case r.Positions <= 3:
		score += 5
	case r.Positions > 6:
		score -= 5
		r.Warnings = append(r.Warnings, "Too many positions - harder to manage")
	}

	r.Score = math.Max(0, math.Min(100, score))

	switch {
	case r.Score >= 70:
		r.Headline = "Portfolio Health: GOOD"
	case r.Score >= 50:
		r.Headline = "Portfolio Health: MODERATE"
	case r.Score >= 30:
		r.Headline = "Portfolio Health: NEEDS ATTENTION"
	default:
		r.Headline = "Portfolio Health: CRITICAL"
	}
}
