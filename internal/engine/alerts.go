package engine

import (
	"fmt"
	"strings"

	"optionguard/internal/models"
)

// generateAlerts appends the cycle's advisory alerts and warnings. Both lists
// are purely informational and never block the status decision.
func (e *Engine) generateAlerts(pos *models.Position) {
	sc := &pos.Scaling

	// Scaling
	if sc.T1Triggered && !anyContains(pos.Alerts, "T1") {
		pos.Alerts = append(pos.Alerts,
			fmt.Sprintf("T1 TRIGGERED at +%.0f%% - sell %.0f%%", sc.T1Threshold, sc.T1SellPercent))
	}
	if sc.T2Triggered && sc.RunnerActive && !sc.RunnerClosed {
		pos.Alerts = append(pos.Alerts,
			fmt.Sprintf("RUNNER ACTIVE - target $%.2f", sc.ExtendedTarget))
	}

	// Stop maintenance
	if pos.Stops.NeedsUpdate {
		pos.Alerts = append(pos.Alerts,
			fmt.Sprintf("UPDATE STOP: $%.2f -> $%.2f", pos.StopPrice, pos.Stops.Recommended))
	}

	// Expiry countdown
	if pos.DTE <= e.cfg.DTECritical {
		pos.Alerts = append(pos.Alerts,
			fmt.Sprintf("CRITICAL: Only %d DTE remaining!", pos.DTE))
	} else if pos.DTE <= e.cfg.DTEWarning {
		pos.Alerts = append(pos.Alerts,
			fmt.Sprintf("WARNING: %d DTE - theta accelerating", pos.DTE))
	}

	// Gamma
	if pos.Gamma.ExplosionRisk {
		pos.Alerts = append(pos.Alerts, "GAMMA EXPLOSION RISK - near strike + near expiry")
	}

	// IV regime
	if pos.Greeks.IVRank >= 80 {
		pos.Warnings = append(pos.Warnings,
			fmt.Sprintf("High IV Rank (%.0f) - IV crush risk", pos.Greeks.IVRank))
	} else if pos.Greeks.IVRank <= 20 {
		pos.Warnings = append(pos.Warnings,
			fmt.Sprintf("Low IV Rank (%.0f) - good entry environment", pos.Greeks.IVRank))
	}
	if ivChange := pos.Greeks.IV - pos.EntryIV; ivChange < -0.05 {
		pos.Warnings = append(pos.Warnings,
			fmt.Sprintf("IV dropped %.1f%% since entry", ivChange*100))
	}

	// Roll
	if pos.Roll.Urgency == models.RollRecommended || pos.Roll.Urgency == models.RollUrgent {
		pos.Alerts = append(pos.Alerts,
			fmt.Sprintf("%s: %s", pos.Roll.Urgency, pos.Roll.Reason()))
	}

	// Liquidity
	if pos.Liquidity.Score < 40 {
		pos.Warnings = append(pos.Warnings,
			fmt.Sprintf("Low liquidity (score: %.0f)", pos.Liquidity.Score))
	}

	// Momentum
	if !pos.Context.TrendAligned && pos.PnLPercent() < 20 {
		pos.Warnings = append(pos.Warnings, "Trend not aligned with position")
	}
}

func anyContains(list []string, substr string) bool {
	for _, s := range list {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}
