package engine

import (
	"fmt"

	"optionguard/internal/models"
)

// classify selects exactly one status and action per cycle by walking a fixed
// priority ladder and stopping at the first matching condition. Exit signals
// outrank roll and risk warnings, which outrank profit-taking, which outranks
// the score-banded holding tiers.
func (e *Engine) classify(pos *models.Position) {
	pnl := pos.PnLPercent()
	dte := pos.DTE
	score := pos.Score.Overall
	ivChange := pos.Greeks.IV - pos.EntryIV

	stopHit := (pos.IsCall() && pos.CurrentUnderlying <= pos.Stops.Recommended) ||
		(!pos.IsCall() && pos.CurrentUnderlying >= pos.Stops.Recommended)
	targetHit := (pos.IsCall() && pos.CurrentUnderlying >= pos.TargetPrice) ||
		(!pos.IsCall() && pos.CurrentUnderlying <= pos.TargetPrice)

	switch {
	case stopHit || pnl <= -50:
		pos.Status = models.StatusExitStop
		pos.Action = models.ActionExitNow
		pos.ActionDetail = "Stop hit - exit position immediately"

	case dte <= e.cfg.DTECritical && pnl < 30:
		pos.Status = models.StatusExitTime
		pos.Action = models.ActionExitNow
		pos.ActionDetail = fmt.Sprintf("Only %d DTE with limited profit - close or roll", dte)

	case pos.Scaling.RunnerClosed:
		pos.Status = models.StatusExitTarget
		pos.Action = models.ActionCloseRunner
		pos.ActionDetail = fmt.Sprintf("Runner complete: %s", pos.Scaling.RunnerExit)

	case pos.Roll.Urgency == models.RollUrgent:
		pos.Status = models.StatusConsiderRoll
		pos.Action = pos.Roll.Action()
		pos.ActionDetail = fmt.Sprintf("Roll recommended: %s", pos.Roll.Reason())

	case pos.Gamma.ExplosionRisk:
		pos.Status = models.StatusWarningGamma
		if pnl > 0 {
			pos.Action = models.ActionTightenStop
		} else {
			pos.Action = models.ActionExitNow
		}
		pos.ActionDetail = "High gamma risk - near strike + near expiry"

	case ivChange < -0.1 && pnl < 10:
		pos.Status = models.StatusWarningIVCrush
		pos.Action = models.ActionTightenStop
		pos.ActionDetail = "IV crush detected - tighten stop or exit"

	case targetHit || pnl >= pos.Scaling.T2Threshold:
		if pos.Scaling.RunnerActive {
			pos.Status = models.StatusRunnerActive
			pos.Action = models.ActionHold
			pos.ActionDetail = fmt.Sprintf("Runner riding to $%.2f", pos.Scaling.ExtendedTarget)
		} else {
			pos.Status = models.StatusTakeFull
			pos.Action = models.ActionTakeFull
			pos.ActionDetail = fmt.Sprintf("T2 target hit (+%.0f%%) - sell %.0f%%", pnl, pos.Scaling.T2SellPercent)
		}

	case pnl >= pos.Scaling.T1Threshold:
		pos.Status = models.StatusTakePartial
		pos.Action = models.ActionTakePartial
		pos.ActionDetail = fmt.Sprintf("T1 target hit (+%.0f%%) - sell %.0f%%", pnl, pos.Scaling.T1SellPercent)

	case dte <= e.cfg.DTEWarning && pos.Theta.Phase == models.DecayAccelerating:
		pos.Status = models.StatusWarningTheta
		if pnl > 0 {
			pos.Action = models.ActionRollOut
		} else {
			pos.Action = models.ActionExitNow
		}
		pos.ActionDetail = fmt.Sprintf("Theta accelerating (%d DTE) - manage time decay", dte)

	case pos.Liquidity.Score < 30:
		pos.Status = models.StatusWarningLiquidity
		pos.Action = models.ActionReduceSize
		pos.ActionDetail = "Poor liquidity - consider reducing size"

	case score >= 75 && pos.Context.TrendAligned:
		pos.Status = models.StatusHoldingStrong
		pos.Action = models.ActionHold
		pos.ActionDetail = fmt.Sprintf("Strong position (score: %.0f) - hold", score)

	case score >= 60:
		pos.Status = models.StatusHoldingGood
		pos.Action = models.ActionHold
		pos.ActionDetail = fmt.Sprintf("Good position (score: %.0f) - continue holding", score)

	case score >= 45:
		pos.Status = models.StatusHoldingNeutral
		if pnl > 20 {
			pos.Action = models.ActionTightenStop
		} else {
			pos.Action = models.ActionHold
		}
		pos.ActionDetail = fmt.Sprintf("Neutral position (score: %.0f) - monitor closely", score)

	default:
		pos.Status = models.StatusHoldingWeak
		pos.Action = models.ActionTightenStop
		pos.ActionDetail = fmt.Sprintf("Weak position (score: %.0f) - tighten risk management", score)
	}
}
