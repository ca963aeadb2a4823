package analysis

import "optionguard/internal/models"

// RollRecommendation accumulates roll pressure from expiry, decay, and IV
// regime, then sizes the suggested roll. Urgency crosses into RECOMMENDED at
// a score of 30 and URGENT at 50. A position in significant profit rolls up
// (calls) or down (puts) toward the money; otherwise the suggestion is a
// plain roll out at the same strike.
func RollRecommendation(pos *models.Position) models.RollAnalysis {
	a := models.RollAnalysis{Urgency: models.RollNone}

	dte := pos.DTE
	pnl := pos.PnLPercent()
	decayPct := pos.Theta.DecayPercent
	ivRank := pos.Greeks.IVRank

	score := 0.0
	switch {
	case dte <= 7:
		a.Reasons = append(a.Reasons, "DTE critical (<7 days)")
		score += 40
	case dte <= 14:
		a.Reasons = append(a.Reasons, "DTE warning (<14 days)")
		score += 25
	case dte <= 21 && pnl < 30:
		a.Reasons = append(a.Reasons, "DTE accelerating with limited profit")
		score += 15
	}

	if decayPct > 3 && pnl < 20 {
		a.Reasons = append(a.Reasons, "High theta decay with low profit")
		score += 20
	}

	if ivRank < 20 && pnl > 0 {
		a.Reasons = append(a.Reasons, "Low IV rank - consider taking profits")
		score += 10
	}

	a.UrgencyScore = score
	if score <= 0 {
		return a
	}

	a.ShouldRoll = score >= 30
	switch {
	case score >= 50:
		a.Urgency = models.RollUrgent
	case score >= 30:
		a.Urgency = models.RollRecommended
	default:
		a.Urgency = models.RollConsider
	}

	if dte < 14 {
		a.SuggestedDTE = 30
	} else {
		a.SuggestedDTE = 45
	}

	spot := pos.CurrentUnderlying
	switch {
	case pnl > 50 && pos.IsCall() && spot > pos.Strike:
		a.Type = models.RollUpOut
		a.SuggestedStrike = pos.Strike + (spot-pos.Strike)*0.5
	case pnl > 50 && !pos.IsCall() && spot < pos.Strike:
		a.Type = models.RollDownOut
		a.SuggestedStrike = pos.Strike - (pos.Strike-spot)*0.5
	default:
		a.Type = models.RollOut
		a.SuggestedStrike = pos.Strike
	}

	return a
}
