package engine

import (
	"time"

	"github.com/rs/zerolog"

	"optionguard/internal/logging"
	"optionguard/internal/models"
)

// applyScaling fires the one-shot profit tiers and manages the runner tranche.
// T1/T2 record the option price and date at the moment they fire and never
// fire twice nor un-fire.
func (e *Engine) applyScaling(pos *models.Position, now time.Time, log zerolog.Logger) {
	pnl := pos.PnLPercent()
	atr := pos.Context.ATR
	if atr == 0 {
		atr = pos.CurrentUnderlying * e.cfg.ATRFallbackPct / 100
	}

	sc := &pos.Scaling

	if !sc.T1Triggered && pnl >= sc.T1Threshold {
		sc.T1Triggered = true
		sc.T1Price = pos.CurrentOption
		t := now
		sc.T1Date = &t
		logging.LogScaleEvent(log, pos.ID, pos.Symbol, "T1", sc.T1Price, sc.T1SellPercent)
	}

	if !sc.T2Triggered && pnl >= sc.T2Threshold {
		sc.T2Triggered = true
		sc.T2Price = pos.CurrentOption
		t := now
		sc.T2Date = &t
		sc.RunnerActive = true

		if pos.IsCall() {
			sc.ExtendedTarget = pos.TargetPrice + atr*e.cfg.ExtendedTargetATR
		} else {
			sc.ExtendedTarget = pos.TargetPrice - atr*e.cfg.ExtendedTargetATR
		}
		logging.LogScaleEvent(log, pos.ID, pos.Symbol, "T2", sc.T2Price, sc.T2SellPercent)
	}

	// Runner exits
	if sc.RunnerActive && !sc.RunnerClosed {
		if pos.IsCall() {
			if pos.CurrentUnderlying >= sc.ExtendedTarget {
				closeRunner(sc, models.RunnerExitExtendedTarget, pos.CurrentOption)
			} else if pos.CurrentUnderlying <= pos.Stops.RunnerTrail {
				closeRunner(sc, models.RunnerExitTrailStop, pos.CurrentOption)
			}
		} else {
			if pos.CurrentUnderlying <= sc.ExtendedTarget {
				closeRunner(sc, models.RunnerExitExtendedTarget, pos.CurrentOption)
			} else if pos.CurrentUnderlying >= pos.Stops.RunnerTrail {
				closeRunner(sc, models.RunnerExitTrailStop, pos.CurrentOption)
			}
		}

		// The DTE floor closes the runner regardless of price action, and
		// takes precedence over a price exit found in the same cycle.
		if pos.DTE <= e.cfg.RunnerMinDTE {
			closeRunner(sc, models.RunnerExitDTEFloor, pos.CurrentOption)
		}

		if sc.RunnerClosed {
			log.Info().
				Str("position_id", pos.ID).
				Str("reason", string(sc.RunnerExit)).
				Float64("exit_price", sc.RunnerExitPrice).
				Msg("runner closed")
		}
	}
}

func closeRunner(sc *models.ScalingState, reason models.RunnerExitReason, price float64) {
	sc.RunnerClosed = true
	sc.RunnerExit = reason
	sc.RunnerExitPrice = price
}
