package engine

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"optionguard/internal/errors"
	"optionguard/internal/models"
	"optionguard/internal/store"
)

// AddPosition validates a new position, seeds its entry facts and scaling
// policy, and persists it. Entry facts are immutable afterwards.
func (e *Engine) AddPosition(ctx context.Context, pos *models.Position) error {
	if err := validatePosition(pos); err != nil {
		return err
	}

	now := time.Now()
	if pos.ID == "" {
		pos.ID = newPositionID(pos.Symbol, pos.Strike)
	}
	if pos.EntryDate.IsZero() {
		pos.EntryDate = now
	}
	pos.CreatedAt = now
	pos.UpdatedAt = now

	pos.EntryDelta = pos.Greeks.Delta
	pos.EntryIV = pos.Greeks.IV
	pos.Stops.Original = pos.StopPrice
	pos.Stops.Recommended = pos.StopPrice
	pos.Stops.ActiveRule = models.StopRuleOriginal

	pos.Scaling.T1Threshold = e.cfg.T1ThresholdPct
	pos.Scaling.T2Threshold = e.cfg.T2ThresholdPct
	pos.Scaling.T1SellPercent = e.cfg.T1SellPercent
	pos.Scaling.T2SellPercent = e.cfg.T2SellPercent
	pos.Scaling.RunnerPercent = e.cfg.RunnerPercent

	days := int(pos.Expiration.Sub(now).Hours() / 24)
	if days < 0 {
		days = 0
	}
	pos.DTE = days
	if pos.EntryDTE == 0 {
		pos.EntryDTE = days
	}

	if pos.CurrentUnderlying == 0 {
		pos.CurrentUnderlying = pos.EntryUnderlying
	}
	if pos.CurrentOption == 0 {
		pos.CurrentOption = pos.EntryOptionPrice
	}

	pos.Status = models.StatusNew
	pos.Action = models.ActionNone

	if err := e.store.Save(ctx, pos); err != nil {
		return errors.Wrap(err, "saving new position")
	}

	e.logger.Info().
		Str("position_id", pos.ID).
		Str("symbol", pos.Symbol).
		Str("type", string(pos.OptionType)).
		Float64("strike", pos.Strike).
		Int("quantity", pos.Quantity).
		Msg("position added")
	return nil
}

// ClosePosition archives a final snapshot of the position and removes it from
// the open set. A non-positive exit price falls back to the last known option
// price.
func (e *Engine) ClosePosition(ctx context.Context, id string, exitPrice float64, reason string) (*store.ClosedPosition, error) {
	pos, err := e.store.Load(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "loading position %s", id)
	}

	if exitPrice <= 0 {
		exitPrice = pos.CurrentOption
	}

	rec := &store.ClosedPosition{
		ID:          pos.ID,
		Symbol:      pos.Symbol,
		OptionType:  pos.OptionType,
		Strike:      pos.Strike,
		Expiration:  pos.Expiration,
		Quantity:    pos.Quantity,
		EntryDate:   pos.EntryDate,
		EntryOption: pos.EntryOptionPrice,
		ExitDate:    time.Now(),
		ExitOption:  exitPrice,
		ExitReason:  reason,
		PnLDollars:  (exitPrice - pos.EntryOptionPrice) * 100 * float64(pos.Quantity),
		DaysHeld:    pos.DaysHeld(),
	}
	if pos.EntryOptionPrice > 0 {
		rec.PnLPercent = (exitPrice - pos.EntryOptionPrice) / pos.EntryOptionPrice * 100
	}

	if err := e.store.Archive(ctx, rec); err != nil {
		return nil, errors.Wrap(err, "archiving closed position")
	}
	if err := e.store.Delete(ctx, id); err != nil {
		return nil, errors.Wrap(err, "removing closed position")
	}

	e.logger.Info().
		Str("position_id", pos.ID).
		Str("symbol", pos.Symbol).
		Str("reason", reason).
		Float64("exit_price", exitPrice).
		Float64("pnl_pct", rec.PnLPercent).
		Msg("position closed")
	return rec, nil
}

// AdjustPlan moves the plan stop and/or target. Zero leaves a value unchanged.
func (e *Engine) AdjustPlan(ctx context.Context, id string, stop, target float64) (*models.Position, error) {
	pos, err := e.store.Load(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "loading position %s", id)
	}

	if stop > 0 {
		pos.StopPrice = stop
	}
	if target > 0 {
		pos.TargetPrice = target
	}
	pos.UpdatedAt = time.Now()

	if err := e.store.Save(ctx, pos); err != nil {
		return nil, errors.Wrap(err, "saving plan change")
	}

	e.logger.Info().
		Str("position_id", pos.ID).
		Float64("stop", pos.StopPrice).
		Float64("target", pos.TargetPrice).
		Msg("plan adjusted")
	return pos, nil
}

// Get returns one open position by id.
func (e *Engine) Get(ctx context.Context, id string) (*models.Position, error) {
	return e.store.Load(ctx, id)
}

// List returns all open positions.
func (e *Engine) List(ctx context.Context) ([]*models.Position, error) {
	return e.store.LoadAll(ctx)
}

// Closed returns archived positions matching the filter.
func (e *Engine) Closed(ctx context.Context, filter store.ClosedFilter) ([]store.ClosedPosition, error) {
	return e.store.GetClosed(ctx, filter)
}

// Symbol pattern: uppercase ticker, optionally dotted share classes (BRK.B).
// The symbol ends up in gateway URL paths, so it is validated at the boundary.
var symbolPattern = regexp.MustCompile(`^[A-Z][A-Z.]{0,9}$`)

func validatePosition(pos *models.Position) error {
	if pos.Symbol == "" {
		return errors.NewValidationError("symbol", pos.Symbol, "symbol is required")
	}
	if !symbolPattern.MatchString(pos.Symbol) {
		return errors.NewValidationError("symbol", pos.Symbol, "symbol must be 1-10 uppercase letters")
	}
	if pos.OptionType != models.OptionCall && pos.OptionType != models.OptionPut {
		return errors.NewValidationError("type", string(pos.OptionType), "type must be CALL or PUT")
	}
	if pos.Strike <= 0 {
		return errors.NewValidationError("strike", pos.Strike, "strike must be positive")
	}
	if pos.Quantity <= 0 {
		return errors.NewValidationError("quantity", pos.Quantity, "quantity must be positive")
	}
	if pos.EntryOptionPrice <= 0 {
		return errors.NewValidationError("entry_option", pos.EntryOptionPrice, "entry option price must be positive")
	}
	if pos.EntryUnderlying <= 0 {
		return errors.NewValidationError("entry_stock", pos.EntryUnderlying, "entry stock price must be positive")
	}
	if pos.Expiration.IsZero() {
		return errors.NewValidationError("expiration", pos.Expiration, "expiration is required")
	}
	return nil
}

func newPositionID(symbol string, strike float64) string {
	return fmt.Sprintf("%s_%g_%s", symbol, strike, uuid.New().String()[:6])
}
