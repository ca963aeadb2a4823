// Package store provides position persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"optionguard/internal/models"
)

// PositionStore defines the interface for position persistence. Every field
// of a position, including nested sub-records and state variants, must
// round-trip save/load without loss.
type PositionStore interface {
	// Positions
	Save(ctx context.Context, pos *models.Position) error
	Load(ctx context.Context, id string) (*models.Position, error)
	LoadAll(ctx context.Context) ([]*models.Position, error)
	Delete(ctx context.Context, id string) error

	// Archive
	Archive(ctx context.Context, rec *ClosedPosition) error
	GetClosed(ctx context.Context, filter ClosedFilter) ([]ClosedPosition, error)

	// Lifecycle
	Close() error
}

// ClosedPosition is the final snapshot archived when a position is closed.
type ClosedPosition struct {
	ID          string            `json:"id" csv:"id"`
	Symbol      string            `json:"symbol" csv:"symbol"`
	OptionType  models.OptionType `json:"option_type" csv:"option_type"`
	Strike      float64           `json:"strike" csv:"strike"`
	Expiration  time.Time         `json:"expiration" csv:"expiration"`
	Quantity    int               `json:"quantity" csv:"quantity"`
	EntryDate   time.Time         `json:"entry_date" csv:"entry_date"`
	EntryOption float64           `json:"entry_option" csv:"entry_option"`
	ExitDate    time.Time         `json:"exit_date" csv:"exit_date"`
	ExitOption  float64           `json:"exit_option" csv:"exit_option"`
	ExitReason  string            `json:"exit_reason" csv:"exit_reason"`
	PnLDollars  float64           `json:"pnl_dollars" csv:"pnl_dollars"`
	PnLPercent  float64           `json:"pnl_percent" csv:"pnl_percent"`
	DaysHeld    int               `json:"days_held" csv:"days_held"`
}

// ClosedFilter represents filters for querying archived positions.
type ClosedFilter struct {
	Symbol string
	Since  time.Time
	Limit  int
}
