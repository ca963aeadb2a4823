// Package gateway provides market data access interfaces and implementations.
package gateway

import (
	"context"
	"time"

	"optionguard/internal/models"
)

// Gateway defines the interface for market data access. Implementations must
// be safe for concurrent use; the engine fans out one goroutine per position.
type Gateway interface {
	// Quotes
	GetStockSnapshot(ctx context.Context, symbol string) (*models.StockSnapshot, error)
	GetOptionSnapshot(ctx context.Context, req OptionRequest) (*models.OptionSnapshot, error)

	// History
	GetStockHistory(ctx context.Context, symbol string, days int) ([]models.Candle, error)
	GetIVHistory(ctx context.Context, symbol string, days int) ([]float64, error)
}

// OptionRequest identifies a single option contract.
type OptionRequest struct {
	Symbol     string
	Strike     float64
	Expiration time.Time
	Type       models.OptionType
}

// RequestFor builds the contract request for a position.
func RequestFor(pos *models.Position) OptionRequest {
	return OptionRequest{
		Symbol:     pos.Symbol,
		Strike:     pos.Strike,
		Expiration: pos.Expiration,
		Type:       pos.OptionType,
	}
}
