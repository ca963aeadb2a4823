package models

import "time"

// StockSnapshot represents a live quote for an underlying.
type StockSnapshot struct {
	Symbol        string
	Price         float64
	Change        float64
	ChangePercent float64
	Timestamp     time.Time
}

// OptionSnapshot represents a live quote plus Greeks for one option contract.
type OptionSnapshot struct {
	Symbol       string
	Strike       float64
	Expiration   time.Time
	Type         OptionType
	Bid          float64
	Ask          float64
	Last         float64
	Volume       int64
	OpenInterest int64
	Delta        float64
	Gamma        float64
	Theta        float64
	Vega         float64
	IV           float64
	Timestamp    time.Time
}

// Mark returns the quote midpoint when both sides are present, otherwise the
// last traded price.
func (o *OptionSnapshot) Mark() float64 {
	if o.Bid > 0 && o.Ask > 0 {
		return (o.Bid + o.Ask) / 2
	}
	return o.Last
}

// Candle represents OHLCV data for a time period.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// MarketData bundles everything one evaluation cycle needs for a position.
// Any field may be missing after a partial fetch failure; the engine falls
// back to the previous cycle's values for whatever is absent.
type MarketData struct {
	Stock     *StockSnapshot
	Option    *OptionSnapshot
	History   []Candle
	IVHistory []float64
}
