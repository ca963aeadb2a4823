package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"optionguard/internal/logging"
	"optionguard/internal/models"
)

// CacheConfig holds cache freshness windows.
type CacheConfig struct {
	// TTL is how long a fetched value is served without hitting the provider.
	TTL time.Duration
	// MaxStale bounds how old a cached value may be when served as a fallback
	// after a fetch failure. Beyond it the failure propagates.
	MaxStale time.Duration
}

// DefaultCacheConfig returns the default freshness windows.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:      time.Minute,
		MaxStale: 15 * time.Minute,
	}
}

// CachedGateway decorates a Gateway with a last-good-value cache. Hits inside
// the TTL skip the provider entirely; on provider failure the last good value
// is served while younger than MaxStale, so one hiccup does not blank an
// update cycle. Values older than MaxStale are not served and the provider's
// error propagates to the caller's degraded-input handling.
type CachedGateway struct {
	inner  Gateway
	cfg    CacheConfig
	logger zerolog.Logger

	mu      sync.RWMutex
	stocks  map[string]*cacheEntry[*models.StockSnapshot]
	options map[string]*cacheEntry[*models.OptionSnapshot]
	history map[string]*cacheEntry[[]models.Candle]
	ivs     map[string]*cacheEntry[[]float64]
}

type cacheEntry[T any] struct {
	value     T
	fetchedAt time.Time
}

// NewCachedGateway wraps a gateway with the freshness cache.
func NewCachedGateway(inner Gateway, cfg CacheConfig, logger zerolog.Logger) *CachedGateway {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheConfig().TTL
	}
	if cfg.MaxStale < cfg.TTL {
		cfg.MaxStale = DefaultCacheConfig().MaxStale
	}
	return &CachedGateway{
		inner:   inner,
		cfg:     cfg,
		logger:  logging.WithComponent(logger, "gateway_cache"),
		stocks:  make(map[string]*cacheEntry[*models.StockSnapshot]),
		options: make(map[string]*cacheEntry[*models.OptionSnapshot]),
		history: make(map[string]*cacheEntry[[]models.Candle]),
		ivs:     make(map[string]*cacheEntry[[]float64]),
	}
}

// GetStockSnapshot returns the cached quote inside the TTL, otherwise fetches.
func (cg *CachedGateway) GetStockSnapshot(ctx context.Context, symbol string) (*models.StockSnapshot, error) {
	return fetchThrough(cg, cg.stocks, symbol, "stock_snapshot", func() (*models.StockSnapshot, error) {
		return cg.inner.GetStockSnapshot(ctx, symbol)
	})
}

// GetOptionSnapshot returns the cached contract quote inside the TTL,
// otherwise fetches. Keyed by the full contract identifier.
func (cg *CachedGateway) GetOptionSnapshot(ctx context.Context, req OptionRequest) (*models.OptionSnapshot, error) {
	key := OptionTicker(req.Symbol, req.Strike, req.Expiration, req.Type)
	return fetchThrough(cg, cg.options, key, "option_snapshot", func() (*models.OptionSnapshot, error) {
		return cg.inner.GetOptionSnapshot(ctx, req)
	})
}

// GetStockHistory returns cached daily candles inside the TTL, otherwise fetches.
func (cg *CachedGateway) GetStockHistory(ctx context.Context, symbol string, days int) ([]models.Candle, error) {
	key := fmt.Sprintf("%s/%d", symbol, days)
	return fetchThrough(cg, cg.history, key, "stock_history", func() ([]models.Candle, error) {
		return cg.inner.GetStockHistory(ctx, symbol, days)
	})
}

// GetIVHistory returns the cached volatility series inside the TTL, otherwise fetches.
func (cg *CachedGateway) GetIVHistory(ctx context.Context, symbol string, days int) ([]float64, error) {
	key := fmt.Sprintf("%s/%d", symbol, days)
	return fetchThrough(cg, cg.ivs, key, "iv_history", func() ([]float64, error) {
		return cg.inner.GetIVHistory(ctx, symbol, days)
	})
}

// fetchThrough implements the read path shared by all four data kinds:
// fresh cache hit, then provider fetch, then bounded stale fallback.
func fetchThrough[T any](cg *CachedGateway, entries map[string]*cacheEntry[T], key, kind string, fetch func() (T, error)) (T, error) {
	cg.mu.RLock()
	entry, ok := entries[key]
	cg.mu.RUnlock()

	now := time.Now()
	if ok && now.Sub(entry.fetchedAt) < cg.cfg.TTL {
		return entry.value, nil
	}

	value, err := fetch()
	if err == nil {
		cg.mu.Lock()
		entries[key] = &cacheEntry[T]{value: value, fetchedAt: now}
		cg.mu.Unlock()
		return value, nil
	}

	if ok && now.Sub(entry.fetchedAt) < cg.cfg.MaxStale {
		cg.logger.Warn().
			Str("kind", kind).
			Str("key", key).
			Dur("age", now.Sub(entry.fetchedAt)).
			Err(err).
			Msg("Serving stale market data after fetch failure")
		return entry.value, nil
	}

	var zero T
	return zero, err
}
