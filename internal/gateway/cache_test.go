package gateway

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optionguard/internal/errors"
	"optionguard/internal/models"
)

// scriptedGateway counts calls and fails on demand.
type scriptedGateway struct {
	mu      sync.Mutex
	stocks  int
	options int
	history int
	ivs     int
	fail    bool
	price   float64
}

func (s *scriptedGateway) GetStockSnapshot(ctx context.Context, symbol string) (*models.StockSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stocks++
	if s.fail {
		return nil, errors.ErrGatewayUnavailable
	}
	return &models.StockSnapshot{Symbol: symbol, Price: s.price, Timestamp: time.Now()}, nil
}

func (s *scriptedGateway) GetOptionSnapshot(ctx context.Context, req OptionRequest) (*models.OptionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options++
	if s.fail {
		return nil, errors.ErrGatewayUnavailable
	}
	return &models.OptionSnapshot{
		Symbol: req.Symbol, Strike: req.Strike, Expiration: req.Expiration, Type: req.Type,
		Bid: 4.30, Ask: 4.40, Last: 4.35, Timestamp: time.Now(),
	}, nil
}

func (s *scriptedGateway) GetStockHistory(ctx context.Context, symbol string, days int) ([]models.Candle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history++
	if s.fail {
		return nil, errors.ErrGatewayUnavailable
	}
	return []models.Candle{{Close: s.price}}, nil
}

func (s *scriptedGateway) GetIVHistory(ctx context.Context, symbol string, days int) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ivs++
	if s.fail {
		return nil, errors.ErrGatewayUnavailable
	}
	return []float64{0.3, 0.32, 0.28}, nil
}

func (s *scriptedGateway) setFail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

func TestCacheServesFreshHits(t *testing.T) {
	inner := &scriptedGateway{price: 188.0}
	cg := NewCachedGateway(inner, CacheConfig{TTL: time.Minute, MaxStale: 10 * time.Minute}, zerolog.Nop())
	ctx := context.Background()

	first, err := cg.GetStockSnapshot(ctx, "AAPL")
	require.NoError(t, err)
	second, err := cg.GetStockSnapshot(ctx, "AAPL")
	require.NoError(t, err)

	assert.Equal(t, first.Price, second.Price)
	assert.Equal(t, 1, inner.stocks, "second call inside the TTL must not reach the provider")
}

func TestCacheServesStaleValueOnFailure(t *testing.T) {
	inner := &scriptedGateway{price: 188.0}
	cg := NewCachedGateway(inner, CacheConfig{TTL: time.Millisecond, MaxStale: time.Minute}, zerolog.Nop())
	ctx := context.Background()

	_, err := cg.GetStockSnapshot(ctx, "AAPL")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	inner.setFail(true)

	snap, err := cg.GetStockSnapshot(ctx, "AAPL")
	require.NoError(t, err, "stale value inside MaxStale must be served")
	assert.Equal(t, 188.0, snap.Price)
	assert.Equal(t, 2, inner.stocks, "expired TTL must attempt a refresh first")
}

func TestCacheStaleWindowExpires(t *testing.T) {
	inner := &scriptedGateway{price: 188.0}
	cg := NewCachedGateway(inner, CacheConfig{TTL: time.Millisecond, MaxStale: 2 * time.Millisecond}, zerolog.Nop())
	ctx := context.Background()

	_, err := cg.GetStockSnapshot(ctx, "AAPL")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	inner.setFail(true)

	_, err = cg.GetStockSnapshot(ctx, "AAPL")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrGatewayUnavailable))
}

func TestCacheKeysOptionsByContract(t *testing.T) {
	inner := &scriptedGateway{price: 188.0}
	cg := NewCachedGateway(inner, CacheConfig{TTL: time.Minute, MaxStale: 10 * time.Minute}, zerolog.Nop())
	ctx := context.Background()
	exp := time.Date(2025, 10, 17, 0, 0, 0, 0, time.UTC)

	for _, strike := range []float64{190, 195, 190} {
		_, err := cg.GetOptionSnapshot(ctx, OptionRequest{
			Symbol: "AAPL", Strike: strike, Expiration: exp, Type: models.OptionCall,
		})
		require.NoError(t, err)
	}

	assert.Equal(t, 2, inner.options, "distinct contracts fetch, repeats hit cache")
}

func TestCacheKeysHistoryByWindow(t *testing.T) {
	inner := &scriptedGateway{price: 188.0}
	cg := NewCachedGateway(inner, CacheConfig{TTL: time.Minute, MaxStale: 10 * time.Minute}, zerolog.Nop())
	ctx := context.Background()

	_, err := cg.GetStockHistory(ctx, "AAPL", 50)
	require.NoError(t, err)
	_, err = cg.GetStockHistory(ctx, "AAPL", 100)
	require.NoError(t, err)
	_, err = cg.GetStockHistory(ctx, "AAPL", 50)
	require.NoError(t, err)

	assert.Equal(t, 2, inner.history)

	_, err = cg.GetIVHistory(ctx, "AAPL", 252)
	require.NoError(t, err)
	_, err = cg.GetIVHistory(ctx, "AAPL", 252)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.ivs)
}
