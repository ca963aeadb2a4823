package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"optionguard/internal/errors"
	"optionguard/internal/logging"
	"optionguard/internal/models"
	"optionguard/pkg/utils"
)

// PolygonConfig holds configuration for the Polygon.io client.
type PolygonConfig struct {
	APIKey        string
	BaseURL       string
	Timeout       time.Duration
	RateLimit     float64 // requests per second
	RateBurst     int
	HistoryDays   int
	IVHistoryDays int
}

// PolygonClient implements Gateway against the Polygon.io REST API.
// Calls are rate limited, retried with backoff on transient failures, and
// guarded by a circuit breaker so a provider outage fails fast instead of
// stalling every position update.
type PolygonClient struct {
	cfg     PolygonConfig
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	retry   utils.RetryConfig
	logger  zerolog.Logger
}

// NewPolygonClient creates a new Polygon.io gateway client.
func NewPolygonClient(cfg PolygonConfig, logger zerolog.Logger) *PolygonClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.polygon.io"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 5
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 5
	}
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = 100
	}
	if cfg.IVHistoryDays <= 0 {
		cfg.IVHistoryDays = 252
	}

	log := logging.WithComponent(logger, "gateway")

	retryCfg := utils.DefaultRetryConfig()
	retryCfg.RetryableErrors = []error{errors.ErrGatewayUnavailable, errors.ErrRateLimited}

	settings := gobreaker.Settings{
		Name:    "polygon",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Gateway circuit state changed")
		},
	}

	return &PolygonClient{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		breaker: gobreaker.NewCircuitBreaker(settings),
		retry:   retryCfg,
		logger:  log,
	}
}

// OptionTicker formats the OCC-style contract identifier Polygon uses:
// O:{symbol}{yymmdd}{C|P}{strike x 1000, 8 digits}.
func OptionTicker(symbol string, strike float64, expiration time.Time, typ models.OptionType) string {
	c := "C"
	if typ == models.OptionPut {
		c = "P"
	}
	return fmt.Sprintf("O:%s%s%s%08d", symbol, expiration.Format("060102"), c, int(math.Round(strike*1000)))
}

// ============ Wire Types ============

type stockSnapshotResponse struct {
	Ticker struct {
		Day struct {
			Close  float64 `json:"c"`
			Open   float64 `json:"o"`
			High   float64 `json:"h"`
			Low    float64 `json:"l"`
			Volume float64 `json:"v"`
		} `json:"day"`
		PrevDay struct {
			Close float64 `json:"c"`
		} `json:"prevDay"`
		TodaysChange     float64 `json:"todaysChange"`
		TodaysChangePerc float64 `json:"todaysChangePerc"`
	} `json:"ticker"`
}

type aggsResponse struct {
	Results []aggBar `json:"results"`
}

type aggBar struct {
	Timestamp int64   `json:"t"` // ms since epoch
	Open      float64 `json:"o"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Close     float64 `json:"c"`
	Volume    float64 `json:"v"`
}

type optionSnapshotResponse struct {
	Results struct {
		Day struct {
			Close  float64 `json:"close"`
			Volume float64 `json:"volume"`
		} `json:"day"`
		Greeks struct {
			Delta float64 `json:"delta"`
			Gamma float64 `json:"gamma"`
			Theta float64 `json:"theta"`
			Vega  float64 `json:"vega"`
		} `json:"greeks"`
		LastQuote struct {
			Bid float64 `json:"bid"`
			Ask float64 `json:"ask"`
		} `json:"last_quote"`
		ImpliedVolatility float64 `json:"implied_volatility"`
		OpenInterest      float64 `json:"open_interest"`
		Value             float64 `json:"value"`
	} `json:"results"`
}

// ============ Gateway Methods ============

// GetStockSnapshot fetches the live quote for an underlying, falling back to
// the previous daily close when the live snapshot is empty or unavailable.
func (p *PolygonClient) GetStockSnapshot(ctx context.Context, symbol string) (*models.StockSnapshot, error) {
	var snap stockSnapshotResponse
	err := p.get(ctx, "/v2/snapshot/locale/us/markets/stocks/tickers/"+symbol, nil, &snap)
	if err == nil {
		price := snap.Ticker.Day.Close
		if price == 0 {
			price = snap.Ticker.PrevDay.Close
		}
		if price > 0 {
			return &models.StockSnapshot{
				Symbol:        symbol,
				Price:         price,
				Change:        snap.Ticker.TodaysChange,
				ChangePercent: snap.Ticker.TodaysChangePerc,
				Timestamp:     time.Now(),
			}, nil
		}
	}
	if errors.Is(err, errors.ErrNotConfigured) {
		return nil, err
	}

	var aggs aggsResponse
	if err := p.get(ctx, "/v2/aggs/ticker/"+symbol+"/prev", nil, &aggs); err != nil {
		return nil, err
	}
	if len(aggs.Results) == 0 {
		return nil, errors.Wrapf(errors.ErrSymbolNotFound, "%s", symbol)
	}
	bar := aggs.Results[0]
	return &models.StockSnapshot{
		Symbol:    symbol,
		Price:     bar.Close,
		Timestamp: time.UnixMilli(bar.Timestamp),
	}, nil
}

// GetOptionSnapshot fetches quote, volume, open interest and greeks for one
// contract. When the options snapshot endpoint has nothing, it falls back to
// the contract's previous daily bar without greeks.
func (p *PolygonClient) GetOptionSnapshot(ctx context.Context, req OptionRequest) (*models.OptionSnapshot, error) {
	ticker := OptionTicker(req.Symbol, req.Strike, req.Expiration, req.Type)

	snap := &models.OptionSnapshot{
		Symbol:     req.Symbol,
		Strike:     req.Strike,
		Expiration: req.Expiration,
		Type:       req.Type,
		Timestamp:  time.Now(),
	}

	var res optionSnapshotResponse
	err := p.get(ctx, fmt.Sprintf("/v3/snapshot/options/%s/%s", req.Symbol, ticker), nil, &res)
	if err == nil {
		r := res.Results
		if r.Day.Close > 0 || r.LastQuote.Ask > 0 || r.Value > 0 {
			snap.Bid = r.LastQuote.Bid
			snap.Ask = r.LastQuote.Ask
			snap.Last = r.Day.Close
			if snap.Last == 0 {
				snap.Last = r.Value
			}
			snap.Volume = int64(r.Day.Volume)
			snap.OpenInterest = int64(r.OpenInterest)
			snap.Delta = r.Greeks.Delta
			snap.Gamma = r.Greeks.Gamma
			snap.Theta = r.Greeks.Theta
			snap.Vega = r.Greeks.Vega
			snap.IV = r.ImpliedVolatility
			return snap, nil
		}
	}
	if errors.Is(err, errors.ErrNotConfigured) {
		return nil, err
	}

	var aggs aggsResponse
	if err := p.get(ctx, "/v2/aggs/ticker/"+ticker+"/prev", nil, &aggs); err != nil {
		return nil, err
	}
	if len(aggs.Results) == 0 {
		return nil, errors.Wrapf(errors.ErrSymbolNotFound, "contract %s", ticker)
	}
	bar := aggs.Results[0]
	snap.Last = bar.Close
	snap.Volume = int64(bar.Volume)
	return snap, nil
}

// GetStockHistory fetches daily candles covering roughly the requested number
// of days. The date window is padded so weekends and holidays do not shrink
// the series below what the indicators need.
func (p *PolygonClient) GetStockHistory(ctx context.Context, symbol string, days int) ([]models.Candle, error) {
	if days <= 0 {
		days = p.cfg.HistoryDays
	}
	end := time.Now()
	start := end.AddDate(0, 0, -(days + 10))

	endpoint := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/day/%s/%s",
		symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))
	query := url.Values{}
	query.Set("limit", "500")

	var aggs aggsResponse
	if err := p.get(ctx, endpoint, query, &aggs); err != nil {
		return nil, err
	}

	candles := make([]models.Candle, 0, len(aggs.Results))
	for _, bar := range aggs.Results {
		candles = append(candles, models.Candle{
			Timestamp: time.UnixMilli(bar.Timestamp),
			Open:      bar.Open,
			High:      bar.High,
			Low:       bar.Low,
			Close:     bar.Close,
			Volume:    int64(bar.Volume),
		})
	}
	return candles, nil
}

// GetIVHistory returns a realized-volatility series as an IV proxy. Polygon
// has no historical IV endpoint on standard plans; rolling 20-day realized
// volatility of the underlying tracks the same regime the rank needs.
func (p *PolygonClient) GetIVHistory(ctx context.Context, symbol string, days int) ([]float64, error) {
	if days <= 0 {
		days = p.cfg.IVHistoryDays
	}
	candles, err := p.GetStockHistory(ctx, symbol, days)
	if err != nil {
		return nil, err
	}
	return realizedVolSeries(candles), nil
}

// realizedVolSeries computes rolling 20-day annualized realized volatility
// from daily closes. Returns nil when there are fewer than 30 usable bars.
func realizedVolSeries(candles []models.Candle) []float64 {
	if len(candles) < 30 {
		return nil
	}
	closes := make([]float64, 0, len(candles))
	for _, c := range candles {
		if c.Close > 0 {
			closes = append(closes, c.Close)
		}
	}
	if len(closes) < 30 {
		return nil
	}

	const window = 20
	series := make([]float64, 0, len(closes)-window)
	for i := window; i < len(closes); i++ {
		win := closes[i-window : i]
		returns := make([]float64, 0, len(win)-1)
		for j := 1; j < len(win); j++ {
			returns = append(returns, (win[j]-win[j-1])/win[j-1])
		}
		series = append(series, sampleStdev(returns)*math.Sqrt(252))
	}
	return series
}

func sampleStdev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// ============ Transport ============

// get performs one rate-limited, breaker-guarded GET with retries and decodes
// the JSON body into out.
func (p *PolygonClient) get(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	if p.cfg.APIKey == "" {
		return errors.ErrNotConfigured
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	err := utils.Retry(ctx, p.retry, func() error {
		_, berr := p.breaker.Execute(func() (interface{}, error) {
			return nil, p.doOnce(ctx, endpoint, query, out)
		})
		return berr
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.Wrap(errors.ErrGatewayUnavailable, "circuit open")
	}
	return err
}

func (p *PolygonClient) doOnce(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	q := url.Values{}
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("apiKey", p.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	logging.LogAPICall(p.logger, http.MethodGet, endpoint, time.Since(start), err)
	if err != nil {
		return errors.Wrapf(errors.ErrGatewayUnavailable, "polygon %s: %v", endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return errors.Wrapf(errors.ErrRateLimited, "polygon %s", endpoint)
	case resp.StatusCode >= 500:
		return errors.Wrapf(errors.ErrGatewayUnavailable, "polygon %s: status %d", endpoint, resp.StatusCode)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.NewGatewayError("polygon", resp.StatusCode, strings.TrimSpace(string(body)), nil)
	}
}
