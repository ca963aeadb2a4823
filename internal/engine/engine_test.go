package engine

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optionguard/internal/config"
	"optionguard/internal/errors"
	"optionguard/internal/gateway"
	"optionguard/internal/models"
	"optionguard/internal/store"
)

// fakeGateway serves canned market data keyed by symbol. Symbols listed in
// fail return a gateway error on every call.
type fakeGateway struct {
	stocks    map[string]*models.StockSnapshot
	options   map[string]*models.OptionSnapshot
	histories map[string][]models.Candle
	ivs       map[string][]float64
	fail      map[string]bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		stocks:    make(map[string]*models.StockSnapshot),
		options:   make(map[string]*models.OptionSnapshot),
		histories: make(map[string][]models.Candle),
		ivs:       make(map[string][]float64),
		fail:      make(map[string]bool),
	}
}

func (f *fakeGateway) GetStockSnapshot(_ context.Context, symbol string) (*models.StockSnapshot, error) {
	if f.fail[symbol] {
		return nil, errors.ErrGatewayUnavailable
	}
	s, ok := f.stocks[symbol]
	if !ok {
		return nil, errors.ErrSymbolNotFound
	}
	return s, nil
}

func (f *fakeGateway) GetOptionSnapshot(_ context.Context, req gateway.OptionRequest) (*models.OptionSnapshot, error) {
	if f.fail[req.Symbol] {
		return nil, errors.ErrGatewayUnavailable
	}
	o, ok := f.options[req.Symbol]
	if !ok {
		return nil, errors.ErrSymbolNotFound
	}
	return o, nil
}

func (f *fakeGateway) GetStockHistory(_ context.Context, symbol string, _ int) ([]models.Candle, error) {
	if f.fail[symbol] {
		return nil, errors.ErrGatewayUnavailable
	}
	return f.histories[symbol], nil
}

func (f *fakeGateway) GetIVHistory(_ context.Context, symbol string, _ int) ([]float64, error) {
	if f.fail[symbol] {
		return nil, errors.ErrGatewayUnavailable
	}
	return f.ivs[symbol], nil
}

// memStore is an in-memory PositionStore for cycle tests.
type memStore struct {
	mu        sync.Mutex
	positions map[string]*models.Position
	closed    []store.ClosedPosition
	saves     int
	saveErr   error
}

func newMemStore() *memStore {
	return &memStore{positions: make(map[string]*models.Position)}
}

func (m *memStore) Save(_ context.Context, pos *models.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.positions[pos.ID] = pos
	m.saves++
	return nil
}

func (m *memStore) Load(_ context.Context, id string) (*models.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[id]
	if !ok {
		return nil, errors.ErrPositionNotFound
	}
	return pos, nil
}

func (m *memStore) LoadAll(_ context.Context) ([]*models.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Position, 0, len(m.positions))
	for _, pos := range m.positions {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.positions[id]; !ok {
		return errors.ErrPositionNotFound
	}
	delete(m.positions, id)
	return nil
}

func (m *memStore) Archive(_ context.Context, rec *store.ClosedPosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = append(m.closed, *rec)
	return nil
}

func (m *memStore) GetClosed(_ context.Context, _ store.ClosedFilter) ([]store.ClosedPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.ClosedPosition(nil), m.closed...), nil
}

func (m *memStore) Close() error { return nil }

func testEngine(gw *fakeGateway, st store.PositionStore) *Engine {
	return New(gw, st, config.Default(), zerolog.Nop())
}

// policyEngine builds an engine with only the policy config populated, for
// tests that drive subcomponents directly.
func policyEngine() *Engine {
	return &Engine{cfg: config.Default().Engine}
}

// healthyPosition is a call position in good shape: positive P&L, plenty of
// time, aligned trend, decent liquidity. Classifier tests mutate one axis at
// a time from here.
func healthyPosition() *models.Position {
	now := time.Now()
	return &models.Position{
		ID:                "AAPL_190_abc123",
		Symbol:            "AAPL",
		OptionType:        models.OptionCall,
		Strike:            190,
		Expiration:        now.Add(45 * 24 * time.Hour),
		Quantity:          2,
		EntryDate:         now.Add(-10 * 24 * time.Hour),
		EntryUnderlying:   185,
		EntryOptionPrice:  4.00,
		EntryDelta:        0.45,
		EntryIV:           0.30,
		EntryDTE:          55,
		StopPrice:         178,
		TargetPrice:       205,
		CurrentUnderlying: 188,
		CurrentOption:     4.40,
		DTE:               45,
		HighWaterMark:     189,
		Greeks: models.Greeks{
			Delta: 0.48, Gamma: 0.03, Theta: -0.05, Vega: 0.12,
			IV: 0.31, IVRank: 50, IVPercentile: 50,
		},
		Theta:     models.ThetaAnalysis{Phase: models.DecaySlow, DailyDecay: 0.05},
		Gamma:     models.GammaAnalysis{Score: 15},
		Liquidity: models.LiquidityAnalysis{Score: 75, Rating: models.LiquidityGood},
		Context:   models.MarketContext{Trend: models.TrendModerateUp, TrendAligned: true, ATR: 2.0},
		Score:     models.PositionScore{Overall: 80},
		Stops:     models.StopLevels{Original: 178, Recommended: 178, ActiveRule: models.StopRuleOriginal},
		Scaling: models.ScalingState{
			T1Threshold: 50, T2Threshold: 100,
			T1SellPercent: 50, T2SellPercent: 25, RunnerPercent: 25,
		},
	}
}

func TestClassifyPriorityLadder(t *testing.T) {
	e := policyEngine()

	tests := []struct {
		name       string
		mutate     func(p *models.Position)
		wantStatus models.PositionStatus
		wantAction models.RecommendedAction
		wantDetail string
	}{
		{
			name:       "healthy base holds strong",
			mutate:     func(p *models.Position) {},
			wantStatus: models.StatusHoldingStrong,
			wantAction: models.ActionHold,
			wantDetail: "Strong position (score: 80) - hold",
		},
		{
			name: "stop breach outranks time exit",
			mutate: func(p *models.Position) {
				p.CurrentUnderlying = 177
				p.DTE = 5
			},
			wantStatus: models.StatusExitStop,
			wantAction: models.ActionExitNow,
			wantDetail: "Stop hit - exit position immediately",
		},
		{
			name: "deep loss exits even above the stop",
			mutate: func(p *models.Position) {
				p.CurrentOption = 1.60 // -60%
			},
			wantStatus: models.StatusExitStop,
			wantAction: models.ActionExitNow,
		},
		{
			name: "low dte with limited profit exits on time",
			mutate: func(p *models.Position) {
				p.DTE = 5
				p.CurrentOption = 4.80 // +20%
			},
			wantStatus: models.StatusExitTime,
			wantAction: models.ActionExitNow,
			wantDetail: "Only 5 DTE with limited profit - close or roll",
		},
		{
			name: "closed runner reports target exit",
			mutate: func(p *models.Position) {
				p.CurrentOption = 10.00 // +150%, but runner completion wins
				p.Scaling.RunnerClosed = true
				p.Scaling.RunnerExit = models.RunnerExitExtendedTarget
			},
			wantStatus: models.StatusExitTarget,
			wantAction: models.ActionCloseRunner,
			wantDetail: "Runner complete: EXTENDED_TARGET",
		},
		{
			name: "urgent roll",
			mutate: func(p *models.Position) {
				p.DTE = 10
				p.Roll = models.RollAnalysis{
					Urgency: models.RollUrgent,
					Type:    models.RollOut,
					Reasons: []string{"DTE critical (<7 days)"},
				}
			},
			wantStatus: models.StatusConsiderRoll,
			wantAction: models.ActionRollOut,
			wantDetail: "Roll recommended: DTE critical (<7 days)",
		},
		{
			name: "gamma explosion with profit tightens stop",
			mutate: func(p *models.Position) {
				p.DTE = 3
				p.CurrentOption = 5.40 // +35% dodges the time exit
				p.CurrentUnderlying = 190.5
				p.Gamma.ExplosionRisk = true
			},
			wantStatus: models.StatusWarningGamma,
			wantAction: models.ActionTightenStop,
			wantDetail: "High gamma risk - near strike + near expiry",
		},
		{
			name: "gamma explosion underwater exits",
			mutate: func(p *models.Position) {
				p.DTE = 10
				p.CurrentOption = 3.00 // -25%
				p.Gamma.ExplosionRisk = true
			},
			wantStatus: models.StatusWarningGamma,
			wantAction: models.ActionExitNow,
		},
		{
			name: "iv crush with flat pnl",
			mutate: func(p *models.Position) {
				p.EntryIV = 0.60
				p.Greeks.IV = 0.45
				p.CurrentOption = 4.20 // +5%
			},
			wantStatus: models.StatusWarningIVCrush,
			wantAction: models.ActionTightenStop,
			wantDetail: "IV crush detected - tighten stop or exit",
		},
		{
			name: "target hit with live runner keeps riding",
			mutate: func(p *models.Position) {
				p.CurrentUnderlying = 206
				p.CurrentOption = 9.00
				p.HighWaterMark = 206
				p.Scaling.T1Triggered = true
				p.Scaling.T2Triggered = true
				p.Scaling.RunnerActive = true
				p.Scaling.ExtendedTarget = 208.5
			},
			wantStatus: models.StatusRunnerActive,
			wantAction: models.ActionHold,
			wantDetail: "Runner riding to $208.50",
		},
		{
			name: "t2 reached without runner takes full",
			mutate: func(p *models.Position) {
				p.CurrentOption = 8.20 // +105%
			},
			wantStatus: models.StatusTakeFull,
			wantAction: models.ActionTakeFull,
			wantDetail: "T2 target hit (+105%) - sell 25%",
		},
		{
			name: "t1 reached takes partial",
			mutate: func(p *models.Position) {
				p.CurrentOption = 6.00 // exactly +50%
			},
			wantStatus: models.StatusTakePartial,
			wantAction: models.ActionTakePartial,
			wantDetail: "T1 target hit (+50%) - sell 50%",
		},
		{
			name: "theta acceleration in profit rolls out",
			mutate: func(p *models.Position) {
				p.DTE = 12
				p.CurrentOption = 5.60 // +40%
				p.Theta.Phase = models.DecayAccelerating
			},
			wantStatus: models.StatusWarningTheta,
			wantAction: models.ActionRollOut,
			wantDetail: "Theta accelerating (12 DTE) - manage time decay",
		},
		{
			name: "theta acceleration underwater exits",
			mutate: func(p *models.Position) {
				p.DTE = 12
				p.CurrentOption = 3.60 // -10%
				p.Theta.Phase = models.DecayAccelerating
			},
			wantStatus: models.StatusWarningTheta,
			wantAction: models.ActionExitNow,
		},
		{
			name: "poor liquidity reduces size",
			mutate: func(p *models.Position) {
				p.Liquidity.Score = 25
			},
			wantStatus: models.StatusWarningLiquidity,
			wantAction: models.ActionReduceSize,
			wantDetail: "Poor liquidity - consider reducing size",
		},
		{
			name: "strong score without trend alignment only holds good",
			mutate: func(p *models.Position) {
				p.Context.TrendAligned = false
			},
			wantStatus: models.StatusHoldingGood,
			wantAction: models.ActionHold,
		},
		{
			name: "neutral score with open profit tightens stop",
			mutate: func(p *models.Position) {
				p.Score.Overall = 50
				p.CurrentOption = 5.00 // +25%
			},
			wantStatus: models.StatusHoldingNeutral,
			wantAction: models.ActionTightenStop,
		},
		{
			name: "neutral score flat pnl holds",
			mutate: func(p *models.Position) {
				p.Score.Overall = 50
			},
			wantStatus: models.StatusHoldingNeutral,
			wantAction: models.ActionHold,
		},
		{
			name: "weak score tightens risk",
			mutate: func(p *models.Position) {
				p.Score.Overall = 30
			},
			wantStatus: models.StatusHoldingWeak,
			wantAction: models.ActionTightenStop,
			wantDetail: "Weak position (score: 30) - tighten risk management",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := healthyPosition()
			tt.mutate(pos)
			e.classify(pos)

			assert.Equal(t, tt.wantStatus, pos.Status)
			assert.Equal(t, tt.wantAction, pos.Action)
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, pos.ActionDetail)
			}
		})
	}
}

func TestStopRatchetSequence(t *testing.T) {
	e := policyEngine()
	log := zerolog.Nop()

	pos := healthyPosition()
	pos.StopPrice = 92
	pos.EntryUnderlying = 95
	pos.EntryOptionPrice = 2.00
	pos.Stops = models.StopLevels{Original: 92, Recommended: 92}
	pos.Context.ATR = 2.0

	// Price 100, +25% arms the ATR trail.
	pos.CurrentUnderlying = 100
	pos.HighWaterMark = 100
	pos.CurrentOption = 2.50
	e.computeStops(pos, log)
	assert.Equal(t, models.StopRuleATRTrail, pos.Stops.ActiveRule)
	assert.Equal(t, 96.0, pos.Stops.Recommended)
	assert.True(t, pos.Stops.NeedsUpdate)

	// Price 110 tightens further.
	pos.CurrentUnderlying = 110
	pos.HighWaterMark = 110
	pos.CurrentOption = 3.00
	e.computeStops(pos, log)
	assert.Equal(t, 106.0, pos.Stops.Recommended)

	// Pullback to 105: the high-water mark holds, the stop must not loosen.
	pos.CurrentUnderlying = 105
	pos.CurrentOption = 2.80
	e.computeStops(pos, log)
	assert.Equal(t, 106.0, pos.Stops.Recommended)
}

func TestStopRatchetPutTightensDownward(t *testing.T) {
	e := policyEngine()
	log := zerolog.Nop()

	pos := healthyPosition()
	pos.OptionType = models.OptionPut
	pos.EntryUnderlying = 105
	pos.StopPrice = 108
	pos.EntryOptionPrice = 2.00
	pos.Stops = models.StopLevels{Original: 108, Recommended: 108}
	pos.Context.ATR = 2.0

	pos.CurrentUnderlying = 95
	pos.LowWaterMark = 95
	pos.CurrentOption = 2.60 // +30%
	e.computeStops(pos, log)
	assert.Equal(t, 99.0, pos.Stops.Recommended)

	pos.CurrentUnderlying = 90
	pos.LowWaterMark = 90
	pos.CurrentOption = 3.20
	e.computeStops(pos, log)
	assert.Equal(t, 94.0, pos.Stops.Recommended)

	// Bounce: low-water mark holds, the stop never rises again.
	pos.CurrentUnderlying = 93
	pos.CurrentOption = 2.90
	e.computeStops(pos, log)
	assert.Equal(t, 94.0, pos.Stops.Recommended)
}

func TestStopRuleSelection(t *testing.T) {
	e := policyEngine()
	log := zerolog.Nop()

	tests := []struct {
		name         string
		currentOpt   float64
		runnerActive bool
		wantRule     models.StopRule
	}{
		{"no profit keeps plan stop", 2.10, false, models.StopRuleOriginal},
		{"atr trail arms at 20 percent", 2.50, false, models.StopRuleATRTrail},
		{"atr trail outranks breakeven once armed", 2.80, false, models.StopRuleATRTrail},
		{"runner trail outranks everything", 2.10, true, models.StopRuleRunnerTrail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := healthyPosition()
			pos.EntryOptionPrice = 2.00
			pos.CurrentOption = tt.currentOpt
			pos.Scaling.RunnerActive = tt.runnerActive
			pos.Stops = models.StopLevels{Original: pos.StopPrice, Recommended: pos.StopPrice}
			e.computeStops(pos, log)
			assert.Equal(t, tt.wantRule, pos.Stops.ActiveRule)
		})
	}
}

func TestOptionStopConversion(t *testing.T) {
	// $4 of adverse distance at delta 0.5 and gamma 0.02 takes the option
	// from 2.50 to 2.50 - 2.00 - 0.16 = 0.34.
	got := optionStop(100, 96, 2.50, 0.5, 0.02)
	assert.InDelta(t, 0.34, got, 1e-9)

	// Unarmed candidates map to zero, not to the floor.
	assert.Equal(t, 0.0, optionStop(100, 0, 2.50, 0.5, 0.02))

	// Deep stops floor at a cent.
	assert.Equal(t, 0.01, optionStop(100, 50, 2.50, 0.5, 0.02))
}

func TestScalingOneShotTriggers(t *testing.T) {
	e := policyEngine()
	log := zerolog.Nop()
	day1 := time.Date(2025, 8, 18, 15, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	pos := healthyPosition()
	pos.EntryOptionPrice = 2.00

	// +55% fires T1 once.
	pos.CurrentOption = 3.10
	e.applyScaling(pos, day1, log)
	require.True(t, pos.Scaling.T1Triggered)
	assert.Equal(t, 3.10, pos.Scaling.T1Price)
	require.NotNil(t, pos.Scaling.T1Date)
	assert.True(t, pos.Scaling.T1Date.Equal(day1))
	assert.False(t, pos.Scaling.T2Triggered)

	// Pullback to +40%: the trigger and its record survive.
	pos.CurrentOption = 2.80
	e.applyScaling(pos, day2, log)
	assert.True(t, pos.Scaling.T1Triggered)
	assert.Equal(t, 3.10, pos.Scaling.T1Price)
	assert.True(t, pos.Scaling.T1Date.Equal(day1))

	// +105% fires T2, activates the runner, and extends the target.
	pos.CurrentOption = 4.10
	e.applyScaling(pos, day2, log)
	require.True(t, pos.Scaling.T2Triggered)
	assert.Equal(t, 4.10, pos.Scaling.T2Price)
	assert.True(t, pos.Scaling.RunnerActive)
	assert.Equal(t, 206.5, pos.Scaling.ExtendedTarget) // 205 + 0.75*2.0
}

func TestScalingSellSizes(t *testing.T) {
	e := policyEngine()
	log := zerolog.Nop()

	pos := healthyPosition()
	pos.Quantity = 4
	pos.EntryOptionPrice = 2.00
	pos.CurrentOption = 3.00 // exactly +50%
	e.applyScaling(pos, time.Now(), log)

	require.True(t, pos.Scaling.T1Triggered)
	t1, t2, runner := pos.Scaling.SellContracts(pos.Quantity)
	assert.Equal(t, 2, t1)
	assert.Equal(t, 1, t2)
	assert.Equal(t, 1, runner)
}

func TestRunnerExitReasons(t *testing.T) {
	e := policyEngine()
	log := zerolog.Nop()

	runnerPos := func() *models.Position {
		pos := healthyPosition()
		pos.EntryOptionPrice = 2.00
		pos.CurrentOption = 4.20
		pos.DTE = 20
		pos.Scaling.T1Triggered = true
		pos.Scaling.T2Triggered = true
		pos.Scaling.RunnerActive = true
		pos.Scaling.ExtendedTarget = 216.5
		pos.Stops.RunnerTrail = 198
		return pos
	}

	t.Run("extended target", func(t *testing.T) {
		pos := runnerPos()
		pos.CurrentUnderlying = 217
		e.applyScaling(pos, time.Now(), log)
		assert.True(t, pos.Scaling.RunnerClosed)
		assert.Equal(t, models.RunnerExitExtendedTarget, pos.Scaling.RunnerExit)
		assert.Equal(t, 4.20, pos.Scaling.RunnerExitPrice)
	})

	t.Run("trail stop", func(t *testing.T) {
		pos := runnerPos()
		pos.CurrentUnderlying = 197
		e.applyScaling(pos, time.Now(), log)
		assert.True(t, pos.Scaling.RunnerClosed)
		assert.Equal(t, models.RunnerExitTrailStop, pos.Scaling.RunnerExit)
	})

	t.Run("dte floor", func(t *testing.T) {
		pos := runnerPos()
		pos.CurrentUnderlying = 210
		pos.DTE = 6
		e.applyScaling(pos, time.Now(), log)
		assert.True(t, pos.Scaling.RunnerClosed)
		assert.Equal(t, models.RunnerExitDTEFloor, pos.Scaling.RunnerExit)
	})

	t.Run("dte floor overrides a same-cycle price exit", func(t *testing.T) {
		pos := runnerPos()
		pos.CurrentUnderlying = 217 // would be EXTENDED_TARGET
		pos.DTE = 6
		e.applyScaling(pos, time.Now(), log)
		assert.Equal(t, models.RunnerExitDTEFloor, pos.Scaling.RunnerExit)
		assert.Equal(t, 4.20, pos.Scaling.RunnerExitPrice)
	})

	t.Run("closed runner never reopens or relabels", func(t *testing.T) {
		pos := runnerPos()
		pos.Scaling.RunnerClosed = true
		pos.Scaling.RunnerExit = models.RunnerExitExtendedTarget
		pos.CurrentUnderlying = 190 // deep through the trail
		pos.DTE = 3
		e.applyScaling(pos, time.Now(), log)
		assert.Equal(t, models.RunnerExitExtendedTarget, pos.Scaling.RunnerExit)
	})
}

func TestGenerateAlertTexts(t *testing.T) {
	e := policyEngine()

	pos := healthyPosition()
	pos.StopPrice = 92
	pos.DTE = 5
	pos.Stops.NeedsUpdate = true
	pos.Stops.Recommended = 106
	pos.EntryIV = 0.36
	pos.Greeks.IV = 0.30
	pos.Greeks.IVRank = 85
	pos.Liquidity.Score = 35
	pos.Context.TrendAligned = false
	pos.Scaling.T1Triggered = true
	pos.Scaling.T2Triggered = true
	pos.Scaling.RunnerActive = true
	pos.Scaling.ExtendedTarget = 116.5
	pos.Roll = models.RollAnalysis{
		Urgency: models.RollRecommended,
		Reasons: []string{"DTE warning (<14 days)"},
	}

	e.generateAlerts(pos)

	assert.Contains(t, pos.Alerts, "T1 TRIGGERED at +50% - sell 50%")
	assert.Contains(t, pos.Alerts, "RUNNER ACTIVE - target $116.50")
	assert.Contains(t, pos.Alerts, "UPDATE STOP: $92.00 -> $106.00")
	assert.Contains(t, pos.Alerts, "CRITICAL: Only 5 DTE remaining!")
	assert.Contains(t, pos.Alerts, "RECOMMENDED: DTE warning (<14 days)")
	assert.Contains(t, pos.Warnings, "High IV Rank (85) - IV crush risk")
	assert.Contains(t, pos.Warnings, "IV dropped -6.0% since entry")
	assert.Contains(t, pos.Warnings, "Low liquidity (score: 35)")
	assert.Contains(t, pos.Warnings, "Trend not aligned with position")
}

func TestGenerateAlertDTEWarningBand(t *testing.T) {
	e := policyEngine()

	pos := healthyPosition()
	pos.DTE = 12
	e.generateAlerts(pos)

	assert.Contains(t, pos.Alerts, "WARNING: 12 DTE - theta accelerating")
	for _, a := range pos.Alerts {
		assert.NotContains(t, a, "CRITICAL")
	}
}

func marketHistory(n int, start, step float64) []models.Candle {
	candles := make([]models.Candle, n)
	ts := time.Now().Add(-time.Duration(n) * 24 * time.Hour)
	for i := range candles {
		c := start + step*float64(i)
		candles[i] = models.Candle{
			Timestamp: ts.Add(time.Duration(i) * 24 * time.Hour),
			Open:      c - 0.5,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1_000_000,
		}
	}
	return candles
}

func TestUpdateCycleComputesAllSubRecords(t *testing.T) {
	gw := newFakeGateway()
	gw.stocks["AAPL"] = &models.StockSnapshot{Symbol: "AAPL", Price: 188}
	gw.options["AAPL"] = &models.OptionSnapshot{
		Bid: 4.35, Ask: 4.45, Last: 4.38,
		Volume: 500, OpenInterest: 1200,
		Delta: 0.48, Gamma: 0.03, Theta: -0.05, Vega: 0.12, IV: 0.31,
	}
	gw.histories["AAPL"] = marketHistory(100, 150, 0.6)
	ivs := make([]float64, 40)
	for i := range ivs {
		ivs[i] = 0.20 + float64(i)*0.005
	}
	gw.ivs["AAPL"] = ivs

	st := newMemStore()
	e := testEngine(gw, st)

	pos := healthyPosition()
	pos.Greeks = models.Greeks{}
	pos.Theta = models.ThetaAnalysis{}
	pos.Gamma = models.GammaAnalysis{}
	pos.Score = models.PositionScore{}
	pos.Context = models.MarketContext{}
	pos.HighWaterMark = 0

	s := e.Update(context.Background(), pos)

	assert.Equal(t, 188.0, pos.CurrentUnderlying)
	assert.Equal(t, 4.40, pos.CurrentOption) // midpoint of 4.35/4.45
	assert.Equal(t, 188.0, pos.HighWaterMark)
	assert.InDelta(t, 44.5, float64(pos.DTE), 1)

	assert.Equal(t, 0.48, pos.Greeks.Delta)
	assert.Greater(t, pos.Greeks.IVRank, 0.0)
	assert.LessOrEqual(t, pos.Greeks.IVRank, 100.0)

	assert.Equal(t, models.DecayNormal, pos.Theta.Phase)
	assert.InDelta(t, 0.05, pos.Theta.DailyDecay, 1e-9)

	assert.Equal(t, 90.0, pos.Liquidity.Score)
	assert.Equal(t, models.LiquidityExcellent, pos.Liquidity.Rating)

	assert.Equal(t, models.TrendStrongUp, pos.Context.Trend)
	assert.True(t, pos.Context.TrendAligned)

	assert.Len(t, pos.Scenarios.Scenarios, 9)
	assert.Greater(t, pos.Score.Overall, 0.0)
	assert.NotEmpty(t, pos.Score.Grade)
	assert.NotEmpty(t, pos.Status)
	assert.NotEmpty(t, pos.Action)
	assert.False(t, pos.UpdatedAt.IsZero())

	assert.Equal(t, 1, st.saves)
	assert.Equal(t, "AAPL", s.Symbol)
	assert.Equal(t, string(pos.Status), s.Status)
	assert.Equal(t, pos.Score.Overall, s.Score)
}

func TestUpdateDegradedGatewayStillDecides(t *testing.T) {
	gw := newFakeGateway()
	gw.fail["AAPL"] = true
	st := newMemStore()
	e := testEngine(gw, st)

	pos := healthyPosition()
	priorPrice := pos.CurrentOption
	priorLiquidity := pos.Liquidity

	s := e.Update(context.Background(), pos)

	assert.Equal(t, priorPrice, pos.CurrentOption)
	assert.Equal(t, priorLiquidity, pos.Liquidity)
	assert.Contains(t, pos.Warnings, "Degraded market data - using last known values")
	assert.NotEmpty(t, pos.Status)
	assert.NotEmpty(t, pos.Action)
	assert.Equal(t, 1, st.saves)
	assert.NotEmpty(t, s.Status)
}

func TestUpdateSaveFailureStillReturnsResult(t *testing.T) {
	gw := newFakeGateway()
	gw.fail["AAPL"] = true
	st := newMemStore()
	st.saveErr = errors.NewStoreError("save", "AAPL_190_abc123", errors.ErrTimeout)
	e := testEngine(gw, st)

	pos := healthyPosition()
	s := e.Update(context.Background(), pos)

	assert.NotEmpty(t, s.Status)
	assert.NotEmpty(t, s.Action)
}

func TestUpdateAllIsolatesFailuresAndSorts(t *testing.T) {
	gw := newFakeGateway()
	st := newMemStore()

	for _, sym := range []string{"ZM", "AAPL", "MSFT"} {
		pos := healthyPosition()
		pos.ID = sym + "_190_abc123"
		pos.Symbol = sym
		st.positions[pos.ID] = pos

		gw.stocks[sym] = &models.StockSnapshot{Symbol: sym, Price: 188}
		gw.options[sym] = &models.OptionSnapshot{
			Bid: 4.35, Ask: 4.45, Delta: 0.48, Gamma: 0.03, Theta: -0.05, IV: 0.31,
		}
	}
	gw.fail["MSFT"] = true

	e := testEngine(gw, st)
	summaries, err := e.UpdateAll(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 3)

	assert.Equal(t, "AAPL", summaries[0].Symbol)
	assert.Equal(t, "MSFT", summaries[1].Symbol)
	assert.Equal(t, "ZM", summaries[2].Symbol)

	assert.Contains(t, summaries[1].Warnings, "Degraded market data - using last known values")
	assert.NotEmpty(t, summaries[1].Status)
}

func TestAddPositionSeedsEntryState(t *testing.T) {
	gw := newFakeGateway()
	st := newMemStore()
	e := testEngine(gw, st)

	pos := &models.Position{
		Symbol:           "NVDA",
		OptionType:       models.OptionCall,
		Strike:           130,
		Expiration:       time.Now().Add(40 * 24 * time.Hour),
		Quantity:         3,
		EntryUnderlying:  128,
		EntryOptionPrice: 5.50,
		StopPrice:        122,
		TargetPrice:      142,
		Greeks:           models.Greeks{Delta: 0.52, IV: 0.45},
	}
	require.NoError(t, e.AddPosition(context.Background(), pos))

	assert.NotEmpty(t, pos.ID)
	assert.Contains(t, pos.ID, "NVDA_130_")
	assert.Equal(t, 0.52, pos.EntryDelta)
	assert.Equal(t, 0.45, pos.EntryIV)
	assert.Equal(t, 122.0, pos.Stops.Original)
	assert.Equal(t, 122.0, pos.Stops.Recommended)
	assert.Equal(t, 50.0, pos.Scaling.T1Threshold)
	assert.Equal(t, 100.0, pos.Scaling.T2Threshold)
	assert.Equal(t, models.StatusNew, pos.Status)
	assert.Equal(t, 128.0, pos.CurrentUnderlying)
	assert.Equal(t, 5.50, pos.CurrentOption)
	assert.InDelta(t, 39.5, float64(pos.EntryDTE), 1)

	stored, err := st.Load(context.Background(), pos.ID)
	require.NoError(t, err)
	assert.Equal(t, pos.ID, stored.ID)
}

func TestAddPositionRejectsInvalid(t *testing.T) {
	e := testEngine(newFakeGateway(), newMemStore())

	tests := []struct {
		name   string
		mutate func(p *models.Position)
	}{
		{"missing symbol", func(p *models.Position) { p.Symbol = "" }},
		{"lowercase symbol", func(p *models.Position) { p.Symbol = "nvda" }},
		{"symbol with path characters", func(p *models.Position) { p.Symbol = "NVDA/../X" }},
		{"bad type", func(p *models.Position) { p.OptionType = "STRADDLE" }},
		{"zero strike", func(p *models.Position) { p.Strike = 0 }},
		{"zero quantity", func(p *models.Position) { p.Quantity = 0 }},
		{"zero entry premium", func(p *models.Position) { p.EntryOptionPrice = 0 }},
		{"zero entry stock", func(p *models.Position) { p.EntryUnderlying = 0 }},
		{"no expiration", func(p *models.Position) { p.Expiration = time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := &models.Position{
				Symbol:           "NVDA",
				OptionType:       models.OptionCall,
				Strike:           130,
				Expiration:       time.Now().Add(40 * 24 * time.Hour),
				Quantity:         3,
				EntryUnderlying:  128,
				EntryOptionPrice: 5.50,
			}
			tt.mutate(pos)

			err := e.AddPosition(context.Background(), pos)
			var verr *errors.ValidationError
			require.Error(t, err)
			assert.True(t, errors.As(err, &verr))
		})
	}
}

func TestClosePositionArchivesAndRemoves(t *testing.T) {
	gw := newFakeGateway()
	st := newMemStore()
	e := testEngine(gw, st)

	pos := healthyPosition()
	st.positions[pos.ID] = pos

	rec, err := e.ClosePosition(context.Background(), pos.ID, 6.00, "target reached")
	require.NoError(t, err)

	assert.Equal(t, pos.ID, rec.ID)
	assert.Equal(t, 6.00, rec.ExitOption)
	assert.Equal(t, "target reached", rec.ExitReason)
	assert.InDelta(t, 400.0, rec.PnLDollars, 1e-9) // (6.00-4.00)*100*2
	assert.InDelta(t, 50.0, rec.PnLPercent, 1e-9)

	_, err = st.Load(context.Background(), pos.ID)
	assert.True(t, errors.Is(err, errors.ErrPositionNotFound))

	closed, err := e.Closed(context.Background(), store.ClosedFilter{})
	require.NoError(t, err)
	require.Len(t, closed, 1)
}

func TestClosePositionDefaultsExitPrice(t *testing.T) {
	gw := newFakeGateway()
	st := newMemStore()
	e := testEngine(gw, st)

	pos := healthyPosition()
	st.positions[pos.ID] = pos

	rec, err := e.ClosePosition(context.Background(), pos.ID, 0, "manual")
	require.NoError(t, err)
	assert.Equal(t, pos.CurrentOption, rec.ExitOption)
}

func TestAdjustPlanMovesStopAndTarget(t *testing.T) {
	gw := newFakeGateway()
	st := newMemStore()
	e := testEngine(gw, st)

	pos := healthyPosition()
	st.positions[pos.ID] = pos

	got, err := e.AdjustPlan(context.Background(), pos.ID, 182, 0)
	require.NoError(t, err)
	assert.Equal(t, 182.0, got.StopPrice)
	assert.Equal(t, 205.0, got.TargetPrice) // zero leaves the target alone
}
