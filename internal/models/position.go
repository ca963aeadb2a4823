// Package models provides domain models for the position management application.
package models

import (
	"strings"
	"time"
)

// OptionType represents the type of an option contract.
type OptionType string

const (
	OptionCall OptionType = "CALL"
	OptionPut  OptionType = "PUT"
)

// PositionStatus represents the classified health state of a position.
// Exactly one status is selected per evaluation cycle.
type PositionStatus string

const (
	StatusNew              PositionStatus = "NEW"
	StatusExitStop         PositionStatus = "EXIT_STOP"
	StatusExitTime         PositionStatus = "EXIT_TIME"
	StatusExitTarget       PositionStatus = "EXIT_TARGET"
	StatusConsiderRoll     PositionStatus = "CONSIDER_ROLL"
	StatusWarningGamma     PositionStatus = "WARNING_GAMMA"
	StatusWarningIVCrush   PositionStatus = "WARNING_IV_CRUSH"
	StatusRunnerActive     PositionStatus = "RUNNER_ACTIVE"
	StatusTakeFull         PositionStatus = "TAKE_FULL"
	StatusTakePartial      PositionStatus = "TAKE_PARTIAL"
	StatusWarningTheta     PositionStatus = "WARNING_THETA"
	StatusWarningLiquidity PositionStatus = "WARNING_LIQUIDITY"
	StatusHoldingStrong    PositionStatus = "HOLDING_STRONG"
	StatusHoldingGood      PositionStatus = "HOLDING_GOOD"
	StatusHoldingNeutral   PositionStatus = "HOLDING_NEUTRAL"
	StatusHoldingWeak      PositionStatus = "HOLDING_WEAK"
)

// RecommendedAction represents the single action recommended for a position.
type RecommendedAction string

const (
	ActionNone        RecommendedAction = "NONE"
	ActionExitNow     RecommendedAction = "EXIT_NOW"
	ActionTakePartial RecommendedAction = "TAKE_PARTIAL"
	ActionTakeFull    RecommendedAction = "TAKE_FULL"
	ActionCloseRunner RecommendedAction = "CLOSE_RUNNER"
	ActionRollOut     RecommendedAction = "ROLL_OUT"
	ActionRollUp      RecommendedAction = "ROLL_UP"
	ActionRollDown    RecommendedAction = "ROLL_DOWN"
	ActionTightenStop RecommendedAction = "TIGHTEN_STOP"
	ActionReduceSize  RecommendedAction = "REDUCE_SIZE"
	ActionHold        RecommendedAction = "HOLD"
)

// DecayPhase represents the theta decay acceleration phase.
type DecayPhase string

const (
	DecaySlow         DecayPhase = "SLOW"
	DecayNormal       DecayPhase = "NORMAL"
	DecayAccelerating DecayPhase = "ACCELERATING"
	DecayCritical     DecayPhase = "CRITICAL"
)

// LiquidityRating represents the execution-quality rating of a contract.
type LiquidityRating string

const (
	LiquidityExcellent LiquidityRating = "EXCELLENT"
	LiquidityGood      LiquidityRating = "GOOD"
	LiquidityModerate  LiquidityRating = "MODERATE"
	LiquidityPoor      LiquidityRating = "POOR"
)

// RollUrgency represents how urgently a roll should be considered.
type RollUrgency string

const (
	RollNone        RollUrgency = "NONE"
	RollConsider    RollUrgency = "CONSIDER"
	RollRecommended RollUrgency = "RECOMMENDED"
	RollUrgent      RollUrgency = "URGENT"
)

// RollType represents the shape of a suggested roll.
type RollType string

const (
	RollOut     RollType = "OUT"
	RollUpOut   RollType = "UP_AND_OUT"
	RollDownOut RollType = "DOWN_AND_OUT"
)

// RunnerExitReason explains why the runner tranche was closed.
type RunnerExitReason string

const (
	RunnerExitNone           RunnerExitReason = ""
	RunnerExitExtendedTarget RunnerExitReason = "EXTENDED_TARGET"
	RunnerExitTrailStop      RunnerExitReason = "TRAIL_STOP"
	RunnerExitDTEFloor       RunnerExitReason = "DTE_FLOOR"
)

// StopRule identifies which candidate produced the recommended stop.
type StopRule string

const (
	StopRuleOriginal    StopRule = "ORIGINAL"
	StopRuleBreakeven   StopRule = "BREAKEVEN"
	StopRuleATRTrail    StopRule = "ATR_TRAIL"
	StopRuleRunnerTrail StopRule = "RUNNER_TRAIL"
)

// TrendStrength represents the underlying trend classification.
type TrendStrength string

const (
	TrendStrongUp     TrendStrength = "STRONG_UP"
	TrendModerateUp   TrendStrength = "MODERATE_UP"
	TrendWeakUp       TrendStrength = "WEAK_UP"
	TrendNeutral      TrendStrength = "NEUTRAL"
	TrendWeakDown     TrendStrength = "WEAK_DOWN"
	TrendModerateDown TrendStrength = "MODERATE_DOWN"
	TrendStrongDown   TrendStrength = "STRONG_DOWN"
)

// Greeks represents option sensitivities plus the IV regime measures.
type Greeks struct {
	Delta        float64 `json:"delta"`
	Gamma        float64 `json:"gamma"`
	Theta        float64 `json:"theta"` // per day
	Vega         float64 `json:"vega"`  // per 1% IV
	IV           float64 `json:"iv"`    // annualized, decimal
	IVRank       float64 `json:"iv_rank"`
	IVPercentile float64 `json:"iv_percentile"`
	IVHigh       float64 `json:"iv_high"` // trailing window high
	IVLow        float64 `json:"iv_low"`  // trailing window low
}

// ThetaAnalysis represents time-decay analysis for a position.
type ThetaAnalysis struct {
	DailyDecay         float64    `json:"daily_decay"` // dollars per contract per day
	WeeklyDecay        float64    `json:"weekly_decay"`
	DecayPercent       float64    `json:"decay_percent"` // daily decay as % of option price
	Phase              DecayPhase `json:"phase"`
	DaysToAcceleration int        `json:"days_to_acceleration"` // days until the 21 DTE acceleration point
	DaysToCritical     int        `json:"days_to_critical"`     // days until the 7 DTE critical point
	ProjectedValue7D   float64    `json:"projected_value_7d"`
	ProjectedValue14D  float64    `json:"projected_value_14d"`
}

// GammaAnalysis represents gamma concentration risk near strike and expiry.
type GammaAnalysis struct {
	Score               float64 `json:"score"`        // 0-100
	DollarGamma         float64 `json:"dollar_gamma"` // delta change per $1 move, per 1% of spot
	DistanceToStrikePct float64 `json:"distance_to_strike_pct"`
	GammaImpactPct      float64 `json:"gamma_impact_pct"` // gamma*spot as % of option price
	NearStrike          bool    `json:"near_strike"`
	NearExpiry          bool    `json:"near_expiry"`
	ExplosionRisk       bool    `json:"explosion_risk"`
}

// LiquidityAnalysis represents execution quality of the contract.
type LiquidityAnalysis struct {
	Bid           float64         `json:"bid"`
	Ask           float64         `json:"ask"`
	Spread        float64         `json:"spread"`
	SpreadPercent float64         `json:"spread_percent"`
	Volume        int64           `json:"volume"`
	OpenInterest  int64           `json:"open_interest"`
	VolumeOIRatio float64         `json:"volume_oi_ratio"`
	Score         float64         `json:"score"` // 0-100
	Rating        LiquidityRating `json:"rating"`
}

// ExpectedMove represents the statistically implied move and touch probabilities.
type ExpectedMove struct {
	PeriodIV      float64 `json:"period_iv"`
	OneSigma      float64 `json:"one_sigma"` // dollar move
	TwoSigma      float64 `json:"two_sigma"`
	UpperOneSigma float64 `json:"upper_one_sigma"`
	LowerOneSigma float64 `json:"lower_one_sigma"`
	UpperTwoSigma float64 `json:"upper_two_sigma"`
	LowerTwoSigma float64 `json:"lower_two_sigma"`
	ProbTarget    float64 `json:"prob_target"` // percent
	ProbStop      float64 `json:"prob_stop"`
	ProbITM       float64 `json:"prob_itm"`
	RiskReward    float64 `json:"risk_reward"`
	ExpectedValue float64 `json:"expected_value"`
}

// Scenario represents one rung of the scenario ladder.
type Scenario struct {
	Label           string  `json:"label"`
	UnderlyingPrice float64 `json:"underlying_price"`
	OptionPrice     float64 `json:"option_price"`
	PnLDollars      float64 `json:"pnl_dollars"`
	PnLPercent      float64 `json:"pnl_percent"`
}

// ScenarioAnalysis represents delta-gamma projected P&L across the ladder.
type ScenarioAnalysis struct {
	Scenarios        []Scenario `json:"scenarios"`
	Breakeven        float64    `json:"breakeven"`
	BreakevenMovePct float64    `json:"breakeven_move_pct"`
	MaxLoss          float64    `json:"max_loss"`
}

// Best returns the label of the scenario with the highest P&L.
func (s *ScenarioAnalysis) Best() string {
	if len(s.Scenarios) == 0 {
		return "N/A"
	}
	best := s.Scenarios[0]
	for _, sc := range s.Scenarios[1:] {
		if sc.PnLDollars > best.PnLDollars {
			best = sc
		}
	}
	return best.Label
}

// Worst returns the label of the scenario with the lowest P&L.
func (s *ScenarioAnalysis) Worst() string {
	if len(s.Scenarios) == 0 {
		return "N/A"
	}
	worst := s.Scenarios[0]
	for _, sc := range s.Scenarios[1:] {
		if sc.PnLDollars < worst.PnLDollars {
			worst = sc
		}
	}
	return worst.Label
}

// RollAnalysis represents the roll recommendation for a position.
type RollAnalysis struct {
	UrgencyScore    float64     `json:"urgency_score"`
	ShouldRoll      bool        `json:"should_roll"`
	Urgency         RollUrgency `json:"urgency"`
	Type            RollType    `json:"type"`
	Reasons         []string    `json:"reasons"`
	SuggestedDTE    int         `json:"suggested_dte"`
	SuggestedStrike float64     `json:"suggested_strike"`
}

// Action maps the suggested roll type onto a recommended action.
func (r *RollAnalysis) Action() RecommendedAction {
	switch r.Type {
	case RollUpOut:
		return ActionRollUp
	case RollDownOut:
		return ActionRollDown
	default:
		return ActionRollOut
	}
}

// Reason joins the individual roll reasons into one display string.
func (r *RollAnalysis) Reason() string {
	return strings.Join(r.Reasons, "; ")
}

// MarketContext represents read-only technical context for the underlying.
// It is supplied by the technical-context provider, never computed by the
// decision components themselves.
type MarketContext struct {
	Trend         TrendStrength `json:"trend"`
	TrendAligned  bool          `json:"trend_aligned"` // trend direction matches the position's direction
	RSI           float64       `json:"rsi"`
	MACDSignal    string        `json:"macd_signal"` // BULLISH, BEARISH, NEUTRAL
	MACDHistogram float64       `json:"macd_histogram"`
	ATR           float64       `json:"atr"`
	ATRPercent    float64       `json:"atr_percent"`
	VolumeVsAvg   float64       `json:"volume_vs_avg"` // today's volume / 20-day average
	Support1      float64       `json:"support_1"`
	Support2      float64       `json:"support_2"`
	Resistance1   float64       `json:"resistance_1"`
	Resistance2   float64       `json:"resistance_2"`
}

// MomentumScore folds RSI, MACD, and trend into a single -100..100 reading.
func (m *MarketContext) MomentumScore() float64 {
	score := 0.0

	// RSI contribution
	switch {
	case m.RSI > 70:
		score += 30
	case m.RSI > 50:
		score += (m.RSI - 50) * 1.5
	case m.RSI < 30:
		score -= 30
	default:
		score -= (50 - m.RSI) * 1.5
	}

	// MACD contribution
	switch m.MACDSignal {
	case "BULLISH":
		score += 20
	case "BEARISH":
		score -= 20
	}

	// Trend contribution
	switch m.Trend {
	case TrendStrongUp:
		score += 30
	case TrendModerateUp:
		score += 20
	case TrendWeakUp:
		score += 10
	case TrendWeakDown:
		score -= 10
	case TrendModerateDown:
		score -= 20
	case TrendStrongDown:
		score -= 30
	}

	if score > 100 {
		return 100
	}
	if score < -100 {
		return -100
	}
	return score
}

// PositionScore represents the composite health score and its components.
type PositionScore struct {
	Overall     float64 `json:"overall"` // 0-100
	Grade       string  `json:"grade"`
	PnL         float64 `json:"pnl"`
	Theta       float64 `json:"theta"`
	Gamma       float64 `json:"gamma"`
	IVRegime    float64 `json:"iv_regime"`
	Liquidity   float64 `json:"liquidity"`
	Momentum    float64 `json:"momentum"`
	Probability float64 `json:"probability"`
	Weakest     string  `json:"weakest"`
}

// StopLevels represents the candidate stop ladder and the ratcheted recommendation.
type StopLevels struct {
	Original    float64  `json:"original"`
	Breakeven   float64  `json:"breakeven"`
	ATRTrail    float64  `json:"atr_trail"`
	RunnerTrail float64  `json:"runner_trail"`
	Recommended float64  `json:"recommended"`
	ActiveRule  StopRule `json:"active_rule"`
	NeedsUpdate bool     `json:"needs_update"` // recommended differs from the planned stop

	DistanceToStop    float64 `json:"distance_to_stop"`
	DistanceToStopATR float64 `json:"distance_to_stop_atr"`

	// Stock-level stops converted to option terms
	OriginalOption    float64 `json:"original_option"`
	RecommendedOption float64 `json:"recommended_option"`
	RunnerOption      float64 `json:"runner_option"`

	RiskDollars float64 `json:"risk_dollars"` // loss across the position if the recommended stop is hit
	RiskPercent float64 `json:"risk_percent"` // same loss as % of the entry premium
}

// ScalingState represents one-shot profit-taking triggers and the runner tranche.
type ScalingState struct {
	T1Threshold   float64 `json:"t1_threshold"` // P&L percent
	T2Threshold   float64 `json:"t2_threshold"`
	T1SellPercent float64 `json:"t1_sell_percent"`
	T2SellPercent float64 `json:"t2_sell_percent"`
	RunnerPercent float64 `json:"runner_percent"`

	T1Triggered bool       `json:"t1_triggered"`
	T1Price     float64    `json:"t1_price"` // option price when T1 fired
	T1Date      *time.Time `json:"t1_date,omitempty"`
	T2Triggered bool       `json:"t2_triggered"`
	T2Price     float64    `json:"t2_price"`
	T2Date      *time.Time `json:"t2_date,omitempty"`

	RunnerActive    bool             `json:"runner_active"`
	RunnerClosed    bool             `json:"runner_closed"`
	RunnerExit      RunnerExitReason `json:"runner_exit"`
	RunnerExitPrice float64          `json:"runner_exit_price"`
	ExtendedTarget  float64          `json:"extended_target"`
}

// SellContracts splits a total quantity into the tranche sizes sold at T1 and
// T2 and the runner remainder.
func (s *ScalingState) SellContracts(quantity int) (t1, t2, runner int) {
	t1 = int(float64(quantity) * s.T1SellPercent / 100)
	t2 = int(float64(quantity) * s.T2SellPercent / 100)
	runner = quantity - t1 - t2
	return t1, t2, runner
}

// Position is the root entity: one open option position and everything the
// engine derives about it. Entry facts are fixed at creation; sub-records are
// recomputed each evaluation cycle; the scaling flags and recommended stop
// carry state across cycles.
type Position struct {
	// Identity
	ID         string     `json:"id"`
	Symbol     string     `json:"symbol"`
	OptionType OptionType `json:"option_type"`
	Strike     float64    `json:"strike"`
	Expiration time.Time  `json:"expiration"`
	Quantity   int        `json:"quantity"` // contracts, always > 0

	// Entry facts, immutable after creation
	EntryDate        time.Time `json:"entry_date"`
	EntryUnderlying  float64   `json:"entry_underlying"`
	EntryOptionPrice float64   `json:"entry_option_price"`
	EntryDelta       float64   `json:"entry_delta"`
	EntryIV          float64   `json:"entry_iv"`
	EntryDTE         int       `json:"entry_dte"`

	// Trade plan, underlying terms
	StopPrice   float64 `json:"stop_price"`
	TargetPrice float64 `json:"target_price"`

	// Live state
	CurrentUnderlying float64 `json:"current_underlying"`
	CurrentOption     float64 `json:"current_option"`
	DTE               int     `json:"dte"`
	HighWaterMark     float64 `json:"high_water_mark"`
	LowWaterMark      float64 `json:"low_water_mark"`

	// Derived sub-records, recomputed each cycle
	Greeks    Greeks            `json:"greeks"`
	Theta     ThetaAnalysis     `json:"theta_analysis"`
	Gamma     GammaAnalysis     `json:"gamma_analysis"`
	Liquidity LiquidityAnalysis `json:"liquidity"`
	Expected  ExpectedMove      `json:"expected_move"`
	Scenarios ScenarioAnalysis  `json:"scenarios"`
	Roll      RollAnalysis      `json:"roll"`
	Context   MarketContext     `json:"market_context"`
	Score     PositionScore     `json:"score"`
	Stops     StopLevels        `json:"stops"`
	Scaling   ScalingState      `json:"scaling"`

	// Decision outputs
	Status       PositionStatus    `json:"status"`
	Action       RecommendedAction `json:"action"`
	ActionDetail string            `json:"action_detail"`
	Alerts       []string          `json:"alerts"`
	Warnings     []string          `json:"warnings"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PnLPercent returns the option P&L as a percentage of the entry price.
func (p *Position) PnLPercent() float64 {
	if p.EntryOptionPrice <= 0 {
		return 0
	}
	return (p.CurrentOption - p.EntryOptionPrice) / p.EntryOptionPrice * 100
}

// PnLDollars returns the option P&L in dollars across all contracts.
func (p *Position) PnLDollars() float64 {
	return (p.CurrentOption - p.EntryOptionPrice) * 100 * float64(p.Quantity)
}

// StockPnLPercent returns the underlying's move since entry as a percentage.
func (p *Position) StockPnLPercent() float64 {
	if p.EntryUnderlying <= 0 {
		return 0
	}
	return (p.CurrentUnderlying - p.EntryUnderlying) / p.EntryUnderlying * 100
}

// Moneyness returns the signed distance of spot from strike as a fraction of
// strike, positive when the position is in the money.
func (p *Position) Moneyness() float64 {
	if p.Strike <= 0 {
		return 0
	}
	if p.OptionType == OptionCall {
		return (p.CurrentUnderlying - p.Strike) / p.Strike
	}
	return (p.Strike - p.CurrentUnderlying) / p.Strike
}

// IsITM reports whether the position is in the money.
func (p *Position) IsITM() bool {
	return p.Moneyness() > 0
}

// IsCall reports whether the position is a call.
func (p *Position) IsCall() bool {
	return p.OptionType == OptionCall
}

// IsBullish reports whether the position profits from a rising underlying.
// Long calls are bullish, long puts bearish; the engine manages long options.
func (p *Position) IsBullish() bool {
	return p.OptionType == OptionCall
}

// DaysHeld returns calendar days since entry.
func (p *Position) DaysHeld() int {
	d := int(time.Since(p.EntryDate).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// DistanceToStrikePct returns |spot - strike| as a percentage of strike.
func (p *Position) DistanceToStrikePct() float64 {
	if p.Strike <= 0 {
		return 0
	}
	d := p.CurrentUnderlying - p.Strike
	if d < 0 {
		d = -d
	}
	return d / p.Strike * 100
}
