package models

import (
	"strings"
	"time"
)

// Summary is a flat, export-friendly projection of a Position. Every field is
// a scalar or joined string so the row serializes cleanly to JSON and CSV.
type Summary struct {
	ID         string  `json:"id" csv:"id"`
	Symbol     string  `json:"symbol" csv:"symbol"`
	OptionType string  `json:"option_type" csv:"option_type"`
	Strike     float64 `json:"strike" csv:"strike"`
	Expiration string  `json:"expiration" csv:"expiration"`
	Quantity   int     `json:"quantity" csv:"quantity"`
	DTE        int     `json:"dte" csv:"dte"`
	DaysHeld   int     `json:"days_held" csv:"days_held"`

	EntryDate        string  `json:"entry_date" csv:"entry_date"`
	EntryUnderlying  float64 `json:"entry_underlying" csv:"entry_underlying"`
	EntryOptionPrice float64 `json:"entry_option_price" csv:"entry_option_price"`
	EntryDTE         int     `json:"entry_dte" csv:"entry_dte"`

	CurrentUnderlying float64 `json:"current_underlying" csv:"current_underlying"`
	CurrentOption     float64 `json:"current_option" csv:"current_option"`
	StopPrice         float64 `json:"stop_price" csv:"stop_price"`
	TargetPrice       float64 `json:"target_price" csv:"target_price"`
	HighWaterMark     float64 `json:"high_water_mark" csv:"high_water_mark"`
	LowWaterMark      float64 `json:"low_water_mark" csv:"low_water_mark"`

	PnLPercent      float64 `json:"pnl_percent" csv:"pnl_percent"`
	PnLDollars      float64 `json:"pnl_dollars" csv:"pnl_dollars"`
	StockPnLPercent float64 `json:"stock_pnl_percent" csv:"stock_pnl_percent"`

	Delta        float64 `json:"delta" csv:"delta"`
	Gamma        float64 `json:"gamma" csv:"gamma"`
	ThetaPerDay  float64 `json:"theta_per_day" csv:"theta_per_day"`
	Vega         float64 `json:"vega" csv:"vega"`
	IV           float64 `json:"iv" csv:"iv"`
	IVRank       float64 `json:"iv_rank" csv:"iv_rank"`
	IVPercentile float64 `json:"iv_percentile" csv:"iv_percentile"`

	DecayPhase       string  `json:"decay_phase" csv:"decay_phase"`
	DailyDecay       float64 `json:"daily_decay" csv:"daily_decay"`
	DecayPercent     float64 `json:"decay_percent" csv:"decay_percent"`
	ProjectedValue7D float64 `json:"projected_value_7d" csv:"projected_value_7d"`

	GammaScore     float64 `json:"gamma_score" csv:"gamma_score"`
	GammaExplosion bool    `json:"gamma_explosion" csv:"gamma_explosion"`

	LiquidityScore  float64 `json:"liquidity_score" csv:"liquidity_score"`
	LiquidityRating string  `json:"liquidity_rating" csv:"liquidity_rating"`
	Bid             float64 `json:"bid" csv:"bid"`
	Ask             float64 `json:"ask" csv:"ask"`
	SpreadPercent   float64 `json:"spread_percent" csv:"spread_percent"`
	Volume          int64   `json:"volume" csv:"volume"`
	OpenInterest    int64   `json:"open_interest" csv:"open_interest"`

	OneSigmaMove  float64 `json:"one_sigma_move" csv:"one_sigma_move"`
	ProbTarget    float64 `json:"prob_target" csv:"prob_target"`
	ProbStop      float64 `json:"prob_stop" csv:"prob_stop"`
	ProbITM       float64 `json:"prob_itm" csv:"prob_itm"`
	RiskReward    float64 `json:"risk_reward" csv:"risk_reward"`
	ExpectedValue float64 `json:"expected_value" csv:"expected_value"`

	Breakeven        float64 `json:"breakeven" csv:"breakeven"`
	BreakevenMovePct float64 `json:"breakeven_move_pct" csv:"breakeven_move_pct"`
	MaxLoss          float64 `json:"max_loss" csv:"max_loss"`

	Trend         string  `json:"trend" csv:"trend"`
	TrendAligned  bool    `json:"trend_aligned" csv:"trend_aligned"`
	RSI           float64 `json:"rsi" csv:"rsi"`
	MACDSignal    string  `json:"macd_signal" csv:"macd_signal"`
	ATR           float64 `json:"atr" csv:"atr"`
	MomentumScore float64 `json:"momentum_score" csv:"momentum_score"`

	Score         float64 `json:"score" csv:"score"`
	Grade         string  `json:"grade" csv:"grade"`
	WeakestArea   string  `json:"weakest_area" csv:"weakest_area"`
	ScorePnL      float64 `json:"score_pnl" csv:"score_pnl"`
	ScoreTheta    float64 `json:"score_theta" csv:"score_theta"`
	ScoreGamma    float64 `json:"score_gamma" csv:"score_gamma"`
	ScoreIV       float64 `json:"score_iv" csv:"score_iv"`
	ScoreMomentum float64 `json:"score_momentum" csv:"score_momentum"`

	RecommendedStop float64 `json:"recommended_stop" csv:"recommended_stop"`
	StopRule        string  `json:"stop_rule" csv:"stop_rule"`
	StopNeedsUpdate bool    `json:"stop_needs_update" csv:"stop_needs_update"`
	OptionStop      float64 `json:"option_stop" csv:"option_stop"`
	RiskDollars     float64 `json:"risk_dollars" csv:"risk_dollars"`
	RiskPercent     float64 `json:"risk_percent" csv:"risk_percent"`

	T1Triggered    bool    `json:"t1_triggered" csv:"t1_triggered"`
	T2Triggered    bool    `json:"t2_triggered" csv:"t2_triggered"`
	RunnerActive   bool    `json:"runner_active" csv:"runner_active"`
	RunnerClosed   bool    `json:"runner_closed" csv:"runner_closed"`
	RunnerExit     string  `json:"runner_exit,omitempty" csv:"runner_exit"`
	ExtendedTarget float64 `json:"extended_target" csv:"extended_target"`

	RollUrgency     string  `json:"roll_urgency" csv:"roll_urgency"`
	RollShould      bool    `json:"roll_should" csv:"roll_should"`
	RollType        string  `json:"roll_type,omitempty" csv:"roll_type"`
	RollReason      string  `json:"roll_reason,omitempty" csv:"roll_reason"`
	SuggestedDTE    int     `json:"suggested_dte" csv:"suggested_dte"`
	SuggestedStrike float64 `json:"suggested_strike" csv:"suggested_strike"`

	Status       string   `json:"status" csv:"status"`
	Action       string   `json:"action" csv:"action"`
	ActionDetail string   `json:"action_detail" csv:"action_detail"`
	Alerts       []string `json:"alerts" csv:"-"`
	Warnings     []string `json:"warnings" csv:"-"`
	AlertsText   string   `json:"-" csv:"alerts"`
	WarningsText string   `json:"-" csv:"warnings"`

	UpdatedAt string `json:"updated_at" csv:"updated_at"`
}

// BuildSummary flattens a position into its export projection.
func BuildSummary(p *Position) Summary {
	s := Summary{
		ID:         p.ID,
		Symbol:     p.Symbol,
		OptionType: string(p.OptionType),
		Strike:     p.Strike,
		Expiration: p.Expiration.Format("2006-01-02"),
		Quantity:   p.Quantity,
		DTE:        p.DTE,
		DaysHeld:   p.DaysHeld(),

		EntryDate:        p.EntryDate.Format("2006-01-02"),
		EntryUnderlying:  p.EntryUnderlying,
		EntryOptionPrice: p.EntryOptionPrice,
		EntryDTE:         p.EntryDTE,

		CurrentUnderlying: p.CurrentUnderlying,
		CurrentOption:     p.CurrentOption,
		StopPrice:         p.StopPrice,
		TargetPrice:       p.TargetPrice,
		HighWaterMark:     p.HighWaterMark,
		LowWaterMark:      p.LowWaterMark,

		PnLPercent:      p.PnLPercent(),
		PnLDollars:      p.PnLDollars(),
		StockPnLPercent: p.StockPnLPercent(),

		Delta:        p.Greeks.Delta,
		Gamma:        p.Greeks.Gamma,
		ThetaPerDay:  p.Greeks.Theta,
		Vega:         p.Greeks.Vega,
		IV:           p.Greeks.IV,
		IVRank:       p.Greeks.IVRank,
		IVPercentile: p.Greeks.IVPercentile,

		DecayPhase:       string(p.Theta.Phase),
		DailyDecay:       p.Theta.DailyDecay,
		DecayPercent:     p.Theta.DecayPercent,
		ProjectedValue7D: p.Theta.ProjectedValue7D,

		GammaScore:     p.Gamma.Score,
		GammaExplosion: p.Gamma.ExplosionRisk,

		LiquidityScore:  p.Liquidity.Score,
		LiquidityRating: string(p.Liquidity.Rating),
		Bid:             p.Liquidity.Bid,
		Ask:             p.Liquidity.Ask,
		SpreadPercent:   p.Liquidity.SpreadPercent,
		Volume:          p.Liquidity.Volume,
		OpenInterest:    p.Liquidity.OpenInterest,

		OneSigmaMove:  p.Expected.OneSigma,
		ProbTarget:    p.Expected.ProbTarget,
		ProbStop:      p.Expected.ProbStop,
		ProbITM:       p.Expected.ProbITM,
		RiskReward:    p.Expected.RiskReward,
		ExpectedValue: p.Expected.ExpectedValue,

		Breakeven:        p.Scenarios.Breakeven,
		BreakevenMovePct: p.Scenarios.BreakevenMovePct,
		MaxLoss:          p.Scenarios.MaxLoss,

		Trend:         string(p.Context.Trend),
		TrendAligned:  p.Context.TrendAligned,
		RSI:           p.Context.RSI,
		MACDSignal:    p.Context.MACDSignal,
		ATR:           p.Context.ATR,
		MomentumScore: p.Context.MomentumScore(),

		Score:         p.Score.Overall,
		Grade:         p.Score.Grade,
		WeakestArea:   p.Score.Weakest,
		ScorePnL:      p.Score.PnL,
		ScoreTheta:    p.Score.Theta,
		ScoreGamma:    p.Score.Gamma,
		ScoreIV:       p.Score.IVRegime,
		ScoreMomentum: p.Score.Momentum,

		RecommendedStop: p.Stops.Recommended,
		StopRule:        string(p.Stops.ActiveRule),
		StopNeedsUpdate: p.Stops.NeedsUpdate,
		OptionStop:      p.Stops.RecommendedOption,
		RiskDollars:     p.Stops.RiskDollars,
		RiskPercent:     p.Stops.RiskPercent,

		T1Triggered:    p.Scaling.T1Triggered,
		T2Triggered:    p.Scaling.T2Triggered,
		RunnerActive:   p.Scaling.RunnerActive,
		RunnerClosed:   p.Scaling.RunnerClosed,
		RunnerExit:     string(p.Scaling.RunnerExit),
		ExtendedTarget: p.Scaling.ExtendedTarget,

		RollUrgency:     string(p.Roll.Urgency),
		RollShould:      p.Roll.ShouldRoll,
		SuggestedDTE:    p.Roll.SuggestedDTE,
		SuggestedStrike: p.Roll.SuggestedStrike,

		Status:       string(p.Status),
		Action:       string(p.Action),
		ActionDetail: p.ActionDetail,
		Alerts:       p.Alerts,
		Warnings:     p.Warnings,
		AlertsText:   strings.Join(p.Alerts, "; "),
		WarningsText: strings.Join(p.Warnings, "; "),

		UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
	}
	if p.Roll.ShouldRoll {
		s.RollType = string(p.Roll.Type)
		s.RollReason = p.Roll.Reason()
	}
	return s
}
