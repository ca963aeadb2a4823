package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"optionguard/internal/models"
	"optionguard/internal/store"
	"optionguard/pkg/utils"
)

// addPositionCommands adds the position bookkeeping and evaluation commands.
func addPositionCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newAddCmd(app))
	rootCmd.AddCommand(newListCmd(app))
	rootCmd.AddCommand(newShowCmd(app))
	rootCmd.AddCommand(newUpdateCmd(app))
	rootCmd.AddCommand(newCloseCmd(app))
}

func newAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <symbol>",
		Short: "Add an open option position",
		Long: `Record a long option position to be monitored.

Entry facts are fixed at creation. The stop and target are expressed in
underlying terms and can be adjusted later with 'optionguard show --adjust'.`,
		Example: `  optionguard add AAPL --type call --strike 190 --expiry 2025-10-17 --qty 2 \
      --entry 4.20 --underlying 185.50 --stop 182 --target 195
  optionguard add SPY --type put --strike 540 --expiry 2025-09-19 \
      --entry 6.10 --underlying 552.30 --stop 558 --target 535 --delta -0.42 --iv 0.19`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			eng, err := app.requireEngine()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			typeStr, _ := cmd.Flags().GetString("type")
			strike, _ := cmd.Flags().GetFloat64("strike")
			expiryStr, _ := cmd.Flags().GetString("expiry")
			qty, _ := cmd.Flags().GetInt("qty")
			entry, _ := cmd.Flags().GetFloat64("entry")
			underlying, _ := cmd.Flags().GetFloat64("underlying")
			stop, _ := cmd.Flags().GetFloat64("stop")
			target, _ := cmd.Flags().GetFloat64("target")
			delta, _ := cmd.Flags().GetFloat64("delta")
			iv, _ := cmd.Flags().GetFloat64("iv")

			optionType, err := ParseOptionType(typeStr)
			if err != nil {
				return err
			}
			var expiration time.Time
			if expiryStr != "" {
				expiration, err = ParseExpiration(expiryStr)
				if err != nil {
					return err
				}
			}

			pos := &models.Position{
				Symbol:           strings.ToUpper(args[0]),
				OptionType:       optionType,
				Strike:           strike,
				Expiration:       expiration,
				Quantity:         qty,
				EntryUnderlying:  underlying,
				EntryOptionPrice: entry,
				StopPrice:        stop,
				TargetPrice:      target,
			}
			pos.Greeks.Delta = delta
			pos.Greeks.IV = iv

			if err := eng.AddPosition(ctx, pos); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(pos)
			}

			output.Success("Added %s", pos.ID)
			output.Printf("  %s x%d at $%.2f (underlying $%.2f)\n",
				FormatContract(pos.Symbol, pos.OptionType, pos.Strike, pos.Expiration),
				pos.Quantity, pos.EntryOptionPrice, pos.EntryUnderlying)
			if pos.StopPrice > 0 {
				output.Printf("  Stop $%.2f  Target $%.2f  DTE %d\n", pos.StopPrice, pos.TargetPrice, pos.DTE)
			} else {
				output.Warning("  No stop set. The engine will still recommend one, but set --stop to define your risk.")
			}
			return nil
		},
	}

	cmd.Flags().String("type", "", "option type: call or put (required)")
	cmd.Flags().Float64("strike", 0, "strike price (required)")
	cmd.Flags().String("expiry", "", "expiration date YYYY-MM-DD (required)")
	cmd.Flags().Int("qty", 1, "number of contracts")
	cmd.Flags().Float64("entry", 0, "option entry price per share (required)")
	cmd.Flags().Float64("underlying", 0, "underlying price at entry (required)")
	cmd.Flags().Float64("stop", 0, "stop level in underlying terms")
	cmd.Flags().Float64("target", 0, "target level in underlying terms")
	cmd.Flags().Float64("delta", 0, "entry delta, if known")
	cmd.Flags().Float64("iv", 0, "entry implied volatility as a decimal, if known")

	return cmd
}

func newListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List positions",
		Long:  "List open positions, or the closed-trade archive with --closed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			eng, err := app.requireEngine()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			closed, _ := cmd.Flags().GetBool("closed")
			if closed {
				symbol, _ := cmd.Flags().GetString("symbol")
				limit, _ := cmd.Flags().GetInt("limit")
				return listClosed(ctx, output, app, store.ClosedFilter{
					Symbol: strings.ToUpper(symbol),
					Limit:  limit,
				})
			}

			positions, err := eng.List(ctx)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(positions)
			}

			if len(positions) == 0 {
				output.Println("No open positions. Add one with 'optionguard add'.")
				return nil
			}

			output.Printf("Market: %s\n\n", output.MarketStatus(utils.GetMarketStatus()))

			table := NewTable(output, "ID", "CONTRACT", "QTY", "ENTRY", "LAST", "P&L", "P&L%", "DTE", "STATUS")
			for _, p := range positions {
				table.AddRow(
					p.ID,
					FormatContract(p.Symbol, p.OptionType, p.Strike, p.Expiration),
					fmt.Sprintf("%d", p.Quantity),
					fmt.Sprintf("%.2f", p.EntryOptionPrice),
					fmt.Sprintf("%.2f", p.CurrentOption),
					output.FormatPnL(p.PnLDollars()),
					output.FormatPercent(p.PnLPercent()),
					FormatDTE(p.DTE),
					output.StatusText(p.Status),
				)
			}
			table.Render()

			output.Println()
			output.Dim("Prices as of the last update. Run 'optionguard update --all' to refresh.")
			return nil
		},
	}

	cmd.Flags().Bool("closed", false, "list the closed-trade archive instead")
	cmd.Flags().String("symbol", "", "filter closed trades by symbol")
	cmd.Flags().Int("limit", 50, "maximum closed trades to list")

	return cmd
}

func listClosed(ctx context.Context, output *Output, app *App, filter store.ClosedFilter) error {
	rows, err := app.Engine.Closed(ctx, filter)
	if err != nil {
		return err
	}
	if output.IsJSON() {
		return output.JSON(rows)
	}
	if len(rows) == 0 {
		output.Println("No closed trades.")
		return nil
	}

	dateFmt := app.Config.UI.DateFormat
	table := NewTable(output, "ID", "CONTRACT", "QTY", "ENTRY", "EXIT", "P&L", "P&L%", "HELD", "CLOSED", "REASON")
	var total float64
	for _, cp := range rows {
		total += cp.PnLDollars
		table.AddRow(
			cp.ID,
			FormatContract(cp.Symbol, cp.OptionType, cp.Strike, cp.Expiration),
			fmt.Sprintf("%d", cp.Quantity),
			fmt.Sprintf("%.2f", cp.EntryOption),
			fmt.Sprintf("%.2f", cp.ExitOption),
			output.FormatPnL(cp.PnLDollars),
			output.FormatPercent(cp.PnLPercent),
			fmt.Sprintf("%dd", cp.DaysHeld),
			cp.ExitDate.Format(dateFmt),
			TruncateString(cp.ExitReason, 30),
		)
	}
	table.Render()

	output.Println()
	output.Printf("Total realized: %s across %d trades\n", output.FormatPnL(total), len(rows))
	return nil
}

func newShowCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show full detail for one position",
		Long: `Show everything the engine knows about a position: entry facts, live
state, greeks, decay and gamma profiles, liquidity, expected move,
scenario ladder, stop levels, scaling state, and the current recommendation.

Values reflect the last evaluation. Pass --refresh to fetch live data first,
or --adjust-stop/--adjust-target to change the trade plan.`,
		Example: `  optionguard show AAPL_190_a1b2c3
  optionguard show AAPL_190_a1b2c3 --refresh
  optionguard show AAPL_190_a1b2c3 --adjust-stop 186.50`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			eng, err := app.requireEngine()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			id := args[0]
			refresh, _ := cmd.Flags().GetBool("refresh")
			adjStop, _ := cmd.Flags().GetFloat64("adjust-stop")
			adjTarget, _ := cmd.Flags().GetFloat64("adjust-target")

			if adjStop > 0 || adjTarget > 0 {
				pos, err := eng.AdjustPlan(ctx, id, adjStop, adjTarget)
				if err != nil {
					return err
				}
				if !output.IsJSON() {
					output.Success("Plan updated: stop $%.2f, target $%.2f", pos.StopPrice, pos.TargetPrice)
					output.Println()
				}
			}

			if refresh {
				if err := app.requireGateway(); err != nil {
					return err
				}
				if _, err := eng.UpdatePosition(ctx, id); err != nil {
					return err
				}
			}

			pos, err := eng.Get(ctx, id)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(pos)
			}
			displayPosition(output, pos, app.Config.UI.DateFormat)
			return nil
		},
	}

	cmd.Flags().Bool("refresh", false, "fetch live data and re-evaluate before showing")
	cmd.Flags().Float64("adjust-stop", 0, "move the planned stop (underlying terms)")
	cmd.Flags().Float64("adjust-target", 0, "move the planned target (underlying terms)")

	return cmd
}

func newUpdateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update [id]",
		Short: "Fetch live data and re-evaluate positions",
		Long: `Refresh market data for one position (by ID) or the whole book (--all),
recompute every analysis, and print the resulting recommendations.`,
		Example: `  optionguard update AAPL_190_a1b2c3
  optionguard update --all`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			eng, err := app.requireEngine()
			if err != nil {
				return err
			}
			if err := app.requireGateway(); err != nil {
				return err
			}

			all, _ := cmd.Flags().GetBool("all")
			if !all && len(args) == 0 {
				return fmt.Errorf("pass a position ID or --all")
			}

			if all {
				ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
				defer cancel()

				summaries, err := eng.UpdateAll(ctx)
				if err != nil {
					return err
				}
				if output.IsJSON() {
					return output.JSON(summaries)
				}
				displaySummaries(output, summaries)
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			summary, err := eng.UpdatePosition(ctx, args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(summary)
			}
			displaySummaries(output, []models.Summary{summary})
			return nil
		},
	}

	cmd.Flags().Bool("all", false, "update every open position")

	return cmd
}

func newCloseCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "close <id>",
		Short: "Close a position and archive the trade",
		Long: `Remove a position from the open book and record the realized trade.

With no --price the last known option price is used as the exit.`,
		Example: `  optionguard close AAPL_190_a1b2c3 --price 6.40 --reason "target hit"
  optionguard close SPY_540_d4e5f6 --reason "stopped out"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			eng, err := app.requireEngine()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			price, _ := cmd.Flags().GetFloat64("price")
			reason, _ := cmd.Flags().GetString("reason")

			cp, err := eng.ClosePosition(ctx, args[0], price, reason)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(cp)
			}

			output.Success("Closed %s", cp.ID)
			output.Printf("  Exit $%.2f on %s (%s)\n", cp.ExitOption, cp.ExitDate.Format(app.Config.UI.DateFormat), cp.ExitReason)
			output.Printf("  P&L %s (%s) over %dd\n", output.FormatPnL(cp.PnLDollars), output.FormatPercent(cp.PnLPercent), cp.DaysHeld)
			return nil
		},
	}

	cmd.Flags().Float64("price", 0, "exit option price per share (default: last known price)")
	cmd.Flags().String("reason", "manual", "why the position was closed")

	return cmd
}

// displaySummaries renders the post-update recommendation table plus any
// alerts and warnings raised this cycle.
func displaySummaries(output *Output, summaries []models.Summary) {
	if len(summaries) == 0 {
		output.Println("No open positions.")
		return
	}

	table := NewTable(output, "ID", "CONTRACT", "LAST", "P&L%", "DTE", "SCORE", "STATUS", "ACTION")
	for _, s := range summaries {
		table.AddRow(
			s.ID,
			summaryContract(s),
			fmt.Sprintf("%.2f", s.CurrentOption),
			output.FormatPercent(s.PnLPercent),
			FormatDTE(s.DTE),
			fmt.Sprintf("%.0f %s", s.Score, output.GradeText(s.Grade)),
			output.StatusText(models.PositionStatus(s.Status)),
			TruncateString(s.ActionDetail, 44),
		)
	}
	table.Render()

	var hasAlerts bool
	for _, s := range summaries {
		for _, a := range s.Alerts {
			if !hasAlerts {
				output.Println()
				hasAlerts = true
			}
			output.Error("  [%s] %s", s.ID, a)
		}
		for _, w := range s.Warnings {
			if !hasAlerts {
				output.Println()
				hasAlerts = true
			}
			output.Warning("  [%s] %s", s.ID, w)
		}
	}
}

func summaryContract(s models.Summary) string {
	letter := "C"
	if s.OptionType == string(models.OptionPut) {
		letter = "P"
	}
	return fmt.Sprintf("%s $%s%s %s", s.Symbol, FormatStrike(s.Strike), letter, s.Expiration)
}

// displayPosition renders the full detail view for one position.
func displayPosition(output *Output, pos *models.Position, dateFmt string) {
	output.Printf("%s  %s\n", output.BoldText(FormatContract(pos.Symbol, pos.OptionType, pos.Strike, pos.Expiration)), output.StatusText(pos.Status))
	output.Dim("%s, %d contracts, held %dd, updated %s", pos.ID, pos.Quantity, pos.DaysHeld(), pos.UpdatedAt.Format(dateFmt+" 15:04"))
	output.Println()

	output.Bold("Entry")
	output.Printf("  Date:        %s (DTE %d)\n", pos.EntryDate.Format(dateFmt), pos.EntryDTE)
	output.Printf("  Underlying:  $%.2f\n", pos.EntryUnderlying)
	output.Printf("  Option:      $%.2f  delta %.2f  IV %s\n", pos.EntryOptionPrice, pos.EntryDelta, FormatIV(pos.EntryIV))
	output.Println()

	output.Bold("Now")
	output.Printf("  Underlying:  $%.2f (%s)  moneyness %.1f%%\n", pos.CurrentUnderlying, output.FormatPercent(pos.StockPnLPercent()), pos.Moneyness())
	output.Printf("  Option:      $%.2f  high $%.2f  low $%.2f\n", pos.CurrentOption, pos.HighWaterMark, pos.LowWaterMark)
	output.Printf("  P&L:         %s (%s)\n", output.FormatPnL(pos.PnLDollars()), output.FormatPercent(pos.PnLPercent()))
	output.Printf("  DTE:         %d\n", pos.DTE)
	output.Println()

	output.Bold("Plan")
	output.Printf("  Stop:        $%.2f (your plan)\n", pos.StopPrice)
	output.Printf("  Recommended: $%.2f via %s", pos.Stops.Recommended, pos.Stops.ActiveRule)
	if pos.Stops.NeedsUpdate {
		output.Printf("  %s", output.Yellow("MOVE STOP"))
	}
	output.Println()
	output.Printf("  Target:      $%.2f\n", pos.TargetPrice)
	output.Printf("  Risk:        %s (%.1f%% of premium) if the recommended stop is hit\n", utils.FormatMoney(pos.Stops.RiskDollars), pos.Stops.RiskPercent)
	if pos.Stops.DistanceToStopATR > 0 {
		output.Printf("  Distance:    %.2f ATR above the recommended stop\n", pos.Stops.DistanceToStopATR)
	}
	output.Println()

	output.Bold("Greeks")
	output.Printf("  %s\n", FormatGreeks(pos.Greeks))
	output.Printf("  IV rank %.0f, percentile %.0f (window %s to %s)\n",
		pos.Greeks.IVRank, pos.Greeks.IVPercentile, FormatIV(pos.Greeks.IVLow), FormatIV(pos.Greeks.IVHigh))
	output.Println()

	output.Bold("Theta")
	output.Printf("  Phase:       %s\n", pos.Theta.Phase)
	output.Printf("  Decay:       $%.2f/day per contract (%.1f%% of value), $%.2f/week\n", pos.Theta.DailyDecay, pos.Theta.DecayPercent, pos.Theta.WeeklyDecay)
	output.Printf("  Projected:   $%.2f in 7d, $%.2f in 14d\n", pos.Theta.ProjectedValue7D, pos.Theta.ProjectedValue14D)
	output.Println()

	output.Bold("Gamma")
	output.Printf("  Score:       %.0f/100", pos.Gamma.Score)
	if pos.Gamma.ExplosionRisk {
		output.Printf("  %s", output.Red("EXPLOSION RISK"))
	}
	output.Println()
	output.Printf("  Strike:      %.1f%% away, near-strike %v, near-expiry %v\n", pos.Gamma.DistanceToStrikePct, pos.Gamma.NearStrike, pos.Gamma.NearExpiry)
	output.Println()

	output.Bold("Liquidity")
	output.Printf("  Rating:      %s (score %.0f)\n", pos.Liquidity.Rating, pos.Liquidity.Score)
	output.Printf("  Market:      %.2f x %.2f, spread %.1f%%\n", pos.Liquidity.Bid, pos.Liquidity.Ask, pos.Liquidity.SpreadPercent)
	output.Printf("  Depth:       volume %d, OI %d\n", pos.Liquidity.Volume, pos.Liquidity.OpenInterest)
	output.Println()

	output.Bold("Expected move")
	output.Printf("  One sigma:   $%.2f (%.2f to %.2f by expiry)\n", pos.Expected.OneSigma, pos.Expected.LowerOneSigma, pos.Expected.UpperOneSigma)
	output.Printf("  Probability: target %.0f%%, stop %.0f%%, ITM %.0f%%\n", pos.Expected.ProbTarget, pos.Expected.ProbStop, pos.Expected.ProbITM)
	output.Printf("  Payoff:      risk/reward %.2f, expected value %s\n", pos.Expected.RiskReward, output.FormatPnL(pos.Expected.ExpectedValue))
	output.Println()

	if len(pos.Scenarios.Scenarios) > 0 {
		output.Bold("Scenarios")
		table := NewTable(output, "  MOVE", "UNDERLYING", "OPTION", "P&L", "P&L%")
		for _, sc := range pos.Scenarios.Scenarios {
			table.AddRow(
				"  "+sc.Label,
				fmt.Sprintf("%.2f", sc.UnderlyingPrice),
				fmt.Sprintf("%.2f", sc.OptionPrice),
				output.FormatPnL(sc.PnLDollars),
				output.FormatPercent(sc.PnLPercent),
			)
		}
		table.Render()
		output.Printf("  Breakeven $%.2f (%.1f%% away), max loss %s\n", pos.Scenarios.Breakeven, pos.Scenarios.BreakevenMovePct, utils.FormatMoney(pos.Scenarios.MaxLoss))
		output.Println()
	}

	output.Bold("Scaling")
	output.Printf("  T1 +%.0f%%: %s  T2 +%.0f%%: %s  runner: %s\n",
		pos.Scaling.T1Threshold, triggeredText(output, pos.Scaling.T1Triggered),
		pos.Scaling.T2Threshold, triggeredText(output, pos.Scaling.T2Triggered),
		runnerText(output, pos))
	if pos.Scaling.RunnerActive && pos.Scaling.ExtendedTarget > 0 {
		output.Printf("  Extended target: $%.2f\n", pos.Scaling.ExtendedTarget)
	}
	output.Println()

	if pos.Roll.UrgencyScore > 0 {
		output.Bold("Roll")
		output.Printf("  Urgency:     %.0f/100 (%s)\n", pos.Roll.UrgencyScore, pos.Roll.Urgency)
		if pos.Roll.ShouldRoll {
			output.Printf("  Suggest:     %s to ~%d DTE, strike ~$%.0f\n", pos.Roll.Type, pos.Roll.SuggestedDTE, pos.Roll.SuggestedStrike)
			for _, r := range pos.Roll.Reasons {
				output.Printf("    - %s\n", r)
			}
		}
		output.Println()
	}

	output.Bold("Context")
	output.Printf("  Trend:       %s (aligned %v)  RSI %.0f  MACD %s\n", pos.Context.Trend, pos.Context.TrendAligned, pos.Context.RSI, pos.Context.MACDSignal)
	output.Printf("  ATR:         $%.2f (%.1f%%)  volume %.1fx avg\n", pos.Context.ATR, pos.Context.ATRPercent, pos.Context.VolumeVsAvg)
	if pos.Context.Support1 > 0 {
		output.Printf("  Levels:      support %.2f / %.2f, resistance %.2f / %.2f\n",
			pos.Context.Support1, pos.Context.Support2, pos.Context.Resistance1, pos.Context.Resistance2)
	}
	output.Println()

	output.Bold("Health")
	output.Printf("  Score:       %.0f/100 grade %s, weakest area: %s\n", pos.Score.Overall, output.GradeText(pos.Score.Grade), pos.Score.Weakest)
	output.Printf("  Components:  pnl %.0f theta %.0f gamma %.0f iv %.0f liquidity %.0f momentum %.0f probability %.0f\n",
		pos.Score.PnL, pos.Score.Theta, pos.Score.Gamma, pos.Score.IVRegime, pos.Score.Liquidity, pos.Score.Momentum, pos.Score.Probability)

	if pos.Action != models.ActionNone && pos.ActionDetail != "" {
		output.Println()
		output.Bold("Action: %s", pos.ActionDetail)
	}
	for _, a := range pos.Alerts {
		output.Error("  ! %s", a)
	}
	for _, w := range pos.Warnings {
		output.Warning("  * %s", w)
	}
}

func triggeredText(output *Output, triggered bool) string {
	if triggered {
		return output.Green("done")
	}
	return output.DimText("pending")
}

func runnerText(output *Output, pos *models.Position) string {
	switch {
	case pos.Scaling.RunnerClosed:
		return output.DimText(fmt.Sprintf("closed (%s)", pos.Scaling.RunnerExit))
	case pos.Scaling.RunnerActive:
		return output.Green("active")
	default:
		return output.DimText("not yet")
	}
}
