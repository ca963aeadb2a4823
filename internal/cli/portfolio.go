package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"optionguard/internal/portfolio"
	"optionguard/pkg/utils"
)

// addPortfolioCommands adds the book-level analysis command.
func addPortfolioCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newPortfolioCmd(app))
}

func newPortfolioCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "portfolio",
		Short: "Book-level risk: greeks, concentration, capital at risk, sizing",
		Long: `Aggregate every open position into portfolio greeks, sector
concentration, capital at risk, and a per-position health heat map, then
derive how much room is left for the next trade.

Reads stored positions as of their last evaluation; run
'optionguard update --all' first for fresh numbers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			eng, err := app.requireEngine()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			positions, err := eng.List(ctx)
			if err != nil {
				return err
			}

			report := portfolio.Analyze(positions, app.Config.Portfolio.TotalCapital)
			if output.IsJSON() {
				return output.JSON(report)
			}
			displayReport(output, report)
			return nil
		},
	}
}

func displayReport(output *Output, r *portfolio.Report) {
	section := color.New(color.FgCyan, color.Bold)

	headline := r.Headline
	switch {
	case r.Score >= 70:
		headline = output.Green(headline)
	case r.Score >= 50:
		headline = output.Yellow(headline)
	default:
		headline = output.Red(headline)
	}
	output.Printf("%s  (score %.0f/100, %d positions)\n", headline, r.Score, r.Positions)
	output.Println()

	if r.Positions == 0 {
		for _, rec := range r.Recommendations {
			output.Printf("  %s\n", rec)
		}
		return
	}

	section.Fprintln(output.Writer(), "Greeks")
	output.Printf("  Delta %+.0f  gamma %+.0f  theta %s/day  vega %+.0f\n",
		r.Greeks.Delta, r.Greeks.Gamma, output.FormatPnL(r.Greeks.Theta), r.Greeks.Vega)
	output.Printf("  Bias: %s. %s\n", r.Greeks.Bias, r.Greeks.Interpretation)
	output.Println()

	section.Fprintln(output.Writer(), "Capital at risk")
	output.Printf("  Deployed:  %s of %s capital\n", utils.FormatMoney(r.Risk.TotalValue), utils.FormatMoney(r.Risk.TotalCapital))
	output.Printf("  At risk:   %s (%.1f%% of capital), level %s\n",
		utils.FormatMoney(r.Risk.CapitalAtRisk), r.Risk.CapitalAtRiskPct, riskLevelText(output, r.Risk.Level))
	output.Printf("  All stops: %s if every stop is hit\n", utils.FormatMoney(r.Risk.MaxLossAllStops))
	if r.Risk.LargestPosition != "" {
		output.Printf("  Largest:   %s at %s (%.1f%% of capital)\n",
			r.Risk.LargestPosition, utils.FormatMoney(r.Risk.LargestValue), r.Risk.LargestPctOfCap)
	}
	output.Println()

	section.Fprintln(output.Writer(), "Concentration")
	table := NewTable(output, "  SECTOR", "POSITIONS", "VALUE", "DELTA", "% BOOK")
	for _, s := range r.Concentration.Sectors {
		table.AddRow(
			"  "+s.Sector,
			fmt.Sprintf("%d", s.SymbolCount),
			utils.FormatMoney(s.TotalValue),
			fmt.Sprintf("%+.0f", s.TotalDelta),
			fmt.Sprintf("%.0f%%", s.PctOfPortfolio),
		)
	}
	table.Render()
	output.Printf("  Score %.0f (%s). %s\n", r.Concentration.Score, riskLevelText(output, r.Concentration.Level), r.Concentration.Interpretation)
	output.Println()

	section.Fprintln(output.Writer(), "Heat map (weakest first)")
	heat := NewTable(output, "  ID", "SYMBOL", "SCORE", "GRADE", "WEAKEST", "P&L%", "STATUS")
	for _, h := range r.HeatMap {
		heat.AddRow(
			"  "+h.PositionID,
			h.Symbol,
			fmt.Sprintf("%.0f", h.Score),
			output.GradeText(h.Grade),
			h.Weakest,
			output.FormatPercent(h.PnLPercent),
			output.StatusText(h.Status),
		)
	}
	heat.Render()
	output.Println()

	section.Fprintln(output.Writer(), "Next trade")
	if r.Sizing.CanAdd {
		output.Printf("  Room for more: %d of %d positions open\n", r.Sizing.OpenPositions, r.Sizing.MaxRecommended)
	} else {
		output.Printf("  %s (%d of %d positions open)\n", output.Red("Do not add"), r.Sizing.OpenPositions, r.Sizing.MaxRecommended)
	}
	output.Printf("  Risk budget left: %.1f%% of capital\n", r.Sizing.RemainingBudgetPct)
	output.Printf("  Suggested size:   %.1f%% of capital, max %s at risk\n", r.Sizing.RecommendedSizePct, utils.FormatMoney(r.Sizing.MaxRiskPerTrade))
	for _, f := range r.Sizing.Factors {
		output.Printf("    - %s\n", f)
	}

	if len(r.Warnings) > 0 {
		output.Println()
		for _, w := range r.Warnings {
			output.Warning("  ! %s", w)
		}
	}
	if len(r.Recommendations) > 0 {
		output.Println()
		section.Fprintln(output.Writer(), "Recommendations")
		for _, rec := range r.Recommendations {
			output.Printf("  - %s\n", rec)
		}
	}
}

func riskLevelText(output *Output, level portfolio.RiskLevel) string {
	switch level {
	case portfolio.RiskCritical, portfolio.RiskHigh:
		return output.Red(string(level))
	case portfolio.RiskElevated, portfolio.RiskModerate:
		return output.Yellow(string(level))
	default:
		return output.Green(string(level))
	}
}
