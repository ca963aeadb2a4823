package cli

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"optionguard/internal/models"
	"optionguard/internal/store"
)

// addExportCommands adds the CSV export command.
func addExportCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newExportCmd(app))
}

func newExportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export positions as CSV",
		Long: `Write the open book as flat summary rows, one position per line, or the
closed-trade archive with --closed. Without --output the CSV goes to stdout.`,
		Example: `  optionguard export -o positions.csv
  optionguard export --closed --symbol AAPL -o aapl_trades.csv
  optionguard export | column -t -s,`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			eng, err := app.requireEngine()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			path, _ := cmd.Flags().GetString("output")
			closed, _ := cmd.Flags().GetBool("closed")
			symbol, _ := cmd.Flags().GetString("symbol")

			w := cmd.OutOrStdout()
			if path != "" {
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			var count int
			if closed {
				rows, err := eng.Closed(ctx, store.ClosedFilter{Symbol: strings.ToUpper(symbol)})
				if err != nil {
					return err
				}
				if err := gocsv.Marshal(&rows, w); err != nil {
					return err
				}
				count = len(rows)
			} else {
				positions, err := eng.List(ctx)
				if err != nil {
					return err
				}
				summaries := make([]models.Summary, 0, len(positions))
				for _, p := range positions {
					summaries = append(summaries, models.BuildSummary(p))
				}
				if err := gocsv.Marshal(&summaries, w); err != nil {
					return err
				}
				count = len(summaries)
			}

			if path != "" {
				output.Success("Exported %d rows to %s", count, path)
			}
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "write to file instead of stdout")
	cmd.Flags().Bool("closed", false, "export the closed-trade archive instead")
	cmd.Flags().String("symbol", "", "filter closed trades by symbol")

	return cmd
}
