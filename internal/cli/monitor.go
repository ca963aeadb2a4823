package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"optionguard/internal/errors"
	"optionguard/internal/monitor"
	"optionguard/internal/notify"
	"optionguard/pkg/utils"
)

// addMonitorCommands adds the continuous monitoring command.
func addMonitorCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newMonitorCmd(app))
}

func newMonitorCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Watch all positions and announce alerts as they fire",
		Long: `Run update cycles on an interval and print alerts, warnings, and status
transitions to the terminal as they happen. Identical alerts are suppressed
for the cooldown window so a breached stop does not repeat every cycle.

Stops cleanly on Ctrl+C.`,
		Example: `  optionguard monitor
  optionguard monitor --interval 5m
  optionguard monitor --once`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			eng, err := app.requireEngine()
			if err != nil {
				return err
			}
			if err := app.requireGateway(); err != nil {
				return err
			}

			interval, _ := cmd.Flags().GetDuration("interval")
			cooldown, _ := cmd.Flags().GetDuration("cooldown")
			once, _ := cmd.Flags().GetBool("once")

			term := notify.NewTerminal(cmd.OutOrStdout(), app.Logger)
			notifier := notify.NewDedup(term, cooldown)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			term.Start(ctx)

			mon := monitor.New(eng, notifier, app.Config, app.Logger)
			mon.SetInterval(interval)

			if once {
				mon.RunOnce(ctx)
				return nil
			}

			effective := app.Config.MonitorInterval()
			if interval > 0 {
				effective = interval
			}
			output.Info("Monitoring every %s (market %s). Ctrl+C to stop.",
				effective, utils.GetMarketStatus())

			if err := mon.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			output.Println()
			output.Println("Monitor stopped.")
			return nil
		},
	}

	cmd.Flags().Duration("interval", 0, "override the update interval (e.g. 5m)")
	cmd.Flags().Duration("cooldown", 30*time.Minute, "suppress identical alerts within this window")
	cmd.Flags().Bool("once", false, "run a single cycle and exit")

	return cmd
}
