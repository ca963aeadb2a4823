package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"optionguard/pkg/utils"
)

// checkStatus grades one doctor check.
type checkStatus string

const (
	checkHealthy   checkStatus = "HEALTHY"
	checkDegraded  checkStatus = "DEGRADED"
	checkUnhealthy checkStatus = "UNHEALTHY"
)

// checkResult is the outcome of one doctor check.
type checkResult struct {
	Name    string        `json:"name"`
	Status  checkStatus   `json:"status"`
	Message string        `json:"message"`
	Latency time.Duration `json:"latency"`
}

// probeSymbol is a liquid ticker used to exercise the quote path.
const probeSymbol = "SPY"

// newDoctorCmd creates the doctor command: one-shot health checks across
// config, storage, the market data gateway, and the market clock.
func newDoctorCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, storage, and market data health",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			results := []checkResult{
				app.checkConfig(),
				app.checkStore(ctx),
				app.checkGateway(ctx),
				checkMarketClock(),
			}

			overall := checkHealthy
			unhealthy := 0
			for _, r := range results {
				switch r.Status {
				case checkUnhealthy:
					overall = checkUnhealthy
					unhealthy++
				case checkDegraded:
					if overall == checkHealthy {
						overall = checkDegraded
					}
				}
			}

			if output.IsJSON() {
				if err := output.JSON(struct {
					Status checkStatus   `json:"status"`
					Checks []checkResult `json:"checks"`
				}{overall, results}); err != nil {
					return err
				}
			} else {
				renderDoctor(output, overall, results)
			}

			if unhealthy > 0 {
				return fmt.Errorf("%d of %d checks unhealthy", unhealthy, len(results))
			}
			return nil
		},
	}
}

func (a *App) checkConfig() checkResult {
	r := checkResult{Name: "config"}
	if a.Config.APIKey() == "" {
		r.Status = checkDegraded
		r.Message = "no Polygon API key, live data disabled"
		return r
	}
	r.Status = checkHealthy
	r.Message = "API key configured"
	return r
}

func (a *App) checkStore(ctx context.Context) checkResult {
	r := checkResult{Name: "store"}
	if a.Store == nil {
		r.Status = checkUnhealthy
		r.Message = fmt.Sprintf("position store unavailable at %s", a.Config.Store.DBPath)
		return r
	}

	start := time.Now()
	positions, err := a.Store.LoadAll(ctx)
	r.Latency = time.Since(start)

	if err != nil {
		r.Status = checkUnhealthy
		r.Message = fmt.Sprintf("query failed: %v", err)
		return r
	}
	if r.Latency > 100*time.Millisecond {
		r.Status = checkDegraded
		r.Message = fmt.Sprintf("store slow: %s", r.Latency.Round(time.Millisecond))
		return r
	}
	r.Status = checkHealthy
	r.Message = fmt.Sprintf("%d open position(s)", len(positions))
	return r
}

func (a *App) checkGateway(ctx context.Context) checkResult {
	r := checkResult{Name: "gateway"}
	if a.Gateway == nil {
		r.Status = checkDegraded
		r.Message = "no market data gateway configured"
		return r
	}

	start := time.Now()
	snap, err := a.Gateway.GetStockSnapshot(ctx, probeSymbol)
	r.Latency = time.Since(start)

	if err != nil {
		r.Status = checkUnhealthy
		r.Message = fmt.Sprintf("quote failed: %v", err)
		return r
	}
	if r.Latency > 2*time.Second {
		r.Status = checkDegraded
		r.Message = fmt.Sprintf("gateway slow: %s", r.Latency.Round(time.Millisecond))
		return r
	}
	r.Status = checkHealthy
	r.Message = fmt.Sprintf("%s at $%.2f in %s", probeSymbol, snap.Price, r.Latency.Round(time.Millisecond))
	return r
}

func checkMarketClock() checkResult {
	r := checkResult{Name: "market", Status: checkHealthy}
	now := time.Now()
	switch status := utils.GetMarketStatus(); status {
	case utils.MarketOpen:
		r.Message = fmt.Sprintf("OPEN, closes in %s", utils.TimeUntilMarketClose(now).Round(time.Minute))
	default:
		r.Message = fmt.Sprintf("%s, next open %s", status,
			utils.NextMarketOpen(now).Format("Mon Jan 2 15:04 MST"))
	}
	return r
}

func renderDoctor(output *Output, overall checkStatus, results []checkResult) {
	for _, r := range results {
		line := fmt.Sprintf("%-8s %s", r.Name, r.Message)
		if r.Latency > 0 && r.Status != checkHealthy {
			line = fmt.Sprintf("%s (%s)", line, r.Latency.Round(time.Millisecond))
		}
		switch r.Status {
		case checkHealthy:
			output.Printf("  %s  %s\n", output.Green("ok"), line)
		case checkDegraded:
			output.Printf("  %s  %s\n", output.Yellow("--"), line)
		default:
			output.Printf("  %s  %s\n", output.Red("!!"), line)
		}
	}
	output.Println()

	switch overall {
	case checkHealthy:
		output.Success("All checks passed")
	case checkDegraded:
		output.Warning("Degraded: optionguard works, but some features are limited")
	default:
		output.Error("Unhealthy: fix the failing checks above")
	}
}
