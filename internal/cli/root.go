// Package cli implements the optionguard command-line interface.
package cli

import (
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"optionguard/internal/config"
	"optionguard/internal/engine"
	"optionguard/internal/errors"
	"optionguard/internal/gateway"
	"optionguard/internal/logging"
	"optionguard/internal/store"
	"optionguard/pkg/utils"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2025-08-01"
)

// App holds the application dependencies.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Store   store.PositionStore
	Gateway gateway.Gateway
	Engine  *engine.Engine
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Open the position store. Commands that need it check app.Engine.
	st, err := store.NewSQLiteStore(cfg.Store.DBPath)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.Store.DBPath).Msg("Failed to open position store, position commands will be unavailable")
	} else {
		app.Store = st
		logger.Debug().Str("path", cfg.Store.DBPath).Msg("Position store opened")
	}

	// Initialize the market data gateway if an API key is available.
	// Position bookkeeping works without one; live updates do not.
	if key := cfg.APIKey(); key != "" {
		client := gateway.NewPolygonClient(gateway.PolygonConfig{
			APIKey:        key,
			BaseURL:       cfg.Gateway.BaseURL,
			Timeout:       cfg.GatewayTimeout(),
			RateLimit:     cfg.Gateway.RateLimit,
			RateBurst:     cfg.Gateway.RateBurst,
			HistoryDays:   cfg.Gateway.HistoryDays,
			IVHistoryDays: cfg.Gateway.IVHistoryDays,
		}, logger)
		app.Gateway = gateway.NewCachedGateway(client, gateway.DefaultCacheConfig(), logger)
		logger.Debug().Str("provider", cfg.Gateway.Provider).Msg("Market data gateway initialized")
	} else {
		logger.Debug().Msg("No Polygon API key configured, live data disabled")
	}

	if app.Store != nil {
		app.Engine = engine.New(app.Gateway, app.Store, cfg, logger)
	}

	rootCmd := &cobra.Command{
		Use:   "optionguard",
		Short: "Options position risk monitor and decision engine",
		Long: `Optionguard tracks open long option positions and turns each market
snapshot into a concrete recommendation: hold, take profits, tighten the
stop, roll, or exit.

Positions are stored locally. Live quotes and greeks come from Polygon.io
when an API key is configured (credentials.toml or POLYGON_API_KEY).

Start with 'optionguard config init', then 'optionguard add' your first
position and 'optionguard update --all' to evaluate the book.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			noColor, _ := cmd.Flags().GetBool("no-color")
			if noColor || !cfg.UI.ColorEnabled {
				color.NoColor = true
				if !noColor {
					_ = cmd.Root().PersistentFlags().Set("no-color", "true")
				}
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/optionguard)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")

	addPositionCommands(rootCmd, app)
	addPortfolioCommands(rootCmd, app)
	addMonitorCommands(rootCmd, app)
	addExportCommands(rootCmd, app)
	addCoreCommands(rootCmd, app)

	return rootCmd
}

// requireEngine returns the engine or an error when the store failed to open.
func (a *App) requireEngine() (*engine.Engine, error) {
	if a.Engine == nil {
		return nil, errors.Wrapf(errors.ErrNotConfigured, "position store unavailable at %s", a.Config.Store.DBPath)
	}
	return a.Engine, nil
}

// requireGateway errors when no market data provider is configured.
func (a *App) requireGateway() error {
	if a.Gateway == nil {
		return errors.Wrap(errors.ErrNotConfigured, "no market data gateway, set POLYGON_API_KEY or run 'optionguard config init'")
	}
	return nil
}

// addCoreCommands adds version, config, and doctor commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newDoctorCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("optionguard v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "Create and inspect configuration files.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create config and credentials templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			configDir, _ := cmd.Flags().GetString("config")

			configPath, err := config.CreateConfigTemplate(configDir)
			if err != nil {
				return err
			}
			credsPath, err := config.CreateCredentialsTemplate(configDir)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{
					"config":      configPath,
					"credentials": credsPath,
				})
			}
			output.Success("Config template:      %s", configPath)
			output.Success("Credentials template: %s", credsPath)
			output.Println()
			output.Println("Add your Polygon API key to credentials.toml or export POLYGON_API_KEY.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Engine")
	output.Printf("  Risk-free rate:   %.2f%%\n", cfg.Engine.RiskFreeRate*100)
	output.Printf("  Profit tiers:     T1 +%.0f%% sell %.0f%%, T2 +%.0f%% sell %.0f%%, runner %.0f%%\n",
		cfg.Engine.T1ThresholdPct, cfg.Engine.T1SellPercent,
		cfg.Engine.T2ThresholdPct, cfg.Engine.T2SellPercent,
		cfg.Engine.RunnerPercent)
	output.Printf("  DTE thresholds:   warn %dd, critical %dd\n", cfg.Engine.DTEWarning, cfg.Engine.DTECritical)
	output.Printf("  ATR trail:        %.1fx after +%.0f%%\n", cfg.Engine.ATRTrailMultiple, cfg.Engine.ATRTrailTriggerPct)
	output.Println()

	output.Bold("Gateway")
	output.Printf("  Provider:         %s\n", cfg.Gateway.Provider)
	output.Printf("  Base URL:         %s\n", cfg.Gateway.BaseURL)
	output.Printf("  Timeout:          %s\n", cfg.GatewayTimeout())
	output.Printf("  Rate limit:       %.1f req/s (burst %d)\n", cfg.Gateway.RateLimit, cfg.Gateway.RateBurst)
	output.Printf("  History window:   %dd prices, %dd IV\n", cfg.Gateway.HistoryDays, cfg.Gateway.IVHistoryDays)
	if cfg.APIKey() != "" {
		output.Printf("  API key:          %s\n", output.Green("configured"))
	} else {
		output.Printf("  API key:          %s\n", output.Red("not set"))
	}
	output.Println()

	output.Bold("Store")
	output.Printf("  Database:         %s\n", cfg.Store.DBPath)
	output.Println()

	output.Bold("Monitor")
	output.Printf("  Interval:         %s\n", cfg.MonitorInterval())
	output.Printf("  Market hours:     %v\n", cfg.Monitor.MarketHoursOnly)
	output.Printf("  Concurrency:      %d\n", cfg.Monitor.Concurrency)
	output.Println()

	output.Bold("Portfolio")
	output.Printf("  Total capital:    %s\n", utils.FormatMoney(cfg.Portfolio.TotalCapital))
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:            %s\n", cfg.Logging.Level)
	output.Printf("  File:             %s\n", cfg.Logging.FilePath)
}
