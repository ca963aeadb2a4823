package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# optionguard configuration

[engine]
# Risk-free rate used in the Greeks model
risk_free_rate = 0.05
# Fallback implied volatility when the feed has none
default_iv = 0.35
# Profit-taking tiers as P&L percent of the option premium
t1_threshold_pct = 50.0
t2_threshold_pct = 100.0
# Tranche sizes (percent of contracts) sold at T1, T2, and held as the runner
t1_sell_percent = 50.0
t2_sell_percent = 25.0
runner_percent = 25.0
# Move the stop to breakeven once P&L reaches this percent
breakeven_trigger_pct = 30.0
# Breakeven stop sits entry +/- this many ATRs
breakeven_offset_atr = 0.25
# Start the ATR trail once P&L reaches this percent
atr_trail_trigger_pct = 20.0
atr_trail_multiple = 2.0
runner_trail_multiple = 1.0
# Runner extended target sits this many ATRs beyond the plan target
extended_target_atr = 0.75
# Close the runner when DTE falls below this floor
runner_min_dte = 7
# DTE levels for warnings
dte_warning = 14
dte_critical = 7
# ATR fallback as percent of spot when no history is available
atr_fallback_pct = 1.5
# Minimum IV history points for a meaningful IV rank
min_iv_history_points = 20

[gateway]
provider = "polygon"
base_url = "https://api.polygon.io"
timeout_seconds = 10
# Requests per second and burst for the rate limiter
rate_limit = 5.0
rate_burst = 5
# Days of daily candles fetched for technical context
history_days = 100
# Days of IV history fetched for IV rank
iv_history_days = 252

[store]
# SQLite database path; empty means ~/.config/optionguard/optionguard.db
db_path = ""

[logging]
level = "info"
console = true
file = true
# Log file path; empty means ~/.config/optionguard/logs/optionguard.log
file_path = ""
max_size = 100
max_backups = 7
max_age = 30

[monitor]
# Minutes between automatic update cycles
interval_minutes = 15
# Skip cycles outside US market hours
market_hours_only = true
# Positions updated in parallel per cycle
concurrency = 4

[portfolio]
# Account capital used for capital-at-risk and sizing calculations
total_capital = 100000.0

[ui]
color_enabled = true
date_format = "02-Jan-2006"
time_format = "15:04:05"
`

const credentialsTemplate = `# optionguard credentials
# WARNING: Keep this file secure! Do not commit to version control.
# The POLYGON_API_KEY environment variable overrides this file.

[polygon]
api_key = ""
`

func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return fmt.Errorf("config file not found, created template at %s", path)
}

// CreateConfigTemplate writes the default config.toml if none exists and
// returns its path. Existing files are never overwritten.
func CreateConfigTemplate(configDir string) (string, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return "", fmt.Errorf("writing config template: %w", err)
	}

	return path, nil
}

// CreateCredentialsTemplate writes the credentials template if none exists.
// Called by the config init command rather than on every load since the
// API key usually arrives via the environment.
func CreateCredentialsTemplate(configDir string) (string, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	// Restricted permissions for credentials file
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return "", fmt.Errorf("writing credentials template: %w", err)
	}

	return path, nil
}
