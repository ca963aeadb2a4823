// Package config provides configuration management for the position manager.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Engine      EngineConfig    `mapstructure:"engine"`
	Gateway     GatewayConfig   `mapstructure:"gateway"`
	Store       StoreConfig     `mapstructure:"store"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	Monitor     MonitorConfig   `mapstructure:"monitor"`
	Portfolio   PortfolioConfig `mapstructure:"portfolio"`
	UI          UIConfig        `mapstructure:"ui"`
	Credentials Credentials     `mapstructure:"-"` // Loaded separately
}

// EngineConfig holds the risk and decision policy parameters.
type EngineConfig struct {
	RiskFreeRate        float64 `mapstructure:"risk_free_rate"`
	DefaultIV           float64 `mapstructure:"default_iv"`
	T1ThresholdPct      float64 `mapstructure:"t1_threshold_pct"`
	T2ThresholdPct      float64 `mapstructure:"t2_threshold_pct"`
	T1SellPercent       float64 `mapstructure:"t1_sell_percent"`
	T2SellPercent       float64 `mapstructure:"t2_sell_percent"`
	RunnerPercent       float64 `mapstructure:"runner_percent"`
	BreakevenTriggerPct float64 `mapstructure:"breakeven_trigger_pct"`
	BreakevenOffsetATR  float64 `mapstructure:"breakeven_offset_atr"`
	ATRTrailTriggerPct  float64 `mapstructure:"atr_trail_trigger_pct"`
	ATRTrailMultiple    float64 `mapstructure:"atr_trail_multiple"`
	RunnerTrailMultiple float64 `mapstructure:"runner_trail_multiple"`
	ExtendedTargetATR   float64 `mapstructure:"extended_target_atr"`
	RunnerMinDTE        int     `mapstructure:"runner_min_dte"`
	DTEWarning          int     `mapstructure:"dte_warning"`
	DTECritical         int     `mapstructure:"dte_critical"`
	ATRFallbackPct      float64 `mapstructure:"atr_fallback_pct"`
	MinIVHistoryPoints  int     `mapstructure:"min_iv_history_points"`
}

// GatewayConfig holds market data gateway configuration.
type GatewayConfig struct {
	Provider       string  `mapstructure:"provider"`
	BaseURL        string  `mapstructure:"base_url"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	RateLimit      float64 `mapstructure:"rate_limit"` // requests per second
	RateBurst      int     `mapstructure:"rate_burst"`
	HistoryDays    int     `mapstructure:"history_days"`
	IVHistoryDays  int     `mapstructure:"iv_history_days"`
}

// StoreConfig holds persistence configuration.
type StoreConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// MonitorConfig holds the periodic update loop configuration.
type MonitorConfig struct {
	IntervalMinutes int  `mapstructure:"interval_minutes"`
	MarketHoursOnly bool `mapstructure:"market_hours_only"`
	Concurrency     int  `mapstructure:"concurrency"`
}

// PortfolioConfig holds account-level parameters used by the portfolio
// risk rollup.
type PortfolioConfig struct {
	TotalCapital float64 `mapstructure:"total_capital"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
	TimeFormat   string `mapstructure:"time_format"`
}

// Credentials holds API credentials.
type Credentials struct {
	Polygon PolygonCredentials `mapstructure:"polygon"`
}

// PolygonCredentials holds Polygon.io API credentials.
type PolygonCredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	if dir := os.Getenv("OPTIONGUARD_CONFIG"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/optionguard"
	}
	return filepath.Join(home, ".config", "optionguard")
}

// Default returns a configuration populated with the documented policy
// defaults, as if an empty config file had been loaded.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	// Load main config
	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	// Load credentials
	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	// Load .env if present so POLYGON_API_KEY can live there during development
	_ = godotenv.Load()

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Fill policy defaults for anything the file left at zero
	cfg.applyDefaults()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, create template
			return createTemplateConfig(configDir, name)
		}
		return err
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Credentials may come entirely from the environment
			return nil
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("POLYGON_API_KEY"); v != "" {
		cfg.Credentials.Polygon.APIKey = v
	}
	if v := os.Getenv("OPTIONGUARD_DB"); v != "" {
		cfg.Store.DBPath = v
	}
	if v := os.Getenv("OPTIONGUARD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// applyDefaults fills unset fields with the documented policy defaults.
func (c *Config) applyDefaults() {
	if c.Engine.RiskFreeRate == 0 {
		c.Engine.RiskFreeRate = 0.05
	}
	if c.Engine.DefaultIV == 0 {
		c.Engine.DefaultIV = 0.35
	}
	if c.Engine.T1ThresholdPct == 0 {
		c.Engine.T1ThresholdPct = 50
	}
	if c.Engine.T2ThresholdPct == 0 {
		c.Engine.T2ThresholdPct = 100
	}
	if c.Engine.T1SellPercent == 0 {
		c.Engine.T1SellPercent = 50
	}
	if c.Engine.T2SellPercent == 0 {
		c.Engine.T2SellPercent = 25
	}
	if c.Engine.RunnerPercent == 0 {
		c.Engine.RunnerPercent = 25
	}
	if c.Engine.BreakevenTriggerPct == 0 {
		c.Engine.BreakevenTriggerPct = 30
	}
	if c.Engine.BreakevenOffsetATR == 0 {
		c.Engine.BreakevenOffsetATR = 0.25
	}
	if c.Engine.ATRTrailTriggerPct == 0 {
		c.Engine.ATRTrailTriggerPct = 20
	}
	if c.Engine.ATRTrailMultiple == 0 {
		c.Engine.ATRTrailMultiple = 2.0
	}
	if c.Engine.RunnerTrailMultiple == 0 {
		c.Engine.RunnerTrailMultiple = 1.0
	}
	if c.Engine.ExtendedTargetATR == 0 {
		c.Engine.ExtendedTargetATR = 0.75
	}
	if c.Engine.RunnerMinDTE == 0 {
		c.Engine.RunnerMinDTE = 7
	}
	if c.Engine.DTEWarning == 0 {
		c.Engine.DTEWarning = 14
	}
	if c.Engine.DTECritical == 0 {
		c.Engine.DTECritical = 7
	}
	if c.Engine.ATRFallbackPct == 0 {
		c.Engine.ATRFallbackPct = 1.5
	}
	if c.Engine.MinIVHistoryPoints == 0 {
		c.Engine.MinIVHistoryPoints = 20
	}

	if c.Gateway.Provider == "" {
		c.Gateway.Provider = "polygon"
	}
	if c.Gateway.BaseURL == "" {
		c.Gateway.BaseURL = "https://api.polygon.io"
	}
	if c.Gateway.TimeoutSeconds == 0 {
		c.Gateway.TimeoutSeconds = 10
	}
	if c.Gateway.RateLimit == 0 {
		c.Gateway.RateLimit = 5
	}
	if c.Gateway.RateBurst == 0 {
		c.Gateway.RateBurst = 5
	}
	if c.Gateway.HistoryDays == 0 {
		c.Gateway.HistoryDays = 100
	}
	if c.Gateway.IVHistoryDays == 0 {
		c.Gateway.IVHistoryDays = 252
	}

	if c.Store.DBPath == "" {
		c.Store.DBPath = filepath.Join(DefaultConfigDir(), "optionguard.db")
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = filepath.Join(DefaultConfigDir(), "logs", "optionguard.log")
	}
	if c.Logging.MaxSize == 0 {
		c.Logging.MaxSize = 100
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 7
	}
	if c.Logging.MaxAge == 0 {
		c.Logging.MaxAge = 30
	}

	if c.Monitor.IntervalMinutes == 0 {
		c.Monitor.IntervalMinutes = 15
	}
	if c.Monitor.Concurrency == 0 {
		c.Monitor.Concurrency = 4
	}

	if c.Portfolio.TotalCapital == 0 {
		c.Portfolio.TotalCapital = 100000
	}

	if c.UI.DateFormat == "" {
		c.UI.DateFormat = "02-Jan-2006"
	}
	if c.UI.TimeFormat == "" {
		c.UI.TimeFormat = "15:04:05"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Engine.RiskFreeRate < 0 || c.Engine.RiskFreeRate > 0.25 {
		return fmt.Errorf("risk_free_rate must be between 0 and 0.25")
	}
	if c.Engine.DefaultIV <= 0 || c.Engine.DefaultIV > 5 {
		return fmt.Errorf("default_iv must be between 0 and 5")
	}
	if c.Engine.T1ThresholdPct <= 0 || c.Engine.T2ThresholdPct <= c.Engine.T1ThresholdPct {
		return fmt.Errorf("profit tiers must satisfy 0 < t1_threshold_pct < t2_threshold_pct")
	}
	if sum := c.Engine.T1SellPercent + c.Engine.T2SellPercent + c.Engine.RunnerPercent; sum < 99.9 || sum > 100.1 {
		return fmt.Errorf("tranche percentages must sum to 100, got %.1f", sum)
	}
	if c.Engine.ATRTrailMultiple <= 0 || c.Engine.RunnerTrailMultiple <= 0 {
		return fmt.Errorf("ATR trail multiples must be positive")
	}
	if c.Engine.RunnerMinDTE < 0 {
		return fmt.Errorf("runner_min_dte must be non-negative")
	}
	if c.Engine.DTECritical >= c.Engine.DTEWarning {
		return fmt.Errorf("dte_critical must be below dte_warning")
	}
	if c.Gateway.RateLimit <= 0 || c.Gateway.RateBurst <= 0 {
		return fmt.Errorf("gateway rate limit and burst must be positive")
	}
	if c.Monitor.IntervalMinutes <= 0 {
		return fmt.Errorf("monitor interval_minutes must be positive")
	}
	if c.Monitor.Concurrency <= 0 {
		return fmt.Errorf("monitor concurrency must be positive")
	}
	if c.Portfolio.TotalCapital <= 0 {
		return fmt.Errorf("portfolio total_capital must be positive")
	}
	return nil
}

// GatewayTimeout returns the per-call gateway timeout.
func (c *Config) GatewayTimeout() time.Duration {
	return time.Duration(c.Gateway.TimeoutSeconds) * time.Second
}

// MonitorInterval returns the monitor cycle interval.
func (c *Config) MonitorInterval() time.Duration {
	return time.Duration(c.Monitor.IntervalMinutes) * time.Minute
}

// APIKey returns the configured market data API key.
func (c *Config) APIKey() string {
	return c.Credentials.Polygon.APIKey
}
