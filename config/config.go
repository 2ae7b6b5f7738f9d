package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	FeedConfig       FeedConfig       `json:"feed"`
	InstrumentConfig InstrumentConfig `json:"instrument"`
	StrategyConfig   StrategyConfig   `json:"strategy"`
	PaperConfig      PaperConfig      `json:"paper"`
	ServerConfig     ServerConfig     `json:"server"`
	AuthConfig       AuthConfig       `json:"auth"`
	VaultConfig      VaultConfig      `json:"vault"`
	RecorderConfig   RecorderConfig   `json:"recorder"`
	RedisConfig      RedisConfig      `json:"redis"`
	LoggingConfig    LoggingConfig    `json:"logging"`
}

// FeedConfig holds market data feed configuration
type FeedConfig struct {
	WebSocketURL   string `json:"websocket_url"`
	RestURL        string `json:"rest_url"`
	Symbol         string `json:"symbol"`
	Interval       string `json:"interval"`        // trading timeframe, e.g. "15m"
	HourlyInterval string `json:"hourly_interval"` // anchor timeframe, e.g. "1h"
	BackfillLimit  int    `json:"backfill_limit"`  // bars of history per series
	APIKey         string `json:"api_key"`
	SecretKey      string `json:"secret_key"`
}

// InstrumentConfig describes the traded symbol's pricing and volume limits
type InstrumentConfig struct {
	TickSize   float64 `json:"tick_size"`
	PipSize    float64 `json:"pip_size"`
	PipValue   float64 `json:"pip_value"` // per lot, account currency
	LotSize    float64 `json:"lot_size"`  // units per lot
	VolumeStep float64 `json:"volume_step"`
	VolumeMin  float64 `json:"volume_min"`
	VolumeMax  float64 `json:"volume_max"`
}

// StrategyConfig holds the structure analysis and trade parameters
type StrategyConfig struct {
	SwingLookback      int     `json:"swing_lookback"`
	H1ZigZagDepth      int     `json:"h1_zigzag_depth"`
	H1ZigZagDeviation  float64 `json:"h1_zigzag_deviation"` // ticks
	H1ZigZagBackstep   int     `json:"h1_zigzag_backstep"`
	RiskPercent        float64 `json:"risk_percent"`
	StopLossBufferPips float64 `json:"stop_loss_buffer_pips"`
	MinStopLossPips    float64 `json:"min_stop_loss_pips"`
	MinTakeProfitPips  float64 `json:"min_take_profit_pips"`
	TakeProfitRR       float64 `json:"take_profit_rr"`
	MaxTradesPerDay    int     `json:"max_trades_per_day"`
	MaxOpenPositions   int     `json:"max_open_positions"`
}

// PaperConfig holds the simulated account configuration
type PaperConfig struct {
	StartingBalance float64 `json:"starting_balance"`
	Currency        string  `json:"currency"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Enabled         bool   `json:"enabled"`
	Port            int    `json:"port"`
	Host            string `json:"host"`
	AllowedOrigins  string `json:"allowed_origins"` // CORS allowed origins
	ReadTimeout     int    `json:"read_timeout"`    // Seconds
	WriteTimeout    int    `json:"write_timeout"`   // Seconds
	ShutdownTimeout int    `json:"shutdown_timeout"`
}

// AuthConfig holds authentication configuration for the API
type AuthConfig struct {
	Enabled             bool          `json:"enabled"`
	JWTSecret           string        `json:"jwt_secret"`
	AccessTokenDuration time.Duration `json:"access_token_duration"`
	Username            string        `json:"username"`
	PasswordHash        string        `json:"password_hash"` // bcrypt
}

// VaultConfig holds HashiCorp Vault configuration
type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`  // KV secrets engine mount path
	SecretPath string `json:"secret_path"` // Path for feed credentials
}

// RecorderConfig holds the signal/trade history sink configuration
type RecorderConfig struct {
	Enabled     bool   `json:"enabled"`
	DatabaseURL string `json:"database_url"`
}

// RedisConfig holds the snapshot publisher configuration
type RedisConfig struct {
	Enabled     bool   `json:"enabled"`
	Address     string `json:"address"`
	Password    string `json:"password"`
	DB          int    `json:"db"`
	SnapshotTTL int    `json:"snapshot_ttl"` // Seconds
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Level  string `json:"level"`  // trace, debug, info, warn, error
	Format string `json:"format"` // "console" or "json"
}

func Load() (*Config, error) {
	// First try to load base config from file
	cfg, err := loadFromFile("config.json")
	if err != nil {
		// If no config file, start with empty config
		cfg = &Config{}
	}

	// Apply environment variable overrides (these take precedence)
	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	// Feed config
	cfg.FeedConfig.WebSocketURL = getEnvOrDefault("FEED_WS_URL", cfg.FeedConfig.WebSocketURL)
	cfg.FeedConfig.RestURL = getEnvOrDefault("FEED_REST_URL", cfg.FeedConfig.RestURL)
	cfg.FeedConfig.Symbol = getEnvOrDefault("FEED_SYMBOL", cfg.FeedConfig.Symbol)
	cfg.FeedConfig.Interval = getEnvOrDefault("FEED_INTERVAL", cfg.FeedConfig.Interval)
	cfg.FeedConfig.HourlyInterval = getEnvOrDefault("FEED_HOURLY_INTERVAL", cfg.FeedConfig.HourlyInterval)
	cfg.FeedConfig.APIKey = getEnvOrDefault("FEED_API_KEY", cfg.FeedConfig.APIKey)
	cfg.FeedConfig.SecretKey = getEnvOrDefault("FEED_SECRET_KEY", cfg.FeedConfig.SecretKey)

	// Server config
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", cfg.ServerConfig.Port)
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", cfg.ServerConfig.Host)
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", cfg.ServerConfig.AllowedOrigins)

	// Auth config
	if v := os.Getenv("AUTH_ENABLED"); v != "" {
		cfg.AuthConfig.Enabled = v == "true"
	}
	cfg.AuthConfig.JWTSecret = getEnvOrDefault("AUTH_JWT_SECRET", cfg.AuthConfig.JWTSecret)
	cfg.AuthConfig.Username = getEnvOrDefault("AUTH_USERNAME", cfg.AuthConfig.Username)
	cfg.AuthConfig.PasswordHash = getEnvOrDefault("AUTH_PASSWORD_HASH", cfg.AuthConfig.PasswordHash)
	cfg.AuthConfig.AccessTokenDuration = getEnvDurationOrDefault("AUTH_ACCESS_TOKEN_DURATION", cfg.AuthConfig.AccessTokenDuration)

	// Vault config
	if v := os.Getenv("VAULT_ENABLED"); v != "" {
		cfg.VaultConfig.Enabled = v == "true"
	}
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", cfg.VaultConfig.Address)
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", cfg.VaultConfig.MountPath)
	cfg.VaultConfig.SecretPath = getEnvOrDefault("VAULT_SECRET_PATH", cfg.VaultConfig.SecretPath)

	// Recorder config
	if v := os.Getenv("RECORDER_ENABLED"); v != "" {
		cfg.RecorderConfig.Enabled = v == "true"
	}
	cfg.RecorderConfig.DatabaseURL = getEnvOrDefault("DATABASE_URL", cfg.RecorderConfig.DatabaseURL)

	// Redis config
	if v := os.Getenv("REDIS_ENABLED"); v != "" {
		cfg.RedisConfig.Enabled = v == "true"
	}
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDR", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	cfg.LoggingConfig.Format = getEnvOrDefault("LOG_FORMAT", cfg.LoggingConfig.Format)
}

func applyDefaults(cfg *Config) {
	if cfg.FeedConfig.WebSocketURL == "" {
		cfg.FeedConfig.WebSocketURL = "wss://stream.binance.com:9443"
	}
	if cfg.FeedConfig.RestURL == "" {
		cfg.FeedConfig.RestURL = "https://api.binance.com"
	}
	if cfg.FeedConfig.Symbol == "" {
		cfg.FeedConfig.Symbol = "EURUSDT"
	}
	if cfg.FeedConfig.Interval == "" {
		cfg.FeedConfig.Interval = "15m"
	}
	if cfg.FeedConfig.HourlyInterval == "" {
		cfg.FeedConfig.HourlyInterval = "1h"
	}
	if cfg.FeedConfig.BackfillLimit <= 0 {
		cfg.FeedConfig.BackfillLimit = 500
	}

	if cfg.InstrumentConfig.TickSize == 0 {
		cfg.InstrumentConfig.TickSize = 0.00001
	}
	if cfg.InstrumentConfig.PipSize == 0 {
		cfg.InstrumentConfig.PipSize = 0.0001
	}
	if cfg.InstrumentConfig.PipValue == 0 {
		cfg.InstrumentConfig.PipValue = 10
	}
	if cfg.InstrumentConfig.LotSize == 0 {
		cfg.InstrumentConfig.LotSize = 100000
	}
	if cfg.InstrumentConfig.VolumeStep == 0 {
		cfg.InstrumentConfig.VolumeStep = 1000
	}
	if cfg.InstrumentConfig.VolumeMin == 0 {
		cfg.InstrumentConfig.VolumeMin = 1000
	}

	if cfg.StrategyConfig.SwingLookback <= 0 {
		cfg.StrategyConfig.SwingLookback = 5
	}
	if cfg.StrategyConfig.H1ZigZagDepth <= 0 {
		cfg.StrategyConfig.H1ZigZagDepth = 12
	}
	if cfg.StrategyConfig.H1ZigZagBackstep <= 0 {
		cfg.StrategyConfig.H1ZigZagBackstep = 3
	}
	if cfg.StrategyConfig.RiskPercent <= 0 {
		cfg.StrategyConfig.RiskPercent = 1.0
	}
	if cfg.StrategyConfig.MinStopLossPips <= 0 {
		cfg.StrategyConfig.MinStopLossPips = 5
	}
	if cfg.StrategyConfig.MinTakeProfitPips <= 0 {
		cfg.StrategyConfig.MinTakeProfitPips = 5
	}
	if cfg.StrategyConfig.TakeProfitRR <= 0 {
		cfg.StrategyConfig.TakeProfitRR = 2.0
	}
	if cfg.StrategyConfig.MaxOpenPositions <= 0 {
		cfg.StrategyConfig.MaxOpenPositions = 1
	}

	if cfg.PaperConfig.StartingBalance <= 0 {
		cfg.PaperConfig.StartingBalance = 10000
	}
	if cfg.PaperConfig.Currency == "" {
		cfg.PaperConfig.Currency = "USD"
	}

	if cfg.ServerConfig.Port == 0 {
		cfg.ServerConfig.Port = 8080
	}
	if cfg.ServerConfig.Host == "" {
		cfg.ServerConfig.Host = "0.0.0.0"
	}
	if cfg.ServerConfig.AllowedOrigins == "" {
		cfg.ServerConfig.AllowedOrigins = "*"
	}
	if cfg.ServerConfig.ReadTimeout <= 0 {
		cfg.ServerConfig.ReadTimeout = 30
	}
	if cfg.ServerConfig.WriteTimeout <= 0 {
		cfg.ServerConfig.WriteTimeout = 30
	}
	if cfg.ServerConfig.ShutdownTimeout <= 0 {
		cfg.ServerConfig.ShutdownTimeout = 10
	}

	if cfg.AuthConfig.AccessTokenDuration <= 0 {
		cfg.AuthConfig.AccessTokenDuration = 12 * time.Hour
	}

	if cfg.VaultConfig.Address == "" {
		cfg.VaultConfig.Address = "http://localhost:8200"
	}
	if cfg.VaultConfig.MountPath == "" {
		cfg.VaultConfig.MountPath = "secret"
	}
	if cfg.VaultConfig.SecretPath == "" {
		cfg.VaultConfig.SecretPath = "market-structure-bot/feed"
	}

	if cfg.RedisConfig.Address == "" {
		cfg.RedisConfig.Address = "localhost:6379"
	}
	if cfg.RedisConfig.SnapshotTTL <= 0 {
		cfg.RedisConfig.SnapshotTTL = 300
	}

	if cfg.LoggingConfig.Level == "" {
		cfg.LoggingConfig.Level = "info"
	}
	if cfg.LoggingConfig.Format == "" {
		cfg.LoggingConfig.Format = "console"
	}
}

// Validate rejects configurations the bot cannot run with
func (c *Config) Validate() error {
	if c.StrategyConfig.RiskPercent <= 0 || c.StrategyConfig.RiskPercent > 100 {
		return fmt.Errorf("strategy.risk_percent must be in (0, 100], got %v", c.StrategyConfig.RiskPercent)
	}
	if c.InstrumentConfig.PipSize <= 0 {
		return fmt.Errorf("instrument.pip_size must be positive, got %v", c.InstrumentConfig.PipSize)
	}
	if c.AuthConfig.Enabled && c.AuthConfig.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required when auth is enabled")
	}
	if c.RecorderConfig.Enabled && c.RecorderConfig.DatabaseURL == "" {
		return fmt.Errorf("recorder.database_url is required when recorder is enabled")
	}
	return nil
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// GenerateSampleConfig creates a sample configuration file
func GenerateSampleConfig(filename string) error {
	config := Config{
		FeedConfig: FeedConfig{
			WebSocketURL:   "wss://stream.binance.com:9443",
			RestURL:        "https://api.binance.com",
			Symbol:         "EURUSDT",
			Interval:       "15m",
			HourlyInterval: "1h",
			BackfillLimit:  500,
		},
		InstrumentConfig: InstrumentConfig{
			TickSize:   0.00001,
			PipSize:    0.0001,
			PipValue:   10,
			LotSize:    100000,
			VolumeStep: 1000,
			VolumeMin:  1000,
			VolumeMax:  10000000,
		},
		StrategyConfig: StrategyConfig{
			SwingLookback:      5,
			H1ZigZagDepth:      12,
			H1ZigZagDeviation:  5,
			H1ZigZagBackstep:   3,
			RiskPercent:        1.0,
			StopLossBufferPips: 2,
			MinStopLossPips:    5,
			MinTakeProfitPips:  5,
			TakeProfitRR:       2.0,
			MaxTradesPerDay:    1,
			MaxOpenPositions:   1,
		},
		PaperConfig: PaperConfig{
			StartingBalance: 10000,
			Currency:        "USD",
		},
		ServerConfig: ServerConfig{
			Enabled:        true,
			Port:           8080,
			Host:           "0.0.0.0",
			AllowedOrigins: "*",
		},
		LoggingConfig: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}
