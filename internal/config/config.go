// Package config handles static application configuration and the
// runtime settings registry.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config defines the structure for all application configuration.
type Config struct {
	Exchange ExchangeConfig `yaml:"exchange"`
	Trading  TradingConfig  `yaml:"trading"`
	Signals  SignalConfig   `yaml:"signals"`
	Analysis AnalysisConfig `yaml:"analysis"`
	HTTP     HTTPConfig     `yaml:"http"`

	LogLevel    string `yaml:"log_level"`
	DatabaseURL string `yaml:"-"` // DATABASE_URL env only
}

// ExchangeConfig holds the protocol client settings.
type ExchangeConfig struct {
	TradingURL         string  `yaml:"trading_url"`
	AccountURL         string  `yaml:"account_url"`
	WebsocketURL       string  `yaml:"websocket_url"`
	QuoteCurrency      string  `yaml:"quote_currency"`
	RateLimitPerMinute int     `yaml:"rate_limit_per_minute"`
	MaxRetries         int     `yaml:"max_retries"`
	TimeoutSeconds     int     `yaml:"timeout_seconds"`
	APIKey             string  `yaml:"-"` // CRYPTO_API_KEY env
	APISecret          string  `yaml:"-"` // CRYPTO_API_SECRET env
}

// TradingConfig holds order execution defaults. The settings registry can
// override these at runtime.
type TradingConfig struct {
	EnableAutoTrading FlexBool `yaml:"enable_auto_trading"`
	TradeAmount       float64  `yaml:"trade_amount"`
	MinBalance        float64  `yaml:"min_balance"`
	TakeProfitPct     float64  `yaml:"take_profit_pct"`
	StopLossPct       float64  `yaml:"stop_loss_pct"`
}

// SignalConfig holds indicator parameters.
type SignalConfig struct {
	RSIPeriod     int     `yaml:"rsi_period"`
	RSIOversold   float64 `yaml:"rsi_oversold"`
	RSIOverbought float64 `yaml:"rsi_overbought"`
	MAPeriod      int     `yaml:"ma_period"`
	EMAPeriod     int     `yaml:"ema_period"`
	ATRPeriod     int     `yaml:"atr_period"`
}

// AnalysisConfig holds the continuous analyzer schedule.
type AnalysisConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
	BatchSize       int `yaml:"batch_size"`
	CooldownMinutes int `yaml:"cooldown_minutes"`
}

// HTTPConfig holds the local HTTP surface settings.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	return &Config{
		Exchange: ExchangeConfig{
			TradingURL:         "https://api.crypto.com/exchange/v1/",
			AccountURL:         "https://api.crypto.com/v2/",
			WebsocketURL:       "wss://stream.crypto.com/v2/market",
			QuoteCurrency:      "USDT",
			RateLimitPerMinute: 10,
			MaxRetries:         3,
			TimeoutSeconds:     30,
		},
		Trading: TradingConfig{
			EnableAutoTrading: false,
			TradeAmount:       10,
			MinBalance:        15,
			TakeProfitPct:     10,
			StopLossPct:       5,
		},
		Signals: SignalConfig{
			RSIPeriod:     14,
			RSIOversold:   30,
			RSIOverbought: 70,
			MAPeriod:      20,
			EMAPeriod:     12,
			ATRPeriod:     14,
		},
		Analysis: AnalysisConfig{
			IntervalSeconds: 30,
			BatchSize:       5,
			CooldownMinutes: 60,
		},
		HTTP:     HTTPConfig{Port: 8080},
		LogLevel: "info",
	}
}

// LoadConfig loads configuration from the specified YAML file path and
// environment variables. Secrets come from the environment only.
func LoadConfig(configPath string) (*Config, error) {
	cfg := Default()

	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(file, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", configPath, err)
	}

	if apiKey := os.Getenv("CRYPTO_API_KEY"); apiKey != "" {
		cfg.Exchange.APIKey = apiKey
	}
	if apiSecret := os.Getenv("CRYPTO_API_SECRET"); apiSecret != "" {
		cfg.Exchange.APISecret = apiSecret
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.DatabaseURL = dbURL
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Exchange.QuoteCurrency == "" {
		return fmt.Errorf("exchange.quote_currency must not be empty")
	}
	if c.Exchange.RateLimitPerMinute <= 0 {
		return fmt.Errorf("exchange.rate_limit_per_minute must be positive, got %d", c.Exchange.RateLimitPerMinute)
	}
	if c.Exchange.MaxRetries < 0 {
		return fmt.Errorf("exchange.max_retries must not be negative, got %d", c.Exchange.MaxRetries)
	}
	if c.Trading.TradeAmount <= 0 {
		return fmt.Errorf("trading.trade_amount must be positive, got %v", c.Trading.TradeAmount)
	}
	if c.Analysis.IntervalSeconds <= 0 {
		return fmt.Errorf("analysis.interval_seconds must be positive, got %d", c.Analysis.IntervalSeconds)
	}
	if c.Analysis.BatchSize <= 0 {
		return fmt.Errorf("analysis.batch_size must be positive, got %d", c.Analysis.BatchSize)
	}
	return nil
}
