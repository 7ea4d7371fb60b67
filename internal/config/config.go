package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds process-level settings for the backtest binaries
type Config struct {
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	StrategyFile   string `env:"STRATEGY_FILE"`
	StrategyPreset string `env:"STRATEGY_PRESET" envDefault:"default"`
	DataFile       string `env:"DATA_FILE"`
	DataURL        string `env:"DATA_URL"`
	Symbol         string `env:"SYMBOL" envDefault:"BTCUSDT"`
	Interval       string `env:"INTERVAL" envDefault:"5m"`
	RequestTimeout int    `env:"REQUEST_TIMEOUT" envDefault:"30"` // seconds
	RequestsPerSec int    `env:"REQUESTS_PER_SEC" envDefault:"5"`
	PriorFile      string `env:"PRIOR_FILE"`
	OutputFile     string `env:"OUTPUT_FILE" envDefault:"backtest_results.json"`
	Seed           int64  `env:"SEED" envDefault:"42"`
	MetricsAddr    string `env:"METRICS_ADDR"`

	// Overrides applied on top of the strategy document; zero means keep
	InitialCapital float64 `env:"INITIAL_CAPITAL"`
	PrettyOutput   bool    `env:"PRETTY_OUTPUT" envDefault:"true"`
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config

	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")
	cfg.StrategyFile = os.Getenv("STRATEGY_FILE")
	cfg.StrategyPreset = getEnvWithDefault("STRATEGY_PRESET", "default")
	cfg.DataFile = os.Getenv("DATA_FILE")
	cfg.DataURL = os.Getenv("DATA_URL")
	cfg.Symbol = getEnvWithDefault("SYMBOL", "BTCUSDT")
	cfg.Interval = getEnvWithDefault("INTERVAL", "5m")
	cfg.RequestTimeout = getEnvIntWithDefault("REQUEST_TIMEOUT", 30)
	cfg.RequestsPerSec = getEnvIntWithDefault("REQUESTS_PER_SEC", 5)
	cfg.PriorFile = os.Getenv("PRIOR_FILE")
	cfg.OutputFile = getEnvWithDefault("OUTPUT_FILE", "backtest_results.json")
	cfg.Seed = int64(getEnvIntWithDefault("SEED", 42))
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")
	cfg.InitialCapital = getEnvFloatWithDefault("INITIAL_CAPITAL", 0)
	cfg.PrettyOutput = getEnvBoolWithDefault("PRETTY_OUTPUT", true)

	return &cfg, nil
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}
