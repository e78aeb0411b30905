package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration for the live order book service.
type Config struct {
	Port         int    `yaml:"port"`
	LogLevel     string `yaml:"log_level"`
	LogFile      string `yaml:"log_file"`
	LogMaxSizeMB int    `yaml:"log_max_size_mb"`

	TradeHistoryCap  int           `yaml:"trade_history_cap"`
	BookDepth        int           `yaml:"book_depth"`
	BroadcastTimeout time.Duration `yaml:"broadcast_timeout"`
	BroadcastBuffer  int           `yaml:"broadcast_buffer"`

	FinnhubAPIKey     string        `yaml:"finnhub_api_key"`
	FinnhubBaseURL    string        `yaml:"finnhub_base_url"`
	PricePollInterval time.Duration `yaml:"price_poll_interval"`
	TrackedSymbols    []string      `yaml:"tracked_symbols"`
	StockList         []string      `yaml:"stock_list"`

	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`

	CORSOrigins     []string      `yaml:"cors_origins"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() *Config {
	return &Config{
		Port:              8080,
		LogLevel:          "info",
		LogMaxSizeMB:      10,
		TradeHistoryCap:   100,
		BookDepth:         10,
		BroadcastTimeout:  5 * time.Second,
		BroadcastBuffer:   256,
		FinnhubBaseURL:    "https://finnhub.io",
		PricePollInterval: 15 * time.Second,
		TrackedSymbols:    []string{"AAPL", "MSFT", "GOOG", "AMZN", "TSLA"},
		StockList:         []string{"AAPL", "MSFT", "GOOG", "AMZN", "TSLA", "META", "NVDA", "JPM", "V", "WMT"},
		KafkaTopic:        "livestock.events",
		CORSOrigins:       []string{"*"},
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   10 * time.Second,
	}
}

// Load builds the configuration. A .env file in the working directory is
// loaded first (it never overrides variables already set), then the YAML
// file named by CONFIG_FILE is applied over the defaults, then individual
// environment variables override both. The result is validated.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("invalid .env file: %w", err)
	}

	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read CONFIG_FILE: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse CONFIG_FILE %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var err error

	if c.Port, err = getInt("PORT", c.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}
	c.LogLevel = strings.ToLower(getStr("LOG_LEVEL", c.LogLevel))
	c.LogFile = getStr("LOG_FILE", c.LogFile)
	if c.LogMaxSizeMB, err = getInt("LOG_MAX_SIZE_MB", c.LogMaxSizeMB); err != nil {
		return fmt.Errorf("invalid LOG_MAX_SIZE_MB: %w", err)
	}

	if c.TradeHistoryCap, err = getInt("TRADE_HISTORY_CAP", c.TradeHistoryCap); err != nil {
		return fmt.Errorf("invalid TRADE_HISTORY_CAP: %w", err)
	}
	if c.BookDepth, err = getInt("BOOK_DEPTH", c.BookDepth); err != nil {
		return fmt.Errorf("invalid BOOK_DEPTH: %w", err)
	}
	if c.BroadcastTimeout, err = getDuration("BROADCAST_TIMEOUT", c.BroadcastTimeout); err != nil {
		return fmt.Errorf("invalid BROADCAST_TIMEOUT: %w", err)
	}
	if c.BroadcastBuffer, err = getInt("BROADCAST_BUFFER", c.BroadcastBuffer); err != nil {
		return fmt.Errorf("invalid BROADCAST_BUFFER: %w", err)
	}

	c.FinnhubAPIKey = getStr("FINNHUB_API_KEY", c.FinnhubAPIKey)
	c.FinnhubBaseURL = getStr("FINNHUB_BASE_URL", c.FinnhubBaseURL)
	if c.PricePollInterval, err = getDuration("PRICE_POLL_INTERVAL", c.PricePollInterval); err != nil {
		return fmt.Errorf("invalid PRICE_POLL_INTERVAL: %w", err)
	}
	c.TrackedSymbols = getList("TRACKED_SYMBOLS", c.TrackedSymbols)
	c.StockList = getList("STOCK_LIST", c.StockList)

	c.KafkaBrokers = getList("KAFKA_BROKERS", c.KafkaBrokers)
	c.KafkaTopic = getStr("KAFKA_TOPIC", c.KafkaTopic)

	c.CORSOrigins = getList("CORS_ORIGINS", c.CORSOrigins)
	if c.ReadTimeout, err = getDuration("READ_TIMEOUT", c.ReadTimeout); err != nil {
		return fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}
	if c.WriteTimeout, err = getDuration("WRITE_TIMEOUT", c.WriteTimeout); err != nil {
		return fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}
	if c.IdleTimeout, err = getDuration("IDLE_TIMEOUT", c.IdleTimeout); err != nil {
		return fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}
	if c.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT: %d, must be between 1 and 65535", c.Port)
	}
	if !isValidLogLevel(c.LogLevel) {
		return fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", c.LogLevel)
	}
	if c.LogMaxSizeMB <= 0 {
		return fmt.Errorf("invalid LOG_MAX_SIZE_MB: %d, must be positive", c.LogMaxSizeMB)
	}
	if c.TradeHistoryCap <= 0 {
		return fmt.Errorf("invalid TRADE_HISTORY_CAP: %d, must be positive", c.TradeHistoryCap)
	}
	if c.BookDepth <= 0 {
		return fmt.Errorf("invalid BOOK_DEPTH: %d, must be positive", c.BookDepth)
	}
	if c.BroadcastBuffer <= 0 {
		return fmt.Errorf("invalid BROADCAST_BUFFER: %d, must be positive", c.BroadcastBuffer)
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return fmt.Errorf("invalid KAFKA_TOPIC: required when KAFKA_BROKERS is set")
	}

	for name, d := range map[string]time.Duration{
		"BROADCAST_TIMEOUT":   c.BroadcastTimeout,
		"PRICE_POLL_INTERVAL": c.PricePollInterval,
		"READ_TIMEOUT":        c.ReadTimeout,
		"WRITE_TIMEOUT":       c.WriteTimeout,
		"IDLE_TIMEOUT":        c.IdleTimeout,
		"SHUTDOWN_TIMEOUT":    c.ShutdownTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("invalid %s: %v, must be positive", name, d)
		}
	}
	return nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

// getList splits a comma-separated variable, dropping empty items.
func getList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
