package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(cfg, Defaults()) {
		t.Errorf("Load() = %+v, want defaults %+v", cfg, Defaults())
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.TradeHistoryCap != 100 {
		t.Errorf("TradeHistoryCap = %d, want 100", cfg.TradeHistoryCap)
	}
	if cfg.PricePollInterval != 15*time.Second {
		t.Errorf("PricePollInterval = %v, want 15s", cfg.PricePollInterval)
	}
	if len(cfg.TrackedSymbols) != 5 || len(cfg.StockList) != 10 {
		t.Errorf("TrackedSymbols = %v, StockList = %v", cfg.TrackedSymbols, cfg.StockList)
	}
	if len(cfg.KafkaBrokers) != 0 {
		t.Errorf("KafkaBrokers = %v, want none", cfg.KafkaBrokers)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FILE", "/var/log/livestock.log")
	t.Setenv("TRADE_HISTORY_CAP", "50")
	t.Setenv("BOOK_DEPTH", "3")
	t.Setenv("BROADCAST_TIMEOUT", "2s")
	t.Setenv("BROADCAST_BUFFER", "16")
	t.Setenv("FINNHUB_API_KEY", "key")
	t.Setenv("PRICE_POLL_INTERVAL", "1m")
	t.Setenv("TRACKED_SYMBOLS", "aapl, nvda ,,")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("KAFKA_TOPIC", "books")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000")
	t.Setenv("SHUTDOWN_TIMEOUT", "15s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.LogFile != "/var/log/livestock.log" {
		t.Errorf("LogFile = %q", cfg.LogFile)
	}
	if cfg.TradeHistoryCap != 50 || cfg.BookDepth != 3 || cfg.BroadcastBuffer != 16 {
		t.Errorf("cap/depth/buffer = %d/%d/%d", cfg.TradeHistoryCap, cfg.BookDepth, cfg.BroadcastBuffer)
	}
	if cfg.BroadcastTimeout != 2*time.Second || cfg.PricePollInterval != time.Minute {
		t.Errorf("BroadcastTimeout = %v, PricePollInterval = %v", cfg.BroadcastTimeout, cfg.PricePollInterval)
	}
	if !reflect.DeepEqual(cfg.TrackedSymbols, []string{"aapl", "nvda"}) {
		t.Errorf("TrackedSymbols = %v", cfg.TrackedSymbols)
	}
	if !reflect.DeepEqual(cfg.KafkaBrokers, []string{"k1:9092", "k2:9092"}) || cfg.KafkaTopic != "books" {
		t.Errorf("Kafka = %v %q", cfg.KafkaBrokers, cfg.KafkaTopic)
	}
	if cfg.ShutdownTimeout != 15*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 15s", cfg.ShutdownTimeout)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", writeConfigFile(t, `
port: 7000
log_level: warn
book_depth: 25
price_poll_interval: 30s
stock_list: [IBM, ORCL]
kafka_brokers: ["broker:9092"]
`))
	t.Setenv("BOOK_DEPTH", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 7000 || cfg.LogLevel != "warn" {
		t.Errorf("Port = %d, LogLevel = %q", cfg.Port, cfg.LogLevel)
	}
	if cfg.BookDepth != 5 {
		t.Errorf("BookDepth = %d, want env override 5", cfg.BookDepth)
	}
	if cfg.PricePollInterval != 30*time.Second {
		t.Errorf("PricePollInterval = %v, want 30s", cfg.PricePollInterval)
	}
	if !reflect.DeepEqual(cfg.StockList, []string{"IBM", "ORCL"}) {
		t.Errorf("StockList = %v", cfg.StockList)
	}
	if cfg.TradeHistoryCap != 100 {
		t.Errorf("TradeHistoryCap = %d, want default 100", cfg.TradeHistoryCap)
	}
	if cfg.KafkaTopic != "livestock.events" {
		t.Errorf("KafkaTopic = %q, want default", cfg.KafkaTopic)
	}
}

func TestLoad_ConfigFileErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Error("expected error for missing CONFIG_FILE")
	}

	t.Setenv("CONFIG_FILE", writeConfigFile(t, "port: [not, an, int]\n"))
	if _, err := Load(); err == nil {
		t.Error("expected error for malformed CONFIG_FILE")
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	for _, v := range []string{"not-a-number", "0", "70000"} {
		t.Run(v, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("PORT", v)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for PORT=%s", v)
			}
		})
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "verbose")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for invalid LOG_LEVEL")
	}
}

func TestLoad_NonPositiveValues(t *testing.T) {
	cases := map[string]string{
		"TRADE_HISTORY_CAP": "0",
		"BOOK_DEPTH":        "-1",
		"BROADCAST_BUFFER":  "0",
		"LOG_MAX_SIZE_MB":   "0",
		"SHUTDOWN_TIMEOUT":  "-5s",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, val)
			}
		})
	}
}

func TestLoad_KafkaBrokersNeedTopic(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", writeConfigFile(t, "kafka_topic: \"\"\n"))
	t.Setenv("KAFKA_BROKERS", "k1:9092")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for brokers without a topic")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	for _, k := range durationKeys {
		t.Run(k.env, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(k.env, "not-a-duration")

			_, err := Load()
			if err == nil {
				t.Fatalf("expected error for invalid %s", k.env)
			}
		})
	}
}
