// Package config loads service configuration from a YAML file with
// environment variable overrides. A .env file in the working directory is
// loaded first when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the full service configuration.
type Config struct {
	RPC     RPCConfig     `yaml:"rpc"`
	Feed    FeedConfig    `yaml:"feed"`
	Pricing PricingConfig `yaml:"pricing"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
	Tokens  []string      `yaml:"tokens"`
}

// RPCConfig describes the endpoint pool.
type RPCConfig struct {
	PrimaryURL     string        `yaml:"primary_url"`
	FallbackURLs   []string      `yaml:"fallback_urls"`
	WebsocketURL   string        `yaml:"websocket_url"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
}

// FeedConfig bounds polling and dedupe behavior of the live feed.
type FeedConfig struct {
	PollLimit      int           `yaml:"poll_limit"`
	PollFloor      time.Duration `yaml:"poll_floor"`
	PollCeiling    time.Duration `yaml:"poll_ceiling"`
	WindowCapacity int           `yaml:"window_capacity"`
	CacheCapacity  int           `yaml:"cache_capacity"`
	SinkBuffer     int           `yaml:"sink_buffer"`
}

// PricingConfig tunes the SOL reference price oracle.
type PricingConfig struct {
	QuoteURL     string        `yaml:"quote_url"`
	TTL          time.Duration `yaml:"ttl"`
	DefaultPrice float64       `yaml:"default_price"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // "json" or "text"
	File       string `yaml:"file"`   // empty means stdout only
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default returns a configuration suitable for local development against
// public mainnet endpoints.
func Default() Config {
	return Config{
		RPC: RPCConfig{
			PrimaryURL:     "https://api.mainnet-beta.solana.com",
			WebsocketURL:   "wss://api.mainnet-beta.solana.com",
			AttemptTimeout: 8 * time.Second,
		},
		Feed: FeedConfig{
			PollLimit:      10,
			PollFloor:      2 * time.Second,
			PollCeiling:    60 * time.Second,
			WindowCapacity: 1000,
			CacheCapacity:  500,
			SinkBuffer:     256,
		},
		Pricing: PricingConfig{
			TTL:          60 * time.Second,
			DefaultPrice: 150,
		},
		Metrics: MetricsConfig{
			Enabled:    true,
			ListenAddr: ":9105",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path (when path is non-empty) on top of the
// defaults, then applies environment overrides. A .env file is consulted
// before the environment is read.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the parts the service cannot run without.
func (c *Config) Validate() error {
	if c.RPC.PrimaryURL == "" {
		return fmt.Errorf("config: rpc.primary_url is required")
	}
	if c.Feed.PollLimit <= 0 {
		return fmt.Errorf("config: feed.poll_limit must be positive")
	}
	if c.Feed.PollFloor <= 0 || c.Feed.PollCeiling < c.Feed.PollFloor {
		return fmt.Errorf("config: feed poll bounds invalid (floor %s, ceiling %s)", c.Feed.PollFloor, c.Feed.PollCeiling)
	}
	return nil
}

// Endpoints returns the primary URL followed by the fallbacks.
func (c *Config) Endpoints() []string {
	urls := make([]string, 0, 1+len(c.RPC.FallbackURLs))
	urls = append(urls, c.RPC.PrimaryURL)
	urls = append(urls, c.RPC.FallbackURLs...)
	return urls
}

func applyEnv(cfg *Config) {
	cfg.RPC.PrimaryURL = getEnv("VORTEX_RPC_URL", cfg.RPC.PrimaryURL)
	if v := os.Getenv("VORTEX_RPC_FALLBACKS"); v != "" {
		cfg.RPC.FallbackURLs = splitList(v)
	}
	cfg.RPC.WebsocketURL = getEnv("VORTEX_WS_URL", cfg.RPC.WebsocketURL)
	cfg.Metrics.ListenAddr = getEnv("VORTEX_METRICS_ADDR", cfg.Metrics.ListenAddr)
	cfg.Logging.Level = getEnv("VORTEX_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.File = getEnv("VORTEX_LOG_FILE", cfg.Logging.File)
	if v := os.Getenv("VORTEX_TOKENS"); v != "" {
		cfg.Tokens = splitList(v)
	}
	cfg.Pricing.QuoteURL = getEnv("VORTEX_QUOTE_URL", cfg.Pricing.QuoteURL)
	cfg.Feed.SinkBuffer = getEnvAsInt("VORTEX_SINK_BUFFER", cfg.Feed.SinkBuffer)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
