// Package config defines the top-level configuration for the yieldplay
// engine and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by YIELDPLAY_* environment variables.
type Config struct {
	Database   DatabaseConfig   `toml:"database"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Advisor    AdvisorConfig    `toml:"advisor"`
	Economy    EconomyConfig    `toml:"economy"`
	Resolution ResolutionConfig `toml:"resolution"`
	Server     ServerConfig     `toml:"server"`
	Admin      AdminConfig      `toml:"admin"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// DatabaseConfig holds PostgreSQL connection parameters. When DSN is set it
// takes precedence over the individual fields.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for the settlement
// archive. An empty bucket disables archiving.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// AdvisorConfig holds the quest advisor API endpoint and credentials. An
// empty base URL disables the advisor; quests then fall back to neutral
// hints and generation is rejected.
type AdvisorConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
}

// EconomyConfig holds yield accrual parameters.
type EconomyConfig struct {
	// APR is the simple-interest annual rate applied to principal,
	// e.g. 0.05 for 5%.
	APR float64 `toml:"apr"`

	// AccrualInterval is how often the background poller applies pending
	// yield to active users.
	AccrualInterval duration `toml:"accrual_interval"`
}

// ResolutionConfig holds market resolution sweep parameters.
type ResolutionConfig struct {
	// SweepInterval is how often due markets are checked for resolution.
	SweepInterval duration `toml:"sweep_interval"`

	// Oracle selects the outcome drawer: "pool_weighted" or "uniform".
	Oracle string `toml:"oracle"`

	// Seed fixes the oracle RNG when non-zero. Zero seeds from entropy.
	Seed int64 `toml:"seed"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`

	// RateLimit caps requests per client IP per rate_window. Zero disables.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// AdminConfig holds admin authentication parameters.
type AdminConfig struct {
	// SecretHash is the bcrypt hash of the admin secret. Empty disables
	// admin access entirely.
	SecretHash string `toml:"secret_hash"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "yieldplay",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Economy: EconomyConfig{
			APR:             0.05,
			AccrualInterval: duration{10 * time.Second},
		},
		Resolution: ResolutionConfig{
			SweepInterval: duration{30 * time.Second},
			Oracle:        "pool_weighted",
		},
		Server: ServerConfig{
			Enabled:    true,
			Port:       8080,
			RateLimit:  120,
			RateWindow: duration{time.Minute},
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"serve":   true, // HTTP API + background accrual and sweep
	"sweep":   true, // resolution sweeps only, no HTTP
	"sandbox": true, // in-memory ledger, no external services
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validOracles = map[string]bool{
	"pool_weighted": true,
	"uniform":       true,
}

// Validate checks the configuration for inconsistencies and returns an error
// describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, sweep, sandbox)", c.Mode))
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Economy.APR < 0 {
		errs = append(errs, fmt.Sprintf("economy: apr must not be negative, got %g", c.Economy.APR))
	}
	if c.Economy.AccrualInterval.Duration <= 0 {
		errs = append(errs, "economy: accrual_interval must be positive")
	}

	if !validOracles[strings.ToLower(c.Resolution.Oracle)] {
		errs = append(errs, fmt.Sprintf("resolution: unknown oracle %q (valid: pool_weighted, uniform)", c.Resolution.Oracle))
	}
	if c.Resolution.SweepInterval.Duration <= 0 {
		errs = append(errs, "resolution: sweep_interval must be positive")
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be in 1..65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
			errs = append(errs, "server: rate_window must be positive when rate_limit is set")
		}
	}

	if strings.ToLower(c.Mode) != "sandbox" {
		if c.Database.DSN == "" && (c.Database.Host == "" || c.Database.Database == "") {
			errs = append(errs, "database: either dsn or host and database must be set for mode "+c.Mode)
		}
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty for mode "+c.Mode)
		}
	}

	// S3 credentials must come as a pair when a bucket is configured.
	if c.S3.Bucket != "" {
		ak := c.S3.AccessKey != ""
		sk := c.S3.SecretKey != ""
		if ak != sk {
			errs = append(errs, "s3: access_key and secret_key must both be set or both be empty")
		}
	}

	if c.Advisor.BaseURL == "" && c.Advisor.APIKey != "" {
		errs = append(errs, "advisor: api_key is set but base_url is empty")
	}

	// Notify credentials that make no sense alone.
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must both be set or both be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
