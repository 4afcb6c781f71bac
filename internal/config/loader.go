package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies YIELDPLAY_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known YIELDPLAY_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Database ──
	setStr(&cfg.Database.DSN, "YIELDPLAY_DATABASE_DSN")
	setStr(&cfg.Database.Host, "YIELDPLAY_DATABASE_HOST")
	setInt(&cfg.Database.Port, "YIELDPLAY_DATABASE_PORT")
	setStr(&cfg.Database.Database, "YIELDPLAY_DATABASE_NAME")
	setStr(&cfg.Database.User, "YIELDPLAY_DATABASE_USER")
	setStr(&cfg.Database.Password, "YIELDPLAY_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "YIELDPLAY_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "YIELDPLAY_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "YIELDPLAY_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "YIELDPLAY_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "YIELDPLAY_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "YIELDPLAY_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "YIELDPLAY_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "YIELDPLAY_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "YIELDPLAY_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "YIELDPLAY_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "YIELDPLAY_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "YIELDPLAY_S3_REGION")
	setStr(&cfg.S3.Bucket, "YIELDPLAY_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "YIELDPLAY_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "YIELDPLAY_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "YIELDPLAY_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "YIELDPLAY_S3_FORCE_PATH_STYLE")

	// ── Advisor ──
	setStr(&cfg.Advisor.BaseURL, "YIELDPLAY_ADVISOR_BASE_URL")
	setStr(&cfg.Advisor.APIKey, "YIELDPLAY_ADVISOR_API_KEY")

	// ── Economy ──
	setFloat64(&cfg.Economy.APR, "YIELDPLAY_ECONOMY_APR")
	setDuration(&cfg.Economy.AccrualInterval, "YIELDPLAY_ECONOMY_ACCRUAL_INTERVAL")

	// ── Resolution ──
	setDuration(&cfg.Resolution.SweepInterval, "YIELDPLAY_RESOLUTION_SWEEP_INTERVAL")
	setStr(&cfg.Resolution.Oracle, "YIELDPLAY_RESOLUTION_ORACLE")
	setInt64(&cfg.Resolution.Seed, "YIELDPLAY_RESOLUTION_SEED")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "YIELDPLAY_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "YIELDPLAY_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "YIELDPLAY_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RateLimit, "YIELDPLAY_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "YIELDPLAY_SERVER_RATE_WINDOW")

	// ── Admin ──
	setStr(&cfg.Admin.SecretHash, "YIELDPLAY_ADMIN_SECRET_HASH")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "YIELDPLAY_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "YIELDPLAY_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "YIELDPLAY_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "YIELDPLAY_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "YIELDPLAY_MODE")
	setStr(&cfg.LogLevel, "YIELDPLAY_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
