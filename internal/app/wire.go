package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/yieldplay/yieldplay/internal/blob/s3"
	"github.com/yieldplay/yieldplay/internal/cache/redis"
	"github.com/yieldplay/yieldplay/internal/config"
	"github.com/yieldplay/yieldplay/internal/domain"
	"github.com/yieldplay/yieldplay/internal/notify"
	"github.com/yieldplay/yieldplay/internal/platform/advisor"
	"github.com/yieldplay/yieldplay/internal/service"
	"github.com/yieldplay/yieldplay/internal/store/memory"
	"github.com/yieldplay/yieldplay/internal/store/postgres"
)

// Dependencies bundles every infrastructure dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function. Optional fields are nil when the corresponding
// backend is not configured; services degrade rather than fail.
type Dependencies struct {
	// Ledger and read stores
	Ledger           domain.Ledger
	UserStore        domain.UserStore
	MarketStore      domain.MarketStore
	PositionStore    domain.PositionStore
	QuestStore       domain.QuestStore
	AchievementStore domain.AchievementStore
	AuditStore       domain.AuditStore

	// Caches and coordination
	RateLimiter      domain.RateLimiter
	LockManager      domain.LockManager
	SignalBus        domain.SignalBus
	HintCache        domain.HintCache
	LeaderboardCache domain.LeaderboardCache

	// Blob storage
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   domain.Archiver

	// External services
	Advisor  service.Advisor
	Notifier *notify.Notifier
}

// sandbox mode runs entirely in memory: no Postgres, Redis, or S3.
func isSandbox(mode string) bool {
	return strings.ToLower(mode) == "sandbox"
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	if isSandbox(cfg.Mode) {
		ledger := memory.NewLedger()
		deps.Ledger = ledger
		deps.UserStore = ledger.Users()
		deps.MarketStore = ledger.Markets()
		deps.PositionStore = ledger.Positions()
		deps.QuestStore = ledger.Quests()
		deps.AchievementStore = ledger.Achievements()
	} else {
		// --- PostgreSQL ---
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Database.DSN,
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			Database: cfg.Database.Database,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			SSLMode:  cfg.Database.SSLMode,
			MaxConns: cfg.Database.PoolMaxConns,
			MinConns: cfg.Database.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Database.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.Ledger = postgres.NewLedger(pgClient)
		deps.UserStore = postgres.NewUserStore(pool)
		deps.MarketStore = postgres.NewMarketStore(pool)
		deps.PositionStore = postgres.NewPositionStore(pool)
		deps.QuestStore = postgres.NewQuestStore(pool)
		deps.AchievementStore = postgres.NewAchievementStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)

		// --- Redis ---
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.HintCache = redis.NewHintCache(redisClient)
		deps.LeaderboardCache = redis.NewLeaderboardCache(redisClient)

		// --- S3 settlement archive (optional) ---
		if cfg.S3.Bucket != "" {
			s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
				Endpoint:       cfg.S3.Endpoint,
				Region:         cfg.S3.Region,
				Bucket:         cfg.S3.Bucket,
				AccessKey:      cfg.S3.AccessKey,
				SecretKey:      cfg.S3.SecretKey,
				UseSSL:         cfg.S3.UseSSL,
				ForcePathStyle: cfg.S3.ForcePathStyle,
			})
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: s3: %w", err)
			}
			closers = append(closers, func() { _ = s3Client.Close() })

			deps.BlobWriter = s3blob.NewWriter(s3Client)
			deps.BlobReader = s3blob.NewReader(s3Client)
			deps.Archiver = s3blob.NewArchiver(
				deps.BlobWriter,
				deps.MarketStore,
				deps.PositionStore,
				deps.AuditStore,
			)
		}
	}

	// --- Quest advisor (optional) ---
	if cfg.Advisor.BaseURL != "" {
		deps.Advisor = advisor.NewClient(advisor.ClientConfig{
			BaseURL: cfg.Advisor.BaseURL,
			APIKey:  cfg.Advisor.APIKey,
		}, deps.HintCache, deps.RateLimiter, logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
