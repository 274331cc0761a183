package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/questlab/engagehub/internal/blob/s3"
	"github.com/questlab/engagehub/internal/config"
	"github.com/questlab/engagehub/internal/domain"
	"github.com/questlab/engagehub/internal/kv"
	kvredis "github.com/questlab/engagehub/internal/kv/redis"
	"github.com/questlab/engagehub/internal/server/middleware"
	"github.com/questlab/engagehub/internal/store/postgres"
)

// Dependencies bundles the infrastructure the engine and server need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// KV is the bounded document store backing persistence.
	KV domain.KV

	// AuditStore records ledger and battle mutations; nil when Postgres is
	// disabled.
	AuditStore domain.AuditStore

	// Archiver receives quota-trimmed records; nil when S3 is disabled.
	Archiver domain.Archiver

	// RateLimiter backs the HTTP rate-limit middleware; nil when rate
	// limiting is disabled.
	RateLimiter middleware.Limiter
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Document store ---
	backend := strings.ToLower(cfg.Storage.Backend)
	needsRedis := backend == "redis" || cfg.Server.RateLimit > 0

	var redisClient *kvredis.Client
	if needsRedis {
		c, err := kvredis.New(ctx, kvredis.ClientConfig{
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
		redisClient = c
		closers = append(closers, func() { _ = redisClient.Close() })
	}

	switch backend {
	case "redis":
		deps.KV = kvredis.NewStore(redisClient, cfg.Storage.QuotaBytes)
	default:
		deps.KV = kv.NewMemory(cfg.Storage.QuotaBytes)
	}

	if cfg.Server.RateLimit > 0 {
		deps.RateLimiter = kvredis.NewLimiter(redisClient)
	}

	// --- PostgreSQL audit trail ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.AuditStore = postgres.NewAuditStore(pgClient.Pool())
	}

	// --- S3 cold archive ---
	if cfg.S3.Enabled {
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

		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), logger)
	}

	return deps, cleanup, nil
}
