// cmd/worker/container.go
//
// Composition root for the sync worker. Owns infrastructure (DB, Redis), the
// rate-limited court API client, and the queue client the worker loop runs on.
package main

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/juricore/courtsync/pkg/breakx"
	"github.com/juricore/courtsync/pkg/config"
	"github.com/juricore/courtsync/pkg/courtapi"
	"github.com/juricore/courtsync/pkg/ingest"
	"github.com/juricore/courtsync/pkg/ingest/ingestpg"
	"github.com/juricore/courtsync/pkg/logx"
	"github.com/juricore/courtsync/pkg/ratex"
	"github.com/juricore/courtsync/pkg/ratex/ratexredis"
	"github.com/juricore/courtsync/pkg/syncx"
	"github.com/juricore/courtsync/pkg/syncx/syncxpg"
	"github.com/juricore/courtsync/pkg/syncx/syncxredis"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// Container holds shared infrastructure and the composed sync pipeline.
type Container struct {
	Config *config.Config

	DB    *sqlx.DB
	Redis *redis.Client

	API    *courtapi.Client
	Syncer *ingest.Syncer
	Sync   *syncx.Client
}

func NewContainer(cfg *config.Config) *Container {
	logx.Info("Initializing worker container...")

	c := &Container{Config: cfg}

	c.initInfrastructure()
	c.initAPIClient()
	c.initQueue()

	logx.Info("Worker container initialized")
	return c
}

func (c *Container) initInfrastructure() {
	db, err := sqlx.Connect("postgres", c.Config.Database.DSN())
	if err != nil {
		logx.Fatalf("Failed to connect to database: %v", err)
	}
	db.SetMaxOpenConns(c.Config.Database.MaxOpenConns)
	db.SetMaxIdleConns(c.Config.Database.MaxIdleConns)
	db.SetConnMaxLifetime(c.Config.Database.ConnMaxLifetime)
	c.DB = db
	logx.Info("Database connected")

	if c.Config.Sync.Backend == "redis" || c.Config.CourtAPI.RateShared {
		c.Redis = redis.NewClient(&redis.Options{
			Addr:     c.Config.Redis.Address(),
			Password: c.Config.Redis.Password,
			DB:       c.Config.Redis.DB,
		})
		if _, err := c.Redis.Ping(context.Background()).Result(); err != nil {
			logx.Fatalf("Failed to connect to Redis: %v", err)
		}
		logx.Info("Redis connected")
	}
}

// initAPIClient assembles the court API client: rate limiter, circuit
// breaker, retry budget and timeouts all come from CourtAPIConfig.
func (c *Container) initAPIClient() {
	api := c.Config.CourtAPI

	var limiter ratex.Acquirer
	if api.RateShared {
		// Fixed 10s window keeps fractional per-second budgets meaningful.
		window := 10 * time.Second
		limit := int64(api.RateLimit * window.Seconds())
		if limit < 1 {
			limit = 1
		}
		limiter = ratexredis.New(c.Redis, "courtapi", limit, window)
		logx.Infof("Court API rate limit: %d req / %s shared via Redis", limit, window)
	} else {
		rate := api.LocalRate()
		limiter = ratex.NewLimiter(rate, api.RateBurst)
		logx.Infof("Court API rate limit: %.2f req/s per process (burst %d)", rate, api.RateBurst)
	}

	breaker := breakx.NewBreaker(
		breakx.WithFailureThreshold(api.BreakThreshold),
		breakx.WithWindow(api.BreakWindow),
		breakx.WithCooldown(api.BreakCooldown),
	)

	c.API = courtapi.NewClient(api.BaseURL, api.AuthToken,
		courtapi.WithTimeout(api.RequestTimeout),
		courtapi.WithLimiter(limiter),
		courtapi.WithBreaker(breaker),
		courtapi.WithMaxAttempts(api.MaxAttempts),
		courtapi.WithBackoff(api.BaseDelay, api.MaxDelay),
	)
}

func (c *Container) initQueue() {
	policy := syncx.RetryPolicy{
		BaseDelay: c.Config.Sync.RetryBaseDelay,
		MaxDelay:  c.Config.Sync.RetryMaxDelay,
		Jitter:    0.25,
	}

	var queue syncx.Queue
	switch c.Config.Sync.Backend {
	case "redis":
		queue = syncxredis.NewRedisQueue(c.Redis, policy)
		logx.Info("Sync queue backend: redis")
	case "postgres":
		if err := syncxpg.EnsureSchema(context.Background(), c.DB); err != nil {
			logx.Fatalf("Failed to ensure sync schema: %v", err)
		}
		queue = syncxpg.NewPostgresQueue(c.DB, policy)
		logx.Info("Sync queue backend: postgres")
	default:
		logx.Fatalf("Unknown SYNC_BACKEND: %s (use 'postgres' or 'redis')", c.Config.Sync.Backend)
	}

	if err := ingestpg.EnsureSchema(context.Background(), c.DB); err != nil {
		logx.Fatalf("Failed to ensure record schema: %v", err)
	}

	c.Sync = syncx.NewClient(queue,
		syncx.WithConcurrency(c.Config.Sync.Concurrency),
		syncx.WithPollInterval(c.Config.Sync.PollInterval),
		syncx.WithShutdownTimeout(c.Config.Sync.ShutdownTimeout),
		syncx.WithDefaultMaxRetries(c.Config.Sync.MaxRetries),
	)

	c.Syncer = ingest.NewSyncer(c.API, ingestpg.NewPostgresStore(c.DB))
	c.Syncer.RegisterHandlers(c.Sync)
}

func (c *Container) Cleanup() {
	logx.Info("Cleaning up resources...")

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("Error closing database: %v", err)
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("Error closing Redis: %v", err)
		}
	}

	logx.Info("Cleanup complete")
}
