// cmd/server/container.go
//
// Composition root for the API server. Owns infrastructure (DB, Redis) and
// the queue client the HTTP handlers enqueue into and read from.
package main

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/juricore/courtsync/pkg/config"
	"github.com/juricore/courtsync/pkg/logx"
	"github.com/juricore/courtsync/pkg/syncx"
	"github.com/juricore/courtsync/pkg/syncx/syncxpg"
	"github.com/juricore/courtsync/pkg/syncx/syncxredis"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// Container holds shared infrastructure and the sync queue client.
type Container struct {
	Config *config.Config

	DB    *sqlx.DB
	Redis *redis.Client

	Sync *syncx.Client
}

func NewContainer(cfg *config.Config) *Container {
	logx.Info("Initializing server container...")

	c := &Container{Config: cfg}

	c.initInfrastructure()
	c.initQueue()

	logx.Info("Server container initialized")
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

	if c.Config.Sync.Backend == "redis" {
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

	// The server only enqueues and reads status; workers run in the worker
	// binary, so no loop options are attached here.
	c.Sync = syncx.NewClient(queue,
		syncx.WithDefaultMaxRetries(c.Config.Sync.MaxRetries),
	)
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
