package config

import "time"

// SyncConfig configures the background sync queue and worker loop.
type SyncConfig struct {
	Backend         string // "postgres" or "redis"
	Concurrency     int
	PollInterval    time.Duration
	ShutdownTimeout time.Duration
	MaxRetries      int
	RetryBaseDelay  time.Duration
	RetryMaxDelay   time.Duration
}

func loadSyncConfig() SyncConfig {
	return SyncConfig{
		Backend:         getEnv("SYNC_BACKEND", "postgres"),
		Concurrency:     getEnvInt("SYNC_CONCURRENCY", 2),
		PollInterval:    getEnvDuration("SYNC_POLL_INTERVAL", 2*time.Second),
		ShutdownTimeout: getEnvDuration("SYNC_SHUTDOWN_TIMEOUT", 30*time.Second),
		MaxRetries:      getEnvInt("SYNC_MAX_RETRIES", 3),
		RetryBaseDelay:  getEnvDuration("SYNC_RETRY_BASE_DELAY", 5*time.Minute),
		RetryMaxDelay:   getEnvDuration("SYNC_RETRY_MAX_DELAY", 6*time.Hour),
	}
}
