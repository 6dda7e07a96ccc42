package config

import "time"

// CourtAPIConfig configures the external judicial-records API client.
//
// The rate budget is the aggregate limit imposed by the provider. When
// RateShared is false each worker process enforces RateLimit/WorkerProcesses
// locally; when true the budget is coordinated through Redis and RateLimit is
// used as-is (see ratexredis).
type CourtAPIConfig struct {
	BaseURL         string
	AuthToken       string
	RequestTimeout  time.Duration
	MaxAttempts     int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	RateLimit       float64 // tokens per second
	RateBurst       int
	RateShared      bool
	WorkerProcesses int
	BreakThreshold  int
	BreakWindow     time.Duration
	BreakCooldown   time.Duration
}

func loadCourtAPIConfig() CourtAPIConfig {
	return CourtAPIConfig{
		BaseURL:         getEnv("COURTAPI_BASE_URL", "https://api.courtrecords.example.com/v4"),
		AuthToken:       getEnv("COURTAPI_AUTH_TOKEN", ""),
		RequestTimeout:  getEnvDuration("COURTAPI_REQUEST_TIMEOUT", 30*time.Second),
		MaxAttempts:     getEnvInt("COURTAPI_MAX_ATTEMPTS", 4),
		BaseDelay:       getEnvDuration("COURTAPI_BASE_DELAY", time.Second),
		MaxDelay:        getEnvDuration("COURTAPI_MAX_DELAY", time.Minute),
		RateLimit:       getEnvFloat("COURTAPI_RATE_LIMIT", 1.0),
		RateBurst:       getEnvInt("COURTAPI_RATE_BURST", 5),
		RateShared:      getEnvBool("COURTAPI_RATE_SHARED", false),
		WorkerProcesses: getEnvInt("COURTAPI_WORKER_PROCESSES", 1),
		BreakThreshold:  getEnvInt("COURTAPI_BREAK_THRESHOLD", 5),
		BreakWindow:     getEnvDuration("COURTAPI_BREAK_WINDOW", time.Minute),
		BreakCooldown:   getEnvDuration("COURTAPI_BREAK_COOLDOWN", 2*time.Minute),
	}
}

// LocalRate returns the per-process token refill rate for mode (a),
// dividing the aggregate budget across expected worker processes.
func (c CourtAPIConfig) LocalRate() float64 {
	if c.RateShared || c.WorkerProcesses <= 1 {
		return c.RateLimit
	}
	return c.RateLimit / float64(c.WorkerProcesses)
}
