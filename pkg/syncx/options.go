package syncx

import "time"

type workerOptions struct {
	Concurrency       int
	PollInterval      time.Duration
	ShutdownTimeout   time.Duration
	DefaultMaxRetries int
}

func defaultWorkerOptions() workerOptions {
	return workerOptions{
		Concurrency:       2,
		PollInterval:      2 * time.Second,
		ShutdownTimeout:   30 * time.Second,
		DefaultMaxRetries: 3,
	}
}

// WorkerOption configures the worker loop.
type WorkerOption func(*workerOptions)

// WithConcurrency sets the number of worker goroutines.
func WithConcurrency(n int) WorkerOption {
	return func(o *workerOptions) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

// WithPollInterval sets how long an idle worker sleeps between claim attempts.
func WithPollInterval(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.PollInterval = d
		}
	}
}

// WithShutdownTimeout sets the maximum drain time on shutdown.
func WithShutdownTimeout(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.ShutdownTimeout = d
		}
	}
}

// WithDefaultMaxRetries sets the retry budget applied to jobs enqueued
// without an explicit WithMaxRetries.
func WithDefaultMaxRetries(n int) WorkerOption {
	return func(o *workerOptions) {
		if n > 0 {
			o.DefaultMaxRetries = n
		}
	}
}

// EnqueueOptions configures how a job is enqueued.
type EnqueueOptions struct {
	Priority     int
	ScheduledFor time.Time
	MaxRetries   int
}

// EnqueueOption is a functional option for Enqueue.
type EnqueueOption func(*EnqueueOptions)

// WithPriority sets the job priority (higher claims first).
func WithPriority(priority int) EnqueueOption {
	return func(o *EnqueueOptions) {
		o.Priority = priority
	}
}

// WithDelay schedules the job to become claimable after the given duration.
func WithDelay(d time.Duration) EnqueueOption {
	return func(o *EnqueueOptions) {
		o.ScheduledFor = time.Now().UTC().Add(d)
	}
}

// WithScheduledFor schedules the job to become claimable at a specific time.
func WithScheduledFor(t time.Time) EnqueueOption {
	return func(o *EnqueueOptions) {
		o.ScheduledFor = t
	}
}

// WithMaxRetries sets the retry budget. Default is 3.
func WithMaxRetries(n int) EnqueueOption {
	return func(o *EnqueueOptions) {
		if n >= 0 {
			o.MaxRetries = n
		}
	}
}

func resolveEnqueueOptions(options []EnqueueOption) EnqueueOptions {
	var opts EnqueueOptions
	for _, o := range options {
		o(&opts)
	}
	return opts
}
