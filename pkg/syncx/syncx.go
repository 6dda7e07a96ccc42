// Package syncx is the queue manager for the background synchronization
// pipeline: it owns the sync-job state machine, the worker loop, and the
// handler registry. Persistence backends live in the syncxpg, syncxredis and
// syncxmem subpackages; all cross-process coordination happens through the
// backend's atomic claim.
package syncx

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/juricore/courtsync/pkg/kernel"
	"github.com/juricore/courtsync/pkg/logx"
)

// HandlerFunc processes one claimed job. The returned payload is stored as
// the job's result on success; a non-nil error triggers the job-level retry.
type HandlerFunc func(ctx context.Context, job *JobInfo) (json.RawMessage, error)

// Enqueuer enqueues jobs for processing.
type Enqueuer interface {
	Enqueue(ctx context.Context, job Job) (string, error)
}

// StatusReader reads job state for callers and dashboards.
type StatusReader interface {
	GetJob(ctx context.Context, jobID string) (*JobInfo, error)
	ListJobs(ctx context.Context, filter JobFilter, page kernel.PaginationOptions) (kernel.Paginated[JobInfo], error)
	Stats(ctx context.Context) (Stats, error)

	// FindClaimable returns the job the next claim would take, without
	// taking it: the highest-priority pending job whose scheduled_for is
	// due, FIFO on created_at among equals. Read-only diagnostic; nil when
	// nothing is due.
	FindClaimable(ctx context.Context, now time.Time) (*JobInfo, error)
}

// Processor provides the backend operations driven by the worker loop.
type Processor interface {
	// Claim atomically takes ownership of the highest-priority pending job
	// whose scheduled_for is due, transitioning it to running. Returns nil
	// when nothing is claimable. Exactly one concurrent claimant wins any
	// given job; losers receive a different job or nil, never an error.
	Claim(ctx context.Context, now time.Time) (*JobInfo, error)

	// Complete marks a running job completed and stores its result.
	Complete(ctx context.Context, jobID string, result json.RawMessage) error

	// Fail records a handler failure on a running job: it increments
	// retry_count and either reschedules the job (pending, future
	// scheduled_for per the backend's RetryPolicy) or terminates it as
	// failed once retries are spent. Returns whether the job was
	// rescheduled.
	Fail(ctx context.Context, jobID string, errMsg string) (retried bool, err error)
}

// Queue combines all backend operations.
type Queue interface {
	Enqueuer
	StatusReader
	Processor
}

// Client is the entry point for enqueuing jobs and running the worker loop.
type Client struct {
	queue    Queue
	opts     workerOptions
	handlers map[string]HandlerFunc
	metrics  Metrics
	mu       sync.RWMutex
	running  bool
}

// NewClient creates a new sync client over the given backend.
func NewClient(queue Queue, options ...WorkerOption) *Client {
	opts := defaultWorkerOptions()
	for _, o := range options {
		o(&opts)
	}
	return &Client{
		queue:    queue,
		opts:     opts,
		handlers: make(map[string]HandlerFunc),
	}
}

// Register adds a handler for a job type.
func (c *Client) Register(jobType string, handler HandlerFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[jobType] = handler
}

// Enqueue creates a job of the given type. The payload must marshal to JSON;
// priority, schedule and retry budget come from options.
func (c *Client) Enqueue(ctx context.Context, jobType string, payload any, options ...EnqueueOption) (string, error) {
	if jobType == "" {
		return "", syncxErrors.New(ErrInvalidJob).WithDetail("reason", "empty job type")
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", syncxErrors.NewWithCause(ErrInvalidJob, err).WithDetail("job_type", jobType)
	}

	opts := resolveEnqueueOptions(options)
	job := Job{
		Type:         jobType,
		Options:      raw,
		Priority:     opts.Priority,
		ScheduledFor: opts.ScheduledFor,
		MaxRetries:   opts.MaxRetries,
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = c.opts.DefaultMaxRetries
	}

	return c.queue.Enqueue(ctx, job)
}

// GetJob returns the current state of a job.
func (c *Client) GetJob(ctx context.Context, jobID string) (*JobInfo, error) {
	return c.queue.GetJob(ctx, jobID)
}

// ListJobs returns a page of jobs matching the filter.
func (c *Client) ListJobs(ctx context.Context, filter JobFilter, page kernel.PaginationOptions) (kernel.Paginated[JobInfo], error) {
	return c.queue.ListJobs(ctx, filter, page)
}

// FindClaimable returns the job the next claim would take, without taking it.
func (c *Client) FindClaimable(ctx context.Context, now time.Time) (*JobInfo, error) {
	return c.queue.FindClaimable(ctx, now)
}

// QueueStats returns queue depth per status from the backend.
func (c *Client) QueueStats(ctx context.Context) (Stats, error) {
	return c.queue.Stats(ctx)
}

// WorkerMetrics returns the in-process worker counters.
func (c *Client) WorkerMetrics() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// Start runs the worker loop until ctx is cancelled. It is safe to run one
// Start per process and any number of processes against the same backend:
// job exclusivity comes from the backend's atomic claim, not from in-process
// state.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return syncxErrors.New(ErrAlreadyRunning)
	}
	c.running = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	logx.Infof("syncx: starting %d workers (poll interval %s)", c.opts.Concurrency, c.opts.PollInterval)

	var wg sync.WaitGroup
	for i := 0; i < c.opts.Concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c.workerLoop(ctx, id)
		}(i)
	}

	<-ctx.Done()
	logx.Info("syncx: shutting down workers...")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logx.Info("syncx: all workers stopped")
	case <-time.After(c.opts.ShutdownTimeout):
		logx.Warn("syncx: shutdown timed out, some jobs may still be running")
	}

	return nil
}

// workerLoop claims and processes jobs until ctx is done. Store
// unavailability during claim is transient: the loop backs off for a poll
// interval and tries again rather than crashing.
func (c *Client) workerLoop(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := c.queue.Claim(ctx, time.Now().UTC())
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logx.WithError(err).Warnf("syncx: worker %d claim error", id)
			c.idle(ctx)
			continue
		}
		if job == nil {
			c.idle(ctx)
			continue
		}

		c.metrics.claimed.Add(1)
		c.processJob(ctx, id, job)
	}
}

func (c *Client) idle(ctx context.Context) {
	t := time.NewTimer(c.opts.PollInterval)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// processJob dispatches to the registered handler and reports the outcome.
// Handler errors always funnel into Fail, never silently swallowed; the
// backend alone decides retry-vs-terminal from the retry budget.
func (c *Client) processJob(ctx context.Context, workerID int, job *JobInfo) {
	c.mu.RLock()
	handler, ok := c.handlers[job.Type]
	c.mu.RUnlock()

	log := logx.WithFields(logx.Fields{
		"worker":   workerID,
		"job_id":   job.ID,
		"job_type": job.Type,
	})

	if !ok {
		log.Warn("syncx: no handler registered")
		if _, err := c.queue.Fail(ctx, job.ID, "no handler registered for job type"); err != nil {
			log.WithError(err).Error("syncx: failed to mark job failed")
		}
		c.metrics.failed.Add(1)
		return
	}

	result, err := handler(ctx, job)
	if err != nil {
		log.WithError(err).Warn("syncx: job failed")
		retried, failErr := c.queue.Fail(ctx, job.ID, err.Error())
		if failErr != nil {
			log.WithError(failErr).Error("syncx: failed to record job failure")
			return
		}
		if retried {
			c.metrics.retried.Add(1)
		} else {
			c.metrics.failed.Add(1)
		}
		return
	}

	if err := c.queue.Complete(ctx, job.ID, result); err != nil {
		log.WithError(err).Error("syncx: failed to complete job")
		return
	}
	c.metrics.completed.Add(1)
	log.Debug("syncx: job completed")
}
