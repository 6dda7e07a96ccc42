// Package syncxmem implements syncx.Queue in process memory. It backs tests
// and single-process local runs; the mutex around every operation gives the
// same claim exclusivity the SQL backend gets from row locking.
package syncxmem

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/juricore/courtsync/pkg/kernel"
	"github.com/juricore/courtsync/pkg/syncx"
)

// MemoryQueue implements syncx.Queue.
type MemoryQueue struct {
	mu     sync.Mutex
	jobs   map[string]*syncx.JobInfo
	order  []string // insertion order, for FIFO tie-break
	policy syncx.RetryPolicy
	now    func() time.Time
}

var _ syncx.Queue = (*MemoryQueue)(nil)

// NewMemoryQueue creates an empty in-memory queue.
func NewMemoryQueue(policy syncx.RetryPolicy) *MemoryQueue {
	return &MemoryQueue{
		jobs:   make(map[string]*syncx.JobInfo),
		policy: policy,
		now:    time.Now,
	}
}

// SetClock overrides the queue's time source. Used in tests.
func (q *MemoryQueue) SetClock(now func() time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.now = now
}

// Enqueue adds a pending job.
func (q *MemoryQueue) Enqueue(_ context.Context, job syncx.Job) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	id := uuid.New().String()
	now := q.now().UTC()

	scheduledFor := job.ScheduledFor
	if scheduledFor.IsZero() {
		scheduledFor = now
	}

	q.jobs[id] = &syncx.JobInfo{
		ID:           id,
		Type:         job.Type,
		Status:       syncx.JobStatusPending,
		Options:      job.Options,
		Priority:     job.Priority,
		ScheduledFor: scheduledFor,
		MaxRetries:   job.MaxRetries,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	q.order = append(q.order, id)
	return id, nil
}

// Claim takes the best eligible pending job: highest priority first, oldest
// created_at among equals.
func (q *MemoryQueue) Claim(_ context.Context, now time.Time) (*syncx.JobInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var best *syncx.JobInfo
	for _, id := range q.order {
		j := q.jobs[id]
		if j.Status != syncx.JobStatusPending || j.ScheduledFor.After(now) {
			continue
		}
		if best == nil || j.Priority > best.Priority {
			best = j
		}
	}
	if best == nil {
		return nil, nil
	}

	started := now
	best.Status = syncx.JobStatusRunning
	best.StartedAt = &started
	best.UpdatedAt = now

	claimed := *best
	return &claimed, nil
}

// Complete marks a running job completed.
func (q *MemoryQueue) Complete(_ context.Context, jobID string, result json.RawMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	j, ok := q.jobs[jobID]
	if !ok {
		return syncx.NotFoundError(jobID)
	}
	if j.Status != syncx.JobStatusRunning {
		return syncx.InvalidTransitionError(jobID, j.Status)
	}

	now := q.now().UTC()
	j.Status = syncx.JobStatusCompleted
	j.CompletedAt = &now
	j.Result = result
	j.UpdatedAt = now
	return nil
}

// Fail increments the retry count and reschedules or terminates the job.
func (q *MemoryQueue) Fail(_ context.Context, jobID string, errMsg string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	j, ok := q.jobs[jobID]
	if !ok {
		return false, syncx.NotFoundError(jobID)
	}
	if j.Status != syncx.JobStatusRunning {
		return false, syncx.InvalidTransitionError(jobID, j.Status)
	}

	now := q.now().UTC()
	j.RetryCount++
	j.ErrorMessage = errMsg
	j.UpdatedAt = now

	if j.RetryCount < j.MaxRetries {
		j.Status = syncx.JobStatusPending
		j.ScheduledFor = now.Add(q.policy.Delay(j.RetryCount))
		j.StartedAt = nil
		return true, nil
	}

	j.Status = syncx.JobStatusFailed
	j.CompletedAt = &now
	return false, nil
}

// FindClaimable returns a copy of the job the next claim would take, without
// transitioning it.
func (q *MemoryQueue) FindClaimable(_ context.Context, now time.Time) (*syncx.JobInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var best *syncx.JobInfo
	for _, id := range q.order {
		j := q.jobs[id]
		if j.Status != syncx.JobStatusPending || j.ScheduledFor.After(now) {
			continue
		}
		if best == nil || j.Priority > best.Priority {
			best = j
		}
	}
	if best == nil {
		return nil, nil
	}
	out := *best
	return &out, nil
}

// GetJob returns a copy of the job.
func (q *MemoryQueue) GetJob(_ context.Context, jobID string) (*syncx.JobInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	j, ok := q.jobs[jobID]
	if !ok {
		return nil, syncx.NotFoundError(jobID)
	}
	out := *j
	return &out, nil
}

// ListJobs returns a page of jobs, newest first.
func (q *MemoryQueue) ListJobs(_ context.Context, filter syncx.JobFilter, page kernel.PaginationOptions) (kernel.Paginated[syncx.JobInfo], error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	page = page.Normalize()

	matched := make([]syncx.JobInfo, 0, len(q.jobs))
	for _, id := range q.order {
		j := q.jobs[id]
		if filter.Status != "" && j.Status != filter.Status {
			continue
		}
		if filter.Type != "" && j.Type != filter.Type {
			continue
		}
		matched = append(matched, *j)
	}
	sort.Slice(matched, func(a, b int) bool {
		return matched[a].CreatedAt.After(matched[b].CreatedAt)
	})

	total := len(matched)
	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.PageSize
	if end > total {
		end = total
	}
	return kernel.NewPaginated(matched[start:end], page.Page, page.PageSize, total), nil
}

// Stats returns queue depth per status.
func (q *MemoryQueue) Stats(_ context.Context) (syncx.Stats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var stats syncx.Stats
	for _, j := range q.jobs {
		switch j.Status {
		case syncx.JobStatusPending:
			stats.Pending++
		case syncx.JobStatusRunning:
			stats.Running++
		case syncx.JobStatusCompleted:
			stats.Completed++
		case syncx.JobStatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}
