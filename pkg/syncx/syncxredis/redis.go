// Package syncxredis implements syncx.Queue on Redis, for deployments
// without a relational store. Eligible jobs live in a ready ZSET whose score
// orders by priority (descending) then creation time (FIFO); ZPOPMIN hands
// each job to exactly one claimant, which is the optimistic equivalent of the
// SQL backend's locking select. Future jobs wait in a scheduled ZSET and are
// promoted as their time comes due.
package syncxredis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/juricore/courtsync/pkg/kernel"
	"github.com/juricore/courtsync/pkg/syncx"
	"github.com/redis/go-redis/v9"
)

const (
	jobKeyPrefix = "sync:job:"
	readyKey     = "sync:ready"
	scheduledKey = "sync:scheduled"
	indexKey     = "sync:index"
	statsKey     = "sync:stats"
)

func jobKey(id string) string { return jobKeyPrefix + id }

// promoteScript moves due jobs from the scheduled set to the ready set.
// KEYS = {scheduled, ready}, ARGV = {nowMs, limit}. Members carry their ready
// score piggybacked as "<id>|<readyScore>".
var promoteScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
for _, member in ipairs(due) do
  local sep = string.find(member, '|', 1, true)
  local id = string.sub(member, 1, sep - 1)
  local score = string.sub(member, sep + 1)
  redis.call('ZADD', KEYS[2], score, id)
  redis.call('ZREM', KEYS[1], member)
end
return #due
`)

// RedisQueue implements syncx.Queue.
type RedisQueue struct {
	rdb    *redis.Client
	policy syncx.RetryPolicy
}

var _ syncx.Queue = (*RedisQueue)(nil)

// NewRedisQueue creates a Redis-backed queue with the given retry policy.
func NewRedisQueue(rdb *redis.Client, policy syncx.RetryPolicy) *RedisQueue {
	return &RedisQueue{rdb: rdb, policy: policy}
}

// readyScore orders claims: higher priority first, FIFO within a priority.
func readyScore(priority int, createdAt time.Time) float64 {
	return float64(-priority)*1e13 + float64(createdAt.UnixMilli())
}

func scheduledMember(id string, priority int, createdAt time.Time) string {
	return fmt.Sprintf("%s|%v", id, readyScore(priority, createdAt))
}

// Enqueue stores the job and places it in the ready or scheduled set.
func (q *RedisQueue) Enqueue(ctx context.Context, job syncx.Job) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	scheduledFor := job.ScheduledFor
	if scheduledFor.IsZero() {
		scheduledFor = now
	}

	info := syncx.JobInfo{
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

	data, err := json.Marshal(info)
	if err != nil {
		return "", redisErrors.NewWithCause(ErrMarshal, err)
	}

	pipe := q.rdb.Pipeline()
	pipe.Set(ctx, jobKey(id), data, 0)
	pipe.ZAdd(ctx, indexKey, redis.Z{Score: float64(now.UnixMilli()), Member: id})
	pipe.HIncrBy(ctx, statsKey, string(syncx.JobStatusPending), 1)
	if scheduledFor.After(now) {
		pipe.ZAdd(ctx, scheduledKey, redis.Z{
			Score:  float64(scheduledFor.UnixMilli()),
			Member: scheduledMember(id, job.Priority, now),
		})
	} else {
		pipe.ZAdd(ctx, readyKey, redis.Z{Score: readyScore(job.Priority, now), Member: id})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return "", redisErrors.NewWithCause(ErrEnqueue, err).WithDetail("job_type", job.Type)
	}

	return id, nil
}

// Claim promotes due scheduled jobs, then pops the best ready job. ZPOPMIN
// is atomic, so two claimants can never receive the same ID.
func (q *RedisQueue) Claim(ctx context.Context, now time.Time) (*syncx.JobInfo, error) {
	if err := promoteScript.Run(ctx, q.rdb, []string{scheduledKey, readyKey}, now.UnixMilli(), 100).Err(); err != nil && err != redis.Nil {
		return nil, redisErrors.NewWithCause(ErrClaim, err)
	}

	popped, err := q.rdb.ZPopMin(ctx, readyKey, 1).Result()
	if err != nil && err != redis.Nil {
		return nil, redisErrors.NewWithCause(ErrClaim, err)
	}
	if len(popped) == 0 {
		return nil, nil
	}
	jobID := popped[0].Member.(string)

	info, err := q.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	started := now.UTC()
	info.Status = syncx.JobStatusRunning
	info.StartedAt = &started
	info.UpdatedAt = started

	if err := q.putJob(ctx, info, syncx.JobStatusPending); err != nil {
		return nil, err
	}
	return info, nil
}

// Complete marks a running job completed and stores its result.
func (q *RedisQueue) Complete(ctx context.Context, jobID string, result json.RawMessage) error {
	info, err := q.getJob(ctx, jobID)
	if err != nil {
		return err
	}
	if info.Status != syncx.JobStatusRunning {
		return syncx.InvalidTransitionError(jobID, info.Status)
	}

	now := time.Now().UTC()
	info.Status = syncx.JobStatusCompleted
	info.CompletedAt = &now
	info.Result = result
	info.UpdatedAt = now
	return q.putJob(ctx, info, syncx.JobStatusRunning)
}

// Fail increments the retry count and either schedules the job back into the
// scheduled set or terminates it as failed.
func (q *RedisQueue) Fail(ctx context.Context, jobID string, errMsg string) (bool, error) {
	info, err := q.getJob(ctx, jobID)
	if err != nil {
		return false, err
	}
	if info.Status != syncx.JobStatusRunning {
		return false, syncx.InvalidTransitionError(jobID, info.Status)
	}

	now := time.Now().UTC()
	info.RetryCount++
	info.ErrorMessage = errMsg
	info.UpdatedAt = now

	if info.RetryCount < info.MaxRetries {
		info.Status = syncx.JobStatusPending
		info.ScheduledFor = now.Add(q.policy.Delay(info.RetryCount))
		info.StartedAt = nil

		data, err := json.Marshal(info)
		if err != nil {
			return false, redisErrors.NewWithCause(ErrMarshal, err).WithDetail("job_id", jobID)
		}

		// One round-trip for the blob, the counters and the scheduled-set
		// entry, so a crash cannot leave a pending job outside both sets.
		pipe := q.rdb.Pipeline()
		pipe.Set(ctx, jobKey(jobID), data, 0)
		pipe.HIncrBy(ctx, statsKey, string(syncx.JobStatusRunning), -1)
		pipe.HIncrBy(ctx, statsKey, string(syncx.JobStatusPending), 1)
		pipe.ZAdd(ctx, scheduledKey, redis.Z{
			Score:  float64(info.ScheduledFor.UnixMilli()),
			Member: scheduledMember(jobID, info.Priority, info.CreatedAt),
		})
		if _, err := pipe.Exec(ctx); err != nil {
			return false, redisErrors.NewWithCause(ErrFail, err).WithDetail("job_id", jobID)
		}
		return true, nil
	}

	info.Status = syncx.JobStatusFailed
	info.CompletedAt = &now
	if err := q.putJob(ctx, info, syncx.JobStatusRunning); err != nil {
		return false, err
	}
	return false, nil
}

// FindClaimable returns the job the next claim would take, without popping
// it. It peeks the head of the ready set and the best due entry still in the
// scheduled set, and keeps the lower ready score.
func (q *RedisQueue) FindClaimable(ctx context.Context, now time.Time) (*syncx.JobInfo, error) {
	var bestID string
	var bestScore float64

	ready, err := q.rdb.ZRangeWithScores(ctx, readyKey, 0, 0).Result()
	if err != nil && err != redis.Nil {
		return nil, redisErrors.NewWithCause(ErrQuery, err)
	}
	if len(ready) > 0 {
		bestID = ready[0].Member.(string)
		bestScore = ready[0].Score
	}

	due, err := q.rdb.ZRangeByScore(ctx, scheduledKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: 100,
	}).Result()
	if err != nil && err != redis.Nil {
		return nil, redisErrors.NewWithCause(ErrQuery, err)
	}
	for _, member := range due {
		sep := strings.IndexByte(member, '|')
		if sep < 0 {
			continue
		}
		score, perr := strconv.ParseFloat(member[sep+1:], 64)
		if perr != nil {
			continue
		}
		if bestID == "" || score < bestScore {
			bestID = member[:sep]
			bestScore = score
		}
	}

	if bestID == "" {
		return nil, nil
	}
	return q.getJob(ctx, bestID)
}

// GetJob retrieves job info by ID.
func (q *RedisQueue) GetJob(ctx context.Context, jobID string) (*syncx.JobInfo, error) {
	return q.getJob(ctx, jobID)
}

// ListJobs walks the creation-time index newest first. Filters load each
// candidate, so large pages over a huge index are better served by the
// Postgres backend.
func (q *RedisQueue) ListJobs(ctx context.Context, filter syncx.JobFilter, page kernel.PaginationOptions) (kernel.Paginated[syncx.JobInfo], error) {
	page = page.Normalize()

	ids, err := q.rdb.ZRevRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return kernel.Paginated[syncx.JobInfo]{}, redisErrors.NewWithCause(ErrQuery, err)
	}

	matched := make([]syncx.JobInfo, 0, len(ids))
	for _, id := range ids {
		info, err := q.getJob(ctx, id)
		if err != nil {
			if syncx.IsNotFound(err) {
				continue
			}
			return kernel.Paginated[syncx.JobInfo]{}, err
		}
		if filter.Status != "" && info.Status != filter.Status {
			continue
		}
		if filter.Type != "" && info.Type != filter.Type {
			continue
		}
		matched = append(matched, *info)
	}

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

// Stats reads the status counters maintained on every transition.
func (q *RedisQueue) Stats(ctx context.Context) (syncx.Stats, error) {
	counts, err := q.rdb.HGetAll(ctx, statsKey).Result()
	if err != nil {
		return syncx.Stats{}, redisErrors.NewWithCause(ErrQuery, err)
	}

	var stats syncx.Stats
	for status, raw := range counts {
		var n int64
		fmt.Sscanf(raw, "%d", &n)
		switch syncx.JobStatus(status) {
		case syncx.JobStatusPending:
			stats.Pending = n
		case syncx.JobStatusRunning:
			stats.Running = n
		case syncx.JobStatusCompleted:
			stats.Completed = n
		case syncx.JobStatusFailed:
			stats.Failed = n
		}
	}
	return stats, nil
}

func (q *RedisQueue) getJob(ctx context.Context, jobID string) (*syncx.JobInfo, error) {
	data, err := q.rdb.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, syncx.NotFoundError(jobID)
		}
		return nil, redisErrors.NewWithCause(ErrQuery, err).WithDetail("job_id", jobID)
	}

	var info syncx.JobInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, redisErrors.NewWithCause(ErrUnmarshal, err).WithDetail("job_id", jobID)
	}
	return &info, nil
}

// putJob persists the job and moves the status counter from prev to the
// job's current status.
func (q *RedisQueue) putJob(ctx context.Context, info *syncx.JobInfo, prev syncx.JobStatus) error {
	data, err := json.Marshal(info)
	if err != nil {
		return redisErrors.NewWithCause(ErrMarshal, err).WithDetail("job_id", info.ID)
	}

	pipe := q.rdb.Pipeline()
	pipe.Set(ctx, jobKey(info.ID), data, 0)
	if prev != info.Status {
		pipe.HIncrBy(ctx, statsKey, string(prev), -1)
		pipe.HIncrBy(ctx, statsKey, string(info.Status), 1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return redisErrors.NewWithCause(ErrQuery, err).WithDetail("job_id", info.ID)
	}
	return nil
}
