// Package syncxpg implements syncx.Queue on PostgreSQL. Claiming uses
// SELECT ... FOR UPDATE SKIP LOCKED so concurrent claimants never queue
// behind each other: a row being claimed by one worker is invisible to the
// rest within the same atomic attempt.
package syncxpg

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/juricore/courtsync/pkg/kernel"
	"github.com/juricore/courtsync/pkg/syncx"
)

// PostgresQueue implements syncx.Queue.
type PostgresQueue struct {
	db     *sqlx.DB
	policy syncx.RetryPolicy
}

var _ syncx.Queue = (*PostgresQueue)(nil)

// NewPostgresQueue creates a Postgres-backed queue with the given job-level
// retry policy.
func NewPostgresQueue(db *sqlx.DB, policy syncx.RetryPolicy) *PostgresQueue {
	return &PostgresQueue{db: db, policy: policy}
}

// jobRow is the persistence shape of a sync job.
type jobRow struct {
	ID           string     `db:"id"`
	Type         string     `db:"type"`
	Status       string     `db:"status"`
	Options      []byte     `db:"options"`
	Priority     int        `db:"priority"`
	ScheduledFor time.Time  `db:"scheduled_for"`
	StartedAt    *time.Time `db:"started_at"`
	CompletedAt  *time.Time `db:"completed_at"`
	Result       []byte     `db:"result"`
	ErrorMessage *string    `db:"error_message"`
	RetryCount   int        `db:"retry_count"`
	MaxRetries   int        `db:"max_retries"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

func (r jobRow) toDomain() *syncx.JobInfo {
	info := &syncx.JobInfo{
		ID:           r.ID,
		Type:         r.Type,
		Status:       syncx.JobStatus(r.Status),
		Options:      json.RawMessage(r.Options),
		Priority:     r.Priority,
		ScheduledFor: r.ScheduledFor,
		StartedAt:    r.StartedAt,
		CompletedAt:  r.CompletedAt,
		Result:       json.RawMessage(r.Result),
		RetryCount:   r.RetryCount,
		MaxRetries:   r.MaxRetries,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.ErrorMessage != nil {
		info.ErrorMessage = *r.ErrorMessage
	}
	return info
}

// Enqueue inserts a new pending job and returns its ID.
func (q *PostgresQueue) Enqueue(ctx context.Context, job syncx.Job) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	scheduledFor := job.ScheduledFor
	if scheduledFor.IsZero() {
		scheduledFor = now
	}
	options := job.Options
	if len(options) == 0 {
		options = json.RawMessage(`{}`)
	}

	const query = `
		INSERT INTO sync_jobs (id, type, status, options, priority, scheduled_for, max_retries, created_at, updated_at)
		VALUES ($1, $2, 'pending', $3, $4, $5, $6, $7, $7)`

	if _, err := q.db.ExecContext(ctx, query, id, job.Type, []byte(options), job.Priority, scheduledFor, job.MaxRetries, now); err != nil {
		return "", pgErrors.NewWithCause(ErrEnqueue, err).WithDetail("job_type", job.Type)
	}
	return id, nil
}

// Claim atomically takes the best eligible pending job. Highest priority
// wins; equal priority falls back to FIFO on created_at.
func (q *PostgresQueue) Claim(ctx context.Context, now time.Time) (*syncx.JobInfo, error) {
	tx, err := q.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, pgErrors.NewWithCause(ErrClaim, err)
	}
	defer tx.Rollback()

	const selectQuery = `
		SELECT * FROM sync_jobs
		WHERE status = 'pending' AND scheduled_for <= $1
		ORDER BY priority DESC, created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED`

	var row jobRow
	if err := tx.GetContext(ctx, &row, selectQuery, now); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, pgErrors.NewWithCause(ErrClaim, err)
	}

	const updateQuery = `
		UPDATE sync_jobs
		SET status = 'running', started_at = $1, updated_at = $1
		WHERE id = $2`

	if _, err := tx.ExecContext(ctx, updateQuery, now, row.ID); err != nil {
		return nil, pgErrors.NewWithCause(ErrClaim, err).WithDetail("job_id", row.ID)
	}
	if err := tx.Commit(); err != nil {
		return nil, pgErrors.NewWithCause(ErrClaim, err)
	}

	row.Status = string(syncx.JobStatusRunning)
	row.StartedAt = &now
	row.UpdatedAt = now
	return row.toDomain(), nil
}

// Complete transitions a running job to completed. Any other starting state
// is an invalid transition.
func (q *PostgresQueue) Complete(ctx context.Context, jobID string, result json.RawMessage) error {
	now := time.Now().UTC()

	const query = `
		UPDATE sync_jobs
		SET status = 'completed', completed_at = $1, updated_at = $1, result = $2
		WHERE id = $3 AND status = 'running'`

	var resultArg interface{}
	if len(result) > 0 {
		resultArg = []byte(result)
	}

	res, err := q.db.ExecContext(ctx, query, now, resultArg, jobID)
	if err != nil {
		return pgErrors.NewWithCause(ErrComplete, err).WithDetail("job_id", jobID)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return pgErrors.NewWithCause(ErrComplete, err).WithDetail("job_id", jobID)
	}
	if rows == 0 {
		// Zero affected rows means the job was not running: distinguish a
		// missing job from a transition-guard rejection.
		var status string
		if getErr := q.db.GetContext(ctx, &status, `SELECT status FROM sync_jobs WHERE id = $1`, jobID); getErr != nil {
			if getErr == sql.ErrNoRows {
				return syncx.NotFoundError(jobID)
			}
			return pgErrors.NewWithCause(ErrComplete, getErr).WithDetail("job_id", jobID)
		}
		return syncx.InvalidTransitionError(jobID, syncx.JobStatus(status))
	}
	return nil
}

// Fail increments the retry count on a running job and either reschedules it
// into the future or terminates it as failed once the budget is spent. The
// guard on status makes Fail on an already-terminal job an invalid
// transition, not a silent state change.
func (q *PostgresQueue) Fail(ctx context.Context, jobID string, errMsg string) (bool, error) {
	tx, err := q.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, pgErrors.NewWithCause(ErrFail, err)
	}
	defer tx.Rollback()

	var row jobRow
	if err := tx.GetContext(ctx, &row, `SELECT * FROM sync_jobs WHERE id = $1 FOR UPDATE`, jobID); err != nil {
		if err == sql.ErrNoRows {
			return false, syncx.NotFoundError(jobID)
		}
		return false, pgErrors.NewWithCause(ErrFail, err).WithDetail("job_id", jobID)
	}
	if row.Status != string(syncx.JobStatusRunning) {
		return false, syncx.InvalidTransitionError(jobID, syncx.JobStatus(row.Status))
	}

	now := time.Now().UTC()
	retryCount := row.RetryCount + 1

	if retryCount < row.MaxRetries {
		retryAt := now.Add(q.policy.Delay(retryCount))
		const retryQuery = `
			UPDATE sync_jobs
			SET status = 'pending', retry_count = $1, scheduled_for = $2,
			    started_at = NULL, error_message = $3, updated_at = $4
			WHERE id = $5`
		if _, err := tx.ExecContext(ctx, retryQuery, retryCount, retryAt, errMsg, now, jobID); err != nil {
			return false, pgErrors.NewWithCause(ErrFail, err).WithDetail("job_id", jobID)
		}
		if err := tx.Commit(); err != nil {
			return false, pgErrors.NewWithCause(ErrFail, err)
		}
		return true, nil
	}

	const failQuery = `
		UPDATE sync_jobs
		SET status = 'failed', retry_count = $1, completed_at = $2,
		    error_message = $3, updated_at = $2
		WHERE id = $4`
	if _, err := tx.ExecContext(ctx, failQuery, retryCount, now, errMsg, jobID); err != nil {
		return false, pgErrors.NewWithCause(ErrFail, err).WithDetail("job_id", jobID)
	}
	if err := tx.Commit(); err != nil {
		return false, pgErrors.NewWithCause(ErrFail, err)
	}
	return false, nil
}

// FindClaimable returns the job the next claim would take, without locking
// or transitioning it. Same predicate and order as Claim.
func (q *PostgresQueue) FindClaimable(ctx context.Context, now time.Time) (*syncx.JobInfo, error) {
	const query = `
		SELECT * FROM sync_jobs
		WHERE status = 'pending' AND scheduled_for <= $1
		ORDER BY priority DESC, created_at ASC
		LIMIT 1`

	var row jobRow
	if err := q.db.GetContext(ctx, &row, query, now); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, pgErrors.NewWithCause(ErrQuery, err)
	}
	return row.toDomain(), nil
}

// GetJob returns a job by ID.
func (q *PostgresQueue) GetJob(ctx context.Context, jobID string) (*syncx.JobInfo, error) {
	var row jobRow
	if err := q.db.GetContext(ctx, &row, `SELECT * FROM sync_jobs WHERE id = $1`, jobID); err != nil {
		if err == sql.ErrNoRows {
			return nil, syncx.NotFoundError(jobID)
		}
		return nil, pgErrors.NewWithCause(ErrQuery, err).WithDetail("job_id", jobID)
	}
	return row.toDomain(), nil
}

// ListJobs returns a page of jobs, newest first, matching the filter.
func (q *PostgresQueue) ListJobs(ctx context.Context, filter syncx.JobFilter, page kernel.PaginationOptions) (kernel.Paginated[syncx.JobInfo], error) {
	page = page.Normalize()

	where := " WHERE 1=1"
	args := []interface{}{}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where += " AND status = $" + itoa(len(args))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		where += " AND type = $" + itoa(len(args))
	}

	var total int
	if err := q.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM sync_jobs"+where, args...); err != nil {
		return kernel.Paginated[syncx.JobInfo]{}, pgErrors.NewWithCause(ErrQuery, err)
	}

	args = append(args, page.PageSize, page.Offset())
	query := "SELECT * FROM sync_jobs" + where +
		" ORDER BY created_at DESC LIMIT $" + itoa(len(args)-1) + " OFFSET $" + itoa(len(args))

	var rows []jobRow
	if err := q.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return kernel.Paginated[syncx.JobInfo]{}, pgErrors.NewWithCause(ErrQuery, err)
	}

	items := make([]syncx.JobInfo, 0, len(rows))
	for _, r := range rows {
		items = append(items, *r.toDomain())
	}
	return kernel.NewPaginated(items, page.Page, page.PageSize, total), nil
}

// Stats returns queue depth per status.
func (q *PostgresQueue) Stats(ctx context.Context) (syncx.Stats, error) {
	rows, err := q.db.QueryxContext(ctx, `SELECT status, COUNT(*) FROM sync_jobs GROUP BY status`)
	if err != nil {
		return syncx.Stats{}, pgErrors.NewWithCause(ErrQuery, err)
	}
	defer rows.Close()

	var stats syncx.Stats
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return syncx.Stats{}, pgErrors.NewWithCause(ErrQuery, err)
		}
		switch syncx.JobStatus(status) {
		case syncx.JobStatusPending:
			stats.Pending = count
		case syncx.JobStatusRunning:
			stats.Running = count
		case syncx.JobStatusCompleted:
			stats.Completed = count
		case syncx.JobStatusFailed:
			stats.Failed = count
		}
	}
	return stats, rows.Err()
}

func itoa(n int) string { return strconv.Itoa(n) }
