package syncxpg

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// schema is the job table owned by this backend. The claim index matches the
// claim query's predicate and ordering so SKIP LOCKED scans stay cheap.
const schema = `
CREATE TABLE IF NOT EXISTS sync_jobs (
	id            UUID PRIMARY KEY,
	type          TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	options       JSONB NOT NULL DEFAULT '{}',
	priority      INT NOT NULL DEFAULT 0,
	scheduled_for TIMESTAMPTZ NOT NULL DEFAULT now(),
	started_at    TIMESTAMPTZ,
	completed_at  TIMESTAMPTZ,
	result        JSONB,
	error_message TEXT,
	retry_count   INT NOT NULL DEFAULT 0,
	max_retries   INT NOT NULL DEFAULT 3,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_sync_jobs_claim
	ON sync_jobs (priority DESC, created_at ASC)
	WHERE status = 'pending';

CREATE INDEX IF NOT EXISTS idx_sync_jobs_status
	ON sync_jobs (status, type);
`

// EnsureSchema creates the job table and indexes if missing.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return pgErrors.NewWithCause(ErrSchema, err)
	}
	return nil
}
