package ingestpg

import (
	"context"

	"github.com/jmoiron/sqlx"
)

const recordSchema = `
CREATE TABLE IF NOT EXISTS judges (
	id            BIGINT PRIMARY KEY,
	name          TEXT NOT NULL,
	court_id      TEXT NOT NULL DEFAULT '',
	position      TEXT NOT NULL DEFAULT '',
	date_modified TEXT NOT NULL DEFAULT '',
	synced_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS courts (
	id            TEXT PRIMARY KEY,
	full_name     TEXT NOT NULL,
	jurisdiction  TEXT NOT NULL DEFAULT '',
	citation_abbr TEXT NOT NULL DEFAULT '',
	date_modified TEXT NOT NULL DEFAULT '',
	synced_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS decisions (
	id            BIGINT PRIMARY KEY,
	case_name     TEXT NOT NULL,
	court_id      TEXT NOT NULL DEFAULT '',
	date_filed    TEXT NOT NULL DEFAULT '',
	date_modified TEXT NOT NULL DEFAULT '',
	synced_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_decisions_court ON decisions (court_id);
`

// EnsureSchema creates the record tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, recordSchema); err != nil {
		return pgErrors.NewWithCause(ErrSchema, err)
	}
	return nil
}
