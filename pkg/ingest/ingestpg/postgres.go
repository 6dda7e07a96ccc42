// Package ingestpg persists court API records to Postgres. Every write is an
// upsert keyed on the upstream ID, so syncing the same window twice converges
// on the same rows.
package ingestpg

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/juricore/courtsync/pkg/courtapi"
	"github.com/juricore/courtsync/pkg/errx"
	"github.com/juricore/courtsync/pkg/ingest"
)

var pgErrors = errx.NewRegistry("INGEST_PG")

var (
	ErrUpsert = pgErrors.Register("UPSERT", errx.TypeInternal, 500, "Failed to upsert records")
	ErrSchema = pgErrors.Register("SCHEMA", errx.TypeInternal, 500, "Failed to ensure record schema")
)

// PostgresStore implements ingest.Store on sqlx.
type PostgresStore struct {
	db *sqlx.DB
}

var _ ingest.Store = (*PostgresStore)(nil)

// NewPostgresStore creates a store over an open sqlx connection.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const upsertJudgeQuery = `
	INSERT INTO judges (id, name, court_id, position, date_modified, synced_at)
	VALUES ($1, $2, $3, $4, $5, NOW())
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		court_id = EXCLUDED.court_id,
		position = EXCLUDED.position,
		date_modified = EXCLUDED.date_modified,
		synced_at = NOW()`

// UpsertJudges writes a page of judges in a single transaction.
func (s *PostgresStore) UpsertJudges(ctx context.Context, judges []courtapi.Judge) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, j := range judges {
			if _, err := tx.ExecContext(ctx, upsertJudgeQuery,
				j.ID, j.Name, j.CourtID, j.Position, j.DateModified); err != nil {
				return pgErrors.NewWithCause(ErrUpsert, err).WithDetail("record", "judge")
			}
		}
		return nil
	})
}

const upsertCourtQuery = `
	INSERT INTO courts (id, full_name, jurisdiction, citation_abbr, date_modified, synced_at)
	VALUES ($1, $2, $3, $4, $5, NOW())
	ON CONFLICT (id) DO UPDATE SET
		full_name = EXCLUDED.full_name,
		jurisdiction = EXCLUDED.jurisdiction,
		citation_abbr = EXCLUDED.citation_abbr,
		date_modified = EXCLUDED.date_modified,
		synced_at = NOW()`

// UpsertCourts writes a page of courts in a single transaction.
func (s *PostgresStore) UpsertCourts(ctx context.Context, courts []courtapi.Court) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, c := range courts {
			if _, err := tx.ExecContext(ctx, upsertCourtQuery,
				c.ID, c.FullName, c.Jurisdiction, c.CitationAbbr, c.DateModified); err != nil {
				return pgErrors.NewWithCause(ErrUpsert, err).WithDetail("record", "court")
			}
		}
		return nil
	})
}

const upsertDecisionQuery = `
	INSERT INTO decisions (id, case_name, court_id, date_filed, date_modified, synced_at)
	VALUES ($1, $2, $3, $4, $5, NOW())
	ON CONFLICT (id) DO UPDATE SET
		case_name = EXCLUDED.case_name,
		court_id = EXCLUDED.court_id,
		date_filed = EXCLUDED.date_filed,
		date_modified = EXCLUDED.date_modified,
		synced_at = NOW()`

// UpsertDecisions writes a page of opinion clusters in a single transaction.
func (s *PostgresStore) UpsertDecisions(ctx context.Context, clusters []courtapi.OpinionCluster) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, d := range clusters {
			if _, err := tx.ExecContext(ctx, upsertDecisionQuery,
				d.ID, d.CaseName, d.CourtID, d.DateFiled, d.DateModified); err != nil {
				return pgErrors.NewWithCause(ErrUpsert, err).WithDetail("record", "decision")
			}
		}
		return nil
	})
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return pgErrors.NewWithCause(ErrUpsert, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
