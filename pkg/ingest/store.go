package ingest

import (
	"context"

	"github.com/juricore/courtsync/pkg/courtapi"
)

// Store persists records fetched from the court API. Upserts are keyed on
// the upstream ID, so re-running a sync over the same window is idempotent.
type Store interface {
	UpsertJudges(ctx context.Context, judges []courtapi.Judge) error
	UpsertCourts(ctx context.Context, courts []courtapi.Court) error
	UpsertDecisions(ctx context.Context, clusters []courtapi.OpinionCluster) error
}
