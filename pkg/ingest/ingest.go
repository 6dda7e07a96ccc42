// Package ingest owns the sync job handlers: each handler walks a paginated
// court API listing and upserts every record it sees into the Store. Handlers
// are registered on a syncx.Client by job type, and their errors feed the
// queue's retry machinery.
package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/juricore/courtsync/pkg/courtapi"
	"github.com/juricore/courtsync/pkg/logx"
	"github.com/juricore/courtsync/pkg/syncx"
)

// Options is the payload accepted by every sync job type. All fields are
// optional; the zero value syncs everything.
type Options struct {
	// Jurisdiction restricts the sync to a single jurisdiction code.
	Jurisdiction string `json:"jurisdiction,omitempty"`
	// ModifiedAfter limits the sync to records changed since this date
	// (upstream date format, e.g. "2026-01-15").
	ModifiedAfter string `json:"modified_after,omitempty"`
	// PageSize overrides the upstream default page size.
	PageSize int `json:"page_size,omitempty"`
	// MaxPages caps how many pages a single job run fetches. Zero means
	// no cap.
	MaxPages int `json:"max_pages,omitempty"`
}

// Result summarizes a finished sync run. It is stored on the job row.
type Result struct {
	Pages    int    `json:"pages"`
	Records  int    `json:"records"`
	Duration string `json:"duration"`
}

// Syncer binds the court API client and the record store into job handlers.
type Syncer struct {
	api   *courtapi.Client
	store Store
}

// NewSyncer creates a Syncer over the given API client and store.
func NewSyncer(api *courtapi.Client, store Store) *Syncer {
	return &Syncer{api: api, store: store}
}

// RegisterHandlers wires each job type to its handler on the client.
func (s *Syncer) RegisterHandlers(client *syncx.Client) {
	client.Register(syncx.TypeJudges, s.SyncJudges)
	client.Register(syncx.TypeCourts, s.SyncCourts)
	client.Register(syncx.TypeDecisions, s.SyncDecisions)
}

// SyncJudges fetches judges page by page and upserts them.
func (s *Syncer) SyncJudges(ctx context.Context, job *syncx.JobInfo) (json.RawMessage, error) {
	opts, err := decodeOptions(job)
	if err != nil {
		return nil, err
	}
	pager := s.api.JudgePager(opts.listParams())
	return runSync(ctx, job, opts, pager.Next, pager.HasMore, s.store.UpsertJudges)
}

// SyncCourts fetches courts page by page and upserts them.
func (s *Syncer) SyncCourts(ctx context.Context, job *syncx.JobInfo) (json.RawMessage, error) {
	opts, err := decodeOptions(job)
	if err != nil {
		return nil, err
	}
	pager := s.api.CourtPager(opts.listParams())
	return runSync(ctx, job, opts, pager.Next, pager.HasMore, s.store.UpsertCourts)
}

// SyncDecisions fetches opinion clusters page by page and upserts them.
func (s *Syncer) SyncDecisions(ctx context.Context, job *syncx.JobInfo) (json.RawMessage, error) {
	opts, err := decodeOptions(job)
	if err != nil {
		return nil, err
	}
	pager := s.api.OpinionClusterPager(opts.listParams())
	return runSync(ctx, job, opts, pager.Next, pager.HasMore, s.store.UpsertDecisions)
}

func (o Options) listParams() courtapi.ListParams {
	return courtapi.ListParams{
		Jurisdiction:  o.Jurisdiction,
		ModifiedAfter: o.ModifiedAfter,
		PageSize:      o.PageSize,
	}
}

func decodeOptions(job *syncx.JobInfo) (Options, error) {
	var opts Options
	if len(job.Options) == 0 {
		return opts, nil
	}
	if err := json.Unmarshal(job.Options, &opts); err != nil {
		return opts, ingestErrors.NewWithCause(ErrBadOptions, err).WithDetail("job_id", job.ID)
	}
	return opts, nil
}

// runSync drives a pager to completion, upserting each page as it arrives.
// A page that fails to fetch or persist aborts the run; the queue reschedules
// the whole job and the idempotent upserts absorb the re-walk.
func runSync[T any](
	ctx context.Context,
	job *syncx.JobInfo,
	opts Options,
	next func(context.Context) ([]T, error),
	hasMore func() bool,
	upsert func(context.Context, []T) error,
) (json.RawMessage, error) {
	start := time.Now()
	pages, records := 0, 0

	for hasMore() {
		if opts.MaxPages > 0 && pages >= opts.MaxPages {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		items, err := next(ctx)
		if err != nil {
			return nil, ingestErrors.NewWithCause(ErrListPage, err).
				WithDetail("job_id", job.ID).
				WithDetail("page", pages+1)
		}
		if len(items) > 0 {
			if err := upsert(ctx, items); err != nil {
				return nil, ingestErrors.NewWithCause(ErrStore, err).
					WithDetail("job_id", job.ID).
					WithDetail("page", pages+1)
			}
		}
		pages++
		records += len(items)
	}

	logx.WithFields(logx.Fields{
		"job_id":   job.ID,
		"job_type": job.Type,
		"pages":    pages,
		"records":  records,
	}).Infof("Sync run finished in %s", time.Since(start).Round(time.Millisecond))

	result := Result{
		Pages:    pages,
		Records:  records,
		Duration: time.Since(start).Round(time.Millisecond).String(),
	}
	return json.Marshal(result)
}
