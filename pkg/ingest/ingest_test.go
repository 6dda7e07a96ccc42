package ingest_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/juricore/courtsync/pkg/courtapi"
	"github.com/juricore/courtsync/pkg/ingest"
	"github.com/juricore/courtsync/pkg/kernel"
	"github.com/juricore/courtsync/pkg/syncx"
)

type fakeStore struct {
	judges    []courtapi.Judge
	courts    []courtapi.Court
	decisions []courtapi.OpinionCluster
	failNext  error
}

func (s *fakeStore) UpsertJudges(_ context.Context, judges []courtapi.Judge) error {
	if s.failNext != nil {
		return s.failNext
	}
	s.judges = append(s.judges, judges...)
	return nil
}

func (s *fakeStore) UpsertCourts(_ context.Context, courts []courtapi.Court) error {
	if s.failNext != nil {
		return s.failNext
	}
	s.courts = append(s.courts, courts...)
	return nil
}

func (s *fakeStore) UpsertDecisions(_ context.Context, clusters []courtapi.OpinionCluster) error {
	if s.failNext != nil {
		return s.failNext
	}
	s.decisions = append(s.decisions, clusters...)
	return nil
}

func apiClient(server *httptest.Server) *courtapi.Client {
	return courtapi.NewClient(server.URL, "",
		courtapi.WithSleep(func(ctx context.Context, d time.Duration) error { return nil }),
		courtapi.WithJitter(func(d time.Duration) time.Duration { return d }),
	)
}

func jobWithOptions(t *testing.T, opts ingest.Options) *syncx.JobInfo {
	t.Helper()
	raw, err := json.Marshal(opts)
	if err != nil {
		t.Fatalf("marshal options: %v", err)
	}
	return &syncx.JobInfo{ID: "job-1", Type: syncx.TypeJudges, Options: raw}
}

func TestSyncJudgesWalksAllPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("jurisdiction"); got != "F" {
			t.Errorf("expected jurisdiction filter F, got %q", got)
		}
		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprint(w, `{"count":3,"next":"p2","results":[{"id":1,"name_full":"A"},{"id":2,"name_full":"B"}]}`)
		default:
			fmt.Fprint(w, `{"count":3,"next":"","results":[{"id":3,"name_full":"C"}]}`)
		}
	}))
	defer server.Close()

	store := &fakeStore{}
	syncer := ingest.NewSyncer(apiClient(server), store)

	raw, err := syncer.SyncJudges(context.Background(), jobWithOptions(t, ingest.Options{Jurisdiction: "F"}))
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	var result ingest.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("bad result payload: %v", err)
	}
	if result.Pages != 2 || result.Records != 3 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(store.judges) != 3 {
		t.Fatalf("expected 3 judges stored, got %d", len(store.judges))
	}
}

func TestSyncRespectsMaxPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Every page claims another follows.
		fmt.Fprint(w, `{"count":100,"next":"more","results":[{"id":"x","full_name":"X"}]}`)
	}))
	defer server.Close()

	store := &fakeStore{}
	syncer := ingest.NewSyncer(apiClient(server), store)

	raw, err := syncer.SyncCourts(context.Background(), jobWithOptions(t, ingest.Options{MaxPages: 2}))
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	var result ingest.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("bad result payload: %v", err)
	}
	if result.Pages != 2 {
		t.Fatalf("expected 2 pages with cap, got %d", result.Pages)
	}
}

func TestSyncFailsOnStoreError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"count":1,"next":"","results":[{"id":1,"case_name":"Roe"}]}`)
	}))
	defer server.Close()

	store := &fakeStore{failNext: errors.New("db down")}
	syncer := ingest.NewSyncer(apiClient(server), store)

	if _, err := syncer.SyncDecisions(context.Background(), jobWithOptions(t, ingest.Options{})); err == nil {
		t.Fatal("expected store error to surface")
	}
}

func TestSyncFailsOnBadOptions(t *testing.T) {
	syncer := ingest.NewSyncer(nil, &fakeStore{})

	job := &syncx.JobInfo{ID: "job-2", Type: syncx.TypeJudges, Options: json.RawMessage(`{not json`)}
	if _, err := syncer.SyncJudges(context.Background(), job); err == nil {
		t.Fatal("expected options decode error")
	}
}

func TestRegisterHandlersRoutesAllTypes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"count":0,"next":"","results":[]}`)
	}))
	defer server.Close()

	store := &fakeStore{}
	syncer := ingest.NewSyncer(apiClient(server), store)

	client := syncx.NewClient(newNoopQueue())
	syncer.RegisterHandlers(client)
}

// noopQueue satisfies syncx.Queue for registration tests.
type noopQueue struct{}

func newNoopQueue() *noopQueue { return &noopQueue{} }

func (q *noopQueue) Enqueue(context.Context, syncx.Job) (string, error) { return "", nil }
func (q *noopQueue) GetJob(context.Context, string) (*syncx.JobInfo, error) {
	return nil, syncx.NotFoundError("none")
}
func (q *noopQueue) ListJobs(context.Context, syncx.JobFilter, kernel.PaginationOptions) (kernel.Paginated[syncx.JobInfo], error) {
	return kernel.Paginated[syncx.JobInfo]{}, nil
}
func (q *noopQueue) Stats(context.Context) (syncx.Stats, error) { return syncx.Stats{}, nil }
func (q *noopQueue) FindClaimable(context.Context, time.Time) (*syncx.JobInfo, error) {
	return nil, nil
}
func (q *noopQueue) Claim(context.Context, time.Time) (*syncx.JobInfo, error) {
	return nil, nil
}
func (q *noopQueue) Complete(context.Context, string, json.RawMessage) error { return nil }
func (q *noopQueue) Fail(context.Context, string, string) (bool, error)      { return false, nil }
