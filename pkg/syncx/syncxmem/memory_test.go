package syncxmem_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/juricore/courtsync/pkg/kernel"
	"github.com/juricore/courtsync/pkg/syncx"
	"github.com/juricore/courtsync/pkg/syncx/syncxmem"
)

func firstPage() kernel.PaginationOptions {
	return kernel.PaginationOptions{Page: 1, PageSize: 20}
}

func testPolicy() syncx.RetryPolicy {
	return syncx.RetryPolicy{BaseDelay: 5 * time.Minute, MaxDelay: time.Hour}
}

func enqueue(t *testing.T, q *syncxmem.MemoryQueue, job syncx.Job) string {
	t.Helper()
	if job.MaxRetries == 0 {
		job.MaxRetries = 3
	}
	id, err := q.Enqueue(context.Background(), job)
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	return id
}

func TestEnqueueClaimComplete(t *testing.T) {
	q := syncxmem.NewMemoryQueue(testPolicy())
	ctx := context.Background()

	id := enqueue(t, q, syncx.Job{Type: syncx.TypeJudges})

	job, err := q.Claim(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if job == nil || job.ID != id {
		t.Fatalf("expected to claim %s, got %+v", id, job)
	}
	if job.Status != syncx.JobStatusRunning {
		t.Fatalf("claimed job should be running, got %s", job.Status)
	}
	if job.StartedAt == nil {
		t.Fatal("claimed job should have started_at set")
	}

	result := json.RawMessage(`{"records":12}`)
	if err := q.Complete(ctx, id, result); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	final, err := q.GetJob(ctx, id)
	if err != nil {
		t.Fatalf("get job failed: %v", err)
	}
	if final.Status != syncx.JobStatusCompleted {
		t.Fatalf("expected completed, got %s", final.Status)
	}
	if string(final.Result) != `{"records":12}` {
		t.Fatalf("unexpected result %s", final.Result)
	}
	if final.CompletedAt == nil {
		t.Fatal("completed job should have completed_at set")
	}
}

func TestClaimEmptyQueueReturnsNil(t *testing.T) {
	q := syncxmem.NewMemoryQueue(testPolicy())

	job, err := q.Claim(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("claim on empty queue errored: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nil job, got %+v", job)
	}
}

func TestClaimHonorsPriorityThenFIFO(t *testing.T) {
	q := syncxmem.NewMemoryQueue(testPolicy())
	ctx := context.Background()

	low := enqueue(t, q, syncx.Job{Type: syncx.TypeJudges, Priority: 1})
	highFirst := enqueue(t, q, syncx.Job{Type: syncx.TypeCourts, Priority: 5})
	highSecond := enqueue(t, q, syncx.Job{Type: syncx.TypeDecisions, Priority: 5})

	now := time.Now().UTC()
	for i, want := range []string{highFirst, highSecond, low} {
		job, err := q.Claim(ctx, now)
		if err != nil {
			t.Fatalf("claim %d failed: %v", i, err)
		}
		if job == nil || job.ID != want {
			t.Fatalf("claim %d: expected %s, got %+v", i, want, job)
		}
	}
}

func TestClaimSkipsFutureScheduledJobs(t *testing.T) {
	q := syncxmem.NewMemoryQueue(testPolicy())
	ctx := context.Background()
	now := time.Now().UTC()

	enqueue(t, q, syncx.Job{Type: syncx.TypeJudges, ScheduledFor: now.Add(time.Hour)})
	due := enqueue(t, q, syncx.Job{Type: syncx.TypeCourts, ScheduledFor: now.Add(-time.Minute)})

	job, err := q.Claim(ctx, now)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if job == nil || job.ID != due {
		t.Fatalf("expected due job %s, got %+v", due, job)
	}

	if next, _ := q.Claim(ctx, now); next != nil {
		t.Fatalf("future job claimed early: %+v", next)
	}
}

func TestConcurrentClaimExclusivity(t *testing.T) {
	q := syncxmem.NewMemoryQueue(testPolicy())
	ctx := context.Background()

	const jobs = 20
	for i := 0; i < jobs; i++ {
		enqueue(t, q, syncx.Job{Type: syncx.TypeJudges})
	}

	var mu sync.Mutex
	seen := make(map[string]int)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				job, err := q.Claim(ctx, time.Now().UTC())
				if err != nil {
					t.Errorf("claim failed: %v", err)
					return
				}
				if job == nil {
					return
				}
				mu.Lock()
				seen[job.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != jobs {
		t.Fatalf("expected %d distinct claims, got %d", jobs, len(seen))
	}
	for id, count := range seen {
		if count != 1 {
			t.Fatalf("job %s claimed %d times", id, count)
		}
	}
}

func TestFailReschedulesUntilRetriesExhausted(t *testing.T) {
	q := syncxmem.NewMemoryQueue(testPolicy())
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	current := base
	q.SetClock(func() time.Time { return current })

	id := enqueue(t, q, syncx.Job{Type: syncx.TypeDecisions, MaxRetries: 3})

	prevScheduled := base.Add(-time.Second)
	for attempt := 1; attempt <= 3; attempt++ {
		// Jump past the reschedule delay so the job is claimable again.
		current = current.Add(2 * time.Hour)

		job, err := q.Claim(ctx, current)
		if err != nil {
			t.Fatalf("claim %d failed: %v", attempt, err)
		}
		if job == nil {
			t.Fatalf("claim %d found no job", attempt)
		}

		retried, err := q.Fail(ctx, id, "upstream unavailable")
		if err != nil {
			t.Fatalf("fail %d errored: %v", attempt, err)
		}

		info, err := q.GetJob(ctx, id)
		if err != nil {
			t.Fatalf("get job failed: %v", err)
		}
		if info.RetryCount != attempt {
			t.Fatalf("after failure %d expected retry_count %d, got %d", attempt, attempt, info.RetryCount)
		}

		if attempt < 3 {
			if !retried {
				t.Fatalf("failure %d should reschedule", attempt)
			}
			if info.Status != syncx.JobStatusPending {
				t.Fatalf("rescheduled job should be pending, got %s", info.Status)
			}
			if !info.ScheduledFor.After(prevScheduled) {
				t.Fatalf("scheduled_for must increase: %s then %s", prevScheduled, info.ScheduledFor)
			}
			if !info.ScheduledFor.After(current) {
				t.Fatal("rescheduled job must not be immediately due")
			}
			prevScheduled = info.ScheduledFor
		} else {
			if retried {
				t.Fatal("final failure must not reschedule")
			}
			if info.Status != syncx.JobStatusFailed {
				t.Fatalf("expected terminal failed, got %s", info.Status)
			}
			if info.ErrorMessage != "upstream unavailable" {
				t.Fatalf("unexpected error message %q", info.ErrorMessage)
			}
		}
	}
}

func TestCompleteRejectsNonRunningJob(t *testing.T) {
	q := syncxmem.NewMemoryQueue(testPolicy())
	ctx := context.Background()

	id := enqueue(t, q, syncx.Job{Type: syncx.TypeJudges})

	err := q.Complete(ctx, id, nil)
	if !syncx.IsInvalidTransition(err) {
		t.Fatalf("expected invalid transition for pending job, got %v", err)
	}

	if _, err := q.Claim(ctx, time.Now().UTC()); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if err := q.Complete(ctx, id, nil); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	// Terminal jobs reject further transitions.
	if err := q.Complete(ctx, id, nil); !syncx.IsInvalidTransition(err) {
		t.Fatalf("expected invalid transition for completed job, got %v", err)
	}
	if _, err := q.Fail(ctx, id, "late failure"); !syncx.IsInvalidTransition(err) {
		t.Fatalf("expected invalid transition for completed job, got %v", err)
	}
}

func TestGetJobNotFound(t *testing.T) {
	q := syncxmem.NewMemoryQueue(testPolicy())

	_, err := q.GetJob(context.Background(), "missing")
	if !syncx.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListJobsFilterAndStats(t *testing.T) {
	q := syncxmem.NewMemoryQueue(testPolicy())
	ctx := context.Background()

	enqueue(t, q, syncx.Job{Type: syncx.TypeJudges})
	enqueue(t, q, syncx.Job{Type: syncx.TypeCourts})
	id := enqueue(t, q, syncx.Job{Type: syncx.TypeCourts})

	if _, err := q.Claim(ctx, time.Now().UTC()); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	courts, err := q.ListJobs(ctx, syncx.JobFilter{Type: syncx.TypeCourts}, firstPage())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(courts.Items) != 2 {
		t.Fatalf("expected 2 court jobs, got %d", len(courts.Items))
	}

	pending, err := q.ListJobs(ctx, syncx.JobFilter{Status: syncx.JobStatusPending}, firstPage())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(pending.Items) != 2 {
		t.Fatalf("expected 2 pending jobs, got %d", len(pending.Items))
	}
	_ = id

	stats, err := q.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Pending != 2 || stats.Running != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestFindClaimableDoesNotClaim(t *testing.T) {
	q := syncxmem.NewMemoryQueue(testPolicy())
	ctx := context.Background()

	enqueue(t, q, syncx.Job{Type: syncx.TypeCourts, Priority: 1})
	wantID := enqueue(t, q, syncx.Job{Type: syncx.TypeJudges, Priority: 5})

	found, err := q.FindClaimable(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("find claimable failed: %v", err)
	}
	if found == nil || found.ID != wantID {
		t.Fatalf("expected job %s, got %+v", wantID, found)
	}
	if found.Status != syncx.JobStatusPending {
		t.Fatalf("lookup must not transition the job, got %s", found.Status)
	}

	claimed, err := q.Claim(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if claimed == nil || claimed.ID != wantID {
		t.Fatalf("claim should take the same job the lookup reported, got %+v", claimed)
	}
}

func TestFindClaimableSkipsFutureJobs(t *testing.T) {
	q := syncxmem.NewMemoryQueue(testPolicy())
	ctx := context.Background()
	now := time.Now().UTC()

	enqueue(t, q, syncx.Job{Type: syncx.TypeDecisions, ScheduledFor: now.Add(time.Hour)})

	found, err := q.FindClaimable(ctx, now)
	if err != nil {
		t.Fatalf("find claimable failed: %v", err)
	}
	if found != nil {
		t.Fatalf("future-scheduled job should not be claimable, got %+v", found)
	}
}
