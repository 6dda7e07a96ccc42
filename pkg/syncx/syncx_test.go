package syncx_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/juricore/courtsync/pkg/syncx"
	"github.com/juricore/courtsync/pkg/syncx/syncxmem"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestEnqueueRejectsEmptyType(t *testing.T) {
	client := syncx.NewClient(syncxmem.NewMemoryQueue(syncx.DefaultRetryPolicy()))

	if _, err := client.Enqueue(context.Background(), "", nil); err == nil {
		t.Fatal("expected error for empty job type")
	}
}

func TestEnqueueDefaultsMaxRetries(t *testing.T) {
	queue := syncxmem.NewMemoryQueue(syncx.DefaultRetryPolicy())
	client := syncx.NewClient(queue)

	id, err := client.Enqueue(context.Background(), syncx.TypeJudges, nil)
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	job, err := client.GetJob(context.Background(), id)
	if err != nil {
		t.Fatalf("get job failed: %v", err)
	}
	if job.MaxRetries != 3 {
		t.Fatalf("expected default max_retries 3, got %d", job.MaxRetries)
	}
	if job.Status != syncx.JobStatusPending {
		t.Fatalf("expected pending, got %s", job.Status)
	}
}

func TestEnqueueUsesConfiguredDefaultMaxRetries(t *testing.T) {
	queue := syncxmem.NewMemoryQueue(syncx.DefaultRetryPolicy())
	client := syncx.NewClient(queue, syncx.WithDefaultMaxRetries(5))

	id, err := client.Enqueue(context.Background(), syncx.TypeCourts, nil)
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	job, err := client.GetJob(context.Background(), id)
	if err != nil {
		t.Fatalf("get job failed: %v", err)
	}
	if job.MaxRetries != 5 {
		t.Fatalf("expected configured default max_retries 5, got %d", job.MaxRetries)
	}

	explicit, err := client.Enqueue(context.Background(), syncx.TypeCourts, nil, syncx.WithMaxRetries(2))
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	job, err = client.GetJob(context.Background(), explicit)
	if err != nil {
		t.Fatalf("get job failed: %v", err)
	}
	if job.MaxRetries != 2 {
		t.Fatalf("explicit max_retries should win, got %d", job.MaxRetries)
	}
}

func TestEnqueueOptions(t *testing.T) {
	queue := syncxmem.NewMemoryQueue(syncx.DefaultRetryPolicy())
	client := syncx.NewClient(queue)

	when := time.Now().Add(time.Hour).UTC()
	id, err := client.Enqueue(context.Background(), syncx.TypeCourts,
		map[string]string{"jurisdiction": "F"},
		syncx.WithPriority(7),
		syncx.WithScheduledFor(when),
		syncx.WithMaxRetries(5),
	)
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	job, err := client.GetJob(context.Background(), id)
	if err != nil {
		t.Fatalf("get job failed: %v", err)
	}
	if job.Priority != 7 || job.MaxRetries != 5 {
		t.Fatalf("options not applied: %+v", job)
	}
	if !job.ScheduledFor.Equal(when) {
		t.Fatalf("expected scheduled_for %s, got %s", when, job.ScheduledFor)
	}
	if string(job.Options) != `{"jurisdiction":"F"}` {
		t.Fatalf("unexpected payload %s", job.Options)
	}
}

func TestWorkerProcessesJobToCompletion(t *testing.T) {
	queue := syncxmem.NewMemoryQueue(syncx.DefaultRetryPolicy())
	client := syncx.NewClient(queue,
		syncx.WithConcurrency(2),
		syncx.WithPollInterval(10*time.Millisecond),
		syncx.WithShutdownTimeout(time.Second),
	)

	client.Register(syncx.TypeJudges, func(ctx context.Context, job *syncx.JobInfo) (json.RawMessage, error) {
		return json.RawMessage(`{"records":5}`), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = client.Start(ctx)
	}()

	id, err := client.Enqueue(ctx, syncx.TypeJudges, nil)
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		job, err := client.GetJob(context.Background(), id)
		return err == nil && job.Status == syncx.JobStatusCompleted
	})

	job, _ := client.GetJob(context.Background(), id)
	if string(job.Result) != `{"records":5}` {
		t.Fatalf("unexpected result %s", job.Result)
	}

	cancel()
	<-done

	snap := client.WorkerMetrics()
	if snap.Completed != 1 || snap.Claimed != 1 {
		t.Fatalf("unexpected metrics %+v", snap)
	}
}

func TestWorkerFailsJobWithoutHandler(t *testing.T) {
	// Zero-delay policy so the retry budget burns down within the test.
	queue := syncxmem.NewMemoryQueue(syncx.RetryPolicy{BaseDelay: time.Nanosecond, MaxDelay: time.Nanosecond})
	client := syncx.NewClient(queue,
		syncx.WithConcurrency(1),
		syncx.WithPollInterval(10*time.Millisecond),
		syncx.WithShutdownTimeout(time.Second),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Start(ctx) }()

	id, err := client.Enqueue(ctx, "unknown-type", nil)
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	// Every claim of an unroutable job counts one failure; the retry budget
	// eventually terminates it.
	waitFor(t, 5*time.Second, func() bool {
		job, err := client.GetJob(context.Background(), id)
		return err == nil && job.Status == syncx.JobStatusFailed
	})
}

func TestWorkerRetriesFailedHandler(t *testing.T) {
	// Zero-delay policy makes the rescheduled job immediately claimable.
	queue := syncxmem.NewMemoryQueue(syncx.RetryPolicy{BaseDelay: time.Nanosecond, MaxDelay: time.Nanosecond})
	client := syncx.NewClient(queue,
		syncx.WithConcurrency(1),
		syncx.WithPollInterval(10*time.Millisecond),
		syncx.WithShutdownTimeout(time.Second),
	)

	attempts := make(chan struct{}, 16)
	client.Register(syncx.TypeDecisions, func(ctx context.Context, job *syncx.JobInfo) (json.RawMessage, error) {
		attempts <- struct{}{}
		if job.RetryCount < 2 {
			return nil, errors.New("transient failure")
		}
		return json.RawMessage(`{"ok":true}`), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Start(ctx) }()

	id, err := client.Enqueue(ctx, syncx.TypeDecisions, nil)
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	waitFor(t, 5*time.Second, func() bool {
		job, err := client.GetJob(context.Background(), id)
		return err == nil && job.Status == syncx.JobStatusCompleted
	})

	job, _ := client.GetJob(context.Background(), id)
	if job.RetryCount != 2 {
		t.Fatalf("expected 2 recorded failures before success, got %d", job.RetryCount)
	}
	if len(attempts) != 3 {
		t.Fatalf("expected 3 handler invocations, got %d", len(attempts))
	}

	snap := client.WorkerMetrics()
	if snap.Retried != 2 || snap.Completed != 1 {
		t.Fatalf("unexpected metrics %+v", snap)
	}
}

func TestStartTwiceRejected(t *testing.T) {
	client := syncx.NewClient(syncxmem.NewMemoryQueue(syncx.DefaultRetryPolicy()),
		syncx.WithPollInterval(10*time.Millisecond),
		syncx.WithShutdownTimeout(100*time.Millisecond),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	go func() {
		close(started)
		_ = client.Start(ctx)
	}()
	<-started
	time.Sleep(20 * time.Millisecond)

	if err := client.Start(ctx); err == nil {
		t.Fatal("expected second Start to be rejected")
	}
}
