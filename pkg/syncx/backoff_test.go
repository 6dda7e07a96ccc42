package syncx_test

import (
	"testing"
	"time"

	"github.com/juricore/courtsync/pkg/syncx"
)

func TestDelayDoublesPerRetry(t *testing.T) {
	policy := syncx.RetryPolicy{BaseDelay: 5 * time.Minute, MaxDelay: 6 * time.Hour}

	want := []time.Duration{5 * time.Minute, 10 * time.Minute, 20 * time.Minute, 40 * time.Minute}
	for i, expected := range want {
		if got := policy.Delay(i + 1); got != expected {
			t.Fatalf("retry %d: expected %s, got %s", i+1, expected, got)
		}
	}
}

func TestDelayCappedAtMax(t *testing.T) {
	policy := syncx.RetryPolicy{BaseDelay: 5 * time.Minute, MaxDelay: time.Hour}

	if got := policy.Delay(10); got != time.Hour {
		t.Fatalf("expected cap at 1h, got %s", got)
	}
}

func TestDelayAlwaysPositive(t *testing.T) {
	policy := syncx.DefaultRetryPolicy()

	for _, count := range []int{-1, 0, 1, 5, 50} {
		if got := policy.Delay(count); got <= 0 {
			t.Fatalf("retry count %d produced non-positive delay %s", count, got)
		}
	}
}

func TestJitterStaysWithinFraction(t *testing.T) {
	policy := syncx.RetryPolicy{BaseDelay: 10 * time.Minute, MaxDelay: time.Hour, Jitter: 0.25}

	for i := 0; i < 100; i++ {
		got := policy.Delay(1)
		if got < 10*time.Minute || got > 12*time.Minute+30*time.Second {
			t.Fatalf("jittered delay %s outside [10m, 12m30s]", got)
		}
	}
}
