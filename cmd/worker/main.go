package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/juricore/courtsync/pkg/config"
	"github.com/juricore/courtsync/pkg/logx"
)

func main() {
	logx.SetDefaultLogger(logx.NewLogger(logx.LoadFromEnv()))

	logx.Info("Starting courtsync worker...")

	cfg := config.Load()
	container := NewContainer(cfg)
	defer container.Cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go telemetryLoop(ctx, container)

	if err := container.Sync.Start(ctx); err != nil {
		logx.Fatalf("Worker error: %v", err)
	}

	snap := container.Sync.WorkerMetrics()
	logx.WithFields(logx.Fields{
		"claimed":   snap.Claimed,
		"completed": snap.Completed,
		"retried":   snap.Retried,
		"failed":    snap.Failed,
	}).Info("Worker exited")
}

// telemetryLoop periodically reports pipeline health: worker counters,
// breaker position and how much of the rate budget is spent.
func telemetryLoop(ctx context.Context, container *Container) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := container.Sync.WorkerMetrics()
			logx.WithFields(logx.Fields{
				"claimed":             snap.Claimed,
				"completed":           snap.Completed,
				"retried":             snap.Retried,
				"failed":              snap.Failed,
				"breaker_state":       string(container.API.BreakerState()),
				"limiter_utilization": container.API.LimiterUtilization(ctx),
			}).Info("Pipeline telemetry")
		}
	}
}
