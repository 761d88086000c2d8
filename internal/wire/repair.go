package wire

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Repairer is the slice of the distribution service the schedule drives.
type Repairer interface {
	RepairAll(ctx context.Context) (int, error)
}

// scheduleRepair starts a cron job that unassigns tasks held by users who have
// left their group. An empty schedule disables it and returns a nil Cron.
func scheduleRepair(schedule string, svc Repairer) (*cron.Cron, error) {
	if schedule == "" {
		slog.Info("repair: schedule disabled")
		return nil, nil
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, func() { runRepair(svc) }); err != nil {
		return nil, fmt.Errorf("invalid repair schedule %q: %w", schedule, err)
	}
	c.Start()
	slog.Info("repair: scheduled", "schedule", schedule)
	return c, nil
}

func runRepair(svc Repairer) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	start := time.Now()
	fixed, err := svc.RepairAll(ctx)
	if err != nil {
		slog.Error("repair: sweep failed", "fixed", fixed, "error", err)
		return
	}
	level := slog.LevelDebug
	if fixed > 0 {
		level = slog.LevelInfo
	}
	slog.Log(ctx, level, "repair: sweep finished", "fixed", fixed, "duration", time.Since(start))
}
