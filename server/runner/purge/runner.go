// Package purge hosts the background runner that empties the recycle bin:
// soft-deleted series and instances whose retention deadline has passed are
// removed for good.
package purge

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hrygo/assignflow/store"
)

// Store is the subset of store operations the runner reads from.
type Store interface {
	ListMasterSeries(ctx context.Context, find *store.FindMasterSeries) ([]*store.MasterSeries, error)
	ListTaskInstances(ctx context.Context, find *store.FindTaskInstance) ([]*store.TaskInstance, error)
}

// Purger performs the actual removal. Both operations are idempotent, so a
// runner tick racing a manual purge is harmless.
type Purger interface {
	PurgeSeries(ctx context.Context, seriesUID string) error
	PurgeInstance(ctx context.Context, instanceUID string) error
}

type Runner struct {
	store    Store
	purger   Purger
	schedule string
	cron     *cron.Cron

	// now is swapped in tests.
	now func() time.Time
}

// NewRunner creates a recycle purge runner firing on the given cron schedule.
func NewRunner(st Store, purger Purger, schedule string) *Runner {
	return &Runner{
		store:    st,
		purger:   purger,
		schedule: schedule,
		now:      time.Now,
	}
}

// Start registers the schedule and starts the cron loop. The first sweep runs
// immediately so a long-stopped deployment catches up without waiting for the
// next tick.
func (r *Runner) Start(ctx context.Context) error {
	r.RunOnce(ctx)

	c := cron.New()
	if _, err := c.AddFunc(r.schedule, func() {
		r.RunOnce(context.Background())
	}); err != nil {
		return err
	}
	c.Start()
	r.cron = c
	slog.Info("purge runner started", slog.String("schedule", r.schedule))
	return nil
}

// Stop halts the cron loop and waits for a running sweep to finish.
func (r *Runner) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}

// RunOnce sweeps the recycle bin a single time.
func (r *Runner) RunOnce(ctx context.Context) {
	now := r.now().Unix()
	archived := store.Archived

	series, err := r.store.ListMasterSeries(ctx, &store.FindMasterSeries{
		RowStatus:        &archived,
		AutoDeleteBefore: &now,
	})
	if err != nil {
		slog.Error("purge runner failed to list expired series", "error", err)
		return
	}
	purgedSeries := 0
	for _, s := range series {
		if err := r.purger.PurgeSeries(ctx, s.UID); err != nil {
			slog.Error("failed to purge series", "series_uid", s.UID, "error", err)
			continue
		}
		purgedSeries++
	}

	// Individually soft-deleted instances are not covered by a series purge.
	instances, err := r.store.ListTaskInstances(ctx, &store.FindTaskInstance{
		RowStatus:        &archived,
		AutoDeleteBefore: &now,
	})
	if err != nil {
		slog.Error("purge runner failed to list expired instances", "error", err)
		return
	}
	purgedInstances := 0
	for _, inst := range instances {
		if err := r.purger.PurgeInstance(ctx, inst.UID); err != nil {
			slog.Error("failed to purge instance", "instance_uid", inst.UID, "error", err)
			continue
		}
		purgedInstances++
	}

	if purgedSeries > 0 || purgedInstances > 0 {
		slog.Info("recycle bin swept",
			slog.Int("series", purgedSeries),
			slog.Int("instances", purgedInstances))
	}
}
