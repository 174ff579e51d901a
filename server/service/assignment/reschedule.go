package assignment

import (
	"context"
	"log/slog"

	apperr "github.com/hrygo/assignflow/server/internal/errors"
	"github.com/hrygo/assignflow/server/internal/observability"
	"github.com/hrygo/assignflow/server/scheduler/recur"
	"github.com/hrygo/assignflow/store"
)

// Reschedule swaps the recurrence rule of a series and regenerates its
// instances from scratch. The series identifier survives; the instances do
// not, completed ones included.
//
// The swap is two-phase: the new rule and a regenerating marker are persisted
// first, then instances are purged and re-expanded, then the marker is
// cleared. A crash between purge and re-expansion leaves the marker set, and
// RecoverInterrupted rolls the series forward from the stored rule.
func (s *service) Reschedule(ctx context.Context, seriesUID string, rule recur.Rule) (*RescheduleResult, error) {
	if err := rule.Validate(); err != nil {
		return nil, apperr.Wrap(err, apperr.ErrCodeInvalidArgument, "invalid recurrence rule")
	}
	if rule.Pattern == recur.OneTime {
		return nil, apperr.InvalidArgument("one-time tasks have no series to reschedule")
	}

	series, err := s.findLiveSeries(ctx, seriesUID)
	if err != nil {
		return nil, err
	}
	if !series.IsActive {
		return nil, apperr.FailedPrecondition("series %s is superseded and read-only", seriesUID)
	}

	reqCtx := observability.NewRequestContext(s.logger, "reschedule", series.CompanyID)
	reqCtx.Info("reschedule started", slog.String(observability.LogFieldSeriesUID, seriesUID))

	// Phase one: make the new rule and the in-flight marker durable before
	// touching any instance.
	update := &store.UpdateMasterSeries{ID: series.ID}
	ruleUpdateFields(update, rule)
	regenerating := true
	update.Regenerating = &regenerating
	if err := s.store.UpdateMasterSeries(ctx, update); err != nil {
		return nil, apperr.Wrap(err, apperr.ErrCodeFailedPrecondition, "failed to persist new rule")
	}

	count, err := s.regenerateSeries(ctx, series, rule)
	if err != nil {
		return nil, err
	}

	s.invalidatePendingCounts(series.CompanyID)
	reqCtx.Info("reschedule finished",
		slog.String(observability.LogFieldSeriesUID, seriesUID),
		slog.Int("instances", count),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
	return &RescheduleResult{InstanceCount: count}, nil
}

// RecoverInterrupted rolls forward every series left mid-reschedule by a
// crash. The stored rule is already the new one, so recovery is a plain
// re-run of phase two. Returns the number of recovered series.
func (s *service) RecoverInterrupted(ctx context.Context) (int, error) {
	regenerating := true
	stuck, err := s.store.ListMasterSeries(ctx, &store.FindMasterSeries{
		Regenerating: &regenerating,
	})
	if err != nil {
		return 0, apperr.Wrap(err, apperr.ErrCodeFailedPrecondition, "failed to list interrupted series")
	}

	recovered := 0
	for _, series := range stuck {
		rule := ruleFromSeries(series)
		if _, err := s.regenerateSeries(ctx, series, rule); err != nil {
			s.logger.Error("failed to recover interrupted reschedule",
				slog.String(observability.LogFieldSeriesUID, series.UID),
				slog.String("error", err.Error()))
			continue
		}
		s.invalidatePendingCounts(series.CompanyID)
		recovered++
	}
	if len(stuck) > 0 {
		s.logger.Info("interrupted reschedules recovered",
			slog.Int("found", len(stuck)),
			slog.Int("recovered", recovered))
	}
	return recovered, nil
}

// regenerateSeries is phase two of a reschedule: purge instances, re-expand
// the rule, write the replacement batch, then clear the in-flight marker.
func (s *service) regenerateSeries(ctx context.Context, series *store.MasterSeries, rule recur.Rule) (int, error) {
	if err := s.store.DeleteInstancesBySeries(ctx, &store.DeleteInstancesBySeries{
		SeriesUID: series.UID,
	}); err != nil {
		return 0, apperr.Wrap(err, apperr.ErrCodeFailedPrecondition, "failed to purge instances")
	}

	windowStart, windowEnd := expansionWindow(rule)
	dates, err := recur.Expand(rule, windowStart, windowEnd)
	if err != nil {
		return 0, apperr.Wrap(err, apperr.ErrCodeInvalidArgument, "rule expansion failed")
	}

	tmpl := &Template{
		Title:       series.Title,
		Description: series.Description,
		Priority:    series.Priority,
	}
	instances := buildInstances(dates, tmpl, &series.UID,
		series.CompanyID, series.AssigneeID, series.AssignerID, series.Attachments)

	inserted := 0
	if len(instances) > 0 {
		bulk, err := s.store.BulkUpsertInstances(ctx, instances)
		if err != nil {
			return 0, apperr.Wrap(err, apperr.ErrCodePartialPersistence, "bulk instance write aborted")
		}
		if len(bulk.Failed) > 0 {
			return bulk.Inserted, apperr.PartialPersistence(bulk.Inserted, len(bulk.Failed))
		}
		inserted = bulk.Inserted
	}

	update := &store.UpdateMasterSeries{ID: series.ID}
	regenerating := false
	update.Regenerating = &regenerating
	if rule.Forever && len(dates) > 0 {
		endTs := dates[len(dates)-1].Unix()
		update.EndTs = &endTs
	}
	if err := s.store.UpdateMasterSeries(ctx, update); err != nil {
		return inserted, apperr.Wrap(err, apperr.ErrCodeFailedPrecondition, "failed to clear regeneration marker")
	}
	return inserted, nil
}

// findLiveSeries loads a non-deleted series by UID.
func (s *service) findLiveSeries(ctx context.Context, seriesUID string) (*store.MasterSeries, error) {
	normal := store.Normal
	series, err := s.store.GetMasterSeries(ctx, &store.FindMasterSeries{
		UID:       &seriesUID,
		RowStatus: &normal,
	})
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrCodeFailedPrecondition, "failed to load series")
	}
	if series == nil {
		return nil, apperr.SeriesNotFound(seriesUID)
	}
	return series, nil
}
