package assignment

import (
	"context"
	"log/slog"
	"time"

	"github.com/hrygo/assignflow/internal/util"
	apperr "github.com/hrygo/assignflow/server/internal/errors"
	"github.com/hrygo/assignflow/server/internal/observability"
	"github.com/hrygo/assignflow/server/scheduler/recur"
	"github.com/hrygo/assignflow/store"
)

// Reassign extends an exhausted forever series into its next period. A
// successor series is minted with the same rule, rolled forward to start the
// day after the predecessor's last due date and to cover one more year. The
// predecessor is kept as history: deactivated, never mutated, its instances
// untouched.
func (s *service) Reassign(ctx context.Context, seriesUID string) (*ReassignResult, error) {
	series, err := s.findLiveSeries(ctx, seriesUID)
	if err != nil {
		return nil, err
	}
	if !series.Forever {
		return nil, apperr.NotForever(seriesUID)
	}
	if !series.IsActive {
		return nil, apperr.FailedPrecondition("series %s is already superseded", seriesUID)
	}

	reqCtx := observability.NewRequestContext(s.logger, "reassign", series.CompanyID)

	lastDue, err := s.lastDueDate(ctx, series)
	if err != nil {
		return nil, err
	}
	newStart := lastDue.AddDate(0, 0, 1)
	newEnd := newStart.AddDate(horizonYears, 0, 0)

	rule := ruleFromSeries(series)
	rule.Start = newStart
	rule.End = newEnd

	// The successor expands over its bounded one-year window; Forever stays
	// set on the rule so the series remains reassignable next period, but
	// expansion must not treat the window as provisional.
	dates, err := recur.Expand(recur.Rule{
		Pattern:        rule.Pattern,
		Start:          rule.Start,
		End:            rule.End,
		IncludeSunday:  rule.IncludeSunday,
		WeeklyDays:     rule.WeeklyDays,
		MonthlyDay:     rule.MonthlyDay,
		YearlyDuration: rule.YearlyDuration,
		WeekOffDays:    rule.WeekOffDays,
	}, recur.DateOf(newStart), recur.DateOf(newEnd))
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrCodeInvalidArgument, "rule expansion failed")
	}
	if len(dates) == 0 {
		return nil, apperr.FailedPrecondition("rule yields no occurrences in the next period")
	}

	successor := &store.MasterSeries{
		UID:         util.GenUUID(),
		RowStatus:   store.Normal,
		CompanyID:   series.CompanyID,
		Title:       series.Title,
		Description: series.Description,
		Priority:    series.Priority,
		AssigneeID:  series.AssigneeID,
		AssignerID:  series.AssignerID,
		Attachments: series.Attachments,
		IsActive:    true,
	}
	applyRuleToSeries(successor, rule)
	created, err := s.store.CreateMasterSeries(ctx, successor)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrCodeFailedPrecondition, "failed to create successor series")
	}

	tmpl := &Template{
		Title:       series.Title,
		Description: series.Description,
		Priority:    series.Priority,
	}
	instances := buildInstances(dates, tmpl, &created.UID,
		series.CompanyID, series.AssigneeID, series.AssignerID, series.Attachments)
	bulk, err := s.store.BulkUpsertInstances(ctx, instances)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrCodePartialPersistence, "bulk instance write aborted")
	}

	// Deactivate the predecessor only after the successor exists, so a crash
	// in between leaves both queryable rather than neither.
	inactive := false
	if err := s.store.UpdateMasterSeries(ctx, &store.UpdateMasterSeries{
		ID:       series.ID,
		IsActive: &inactive,
	}); err != nil {
		return nil, apperr.Wrap(err, apperr.ErrCodeFailedPrecondition, "failed to deactivate predecessor")
	}

	if err := s.healSeriesEnd(ctx, created.UID); err != nil {
		reqCtx.Warn("failed to heal successor end date",
			slog.String(observability.LogFieldSeriesUID, created.UID),
			slog.String("error", err.Error()))
	}

	s.dispatcher.enqueue(AssignmentNotice{
		CompanyID:     series.CompanyID,
		AssigneeID:    series.AssigneeID,
		SeriesUID:     created.UID,
		Title:         series.Title,
		FirstDue:      dates[0],
		InstanceCount: len(dates),
	})
	s.invalidatePendingCounts(series.CompanyID)

	reqCtx.Info("series reassigned",
		slog.String(observability.LogFieldSeriesUID, seriesUID),
		slog.String("successor_uid", created.UID),
		slog.Int("instances", bulk.Inserted),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
	return &ReassignResult{NewSeriesUID: created.UID, CreatedCount: bulk.Inserted}, nil
}

// lastDueDate finds the latest due date the series has generated, falling
// back to the stored end date for a series whose instances were all purged.
func (s *service) lastDueDate(ctx context.Context, series *store.MasterSeries) (time.Time, error) {
	instances, err := s.store.ListTaskInstances(ctx, &store.FindTaskInstance{
		SeriesUID: &series.UID,
	})
	if err != nil {
		return time.Time{}, apperr.Wrap(err, apperr.ErrCodeFailedPrecondition, "failed to list instances")
	}
	var maxDue int64
	for _, inst := range instances {
		if inst.DueTs > maxDue {
			maxDue = inst.DueTs
		}
	}
	if maxDue == 0 {
		if series.EndTs != nil {
			maxDue = *series.EndTs
		} else {
			maxDue = series.StartTs
		}
	}
	return time.Unix(maxDue, 0).UTC(), nil
}
