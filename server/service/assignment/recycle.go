package assignment

import (
	"context"
	"log/slog"

	apperr "github.com/hrygo/assignflow/server/internal/errors"
	"github.com/hrygo/assignflow/server/internal/observability"
	"github.com/hrygo/assignflow/store"
)

// SoftDeleteSeries moves a series and every one of its instances into the
// recycle bin. The records stay restorable until the retention deadline, then
// the purge runner removes them for good.
func (s *service) SoftDeleteSeries(ctx context.Context, seriesUID string) error {
	series, err := s.findLiveSeries(ctx, seriesUID)
	if err != nil {
		return err
	}

	now := s.now().Unix()
	autoDelete := now + int64(s.retention.Seconds())
	archived := store.Archived

	if err := s.store.UpdateMasterSeries(ctx, &store.UpdateMasterSeries{
		ID:           series.ID,
		RowStatus:    &archived,
		DeletedTs:    &now,
		AutoDeleteTs: &autoDelete,
	}); err != nil {
		return apperr.Wrap(err, apperr.ErrCodeFailedPrecondition, "failed to soft-delete series")
	}
	if err := s.store.UpdateInstancesBySeries(ctx, &store.UpdateInstancesBySeries{
		SeriesUID:    seriesUID,
		RowStatus:    &archived,
		DeletedTs:    &now,
		AutoDeleteTs: &autoDelete,
	}); err != nil {
		return apperr.Wrap(err, apperr.ErrCodeFailedPrecondition, "failed to soft-delete instances")
	}

	s.invalidatePendingCounts(series.CompanyID)
	s.logger.Info("series soft-deleted",
		slog.String(observability.LogFieldSeriesUID, seriesUID),
		slog.Int64("auto_delete_ts", autoDelete))
	return nil
}

// RestoreSeries brings a soft-deleted series and its instances back.
func (s *service) RestoreSeries(ctx context.Context, seriesUID string) error {
	archived := store.Archived
	series, err := s.store.GetMasterSeries(ctx, &store.FindMasterSeries{
		UID:       &seriesUID,
		RowStatus: &archived,
	})
	if err != nil {
		return apperr.Wrap(err, apperr.ErrCodeFailedPrecondition, "failed to load series")
	}
	if series == nil {
		return apperr.SeriesNotFound(seriesUID)
	}

	normal := store.Normal
	// Pointer to zero clears the deletion timestamps.
	var zero int64
	if err := s.store.UpdateMasterSeries(ctx, &store.UpdateMasterSeries{
		ID:           series.ID,
		RowStatus:    &normal,
		DeletedTs:    &zero,
		AutoDeleteTs: &zero,
	}); err != nil {
		return apperr.Wrap(err, apperr.ErrCodeFailedPrecondition, "failed to restore series")
	}
	if err := s.store.UpdateInstancesBySeries(ctx, &store.UpdateInstancesBySeries{
		SeriesUID:    seriesUID,
		RowStatus:    &normal,
		DeletedTs:    &zero,
		AutoDeleteTs: &zero,
	}); err != nil {
		return apperr.Wrap(err, apperr.ErrCodeFailedPrecondition, "failed to restore instances")
	}

	s.invalidatePendingCounts(series.CompanyID)
	s.logger.Info("series restored", slog.String(observability.LogFieldSeriesUID, seriesUID))
	return nil
}

// PurgeSeries permanently removes a series and every one of its instances.
// Purging a series that no longer exists is a no-op, so the purge runner and
// a concurrent manual purge never trip over each other.
func (s *service) PurgeSeries(ctx context.Context, seriesUID string) error {
	series, err := s.store.GetMasterSeries(ctx, &store.FindMasterSeries{UID: &seriesUID})
	if err != nil {
		return apperr.Wrap(err, apperr.ErrCodeFailedPrecondition, "failed to load series")
	}
	if series == nil {
		return nil
	}

	if err := s.store.DeleteInstancesBySeries(ctx, &store.DeleteInstancesBySeries{
		SeriesUID: seriesUID,
	}); err != nil {
		return apperr.Wrap(err, apperr.ErrCodeFailedPrecondition, "failed to purge instances")
	}
	if err := s.store.DeleteMasterSeries(ctx, &store.DeleteMasterSeries{ID: series.ID}); err != nil {
		return apperr.Wrap(err, apperr.ErrCodeFailedPrecondition, "failed to purge series")
	}

	s.invalidatePendingCounts(series.CompanyID)
	s.logger.Info("series purged", slog.String(observability.LogFieldSeriesUID, seriesUID))
	return nil
}

// SoftDeleteInstance moves a single instance into the recycle bin without
// touching its series or siblings.
func (s *service) SoftDeleteInstance(ctx context.Context, instanceUID string) error {
	instance, err := s.findLiveInstance(ctx, instanceUID)
	if err != nil {
		return err
	}

	now := s.now().Unix()
	autoDelete := now + int64(s.retention.Seconds())
	archived := store.Archived
	if err := s.store.UpdateTaskInstance(ctx, &store.UpdateTaskInstance{
		ID:           instance.ID,
		RowStatus:    &archived,
		DeletedTs:    &now,
		AutoDeleteTs: &autoDelete,
	}); err != nil {
		return apperr.Wrap(err, apperr.ErrCodeFailedPrecondition, "failed to soft-delete instance")
	}

	s.invalidatePendingCounts(instance.CompanyID)
	return nil
}

// RestoreInstance brings a soft-deleted instance back.
func (s *service) RestoreInstance(ctx context.Context, instanceUID string) error {
	archived := store.Archived
	instance, err := s.store.GetTaskInstance(ctx, &store.FindTaskInstance{
		UID:       &instanceUID,
		RowStatus: &archived,
	})
	if err != nil {
		return apperr.Wrap(err, apperr.ErrCodeFailedPrecondition, "failed to load instance")
	}
	if instance == nil {
		return apperr.InstanceNotFound(instanceUID)
	}

	normal := store.Normal
	var zero int64
	if err := s.store.UpdateTaskInstance(ctx, &store.UpdateTaskInstance{
		ID:           instance.ID,
		RowStatus:    &normal,
		DeletedTs:    &zero,
		AutoDeleteTs: &zero,
	}); err != nil {
		return apperr.Wrap(err, apperr.ErrCodeFailedPrecondition, "failed to restore instance")
	}

	s.invalidatePendingCounts(instance.CompanyID)
	return nil
}

// PurgeInstance permanently removes a single instance. Idempotent.
func (s *service) PurgeInstance(ctx context.Context, instanceUID string) error {
	instance, err := s.store.GetTaskInstance(ctx, &store.FindTaskInstance{UID: &instanceUID})
	if err != nil {
		return apperr.Wrap(err, apperr.ErrCodeFailedPrecondition, "failed to load instance")
	}
	if instance == nil {
		return nil
	}

	if err := s.store.DeleteTaskInstance(ctx, &store.DeleteTaskInstance{ID: instance.ID}); err != nil {
		return apperr.Wrap(err, apperr.ErrCodeFailedPrecondition, "failed to purge instance")
	}

	s.invalidatePendingCounts(instance.CompanyID)
	return nil
}

// CompleteInstance marks an instance done and records when and with what
// note. Completion never touches the series or sibling instances.
func (s *service) CompleteInstance(ctx context.Context, instanceUID string, note string) error {
	return s.setInstanceOutcome(ctx, instanceUID, store.InstanceStatusCompleted, note)
}

// RejectInstance marks an instance refused by its assignee, with the reason.
func (s *service) RejectInstance(ctx context.Context, instanceUID string, note string) error {
	return s.setInstanceOutcome(ctx, instanceUID, store.InstanceStatusRejected, note)
}

func (s *service) setInstanceOutcome(ctx context.Context, instanceUID, status, note string) error {
	instance, err := s.findLiveInstance(ctx, instanceUID)
	if err != nil {
		return err
	}
	if instance.Status == store.InstanceStatusCompleted || instance.Status == store.InstanceStatusRejected {
		return apperr.FailedPrecondition("instance %s is already %s", instanceUID, instance.Status)
	}

	now := s.now().Unix()
	update := &store.UpdateTaskInstance{
		ID:          instance.ID,
		Status:      &status,
		CompletedTs: &now,
	}
	if note != "" {
		update.CompletionNote = &note
	}
	if err := s.store.UpdateTaskInstance(ctx, update); err != nil {
		return apperr.Wrap(err, apperr.ErrCodeFailedPrecondition, "failed to update instance")
	}

	s.invalidatePendingCounts(instance.CompanyID)
	return nil
}

func (s *service) findLiveInstance(ctx context.Context, instanceUID string) (*store.TaskInstance, error) {
	normal := store.Normal
	instance, err := s.store.GetTaskInstance(ctx, &store.FindTaskInstance{
		UID:       &instanceUID,
		RowStatus: &normal,
	})
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrCodeFailedPrecondition, "failed to load instance")
	}
	if instance == nil {
		return nil, apperr.InstanceNotFound(instanceUID)
	}
	return instance, nil
}
