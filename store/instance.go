package store

import (
	"context"
)

// Task instance statuses.
const (
	InstanceStatusPending    = "pending"
	InstanceStatusInProgress = "in-progress"
	InstanceStatusCompleted  = "completed"
	InstanceStatusRejected   = "rejected"
	InstanceStatusOverdue    = "overdue"
)

// TaskInstance is one concrete, dated occurrence of a recurring task, or the
// sole occurrence of a one-time task (SeriesUID nil).
type TaskInstance struct {
	ID        int32
	UID       string
	RowStatus RowStatus
	CreatedTs int64
	UpdatedTs int64

	CompanyID int32

	// SeriesUID references the owning master series. SequenceNumber is
	// 1-based, dense, and monotonic with DueTs within one series;
	// (SeriesUID, SequenceNumber) is unique.
	SeriesUID      *string
	SequenceNumber int32

	// DueTs is a civil date carried as a midnight-UTC timestamp.
	DueTs int64

	Title       string
	Description string
	Priority    string
	AssigneeID  int32
	AssignerID  int32
	Attachments *string

	Status         string
	CompletedTs    *int64
	CompletionNote *string

	IsActive     bool
	DeletedTs    *int64
	AutoDeleteTs *int64
}

// FindTaskInstance is the find condition for task instances.
type FindTaskInstance struct {
	ID         *int32
	UID        *string
	SeriesUID  *string
	CompanyID  *int32
	AssigneeID *int32

	Status    *string
	RowStatus *RowStatus
	IsActive  *bool

	DueAfter  *int64
	DueBefore *int64

	AutoDeleteBefore *int64

	Limit  *int
	Offset *int
}

// UpdateTaskInstance is the update request for a task instance.
// For nullable timestamp columns a pointer to zero clears the column.
type UpdateTaskInstance struct {
	ID        int32
	RowStatus *RowStatus

	Status         *string
	CompletedTs    *int64
	CompletionNote *string

	IsActive     *bool
	DeletedTs    *int64
	AutoDeleteTs *int64
}

// UpdateInstancesBySeries applies the same update to every instance of a
// series. Used by the recycle lifecycle so master and instances transition
// together.
type UpdateInstancesBySeries struct {
	SeriesUID string
	RowStatus *RowStatus

	IsActive     *bool
	DeletedTs    *int64
	AutoDeleteTs *int64
}

// DeleteTaskInstance is the delete request for a single task instance.
type DeleteTaskInstance struct {
	ID int32
}

// DeleteInstancesBySeries removes every instance belonging to a series.
type DeleteInstancesBySeries struct {
	SeriesUID string
}

// BulkWriteError is the per-item outcome of a failed bulk insert item.
type BulkWriteError struct {
	Index          int
	SeriesUID      string
	SequenceNumber int32
	Err            error
}

// BulkWriteResult reports the outcome of an unordered bulk instance write.
// Inserted counts rows actually written; Skipped counts rows dropped by the
// (series_uid, sequence_number) unique constraint, which makes retries of a
// partially applied batch safe.
type BulkWriteResult struct {
	Inserted int
	Skipped  int
	Failed   []BulkWriteError
}

// ListTaskInstances lists task instances with filter.
func (s *Store) ListTaskInstances(ctx context.Context, find *FindTaskInstance) ([]*TaskInstance, error) {
	return s.driver.ListTaskInstances(ctx, find)
}

// GetTaskInstance gets a single task instance, or nil when none matches.
func (s *Store) GetTaskInstance(ctx context.Context, find *FindTaskInstance) (*TaskInstance, error) {
	list, err := s.driver.ListTaskInstances(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// UpdateTaskInstance updates a task instance.
func (s *Store) UpdateTaskInstance(ctx context.Context, update *UpdateTaskInstance) error {
	return s.driver.UpdateTaskInstance(ctx, update)
}

// UpdateInstancesBySeries updates every instance of a series in one statement.
func (s *Store) UpdateInstancesBySeries(ctx context.Context, update *UpdateInstancesBySeries) error {
	return s.driver.UpdateInstancesBySeries(ctx, update)
}

// DeleteTaskInstance deletes a single task instance.
func (s *Store) DeleteTaskInstance(ctx context.Context, delete *DeleteTaskInstance) error {
	return s.driver.DeleteTaskInstance(ctx, delete)
}

// DeleteInstancesBySeries deletes every instance of a series.
func (s *Store) DeleteInstancesBySeries(ctx context.Context, delete *DeleteInstancesBySeries) error {
	return s.driver.DeleteInstancesBySeries(ctx, delete)
}

// BulkUpsertInstances writes a batch of instances unordered: a failure on one
// item never aborts its siblings, and per-item outcomes are reported in the
// result. The returned error is reserved for whole-batch failures such as a
// canceled context.
func (s *Store) BulkUpsertInstances(ctx context.Context, creates []*TaskInstance) (*BulkWriteResult, error) {
	return s.driver.BulkUpsertInstances(ctx, creates)
}

// CountPendingByAssignee aggregates live pending instances per assignee for
// one company.
func (s *Store) CountPendingByAssignee(ctx context.Context, companyID int32) (map[int32]int, error) {
	return s.driver.CountPendingByAssignee(ctx, companyID)
}
