package store

import (
	"context"
)

// MasterSeries is the single authoritative rule record owning a family of
// generated task instances. Instances reference it by UID; one-time tasks
// have no master.
type MasterSeries struct {
	ID        int32
	UID       string
	RowStatus RowStatus
	CreatedTs int64
	UpdatedTs int64

	CompanyID   int32
	Title       string
	Description string
	Priority    string
	AssigneeID  int32
	AssignerID  int32
	Attachments *string

	// Recurrence rule parameters. StartTs/EndTs are civil dates carried as
	// midnight-UTC timestamps. EndTs of a forever series is a cache of the
	// empirically observed horizon, not a hard boundary.
	Pattern        string
	StartTs        int64
	EndTs          *int64
	Forever        bool
	IncludeSunday  bool
	WeeklyDays     *string
	MonthlyDay     int32
	YearlyDuration int32
	WeekOffDays    *string

	// IsActive is cleared when the series is superseded by a reassignment;
	// the series and its instances then remain queryable as history.
	IsActive bool

	// Regenerating marks an in-flight reschedule. A series found with this
	// flag set at startup was interrupted between instance purge and
	// re-expansion and must be rolled forward.
	Regenerating bool

	DeletedTs    *int64
	AutoDeleteTs *int64
}

// FindMasterSeries is the find condition for master series.
type FindMasterSeries struct {
	ID         *int32
	UID        *string
	CompanyID  *int32
	AssigneeID *int32

	RowStatus    *RowStatus
	IsActive     *bool
	Regenerating *bool

	// AutoDeleteBefore matches soft-deleted series whose retention deadline
	// has passed.
	AutoDeleteBefore *int64

	Limit  *int
	Offset *int
}

// UpdateMasterSeries is the update request for master series.
// For nullable timestamp columns a pointer to zero clears the column.
type UpdateMasterSeries struct {
	ID        int32
	RowStatus *RowStatus

	Title       *string
	Description *string
	Priority    *string
	AssigneeID  *int32
	Attachments *string

	Pattern        *string
	StartTs        *int64
	EndTs          *int64
	Forever        *bool
	IncludeSunday  *bool
	WeeklyDays     *string
	MonthlyDay     *int32
	YearlyDuration *int32
	WeekOffDays    *string

	IsActive     *bool
	Regenerating *bool
	DeletedTs    *int64
	AutoDeleteTs *int64
}

// DeleteMasterSeries is the delete request for master series.
type DeleteMasterSeries struct {
	ID int32
}

// CreateMasterSeries creates a new master series.
func (s *Store) CreateMasterSeries(ctx context.Context, create *MasterSeries) (*MasterSeries, error) {
	return s.driver.CreateMasterSeries(ctx, create)
}

// ListMasterSeries lists master series with filter.
func (s *Store) ListMasterSeries(ctx context.Context, find *FindMasterSeries) ([]*MasterSeries, error) {
	return s.driver.ListMasterSeries(ctx, find)
}

// GetMasterSeries gets a single master series, or nil when none matches.
func (s *Store) GetMasterSeries(ctx context.Context, find *FindMasterSeries) (*MasterSeries, error) {
	if find.UID != nil {
		if v, ok := s.seriesCache.Get(*find.UID); ok {
			if series, ok := v.(*MasterSeries); ok {
				return series, nil
			}
		}
	}
	list, err := s.driver.ListMasterSeries(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	series := list[0]
	s.seriesCache.Set(series.UID, series)
	return series, nil
}

// UpdateMasterSeries updates a master series. Series mutations are rare
// compared to lookups, so the whole series cache is dropped rather than
// tracking the UID of every touched row.
func (s *Store) UpdateMasterSeries(ctx context.Context, update *UpdateMasterSeries) error {
	if err := s.driver.UpdateMasterSeries(ctx, update); err != nil {
		return err
	}
	s.seriesCache.Clear()
	return nil
}

// DeleteMasterSeries deletes a master series.
func (s *Store) DeleteMasterSeries(ctx context.Context, delete *DeleteMasterSeries) error {
	if err := s.driver.DeleteMasterSeries(ctx, delete); err != nil {
		return err
	}
	s.seriesCache.Clear()
	return nil
}
