package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// MasterSeries model related methods.
	CreateMasterSeries(ctx context.Context, create *MasterSeries) (*MasterSeries, error)
	ListMasterSeries(ctx context.Context, find *FindMasterSeries) ([]*MasterSeries, error)
	UpdateMasterSeries(ctx context.Context, update *UpdateMasterSeries) error
	DeleteMasterSeries(ctx context.Context, delete *DeleteMasterSeries) error

	// TaskInstance model related methods.
	ListTaskInstances(ctx context.Context, find *FindTaskInstance) ([]*TaskInstance, error)
	UpdateTaskInstance(ctx context.Context, update *UpdateTaskInstance) error
	UpdateInstancesBySeries(ctx context.Context, update *UpdateInstancesBySeries) error
	DeleteTaskInstance(ctx context.Context, delete *DeleteTaskInstance) error
	DeleteInstancesBySeries(ctx context.Context, delete *DeleteInstancesBySeries) error

	// BulkUpsertInstances writes instances unordered with per-item outcomes.
	BulkUpsertInstances(ctx context.Context, creates []*TaskInstance) (*BulkWriteResult, error)

	// CountPendingByAssignee aggregates live pending instances per assignee.
	CountPendingByAssignee(ctx context.Context, companyID int32) (map[int32]int, error)
}
