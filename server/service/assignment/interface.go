// Package assignment implements the recurring-assignment engine: it expands
// recurrence rules into dated task instances, fans templates out across
// assignees, and keeps each series consistent through reschedules,
// reassignment to new periods, and the recycle lifecycle.
//
// The engine computes which dates exist and which series owns them; it fires
// no side effects at due time. HTTP routing, access control, and identity
// validation live with the callers.
package assignment

import (
	"context"
	"log/slog"
	"time"

	"github.com/hrygo/assignflow/server/scheduler/recur"
	"github.com/hrygo/assignflow/store"
)

// Store is the interface for store operations needed by the assignment
// service.
type Store interface {
	CreateMasterSeries(ctx context.Context, create *store.MasterSeries) (*store.MasterSeries, error)
	GetMasterSeries(ctx context.Context, find *store.FindMasterSeries) (*store.MasterSeries, error)
	ListMasterSeries(ctx context.Context, find *store.FindMasterSeries) ([]*store.MasterSeries, error)
	UpdateMasterSeries(ctx context.Context, update *store.UpdateMasterSeries) error
	DeleteMasterSeries(ctx context.Context, delete *store.DeleteMasterSeries) error

	GetTaskInstance(ctx context.Context, find *store.FindTaskInstance) (*store.TaskInstance, error)
	ListTaskInstances(ctx context.Context, find *store.FindTaskInstance) ([]*store.TaskInstance, error)
	UpdateTaskInstance(ctx context.Context, update *store.UpdateTaskInstance) error
	UpdateInstancesBySeries(ctx context.Context, update *store.UpdateInstancesBySeries) error
	DeleteTaskInstance(ctx context.Context, delete *store.DeleteTaskInstance) error
	DeleteInstancesBySeries(ctx context.Context, delete *store.DeleteInstancesBySeries) error
	BulkUpsertInstances(ctx context.Context, creates []*store.TaskInstance) (*store.BulkWriteResult, error)
	CountPendingByAssignee(ctx context.Context, companyID int32) (map[int32]int, error)
}

// Cache is the injected cache abstraction for the pending-counts read path.
// The caller owns the cache instance; the service never reaches for shared
// global state.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	Delete(key string)
}

// Template describes one task to generate: the recurrence rule plus the
// fields copied onto every instance.
type Template struct {
	Title       string
	Description string
	Priority    string
	Rule        recur.Rule
	Attachments []Attachment
}

// GenerateRequest is the input of the bulk generation operation: every
// template is generated once per assignee.
type GenerateRequest struct {
	CompanyID   int32
	AssignerID  int32
	AssigneeIDs []int32
	Templates   []Template
}

// PairError reports a failed (template, assignee) combination. Failures are
// isolated: other combinations of the same request are unaffected.
type PairError struct {
	TemplateIndex int
	AssigneeID    int32
	Err           error
}

// GenerateResult is the outcome of a bulk generation call. Generation has
// partial-success semantics: CreatedCount and FailedCount report per-item
// outcomes of the unordered bulk write, and callers must treat the call as
// at-least-once.
type GenerateResult struct {
	CreatedCount int
	SkippedCount int
	FailedCount  int
	SeriesUIDs   []string
	PairErrors   []PairError
}

// RescheduleResult reports the regenerated instance count of a series.
type RescheduleResult struct {
	InstanceCount int
}

// ReassignResult reports the successor series minted for an exhausted
// forever series.
type ReassignResult struct {
	NewSeriesUID string
	CreatedCount int
}

// Service is the recurring-assignment engine.
type Service interface {
	// Generate fans templates out across assignees, expands every pair into
	// dated instances, and persists everything in one unordered batch.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error)

	// Reschedule replaces every current instance of the series with a fresh
	// expansion of the new rule, keeping the series identifier.
	Reschedule(ctx context.Context, seriesUID string, rule recur.Rule) (*RescheduleResult, error)

	// Reassign mints a successor series for a forever series whose generated
	// horizon is exhausted, covering the year after its last due date.
	Reassign(ctx context.Context, seriesUID string) (*ReassignResult, error)

	// RecoverInterrupted rolls forward reschedules that crashed between
	// instance purge and re-expansion. Returns the number of recovered
	// series. Run at startup.
	RecoverInterrupted(ctx context.Context) (int, error)

	// Recycle lifecycle. Series operations cascade to every instance of the
	// series; purge is idempotent.
	SoftDeleteSeries(ctx context.Context, seriesUID string) error
	RestoreSeries(ctx context.Context, seriesUID string) error
	PurgeSeries(ctx context.Context, seriesUID string) error
	SoftDeleteInstance(ctx context.Context, instanceUID string) error
	RestoreInstance(ctx context.Context, instanceUID string) error
	PurgeInstance(ctx context.Context, instanceUID string) error

	// Completion metadata.
	CompleteInstance(ctx context.Context, instanceUID string, note string) error
	RejectInstance(ctx context.Context, instanceUID string, note string) error

	// PendingCounts aggregates live pending instances per assignee for one
	// company, served through the injected cache.
	PendingCounts(ctx context.Context, companyID int32) (map[int32]int, error)

	// Close stops the notification dispatcher.
	Close()
}

// Config tunes the service. Zero values fall back to defaults.
type Config struct {
	// Retention is how long soft-deleted records stay restorable.
	Retention time.Duration
	// NotifyRatePerSec throttles the notification dispatcher.
	NotifyRatePerSec float64
	// AttachmentResolver stores inline attachment content. Optional; requests
	// carrying inline content are rejected when unset.
	AttachmentResolver AttachmentResolver
	Logger             *slog.Logger
}

type service struct {
	store      Store
	cache      Cache
	dispatcher *dispatcher
	resolver   AttachmentResolver
	retention  time.Duration
	logger     *slog.Logger

	// now is swapped in tests.
	now func() time.Time
}

// NewService creates a new assignment service.
func NewService(st Store, cache Cache, notifier Notifier, config Config) Service {
	if config.Retention <= 0 {
		config.Retention = 30 * 24 * time.Hour
	}
	if config.NotifyRatePerSec <= 0 {
		config.NotifyRatePerSec = 20
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &service{
		store:      st,
		cache:      cache,
		dispatcher: newDispatcher(notifier, config.NotifyRatePerSec, config.Logger),
		resolver:   config.AttachmentResolver,
		retention:  config.Retention,
		logger:     config.Logger,
		now:        time.Now,
	}
}

func (s *service) Close() {
	s.dispatcher.close()
}
