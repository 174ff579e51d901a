package assignment

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/assignflow/store"
)

// fakeStore is an in-memory Store with the same filtering and
// pointer-to-zero-clears semantics as the SQL drivers.
type fakeStore struct {
	mu          sync.Mutex
	seriesSeq   int32
	instanceSeq int32
	series      map[int32]*store.MasterSeries
	instances   map[int32]*store.TaskInstance

	// failBulkSeries makes BulkUpsertInstances fail items of these series.
	failBulkSeries map[string]bool
	failCreate     bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		series:         make(map[int32]*store.MasterSeries),
		instances:      make(map[int32]*store.TaskInstance),
		failBulkSeries: make(map[string]bool),
	}
}

func (f *fakeStore) CreateMasterSeries(_ context.Context, create *store.MasterSeries) (*store.MasterSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return nil, errors.New("injected create failure")
	}
	f.seriesSeq++
	create.ID = f.seriesSeq
	create.CreatedTs = time.Now().Unix()
	create.UpdatedTs = create.CreatedTs
	f.series[create.ID] = create
	return create, nil
}

func (f *fakeStore) ListMasterSeries(_ context.Context, find *store.FindMasterSeries) ([]*store.MasterSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var list []*store.MasterSeries
	for _, s := range f.series {
		if find.ID != nil && s.ID != *find.ID {
			continue
		}
		if find.UID != nil && s.UID != *find.UID {
			continue
		}
		if find.CompanyID != nil && s.CompanyID != *find.CompanyID {
			continue
		}
		if find.AssigneeID != nil && s.AssigneeID != *find.AssigneeID {
			continue
		}
		if find.RowStatus != nil && s.RowStatus != *find.RowStatus {
			continue
		}
		if find.IsActive != nil && s.IsActive != *find.IsActive {
			continue
		}
		if find.Regenerating != nil && s.Regenerating != *find.Regenerating {
			continue
		}
		if find.AutoDeleteBefore != nil && (s.AutoDeleteTs == nil || *s.AutoDeleteTs >= *find.AutoDeleteBefore) {
			continue
		}
		list = append(list, s)
	}
	return list, nil
}

func (f *fakeStore) GetMasterSeries(ctx context.Context, find *store.FindMasterSeries) (*store.MasterSeries, error) {
	list, err := f.ListMasterSeries(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (f *fakeStore) UpdateMasterSeries(_ context.Context, update *store.UpdateMasterSeries) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.series[update.ID]
	if !ok {
		return errors.Errorf("series %d not found", update.ID)
	}
	if update.RowStatus != nil {
		s.RowStatus = *update.RowStatus
	}
	if update.Title != nil {
		s.Title = *update.Title
	}
	if update.Description != nil {
		s.Description = *update.Description
	}
	if update.Priority != nil {
		s.Priority = *update.Priority
	}
	if update.AssigneeID != nil {
		s.AssigneeID = *update.AssigneeID
	}
	if update.Attachments != nil {
		s.Attachments = update.Attachments
	}
	if update.Pattern != nil {
		s.Pattern = *update.Pattern
	}
	if update.StartTs != nil {
		s.StartTs = *update.StartTs
	}
	if update.EndTs != nil {
		s.EndTs = nullableTs(update.EndTs)
	}
	if update.Forever != nil {
		s.Forever = *update.Forever
	}
	if update.IncludeSunday != nil {
		s.IncludeSunday = *update.IncludeSunday
	}
	if update.WeeklyDays != nil {
		s.WeeklyDays = update.WeeklyDays
	}
	if update.MonthlyDay != nil {
		s.MonthlyDay = *update.MonthlyDay
	}
	if update.YearlyDuration != nil {
		s.YearlyDuration = *update.YearlyDuration
	}
	if update.WeekOffDays != nil {
		s.WeekOffDays = update.WeekOffDays
	}
	if update.IsActive != nil {
		s.IsActive = *update.IsActive
	}
	if update.Regenerating != nil {
		s.Regenerating = *update.Regenerating
	}
	if update.DeletedTs != nil {
		s.DeletedTs = nullableTs(update.DeletedTs)
	}
	if update.AutoDeleteTs != nil {
		s.AutoDeleteTs = nullableTs(update.AutoDeleteTs)
	}
	s.UpdatedTs = time.Now().Unix()
	return nil
}

func (f *fakeStore) DeleteMasterSeries(_ context.Context, del *store.DeleteMasterSeries) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.series, del.ID)
	return nil
}

func (f *fakeStore) ListTaskInstances(_ context.Context, find *store.FindTaskInstance) ([]*store.TaskInstance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var list []*store.TaskInstance
	for _, inst := range f.instances {
		if find.ID != nil && inst.ID != *find.ID {
			continue
		}
		if find.UID != nil && inst.UID != *find.UID {
			continue
		}
		if find.SeriesUID != nil && (inst.SeriesUID == nil || *inst.SeriesUID != *find.SeriesUID) {
			continue
		}
		if find.CompanyID != nil && inst.CompanyID != *find.CompanyID {
			continue
		}
		if find.AssigneeID != nil && inst.AssigneeID != *find.AssigneeID {
			continue
		}
		if find.Status != nil && inst.Status != *find.Status {
			continue
		}
		if find.RowStatus != nil && inst.RowStatus != *find.RowStatus {
			continue
		}
		if find.IsActive != nil && inst.IsActive != *find.IsActive {
			continue
		}
		if find.DueAfter != nil && inst.DueTs < *find.DueAfter {
			continue
		}
		if find.DueBefore != nil && inst.DueTs > *find.DueBefore {
			continue
		}
		if find.AutoDeleteBefore != nil && (inst.AutoDeleteTs == nil || *inst.AutoDeleteTs >= *find.AutoDeleteBefore) {
			continue
		}
		list = append(list, inst)
	}
	return list, nil
}

func (f *fakeStore) GetTaskInstance(ctx context.Context, find *store.FindTaskInstance) (*store.TaskInstance, error) {
	list, err := f.ListTaskInstances(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (f *fakeStore) UpdateTaskInstance(_ context.Context, update *store.UpdateTaskInstance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inst, ok := f.instances[update.ID]
	if !ok {
		return errors.Errorf("instance %d not found", update.ID)
	}
	if update.RowStatus != nil {
		inst.RowStatus = *update.RowStatus
	}
	if update.Status != nil {
		inst.Status = *update.Status
	}
	if update.CompletedTs != nil {
		inst.CompletedTs = nullableTs(update.CompletedTs)
	}
	if update.CompletionNote != nil {
		inst.CompletionNote = update.CompletionNote
	}
	if update.IsActive != nil {
		inst.IsActive = *update.IsActive
	}
	if update.DeletedTs != nil {
		inst.DeletedTs = nullableTs(update.DeletedTs)
	}
	if update.AutoDeleteTs != nil {
		inst.AutoDeleteTs = nullableTs(update.AutoDeleteTs)
	}
	inst.UpdatedTs = time.Now().Unix()
	return nil
}

func (f *fakeStore) UpdateInstancesBySeries(_ context.Context, update *store.UpdateInstancesBySeries) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inst := range f.instances {
		if inst.SeriesUID == nil || *inst.SeriesUID != update.SeriesUID {
			continue
		}
		if update.RowStatus != nil {
			inst.RowStatus = *update.RowStatus
		}
		if update.IsActive != nil {
			inst.IsActive = *update.IsActive
		}
		if update.DeletedTs != nil {
			inst.DeletedTs = nullableTs(update.DeletedTs)
		}
		if update.AutoDeleteTs != nil {
			inst.AutoDeleteTs = nullableTs(update.AutoDeleteTs)
		}
	}
	return nil
}

func (f *fakeStore) DeleteTaskInstance(_ context.Context, del *store.DeleteTaskInstance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.instances, del.ID)
	return nil
}

func (f *fakeStore) DeleteInstancesBySeries(_ context.Context, del *store.DeleteInstancesBySeries) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, inst := range f.instances {
		if inst.SeriesUID != nil && *inst.SeriesUID == del.SeriesUID {
			delete(f.instances, id)
		}
	}
	return nil
}

func (f *fakeStore) BulkUpsertInstances(_ context.Context, creates []*store.TaskInstance) (*store.BulkWriteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := &store.BulkWriteResult{}
	for i, create := range creates {
		seriesUID := ""
		if create.SeriesUID != nil {
			seriesUID = *create.SeriesUID
		}
		if f.failBulkSeries[seriesUID] {
			result.Failed = append(result.Failed, store.BulkWriteError{
				Index:          i,
				SeriesUID:      seriesUID,
				SequenceNumber: create.SequenceNumber,
				Err:            errors.New("injected bulk failure"),
			})
			continue
		}
		if create.SeriesUID != nil && f.hasInstanceLocked(*create.SeriesUID, create.SequenceNumber) {
			result.Skipped++
			continue
		}
		f.instanceSeq++
		create.ID = f.instanceSeq
		create.CreatedTs = time.Now().Unix()
		create.UpdatedTs = create.CreatedTs
		f.instances[create.ID] = create
		result.Inserted++
	}
	return result, nil
}

func (f *fakeStore) hasInstanceLocked(seriesUID string, seq int32) bool {
	for _, inst := range f.instances {
		if inst.SeriesUID != nil && *inst.SeriesUID == seriesUID && inst.SequenceNumber == seq {
			return true
		}
	}
	return false
}

func (f *fakeStore) CountPendingByAssignee(_ context.Context, companyID int32) (map[int32]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[int32]int)
	for _, inst := range f.instances {
		if inst.CompanyID != companyID || inst.RowStatus != store.Normal || !inst.IsActive {
			continue
		}
		switch inst.Status {
		case store.InstanceStatusPending, store.InstanceStatusInProgress, store.InstanceStatusOverdue:
			counts[inst.AssigneeID]++
		}
	}
	return counts, nil
}

func nullableTs(ts *int64) *int64 {
	if ts == nil || *ts == 0 {
		return nil
	}
	return ts
}

// mapCache is a deterministic Cache for tests.
type mapCache struct {
	mu sync.Mutex
	m  map[string]any
}

func newMapCache() *mapCache {
	return &mapCache{m: make(map[string]any)}
}

func (c *mapCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	return v, ok
}

func (c *mapCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value
}

func (c *mapCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
}

// collectNotifier records delivered notices.
type collectNotifier struct {
	mu      sync.Mutex
	notices []AssignmentNotice
}

func (n *collectNotifier) NotifyAssignment(_ context.Context, notice AssignmentNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return nil
}

func (n *collectNotifier) all() []AssignmentNotice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]AssignmentNotice(nil), n.notices...)
}
