package purge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/assignflow/store"
)

type fakeStore struct {
	series    []*store.MasterSeries
	instances []*store.TaskInstance
}

func (f *fakeStore) ListMasterSeries(_ context.Context, find *store.FindMasterSeries) ([]*store.MasterSeries, error) {
	var list []*store.MasterSeries
	for _, s := range f.series {
		if find.RowStatus != nil && s.RowStatus != *find.RowStatus {
			continue
		}
		if find.AutoDeleteBefore != nil && (s.AutoDeleteTs == nil || *s.AutoDeleteTs >= *find.AutoDeleteBefore) {
			continue
		}
		list = append(list, s)
	}
	return list, nil
}

func (f *fakeStore) ListTaskInstances(_ context.Context, find *store.FindTaskInstance) ([]*store.TaskInstance, error) {
	var list []*store.TaskInstance
	for _, inst := range f.instances {
		if find.RowStatus != nil && inst.RowStatus != *find.RowStatus {
			continue
		}
		if find.AutoDeleteBefore != nil && (inst.AutoDeleteTs == nil || *inst.AutoDeleteTs >= *find.AutoDeleteBefore) {
			continue
		}
		list = append(list, inst)
	}
	return list, nil
}

type fakePurger struct {
	mu        sync.Mutex
	series    []string
	instances []string
}

func (p *fakePurger) PurgeSeries(_ context.Context, seriesUID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.series = append(p.series, seriesUID)
	return nil
}

func (p *fakePurger) PurgeInstance(_ context.Context, instanceUID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.instances = append(p.instances, instanceUID)
	return nil
}

func ts(t time.Time) *int64 {
	v := t.Unix()
	return &v
}

func TestRunOnce_PurgesOnlyExpired(t *testing.T) {
	now := time.Date(2024, time.September, 1, 3, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	st := &fakeStore{
		series: []*store.MasterSeries{
			{UID: "expired-series", RowStatus: store.Archived, AutoDeleteTs: ts(past)},
			{UID: "still-retained", RowStatus: store.Archived, AutoDeleteTs: ts(future)},
			{UID: "live-series", RowStatus: store.Normal},
		},
		instances: []*store.TaskInstance{
			{UID: "expired-instance", RowStatus: store.Archived, AutoDeleteTs: ts(past)},
			{UID: "retained-instance", RowStatus: store.Archived, AutoDeleteTs: ts(future)},
			{UID: "live-instance", RowStatus: store.Normal},
		},
	}
	purger := &fakePurger{}
	runner := NewRunner(st, purger, "0 3 * * *")
	runner.now = func() time.Time { return now }

	runner.RunOnce(context.Background())

	require.Equal(t, []string{"expired-series"}, purger.series)
	require.Equal(t, []string{"expired-instance"}, purger.instances)
}

func TestRunOnce_EmptyBin(t *testing.T) {
	purger := &fakePurger{}
	runner := NewRunner(&fakeStore{}, purger, "0 3 * * *")
	runner.RunOnce(context.Background())
	require.Empty(t, purger.series)
	require.Empty(t, purger.instances)
}
