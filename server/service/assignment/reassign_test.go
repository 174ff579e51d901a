package assignment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperr "github.com/hrygo/assignflow/server/internal/errors"
	"github.com/hrygo/assignflow/server/scheduler/recur"
	"github.com/hrygo/assignflow/store"
)

func TestReassign_MintsSuccessor(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	svc, _, _ := newTestService(st)
	defer svc.Close()

	uid := generateOneSeries(t, svc, recur.Rule{
		Pattern: recur.Daily,
		Start:   recur.Date(2024, time.January, 1),
		Forever: true,
	})

	oldInstances, err := st.ListTaskInstances(ctx, &store.FindTaskInstance{SeriesUID: &uid})
	require.NoError(t, err)
	var lastDue int64
	for _, inst := range oldInstances {
		if inst.DueTs > lastDue {
			lastDue = inst.DueTs
		}
	}

	result, err := svc.Reassign(ctx, uid)
	require.NoError(t, err)
	require.NotEqual(t, uid, result.NewSeriesUID)
	require.Greater(t, result.CreatedCount, 0)

	// The predecessor stays as history: deactivated, instances untouched.
	predecessor, err := st.GetMasterSeries(ctx, &store.FindMasterSeries{UID: &uid})
	require.NoError(t, err)
	require.False(t, predecessor.IsActive)
	stillThere, err := st.ListTaskInstances(ctx, &store.FindTaskInstance{SeriesUID: &uid})
	require.NoError(t, err)
	require.Len(t, stillThere, len(oldInstances))

	// The successor picks up the day after the predecessor's last due date
	// and stays a forever series.
	successor, err := st.GetMasterSeries(ctx, &store.FindMasterSeries{UID: &result.NewSeriesUID})
	require.NoError(t, err)
	require.True(t, successor.IsActive)
	require.True(t, successor.Forever)
	wantStart := time.Unix(lastDue, 0).UTC().AddDate(0, 0, 1)
	require.Equal(t, wantStart.Unix(), successor.StartTs)

	newInstances, err := st.ListTaskInstances(ctx, &store.FindTaskInstance{SeriesUID: &result.NewSeriesUID})
	require.NoError(t, err)
	require.Len(t, newInstances, result.CreatedCount)
	for _, inst := range newInstances {
		require.GreaterOrEqual(t, inst.DueTs, wantStart.Unix())
	}
}

func TestReassign_HealsSuccessorEnd(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	svc, _, _ := newTestService(st)
	defer svc.Close()

	uid := generateOneSeries(t, svc, recur.Rule{
		Pattern: recur.Daily,
		Start:   recur.Date(2024, time.June, 1),
		Forever: true,
	})

	result, err := svc.Reassign(ctx, uid)
	require.NoError(t, err)

	successor, err := st.GetMasterSeries(ctx, &store.FindMasterSeries{UID: &result.NewSeriesUID})
	require.NoError(t, err)
	require.NotNil(t, successor.EndTs)

	instances, err := st.ListTaskInstances(ctx, &store.FindTaskInstance{SeriesUID: &result.NewSeriesUID})
	require.NoError(t, err)
	var maxDue int64
	for _, inst := range instances {
		if inst.DueTs > maxDue {
			maxDue = inst.DueTs
		}
	}
	require.Equal(t, maxDue, *successor.EndTs)
}

func TestReassign_Errors(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	svc, _, _ := newTestService(st)
	defer svc.Close()

	_, err := svc.Reassign(ctx, "no-such-series")
	require.True(t, apperr.IsCode(err, apperr.ErrCodeSeriesNotFound))

	bounded := generateOneSeries(t, svc,
		dailyRule(recur.Date(2024, time.May, 1), recur.Date(2024, time.May, 10)))
	_, err = svc.Reassign(ctx, bounded)
	require.True(t, apperr.IsCode(err, apperr.ErrCodeNotForever))
}

func TestReassign_SupersededSeriesIsRejected(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	svc, _, _ := newTestService(st)
	defer svc.Close()

	uid := generateOneSeries(t, svc, recur.Rule{
		Pattern: recur.Daily,
		Start:   recur.Date(2024, time.January, 1),
		Forever: true,
	})
	_, err := svc.Reassign(ctx, uid)
	require.NoError(t, err)

	// Reassigning the superseded predecessor again must fail.
	_, err = svc.Reassign(ctx, uid)
	require.True(t, apperr.IsCode(err, apperr.ErrCodeFailedPrecondition))
}
