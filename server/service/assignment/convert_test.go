package assignment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/assignflow/server/scheduler/recur"
	"github.com/hrygo/assignflow/store"
)

func TestRuleSeriesRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		rule recur.Rule
	}{
		{
			name: "bounded weekly",
			rule: recur.Rule{
				Pattern:     recur.Weekly,
				Start:       recur.Date(2024, time.January, 1),
				End:         recur.Date(2024, time.March, 31),
				WeeklyDays:  []time.Weekday{time.Monday, time.Wednesday, time.Friday},
				WeekOffDays: []time.Weekday{time.Saturday},
			},
		},
		{
			name: "forever monthly",
			rule: recur.Rule{
				Pattern:       recur.Monthly,
				Start:         recur.Date(2024, time.February, 1),
				Forever:       true,
				IncludeSunday: true,
				MonthlyDay:    15,
			},
		},
		{
			name: "yearly",
			rule: recur.Rule{
				Pattern:        recur.Yearly,
				Start:          recur.Date(2024, time.June, 30),
				YearlyDuration: 3,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			series := &store.MasterSeries{}
			applyRuleToSeries(series, tt.rule)
			got := ruleFromSeries(series)
			require.Equal(t, tt.rule, got)
		})
	}
}

func TestEncodeWeekdays(t *testing.T) {
	require.Nil(t, encodeWeekdays(nil))
	require.Nil(t, decodeWeekdays(nil))

	encoded := encodeWeekdays([]time.Weekday{time.Monday, time.Friday})
	require.NotNil(t, encoded)
	require.JSONEq(t, "[1,5]", *encoded)
	require.Equal(t, []time.Weekday{time.Monday, time.Friday}, decodeWeekdays(encoded))
}

func TestExpansionWindow(t *testing.T) {
	start := recur.Date(2024, time.January, 1)

	t.Run("bounded rule uses its own range", func(t *testing.T) {
		end := recur.Date(2024, time.June, 30)
		ws, we := expansionWindow(recur.Rule{Pattern: recur.Daily, Start: start, End: end})
		require.Equal(t, start, ws)
		require.Equal(t, end, we)
	})

	t.Run("forever rule gets a one-year horizon", func(t *testing.T) {
		ws, we := expansionWindow(recur.Rule{Pattern: recur.Daily, Start: start, Forever: true})
		require.Equal(t, start, ws)
		require.Equal(t, start.AddDate(1, 0, 0), we)
	})

	t.Run("yearly rule covers its duration", func(t *testing.T) {
		ws, we := expansionWindow(recur.Rule{Pattern: recur.Yearly, Start: start, YearlyDuration: 3})
		require.Equal(t, start, ws)
		require.Equal(t, start.AddDate(3, 0, 0), we)
	})
}
