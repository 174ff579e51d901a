package recur

import (
	"testing"
	"time"
)

func mustExpand(t *testing.T, rule Rule, start, end time.Time) []time.Time {
	t.Helper()
	dates, err := Expand(rule, start, end)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	return dates
}

func datesEqual(got []time.Time, want []time.Time) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if !got[i].Equal(want[i]) {
			return false
		}
	}
	return true
}

func TestExpand_Daily(t *testing.T) {
	start := Date(2024, time.January, 1) // Monday
	end := Date(2024, time.January, 14)

	tests := []struct {
		name string
		rule Rule
		want []time.Time
	}{
		{
			name: "every day including sunday",
			rule: Rule{Pattern: Daily, Start: start, End: end, IncludeSunday: true},
			want: func() []time.Time {
				var all []time.Time
				for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
					all = append(all, d)
				}
				return all
			}(),
		},
		{
			name: "sundays excluded by default",
			rule: Rule{Pattern: Daily, Start: start, End: end},
			want: []time.Time{
				Date(2024, time.January, 1), Date(2024, time.January, 2),
				Date(2024, time.January, 3), Date(2024, time.January, 4),
				Date(2024, time.January, 5), Date(2024, time.January, 6),
				Date(2024, time.January, 8), Date(2024, time.January, 9),
				Date(2024, time.January, 10), Date(2024, time.January, 11),
				Date(2024, time.January, 12), Date(2024, time.January, 13),
			},
		},
		{
			name: "week-off saturday suppresses saturdays too",
			rule: Rule{
				Pattern: Daily, Start: start, End: end,
				WeekOffDays: []time.Weekday{time.Saturday},
			},
			want: []time.Time{
				Date(2024, time.January, 1), Date(2024, time.January, 2),
				Date(2024, time.January, 3), Date(2024, time.January, 4),
				Date(2024, time.January, 5), Date(2024, time.January, 8),
				Date(2024, time.January, 9), Date(2024, time.January, 10),
				Date(2024, time.January, 11), Date(2024, time.January, 12),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustExpand(t, tt.rule, tt.rule.Start, tt.rule.End)
			if !datesEqual(got, tt.want) {
				t.Errorf("Expand() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpand_DailyNeverReturnsSunday(t *testing.T) {
	rule := Rule{
		Pattern: Daily,
		Start:   Date(2024, time.January, 1),
		End:     Date(2024, time.December, 31),
	}
	for _, d := range mustExpand(t, rule, rule.Start, rule.End) {
		if d.Weekday() == time.Sunday {
			t.Fatalf("daily expansion returned Sunday %s with IncludeSunday=false", d.Format(time.DateOnly))
		}
	}
}

func TestExpand_Weekly(t *testing.T) {
	start := Date(2024, time.January, 1) // Monday
	end := Date(2024, time.January, 14)

	tests := []struct {
		name string
		rule Rule
		want []time.Time
	}{
		{
			name: "mon wed fri over two weeks",
			rule: Rule{
				Pattern: Weekly, Start: start, End: end,
				WeeklyDays: []time.Weekday{time.Monday, time.Wednesday, time.Friday},
			},
			want: []time.Time{
				Date(2024, time.January, 1), Date(2024, time.January, 3),
				Date(2024, time.January, 5), Date(2024, time.January, 8),
				Date(2024, time.January, 10), Date(2024, time.January, 12),
			},
		},
		{
			name: "week-off day suppresses a selected weekday",
			rule: Rule{
				Pattern: Weekly, Start: start, End: end,
				WeeklyDays:  []time.Weekday{time.Monday, time.Wednesday, time.Friday},
				WeekOffDays: []time.Weekday{time.Friday},
			},
			want: []time.Time{
				Date(2024, time.January, 1), Date(2024, time.January, 3),
				Date(2024, time.January, 8), Date(2024, time.January, 10),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustExpand(t, tt.rule, tt.rule.Start, tt.rule.End)
			if !datesEqual(got, tt.want) {
				t.Errorf("Expand() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpand_Monthly(t *testing.T) {
	tests := []struct {
		name  string
		rule  Rule
		start time.Time
		end   time.Time
		want  []time.Time
	}{
		{
			name: "day 31 clamps to april 30",
			rule: Rule{
				Pattern: Monthly, MonthlyDay: 31, IncludeSunday: true,
				Start: Date(2024, time.April, 1), End: Date(2024, time.April, 30),
			},
			start: Date(2024, time.April, 1),
			end:   Date(2024, time.April, 30),
			want:  []time.Time{Date(2024, time.April, 30)},
		},
		{
			name: "day 31 clamps to leap february 29",
			rule: Rule{
				Pattern: Monthly, MonthlyDay: 31, IncludeSunday: true,
				Start: Date(2024, time.February, 1), End: Date(2024, time.February, 29),
			},
			start: Date(2024, time.February, 1),
			end:   Date(2024, time.February, 29),
			want:  []time.Time{Date(2024, time.February, 29)},
		},
		{
			name: "day 31 clamps to common february 28",
			rule: Rule{
				Pattern: Monthly, MonthlyDay: 31, IncludeSunday: true,
				Start: Date(2023, time.February, 1), End: Date(2023, time.February, 28),
			},
			start: Date(2023, time.February, 1),
			end:   Date(2023, time.February, 28),
			want:  []time.Time{Date(2023, time.February, 28)},
		},
		{
			// 2024-09-15 is a Sunday; shifts back to Saturday the 14th.
			name: "sunday occurrence shifts backward one day",
			rule: Rule{
				Pattern: Monthly, MonthlyDay: 15,
				Start: Date(2024, time.September, 1), End: Date(2024, time.September, 30),
			},
			start: Date(2024, time.September, 1),
			end:   Date(2024, time.September, 30),
			want:  []time.Time{Date(2024, time.September, 14)},
		},
		{
			// Sunday the 15th shifts to Saturday the 14th, which is a
			// week-off day, so it keeps shifting to Friday the 13th.
			name: "sunday then week-off chain shifts to friday",
			rule: Rule{
				Pattern: Monthly, MonthlyDay: 15,
				WeekOffDays: []time.Weekday{time.Saturday},
				Start:       Date(2024, time.September, 1), End: Date(2024, time.September, 30),
			},
			start: Date(2024, time.September, 1),
			end:   Date(2024, time.September, 30),
			want:  []time.Time{Date(2024, time.September, 13)},
		},
		{
			// 2024-09-01 is a Sunday; shifting backward would cross into
			// August, so September yields no occurrence.
			name: "shift across month boundary drops the occurrence",
			rule: Rule{
				Pattern: Monthly, MonthlyDay: 1,
				Start: Date(2024, time.September, 1), End: Date(2024, time.October, 31),
			},
			start: Date(2024, time.September, 1),
			end:   Date(2024, time.October, 31),
			want:  []time.Time{Date(2024, time.October, 1)},
		},
		{
			name: "multiple months in range",
			rule: Rule{
				Pattern: Monthly, MonthlyDay: 10, IncludeSunday: true,
				Start: Date(2024, time.January, 1), End: Date(2024, time.March, 31),
			},
			start: Date(2024, time.January, 1),
			end:   Date(2024, time.March, 31),
			want: []time.Time{
				Date(2024, time.January, 10),
				Date(2024, time.February, 10),
				Date(2024, time.March, 10),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustExpand(t, tt.rule, tt.start, tt.end)
			if !datesEqual(got, tt.want) {
				t.Errorf("Expand() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpand_MonthlyNeverCrossesIntoPreviousMonth(t *testing.T) {
	rule := Rule{
		Pattern:     Monthly,
		MonthlyDay:  2,
		WeekOffDays: []time.Weekday{time.Monday, time.Tuesday},
		Start:       Date(2024, time.January, 1),
		End:         Date(2024, time.December, 31),
	}
	for _, d := range mustExpand(t, rule, rule.Start, rule.End) {
		if d.Day() > 2 {
			t.Fatalf("occurrence %s is after the nominal day", d.Format(time.DateOnly))
		}
	}
}

func TestExpand_Quarterly(t *testing.T) {
	anchor := Date(2024, time.January, 15)
	rule := Rule{Pattern: Quarterly, Start: anchor, IncludeSunday: true, Forever: true}

	got := mustExpand(t, rule, anchor, time.Time{})
	want := []time.Time{
		Date(2024, time.January, 15),
		Date(2024, time.April, 15),
		Date(2024, time.July, 15),
		Date(2024, time.October, 15),
	}
	if !datesEqual(got, want) {
		t.Errorf("Expand() = %v, want %v", got, want)
	}
}

func TestExpand_QuarterlyClampsShortMonths(t *testing.T) {
	anchor := Date(2024, time.January, 31)
	rule := Rule{Pattern: Quarterly, Start: anchor, IncludeSunday: true, Forever: true}

	got := mustExpand(t, rule, anchor, time.Time{})
	want := []time.Time{
		Date(2024, time.January, 31),
		Date(2024, time.April, 30),
		Date(2024, time.July, 31),
		Date(2024, time.October, 31),
	}
	if !datesEqual(got, want) {
		t.Errorf("Expand() = %v, want %v", got, want)
	}
}

func TestExpand_Yearly(t *testing.T) {
	tests := []struct {
		name   string
		anchor time.Time
		rule   Rule
		want   []time.Time
	}{
		{
			name:   "leap day clamps in common years",
			anchor: Date(2024, time.February, 29),
			rule:   Rule{Pattern: Yearly, Start: Date(2024, time.February, 29), YearlyDuration: 3, IncludeSunday: true, Forever: true},
			want: []time.Time{
				Date(2024, time.February, 29),
				Date(2025, time.February, 28),
				Date(2026, time.February, 28),
			},
		},
		{
			// 2024-03-10 is a Sunday.
			name:   "sunday occurrence shifts backward",
			anchor: Date(2024, time.March, 10),
			rule:   Rule{Pattern: Yearly, Start: Date(2024, time.March, 10), YearlyDuration: 1, Forever: true},
			want:   []time.Time{Date(2024, time.March, 9)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustExpand(t, tt.rule, tt.anchor, time.Time{})
			if !datesEqual(got, tt.want) {
				t.Errorf("Expand() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpand_OneTime(t *testing.T) {
	rule := Rule{
		Pattern: OneTime,
		Start:   Date(2024, time.June, 5),
		End:     Date(2024, time.June, 5),
	}

	got := mustExpand(t, rule, Date(2024, time.June, 1), Date(2024, time.June, 30))
	if !datesEqual(got, []time.Time{Date(2024, time.June, 5)}) {
		t.Errorf("Expand() = %v, want the single start date", got)
	}

	got = mustExpand(t, rule, Date(2024, time.July, 1), Date(2024, time.July, 31))
	if len(got) != 0 {
		t.Errorf("Expand() outside the range = %v, want empty", got)
	}
}

func TestExpand_WeekOffPropertyAcrossPatterns(t *testing.T) {
	off := []time.Weekday{time.Tuesday, time.Thursday}
	rules := []Rule{
		{Pattern: Daily, Start: Date(2024, time.January, 1), End: Date(2024, time.June, 30), WeekOffDays: off, IncludeSunday: true},
		{Pattern: Weekly, Start: Date(2024, time.January, 1), End: Date(2024, time.June, 30), WeeklyDays: []time.Weekday{time.Tuesday, time.Friday}, WeekOffDays: off},
		{Pattern: Monthly, MonthlyDay: 20, Start: Date(2024, time.January, 1), End: Date(2024, time.December, 31), WeekOffDays: off},
		{Pattern: Quarterly, Start: Date(2024, time.January, 8), Forever: true, WeekOffDays: off},
		{Pattern: Yearly, Start: Date(2024, time.January, 8), YearlyDuration: 4, Forever: true, WeekOffDays: off},
	}

	for _, rule := range rules {
		for _, d := range mustExpand(t, rule, rule.Start, rule.End) {
			if d.Weekday() == time.Tuesday || d.Weekday() == time.Thursday {
				t.Errorf("pattern %s returned week-off day %s", rule.Pattern, d.Format(time.DateOnly))
			}
		}
	}
}

func TestExpand_OrderedAndDeduplicated(t *testing.T) {
	rule := Rule{
		Pattern:     Monthly,
		MonthlyDay:  31,
		WeekOffDays: []time.Weekday{time.Saturday},
		Start:       Date(2024, time.January, 1),
		End:         Date(2025, time.December, 31),
	}
	dates := mustExpand(t, rule, rule.Start, rule.End)
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			t.Fatalf("dates not strictly increasing at %d: %s then %s",
				i, dates[i-1].Format(time.DateOnly), dates[i].Format(time.DateOnly))
		}
	}
}

func TestRule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rule    Rule
		wantErr bool
	}{
		{
			name:    "valid daily",
			rule:    Rule{Pattern: Daily, Start: Date(2024, time.January, 1), End: Date(2024, time.February, 1)},
			wantErr: false,
		},
		{
			name:    "unknown pattern",
			rule:    Rule{Pattern: Pattern("hourly"), Start: Date(2024, time.January, 1), End: Date(2024, time.February, 1)},
			wantErr: true,
		},
		{
			name:    "missing start",
			rule:    Rule{Pattern: Daily, End: Date(2024, time.February, 1)},
			wantErr: true,
		},
		{
			name:    "end before start",
			rule:    Rule{Pattern: Daily, Start: Date(2024, time.February, 1), End: Date(2024, time.January, 1)},
			wantErr: true,
		},
		{
			name:    "missing end without forever",
			rule:    Rule{Pattern: Daily, Start: Date(2024, time.January, 1)},
			wantErr: true,
		},
		{
			name:    "forever without end is fine",
			rule:    Rule{Pattern: Daily, Start: Date(2024, time.January, 1), Forever: true},
			wantErr: false,
		},
		{
			name:    "weekly without weekdays",
			rule:    Rule{Pattern: Weekly, Start: Date(2024, time.January, 1), End: Date(2024, time.February, 1)},
			wantErr: true,
		},
		{
			name: "weekly with bad weekday",
			rule: Rule{
				Pattern: Weekly, Start: Date(2024, time.January, 1), End: Date(2024, time.February, 1),
				WeeklyDays: []time.Weekday{time.Weekday(9)},
			},
			wantErr: true,
		},
		{
			name:    "monthly day zero",
			rule:    Rule{Pattern: Monthly, MonthlyDay: 0, Start: Date(2024, time.January, 1), End: Date(2024, time.February, 1)},
			wantErr: true,
		},
		{
			name:    "monthly day 32",
			rule:    Rule{Pattern: Monthly, MonthlyDay: 32, Start: Date(2024, time.January, 1), End: Date(2024, time.February, 1)},
			wantErr: true,
		},
		{
			name:    "yearly duration zero",
			rule:    Rule{Pattern: Yearly, YearlyDuration: 0, Start: Date(2024, time.January, 1), Forever: true},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
