// Package recur expands recurrence rules into concrete civil-date sequences.
// Expansion is a pure function of the rule and the requested range: no I/O,
// no clock reads, deterministic output.
//
// All dates are civil dates carried as time.Time at midnight UTC. The
// time-of-day component has no significance anywhere in this package.
package recur

import (
	"fmt"
	"time"
)

// Pattern is the recurrence pattern of a rule.
type Pattern string

const (
	OneTime   Pattern = "one-time"
	Daily     Pattern = "daily"
	Weekly    Pattern = "weekly"
	Monthly   Pattern = "monthly"
	Quarterly Pattern = "quarterly"
	Yearly    Pattern = "yearly"
)

// Rule is a recurrence rule. It is a value type: once expanded it is never
// mutated, a changed rule is a new Rule.
type Rule struct {
	Pattern Pattern

	// Start is the first candidate date. End bounds the expansion and is
	// ignored when Forever is set.
	Start   time.Time
	End     time.Time
	Forever bool

	// IncludeSunday allows occurrences on Sunday. When false, a candidate
	// landing on Sunday is shifted backward.
	IncludeSunday bool

	// WeeklyDays selects the weekdays for the weekly pattern. Required for
	// weekly, ignored otherwise.
	WeeklyDays []time.Weekday

	// MonthlyDay is the nominal day of month (1-31) for the monthly pattern.
	// Days past the month's end clamp to the last day of that month.
	MonthlyDay int

	// YearlyDuration is the occurrence count for the yearly pattern.
	YearlyDuration int

	// WeekOffDays are weekdays never scheduled, regardless of pattern.
	WeekOffDays []time.Weekday
}

// Date builds a civil date at midnight UTC.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf truncates t to its civil date in UTC.
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return Date(t.Year(), t.Month(), t.Day())
}

// Validate checks the rule parameters. It is called by Expand, but callers
// that want per-rule errors before any expansion can call it directly.
func (r Rule) Validate() error {
	switch r.Pattern {
	case OneTime, Daily, Weekly, Monthly, Quarterly, Yearly:
	default:
		return fmt.Errorf("unknown pattern %q", r.Pattern)
	}
	if r.Start.IsZero() {
		return fmt.Errorf("start date is required")
	}
	if !r.Forever && r.Pattern != Quarterly && r.Pattern != Yearly {
		if r.End.IsZero() {
			return fmt.Errorf("end date is required unless the rule is forever")
		}
		if DateOf(r.End).Before(DateOf(r.Start)) {
			return fmt.Errorf("end date %s is before start date %s",
				r.End.Format(time.DateOnly), r.Start.Format(time.DateOnly))
		}
	}
	if r.Pattern == Weekly && len(r.WeeklyDays) == 0 {
		return fmt.Errorf("weekly rule requires at least one weekday")
	}
	for _, d := range r.WeeklyDays {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("invalid weekday %d in weekly days", d)
		}
	}
	for _, d := range r.WeekOffDays {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("invalid weekday %d in week-off days", d)
		}
	}
	if r.Pattern == Monthly && (r.MonthlyDay < 1 || r.MonthlyDay > 31) {
		return fmt.Errorf("monthly day %d out of range 1-31", r.MonthlyDay)
	}
	if r.Pattern == Yearly && r.YearlyDuration < 1 {
		return fmt.Errorf("yearly duration %d must be at least 1", r.YearlyDuration)
	}
	return nil
}

// Expand materializes the rule into an ordered, duplicate-free sequence of
// civil dates within [rangeStart, rangeEnd], both inclusive.
//
// For quarterly and yearly rules rangeStart is the anchor of the occurrence
// walk; those patterns are count-based rather than range-bounded.
func Expand(rule Rule, rangeStart, rangeEnd time.Time) ([]time.Time, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	start := DateOf(rangeStart)
	end := DateOf(rangeEnd)
	if rule.Pattern != Quarterly && rule.Pattern != Yearly && end.Before(start) {
		return nil, fmt.Errorf("range end %s is before range start %s",
			end.Format(time.DateOnly), start.Format(time.DateOnly))
	}

	off := weekdayMask(rule.WeekOffDays)

	switch rule.Pattern {
	case OneTime:
		d := DateOf(rule.Start)
		if d.Before(start) || d.After(end) {
			return nil, nil
		}
		return []time.Time{d}, nil

	case Daily:
		return expandDaily(start, end, rule.IncludeSunday, off), nil

	case Weekly:
		return expandWeekly(start, end, weekdayMask(rule.WeeklyDays), off), nil

	case Monthly:
		return expandMonthly(start, end, rule.MonthlyDay, rule.IncludeSunday, off), nil

	case Quarterly:
		return expandByMonths(start, 3, 4, rule.IncludeSunday, off), nil

	case Yearly:
		return expandByMonths(start, 12, rule.YearlyDuration, rule.IncludeSunday, off), nil
	}

	return nil, fmt.Errorf("unknown pattern %q", rule.Pattern)
}

func expandDaily(start, end time.Time, includeSunday bool, off uint8) []time.Time {
	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if allowedDay(d, includeSunday, off) {
			dates = append(dates, d)
		}
	}
	return dates
}

func expandWeekly(start, end time.Time, selected, off uint8) []time.Time {
	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		wd := d.Weekday()
		if maskHas(selected, wd) && !maskHas(off, wd) {
			dates = append(dates, d)
		}
	}
	return dates
}

func expandMonthly(start, end time.Time, monthlyDay int, includeSunday bool, off uint8) []time.Time {
	var dates []time.Time
	year, month := start.Year(), start.Month()
	for {
		first := Date(year, month, 1)
		if first.After(end) {
			break
		}
		target := Date(year, month, clampDay(year, month, monthlyDay))
		if adjusted, ok := shiftBackward(target, includeSunday, off); ok {
			if !adjusted.Before(start) && !adjusted.After(end) {
				dates = append(dates, adjusted)
			}
		}
		year, month = nextMonth(year, month)
	}
	return dates
}

// expandByMonths walks count occurrences spaced step months apart from the
// anchor, clamping the nominal day into short months and applying the
// backward-shift adjustment to each occurrence independently.
func expandByMonths(anchor time.Time, step, count int, includeSunday bool, off uint8) []time.Time {
	dates := make([]time.Time, 0, count)
	for i := 0; i < count; i++ {
		nominal := addMonthsClamped(anchor, i*step)
		if adjusted, ok := shiftBackward(nominal, includeSunday, off); ok {
			dates = append(dates, adjusted)
		}
	}
	return dates
}

// shiftBackward moves d earlier one day at a time until it is neither an
// excluded Sunday nor a week-off day. Shifting never crosses the month
// boundary: if every earlier day of the month is excluded the occurrence is
// dropped and ok is false.
func shiftBackward(d time.Time, includeSunday bool, off uint8) (adjusted time.Time, ok bool) {
	year, month := d.Year(), d.Month()
	// A full week covers every distinct weekday, so 7 steps always suffice.
	for i := 0; i < 7; i++ {
		if allowedDay(d, includeSunday, off) {
			if d.Year() != year || d.Month() != month {
				return time.Time{}, false
			}
			return d, true
		}
		d = d.AddDate(0, 0, -1)
	}
	return time.Time{}, false
}

func allowedDay(d time.Time, includeSunday bool, off uint8) bool {
	wd := d.Weekday()
	if maskHas(off, wd) {
		return false
	}
	return includeSunday || wd != time.Sunday
}

func weekdayMask(days []time.Weekday) uint8 {
	var m uint8
	for _, d := range days {
		m |= 1 << uint(d)
	}
	return m
}

func maskHas(m uint8, d time.Weekday) bool {
	return m&(1<<uint(d)) != 0
}

func nextMonth(year int, month time.Month) (int, time.Month) {
	if month == time.December {
		return year + 1, time.January
	}
	return year, month + 1
}

// addMonthsClamped adds n months to d, clamping the day into the target
// month instead of letting Go normalize past it (Jan 31 + 1mo is Feb 28/29,
// never Mar 2/3).
func addMonthsClamped(d time.Time, n int) time.Time {
	total := int(d.Month()) - 1 + n
	year := d.Year() + total/12
	month := time.Month(total%12 + 1)
	return Date(year, month, clampDay(year, month, d.Day()))
}

func clampDay(year int, month time.Month, day int) int {
	if last := lastDayOfMonth(year, month); day > last {
		return last
	}
	return day
}

// lastDayOfMonth returns the number of days in the month.
func lastDayOfMonth(year int, month time.Month) int {
	return Date(year, month+1, 1).AddDate(0, 0, -1).Day()
}
