package assignment

import (
	"encoding/json"
	"time"

	"github.com/hrygo/assignflow/server/scheduler/recur"
	"github.com/hrygo/assignflow/store"
)

// horizonYears is the provisional generation horizon of a forever series.
const horizonYears = 1

func encodeWeekdays(days []time.Weekday) *string {
	if len(days) == 0 {
		return nil
	}
	ints := make([]int, 0, len(days))
	for _, d := range days {
		ints = append(ints, int(d))
	}
	raw, _ := json.Marshal(ints)
	encoded := string(raw)
	return &encoded
}

func decodeWeekdays(encoded *string) []time.Weekday {
	if encoded == nil || *encoded == "" {
		return nil
	}
	var ints []int
	if err := json.Unmarshal([]byte(*encoded), &ints); err != nil {
		return nil
	}
	days := make([]time.Weekday, 0, len(ints))
	for _, i := range ints {
		days = append(days, time.Weekday(i))
	}
	return days
}

func ruleFromSeries(series *store.MasterSeries) recur.Rule {
	rule := recur.Rule{
		Pattern:        recur.Pattern(series.Pattern),
		Start:          time.Unix(series.StartTs, 0).UTC(),
		Forever:        series.Forever,
		IncludeSunday:  series.IncludeSunday,
		WeeklyDays:     decodeWeekdays(series.WeeklyDays),
		MonthlyDay:     int(series.MonthlyDay),
		YearlyDuration: int(series.YearlyDuration),
		WeekOffDays:    decodeWeekdays(series.WeekOffDays),
	}
	if series.EndTs != nil && !series.Forever {
		rule.End = time.Unix(*series.EndTs, 0).UTC()
	}
	return rule
}

func applyRuleToSeries(series *store.MasterSeries, rule recur.Rule) {
	series.Pattern = string(rule.Pattern)
	series.StartTs = rule.Start.Unix()
	series.EndTs = nil
	if !rule.End.IsZero() {
		endTs := rule.End.Unix()
		series.EndTs = &endTs
	}
	series.Forever = rule.Forever
	series.IncludeSunday = rule.IncludeSunday
	series.WeeklyDays = encodeWeekdays(rule.WeeklyDays)
	series.MonthlyDay = int32(rule.MonthlyDay)
	series.YearlyDuration = int32(rule.YearlyDuration)
	series.WeekOffDays = encodeWeekdays(rule.WeekOffDays)
}

func ruleUpdateFields(update *store.UpdateMasterSeries, rule recur.Rule) {
	pattern := string(rule.Pattern)
	startTs := rule.Start.Unix()
	endTs := int64(0)
	if !rule.End.IsZero() {
		endTs = rule.End.Unix()
	}
	forever := rule.Forever
	includeSunday := rule.IncludeSunday
	monthlyDay := int32(rule.MonthlyDay)
	yearlyDuration := int32(rule.YearlyDuration)

	update.Pattern = &pattern
	update.StartTs = &startTs
	// Pointer to zero clears the column for rules without an end date.
	update.EndTs = &endTs
	update.Forever = &forever
	update.IncludeSunday = &includeSunday
	update.WeeklyDays = encodeWeekdays(rule.WeeklyDays)
	update.MonthlyDay = &monthlyDay
	update.YearlyDuration = &yearlyDuration
	update.WeekOffDays = encodeWeekdays(rule.WeekOffDays)
}

// expansionWindow picks the date range handed to the expander. Bounded rules
// expand over their own range. A forever rule has no end, so it expands over
// a provisional one-year horizon; the stored end date is then healed to the
// last date actually generated. Yearly rules expand over their configured
// duration in years.
func expansionWindow(rule recur.Rule) (time.Time, time.Time) {
	start := recur.DateOf(rule.Start)
	switch {
	case rule.Pattern == recur.Yearly:
		years := rule.YearlyDuration
		if years <= 0 {
			years = 1
		}
		return start, start.AddDate(years, 0, 0)
	case rule.Forever || rule.End.IsZero():
		return start, start.AddDate(horizonYears, 0, 0)
	default:
		return start, recur.DateOf(rule.End)
	}
}
