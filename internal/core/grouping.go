package core

import (
	"fmt"
	"sort"
	"time"
)

// GroupByMonth folds activities, already ordered by date descending, into
// month groups. Only consecutive activities of the same year and month share
// a group; the input order is kept as is.
func GroupByMonth(activities []Activity) []MonthGroup {
	groups := make([]MonthGroup, 0)
	var (
		curYear, curMonth int
		cur               *MonthGroup
	)
	for _, a := range activities {
		if cur == nil || a.Date.Year() != curYear || a.Date.Month() != curMonth {
			groups = append(groups, MonthGroup{MonthIndex: a.Date.Month()})
			cur = &groups[len(groups)-1]
			curYear, curMonth = a.Date.Year(), a.Date.Month()
		}
		cur.Activities = append(cur.Activities, a)
		cur.Stats = cur.Stats.Add(a.Amount)
	}
	return groups
}

// MonthName returns the English month name for a 1..12 index.
func MonthName(index int) string {
	if index < 1 || index > 12 {
		return ""
	}
	return time.Month(index).String()
}

// MonthKey renders the MM-YYYY key used by the per-month statistics.
func MonthKey(year, month int) string {
	return fmt.Sprintf("%02d-%04d", month, year)
}

// MonthlySpend sums the selected activities per calendar month, oldest month
// first. Amounts are reported as absolute values.
func MonthlySpend(activities []Activity, selected func(Activity) bool) []MonthAmount {
	type key struct{ year, month int }
	sums := make(map[key]int64)
	for _, a := range activities {
		if !selected(a) {
			continue
		}
		sums[key{a.Date.Year(), a.Date.Month()}] += a.Amount.Cents
	}

	out := make([]MonthAmount, 0, len(sums))
	for k, cents := range sums {
		out = append(out, MonthAmount{Year: k.year, Month: k.month, Amount: Money{Cents: cents}.Abs()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}
