package search

import "releve/internal/core"

// Filter keeps, in every group, the activities accepted by match. Groups are
// never dropped or reordered and their stats are carried unchanged, even when
// nothing in them matches. The input is left untouched.
func Filter(groups []core.MonthGroup, match func(core.Activity) bool) []core.MonthGroup {
	out := make([]core.MonthGroup, len(groups))
	for i, g := range groups {
		kept := make([]core.Activity, 0, len(g.Activities))
		for _, a := range g.Activities {
			if match(a) {
				kept = append(kept, a)
			}
		}
		out[i] = core.MonthGroup{
			MonthIndex: g.MonthIndex,
			Stats:      g.Stats,
			Activities: kept,
		}
	}
	return out
}

// IsEmpty reports whether no group holds any activity.
func IsEmpty(groups []core.MonthGroup) bool {
	for _, g := range groups {
		if len(g.Activities) > 0 {
			return false
		}
	}
	return true
}
