// Package view turns a filtered ledger into the rows and states shown to the user.
package view

import "releve/internal/core"

// Band is the alternating visual class used to cluster rows sharing a date.
type Band uint8

const (
	bandUnset Band = iota
	BandA
	BandB
)

// Class returns the CSS class of the band.
func (b Band) Class() string {
	switch b {
	case BandA:
		return "band-a"
	case BandB:
		return "band-b"
	default:
		return ""
	}
}

func (b Band) flip() Band {
	if b == BandA {
		return BandB
	}
	return BandA
}

// Row is one visible activity annotated for presentation.
type Row struct {
	Activity      core.Activity
	MonthIndex    int
	Stats         core.Stats
	IsGroupHeader bool
	Band          Band
}

// MonthLabel is the English month name, set on header rows only.
func (r Row) MonthLabel() string {
	if !r.IsGroupHeader {
		return ""
	}
	return core.MonthName(r.MonthIndex)
}

// bandState is the fold accumulator: the last seen date and the band in use.
type bandState struct {
	started bool
	prev    core.Date
	band    Band
}

// next flips the band whenever the date differs from the previous row.
func (s bandState) next(d core.Date) bandState {
	if s.started && s.prev.SameDay(d) {
		return s
	}
	return bandState{started: true, prev: d, band: s.band.flip()}
}

// Sequence flattens filtered groups into rows. The first activity of each
// group becomes its header, and bands carry across group boundaries so they
// only depend on the dates in order. Empty groups emit nothing.
func Sequence(groups []core.MonthGroup) []Row {
	rows := make([]Row, 0)
	var st bandState
	for _, g := range groups {
		for i, a := range g.Activities {
			st = st.next(a.Date)
			rows = append(rows, Row{
				Activity:      a,
				MonthIndex:    g.MonthIndex,
				Stats:         g.Stats,
				IsGroupHeader: i == 0,
				Band:          st.band,
			})
		}
	}
	return rows
}

// FormatPlus renders the income side of the month stats, always signed.
func FormatPlus(m core.Money) string {
	return "+" + m.Fixed2()
}

// FormatMinus renders the spending side with two decimals.
func FormatMinus(m core.Money) string {
	return m.Fixed2()
}
