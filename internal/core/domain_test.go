package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateForms(t *testing.T) {
	d := NewDate(2024, 1, 5)
	if got := d.String(); got != "2024-01-05" {
		t.Fatalf("String() = %q", got)
	}
	if got := d.Display(); got != "05/01/2024" {
		t.Fatalf("Display() = %q", got)
	}

	parsed, err := ParseDisplayDate("05/01/2024")
	if err != nil || !parsed.SameDay(d) {
		t.Fatalf("ParseDisplayDate = %v, %v", parsed, err)
	}
	if _, err := ParseDisplayDate("2024-01-05"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(NewDate(2024, 2, 29))
	if err != nil || string(b) != `"2024-02-29"` {
		t.Fatalf("marshal = %s, %v", b, err)
	}
	var d Date
	if err := json.Unmarshal([]byte(`"2023-12-01"`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !d.SameDay(NewDate(2023, 12, 1)) {
		t.Fatalf("unexpected date %v", d)
	}
}

func TestActivityValidate(t *testing.T) {
	good := Activity{ID: 1, Date: NewDate(2025, 1, 1), Statement: "EDF", Amount: Money{Cents: -4200}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []Activity{
		{ID: 2, Statement: "x"},
		{ID: 3, Date: NewDate(2025, 1, 1), Statement: "  "},
	}
	for i, a := range bads {
		if err := a.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestValidateGroups(t *testing.T) {
	ok := []MonthGroup{
		{MonthIndex: 1, Activities: []Activity{{ID: 1}, {ID: 2}}},
		{MonthIndex: 12, Activities: []Activity{{ID: 3}}},
	}
	if err := ValidateGroups(ok); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	dup := []MonthGroup{
		{MonthIndex: 1, Activities: []Activity{{ID: 1}}},
		{MonthIndex: 2, Activities: []Activity{{ID: 1}}},
	}
	if err := ValidateGroups(dup); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}

	if err := ValidateGroups([]MonthGroup{{MonthIndex: 13}}); !errors.Is(err, ErrInvalidMonthIdx) {
		t.Fatalf("expected ErrInvalidMonthIdx, got %v", err)
	}
}

func TestStatsAdd(t *testing.T) {
	s := Stats{}.Add(Money{Cents: 1000}).Add(Money{Cents: -250}).Add(Money{Cents: 0})
	if s.AmountPlus.Cents != 1000 || s.AmountMinus.Cents != -250 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestGroupByMonth(t *testing.T) {
	acts := []Activity{
		{ID: 1, Date: NewDate(2024, 2, 3), Amount: Money{Cents: 500}},
		{ID: 2, Date: NewDate(2024, 2, 1), Amount: Money{Cents: -200}},
		{ID: 3, Date: NewDate(2024, 1, 31), Amount: Money{Cents: -100}},
		{ID: 4, Date: NewDate(2023, 1, 15), Amount: Money{Cents: 50}},
	}
	groups := GroupByMonth(acts)
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	if groups[0].MonthIndex != 2 || len(groups[0].Activities) != 2 {
		t.Fatalf("unexpected first group %+v", groups[0])
	}
	if groups[0].Stats.AmountPlus.Cents != 500 || groups[0].Stats.AmountMinus.Cents != -200 {
		t.Fatalf("unexpected stats %+v", groups[0].Stats)
	}
	// January of two different years stays apart
	if groups[1].MonthIndex != 1 || groups[2].MonthIndex != 1 {
		t.Fatalf("expected two january groups, got %d and %d", groups[1].MonthIndex, groups[2].MonthIndex)
	}

	if got := GroupByMonth(nil); len(got) != 0 {
		t.Fatalf("expected no groups, got %d", len(got))
	}
}

func TestMonthName(t *testing.T) {
	if MonthName(1) != "January" || MonthName(12) != "December" {
		t.Fatalf("unexpected month names")
	}
	if MonthName(0) != "" || MonthName(13) != "" {
		t.Fatalf("expected empty name out of range")
	}
	if MonthKey(2024, 3) != "03-2024" {
		t.Fatalf("unexpected key %q", MonthKey(2024, 3))
	}
}

func TestTagDictionary(t *testing.T) {
	d := TagDictionary{7: {"LOYER", "PARIS"}}
	if !d.Contains(7) || d.Contains(8) {
		t.Fatalf("unexpected Contains")
	}
	if len(d.Tags(7)) != 2 || d.Tags(8) != nil {
		t.Fatalf("unexpected Tags")
	}
	var empty TagDictionary
	if empty.Contains(7) || empty.Tags(7) != nil {
		t.Fatalf("nil dictionary should miss")
	}

	b, err := json.Marshal(d)
	if err != nil || string(b) != `{"7":["LOYER","PARIS"]}` {
		t.Fatalf("marshal = %s, %v", b, err)
	}
}

func TestGroupPatternTags(t *testing.T) {
	rows := []TagPattern{
		{ID: 1, Pattern: "EDF", Tag: "EDF"},
		{ID: 4, Pattern: "LOYER", Tag: "LOYER"},
		{ID: 4, Pattern: "LOYER", Tag: "PARIS"},
		{ID: 9, Pattern: "ORPHAN"},
	}
	got := GroupPatternTags(rows)
	if len(got) != 3 {
		t.Fatalf("expected 3 patterns, got %d", len(got))
	}
	if got[1].Pattern != "LOYER" || len(got[1].Tags) != 2 || got[1].Tags[1] != "PARIS" {
		t.Fatalf("unexpected LOYER entry %+v", got[1])
	}
	if len(got[2].Tags) != 0 {
		t.Fatalf("expected no tags for orphan pattern")
	}

	d := Dictionary(rows)
	if len(d) != 2 || len(d[4]) != 2 || d.Contains(9) {
		t.Fatalf("unexpected dictionary %+v", d)
	}
}

func TestMonthlySpend(t *testing.T) {
	acts := []Activity{
		{ID: 1, Date: NewDate(2021, 3, 12), Statement: "EDF", Amount: Money{Cents: -4210}},
		{ID: 2, Date: NewDate(2021, 3, 2), Statement: "EDF", Amount: Money{Cents: -1000}},
		{ID: 3, Date: NewDate(2020, 12, 2), Statement: "EDF", Amount: Money{Cents: -500}},
		{ID: 4, Date: NewDate(2021, 3, 1), Statement: "SALAIRE", Amount: Money{Cents: 150000}},
	}
	got := MonthlySpend(acts, func(a Activity) bool { return a.Statement == "EDF" })

	want := []MonthAmount{
		{Year: 2020, Month: 12, Amount: Money{Cents: 500}},
		{Year: 2021, Month: 3, Amount: Money{Cents: 5210}},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d months, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("month %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
	if got[1].Label() != "03-2021" {
		t.Errorf("unexpected label %q", got[1].Label())
	}

	if none := MonthlySpend(acts, func(Activity) bool { return false }); len(none) != 0 {
		t.Errorf("expected no months, got %v", none)
	}
}
