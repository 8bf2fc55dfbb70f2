package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Activity is a single bank transaction. TagPatternID is nil when no
	// tag pattern matched the statement.
	Activity struct {
		ID           int64  `json:"row_id"`
		Date         Date   `json:"date"`
		Statement    string `json:"statement"`
		Amount       Money  `json:"amount"`
		TagPatternID *int64 `json:"tag_pattern_id"`
	}

	// Stats is the per-month aggregate computed by the data provider.
	Stats struct {
		AmountPlus  Money `json:"amount_plus"`
		AmountMinus Money `json:"amount_minus"`
	}

	MonthGroup struct {
		MonthIndex int        `json:"month_index"` // 1..12
		Stats      Stats      `json:"stats"`
		Activities []Activity `json:"activities"`
	}

	Balance struct {
		Date   Date  `json:"date"`
		Amount Money `json:"amount"`
	}

	// TagPattern links a statement pattern to one of its tags.
	TagPattern struct {
		ID      int64
		Pattern string
		Tag     string
	}

	// MonthAmount is the absolute spend of one calendar month.
	MonthAmount struct {
		Year   int   `json:"year"`
		Month  int   `json:"month"`
		Amount Money `json:"amount"`
	}

	// PatternTags is the tag list attached to a single pattern.
	PatternTags struct {
		Pattern string   `json:"pattern"`
		Tags    []string `json:"tags"`
	}
)

const (
	isoLayout     = "2006-01-02"
	displayLayout = "02/01/2006"
)

var (
	ErrInvalidDay      = errors.New("invalid day")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrEmptyStatement  = errors.New("empty statement")
	ErrInvalidMonthIdx = errors.New("month index out of range")
	ErrDuplicateID     = errors.New("duplicate activity id")
	ErrNoBalance       = errors.New("no balance recorded")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseISODate parses YYYY-MM-DD.
func ParseISODate(s string) (Date, error) {
	t, err := time.Parse(isoLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// ParseDisplayDate parses DD/MM/YYYY as written in bank statements.
func ParseDisplayDate(s string) (Date, error) {
	t, err := time.Parse(displayLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// String renders the date as YYYY-MM-DD, the form searched by users.
func (d Date) String() string {
	return d.Time.Format(isoLayout)
}

// Display renders the date as DD/MM/YYYY from its calendar fields.
func (d Date) Display() string {
	return fmt.Sprintf("%02d/%02d/%04d", d.Day(), d.Month(), d.Year())
}

// SameDay reports whether both dates fall on the same calendar day.
func (d Date) SameDay(o Date) bool {
	y1, m1, d1 := d.Date()
	y2, m2, d2 := o.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseISODate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (a Activity) Validate() error {
	if err := a.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(a.Statement) == "" {
		return ErrEmptyStatement
	}
	return nil
}

// IsTagged reports whether a tag pattern has been assigned.
func (a Activity) IsTagged() bool {
	return a.TagPatternID != nil
}

// Key identifies an activity by its natural key, the one used for dedupe on import.
func (a Activity) Key() string {
	return a.Date.String() + "|" + a.Statement + "|" + strconv.FormatInt(a.Amount.Cents, 10)
}

// Add accumulates an amount into the plus or minus side.
func (s Stats) Add(m Money) Stats {
	if m.IsNegative() {
		s.AmountMinus.Cents += m.Cents
	} else {
		s.AmountPlus.Cents += m.Cents
	}
	return s
}

func (g MonthGroup) Validate() error {
	if g.MonthIndex < 1 || g.MonthIndex > 12 {
		return fmt.Errorf("%w: %d", ErrInvalidMonthIdx, g.MonthIndex)
	}
	return nil
}

// ValidateGroups checks month indexes and activity id uniqueness across the hierarchy.
func ValidateGroups(groups []MonthGroup) error {
	seen := make(map[int64]struct{})
	for _, g := range groups {
		if err := g.Validate(); err != nil {
			return err
		}
		for _, a := range g.Activities {
			if _, dup := seen[a.ID]; dup {
				return fmt.Errorf("%w: %d", ErrDuplicateID, a.ID)
			}
			seen[a.ID] = struct{}{}
		}
	}
	return nil
}

// TagDictionary maps a tag pattern id to its tag names.
type TagDictionary map[int64][]string

// Contains reports whether the pattern id is known.
func (d TagDictionary) Contains(id int64) bool {
	_, ok := d[id]
	return ok
}

// Tags returns the tags of a pattern id, nil when unknown.
func (d TagDictionary) Tags(id int64) []string {
	return d[id]
}

// Label renders the month as MM-YYYY.
func (m MonthAmount) Label() string {
	return MonthKey(m.Year, m.Month)
}

// TagLink attaches a tag pattern to an activity.
type TagLink struct {
	ActivityID   int64
	TagPatternID int64
}

// GroupPatternTags folds pattern/tag rows, ordered by pattern, into one entry per pattern.
func GroupPatternTags(rows []TagPattern) []PatternTags {
	out := make([]PatternTags, 0)
	index := make(map[int64]int)
	for _, r := range rows {
		i, ok := index[r.ID]
		if !ok {
			out = append(out, PatternTags{Pattern: r.Pattern, Tags: []string{}})
			i = len(out) - 1
			index[r.ID] = i
		}
		if r.Tag != "" {
			out[i].Tags = append(out[i].Tags, r.Tag)
		}
	}
	return out
}

// Dictionary builds the pattern id to tags mapping from pattern/tag rows.
func Dictionary(rows []TagPattern) TagDictionary {
	d := make(TagDictionary)
	for _, r := range rows {
		if r.Tag == "" {
			continue
		}
		d[r.ID] = append(d[r.ID], r.Tag)
	}
	return d
}
