package view

import (
	"errors"
	"fmt"
	"strings"

	"releve/internal/core"
	"releve/internal/search"
)

// State tells the page what to show instead of, or as, the table.
type State int

const (
	StateNoData State = iota
	StateLoadError
	StateNoResult
	StateNormal
)

func (s State) String() string {
	switch s {
	case StateNoData:
		return "no-data"
	case StateLoadError:
		return "load-error"
	case StateNoResult:
		return "no-result"
	case StateNormal:
		return "normal"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Collaborator names one of the three data sources the ledger needs.
type Collaborator string

const (
	CollaboratorActivities Collaborator = "activities"
	CollaboratorBalance    Collaborator = "balance"
	CollaboratorTags       Collaborator = "tags"
)

var (
	ErrMissingCollaborator = errors.New("missing collaborator")
	ErrNotLoaded           = errors.New("not loaded")
	ErrEmptyLedger         = errors.New("ledger has no activity")
)

// MissingCollaboratorError reports which source was unavailable for a render.
type MissingCollaboratorError struct {
	Collaborator Collaborator
	Err          error
}

func (e *MissingCollaboratorError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Collaborator, e.Err)
}

func (e *MissingCollaboratorError) Unwrap() error { return e.Err }

func (e *MissingCollaboratorError) Is(target error) bool {
	return target == ErrMissingCollaborator
}

// Caption is the balance line shown above the table.
type Caption struct {
	Label  string
	Amount string
}

// RowView holds the display strings of one table row.
type RowView struct {
	ID         int64
	BandClass  string
	IsHeader   bool
	Month      string
	StatsPlus  string
	StatsMinus string
	Date       string
	Statement  string
	Tags       string
	Amount     string
	Positive   bool
}

// Model is a complete, self-contained render result.
type Model struct {
	State   State
	Search  string
	Caption Caption
	Rows    []RowView
	Err     error
}

// Options tune how searches are interpreted.
type Options struct {
	Untagged search.SentinelPolicy
}

// Render filters the ledger with the search string and assembles the display
// model. A nil or empty ledger, a nil balance or a nil tag dictionary yields
// StateLoadError; a search that leaves every month empty yields StateNoResult.
func Render(groups []core.MonthGroup, tags core.TagDictionary, balance *core.Balance, q string, opts Options) Model {
	if err := missing(groups, tags, balance); err != nil {
		return Model{State: StateLoadError, Search: q, Err: err}
	}

	resolver := search.NewTagResolver(tags)
	pred := search.NewPredicate(resolver, opts.Untagged)
	filtered := search.Filter(groups, pred.For(q))
	if search.IsEmpty(filtered) {
		return Model{State: StateNoResult, Search: q, Caption: caption(*balance)}
	}

	seq := Sequence(filtered)
	rows := make([]RowView, 0, len(seq))
	for _, r := range seq {
		rows = append(rows, rowView(r, resolver))
	}
	return Model{
		State:   StateNormal,
		Search:  q,
		Caption: caption(*balance),
		Rows:    rows,
	}
}

func missing(groups []core.MonthGroup, tags core.TagDictionary, balance *core.Balance) error {
	switch {
	case groups == nil:
		return &MissingCollaboratorError{Collaborator: CollaboratorActivities, Err: ErrNotLoaded}
	case len(groups) == 0:
		return &MissingCollaboratorError{Collaborator: CollaboratorActivities, Err: ErrEmptyLedger}
	case balance == nil:
		return &MissingCollaboratorError{Collaborator: CollaboratorBalance, Err: ErrNotLoaded}
	case tags == nil:
		return &MissingCollaboratorError{Collaborator: CollaboratorTags, Err: ErrNotLoaded}
	}
	return nil
}

func caption(b core.Balance) Caption {
	return Caption{
		Label:  "Montant au " + b.Date.Display(),
		Amount: b.Amount.String() + " €",
	}
}

func rowView(r Row, tags search.TagResolver) RowView {
	v := RowView{
		ID:        r.Activity.ID,
		BandClass: r.Band.Class(),
		IsHeader:  r.IsGroupHeader,
		Date:      r.Activity.Date.Display(),
		Statement: r.Activity.Statement,
		Tags:      strings.Join(tags.TagsFor(r.Activity.TagPatternID), ", "),
		Amount:    r.Activity.Amount.Fixed2(),
		Positive:  !r.Activity.Amount.IsNegative(),
	}
	if r.IsGroupHeader {
		v.Month = r.MonthLabel()
		v.StatsPlus = FormatPlus(r.Stats.AmountPlus)
		v.StatsMinus = FormatMinus(r.Stats.AmountMinus)
	}
	return v
}
