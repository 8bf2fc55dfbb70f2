package view

import (
	"sync"

	"releve/internal/core"
)

// Snapshot is the data a session renders from. A nil field has not arrived.
type Snapshot struct {
	Groups  []core.MonthGroup
	Balance *core.Balance
	Tags    core.TagDictionary
}

// Complete reports whether all three sources are present.
func (s Snapshot) Complete() bool {
	return s.Groups != nil && s.Balance != nil && s.Tags != nil
}

// Session is the event boundary of the ledger page. Data may arrive in any
// order; every event recomputes a whole new Model from the latest snapshot and
// search string. Safe for concurrent use.
type Session struct {
	mu       sync.RWMutex
	opts     Options
	snap     Snapshot
	failures map[Collaborator]error
	search   string
	model    Model
}

func NewSession(opts Options) *Session {
	s := &Session{opts: opts, failures: make(map[Collaborator]error)}
	s.model = s.compute()
	return s
}

// NewSessionFrom starts a session on an already loaded snapshot.
func NewSessionFrom(snap Snapshot, opts Options) *Session {
	s := &Session{opts: opts, snap: snap, failures: make(map[Collaborator]error)}
	s.model = s.compute()
	return s
}

func (s *Session) ActivitiesLoaded(groups []core.MonthGroup) Model {
	if groups == nil {
		groups = []core.MonthGroup{}
	}
	return s.update(func() {
		s.snap.Groups = groups
		delete(s.failures, CollaboratorActivities)
	})
}

func (s *Session) BalanceLoaded(b core.Balance) Model {
	return s.update(func() {
		s.snap.Balance = &b
		delete(s.failures, CollaboratorBalance)
	})
}

func (s *Session) TagsLoaded(tags core.TagDictionary) Model {
	if tags == nil {
		tags = core.TagDictionary{}
	}
	return s.update(func() {
		s.snap.Tags = tags
		delete(s.failures, CollaboratorTags)
	})
}

// LoadFailed records that a source could not be fetched.
func (s *Session) LoadFailed(c Collaborator, err error) Model {
	return s.update(func() {
		s.failures[c] = err
	})
}

// OnSearchStringChanged re-renders with a new search string.
func (s *Session) OnSearchStringChanged(q string) Model {
	return s.update(func() {
		s.search = q
	})
}

// Model returns the last computed model.
func (s *Session) Model() Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// Snapshot returns the data received so far.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Session) update(apply func()) Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	apply()
	s.model = s.compute()
	return s.model
}

// compute must be called with the lock held.
func (s *Session) compute() Model {
	for _, c := range []Collaborator{CollaboratorActivities, CollaboratorBalance, CollaboratorTags} {
		if err, failed := s.failures[c]; failed {
			return Model{
				State:  StateLoadError,
				Search: s.search,
				Err:    &MissingCollaboratorError{Collaborator: c, Err: err},
			}
		}
	}
	if !s.snap.Complete() {
		return Model{State: StateNoData, Search: s.search}
	}
	return Render(s.snap.Groups, s.snap.Tags, s.snap.Balance, s.search, s.opts)
}
