// Package memory keeps the ledger in process memory. It backs tests and the
// memory data backend.
package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"releve/internal/core"
)

// DefaultPatterns are the tag patterns every new ledger starts with.
var DefaultPatterns = []core.PatternTags{
	{Pattern: "EDF", Tags: []string{"EDF"}},
	{Pattern: "VIREMENT", Tags: []string{"VIREMENT_BANCAIRE"}},
	{Pattern: "RETRAIT", Tags: []string{"RETRAIT"}},
	{Pattern: "LOYER", Tags: []string{"LOYER", "PARIS"}},
	{Pattern: "FREE MOBILE", Tags: []string{"FREEMOBILE", "PARIS"}},
}

type Store struct {
	mu         sync.RWMutex
	activities []core.Activity
	keys       map[string]struct{}
	patterns   []core.TagPattern
	links      map[int64]map[int64]struct{}
	balance    *core.Balance
	nextID     int64
}

// New returns an empty ledger knowing the given patterns. Pattern ids follow
// the slice order, starting at 1.
func New(patterns []core.PatternTags) *Store {
	s := &Store{
		keys:  make(map[string]struct{}),
		links: make(map[int64]map[int64]struct{}),
	}
	for i, p := range patterns {
		id := int64(i + 1)
		if len(p.Tags) == 0 {
			s.patterns = append(s.patterns, core.TagPattern{ID: id, Pattern: p.Pattern})
			continue
		}
		for _, tag := range p.Tags {
			s.patterns = append(s.patterns, core.TagPattern{ID: id, Pattern: p.Pattern, Tag: tag})
		}
	}
	return s
}

// NewFromFiles reads patterns from base/seed_patterns.txt, one
// "PATTERN: TAG, TAG" per line, and falls back to DefaultPatterns.
func NewFromFiles(base string) *Store {
	var patterns []core.PatternTags
	for _, line := range readLines(filepath.Join(base, "seed_patterns.txt")) {
		pattern, tags, _ := strings.Cut(line, ":")
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		pt := core.PatternTags{Pattern: pattern, Tags: []string{}}
		for _, tag := range strings.Split(tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				pt.Tags = append(pt.Tags, tag)
			}
		}
		patterns = append(patterns, pt)
	}
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	return New(patterns)
}

func (s *Store) Close() error { return nil }

func (s *Store) Ping(context.Context) error { return nil }

// Activities returns the ledger newest first, each with its lowest pattern id.
func (s *Store) Activities(_ context.Context) ([]core.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Activity, len(s.activities))
	for i, a := range s.activities {
		a.TagPatternID = nil
		if ids, ok := s.links[a.ID]; ok && len(ids) > 0 {
			lowest := int64(-1)
			for id := range ids {
				if lowest < 0 || id < lowest {
					lowest = id
				}
			}
			a.TagPatternID = &lowest
		}
		out[i] = a
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) LatestBalance(_ context.Context) (core.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.balance == nil {
		return core.Balance{}, core.ErrNoBalance
	}
	return *s.balance, nil
}

func (s *Store) TagPatterns(_ context.Context) ([]core.TagPattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(make([]core.TagPattern, 0, len(s.patterns)), s.patterns...), nil
}

func (s *Store) StatsPerMonthByTag(_ context.Context, tags []string) ([]core.MonthAmount, error) {
	if len(tags) == 0 {
		return make([]core.MonthAmount, 0), nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	carried := make(map[int64][]string)
	for _, p := range s.patterns {
		if p.Tag != "" {
			carried[p.ID] = append(carried[p.ID], p.Tag)
		}
	}
	wanted := make(map[int64]struct{})
	for id, have := range carried {
		all := true
		for _, t := range tags {
			if !slices.Contains(have, t) {
				all = false
				break
			}
		}
		if all {
			wanted[id] = struct{}{}
		}
	}

	return core.MonthlySpend(s.activities, func(a core.Activity) bool {
		for id := range s.links[a.ID] {
			if _, ok := wanted[id]; ok {
				return true
			}
		}
		return false
	}), nil
}

func (s *Store) InsertActivities(_ context.Context, activities []core.Activity) (int, error) {
	for _, a := range activities {
		if err := a.Validate(); err != nil {
			return 0, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := 0
	for _, a := range activities {
		key := a.Key()
		if _, dup := s.keys[key]; dup {
			continue
		}
		s.keys[key] = struct{}{}
		s.nextID++
		a.ID = s.nextID
		a.TagPatternID = nil
		s.activities = append(s.activities, a)
		inserted++
	}
	return inserted, nil
}

// SaveBalance keeps b unless a more recent balance is already stored.
func (s *Store) SaveBalance(_ context.Context, b core.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.balance == nil || !b.Date.Before(s.balance.Date.Time) {
		s.balance = &b
	}
	return nil
}

func (s *Store) LinkPatterns(_ context.Context, links []core.TagLink) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, l := range links {
		ids, ok := s.links[l.ActivityID]
		if !ok {
			ids = make(map[int64]struct{})
			s.links[l.ActivityID] = ids
		}
		if _, ok := ids[l.TagPatternID]; ok {
			continue
		}
		ids[l.TagPatternID] = struct{}{}
		added++
	}
	return added, nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
