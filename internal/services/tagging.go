package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"releve/internal/core"
)

// TagStore is the part of the ledger the tagger reads and writes.
type TagStore interface {
	Activities(ctx context.Context) ([]core.Activity, error)
	TagPatterns(ctx context.Context) ([]core.TagPattern, error)
	LinkPatterns(ctx context.Context, links []core.TagLink) (int, error)
}

// Tagger links activities to the tag patterns found in their statement.
type Tagger struct {
	store TagStore
}

func NewTagger(store TagStore) *Tagger {
	return &Tagger{store: store}
}

// Tag matches every activity against every pattern and stores the links.
// Existing links are kept; the number of links added is returned.
func (t *Tagger) Tag(ctx context.Context) (int, error) {
	activities, err := t.store.Activities(ctx)
	if err != nil {
		return 0, fmt.Errorf("list activities: %w", err)
	}
	patterns, err := t.store.TagPatterns(ctx)
	if err != nil {
		return 0, fmt.Errorf("list tag patterns: %w", err)
	}

	links := MatchPatterns(activities, patterns)
	if len(links) == 0 {
		slog.DebugContext(ctx, "No activity matches a tag pattern",
			"activities", len(activities))
		return 0, nil
	}

	added, err := t.store.LinkPatterns(ctx, links)
	if err != nil {
		return 0, fmt.Errorf("link tag patterns: %w", err)
	}

	slog.InfoContext(ctx, "Activities tagged",
		"activities", len(activities),
		"matches", len(links),
		"added", added)
	return added, nil
}

// MatchPatterns returns one link per (activity, pattern) pair where the
// pattern occurs in the statement or in the amount, ignoring case. Patterns
// repeated once per tag are considered once.
func MatchPatterns(activities []core.Activity, patterns []core.TagPattern) []core.TagLink {
	type needle struct {
		id   int64
		text string
	}
	fold := cases.Lower(language.Und)

	var needles []needle
	seen := make(map[int64]struct{})
	for _, p := range patterns {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		if p.Pattern == "" {
			continue
		}
		needles = append(needles, needle{id: p.ID, text: fold.String(p.Pattern)})
	}

	var links []core.TagLink
	for _, a := range activities {
		statement := fold.String(a.Statement)
		amount := a.Amount.String()
		for _, n := range needles {
			if strings.Contains(statement, n.text) || strings.Contains(amount, n.text) {
				links = append(links, core.TagLink{ActivityID: a.ID, TagPatternID: n.id})
			}
		}
	}
	return links
}
