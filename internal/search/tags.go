// Package search implements the free-text filter applied to the monthly ledger.
package search

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"releve/internal/core"
)

// TagResolver answers tag questions about an activity's tag pattern id.
// A nil dictionary behaves as an empty one: every lookup misses.
type TagResolver struct {
	dict core.TagDictionary
}

func NewTagResolver(dict core.TagDictionary) TagResolver {
	return TagResolver{dict: dict}
}

// TagsFor returns the tags of the given pattern id, or nil when the id is
// absent or unknown.
func (r TagResolver) TagsFor(id *int64) []string {
	if id == nil {
		return nil
	}
	return r.dict.Tags(*id)
}

// Matches reports whether one of the pattern's tags contains substr, ignoring case.
func (r TagResolver) Matches(id *int64, substr string) bool {
	needle := lower(substr)
	for _, tag := range r.TagsFor(id) {
		if strings.Contains(lower(tag), needle) {
			return true
		}
	}
	return false
}

// lower folds s with Unicode lower-casing rules. A Caser keeps state so a new
// one is taken per call.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}
