package search

import (
	"fmt"
	"strings"

	"releve/internal/core"
)

// untaggedSentinel is the word users type to find activities without tags.
const untaggedSentinel = "null"

// SentinelPolicy decides when a search string selects untagged activities.
type SentinelPolicy string

const (
	// SentinelPrefix matches any non-empty prefix of "null": "n", "nu", "nul", "null".
	SentinelPrefix SentinelPolicy = "prefix"
	// SentinelExact only matches the full word "null".
	SentinelExact SentinelPolicy = "exact"
)

// ParseSentinelPolicy maps a configuration value to a policy. Empty selects the prefix policy.
func ParseSentinelPolicy(s string) (SentinelPolicy, error) {
	switch p := SentinelPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", SentinelPrefix:
		return SentinelPrefix, nil
	case SentinelExact:
		return SentinelExact, nil
	default:
		return "", fmt.Errorf("unknown untagged match policy %q", s)
	}
}

// selectsUntagged applies the policy to an already lower-cased pattern.
func (p SentinelPolicy) selectsUntagged(pattern string) bool {
	if pattern == "" {
		return false
	}
	if p == SentinelExact {
		return pattern == untaggedSentinel
	}
	return strings.HasPrefix(untaggedSentinel, pattern)
}

// Predicate decides whether one activity matches a search string.
type Predicate struct {
	tags   TagResolver
	policy SentinelPolicy
}

func NewPredicate(tags TagResolver, policy SentinelPolicy) Predicate {
	if policy == "" {
		policy = SentinelPrefix
	}
	return Predicate{tags: tags, policy: policy}
}

// Matches reports whether the activity's amount, date, statement or tags
// contain the search string, ignoring case. The empty string matches everything.
func (p Predicate) Matches(a core.Activity, raw string) bool {
	pattern := lower(raw)
	if pattern == "" {
		return true
	}
	if strings.Contains(a.Amount.String(), pattern) {
		return true
	}
	if strings.Contains(a.Date.String(), pattern) {
		return true
	}
	if strings.Contains(lower(a.Statement), pattern) {
		return true
	}
	if !a.IsTagged() {
		return p.policy.selectsUntagged(pattern)
	}
	return p.tags.Matches(a.TagPatternID, pattern)
}

// For binds the search string, giving a filter function for Filter.
func (p Predicate) For(raw string) func(core.Activity) bool {
	return func(a core.Activity) bool {
		return p.Matches(a, raw)
	}
}
