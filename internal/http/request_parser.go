// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

// maxSearchLength bounds the search string, in runes.
const maxSearchLength = 200

// ParseSearch returns the q parameter with control characters removed. It
// is not trimmed: spaces are part of what the user searches for.
func ParseSearch(query url.Values) string {
	q := sanitizeInput(query.Get("q"))
	if utf8.RuneCountInString(q) > maxSearchLength {
		q = string([]rune(q)[:maxSearchLength])
	}
	return q
}

// ParseTags reads the tag selection from value parameters. Both
// value=A,B and value=A&value=B are accepted; duplicates and blanks are
// dropped and order is kept.
func ParseTags(query url.Values) []string {
	seen := make(map[string]struct{})
	var tags []string
	for _, v := range query["value"] {
		for _, tag := range strings.Split(v, ",") {
			tag = strings.TrimSpace(sanitizeInput(tag))
			if tag == "" {
				continue
			}
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}
	return tags
}
