// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package normalize holds the string comparison rules shared by the filter and
// the schedule reconciler.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	unorm "golang.org/x/text/unicode/norm"
)

// Token normalizes a string token for matching:
// - trims Unicode whitespace + invisible edge characters
// - lowercases for case-insensitive comparisons
func Token(s string) string {
	return strings.ToLower(Trim(s))
}

// Trim removes Unicode whitespace and zero-width characters from both ends.
func Trim(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) ||
			r == '\u200B' || // Zero Width Space
			r == '\u200C' || // Zero Width Non-Joiner
			r == '\u200D' || // Zero Width Joiner
			r == '\uFEFF' // Zero Width Non-Breaking Space (BOM)
	})
}

// Policy decides how identifiers are compared and rendered.
// The zero value is case-insensitive.
type Policy struct {
	// Exact switches to byte-for-byte comparison and keeps the original case
	// when identifiers are written out.
	Exact bool
}

// CaseInsensitive is the default comparison policy.
var CaseInsensitive = Policy{}

// Exact compares identifiers as-is.
var Exact = Policy{Exact: true}

// Key returns the lookup key for s under the policy.
func (p Policy) Key(s string) string {
	if p.Exact {
		return s
	}
	// cases.Caser is stateful; a fresh one per call keeps Policy safe for concurrent use.
	return cases.Fold().String(unorm.NFC.String(s))
}

// Equal reports whether a and b identify the same channel.
func (p Policy) Equal(a, b string) bool {
	return p.Key(a) == p.Key(b)
}

// Render returns the identifier as it should appear in generated documents.
// Under the case-insensitive policy it is the lookup key, so identifiers that
// match always render the same way in the playlist and the schedule.
func (p Policy) Render(s string) string {
	return p.Key(s)
}

// Group normalizes a group label for set membership checks. Group labels are
// always compared case-insensitively with surrounding whitespace removed.
func Group(s string) string {
	return CaseInsensitive.Key(Trim(s))
}
