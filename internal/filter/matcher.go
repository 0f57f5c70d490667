// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package filter

import (
	"fmt"
	"regexp"

	"github.com/ManuGH/m3utrim/internal/normalize"
)

// Matcher tests a value against an ordered list of patterns. A pattern matches
// when it equals the value ignoring case, or when it finds a match anywhere in
// the value as a case-insensitive regular expression.
//
// A nil *Matcher matches nothing.
type Matcher struct {
	patterns []string
	keys     []string
	exact    map[string]struct{}
	res      []*regexp.Regexp
}

// PatternError reports a pattern that is not a valid regular expression.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// NewMatcher compiles patterns. An empty list yields a nil matcher.
func NewMatcher(patterns []string) (*Matcher, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	m := &Matcher{
		patterns: append([]string(nil), patterns...),
		exact:    make(map[string]struct{}, len(patterns)),
		res:      make([]*regexp.Regexp, 0, len(patterns)),
	}
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, &PatternError{Pattern: p, Err: err}
		}
		key := normalize.CaseInsensitive.Key(p)
		m.keys = append(m.keys, key)
		m.exact[key] = struct{}{}
		m.res = append(m.res, re)
	}
	return m, nil
}

// MustMatcher is like NewMatcher but panics on invalid patterns. For tests and
// static pattern lists.
func MustMatcher(patterns ...string) *Matcher {
	m, err := NewMatcher(patterns)
	if err != nil {
		panic(err)
	}
	return m
}

// Match reports whether any pattern matches value.
func (m *Matcher) Match(value string) bool {
	if m == nil {
		return false
	}
	if _, ok := m.exact[normalize.CaseInsensitive.Key(value)]; ok {
		return true
	}
	for _, re := range m.res {
		if re.MatchString(value) {
			return true
		}
	}
	return false
}

// Index returns the position of the first pattern matching value, or -1.
func (m *Matcher) Index(value string) int {
	if m == nil {
		return -1
	}
	key := normalize.CaseInsensitive.Key(value)
	for i, re := range m.res {
		if m.keys[i] == key || re.MatchString(value) {
			return i
		}
	}
	return -1
}

// Len returns the number of patterns.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.patterns)
}

// Patterns returns the source patterns in order.
func (m *Matcher) Patterns() []string {
	if m == nil {
		return nil
	}
	return m.patterns
}
