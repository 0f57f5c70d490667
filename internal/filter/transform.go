// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package filter

import (
	"regexp"
	"strings"

	"github.com/ManuGH/m3utrim/internal/m3u"
)

// Replacement maps a source value to its replacement.
type Replacement struct {
	From string
	To   string
}

type compiledReplacement struct {
	Replacement
	re     *regexp.Regexp // nil when From is not a valid expression
	expand string
}

// Transforms rewrites identifiers, groups and names of retained channels.
// A nil *Transforms changes nothing.
type Transforms struct {
	ids    []Replacement
	groups []compiledReplacement
	names  []compiledReplacement
}

// NewTransforms prepares the replacement lists.
//
// ids map an exact display name to a new identifier. groups and names replace
// every literal occurrence of From; when From does not occur literally it is
// applied as a regular expression, with \1-style back references accepted in To.
func NewTransforms(ids, groups, names []Replacement) *Transforms {
	if len(ids) == 0 && len(groups) == 0 && len(names) == 0 {
		return nil
	}
	return &Transforms{
		ids:    append([]Replacement(nil), ids...),
		groups: compileReplacements(groups),
		names:  compileReplacements(names),
	}
}

var backref = regexp.MustCompile(`\\(\d+)`)

func compileReplacements(rs []Replacement) []compiledReplacement {
	out := make([]compiledReplacement, 0, len(rs))
	for _, r := range rs {
		c := compiledReplacement{Replacement: r}
		// Invalid expressions (e.g. "C++") still work as literals.
		if re, err := regexp.Compile(r.From); err == nil {
			c.re = re
			c.expand = backref.ReplaceAllString(r.To, "$${$1}")
		}
		out = append(out, c)
	}
	return out
}

func replaceAll(s string, rs []compiledReplacement) string {
	for _, r := range rs {
		if r.From == "" {
			continue
		}
		if strings.Contains(s, r.From) {
			s = strings.ReplaceAll(s, r.From, r.To)
			continue
		}
		if r.re != nil {
			s = r.re.ReplaceAllString(s, r.expand)
		}
	}
	return s
}

// Name rewrites a display name.
func (t *Transforms) Name(s string) string {
	if t == nil {
		return s
	}
	return replaceAll(s, t.names)
}

// Group rewrites a group label.
func (t *Transforms) Group(s string) string {
	if t == nil {
		return s
	}
	return replaceAll(s, t.groups)
}

// ID returns the identifier for a channel called name, or id when no
// transform applies. The last matching entry wins.
func (t *Transforms) ID(name, id string) string {
	if t == nil {
		return id
	}
	for _, r := range t.ids {
		if r.From == name {
			id = r.To
		}
	}
	return id
}

// Apply rewrites ch in place.
func (t *Transforms) Apply(ch *m3u.Channel) {
	if t == nil {
		return
	}
	if id := t.ID(ch.Name, ch.ID()); id != ch.ID() {
		ch.Attrs.SetID(id)
	}
	if ch.Attrs.Group() != "" {
		ch.Attrs.SetGroup(t.Group(ch.Attrs.Group()))
	}
	if ch.Attrs.TvgName() != "" {
		ch.Attrs.SetTvgName(t.Name(ch.Attrs.TvgName()))
	}
	ch.Name = t.Name(ch.Name)
}
