// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package filter decides which playlist channels are kept.
package filter

import (
	"fmt"
	"strings"

	"github.com/ManuGH/m3utrim/internal/m3u"
	"github.com/ManuGH/m3utrim/internal/normalize"
)

// Mode selects how the group set is interpreted.
type Mode string

const (
	// ModeKeep retains only channels whose group is in the set.
	ModeKeep Mode = "keep"
	// ModeDiscard retains only channels whose group is not in the set.
	ModeDiscard Mode = "discard"
)

// ParseMode parses a group mode. The empty string means ModeKeep.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeKeep:
		return ModeKeep, nil
	case ModeDiscard:
		return ModeDiscard, nil
	default:
		return "", fmt.Errorf("invalid group mode %q (want keep or discard)", s)
	}
}

// Rule names the check that decided a channel's fate.
type Rule string

const (
	RuleIncludeName Rule = "include_name"
	RuleIncludeURL  Rule = "include_url"
	RuleMissingID   Rule = "missing_id"
	RuleGroup       Rule = "group"
	RuleDiscardName Rule = "discard_name"
	RuleDiscardURL  Rule = "discard_url"
	RuleDefault     Rule = "default"
)

// GroupSpec is a set of group labels and the mode applied to it.
type GroupSpec struct {
	labels map[string]struct{}
	Mode   Mode
}

// NewGroupSpec builds a group set. Labels are compared trimmed and
// case-insensitively.
func NewGroupSpec(mode Mode, labels ...string) GroupSpec {
	g := GroupSpec{labels: make(map[string]struct{}, len(labels)), Mode: mode}
	for _, l := range labels {
		g.labels[normalize.Group(l)] = struct{}{}
	}
	return g
}

// Contains reports whether group is in the set.
func (g GroupSpec) Contains(group string) bool {
	_, ok := g.labels[normalize.Group(group)]
	return ok
}

// Allows applies the mode to group membership.
func (g GroupSpec) Allows(group string) bool {
	if g.Mode == ModeDiscard {
		return !g.Contains(group)
	}
	return g.Contains(group)
}

// Spec is the complete, compiled channel filter policy.
type Spec struct {
	Groups GroupSpec

	Include    *Matcher // over the display name
	IncludeURL *Matcher
	Discard    *Matcher // over the display name
	DiscardURL *Matcher

	// RequireID discards channels without identifier unless an include
	// pattern retains them.
	RequireID bool
}

// Decision is the outcome for one channel.
type Decision struct {
	Retain bool
	Rule   Rule
}

// Decide evaluates spec against ch. The checks run in a fixed order: include
// patterns, required identifier, group policy, discard patterns.
func Decide(ch m3u.Channel, spec Spec) Decision {
	if spec.Include.Match(ch.Name) {
		return Decision{Retain: true, Rule: RuleIncludeName}
	}
	if spec.IncludeURL.Match(ch.URL) {
		return Decision{Retain: true, Rule: RuleIncludeURL}
	}
	if spec.RequireID && !ch.Attrs.HasID() {
		return Decision{Rule: RuleMissingID}
	}
	if !spec.Groups.Allows(ch.Group()) {
		return Decision{Rule: RuleGroup}
	}
	if spec.Discard.Match(ch.Name) {
		return Decision{Rule: RuleDiscardName}
	}
	if spec.DiscardURL.Match(ch.URL) {
		return Decision{Rule: RuleDiscardURL}
	}
	return Decision{Retain: true, Rule: RuleDefault}
}

// Discarded is a channel rejected by Decide.
type Discarded struct {
	Channel m3u.Channel
	Rule    Rule
}

// Apply splits chs into retained and discarded channels, both in source order.
func Apply(chs []m3u.Channel, spec Spec) (retained []m3u.Channel, discarded []Discarded) {
	for _, ch := range chs {
		d := Decide(ch, spec)
		if d.Retain {
			retained = append(retained, ch)
			continue
		}
		discarded = append(discarded, Discarded{Channel: ch, Rule: d.Rule})
	}
	return retained, discarded
}
