// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package filter

import (
	"errors"
	"testing"

	"github.com/ManuGH/m3utrim/internal/m3u"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkChannel(name, group, id string) m3u.Channel {
	c := m3u.Channel{Name: name, URL: "http://stream.example/" + name}
	if group != "" {
		c.Attrs.SetGroup(group)
	}
	if id != "" {
		c.Attrs.SetID(id)
	}
	return c
}

func names(chs []m3u.Channel) []string {
	out := make([]string, 0, len(chs))
	for _, c := range chs {
		out = append(out, c.Name)
	}
	return out
}

func TestDecide_IncludeOverridesGroupDiscard(t *testing.T) {
	spec := Spec{
		Groups:  NewGroupSpec(ModeDiscard, "Sports"),
		Include: MustMatcher("ESPN HD"),
		Discard: MustMatcher("ESPN"),
	}
	d := Decide(mkChannel("ESPN HD", "Sports", ""), spec)
	assert.Equal(t, Decision{Retain: true, Rule: RuleIncludeName}, d)

	d = Decide(mkChannel("ESPN 2", "Sports", ""), spec)
	assert.Equal(t, Decision{Rule: RuleGroup}, d)
}

func TestDecide_Precedence(t *testing.T) {
	spec := Spec{
		Groups:     NewGroupSpec(ModeKeep, " news ", "Movies"),
		Include:    MustMatcher("^Keep"),
		IncludeURL: MustMatcher(`/always/`),
		Discard:    MustMatcher("shopping", "adult"),
		DiscardURL: MustMatcher(`\.mp4$`),
		RequireID:  true,
	}

	urlKept := mkChannel("Other", "Kids", "")
	urlKept.URL = "http://x/always/1"
	mp4 := mkChannel("Film", "Movies", "film.id")
	mp4.URL = "http://x/film.mp4"

	tests := []struct {
		name string
		ch   m3u.Channel
		want Decision
	}{
		{"include name beats missing id", mkChannel("Keep Me", "Kids", ""), Decision{true, RuleIncludeName}},
		{"include url", urlKept, Decision{true, RuleIncludeURL}},
		{"missing id before group", mkChannel("BBC News", "News", ""), Decision{false, RuleMissingID}},
		{"None counts as missing", mkChannel("BBC News", "News", "None"), Decision{false, RuleMissingID}},
		{"group not kept", mkChannel("Cartoons", "Kids", "k.id"), Decision{false, RuleGroup}},
		{"group trimmed and folded", mkChannel("BBC News", "NEWS  ", "bbc.news"), Decision{true, RuleDefault}},
		{"discard name", mkChannel("Shopping 24", "News", "s.id"), Decision{false, RuleDiscardName}},
		{"discard url", mp4, Decision{false, RuleDiscardURL}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.ch, spec))
		})
	}
}

func TestDecide_EmptyGroupSet(t *testing.T) {
	ch := mkChannel("A", "News", "a")
	assert.False(t, Decide(ch, Spec{Groups: NewGroupSpec(ModeKeep)}).Retain)
	assert.True(t, Decide(ch, Spec{Groups: NewGroupSpec(ModeDiscard)}).Retain)
}

func TestApply_KeepAndDiscardAreComplementary(t *testing.T) {
	chs := []m3u.Channel{
		mkChannel("A", "News", "a"),
		mkChannel("B", "Sports", "b"),
		mkChannel("C", "news", "c"),
		mkChannel("D", "", "d"),
		mkChannel("E", "Music", "e"),
	}
	groups := []string{"News", "Music"}

	kept, keptOut := Apply(chs, Spec{Groups: NewGroupSpec(ModeKeep, groups...)})
	disc, discOut := Apply(chs, Spec{Groups: NewGroupSpec(ModeDiscard, groups...)})

	assert.Equal(t, []string{"A", "C", "E"}, names(kept))
	assert.Equal(t, []string{"B", "D"}, names(disc))
	assert.Len(t, keptOut, 2)
	assert.Len(t, discOut, 3)

	seen := map[string]int{}
	for _, n := range append(names(kept), names(disc)...) {
		seen[n]++
	}
	for _, c := range chs {
		assert.Equal(t, 1, seen[c.Name], c.Name)
	}
}

func TestApply_MissingIDReportedWithRule(t *testing.T) {
	chs := []m3u.Channel{mkChannel("NoID", "News", ""), mkChannel("WithID", "News", "w")}
	retained, discarded := Apply(chs, Spec{Groups: NewGroupSpec(ModeKeep, "News"), RequireID: true})

	assert.Equal(t, []string{"WithID"}, names(retained))
	require.Len(t, discarded, 1)
	assert.Equal(t, "NoID", discarded[0].Channel.Name)
	assert.Equal(t, RuleMissingID, discarded[0].Rule)
}

func TestMatcher(t *testing.T) {
	m := MustMatcher("BBC One (HD)", "^itv", "sky.*news")

	assert.True(t, m.Match("bbc one (hd)"), "exact match ignores regex syntax")
	assert.True(t, m.Match("ITV 2"))
	assert.True(t, m.Match("UK: Sky Sports News"), "search anywhere")
	assert.False(t, m.Match("UK ITV"))
	assert.Equal(t, 2, m.Index("Sky News"))
	assert.Equal(t, -1, m.Index("Channel 4"))

	var nilMatcher *Matcher
	assert.False(t, nilMatcher.Match("x"))
	assert.Equal(t, -1, nilMatcher.Index("x"))
	assert.Zero(t, nilMatcher.Len())
}

func TestNewMatcher_InvalidPattern(t *testing.T) {
	_, err := NewMatcher([]string{"ok", "(unclosed"})
	require.Error(t, err)
	var pe *PatternError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "(unclosed", pe.Pattern)

	m, err := NewMatcher(nil)
	assert.NoError(t, err)
	assert.Nil(t, m)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeKeep, m)
	m, err = ParseMode(" Discard ")
	require.NoError(t, err)
	assert.Equal(t, ModeDiscard, m)
	_, err = ParseMode("drop")
	assert.Error(t, err)
}
