// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package channels orders retained channels and assigns channel numbers.
package channels

import (
	"sort"

	"github.com/ManuGH/m3utrim/internal/diagnostics"
	"github.com/ManuGH/m3utrim/internal/filter"
	"github.com/ManuGH/m3utrim/internal/m3u"
	"github.com/ManuGH/m3utrim/internal/normalize"
)

// SortSpec is the desired priority order of display names.
type SortSpec struct {
	patterns *filter.Matcher
}

// NewSortSpec compiles display-name patterns, highest priority first.
func NewSortSpec(patterns []string) (SortSpec, error) {
	m, err := filter.NewMatcher(patterns)
	if err != nil {
		return SortSpec{}, err
	}
	return SortSpec{patterns: m}, nil
}

// Rank returns the index of the first entry matching name, or -1.
func (s SortSpec) Rank(name string) int {
	return s.patterns.Index(name)
}

// Options controls ordering and numbering.
type Options struct {
	// Disabled keeps the input order. Slots are still assigned.
	Disabled bool
	// Start is the slot of the first channel of the first group.
	Start int
	// Offset is the slot distance between groups. Zero numbers all channels
	// consecutively from Start across group boundaries instead of restarting
	// at Start in every group, which would hand out duplicate numbers.
	Offset int
}

type group struct {
	label    string
	channels []m3u.Channel
}

// Sort returns the channels grouped by group label (groups in order of first
// appearance) with each group ordered by SortSpec rank. Channels that match no
// entry follow in their original order. Every channel gets a Slot.
//
// The result is stable: sorting the output again gives the same order.
func Sort(chs []m3u.Channel, spec SortSpec, opts Options) ([]m3u.Channel, *diagnostics.Problems) {
	groups, groupOf := partition(chs)
	problems := &diagnostics.Problems{}

	var out []m3u.Channel
	if opts.Disabled {
		out = make([]m3u.Channel, len(chs))
		copy(out, chs)
	} else {
		out = make([]m3u.Channel, 0, len(chs))
		for _, g := range groups {
			ranks := make([]int, len(g.channels))
			order := make([]int, len(g.channels))
			for i, ch := range g.channels {
				ranks[i] = rankKey(spec.Rank(ch.Name))
				order[i] = i
			}
			sort.SliceStable(order, func(a, b int) bool {
				return ranks[order[a]] < ranks[order[b]]
			})
			for _, i := range order {
				out = append(out, g.channels[i])
			}
		}
	}

	assignSlots(out, groupOf, opts)

	if opts.Offset > 0 {
		for _, g := range groups {
			if len(g.channels) > opts.Offset {
				problems.Add(diagnostics.KindSlotOverlap, &diagnostics.SlotOverlapError{
					Group: g.label, Channels: len(g.channels), Offset: opts.Offset,
				})
			}
		}
	}
	return out, problems
}

func rankKey(r int) int {
	if r < 0 {
		return int(^uint(0) >> 1)
	}
	return r
}

// partition splits chs by normalized group label. The returned map gives the
// group index of every label.
func partition(chs []m3u.Channel) ([]*group, map[string]int) {
	var groups []*group
	index := make(map[string]int)
	for _, ch := range chs {
		key := normalize.Group(ch.Group())
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, &group{label: ch.Group()})
		}
		groups[i].channels = append(groups[i].channels, ch)
	}
	return groups, index
}

func assignSlots(chs []m3u.Channel, groupOf map[string]int, opts Options) {
	if opts.Offset == 0 {
		for i := range chs {
			chs[i].Slot = opts.Start + i
		}
		return
	}
	pos := make(map[int]int, len(groupOf))
	for i := range chs {
		gi := groupOf[normalize.Group(chs[i].Group())]
		chs[i].Slot = opts.Start + gi*opts.Offset + pos[gi]
		pos[gi]++
	}
}
