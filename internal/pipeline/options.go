// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package pipeline

import (
	"fmt"
	"time"

	"github.com/ManuGH/m3utrim/internal/channels"
	"github.com/ManuGH/m3utrim/internal/filter"
	"github.com/ManuGH/m3utrim/internal/normalize"
	"github.com/ManuGH/m3utrim/internal/reconcile"
)

// Options is the complete processing policy of a run.
type Options struct {
	Groups    []string
	GroupMode filter.Mode

	IncludeNames []string
	DiscardNames []string
	IncludeURLs  []string
	DiscardURLs  []string

	// SortNames is the display-name priority list.
	SortNames []string

	IDTransforms    []filter.Replacement
	GroupTransforms []filter.Replacement
	NameTransforms  []filter.Replacement

	RequireID            bool
	SkipSchedule         bool
	DisableSort          bool
	SynthesizeOnMiss     bool
	PreserveCase         bool
	RestrictImageSources bool

	// SlotStart and SlotOffset configure channel numbers. Numbers are
	// written only when one of them is positive.
	SlotStart  int
	SlotOffset int

	ScheduleOrder reconcile.OrderPolicy
	// RangeHours limits programmes to [now, now+RangeHours]. Zero disables the limit.
	RangeHours int
	// Zone applies to schedule timestamps without offset. Nil means UTC.
	Zone *time.Location
}

// Plan is a compiled Options value, reusable across runs.
type Plan struct {
	opts       Options
	filter     filter.Spec
	sort       channels.SortSpec
	transforms *filter.Transforms
}

// Compile validates opts and prepares the pattern matchers.
func Compile(opts Options) (*Plan, error) {
	if opts.SlotStart < 0 || opts.SlotOffset < 0 {
		return nil, fmt.Errorf("channel numbers: start %d and offset %d must not be negative", opts.SlotStart, opts.SlotOffset)
	}
	if opts.RangeHours < 0 {
		return nil, fmt.Errorf("range %d must not be negative", opts.RangeHours)
	}
	mode := opts.GroupMode
	if mode == "" {
		mode = filter.ModeKeep
	}

	p := &Plan{opts: opts}
	p.filter.Groups = filter.NewGroupSpec(mode, opts.Groups...)
	p.filter.RequireID = opts.RequireID

	var err error
	for _, m := range []struct {
		name     string
		patterns []string
		dst      **filter.Matcher
	}{
		{"include_channels", opts.IncludeNames, &p.filter.Include},
		{"include_urls", opts.IncludeURLs, &p.filter.IncludeURL},
		{"discard_channels", opts.DiscardNames, &p.filter.Discard},
		{"discard_urls", opts.DiscardURLs, &p.filter.DiscardURL},
	} {
		if *m.dst, err = filter.NewMatcher(m.patterns); err != nil {
			return nil, fmt.Errorf("%s: %w", m.name, err)
		}
	}
	if p.sort, err = channels.NewSortSpec(opts.SortNames); err != nil {
		return nil, fmt.Errorf("sortchannels: %w", err)
	}
	p.transforms = filter.NewTransforms(opts.IDTransforms, opts.GroupTransforms, opts.NameTransforms)
	return p, nil
}

// Options returns the options the plan was compiled from.
func (p *Plan) Options() Options { return p.opts }

func (p *Plan) policy() normalize.Policy {
	if p.opts.PreserveCase {
		return normalize.Exact
	}
	return normalize.CaseInsensitive
}

func (p *Plan) numbered() bool {
	return p.opts.SlotStart > 0 || p.opts.SlotOffset > 0
}
