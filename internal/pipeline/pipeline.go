// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package pipeline runs parse, filter, sort and reconcile over in-memory
// documents. It performs no I/O and reads no clock: the caller supplies the
// documents and the current time.
package pipeline

import (
	"bytes"
	"time"

	"github.com/ManuGH/m3utrim/internal/channels"
	"github.com/ManuGH/m3utrim/internal/diagnostics"
	"github.com/ManuGH/m3utrim/internal/epg"
	"github.com/ManuGH/m3utrim/internal/filter"
	"github.com/ManuGH/m3utrim/internal/m3u"
	"github.com/ManuGH/m3utrim/internal/reconcile"
)

// Input holds the source documents of one run.
type Input struct {
	Playlist []byte
	// Schedule is the decompressed XMLTV document. Ignored with SkipSchedule.
	Schedule []byte
	Now      time.Time
}

// Result is the output of one run.
type Result struct {
	Playlist *m3u.Playlist
	// Numbered reports whether channel numbers should be written.
	Numbered bool
	// Schedule is nil when ScheduleOmitted is set.
	Schedule        *epg.TV
	ScheduleOmitted bool
	Report          diagnostics.Report
	// MissingID counts channels dropped for lack of an identifier.
	MissingID int
}

// Run compiles opts and processes in.
func Run(in Input, opts Options) (*Result, error) {
	plan, err := Compile(opts)
	if err != nil {
		return nil, err
	}
	return plan.Run(in)
}

// Run processes in. Any returned error is a *diagnostics.FatalInputError;
// per-record failures are collected in Result.Report.Problems.
func (p *Plan) Run(in Input) (*Result, error) {
	pl, plProblems, err := m3u.Parse(string(in.Playlist))
	if err != nil {
		return nil, err
	}

	var (
		doc         *epg.Document
		docProblems *diagnostics.Problems
	)
	if !p.opts.SkipSchedule {
		doc, docProblems, err = epg.Parse(bytes.NewReader(in.Schedule), epg.Options{Zone: p.opts.Zone})
		if err != nil {
			return nil, err
		}
	}

	res := &Result{Numbered: p.numbered(), ScheduleOmitted: p.opts.SkipSchedule}
	res.Report.Problems.Merge(plProblems)
	res.Report.Problems.Merge(docProblems)

	retained, discarded := filter.Apply(pl.Channels, p.filter)
	missing := make(map[int]struct{})
	for _, d := range discarded {
		if d.Rule == filter.RuleMissingID {
			missing[d.Channel.Index] = struct{}{}
			res.MissingID++
			continue
		}
		res.Report.Discarded = append(res.Report.Discarded, diagnostics.Discard{Name: d.Channel.Name, Rule: string(d.Rule)})
	}
	for _, ch := range pl.Channels {
		if _, skip := missing[ch.Index]; skip {
			continue
		}
		res.Report.AllParsed = append(res.Report.AllParsed, diagnostics.NameGroup{Name: ch.Name, Group: ch.Group()})
	}

	for i := range retained {
		retained[i] = retained[i].Clone()
		p.transforms.Apply(&retained[i])
	}

	sorted, sortProblems := channels.Sort(retained, p.sort, channels.Options{
		Disabled: p.opts.DisableSort,
		Start:    p.opts.SlotStart,
		Offset:   p.opts.SlotOffset,
	})
	res.Report.Problems.Merge(sortProblems)

	if !p.opts.SkipSchedule {
		rec := reconcile.Reconcile(sorted, doc, reconcile.Options{
			Policy:         p.policy(),
			Window:         reconcile.NewWindow(in.Now, p.opts.RangeHours),
			Now:            in.Now,
			Synthesize:     p.opts.SynthesizeOnMiss,
			RestrictImages: p.opts.RestrictImageSources,
			RenameDisplay:  p.transforms.Name,
		})
		res.Schedule = reconcile.Order(rec, p.opts.ScheduleOrder)
		res.Report.NoSchedule = rec.NoSchedule
	}

	policy := p.policy()
	for i := range sorted {
		ch := &sorted[i]
		if ch.Attrs.ID() != "" {
			ch.Attrs.SetID(policy.Render(ch.ID()))
		}
		if p.opts.RestrictImageSources && ch.Attrs.Logo() != "" && !reconcile.IsHTTP(ch.Attrs.Logo()) {
			ch.Attrs.SetLogo("")
		}
		res.Report.Retained = append(res.Report.Retained, diagnostics.NameGroup{Name: ch.Name, Group: ch.Group()})
	}
	res.Playlist = &m3u.Playlist{Header: pl.Header, Channels: sorted}
	return res, nil
}
