// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package reconcile matches the final playlist against a parsed schedule and
// builds the output schedule document.
package reconcile

import (
	"encoding/xml"
	"strings"
	"time"

	"github.com/ManuGH/m3utrim/internal/diagnostics"
	"github.com/ManuGH/m3utrim/internal/epg"
	"github.com/ManuGH/m3utrim/internal/m3u"
	"github.com/ManuGH/m3utrim/internal/normalize"
)

// DefaultPlaceholderSpan is the length of a placeholder programme when no
// window is configured.
const DefaultPlaceholderSpan = 2 * time.Hour

// Options controls reconciliation.
type Options struct {
	// Policy decides identifier matching and how identifiers are written.
	Policy normalize.Policy
	// Window limits programmes by start instant. Nil keeps all programmes.
	Window *Window
	// Now anchors placeholder programmes when Window is nil.
	Now time.Time
	// Synthesize emits a placeholder channel and programme for channels
	// without schedule data.
	Synthesize bool
	// RestrictImages blanks icon sources that are not http(s) URLs.
	RestrictImages bool
	// RenameDisplay rewrites schedule display names. Optional.
	RenameDisplay func(string) string
}

// Entry is one output channel element with its programmes.
type Entry struct {
	Channel    epg.Channel
	Programmes []epg.Programme
	// Placeholder is set for synthesized entries.
	Placeholder bool
	// SourceIndex is the position of the channel element in the schedule
	// document, -1 when it did not come from there.
	SourceIndex int
	// Encounter is the position in the playlist-driven emission order.
	Encounter int
}

// Result is the reconciled schedule before ordering.
type Result struct {
	// Attrs are the root attributes carried over from the source document.
	Attrs   []xml.Attr
	Entries []Entry
	// NoSchedule lists retained channels without schedule data, in playlist order.
	NoSchedule []diagnostics.NameID
}

// ProgrammeCount returns the number of emitted programmes.
func (r *Result) ProgrammeCount() int {
	n := 0
	for _, e := range r.Entries {
		n += len(e.Programmes)
	}
	return n
}

// index maps matching keys to schedule data. Built once per run, read-only afterwards.
type index struct {
	channels   map[string]*epg.Channel
	programmes map[string][]int
}

func buildIndex(doc *epg.Document, policy normalize.Policy) index {
	idx := index{
		channels:   make(map[string]*epg.Channel, len(doc.ChannelOrder)),
		programmes: make(map[string][]int),
	}
	for _, id := range doc.ChannelOrder {
		key := policy.Key(id)
		if _, ok := idx.channels[key]; !ok {
			idx.channels[key] = doc.Channels[id]
		}
	}
	for i, p := range doc.Programmes {
		key := policy.Key(p.Channel)
		idx.programmes[key] = append(idx.programmes[key], i)
	}
	return idx
}

// Reconcile walks chs in order and collects, for each distinct identifier,
// the schedule channel element and its programmes inside the window.
// Channels without identifier or without schedule data are listed in
// NoSchedule and, with Synthesize, get a placeholder entry.
func Reconcile(chs []m3u.Channel, doc *epg.Document, opts Options) *Result {
	if doc == nil {
		doc = &epg.Document{}
	}
	idx := buildIndex(doc, opts.Policy)
	res := &Result{Attrs: rootAttrs(doc.Attrs)}
	emitted := make(map[string]struct{})
	missed := make(map[string]struct{})

	for _, ch := range chs {
		if ch.Attrs.HasID() {
			key := opts.Policy.Key(ch.ID())
			if _, done := emitted[key]; done {
				continue
			}
			sc, hasChannel := idx.channels[key]
			progs, hasProgs := idx.programmes[key]
			if hasChannel || hasProgs {
				emitted[key] = struct{}{}
				res.Entries = append(res.Entries, matched(ch, sc, progs, doc, len(res.Entries), opts))
				continue
			}
		}

		missKey := "name:" + ch.Name
		if ch.Attrs.HasID() {
			missKey = "id:" + opts.Policy.Key(ch.ID())
		}
		if _, done := missed[missKey]; done {
			continue
		}
		missed[missKey] = struct{}{}
		res.NoSchedule = append(res.NoSchedule, diagnostics.NameID{Name: ch.Name, ID: ch.ID()})
		if opts.Synthesize {
			res.Entries = append(res.Entries, placeholder(ch, len(res.Entries), opts))
		}
	}
	return res
}

func matched(ch m3u.Channel, sc *epg.Channel, progs []int, doc *epg.Document, encounter int, opts Options) Entry {
	e := Entry{Encounter: encounter, SourceIndex: -1}
	if sc != nil {
		e.Channel = outputChannel(*sc, opts)
		e.SourceIndex = sc.Index
	} else {
		// Programmes without a channel element: describe the channel from the playlist.
		e.Channel = minimalChannel(opts.Policy.Render(ch.ID()), ch.Name)
	}

	id := e.Channel.ID
	for _, i := range progs {
		p := doc.Programmes[i]
		if !opts.Window.Contains(p.Start) {
			continue
		}
		p.Channel = id
		p.Attrs = epg.SetAttr(p.Attrs, "channel", id)
		e.Programmes = append(e.Programmes, p)
	}
	return e
}

func outputChannel(sc epg.Channel, opts Options) epg.Channel {
	out := sc
	out.ID = opts.Policy.Render(sc.ID)
	out.DisplayNames = nil
	out.Children = make([]epg.Node, len(sc.Children))
	copy(out.Children, sc.Children)

	for i := range out.Children {
		n := &out.Children[i]
		switch n.XMLName.Local {
		case "display-name":
			if opts.RenameDisplay != nil {
				n.Text = opts.RenameDisplay(n.Text)
			}
			out.DisplayNames = append(out.DisplayNames, strings.TrimSpace(n.Text))
		case "icon":
			if opts.RestrictImages && !IsHTTP(n.Attr("src")) {
				n.Attrs = epg.SetAttr(n.Attrs, "src", "")
			}
		}
	}
	out.Icon = ""
	for _, n := range out.Children {
		if n.XMLName.Local == "icon" {
			out.Icon = n.Attr("src")
			break
		}
	}
	return out
}

func placeholderID(ch m3u.Channel) string {
	if ch.Attrs.HasID() {
		return ch.ID()
	}
	return ch.Name
}

func placeholder(ch m3u.Channel, encounter int, opts Options) Entry {
	id := placeholderID(ch)
	if ch.Attrs.HasID() {
		id = opts.Policy.Render(id)
	}

	start, stop := opts.Now, opts.Now.Add(DefaultPlaceholderSpan)
	if opts.Window != nil {
		start, stop = opts.Window.Start, opts.Window.End()
	}
	p := epg.Programme{
		Channel: id,
		Start:   start,
		Stop:    stop,
		Title:   ch.Name,
		Attrs: []xml.Attr{
			{Name: xml.Name{Local: "start"}, Value: epg.FormatTime(start)},
			{Name: xml.Name{Local: "stop"}, Value: epg.FormatTime(stop)},
			{Name: xml.Name{Local: "channel"}, Value: id},
		},
		Children: []epg.Node{
			{XMLName: xml.Name{Local: "title"}, Text: ch.Name},
			{XMLName: xml.Name{Local: "desc"}, Text: ch.Name},
		},
		Index: -1,
	}
	return Entry{
		Channel:     minimalChannel(id, ch.Name),
		Programmes:  []epg.Programme{p},
		Placeholder: true,
		SourceIndex: -1,
		Encounter:   encounter,
	}
}

func minimalChannel(id, name string) epg.Channel {
	return epg.Channel{
		ID:           id,
		DisplayNames: []string{name},
		Children:     []epg.Node{{XMLName: xml.Name{Local: "display-name"}, Text: name}},
		Index:        -1,
	}
}

// rootAttrs keeps the source root attributes except generator-info-*, which
// describe the upstream tool.
func rootAttrs(attrs []xml.Attr) []xml.Attr {
	var out []xml.Attr
	for _, a := range attrs {
		if strings.HasPrefix(a.Name.Local, "generator-info-") {
			continue
		}
		out = append(out, a)
	}
	return out
}

// IsHTTP reports whether src is an http or https URL.
func IsHTTP(src string) bool {
	return strings.HasPrefix(strings.ToLower(src), "http")
}
