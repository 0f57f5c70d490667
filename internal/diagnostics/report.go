// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package diagnostics

// Problem is a recovered, per-record failure.
type Problem struct {
	Kind string
	Err  error
}

// Problems accumulates recovered failures in the order they happened.
// The zero value is ready to use; a nil *Problems discards everything.
type Problems struct {
	items []Problem
}

// Add records err under kind.
func (p *Problems) Add(kind string, err error) {
	if p == nil || err == nil {
		return
	}
	p.items = append(p.items, Problem{Kind: kind, Err: err})
}

// Merge appends all problems of other.
func (p *Problems) Merge(other *Problems) {
	if p == nil || other == nil {
		return
	}
	p.items = append(p.items, other.items...)
}

// Items returns the recorded problems.
func (p *Problems) Items() []Problem {
	if p == nil {
		return nil
	}
	return p.items
}

// Len returns the number of recorded problems.
func (p *Problems) Len() int {
	if p == nil {
		return 0
	}
	return len(p.items)
}

// CountByKind groups problems by kind.
func (p *Problems) CountByKind() map[string]int {
	out := map[string]int{}
	for _, it := range p.Items() {
		out[it.Kind]++
	}
	return out
}

// Discard records a channel rejected by the filter.
type Discard struct {
	Name string
	Rule string
}

// Report is the side output of a run. It is never authoritative: the
// playlist and schedule are the results, the report explains them.
type Report struct {
	// AllParsed lists every parsed channel eligible for filtering, in source order.
	AllParsed []NameGroup
	// Retained lists the channels of the final playlist, in final order.
	Retained []NameGroup
	// NoSchedule lists retained channels without a schedule match.
	NoSchedule []NameID
	// Discarded lists filtered-out channels with the rule that removed them.
	Discarded []Discard
	Problems  Problems
}

// NameGroup is a channel name with its group label.
type NameGroup struct {
	Name  string
	Group string
}

// NameID is a channel name with its identifier.
type NameID struct {
	Name string
	ID   string
}
