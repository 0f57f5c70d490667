// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package m3u

import "strings"

// Well-known EXTINF attribute keys.
const (
	KeyID      = "tvg-id"
	KeyName    = "tvg-name"
	KeyLogo    = "tvg-logo"
	KeyGroup   = "group-title"
	KeyChannel = "tvh-chnum"
)

// Attr is a single key="value" pair from a metadata line.
type Attr struct {
	Key   string
	Value string
}

// Attributes is the typed attribute container of a channel. Well-known keys
// have named accessors; everything else is kept in source order so that it can
// be written back unchanged.
type Attributes struct {
	id, name, logo, group          string
	hasID, hasName, hasLogo, hasGr bool
	extra                          []Attr
}

// Set stores value under key. Well-known keys are matched case-insensitively.
// tvh-chnum is dropped: channel numbers are reassigned on every run.
func (a *Attributes) Set(key, value string) {
	switch strings.ToLower(key) {
	case KeyID:
		a.id, a.hasID = value, true
	case KeyName:
		a.name, a.hasName = value, true
	case KeyLogo:
		a.logo, a.hasLogo = value, true
	case KeyGroup:
		a.group, a.hasGr = value, true
	case KeyChannel:
	default:
		for i := range a.extra {
			if a.extra[i].Key == key {
				a.extra[i].Value = value
				return
			}
		}
		a.extra = append(a.extra, Attr{Key: key, Value: value})
	}
}

// ID returns the matching identifier (tvg-id).
func (a Attributes) ID() string { return a.id }

// HasID reports whether a non-empty identifier is present.
// "None" is treated as absent, a placeholder some providers emit.
func (a Attributes) HasID() bool {
	return a.hasID && strings.TrimSpace(a.id) != "" && a.id != "None"
}

// SetID replaces the identifier.
func (a *Attributes) SetID(id string) { a.id, a.hasID = id, true }

// TvgName returns the tvg-name attribute.
func (a Attributes) TvgName() string { return a.name }

// SetTvgName replaces the tvg-name attribute.
func (a *Attributes) SetTvgName(n string) { a.name, a.hasName = n, true }

// Logo returns the tvg-logo attribute.
func (a Attributes) Logo() string { return a.logo }

// SetLogo replaces the tvg-logo attribute.
func (a *Attributes) SetLogo(l string) { a.logo, a.hasLogo = l, true }

// Group returns the group-title attribute.
func (a Attributes) Group() string { return a.group }

// SetGroup replaces the group-title attribute.
func (a *Attributes) SetGroup(g string) { a.group, a.hasGr = g, true }

// Extra returns the unrecognized attributes in source order.
func (a Attributes) Extra() []Attr { return a.extra }

// Get looks up any attribute by key.
func (a Attributes) Get(key string) (string, bool) {
	switch strings.ToLower(key) {
	case KeyID:
		return a.id, a.hasID
	case KeyName:
		return a.name, a.hasName
	case KeyLogo:
		return a.logo, a.hasLogo
	case KeyGroup:
		return a.group, a.hasGr
	}
	for _, e := range a.extra {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// List returns all attributes in emission order: tvg-id, tvg-name, tvg-logo,
// group-title (those present), then unknown attributes in source order.
func (a Attributes) List() []Attr {
	out := make([]Attr, 0, 4+len(a.extra))
	if a.hasID {
		out = append(out, Attr{KeyID, a.id})
	}
	if a.hasName {
		out = append(out, Attr{KeyName, a.name})
	}
	if a.hasLogo {
		out = append(out, Attr{KeyLogo, a.logo})
	}
	if a.hasGr {
		out = append(out, Attr{KeyGroup, a.group})
	}
	return append(out, a.extra...)
}

// Clone returns a deep copy.
func (a Attributes) Clone() Attributes {
	c := a
	c.extra = append([]Attr(nil), a.extra...)
	return c
}
