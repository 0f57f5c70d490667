// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ManuGH/m3utrim/internal/epg"
	"github.com/ManuGH/m3utrim/internal/normalize"
)

// OrderPolicy selects the order of channel elements in the output schedule.
type OrderPolicy string

const (
	// OrderSource keeps schedule document order; entries that did not come
	// from the document follow in playlist order.
	OrderSource OrderPolicy = "source"
	// OrderAlphabetical sorts by display name, ignoring case.
	OrderAlphabetical OrderPolicy = "alphabetical"
	// OrderPlaylist follows the final playlist order.
	OrderPlaylist OrderPolicy = "playlist"
)

// ParseOrderPolicy accepts the policy names and their short forms
// none, alpha and m3u. The empty string means OrderSource.
func ParseOrderPolicy(s string) (OrderPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", string(OrderSource):
		return OrderSource, nil
	case "alpha", string(OrderAlphabetical):
		return OrderAlphabetical, nil
	case "m3u", string(OrderPlaylist):
		return OrderPlaylist, nil
	default:
		return "", fmt.Errorf("invalid schedule order %q (want none, alpha or m3u)", s)
	}
}

// Order arranges the entries of res and flattens them into a schedule
// document: all channel elements, then the programmes of each channel in the
// same order. Programmes keep their parsed order.
func Order(res *Result, policy OrderPolicy) *epg.TV {
	entries := make([]Entry, len(res.Entries))
	copy(entries, res.Entries)

	switch policy {
	case OrderAlphabetical:
		keys := make(map[int]string, len(entries))
		for _, e := range entries {
			keys[e.Encounter] = normalize.CaseInsensitive.Key(e.Channel.DisplayName())
		}
		// Equal names keep schedule document order.
		sort.SliceStable(entries, func(i, j int) bool {
			a, b := keys[entries[i].Encounter], keys[entries[j].Encounter]
			if a != b {
				return a < b
			}
			return sourceBefore(entries[i], entries[j])
		})
	case OrderPlaylist:
		// Entries are already in encounter order.
	default:
		sort.SliceStable(entries, func(i, j int) bool {
			return sourceBefore(entries[i], entries[j])
		})
	}

	tv := &epg.TV{Attrs: res.Attrs}
	for _, e := range entries {
		tv.Channels = append(tv.Channels, e.Channel)
	}
	for _, e := range entries {
		tv.Programmes = append(tv.Programmes, e.Programmes...)
	}
	return tv
}

// sourceBefore orders entries by schedule document position. Entries that did
// not come from the document sort after those that did and keep their
// relative order.
func sourceBefore(a, b Entry) bool {
	if a.SourceIndex < 0 || b.SourceIndex < 0 {
		return a.SourceIndex >= 0 && b.SourceIndex < 0
	}
	return a.SourceIndex < b.SourceIndex
}
