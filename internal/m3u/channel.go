// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package m3u reads and writes extended M3U playlists.
package m3u

// Channel represents a single channel from the M3U playlist.
type Channel struct {
	Name     string // display name
	URL      string
	Duration string // EXTINF duration token, usually "-1"
	Attrs    Attributes
	// Directives holds other "#" lines found between the metadata line and
	// the URL (#EXTVLCOPT, #EXTGRP, ...), written back verbatim.
	Directives []string

	Index int // position in the source playlist
	Line  int // 1-based line number of the metadata line
	Slot  int // channel number assigned by the sorter, 0 when unassigned
}

// ID returns the matching identifier.
func (c Channel) ID() string { return c.Attrs.ID() }

// Group returns the group label.
func (c Channel) Group() string { return c.Attrs.Group() }

// Clone returns a deep copy of the channel.
func (c Channel) Clone() Channel {
	c.Attrs = c.Attrs.Clone()
	c.Directives = append([]string(nil), c.Directives...)
	return c
}

// Playlist is a parsed playlist document.
type Playlist struct {
	// Header holds the attributes of the #EXTM3U line (url-tvg, x-tvg-url, ...).
	Header   []Attr
	Channels []Channel
}
