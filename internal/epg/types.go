// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package epg reads and writes XMLTV schedule documents.
package epg

import (
	"encoding/xml"
	"time"
)

// Node is a generic XML element kept verbatim so that sub-elements the
// pipeline does not interpret (desc, category, episode-num, rating, ...)
// survive a round trip.
type Node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []Node     `xml:",any"`
}

// Attr returns the value of the attribute with the given local name.
func (n Node) Attr(name string) string {
	return attrValue(n.Attrs, name)
}

// Channel is a schedule-side <channel> element.
type Channel struct {
	ID           string
	DisplayNames []string
	Icon         string
	// Children holds every sub-element in source order, display-name and icon included.
	Children []Node
	// Index is the position among the document's channel elements.
	Index int
}

// DisplayName returns the first display name, or the id when there is none.
func (c Channel) DisplayName() string {
	if len(c.DisplayNames) > 0 && c.DisplayNames[0] != "" {
		return c.DisplayNames[0]
	}
	return c.ID
}

// Programme is a <programme> element with parsed start and stop instants.
type Programme struct {
	Channel string
	Start   time.Time
	Stop    time.Time
	Title   string
	// Attrs holds all attributes in source order; start, stop and channel
	// keep their original spelling.
	Attrs    []xml.Attr
	Children []Node
	Index    int
}

// Document is a parsed schedule.
type Document struct {
	// Attrs holds the attributes of the <tv> root.
	Attrs []xml.Attr
	// Channels maps the channel id, as written in the document, to its element.
	// When an id occurs more than once the first element wins.
	Channels     map[string]*Channel
	ChannelOrder []string
	Programmes   []Programme
}

func attrValue(attrs []xml.Attr, name string) string {
	for _, a := range attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// SetAttr replaces or appends the attribute with the given local name.
func SetAttr(attrs []xml.Attr, name, value string) []xml.Attr {
	out := make([]xml.Attr, len(attrs), len(attrs)+1)
	copy(out, attrs)
	for i := range out {
		if out[i].Name.Local == name {
			out[i].Value = value
			return out
		}
	}
	return append(out, xml.Attr{Name: xml.Name{Local: name}, Value: value})
}
