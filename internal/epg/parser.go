// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package epg

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ManuGH/m3utrim/internal/diagnostics"
	"golang.org/x/net/html/charset"
)

// Options controls schedule parsing.
type Options struct {
	// Zone is used for timestamps without an explicit offset. Nil means UTC.
	Zone *time.Location
}

type xmlChannel struct {
	ID       string `xml:"id,attr"`
	Children []Node `xml:",any"`
}

type xmlProgramme struct {
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []Node     `xml:",any"`
}

// Parse decodes an XMLTV document.
//
// Programmes whose start or stop cannot be used are dropped and reported in
// the returned problems. A document without a <tv> root or with broken XML
// syntax yields a *diagnostics.FatalInputError.
func Parse(r io.Reader, opts Options) (*Document, *diagnostics.Problems, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = true // Enable strict parsing for security
	// Disable entity expansion to prevent XXE attacks
	dec.Entity = make(map[string]string)
	dec.CharsetReader = charset.NewReaderLabel

	fatal := func(reason string, err error) error {
		return &diagnostics.FatalInputError{Document: "schedule", Reason: reason, Err: err}
	}

	root, err := findRoot(dec)
	if err != nil {
		return nil, nil, fatal("no root element", err)
	}
	if root.Name.Local != "tv" {
		return nil, nil, fatal(fmt.Sprintf("root element is <%s>, want <tv>", root.Name.Local), nil)
	}

	doc := &Document{
		Attrs:    root.Attr,
		Channels: make(map[string]*Channel),
	}
	problems := &diagnostics.Problems{}
	channelIndex := 0

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil, nil, fatal("unexpected end of document", io.ErrUnexpectedEOF)
		}
		if err != nil {
			return nil, nil, fatal("decode xmltv", err)
		}

		switch t := tok.(type) {
		case xml.EndElement:
			// Only the root can close here; children are consumed whole.
			return doc, problems, nil

		case xml.StartElement:
			switch t.Name.Local {
			case "channel":
				var xc xmlChannel
				if err := dec.DecodeElement(&xc, &t); err != nil {
					return nil, nil, fatal("decode channel", err)
				}
				ch := buildChannel(xc)
				ch.Index = channelIndex
				channelIndex++
				if _, dup := doc.Channels[ch.ID]; dup || ch.ID == "" {
					continue
				}
				doc.Channels[ch.ID] = ch
				doc.ChannelOrder = append(doc.ChannelOrder, ch.ID)

			case "programme":
				var xp xmlProgramme
				if err := dec.DecodeElement(&xp, &t); err != nil {
					return nil, nil, fatal("decode programme", err)
				}
				p, perr := buildProgramme(xp, opts.Zone)
				if perr != nil {
					problems.Add(diagnostics.KindMalformedTimestamp, perr)
					continue
				}
				p.Index = len(doc.Programmes)
				doc.Programmes = append(doc.Programmes, p)

			default:
				if err := dec.Skip(); err != nil {
					return nil, nil, fatal("skip element", err)
				}
			}
		}
	}
}

func findRoot(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return xml.StartElement{}, io.ErrUnexpectedEOF
			}
			return xml.StartElement{}, err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se, nil
		}
	}
}

func buildChannel(xc xmlChannel) *Channel {
	ch := &Channel{ID: xc.ID, Children: trimNodes(xc.Children)}
	for _, n := range ch.Children {
		switch n.XMLName.Local {
		case "display-name":
			ch.DisplayNames = append(ch.DisplayNames, strings.TrimSpace(n.Text))
		case "icon":
			if ch.Icon == "" {
				ch.Icon = n.Attr("src")
			}
		}
	}
	return ch
}

func buildProgramme(xp xmlProgramme, zone *time.Location) (Programme, error) {
	p := Programme{
		Channel:  attrValue(xp.Attrs, "channel"),
		Attrs:    xp.Attrs,
		Children: trimNodes(xp.Children),
	}
	for _, n := range p.Children {
		if n.XMLName.Local == "title" {
			p.Title = strings.TrimSpace(n.Text)
			break
		}
	}

	rawStart := attrValue(xp.Attrs, "start")
	start, err := ParseTime(rawStart, zone)
	if err != nil {
		return p, &diagnostics.MalformedTimestampError{Channel: p.Channel, Attr: "start", Value: rawStart, Err: err}
	}
	p.Start, p.Stop = start, start

	if rawStop := attrValue(xp.Attrs, "stop"); strings.TrimSpace(rawStop) != "" {
		stop, err := ParseTime(rawStop, zone)
		if err != nil {
			return p, &diagnostics.MalformedTimestampError{Channel: p.Channel, Attr: "stop", Value: rawStop, Err: err}
		}
		if stop.Before(start) {
			return p, &diagnostics.MalformedTimestampError{
				Channel: p.Channel, Attr: "stop", Value: rawStop, Err: errors.New("stop before start"),
			}
		}
		p.Stop = stop
	}
	return p, nil
}

// trimNodes drops indentation text from elements that have children.
func trimNodes(nodes []Node) []Node {
	for i := range nodes {
		if len(nodes[i].Children) > 0 {
			nodes[i].Text = strings.TrimSpace(nodes[i].Text)
			nodes[i].Children = trimNodes(nodes[i].Children)
		}
	}
	return nodes
}
