// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package epg

import (
	"bufio"
	"encoding/xml"
	"io"
)

// Generator is written as generator-info-name on generated documents.
const Generator = "m3utrim"

const doctype = `<!DOCTYPE tv SYSTEM "xmltv.dtd">` + "\n"

// TV is an output schedule document: channel elements followed by their programmes.
type TV struct {
	Attrs      []xml.Attr
	Channels   []Channel
	Programmes []Programme
}

// ChannelNode renders c as a <channel> element.
func ChannelNode(c Channel) Node {
	return Node{
		XMLName:  xml.Name{Local: "channel"},
		Attrs:    []xml.Attr{{Name: xml.Name{Local: "id"}, Value: c.ID}},
		Children: c.Children,
	}
}

// ProgrammeNode renders p as a <programme> element.
func ProgrammeNode(p Programme) Node {
	return Node{
		XMLName:  xml.Name{Local: "programme"},
		Attrs:    p.Attrs,
		Children: p.Children,
	}
}

// Write emits tv as an indented XMLTV document with XML header and doctype.
func Write(w io.Writer, tv *TV) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(xml.Header + doctype); err != nil {
		return err
	}

	enc := xml.NewEncoder(bw)
	enc.Indent("", "  ")

	attrs := tv.Attrs
	if attrValue(attrs, "generator-info-name") == "" {
		attrs = SetAttr(attrs, "generator-info-name", Generator)
	}
	root := xml.StartElement{Name: xml.Name{Local: "tv"}, Attr: attrs}
	if err := enc.EncodeToken(root); err != nil {
		return err
	}
	for _, c := range tv.Channels {
		if err := enc.Encode(ChannelNode(c)); err != nil {
			return err
		}
	}
	for _, p := range tv.Programmes {
		if err := enc.Encode(ProgrammeNode(p)); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	if _, err := bw.WriteString("\n"); err != nil {
		return err
	}
	return bw.Flush()
}
