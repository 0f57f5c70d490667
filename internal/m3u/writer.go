// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package m3u

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// WriteOptions controls playlist emission.
type WriteOptions struct {
	// Slots emits the assigned channel number as tvh-chnum.
	Slots bool
}

// Write emits the playlist in extended M3U syntax.
func Write(w io.Writer, pl *Playlist, opts WriteOptions) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(headerTag)
	for _, a := range pl.Header {
		writeAttr(bw, a)
	}
	bw.WriteByte('\n')

	for _, ch := range pl.Channels {
		bw.WriteString(FormatEXTINF(ch, opts))
		bw.WriteByte('\n')
		for _, d := range ch.Directives {
			bw.WriteString(d)
			bw.WriteByte('\n')
		}
		bw.WriteString(ch.URL)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// FormatEXTINF renders the metadata line of ch.
// Attribute order: tvh-chnum (optional), well-known attributes, unknown
// attributes in source order.
func FormatEXTINF(ch Channel, opts WriteOptions) string {
	var b strings.Builder
	b.WriteString(extinfTag)
	if ch.Duration == "" {
		b.WriteString("-1")
	} else {
		b.WriteString(ch.Duration)
	}
	if opts.Slots && ch.Slot > 0 {
		writeAttr(&b, Attr{Key: KeyChannel, Value: strconv.Itoa(ch.Slot)})
	}
	for _, a := range ch.Attrs.List() {
		writeAttr(&b, a)
	}
	b.WriteByte(',')
	b.WriteString(ch.Name)
	return b.String()
}

type stringWriter interface {
	WriteString(string) (int, error)
	WriteByte(byte) error
}

func writeAttr(w stringWriter, a Attr) {
	w.WriteByte(' ')
	w.WriteString(a.Key)
	w.WriteString(`="`)
	// M3U has no escaping; a double quote would end the value early.
	w.WriteString(strings.ReplaceAll(a.Value, `"`, `'`))
	w.WriteByte('"')
}
