// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package m3u

import (
	"strings"

	"github.com/ManuGH/m3utrim/internal/diagnostics"
)

const (
	headerTag = "#EXTM3U"
	extinfTag = "#EXTINF:"
)

// Parse parses M3U content and returns the channels in source order.
//
// Broken entries do not fail the parse: they are dropped and reported in the
// returned problems. Only content that is not an extended M3U document at all
// yields an error, a *diagnostics.FatalInputError.
func Parse(content string) (*Playlist, *diagnostics.Problems, error) {
	content = strings.TrimPrefix(content, "\uFEFF")
	lines := strings.Split(content, "\n")
	problems := &diagnostics.Problems{}

	first := 0
	for first < len(lines) && strings.TrimSpace(lines[first]) == "" {
		first++
	}
	if first == len(lines) {
		return nil, nil, &diagnostics.FatalInputError{Document: "playlist", Reason: "empty document"}
	}
	head := strings.TrimSpace(lines[first])
	if !strings.HasPrefix(head, headerTag) {
		return nil, nil, &diagnostics.FatalInputError{
			Document: "playlist",
			Reason:   "does not start with " + headerTag,
		}
	}

	pl := &Playlist{Header: parseAttrs(strings.TrimPrefix(head, headerTag))}

	var (
		pending *Channel
		skipURL bool // the metadata line was rejected, swallow its URL
	)
	dropPending := func() {
		problems.Add(diagnostics.KindMalformedEntry, &diagnostics.MalformedEntryError{
			Line:   pending.Line,
			Name:   pending.Name,
			Reason: "metadata line without URL line",
		})
		pending = nil
	}

	for i := first + 1; i < len(lines); i++ {
		lineNo := i + 1
		line := strings.TrimSpace(lines[i])
		switch {
		case line == "":
			continue

		case strings.HasPrefix(line, extinfTag):
			if pending != nil {
				dropPending()
			}
			ch, reason := parseEXTINF(strings.TrimPrefix(line, extinfTag))
			if reason != "" {
				problems.Add(diagnostics.KindMalformedEntry, &diagnostics.MalformedEntryError{
					Line: lineNo, Reason: reason,
				})
				skipURL = true
				continue
			}
			ch.Line = lineNo
			pending = &ch
			skipURL = false

		case strings.HasPrefix(line, "#"):
			if pending != nil {
				pending.Directives = append(pending.Directives, line)
			}

		default:
			switch {
			case pending != nil:
				pending.URL = line
				pending.Index = len(pl.Channels)
				pl.Channels = append(pl.Channels, *pending)
				pending = nil
			case skipURL:
				skipURL = false
			default:
				problems.Add(diagnostics.KindOrphanURL, &diagnostics.MalformedEntryError{
					Line: lineNo, Reason: "URL line without metadata line",
				})
			}
		}
	}
	if pending != nil {
		dropPending()
	}

	return pl, problems, nil
}

// parseEXTINF parses the part of a metadata line after "#EXTINF:".
// A non-empty reason means the entry must be dropped.
func parseEXTINF(body string) (Channel, string) {
	var ch Channel

	i := 0
	for i < len(body) && body[i] != ' ' && body[i] != '\t' && body[i] != ',' {
		i++
	}
	ch.Duration = body[:i]
	if ch.Duration == "" {
		ch.Duration = "-1"
	}

	rest := body[i:]
	attrPart, name, found := splitDisplayName(rest)
	for _, a := range parseAttrs(attrPart) {
		ch.Attrs.Set(a.Key, a.Value)
	}

	ch.Name = strings.TrimSpace(name)
	if ch.Name == "" {
		ch.Name = strings.TrimSpace(ch.Attrs.TvgName())
	}
	if ch.Name == "" {
		if !found {
			return ch, "metadata line without display name separator"
		}
		return ch, "missing display name"
	}
	return ch, ""
}

// splitDisplayName finds the first comma outside a quoted attribute value.
func splitDisplayName(s string) (attrs, name string, found bool) {
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuote = !inQuote
		case ',':
			if !inQuote {
				return s[:i], s[i+1:], true
			}
		}
	}
	// Unbalanced quotes: fall back to the last comma, the way most players do.
	if idx := strings.LastIndex(s, ","); idx != -1 {
		return s[:idx], s[idx+1:], true
	}
	return s, "", false
}

// parseAttrs scans key="value" pairs. Unquoted values run to the next blank;
// bare tokens without "=" are ignored.
func parseAttrs(s string) []Attr {
	var out []Attr
	i := 0
	for i < len(s) {
		for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
			i++
		}
		start := i
		for i < len(s) && s[i] != '=' && s[i] != ' ' && s[i] != '\t' {
			i++
		}
		key := s[start:i]
		if i >= len(s) || s[i] != '=' {
			continue
		}
		i++ // '='
		var val string
		if i < len(s) && s[i] == '"' {
			i++
			end := strings.IndexByte(s[i:], '"')
			if end == -1 {
				val = s[i:]
				i = len(s)
			} else {
				val = s[i : i+end]
				i += end + 1
			}
		} else {
			vs := i
			for i < len(s) && s[i] != ' ' && s[i] != '\t' {
				i++
			}
			val = s[vs:i]
		}
		if key != "" {
			out = append(out, Attr{Key: key, Value: val})
		}
	}
	return out
}
