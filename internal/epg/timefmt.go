// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package epg

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the XMLTV timestamp format written by this package.
const TimeLayout = "20060102150405 -0700"

var digitLayouts = map[int]string{
	14: "20060102150405",
	12: "200601021504",
	10: "2006010215",
	8:  "20060102",
}

var errEmptyTimestamp = errors.New("empty timestamp")

// ParseTime parses an XMLTV timestamp ("YYYYMMDDhhmmss +zzzz", with seconds,
// minutes and hours optional). A timestamp without offset is interpreted in loc.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errEmptyTimestamp
	}
	if loc == nil {
		loc = time.UTC
	}

	digits, offset := s, ""
	if i := strings.IndexAny(s, " +-Z"); i != -1 {
		digits, offset = s[:i], strings.TrimSpace(s[i:])
	}
	layout, ok := digitLayouts[len(digits)]
	if !ok {
		return time.Time{}, fmt.Errorf("unsupported timestamp %q", s)
	}

	if offset == "" {
		return time.ParseInLocation(layout, digits, loc)
	}
	zone, err := parseOffset(offset)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q: %w", s, err)
	}
	return time.ParseInLocation(layout, digits, zone)
}

func parseOffset(s string) (*time.Location, error) {
	switch strings.ToUpper(s) {
	case "Z", "UTC", "GMT", "+0000", "-0000", "+00:00":
		return time.UTC, nil
	}
	if len(s) < 3 || (s[0] != '+' && s[0] != '-') {
		return nil, fmt.Errorf("invalid offset %q", s)
	}
	sign := 1
	if s[0] == '-' {
		sign = -1
	}
	body := strings.ReplaceAll(s[1:], ":", "")
	var hh, mm int
	var err error
	switch len(body) {
	case 2:
		hh, err = strconv.Atoi(body)
	case 4:
		hh, err = strconv.Atoi(body[:2])
		if err == nil {
			mm, err = strconv.Atoi(body[2:])
		}
	default:
		return nil, fmt.Errorf("invalid offset %q", s)
	}
	if err != nil || hh > 14 || mm > 59 {
		return nil, fmt.Errorf("invalid offset %q", s)
	}
	return time.FixedZone("", sign*(hh*3600+mm*60)), nil
}

// FormatTime formats t in XMLTV format: YYYYMMDDHHMMSS +ZZZZ
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}
