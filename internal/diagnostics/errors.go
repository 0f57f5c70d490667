// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package diagnostics

import (
	"errors"
	"fmt"
)

// Problem kinds, used as metric labels and in log events.
const (
	KindMalformedEntry     = "MALFORMED_ENTRY"     // playlist record dropped
	KindMalformedTimestamp = "MALFORMED_TIMESTAMP" // programme dropped
	KindOrphanURL          = "ORPHAN_URL"          // URL line without metadata line
	KindSlotOverlap        = "SLOT_OVERLAP"        // group longer than the slot offset
)

// ErrFatalInput is matched by every FatalInputError via errors.Is.
var ErrFatalInput = errors.New("fatal input")

// FatalInputError reports a document that is not a recognizable playlist or
// schedule. The run aborts before any output is produced.
type FatalInputError struct {
	Document string // "playlist" or "schedule"
	Reason   string
	Err      error
}

func (e *FatalInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Document, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Document, e.Reason)
}

func (e *FatalInputError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrFatalInput) true for every FatalInputError.
func (e *FatalInputError) Is(target error) bool { return target == ErrFatalInput }

// MalformedEntryError describes a playlist entry that was dropped.
type MalformedEntryError struct {
	Line   int
	Name   string
	Reason string
}

func (e *MalformedEntryError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("line %d (%s): %s", e.Line, e.Name, e.Reason)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// MalformedTimestampError describes a programme that was dropped because its
// start or stop could not be used.
type MalformedTimestampError struct {
	Channel string
	Attr    string // "start" or "stop"
	Value   string
	Err     error
}

func (e *MalformedTimestampError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("programme for %q: %s=%q: %v", e.Channel, e.Attr, e.Value, e.Err)
	}
	return fmt.Sprintf("programme for %q: %s=%q", e.Channel, e.Attr, e.Value)
}

func (e *MalformedTimestampError) Unwrap() error { return e.Err }

// SlotOverlapError reports a group with more channels than the per-group slot
// offset, so its numbers run into the next group's range.
type SlotOverlapError struct {
	Group    string
	Channels int
	Offset   int
}

func (e *SlotOverlapError) Error() string {
	return fmt.Sprintf("group %q has %d channels, more than the slot offset %d", e.Group, e.Channels, e.Offset)
}
