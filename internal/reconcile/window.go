// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package reconcile

import "time"

// Window is the inclusion interval for programme start instants:
// [Start, Start+Hours], both ends included.
type Window struct {
	Start time.Time
	Hours int
}

// NewWindow returns the window starting at now, or nil when hours is not
// positive (no restriction).
func NewWindow(now time.Time, hours int) *Window {
	if hours <= 0 {
		return nil
	}
	return &Window{Start: now, Hours: hours}
}

// End returns the upper bound.
func (w *Window) End() time.Time {
	return w.Start.Add(time.Duration(w.Hours) * time.Hour)
}

// Contains reports whether t lies in the window. A nil window contains every instant.
func (w *Window) Contains(t time.Time) bool {
	if w == nil {
		return true
	}
	return !t.Before(w.Start) && !t.After(w.End())
}
