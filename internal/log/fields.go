// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldService   = "service"
	FieldVersion   = "version"
	FieldRunID     = "run_id"
	FieldComponent = "component"
	FieldEvent     = "event"

	// Document fields
	FieldURL      = "url"
	FieldPath     = "path"
	FieldBytes    = "bytes"
	FieldGzip     = "gzip"
	FieldChannels = "channels"
	FieldLine     = "line"

	// Pipeline fields
	FieldRetained   = "retained"
	FieldDiscarded  = "discarded"
	FieldNoSchedule = "no_schedule"
	FieldProgrammes = "programmes"
	FieldProblems   = "problems"
	FieldRule       = "rule"
	FieldDuration   = "duration"
)
