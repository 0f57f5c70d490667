// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package version

import "fmt"

var (
	// Version is the current application version.
	// It is populated by the build system (ldflags).
	Version = "v0.1.0-dev"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// UserAgent is sent with every HTTP request.
func UserAgent() string {
	return "m3utrim/" + Version
}

// String returns a one-line build description.
func String() string {
	return fmt.Sprintf("m3utrim %s (commit %s, built %s)", Version, Commit, Date)
}
