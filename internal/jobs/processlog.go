// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package jobs

import (
	"fmt"
	"os"
	"path/filepath"
)

// OpenProcessLog truncates and opens process.log in dir. The caller tees the
// log stream into it and closes it after the run.
func OpenProcessLog(dir string) (*os.File, error) {
	path := filepath.Join(dir, ProcessLogFile)
	// #nosec G304 -- the output directory is operator configuration
	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open process log: %w", err)
	}
	return f, nil
}
