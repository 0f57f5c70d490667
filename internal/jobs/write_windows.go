// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

//go:build windows

package jobs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	xglog "github.com/ManuGH/m3utrim/internal/log"
)

// writeAtomic writes through a temp file in the target directory and renames
// it into place. Windows offers no fsync-then-rename guarantee, so this is
// best effort.
func writeAtomic(ctx context.Context, path string, write func(io.Writer) error) error {
	logger := xglog.WithComponentFromContext(ctx, "jobs")

	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".m3utrim-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if tmpFile != nil {
			_ = tmpFile.Close()
			if err := os.Remove(tmpPath); err != nil {
				logger.Debug().Err(err).Str(xglog.FieldPath, tmpPath).Msg("remove temp file")
			}
		}
	}()

	if err := write(tmpFile); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	tmpFile = nil

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}
