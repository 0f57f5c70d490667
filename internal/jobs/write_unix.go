// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

//go:build !windows

package jobs

import (
	"context"
	"fmt"
	"io"

	xglog "github.com/ManuGH/m3utrim/internal/log"
	"github.com/google/renameio/v2"
)

// writeAtomic writes a file with full durability guarantees using renameio:
// fsync before rename, so readers see either the old or the new file.
func writeAtomic(ctx context.Context, path string, write func(io.Writer) error) error {
	logger := xglog.WithComponentFromContext(ctx, "jobs")

	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer func() {
		// no-op once committed
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Str(xglog.FieldPath, path).Msg("cleanup pending file")
		}
	}()

	if err := write(pendingFile); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace file: %w", err)
	}
	return nil
}
