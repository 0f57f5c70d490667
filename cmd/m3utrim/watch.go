// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/ManuGH/m3utrim/internal/config"
	xglog "github.com/ManuGH/m3utrim/internal/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

const defaultDebounce = 500 * time.Millisecond

func newWatchCmd(a *app) *cobra.Command {
	debounce := defaultDebounce
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run once, then again whenever the config file changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.configPath == "" {
				return configErr(errors.New("watch requires --config"))
			}
			ctx := cmd.Context()
			logger := xglog.WithComponent("cli")

			// A failing run is reported and the watch goes on.
			run := func() {
				if err := a.runOnce(ctx); err != nil {
					logger.Error().Err(err).
						Str(xglog.FieldEvent, "watch.run_failed").
						Bool("config_error", config.IsConfigError(err)).
						Msg("run failed, waiting for the next change")
				}
			}
			if _, err := a.loadConfig(); err != nil {
				return err
			}
			run()
			return watchFile(ctx, a.configPath, debounce, run)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", defaultDebounce, "quiet period after a change before re-running")
	return cmd
}

// watchFile calls onChange, debounced, after each write to path until ctx is
// done. The directory is watched so that editors replacing the file by rename
// are noticed too.
func watchFile(ctx context.Context, path string, debounce time.Duration, onChange func()) error {
	logger := xglog.WithComponent("watch")
	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return runErr(fmt.Errorf("create watcher: %w", err))
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return runErr(fmt.Errorf("watch config directory: %w", err))
	}
	logger.Info().Str(xglog.FieldEvent, "watch.started").Str(xglog.FieldPath, path).Msg("watching config file for changes")

	var (
		mu    sync.Mutex
		timer *time.Timer
		wg    sync.WaitGroup
	)
	// onChange runs on the timer goroutine; runs never overlap.
	var running sync.Mutex
	fire := func() {
		defer wg.Done()
		running.Lock()
		defer running.Unlock()
		if ctx.Err() != nil {
			return
		}
		onChange()
	}
	defer func() {
		mu.Lock()
		if timer != nil && timer.Stop() {
			wg.Done()
		}
		mu.Unlock()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Str(xglog.FieldEvent, "watch.stopped").Msg("config watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug().Str(xglog.FieldEvent, "watch.file_changed").Str("op", event.Op.String()).Msg("config file changed")

			mu.Lock()
			if timer != nil && timer.Stop() {
				wg.Done()
			}
			wg.Add(1)
			timer = time.AfterFunc(debounce, fire)
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error().Err(err).Str(xglog.FieldEvent, "watch.error").Msg("config watcher error")
		}
	}
}
