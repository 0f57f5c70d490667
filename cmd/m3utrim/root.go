// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ManuGH/m3utrim/internal/config"
	"github.com/ManuGH/m3utrim/internal/jobs"
	xglog "github.com/ManuGH/m3utrim/internal/log"
	"github.com/ManuGH/m3utrim/internal/metrics"
	"github.com/ManuGH/m3utrim/internal/version"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// app holds the state shared by all commands of one invocation.
type app struct {
	stdout, stderr io.Writer

	configPath string
	discrete   config.FileConfig
	set        map[string]bool

	runner *jobs.Runner
	now    func() time.Time
	newID  func() string
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout: stdout,
		stderr: stderr,
		runner: jobs.NewRunner(metrics.New()),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "m3utrim",
		Short: "Filter, sort and reconcile an M3U playlist with its XMLTV schedule",
		Long: `m3utrim retrieves an M3U playlist and an XMLTV schedule, keeps the wanted
channels in the wanted order and writes a playlist and a schedule that match.

Configuration comes from a YAML or JSON file (--config), from flags, or from
M3UTRIM_* environment variables. A config file is authoritative: flags that
contradict it are rejected.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.set = changedKeys(cmd.Flags())
			xglog.Configure(xglog.Config{
				Level:   a.discrete.LogLevel,
				Output:  a.stderr,
				Version: version.Version,
			})
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runOnce(cmd.Context())
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return configErr(err)
	})
	bindFlags(root.PersistentFlags(), &a.discrete, &a.configPath)

	root.AddCommand(
		newRunCmd(a),
		newWatchCmd(a),
		newConfigCmd(a),
		newVersionCmd(a),
	)
	return root
}

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Process the playlist and schedule once (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runOnce(cmd.Context())
		},
	}
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(a.stdout, version.String())
			return err
		},
	}
}

func (a *app) loader() *config.Loader {
	return config.NewLoader(a.configPath).WithDiscrete(a.discrete, a.set)
}

func (a *app) loadConfig() (config.Config, error) {
	cfg, err := a.loader().Load()
	if err != nil {
		return config.Config{}, configErr(err)
	}
	return cfg, nil
}

// runOnce loads the configuration and performs one run under a fresh run id.
func (a *app) runOnce(ctx context.Context) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	closeLog, err := a.configureLogging(cfg)
	if err != nil {
		return runErr(err)
	}
	defer closeLog()

	ctx = xglog.ContextWithRunID(ctx, a.newID())
	logger := xglog.WithComponentFromContext(ctx, "cli")
	logger.Info().Str(xglog.FieldEvent, "process.start").
		Str("config", cfg.Source).
		Str(xglog.FieldVersion, version.Version).
		Msg("m3utrim started")

	if _, err := a.runner.Run(ctx, cfg, a.now()); err != nil {
		return runErr(err)
	}
	return nil
}

// configureLogging applies the configured level and, with log_enabled,
// tees the log into process.log. The returned func restores stderr logging.
func (a *app) configureLogging(cfg config.Config) (func(), error) {
	out := a.stderr
	var logFile *os.File
	if cfg.LogEnabled {
		f, err := jobs.OpenProcessLog(cfg.OutDirectory)
		if err != nil {
			return nil, err
		}
		logFile = f
		out = xglog.Tee(a.stderr, f)
	}
	xglog.Configure(xglog.Config{Level: cfg.LogLevel, Output: out, Version: version.Version})

	return func() {
		if logFile == nil {
			return
		}
		xglog.Configure(xglog.Config{Level: cfg.LogLevel, Output: a.stderr, Version: version.Version})
		if err := logFile.Close(); err != nil {
			logger := xglog.WithComponent("cli")
			logger.Warn().Err(err).Msg("close process log")
		}
	}, nil
}
