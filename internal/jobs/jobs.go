// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package jobs runs one complete trim cycle: fetch the source documents,
// process them and write the output files.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/m3utrim/internal/config"
	"github.com/ManuGH/m3utrim/internal/fetch"
	xglog "github.com/ManuGH/m3utrim/internal/log"
	"github.com/ManuGH/m3utrim/internal/metrics"
	"github.com/ManuGH/m3utrim/internal/pipeline"
	"github.com/ManuGH/m3utrim/internal/version"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Run stages, used for errors and metrics.
const (
	StageFetch   = "fetch"
	StageProcess = "process"
	StageWrite   = "write"
	StageMetrics = "metrics"
)

// StageError wraps the failure of one run stage.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }
func (e *StageError) Unwrap() error { return e.Err }

// Status summarises a completed run.
type Status struct {
	RunID      string        `json:"run_id,omitempty"`
	LastRun    time.Time     `json:"last_run"`
	Duration   time.Duration `json:"duration"`
	Parsed     int           `json:"parsed"`
	Channels   int           `json:"channels"`
	Discarded  int           `json:"discarded"`
	MissingID  int           `json:"missing_id"`
	NoSchedule int           `json:"no_schedule"`
	Programmes int           `json:"programmes"`
	Problems   int           `json:"problems"`
	Files      []string      `json:"files"`
}

// Runner executes runs and keeps metrics across them.
type Runner struct {
	metrics *metrics.Recorder
	since   func(time.Time) time.Duration
}

// NewRunner returns a Runner recording into rec. A nil rec gets a fresh recorder.
func NewRunner(rec *metrics.Recorder) *Runner {
	if rec == nil {
		rec = metrics.New()
	}
	return &Runner{metrics: rec, since: time.Since}
}

// Run performs a single run with a fresh Runner.
func Run(ctx context.Context, cfg config.Config, now time.Time) (*Status, error) {
	return NewRunner(nil).Run(ctx, cfg, now)
}

// Run fetches, processes and writes. now anchors the schedule window.
func (r *Runner) Run(ctx context.Context, cfg config.Config, now time.Time) (*Status, error) {
	logger := xglog.WithComponentFromContext(ctx, "jobs")
	start := time.Now()
	logger.Info().Str(xglog.FieldEvent, "run.start").
		Str("m3uurl", cfg.PlaylistURL).
		Str("epgurl", cfg.ScheduleURL).
		Msg("starting run")

	st, err := r.run(ctx, logger, cfg, now)
	elapsed := r.since(start)
	if err != nil {
		stage := StageProcess
		var se *StageError
		if errors.As(err, &se) {
			stage = se.Stage
		}
		r.metrics.RecordFailure(stage, elapsed)
		_ = r.flushMetrics(logger, cfg)
		logger.Error().Err(err).Str(xglog.FieldEvent, "run.failed").Str("stage", stage).Msg("run failed")
		return nil, err
	}

	st.RunID = xglog.RunIDFromContext(ctx)
	st.LastRun = now
	st.Duration = elapsed
	r.metrics.RecordSuccess(elapsed, now)
	if err := r.flushMetrics(logger, cfg); err != nil {
		return st, &StageError{Stage: StageMetrics, Err: err}
	}

	minutes, seconds := int(elapsed.Minutes()), int(elapsed.Seconds())%60
	logger.Info().Str(xglog.FieldEvent, "run.done").
		Int(xglog.FieldChannels, st.Channels).
		Int(xglog.FieldDiscarded, st.Discarded).
		Int(xglog.FieldNoSchedule, st.NoSchedule).
		Int(xglog.FieldProgrammes, st.Programmes).
		Dur(xglog.FieldDuration, elapsed).
		Msgf("runtime: %d minutes %d seconds", minutes, seconds)
	return st, nil
}

func (r *Runner) run(ctx context.Context, logger zerolog.Logger, cfg config.Config, now time.Time) (*Status, error) {
	playlistDoc, scheduleDoc, err := fetchSources(ctx, cfg)
	if err != nil {
		return nil, &StageError{Stage: StageFetch, Err: err}
	}
	r.metrics.RecordDocument("playlist", len(playlistDoc.Data))
	in := pipeline.Input{Playlist: playlistDoc.Data, Now: now}
	if scheduleDoc != nil {
		r.metrics.RecordDocument("schedule", len(scheduleDoc.Data))
		in.Schedule = scheduleDoc.Data
	}

	res, err := pipeline.Run(in, cfg.Pipeline)
	if err != nil {
		return nil, &StageError{Stage: StageProcess, Err: err}
	}
	logProblems(logger, res)

	files, err := writeOutputs(ctx, cfg, res, playlistDoc, scheduleDoc)
	if err != nil {
		return nil, &StageError{Stage: StageWrite, Err: err}
	}

	st := &Status{
		Parsed:     len(res.Report.AllParsed),
		Channels:   len(res.Playlist.Channels),
		Discarded:  len(res.Report.Discarded),
		MissingID:  res.MissingID,
		NoSchedule: len(res.Report.NoSchedule),
		Problems:   res.Report.Problems.Len(),
		Files:      files,
	}
	if res.Schedule != nil {
		st.Programmes = len(res.Schedule.Programmes)
	}

	byRule := map[string]int{}
	for _, d := range res.Report.Discarded {
		byRule[d.Rule]++
	}
	r.metrics.RecordStats(metrics.Stats{
		Parsed:     st.Parsed,
		Retained:   st.Channels,
		Discarded:  byRule,
		MissingID:  st.MissingID,
		NoSchedule: st.NoSchedule,
		Programmes: st.Programmes,
		Problems:   res.Report.Problems.CountByKind(),
	})
	return st, nil
}

// fetchSources retrieves both documents concurrently. The schedule is nil
// when schedule processing is disabled.
func fetchSources(ctx context.Context, cfg config.Config) (*fetch.Document, *fetch.Document, error) {
	headers := make([]fetch.Header, 0, len(cfg.RequestHeaders))
	for _, p := range cfg.RequestHeaders {
		headers = append(headers, fetch.Header{Name: p.Key, Value: p.Value})
	}
	f := fetch.New(fetch.Options{
		Timeout:   cfg.Timeout,
		MaxBytes:  cfg.MaxBytes,
		Headers:   headers,
		UserAgent: version.UserAgent(),
	})
	defer f.CloseIdleConnections()

	var playlistDoc, scheduleDoc *fetch.Document
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		doc, err := fetchLogged(gctx, f, "playlist", cfg.PlaylistURL)
		if err != nil {
			return fmt.Errorf("playlist: %w", err)
		}
		playlistDoc = doc
		return nil
	})
	if !cfg.Pipeline.SkipSchedule {
		g.Go(func() error {
			doc, err := fetchLogged(gctx, f, "schedule", cfg.ScheduleURL)
			if err != nil {
				return fmt.Errorf("schedule: %w", err)
			}
			scheduleDoc = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return playlistDoc, scheduleDoc, nil
}

func fetchLogged(ctx context.Context, f *fetch.Fetcher, document, location string) (*fetch.Document, error) {
	logger := xglog.WithComponentFromContext(ctx, "fetch")
	started := time.Now()
	doc, err := f.Fetch(ctx, location)
	if err != nil {
		return nil, err
	}
	logger.Info().Str(xglog.FieldEvent, "fetch.done").
		Str("document", document).
		Str(xglog.FieldURL, location).
		Int(xglog.FieldBytes, len(doc.Data)).
		Bool(xglog.FieldGzip, doc.Gzipped).
		Dur(xglog.FieldDuration, time.Since(started)).
		Msg("document retrieved")
	if doc.DeclaredGzip && !doc.Gzipped {
		logger.Debug().Str(xglog.FieldURL, location).Msg("declared gzip but received plain content")
	}
	return doc, nil
}

func logProblems(logger zerolog.Logger, res *pipeline.Result) {
	for _, p := range res.Report.Problems.Items() {
		logger.Warn().Err(p.Err).Str(xglog.FieldEvent, "record.skipped").Str("kind", p.Kind).Msg("recovered problem")
	}
	for _, d := range res.Report.Discarded {
		logger.Debug().Str(xglog.FieldEvent, "channel.discarded").Str("name", d.Name).Str(xglog.FieldRule, d.Rule).Msg("channel discarded")
	}
	for _, n := range res.Report.NoSchedule {
		logger.Debug().Str(xglog.FieldEvent, "channel.no_schedule").Str("name", n.Name).Str("id", n.ID).Msg("no schedule match")
	}
	if res.MissingID > 0 {
		logger.Info().Int("missing_id", res.MissingID).Msg("channels without identifier dropped")
	}
	logger.Info().Str(xglog.FieldEvent, "pipeline.done").
		Int(xglog.FieldChannels, len(res.Report.AllParsed)).
		Int(xglog.FieldRetained, len(res.Report.Retained)).
		Int(xglog.FieldDiscarded, len(res.Report.Discarded)).
		Int(xglog.FieldNoSchedule, len(res.Report.NoSchedule)).
		Int(xglog.FieldProblems, res.Report.Problems.Len()).
		Msg("processing complete")
}

func (r *Runner) flushMetrics(logger zerolog.Logger, cfg config.Config) error {
	if cfg.MetricsTextfile == "" {
		return nil
	}
	if err := r.metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
		logger.Error().Err(err).Str(xglog.FieldPath, cfg.MetricsTextfile).Msg("write metrics textfile")
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
