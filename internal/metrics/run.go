// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package metrics exposes run statistics as Prometheus collectors on a
// dedicated registry. A one-shot run has no scrape endpoint, so the registry
// is written to a node_exporter textfile instead.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "m3utrim"

// Outcome labels for run results.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Recorder holds the collectors of one process.
type Recorder struct {
	reg *prometheus.Registry

	runs              *prometheus.CounterVec
	runFailures       *prometheus.CounterVec
	runDuration       prometheus.Histogram
	lastSuccess       prometheus.Gauge
	channelsParsed    prometheus.Gauge
	channelsRetained  prometheus.Gauge
	channelsDiscarded *prometheus.GaugeVec
	channelsNoEPG     prometheus.Gauge
	programmes        prometheus.Gauge
	problems          *prometheus.GaugeVec
	documentBytes     *prometheus.GaugeVec
}

// New registers all collectors on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		reg: reg,
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of runs by outcome",
		}, []string{"outcome"}), // outcome=success|failure
		runFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_failures_total",
			Help:      "Total number of failed runs by stage",
		}, []string{"stage"}), // stage=fetch|process|write
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete run",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		lastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		}),
		channelsParsed: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channels_parsed",
			Help:      "Channels parsed from the source playlist (last run)",
		}),
		channelsRetained: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channels_retained",
			Help:      "Channels written to the playlist (last run)",
		}),
		channelsDiscarded: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channels_discarded",
			Help:      "Channels removed by the filter, by rule (last run)",
		}, []string{"rule"}),
		channelsNoEPG: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channels_without_schedule",
			Help:      "Retained channels without a schedule match (last run)",
		}),
		programmes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "programmes_written",
			Help:      "Programmes written to the schedule (last run)",
		}),
		problems: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "problems",
			Help:      "Recovered per-record problems by kind (last run)",
		}, []string{"kind"}),
		documentBytes: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "document_bytes",
			Help:      "Decompressed size of the source documents (last run)",
		}, []string{"document"}), // document=playlist|schedule
	}
}

// Registry returns the registry the collectors live on.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// Stats are the figures of one completed run.
type Stats struct {
	Parsed     int
	Retained   int
	Discarded  map[string]int
	MissingID  int
	NoSchedule int
	Programmes int
	Problems   map[string]int
}

// RecordStats replaces the last-run gauges with s.
func (r *Recorder) RecordStats(s Stats) {
	r.channelsParsed.Set(float64(s.Parsed))
	r.channelsRetained.Set(float64(s.Retained))
	r.channelsNoEPG.Set(float64(s.NoSchedule))
	r.programmes.Set(float64(s.Programmes))

	r.channelsDiscarded.Reset()
	for rule, n := range s.Discarded {
		r.channelsDiscarded.WithLabelValues(rule).Set(float64(n))
	}
	if s.MissingID > 0 {
		r.channelsDiscarded.WithLabelValues("missing_id").Set(float64(s.MissingID))
	}
	r.problems.Reset()
	for kind, n := range s.Problems {
		r.problems.WithLabelValues(kind).Set(float64(n))
	}
}

// RecordDocument records the decompressed size of a source document.
func (r *Recorder) RecordDocument(document string, size int) {
	r.documentBytes.WithLabelValues(document).Set(float64(size))
}

// RecordSuccess counts a successful run finished at now.
func (r *Recorder) RecordSuccess(d time.Duration, now time.Time) {
	r.runs.WithLabelValues(OutcomeSuccess).Inc()
	r.runDuration.Observe(d.Seconds())
	r.lastSuccess.Set(float64(now.Unix()))
}

// RecordFailure counts a run that failed in stage.
func (r *Recorder) RecordFailure(stage string, d time.Duration) {
	r.runs.WithLabelValues(OutcomeFailure).Inc()
	r.runFailures.WithLabelValues(stage).Inc()
	r.runDuration.Observe(d.Seconds())
}

// WriteTextfile writes the registry in the text exposition format to path,
// atomically, for the node_exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
