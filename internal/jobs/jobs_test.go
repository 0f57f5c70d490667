// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package jobs

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/m3utrim/internal/config"
	"github.com/ManuGH/m3utrim/internal/diagnostics"
	"github.com/ManuGH/m3utrim/internal/filter"
	xglog "github.com/ManuGH/m3utrim/internal/log"
	"github.com/ManuGH/m3utrim/internal/metrics"
	"github.com/ManuGH/m3utrim/internal/pipeline"
	"github.com/ManuGH/m3utrim/internal/reconcile"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testPlaylist = `#EXTM3U
#EXTINF:-1 tvg-id="News.uk" group-title="UK",News "24"
http://s/news
#EXTINF:-1 tvg-id="film.uk" group-title="Movies",Film One
http://s/film
#EXTINF:-1 tvg-id="shop.uk" group-title="UK",Shopping
http://s/shop
#EXTINF:-1 group-title="UK",Anonymous
http://s/anon
`

const testSchedule = `<?xml version="1.0" encoding="UTF-8"?>
<tv>
  <channel id="news.uk"><display-name>News</display-name></channel>
  <programme start="20240101010000 +0000" stop="20240101020000 +0000" channel="news.uk"><title>Headlines</title></programme>
</tv>`

var testNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	src string
	out string
	cfg config.Config
}

func newFixture(t *testing.T, gzipSchedule bool) *fixture {
	t.Helper()
	src, out := t.TempDir(), t.TempDir()

	playlistPath := filepath.Join(src, "list.m3u")
	require.NoError(t, os.WriteFile(playlistPath, []byte(testPlaylist), 0o600))

	schedulePath := filepath.Join(src, "guide.xml")
	data := []byte(testSchedule)
	if gzipSchedule {
		schedulePath += ".gz"
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, err := zw.Write(data)
		require.NoError(t, err)
		require.NoError(t, zw.Close())
		data = buf.Bytes()
	}
	require.NoError(t, os.WriteFile(schedulePath, data, 0o600))

	return &fixture{
		src: src,
		out: out,
		cfg: config.Config{
			PlaylistURL: playlistPath,
			ScheduleURL: "file://" + schedulePath,
			Pipeline: pipeline.Options{
				Groups:        []string{"UK"},
				GroupMode:     filter.ModeKeep,
				DiscardNames:  []string{"shopping"},
				RequireID:     true,
				ScheduleOrder: reconcile.OrderPlaylist,
				RangeHours:    24,
				Zone:          time.UTC,
			},
			OutDirectory: out,
			OutFilename:  "trimmed",
			Timeout:      time.Second,
			MaxBytes:     1 << 20,
		},
	}
}

func (f *fixture) read(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.out, name))
	require.NoError(t, err)
	return string(data)
}

func (f *fixture) files(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.out)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestRun_WritesOutputs(t *testing.T) {
	fx := newFixture(t, false)
	fx.cfg.Pipeline.SynthesizeOnMiss = true
	// Include wins over the group policy; its id has no schedule match.
	fx.cfg.Pipeline.IncludeNames = []string{"Film One"}

	ctx := xglog.ContextWithRunID(context.Background(), "run-1")
	st, err := Run(ctx, fx.cfg, testNow)
	require.NoError(t, err)

	assert.Equal(t, "run-1", st.RunID)
	assert.Equal(t, testNow, st.LastRun)
	assert.Equal(t, 3, st.Parsed)
	assert.Equal(t, 2, st.Channels)
	assert.Equal(t, 1, st.Discarded)
	assert.Equal(t, 1, st.MissingID)
	assert.Equal(t, 1, st.NoSchedule)
	assert.Equal(t, 2, st.Programmes)
	assert.Len(t, st.Files, 5)

	assert.Equal(t, []string{
		"no_epg_channels.txt",
		"original.channels.txt",
		"trimmed.channels.txt",
		"trimmed.m3u8",
		"trimmed.xml",
	}, fx.files(t))

	assert.Equal(t, "\"News \"\"24\"\"\",\"UK\"\n\"Film One\",\"Movies\"\n\"Shopping\",\"UK\"\n", fx.read(t, OriginalChannelsFile))
	assert.Equal(t, "\"News \"\"24\"\"\",\"UK\"\n\"Film One\",\"Movies\"\n", fx.read(t, "trimmed.channels.txt"))
	assert.Equal(t, "\"Film One\",\"film.uk\"\n", fx.read(t, NoScheduleFile))

	playlist := fx.read(t, "trimmed.m3u8")
	assert.True(t, strings.HasPrefix(playlist, "#EXTM3U"))
	assert.Contains(t, playlist, `tvg-id="news.uk"`)
	assert.NotContains(t, playlist, "Shopping")
	assert.NotContains(t, playlist, "Anonymous")
	assert.NotContains(t, playlist, "tvh-chnum")

	schedule := fx.read(t, "trimmed.xml")
	assert.Contains(t, schedule, `<!DOCTYPE tv SYSTEM "xmltv.dtd">`)
	assert.Contains(t, schedule, "Headlines")
	assert.Contains(t, schedule, `channel="film.uk"`)
}

func TestRun_KeepOriginals(t *testing.T) {
	fx := newFixture(t, true)
	fx.cfg.KeepOriginals = true
	fx.cfg.MetricsTextfile = filepath.Join(fx.src, "m3utrim.prom")

	rec := metrics.New()
	st, err := NewRunner(rec).Run(context.Background(), fx.cfg, testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Programmes)

	assert.Equal(t, testPlaylist, fx.read(t, OriginalPlaylistFile))
	raw := fx.read(t, OriginalScheduleFile+".gz")
	assert.True(t, strings.HasPrefix(raw, "\x1f\x8b"))
	assert.NotContains(t, fx.files(t), NoScheduleFile)

	prom, err := os.ReadFile(fx.cfg.MetricsTextfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `m3utrim_runs_total{outcome="success"} 1`)
	assert.Contains(t, string(prom), "m3utrim_channels_retained 1")
}

func TestRun_SkipSchedule(t *testing.T) {
	fx := newFixture(t, false)
	fx.cfg.ScheduleURL = filepath.Join(fx.src, "does-not-exist.xml")
	fx.cfg.Pipeline.SkipSchedule = true

	st, err := Run(context.Background(), fx.cfg, testNow)
	require.NoError(t, err)
	assert.Zero(t, st.Programmes)
	assert.NotContains(t, fx.files(t), "trimmed.xml")
	assert.NotContains(t, fx.files(t), NoScheduleFile)
}

func TestRun_Failures(t *testing.T) {
	t.Run("fetch", func(t *testing.T) {
		fx := newFixture(t, false)
		fx.cfg.ScheduleURL = filepath.Join(fx.src, "missing.xml")

		_, err := Run(context.Background(), fx.cfg, testNow)
		var se *StageError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, StageFetch, se.Stage)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.Empty(t, fx.files(t))
	})

	t.Run("process", func(t *testing.T) {
		fx := newFixture(t, false)
		require.NoError(t, os.WriteFile(fx.cfg.PlaylistURL, []byte("not a playlist"), 0o600))

		_, err := Run(context.Background(), fx.cfg, testNow)
		var se *StageError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, StageProcess, se.Stage)
		assert.ErrorIs(t, err, diagnostics.ErrFatalInput)
	})

	t.Run("write", func(t *testing.T) {
		fx := newFixture(t, false)
		fx.cfg.OutDirectory = filepath.Join(fx.out, "gone")

		_, err := Run(context.Background(), fx.cfg, testNow)
		var se *StageError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, StageWrite, se.Stage)
	})

	t.Run("metrics", func(t *testing.T) {
		fx := newFixture(t, false)
		fx.cfg.MetricsTextfile = filepath.Join(fx.src, "nodir", "m.prom")

		st, err := Run(context.Background(), fx.cfg, testNow)
		var se *StageError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, StageMetrics, se.Stage)
		require.NotNil(t, st)
		assert.Contains(t, fx.files(t), "trimmed.m3u8")
	})
}

func TestRun_Canceled(t *testing.T) {
	fx := newFixture(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, fx.cfg, testNow)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenProcessLog(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProcessLogFile), []byte("stale\n"), 0o600))

	f, err := OpenProcessLog(dir)
	require.NoError(t, err)
	_, err = f.WriteString("fresh\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(filepath.Join(dir, ProcessLogFile))
	require.NoError(t, err)
	assert.Equal(t, "fresh\n", string(data))

	_, err = OpenProcessLog(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `""`, quote(""))
	assert.Equal(t, `"a ""b"""`, quote(`a "b"`))
}
