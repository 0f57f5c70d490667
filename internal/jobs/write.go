// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package jobs

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ManuGH/m3utrim/internal/config"
	"github.com/ManuGH/m3utrim/internal/diagnostics"
	"github.com/ManuGH/m3utrim/internal/epg"
	"github.com/ManuGH/m3utrim/internal/fetch"
	xglog "github.com/ManuGH/m3utrim/internal/log"
	"github.com/ManuGH/m3utrim/internal/m3u"
	"github.com/ManuGH/m3utrim/internal/pipeline"
)

// Fixed output file names inside the output directory.
const (
	OriginalChannelsFile = "original.channels.txt"
	NoScheduleFile       = "no_epg_channels.txt"
	OriginalPlaylistFile = "original.m3u8"
	OriginalScheduleFile = "original.xml"
	ProcessLogFile       = "process.log"
)

type output struct {
	name  string
	write func(io.Writer) error
}

// writeOutputs writes every output file of res and returns their paths.
func writeOutputs(ctx context.Context, cfg config.Config, res *pipeline.Result, playlistDoc, scheduleDoc *fetch.Document) ([]string, error) {
	var outs []output
	if cfg.KeepOriginals {
		outs = append(outs, output{OriginalPlaylistFile, rawWriter(playlistDoc.Raw)})
		if scheduleDoc != nil {
			name := OriginalScheduleFile
			if scheduleDoc.Gzipped {
				name += ".gz"
			}
			outs = append(outs, output{name, rawWriter(scheduleDoc.Raw)})
		}
	}
	outs = append(outs,
		output{OriginalChannelsFile, func(w io.Writer) error {
			return writeNameGroups(w, res.Report.AllParsed)
		}},
		output{cfg.OutFilename + ".m3u8", func(w io.Writer) error {
			return m3u.Write(w, res.Playlist, m3u.WriteOptions{Slots: res.Numbered})
		}},
		output{cfg.OutFilename + ".channels.txt", func(w io.Writer) error {
			return writeNameGroups(w, res.Report.Retained)
		}},
	)
	if res.Schedule != nil {
		outs = append(outs, output{cfg.OutFilename + ".xml", func(w io.Writer) error {
			return epg.Write(w, res.Schedule)
		}})
	}
	if len(res.Report.NoSchedule) > 0 {
		outs = append(outs, output{NoScheduleFile, func(w io.Writer) error {
			return writeNameIDs(w, res.Report.NoSchedule)
		}})
	}

	logger := xglog.WithComponentFromContext(ctx, "jobs")
	files := make([]string, 0, len(outs))
	for _, o := range outs {
		if err := ctx.Err(); err != nil {
			return files, err
		}
		path := filepath.Join(cfg.OutDirectory, o.name)
		if err := writeAtomic(ctx, path, o.write); err != nil {
			return files, fmt.Errorf("%s: %w", o.name, err)
		}
		logger.Debug().Str(xglog.FieldEvent, "file.written").Str(xglog.FieldPath, path).Msg("wrote output file")
		files = append(files, path)
	}
	return files, nil
}

func rawWriter(data []byte) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	}
}

// writeNameGroups writes one `"name","group"` line per channel.
func writeNameGroups(w io.Writer, items []diagnostics.NameGroup) error {
	bw := bufio.NewWriter(w)
	for _, it := range items {
		writeQuotedPair(bw, it.Name, it.Group)
	}
	return bw.Flush()
}

// writeNameIDs writes one `"name","id"` line per channel.
func writeNameIDs(w io.Writer, items []diagnostics.NameID) error {
	bw := bufio.NewWriter(w)
	for _, it := range items {
		writeQuotedPair(bw, it.Name, it.ID)
	}
	return bw.Flush()
}

// writeQuotedPair always quotes both fields, doubling embedded quotes.
func writeQuotedPair(bw *bufio.Writer, a, b string) {
	_, _ = bw.WriteString(quote(a) + "," + quote(b) + "\n")
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
