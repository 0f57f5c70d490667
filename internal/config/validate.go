// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ManuGH/m3utrim/internal/filter"
	"github.com/ManuGH/m3utrim/internal/pipeline"
	"github.com/ManuGH/m3utrim/internal/reconcile"
	"github.com/rs/zerolog"
)

// ValidationError collects every problem found in a configuration.
type ValidationError struct {
	Problems []error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		msgs = append(msgs, p.Error())
	}
	return "invalid configuration: " + strings.Join(msgs, "; ")
}

// Unwrap exposes the individual problems to errors.Is/As.
func (e *ValidationError) Unwrap() []error { return e.Problems }

// Validate reports whether f describes a runnable configuration.
func Validate(f FileConfig) error {
	_, err := Build(f)
	return err
}

// Build validates f and converts it into a Config.
func Build(f FileConfig) (Config, error) {
	var problems []error
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(f.M3UURL) == "" {
		add("m3uurl is mandatory")
	}
	if !f.NoEPG && strings.TrimSpace(f.EPGURL) == "" {
		add("epgurl is mandatory unless no_epg is set")
	}
	if len(f.Groups) == 0 {
		add("groups is mandatory")
	}

	outDir, err := expandHome(f.OutDirectory)
	switch {
	case strings.TrimSpace(f.OutDirectory) == "":
		add("outdirectory is mandatory")
	case err != nil:
		add("outdirectory: %v", err)
	default:
		if st, err := os.Stat(outDir); err != nil {
			add("outdirectory %s does not exist", outDir)
		} else if !st.IsDir() {
			add("outdirectory %s is not a directory", outDir)
		}
	}
	if f.OutFilename == "" {
		add("outfilename is mandatory")
	} else if strings.ContainsAny(f.OutFilename, `/\`) {
		add("outfilename %q must not contain path separators", f.OutFilename)
	}

	mode, err := filter.ParseMode(f.GroupMode)
	if err != nil {
		problems = append(problems, err)
	}
	order, err := reconcile.ParseOrderPolicy(f.XMLSortType)
	if err != nil {
		problems = append(problems, err)
	}

	zone := time.Local
	if f.Timezone != "" {
		if zone, err = time.LoadLocation(f.Timezone); err != nil {
			add("timezone %q: %v", f.Timezone, err)
		}
	}

	rangeHours := DefaultRangeHours
	if f.Range != nil {
		rangeHours = *f.Range
	}
	if rangeHours < 0 {
		add("range must not be negative")
	}
	if f.TVHStart < 0 || f.TVHOffset < 0 {
		add("tvh_start and tvh_offset must not be negative")
	}
	if f.Timeout < 0 {
		add("timeout must not be negative")
	}
	if f.MaxBytes < 0 {
		add("max_bytes must not be negative")
	}
	if f.LogLevel != "" {
		if _, err := zerolog.ParseLevel(f.LogLevel); err != nil {
			add("log_level %q: %v", f.LogLevel, err)
		}
	}

	opts := pipeline.Options{
		Groups:               f.Groups,
		GroupMode:            mode,
		IncludeNames:         f.IncludeChannels,
		DiscardNames:         f.DiscardChannels,
		IncludeURLs:          f.IncludeURLs,
		DiscardURLs:          f.DiscardURLs,
		SortNames:            f.SortChannels,
		IDTransforms:         replacements(f.IDTransforms),
		GroupTransforms:      replacements(f.GroupTransforms),
		NameTransforms:       replacements(f.ChannelTransforms),
		RequireID:            !f.NoTVGID,
		SkipSchedule:         f.NoEPG,
		DisableSort:          f.NoSort,
		SynthesizeOnMiss:     f.ForceEPG,
		PreserveCase:         f.PreserveCase,
		RestrictImageSources: f.HTTPForImages,
		SlotStart:            f.TVHStart,
		SlotOffset:           f.TVHOffset,
		ScheduleOrder:        order,
		RangeHours:           rangeHours,
		Zone:                 zone,
	}
	if len(problems) == 0 {
		if _, err := pipeline.Compile(opts); err != nil {
			problems = append(problems, err)
		}
	}

	if len(problems) > 0 {
		return Config{}, &ValidationError{Problems: problems}
	}

	return Config{
		PlaylistURL:     f.M3UURL,
		ScheduleURL:     f.EPGURL,
		RequestHeaders:  f.RequestHeaders,
		Pipeline:        opts,
		OutDirectory:    outDir,
		OutFilename:     f.OutFilename,
		LogEnabled:      f.LogEnabled,
		KeepOriginals:   f.KeepOriginals,
		MetricsTextfile: f.MetricsTextfile,
		LogLevel:        f.LogLevel,
		Timeout:         f.Timeout,
		MaxBytes:        f.MaxBytes,
	}, nil
}

func replacements(p Pairs) []filter.Replacement {
	if len(p) == 0 {
		return nil
	}
	out := make([]filter.Replacement, 0, len(p))
	for _, e := range p {
		out = append(out, filter.Replacement{From: e.Key, To: e.Value})
	}
	return out
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}

// IsConfigError reports whether err comes from loading or validating configuration.
func IsConfigError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) || errors.Is(err, ErrConflict) || errors.Is(err, ErrUnknownConfigField)
}
