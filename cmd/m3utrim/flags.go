// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"strconv"
	"strings"

	"github.com/ManuGH/m3utrim/internal/config"
	"github.com/spf13/pflag"
)

// Flags that select the config file rather than set a config key.
const (
	flagConfig  = "config"
	flagJSONCfg = "json_cfg"
)

// listValue accepts "a,b" or the quoted "'a','b'" form.
type listValue struct{ dst *[]string }

func (v listValue) String() string {
	if v.dst == nil {
		return ""
	}
	return strings.Join(*v.dst, ",")
}

func (v listValue) Set(s string) error {
	list, err := config.SplitList(s)
	if err != nil {
		return err
	}
	*v.dst = list
	return nil
}

func (listValue) Type() string { return "list" }

// pairsValue accepts a JSON array of single-entry objects or a JSON object.
type pairsValue struct {
	dst *config.Pairs
	key string
}

func (v pairsValue) String() string {
	if v.dst == nil || len(*v.dst) == 0 {
		return ""
	}
	parts := make([]string, 0, len(*v.dst))
	for _, p := range *v.dst {
		parts = append(parts, p.Key+"="+p.Value)
	}
	return strings.Join(parts, ",")
}

func (v pairsValue) Set(s string) error {
	p, err := config.ParsePairs(s, v.key)
	if err != nil {
		return err
	}
	*v.dst = p
	return nil
}

func (pairsValue) Type() string { return "json" }

// optionalInt distinguishes "not given" from zero.
type optionalInt struct{ dst **int }

func (v optionalInt) String() string {
	if v.dst == nil || *v.dst == nil {
		return ""
	}
	return strconv.Itoa(**v.dst)
}

func (v optionalInt) Set(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*v.dst = &n
	return nil
}

func (optionalInt) Type() string { return "int" }

// bindFlags registers one flag per config key, named like the key. Single
// letter shorthands follow the historic command line.
func bindFlags(fs *pflag.FlagSet, fc *config.FileConfig, configPath *string) {
	fs.StringVarP(configPath, flagConfig, "c", "", "YAML or JSON configuration file; when given, it is authoritative")
	fs.StringVarP(configPath, flagJSONCfg, "j", "", "JSON configuration file (alias of --config)")

	fs.StringVarP(&fc.M3UURL, "m3uurl", "m", "", "playlist location (http(s)://, file:// or path)")
	fs.StringVarP(&fc.EPGURL, "epgurl", "e", "", "schedule location (http(s)://, file:// or path)")
	fs.Var(pairsValue{&fc.RequestHeaders, "request_headers"}, "request_headers", "HTTP headers sent with both requests, as JSON")

	fs.VarP(listValue{&fc.Groups}, "groups", "g", "channel groups to keep or discard")
	fs.StringVar(&fc.GroupMode, "groupmode", "", `"keep" or "discard" for --groups (default "keep")`)
	fs.Var(listValue{&fc.DiscardChannels}, "discard_channels", "channel name patterns to discard")
	fs.Var(listValue{&fc.IncludeChannels}, "include_channels", "channel name patterns always kept")
	fs.Var(listValue{&fc.DiscardURLs}, "discard_urls", "stream URL patterns to discard")
	fs.Var(listValue{&fc.IncludeURLs}, "include_urls", "stream URL patterns always kept")

	fs.Var(pairsValue{&fc.IDTransforms, "id_transforms"}, "id_transforms", "channel name to tvg-id overrides, as JSON")
	fs.Var(pairsValue{&fc.GroupTransforms, "group_transforms"}, "group_transforms", "group renames, as JSON")
	fs.Var(pairsValue{&fc.ChannelTransforms, "channel_transforms"}, "channel_transforms", "channel renames, as JSON")

	fs.VarP(optionalInt{&fc.Range}, "range", "r", "schedule window in hours (default 168)")
	fs.VarP(listValue{&fc.SortChannels}, "sortchannels", "s", "channel name patterns in priority order")
	fs.StringVar(&fc.XMLSortType, "xml_sort_type", "", `schedule channel order: "none", "alpha" or "m3u"`)
	fs.IntVar(&fc.TVHStart, "tvh_start", 0, "first channel number")
	fs.IntVarP(&fc.TVHOffset, "tvh_offset", "t", 0, "channel number offset per group")

	fs.BoolVar(&fc.NoTVGID, "no_tvg_id", false, "keep channels without tvg-id")
	fs.BoolVar(&fc.NoEPG, "no_epg", false, "skip schedule retrieval and generation")
	fs.BoolVar(&fc.ForceEPG, "force_epg", false, "add placeholder programmes for channels without schedule data")
	fs.BoolVar(&fc.NoSort, "no_sort", false, "keep source channel order")
	fs.BoolVar(&fc.HTTPForImages, "http_for_images", false, "drop non-http image sources")
	fs.BoolVar(&fc.PreserveCase, "preserve_case", false, "keep identifier case")

	fs.StringVarP(&fc.OutDirectory, "outdirectory", "d", "", "output directory")
	fs.StringVarP(&fc.OutFilename, "outfilename", "f", "", "output file name without extension")
	fs.BoolVarP(&fc.LogEnabled, "log_enabled", "l", false, "also write the log to process.log in the output directory")
	fs.StringVar(&fc.Timezone, "timezone", "", "IANA zone for schedule times without offset (default local)")
	fs.BoolVar(&fc.KeepOriginals, "keep_originals", false, "store the retrieved source documents")
	fs.StringVar(&fc.MetricsTextfile, "metrics_textfile", "", "write Prometheus metrics to this file")
	fs.StringVar(&fc.LogLevel, "log_level", "", "log level (default info)")
	fs.DurationVar(&fc.Timeout, "timeout", 0, "HTTP request timeout (default 60s)")
	fs.Int64Var(&fc.MaxBytes, "max_bytes", 0, "size limit per document (default 512MiB)")
}

// changedKeys names the config keys given explicitly on the command line.
func changedKeys(fs *pflag.FlagSet) map[string]bool {
	set := map[string]bool{}
	fs.Visit(func(f *pflag.Flag) {
		if f.Name == flagConfig || f.Name == flagJSONCfg {
			return
		}
		set[f.Name] = true
	})
	return set
}
