// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config loads, resolves and validates run configuration.
package config

import (
	"fmt"
	"time"

	"github.com/ManuGH/m3utrim/internal/pipeline"
	"gopkg.in/yaml.v3"
)

// Defaults applied when neither file nor flags set a value.
const (
	DefaultGroupMode   = "keep"
	DefaultRangeHours  = 168
	DefaultXMLSortType = "none"
	DefaultTimeout     = 60 * time.Second
	DefaultMaxBytes    = 512 << 20
	DefaultLogLevel    = "info"
)

// FileConfig is the structured configuration document (YAML or JSON).
// Discrete fields from flags and environment use the same shape.
type FileConfig struct {
	M3UURL         string `yaml:"m3uurl"`
	EPGURL         string `yaml:"epgurl"`
	RequestHeaders Pairs  `yaml:"request_headers"`

	Groups          []string `yaml:"groups"`
	GroupMode       string   `yaml:"groupmode"`
	DiscardChannels []string `yaml:"discard_channels"`
	IncludeChannels []string `yaml:"include_channels"`
	DiscardURLs     []string `yaml:"discard_urls"`
	IncludeURLs     []string `yaml:"include_urls"`

	IDTransforms      Pairs `yaml:"id_transforms"`
	GroupTransforms   Pairs `yaml:"group_transforms"`
	ChannelTransforms Pairs `yaml:"channel_transforms"`

	Range        *int     `yaml:"range"`
	SortChannels []string `yaml:"sortchannels"`
	XMLSortType  string   `yaml:"xml_sort_type"`
	TVHStart     int      `yaml:"tvh_start"`
	TVHOffset    int      `yaml:"tvh_offset"`

	NoTVGID       bool `yaml:"no_tvg_id"`
	NoEPG         bool `yaml:"no_epg"`
	ForceEPG      bool `yaml:"force_epg"`
	NoSort        bool `yaml:"no_sort"`
	HTTPForImages bool `yaml:"http_for_images"`
	PreserveCase  bool `yaml:"preserve_case"`

	OutDirectory    string        `yaml:"outdirectory"`
	OutFilename     string        `yaml:"outfilename"`
	LogEnabled      bool          `yaml:"log_enabled"`
	Timezone        string        `yaml:"timezone"`
	KeepOriginals   bool          `yaml:"keep_originals"`
	MetricsTextfile string        `yaml:"metrics_textfile"`
	LogLevel        string        `yaml:"log_level"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxBytes        int64         `yaml:"max_bytes"`
}

// Config is the validated configuration of a run.
type Config struct {
	PlaylistURL    string
	ScheduleURL    string
	RequestHeaders Pairs

	Pipeline pipeline.Options

	OutDirectory    string
	OutFilename     string
	LogEnabled      bool
	KeepOriginals   bool
	MetricsTextfile string
	LogLevel        string
	Timeout         time.Duration
	MaxBytes        int64

	// Source is the config file path, empty when built from flags.
	Source string
}

// Pair is one entry of an ordered key/value list.
type Pair struct {
	Key   string
	Value string
}

// Pairs is an ordered key/value list. It decodes from a mapping or from a
// sequence of single-entry mappings ([{"a": "b"}, ...]).
type Pairs []Pair

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Pairs) UnmarshalYAML(n *yaml.Node) error {
	var out Pairs
	switch n.Kind {
	case yaml.MappingNode:
		pairs, err := mappingPairs(n)
		if err != nil {
			return err
		}
		out = pairs
	case yaml.SequenceNode:
		for _, item := range n.Content {
			if item.Kind != yaml.MappingNode {
				return fmt.Errorf("line %d: expected a mapping entry", item.Line)
			}
			pairs, err := mappingPairs(item)
			if err != nil {
				return err
			}
			out = append(out, pairs...)
		}
	case yaml.ScalarNode:
		if n.Tag != "!!null" {
			return fmt.Errorf("line %d: expected a mapping or a list of mappings", n.Line)
		}
	default:
		return fmt.Errorf("line %d: expected a mapping or a list of mappings", n.Line)
	}
	*p = out
	return nil
}

func mappingPairs(n *yaml.Node) (Pairs, error) {
	out := make(Pairs, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind != yaml.ScalarNode || v.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: keys and values must be scalars", k.Line)
		}
		out = append(out, Pair{Key: k.Value, Value: v.Value})
	}
	return out, nil
}

// MarshalYAML writes the list form.
func (p Pairs) MarshalYAML() (interface{}, error) {
	out := make([]map[string]string, 0, len(p))
	for _, e := range p {
		out = append(out, map[string]string{e.Key: e.Value})
	}
	return out, nil
}

// ParsePairs decodes a flag value holding either a list/mapping or an object
// wrapping it under wrapKey, e.g. {"request_headers": [{"User-Agent": "x"}]}.
func ParsePairs(s, wrapKey string) (Pairs, error) {
	var wrapped map[string]Pairs
	if err := yaml.Unmarshal([]byte(s), &wrapped); err == nil {
		if p, ok := wrapped[wrapKey]; ok && len(wrapped) == 1 {
			return p, nil
		}
	}
	var p Pairs
	if err := yaml.Unmarshal([]byte(s), &p); err != nil {
		return nil, fmt.Errorf("%s: %w", wrapKey, err)
	}
	return p, nil
}

// Map returns the pairs as a map; later keys win.
func (p Pairs) Map() map[string]string {
	out := make(map[string]string, len(p))
	for _, e := range p {
		out[e.Key] = e.Value
	}
	return out
}
