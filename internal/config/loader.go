// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownConfigField classifies strict parse failures caused by unknown keys.
// Use errors.Is(err, ErrUnknownConfigField) instead of string matching.
var ErrUnknownConfigField = errors.New("unknown config field")

// Loader handles configuration loading with precedence:
// config file (authoritative) > flags > environment > defaults.
type Loader struct {
	configPath string
	discrete   FileConfig
	set        map[string]bool
}

// NewLoader creates a loader for the given config file path. An empty path
// means discrete values only.
func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath, set: map[string]bool{}}
}

// WithDiscrete sets values from command-line flags. set names the keys that
// were given explicitly.
func (l *Loader) WithDiscrete(d FileConfig, set map[string]bool) *Loader {
	l.discrete = d
	l.set = make(map[string]bool, len(set))
	for k, v := range set {
		l.set[k] = v
	}
	return l
}

// Load resolves and validates the configuration.
func (l *Loader) Load() (Config, error) {
	f, err := l.Resolve()
	if err != nil {
		return Config{}, err
	}
	cfg, err := Build(f)
	if err != nil {
		return Config{}, err
	}
	cfg.Source = l.configPath
	return cfg, nil
}

// Resolve returns the effective file-shaped configuration with defaults
// applied, without validating it.
func (l *Loader) Resolve() (FileConfig, error) {
	discrete := l.discrete
	set := make(map[string]bool, len(l.set))
	for k, v := range l.set {
		set[k] = v
	}
	if err := applyEnv(&discrete, set); err != nil {
		return FileConfig{}, fmt.Errorf("environment: %w", err)
	}

	var file *FileConfig
	if l.configPath != "" {
		var err error
		if file, err = LoadFile(l.configPath); err != nil {
			return FileConfig{}, fmt.Errorf("load config file: %w", err)
		}
	}

	resolved, err := Resolve(l.configPath, file, discrete, set)
	if err != nil {
		return FileConfig{}, err
	}
	applyDefaults(&resolved)
	return resolved, nil
}

// LoadFile loads a YAML or JSON config file with STRICT parsing.
// Unknown fields will cause a fatal error to prevent misconfiguration.
func LoadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" && ext != ".json" {
		return nil, fmt.Errorf("unsupported config format: %s (want .yaml, .yml or .json)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return parseFile(data)
}

// parseFile decodes a config document. JSON is decoded by the YAML decoder,
// which keeps the order of transform lists.
func parseFile(data []byte) (*FileConfig, error) {
	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Reject unknown fields

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	// Strict: Ensure no multiple documents or trailing content
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

func applyDefaults(f *FileConfig) {
	if f.GroupMode == "" {
		f.GroupMode = DefaultGroupMode
	}
	if f.Range == nil {
		r := DefaultRangeHours
		f.Range = &r
	}
	if f.XMLSortType == "" {
		f.XMLSortType = DefaultXMLSortType
	}
	if f.Timeout == 0 {
		f.Timeout = DefaultTimeout
	}
	if f.MaxBytes == 0 {
		f.MaxBytes = DefaultMaxBytes
	}
	if f.LogLevel == "" {
		f.LogLevel = DefaultLogLevel
	}
}
