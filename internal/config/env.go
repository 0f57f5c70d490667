// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"encoding/csv"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/m3utrim/internal/log"
	"github.com/rs/zerolog"
)

// EnvPrefix prefixes every environment variable read by the loader.
const EnvPrefix = "M3UTRIM_"

// EnvKey returns the environment variable for a config key, e.g.
// "outdirectory" -> "M3UTRIM_OUTDIRECTORY".
func EnvKey(field string) string {
	return EnvPrefix + strings.ToUpper(field)
}

// lookupEnv returns a non-empty environment value and logs where the value
// came from.
func lookupEnv(logger zerolog.Logger, key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logger.Debug().
			Str("key", key).
			Str("source", "default").
			Msg("using default value")
		return "", false
	}
	return v, true
}

func logEnvValue(logger zerolog.Logger, key, value string) {
	lowerKey := strings.ToLower(key)
	if strings.Contains(lowerKey, "header") || strings.Contains(lowerKey, "token") {
		// Header values may carry credentials.
		logger.Debug().
			Str("key", key).
			Str("source", "environment").
			Bool("sensitive", true).
			Msg("using environment variable")
		return
	}
	logger.Debug().
		Str("key", key).
		Str("value", value).
		Str("source", "environment").
		Msg("using environment variable")
}

// ParseString reads a string from environment variable or returns default value.
func ParseString(key, defaultValue string) string {
	logger := log.WithComponent("config")
	v, ok := lookupEnv(logger, key)
	if !ok {
		return defaultValue
	}
	logEnvValue(logger, key, v)
	return v
}

// ParseInt reads an integer from environment variable or returns default value.
// It falls back to the default on parse errors.
func ParseInt(key string, defaultValue int) int {
	logger := log.WithComponent("config")
	v, ok := lookupEnv(logger, key)
	if !ok {
		return defaultValue
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Int("default", defaultValue).
			Msg("invalid integer in environment variable, using default")
		return defaultValue
	}
	logEnvValue(logger, key, v)
	return i
}

// ParseDuration reads a duration in Go format (e.g. "90s") from environment
// variable or returns default value.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	logger := log.WithComponent("config")
	v, ok := lookupEnv(logger, key)
	if !ok {
		return defaultValue
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Dur("default", defaultValue).
			Msg("invalid duration in environment variable, using default")
		return defaultValue
	}
	logEnvValue(logger, key, v)
	return d
}

// ParseBool reads a boolean from environment variable or returns default value.
// It accepts "true", "false", "1", "0", "yes", "no" (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	logger := log.WithComponent("config")
	v, ok := lookupEnv(logger, key)
	if !ok {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		logEnvValue(logger, key, v)
		return true
	case "false", "0", "no":
		logEnvValue(logger, key, v)
		return false
	default:
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Bool("default", defaultValue).
			Msg("invalid boolean in environment variable, using default")
		return defaultValue
	}
}

// SplitList splits a comma separated list. Items may be quoted with double
// or single quotes: 'Sky News','BBC One, HD'.
func SplitList(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "'") {
		return splitSingleQuoted(s)
	}
	r := csv.NewReader(strings.NewReader(s))
	r.TrimLeadingSpace = true
	rec, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("parse list %q: %w", s, err)
	}
	out := make([]string, 0, len(rec))
	for _, item := range rec {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out, nil
}

func splitSingleQuoted(s string) ([]string, error) {
	var out []string
	for s != "" {
		s = strings.TrimLeft(s, " ,")
		if s == "" {
			break
		}
		if s[0] != '\'' {
			return nil, fmt.Errorf("parse list: expected quote at %q", s)
		}
		end := strings.IndexByte(s[1:], '\'')
		if end < 0 {
			return nil, fmt.Errorf("parse list: unterminated quote in %q", s)
		}
		out = append(out, s[1:end+1])
		s = s[end+2:]
	}
	return out, nil
}

// applyEnv fills fields not already set from M3UTRIM_* variables and marks
// them as set.
func applyEnv(dst *FileConfig, set map[string]bool) error {
	v := reflect.ValueOf(dst).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name := yamlName(t.Field(i))
		if set[name] {
			continue // flags win over environment
		}
		key := EnvKey(name)
		raw, ok := os.LookupEnv(key)
		if !ok || raw == "" {
			continue
		}

		f := v.Field(i)
		switch f.Interface().(type) {
		case string:
			f.SetString(ParseString(key, ""))
		case bool:
			f.SetBool(ParseBool(key, false))
		case int:
			f.SetInt(int64(ParseInt(key, 0)))
		case int64:
			f.SetInt(int64(ParseInt(key, DefaultMaxBytes)))
		case *int:
			n := ParseInt(key, DefaultRangeHours)
			f.Set(reflect.ValueOf(&n))
		case time.Duration:
			f.SetInt(int64(ParseDuration(key, DefaultTimeout)))
		case []string:
			list, err := SplitList(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			f.Set(reflect.ValueOf(list))
		case Pairs:
			p, err := ParsePairs(raw, name)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			f.Set(reflect.ValueOf(p))
		default:
			return fmt.Errorf("%s: unsupported field type %s", key, f.Type())
		}
		set[name] = true
	}
	return nil
}

func yamlName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
	return name
}
