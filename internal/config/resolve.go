// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrConflict is matched by every *ConflictError via errors.Is.
var ErrConflict = errors.New("configuration conflict")

// Conflict is one key set both in the config file and as a discrete value.
type Conflict struct {
	Field    string
	File     interface{}
	Discrete interface{}
}

// ConflictError reports discrete values that disagree with the config file.
type ConflictError struct {
	Path      string
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		parts = append(parts, fmt.Sprintf("%s (file %v, flag/env %v)", c.Field, deref(c.File), deref(c.Discrete)))
	}
	return fmt.Sprintf("config file %s conflicts with discrete settings: %s", e.Path, strings.Join(parts, "; "))
}

// Is makes errors.Is(err, ErrConflict) true.
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func deref(v interface{}) interface{} {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return "<unset>"
		}
		return rv.Elem().Interface()
	}
	return v
}

// Resolve picks the effective configuration. Without a file the discrete
// values are used. With a file, the file is used in full; discrete values
// are never merged into it, and any explicitly set discrete value that
// differs from the file yields a *ConflictError.
func Resolve(path string, file *FileConfig, discrete FileConfig, set map[string]bool) (FileConfig, error) {
	if file == nil {
		return discrete, nil
	}

	fv := reflect.ValueOf(file).Elem()
	dv := reflect.ValueOf(discrete)
	t := fv.Type()

	var conflicts []Conflict
	for i := 0; i < t.NumField(); i++ {
		name := yamlName(t.Field(i))
		if !set[name] {
			continue
		}
		a, b := fv.Field(i).Interface(), dv.Field(i).Interface()
		if !equalValue(a, b) {
			conflicts = append(conflicts, Conflict{Field: name, File: a, Discrete: b})
		}
	}
	if len(conflicts) > 0 {
		return FileConfig{}, &ConflictError{Path: path, Conflicts: conflicts}
	}
	return *file, nil
}

func equalValue(a, b interface{}) bool {
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Kind() == reflect.Slice && ra.Len() == 0 && rb.Len() == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}
