package config

import (
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"reflect"
	"slices"

	"gopkg.in/yaml.v3"
)

// Merge deep-merges sources from left to right into a new mapping. Later
// sources win. Nested mappings are merged key by key, anything else (slices,
// scalars) is replaced wholesale. A nil value counts as unset and never
// overrides an existing one. The result shares no mappings or slices with
// the sources.
func Merge(sources ...map[string]any) map[string]any {
	result := make(map[string]any)
	for _, src := range sources {
		_ = mergeInto(result, src, "", false) // cannot fail without conflict checks
	}
	return result
}

// MergeFiles reads all YAML files found under configFiles (directories are
// walked) and merges them in order. With conflictError set, two files setting
// different values for the same path is an error.
func MergeFiles(configFiles []string, conflictError bool) ([]byte, error) {

	var paths []string
	for _, f := range configFiles {
		if err := filepath.Walk(f, func(path string, fi fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if fi.IsDir() {
				return nil
			}
			paths = append(paths, path)
			return nil
		}); err != nil {
			return nil, err
		}
	}

	result := make(map[string]any)
	for _, f := range paths {
		bs, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %v: %w", f, err)
		}
		var x map[string]any
		if err := yaml.Unmarshal(bs, &x); err != nil {
			return nil, fmt.Errorf("failed to unmarshal configuration file %v: %w", f, err)
		}
		if err := mergeInto(result, x, "", conflictError); err != nil {
			return nil, err
		}
	}

	bs, err := yaml.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal merged configuration: %w", err)
	}

	return bs, nil
}

// mergeInto merges src into dst. dst must be owned by the caller: every
// mapping reachable from it is a private copy and may be modified in place.
func mergeInto(dst, src map[string]any, path string, conflictError bool) error {
	for _, key := range slices.Sorted(maps.Keys(src)) { // Sort keys to ensure deterministic merge errors.
		value := src[key]
		existing, ok := dst[key]

		if value == nil {
			if !ok {
				dst[key] = nil
			}
			continue
		}

		if valueMap, ok1 := asMap(value); ok1 {
			if existingMap, ok2 := asMap(existing); ok2 {
				if err := mergeInto(existingMap, valueMap, path+"/"+key, conflictError); err != nil {
					return err
				}
				continue
			}
		}

		if ok && existing != nil && conflictError && !reflect.DeepEqual(existing, value) {
			return fmt.Errorf("conflict for config path %s", path+"/"+key)
		}
		dst[key] = cloneValue(value)
	}
	return nil
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Config:
		return m, true
	}
	return nil, false
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	if m, ok := asMap(v); ok {
		return cloneMap(m)
	}
	if s, ok := v.([]any); ok {
		out := make([]any, len(s))
		for i := range s {
			out[i] = cloneValue(s[i])
		}
		return out
	}
	return v
}
