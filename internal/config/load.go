package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// ResolvePath resolves p against the current working directory. Absolute
// paths are returned cleaned but otherwise unchanged.
func ResolvePath(p string) (string, error) {
	if filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

// LoadFile reads an external configuration file. Only data formats are
// supported: YAML (.yaml, .yml) and JSON (.json).
func LoadFile(filename string) (Config, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".yaml", ".yml", ".json":
	default:
		return nil, fmt.Errorf("unsupported configuration file format %q for %v (expected .yaml, .yml or .json)", ext, filename)
	}

	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %v: %w", filename, err)
	}

	cfg, err := Parse(bs)
	if err != nil {
		return nil, fmt.Errorf("configuration file %v: %w", filename, err)
	}
	return cfg, nil
}

// Parse decodes and validates a configuration document. An empty document
// yields an empty configuration.
func Parse(bs []byte) (Config, error) {
	if len(bytes.TrimSpace(bs)) == 0 {
		return Config{}, nil
	}

	var doc any
	if err := yaml.Unmarshal(bs, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if doc == nil {
		return Config{}, nil
	}

	m, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("configuration must be a mapping, got %T", doc)
	}

	cfg := Config(m)
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Effective computes the configuration handed to the bundler. Without a
// config path, cfg is returned as given. Otherwise the referenced file is
// loaded as the base layer and cfg, minus its config key, is merged on top.
//
// A config value that is set but not a path is an error; only unset values
// (nil, false, "") mean there is no external configuration.
func Effective(cfg Config) (Config, error) {
	p := cfg.Path()
	if p == "" {
		if v := cfg[KeyConfig]; Truthy(v) {
			return nil, fmt.Errorf("config option must be a file path, got %T %v", v, v)
		}
		return cfg, nil
	}

	filename, err := ResolvePath(p)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve configuration path %q: %w", p, err)
	}

	base, err := LoadFile(filename)
	if err != nil {
		return nil, err
	}

	effective := Config(Merge(base, cfg.Without(KeyConfig)))
	delete(effective, KeyConfig)
	return effective, nil
}
