package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// Duration reads Go duration strings such as "2s" or "1m30s" from config files.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LoadFile reads a JSON5 config file. A sibling "<name>.local.<ext>" file,
// when present, is merged over it.
func LoadFile(path string) (Config, error) {
	var out Config

	data, err := os.ReadFile(path)
	if err != nil {
		return out, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json5.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	local := localPath(path)
	localData, err := os.ReadFile(local)
	if err != nil && !os.IsNotExist(err) {
		return out, fmt.Errorf("failed to read local overrides: %w", err)
	}
	if len(localData) > 0 {
		var override Config
		if err := json5.Unmarshal(localData, &override); err != nil {
			return out, fmt.Errorf("failed to parse %s: %w", local, err)
		}
		if err := mergo.Merge(&out, override, mergo.WithOverride); err != nil {
			return out, fmt.Errorf("failed to merge local overrides: %w", err)
		}
		slog.Info("merging config with local overrides", "local", local)
	}

	return out, nil
}

// LoadWithFile loads the environment config and, when path is set, merges the
// file's non-zero values over it.
func LoadWithFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return cfg, nil
	}

	file, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := mergo.Merge(cfg, file, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to merge config file: %w", err)
	}
	return cfg, nil
}

func localPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}
