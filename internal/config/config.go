// Package config loads frost.toml, the runtime tooling configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ManifestName is the file looked up from the working directory upward.
const ManifestName = "frost.toml"

// RuntimeConfig controls the runtime core's observability knobs.
type RuntimeConfig struct {
	LeakCheck  bool `toml:"leak_check"`
	TraceHeap  bool `toml:"trace_heap"`
	TraceForce bool `toml:"trace_force"`
}

// StressConfig provides defaults for the stress pipeline.
type StressConfig struct {
	Iterations int      `toml:"iterations"`
	Workers    int      `toml:"workers"`
	Scenarios  []string `toml:"scenarios"`
}

// Config is the decoded frost.toml.
type Config struct {
	Runtime RuntimeConfig `toml:"runtime"`
	Stress  StressConfig  `toml:"stress"`
}

// Default returns the configuration used when no frost.toml is found.
func Default() Config {
	return Config{
		Runtime: RuntimeConfig{LeakCheck: true},
		Stress:  StressConfig{Iterations: 100, Workers: 4},
	}
}

// Find walks from startDir upward looking for frost.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load decodes and validates one frost.toml. Absent sections keep their
// defaults; present values are validated.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if meta.IsDefined("stress", "iterations") && cfg.Stress.Iterations <= 0 {
		return Config{}, fmt.Errorf("%s: [stress].iterations must be positive", path)
	}
	if meta.IsDefined("stress", "workers") && cfg.Stress.Workers <= 0 {
		return Config{}, fmt.Errorf("%s: [stress].workers must be positive", path)
	}
	return cfg, nil
}

// LoadOrDefault finds and loads the nearest frost.toml, falling back to
// defaults when none exists. The second result is the manifest path, or
// "" for defaults.
func LoadOrDefault(startDir string) (Config, string, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, "", err
	}
	if !ok {
		return Default(), "", nil
	}
	cfg, err := Load(path)
	if err != nil {
		return Config{}, path, err
	}
	return cfg, path, nil
}
