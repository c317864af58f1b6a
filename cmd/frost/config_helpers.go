package main

import "frost/internal/config"

// loadToolConfig loads the nearest frost.toml, falling back to defaults.
func loadToolConfig() (config.Config, string, error) {
	return config.LoadOrDefault(".")
}
