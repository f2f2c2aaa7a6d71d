package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Try to load from file (explicit path takes priority)
	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	// Apply CLI flags (highest priority)
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail deep inside the
// pipeline.
func (c *Config) Validate() error {
	if c.Coverage.Zoom < 0 || c.Coverage.Zoom > 22 {
		return fmt.Errorf("coverage zoom %d outside [0, 22]", c.Coverage.Zoom)
	}
	if c.Coverage.BoundaryFile == "" && len(c.Coverage.West) != len(c.Coverage.East) {
		return fmt.Errorf("coverage boundary has %d west and %d east points", len(c.Coverage.West), len(c.Coverage.East))
	}
	if c.Workers.Count < 0 {
		return fmt.Errorf("negative worker count %d", c.Workers.Count)
	}
	if c.Extrusion.ScaleFactor <= 0 {
		return fmt.Errorf("extrusion scale factor must be positive, got %v", c.Extrusion.ScaleFactor)
	}
	return nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./tilemesh.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Tilemesh")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Tilemesh")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "tilemesh")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "tilemesh")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
