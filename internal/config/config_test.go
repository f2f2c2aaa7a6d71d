package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Coverage.Zoom != 16 {
		t.Errorf("expected zoom 16, got %d", cfg.Coverage.Zoom)
	}
	if len(cfg.Coverage.West) != len(cfg.Coverage.East) || len(cfg.Coverage.West) == 0 {
		t.Errorf("expected paired boundary, got %d west / %d east", len(cfg.Coverage.West), len(cfg.Coverage.East))
	}
	if cfg.Builder.Filter.Combiner != "all" {
		t.Errorf("expected combiner 'all', got %s", cfg.Builder.Filter.Combiner)
	}
	if !cfg.Builder.BuildingsUniqueIDs {
		t.Error("expected unique building ids by default")
	}
	if cfg.Extrusion.PropertyName != "height" {
		t.Errorf("expected extrusion property 'height', got %s", cfg.Extrusion.PropertyName)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
coverage:
  zoom: 15
  west: [[40.8, -74.0], [40.7, -74.0]]
  east: [[40.8, -73.9], [40.7, -73.9]]

builder:
  layer: "buildings"
  buildings_unique_ids: false
  filter:
    combiner: "none"
    rules:
      - key: "type"
        op: "contains"
        values: ["parking", "garage"]
      - key: "height"
        op: "in_range"
        min: 10
        max: 200

workers:
  count: 4

logging:
  level: "debug"
  log_file: "tilemesh.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Coverage.Zoom != 15 {
		t.Errorf("expected zoom 15, got %d", cfg.Coverage.Zoom)
	}
	if len(cfg.Coverage.West) != 2 {
		t.Fatalf("expected 2 west points, got %d", len(cfg.Coverage.West))
	}
	if cfg.Coverage.West[1] != [2]float64{40.7, -74.0} {
		t.Errorf("unexpected west[1] %v", cfg.Coverage.West[1])
	}
	if cfg.Builder.BuildingsUniqueIDs {
		t.Error("expected buildings_unique_ids false")
	}
	if cfg.Builder.Filter.Combiner != "none" {
		t.Errorf("expected combiner 'none', got %s", cfg.Builder.Filter.Combiner)
	}
	if len(cfg.Builder.Filter.Rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(cfg.Builder.Filter.Rules))
	}
	if r := cfg.Builder.Filter.Rules[1]; r.Op != "in_range" || r.Min != 10 || r.Max != 200 {
		t.Errorf("unexpected rule %+v", r)
	}
	if cfg.Workers.Count != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Workers.Count)
	}
	// Untouched sections keep their defaults.
	if cfg.Extrusion.ScaleFactor != 1.3203 {
		t.Errorf("expected default scale factor, got %v", cfg.Extrusion.ScaleFactor)
	}
	if cfg.Logging.LogFile != "tilemesh.log" {
		t.Errorf("expected log file 'tilemesh.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
coverage:
  zoom: not a number
  invalid syntax here
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zoom too high", func(c *Config) { c.Coverage.Zoom = 30 }},
		{"unpaired boundary", func(c *Config) { c.Coverage.East = c.Coverage.East[:1] }},
		{"negative workers", func(c *Config) { c.Workers.Count = -1 }},
		{"zero scale", func(c *Config) { c.Extrusion.ScaleFactor = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}

	cfg := Default()
	cfg.Coverage.East = nil
	cfg.Coverage.BoundaryFile = "area.geojson"
	if err := cfg.Validate(); err != nil {
		t.Errorf("boundary file should bypass point pairing: %v", err)
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name:  "zoom flag",
			setup: func() { *flagZoom = 14 },
			verify: func(cfg *Config) {
				if cfg.Coverage.Zoom != 14 {
					t.Errorf("expected zoom 14, got %d", cfg.Coverage.Zoom)
				}
			},
			teardown: func() { *flagZoom = 0 },
		},
		{
			name:  "clip flag",
			setup: func() { *flagClipped = true },
			verify: func(cfg *Config) {
				if cfg.Builder.BuildingsUniqueIDs {
					t.Error("expected clip flag to disable unique ids")
				}
			},
			teardown: func() { *flagClipped = false },
		},
		{
			name:  "combiner and workers flags",
			setup: func() { *flagCombiner = "any"; *flagWorkers = 3 },
			verify: func(cfg *Config) {
				if cfg.Builder.Filter.Combiner != "any" {
					t.Errorf("expected combiner 'any', got %s", cfg.Builder.Filter.Combiner)
				}
				if cfg.Workers.Count != 3 {
					t.Errorf("expected 3 workers, got %d", cfg.Workers.Count)
				}
			},
			teardown: func() { *flagCombiner = ""; *flagWorkers = 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)
			tt.verify(cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
coverage:
  zoom: 15
workers:
  count: 2
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagZoom = 17
	defer func() {
		*flagConfig = ""
		*flagZoom = 0
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Zoom should be from flag (17), not file (15)
	if cfg.Coverage.Zoom != 17 {
		t.Errorf("expected zoom 17 from flag, got %d", cfg.Coverage.Zoom)
	}
	// Workers should be from file since no flag override
	if cfg.Workers.Count != 2 {
		t.Errorf("expected 2 workers from file, got %d", cfg.Workers.Count)
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Coverage.Zoom = 12
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded := &Config{}
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.Coverage.Zoom != 12 || len(loaded.Coverage.West) != len(cfg.Coverage.West) {
		t.Errorf("round trip lost data: zoom %d, %d west points", loaded.Coverage.Zoom, len(loaded.Coverage.West))
	}
}
