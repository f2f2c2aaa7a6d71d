// Package config handles pipeline configuration loading and management.
package config

// Config holds all pipeline settings.
type Config struct {
	Coverage  CoverageConfig  `yaml:"coverage"`
	Builder   BuilderConfig   `yaml:"builder"`
	Extrusion ExtrusionConfig `yaml:"extrusion"`
	Workers   WorkersConfig   `yaml:"workers"`
	Cache     CacheConfig     `yaml:"cache"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// CoverageConfig describes the area of interest.
type CoverageConfig struct {
	Zoom         int          `yaml:"zoom"`
	BoundaryFile string       `yaml:"boundary_file"` // GeoJSON, overrides West/East
	West         [][2]float64 `yaml:"west"`          // [lat, lon] pairs, north to south
	East         [][2]float64 `yaml:"east"`
}

// BuilderConfig holds per-layer mesh building settings.
type BuilderConfig struct {
	Layer              string       `yaml:"layer"`
	BuildingsUniqueIDs bool         `yaml:"buildings_unique_ids"`
	Filter             FilterConfig `yaml:"filter"`
}

// FilterConfig holds the feature filter combinator and its rules.
type FilterConfig struct {
	Combiner string       `yaml:"combiner"` // any, all, none
	Rules    []FilterRule `yaml:"rules"`
}

// FilterRule is one property predicate.
type FilterRule struct {
	Key    string   `yaml:"key"`
	Op     string   `yaml:"op"` // contains, equals, greater, less, in_range
	Values []string `yaml:"values,omitempty"`
	Min    float64  `yaml:"min,omitempty"` // also the value for equals
	Max    float64  `yaml:"max,omitempty"`
}

// ExtrusionConfig holds the default geometry construction settings.
type ExtrusionConfig struct {
	PropertyName string  `yaml:"property_name"`
	ScaleFactor  float64 `yaml:"scale_factor"`
	MinHeight    float64 `yaml:"min_height"`
}

// WorkersConfig sizes the parallel construction pool.
type WorkersConfig struct {
	Count      int `yaml:"count"` // 0 = GOMAXPROCS
	QueueDepth int `yaml:"queue_depth"`
}

// CacheConfig bounds the decoded tile cache.
type CacheConfig struct {
	MaxFeatures int64 `yaml:"max_features"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values. The coverage
// boundary outlines Manhattan.
func Default() *Config {
	return &Config{
		Coverage: CoverageConfig{
			Zoom: 16,
			West: [][2]float64{
				{40.83, -73.958}, {40.814, -73.963}, {40.807, -73.974}, {40.804, -73.974},
				{40.796, -73.981}, {40.792, -73.986}, {40.788, -73.986}, {40.783, -73.990},
				{40.775, -73.995}, {40.767, -74.00}, {40.762, -74.01}, {40.76, -74.01},
				{40.757, -74.01}, {40.753, -74.01}, {40.745, -74.018}, {40.734, -74.018},
				{40.71, -74.02}, {40.707, -74.025}, {40.705, -74.023}, {40.702, -74.025},
				{40.699, -74.025},
			},
			East: [][2]float64{
				{40.83, -73.934}, {40.814, -73.934}, {40.807, -73.937}, {40.804, -73.937},
				{40.796, -73.928}, {40.792, -73.936}, {40.788, -73.945}, {40.783, -73.940},
				{40.775, -73.940}, {40.767, -73.953}, {40.762, -73.958}, {40.76, -73.963},
				{40.757, -73.97}, {40.753, -73.964}, {40.745, -73.967}, {40.734, -73.972},
				{40.71, -73.971}, {40.707, -73.992}, {40.705, -74.003}, {40.702, -74.003},
				{40.699, -74.003},
			},
		},
		Builder: BuilderConfig{
			Layer:              "building",
			BuildingsUniqueIDs: true,
			Filter: FilterConfig{
				Combiner: "all",
			},
		},
		Extrusion: ExtrusionConfig{
			PropertyName: "height",
			ScaleFactor:  1.3203,
			MinHeight:    3,
		},
		Workers: WorkersConfig{
			Count:      0,
			QueueDepth: 256,
		},
		Cache: CacheConfig{
			MaxFeatures: 1 << 20,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
