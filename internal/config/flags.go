package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagZoom     = flag.Int("zoom", 0, "Coverage zoom level")
	flagBoundary = flag.String("boundary", "", "GeoJSON boundary file")
	flagWorkers  = flag.Int("workers", 0, "Parallel construction workers")
	flagCombiner = flag.String("combiner", "", "Filter combiner (any, all, none)")
	flagClipped  = flag.Bool("clip", false, "Clip features at tile edges instead of keeping stable ids")
	flagLogFile  = flag.String("log-file", "", "Log file path")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the positional arguments left after flag parsing.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagZoom > 0 {
		cfg.Coverage.Zoom = *flagZoom
	}
	if *flagBoundary != "" {
		cfg.Coverage.BoundaryFile = *flagBoundary
	}
	if *flagWorkers > 0 {
		cfg.Workers.Count = *flagWorkers
	}
	if *flagCombiner != "" {
		cfg.Builder.Filter.Combiner = *flagCombiner
	}
	if *flagClipped {
		cfg.Builder.BuildingsUniqueIDs = false
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
}
