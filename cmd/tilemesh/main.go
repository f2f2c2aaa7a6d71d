// tilemesh builds extruded building meshes from vector tiles.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Faultbox/tilemesh/internal/batch"
	"github.com/Faultbox/tilemesh/internal/config"
	"github.com/Faultbox/tilemesh/internal/extrude"
	"github.com/Faultbox/tilemesh/internal/feature"
	"github.com/Faultbox/tilemesh/internal/logger"
	"github.com/Faultbox/tilemesh/internal/pipeline"
	"github.com/Faultbox/tilemesh/internal/source"
	"github.com/Faultbox/tilemesh/internal/tiles"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()
	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Sugar.Debugf("Config: %+v", cfg)

	command, rest := args[0], args[1:]
	switch command {
	case "cover":
		err = cmdCover(cfg, rest)
	case "build":
		err = cmdBuild(cfg, rest)
	case "upload":
		err = cmdUpload(cfg, rest)
	case "view":
		err = cmdView(cfg, rest)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tilemesh - extruded building meshes from vector tiles

Usage:
  tilemesh [flags] <command> [args]

Commands:
  cover [lat lon]      List the tiles covering the boundary (or around a point)
  build <tile-dir>     Build meshes for every covered tile and print statistics
  upload <tile-dir>    Build meshes and upload them to a GL context
  view <tile-dir>      Upload and show the meshes (drag to orbit, wheel to zoom)

Flags:
  -config <file>       Config file (default: ./tilemesh.yaml or user config dir)
  -zoom <z>            Coverage zoom level
  -boundary <file>     GeoJSON boundary (LineStrings with a "side" property)
  -workers <n>         Parallel construction workers
  -combiner <c>        Filter combiner: any, all, none
  -clip                Clip features at tile edges instead of keeping stable ids
  -debug               Enable debug logging
  -log-file <file>     Also log to a rotated file

Examples:
  tilemesh cover
  tilemesh -zoom 15 cover 40.758 -73.985
  tilemesh -workers 8 build ./tiles
  tilemesh -debug upload ./tiles
  tilemesh view ./tiles`)
}

// coverage computes the tile set from the configured boundary, or the 3x3
// block around a point when args holds a latitude and a longitude.
func coverage(cfg *config.Config, args []string) (*tiles.Coverage, error) {
	zoom := maptile.Zoom(cfg.Coverage.Zoom)
	c := tiles.NewCoverage()

	if len(args) >= 2 {
		lat, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing latitude: %w", err)
		}
		lon, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing longitude: %w", err)
		}
		if _, err := c.AddNeighborhood(tiles.LatLon{Lat: lat, Lon: lon}, zoom); err != nil {
			return nil, err
		}
		return c, nil
	}

	var (
		b   tiles.Boundary
		err error
	)
	if cfg.Coverage.BoundaryFile != "" {
		b, err = tiles.LoadBoundaryFile(cfg.Coverage.BoundaryFile)
		if err != nil {
			return nil, err
		}
	} else {
		b = tiles.BoundaryFromPairs(cfg.Coverage.West, cfg.Coverage.East)
	}
	if _, err := c.Add(b, zoom); err != nil {
		return nil, err
	}
	return c, nil
}

func clipMode(cfg *config.Config) feature.ClipMode {
	if cfg.Builder.BuildingsUniqueIDs {
		return feature.StableIdentity
	}
	return feature.ClipAtEdge
}

func cmdCover(cfg *config.Config, args []string) error {
	c, err := coverage(cfg, args)
	if err != nil {
		return err
	}
	for _, id := range c.Tiles() {
		fmt.Println(tiles.Key(id))
	}
	logger.Info("coverage computed", zap.Int("zoom", cfg.Coverage.Zoom), zap.Int("tiles", c.Len()))
	return nil
}

// loadJobs loads the decoded layer of every covered tile. Tiles that cannot be
// read are logged and left out.
func loadJobs(cfg *config.Config, dir string) ([]pipeline.Job, *source.Cache, error) {
	c, err := coverage(cfg, nil)
	if err != nil {
		return nil, nil, err
	}
	cache, err := source.NewCache(source.Dir{Root: dir}, cfg.Builder.Layer, clipMode(cfg), cfg.Cache.MaxFeatures)
	if err != nil {
		return nil, nil, err
	}

	ids := c.Tiles()
	var bound orb.Bound
	placed := make([]*tiles.Tile, len(ids))
	for i, id := range ids {
		placed[i] = tiles.NewTile(id, 1)
		if i == 0 {
			bound = placed[i].Bounds
		} else {
			bound = bound.Union(placed[i].Bounds)
		}
	}
	origin := bound.Center()

	out := make([]pipeline.Job, 0, len(ids))
	for _, tile := range placed {
		layer, err := cache.Load(tile.ID)
		if err != nil {
			logger.Warn("skipping tile", zap.String("tile", tile.Key()), zap.Error(err))
			continue
		}
		tile.Place(origin)
		out = append(out, pipeline.Job{Tile: tile, Source: layer})
	}
	logger.Info("tiles loaded", zap.Int("covered", len(ids)), zap.Int("loaded", len(out)))
	return out, cache, nil
}

// newScheduler wires the configured filter and extrusion chain to m.
func newScheduler(cfg *config.Config, m batch.Materializer) (*pipeline.Scheduler, error) {
	filter, err := feature.FilterFromConfig(cfg.Builder.Filter)
	if err != nil {
		return nil, err
	}
	return pipeline.NewScheduler(pipeline.Options{
		Workers:      cfg.Workers.Count,
		QueueDepth:   cfg.Workers.QueueDepth,
		Mode:         clipMode(cfg),
		Filter:       filter,
		Stage:        extrude.NewChain(cfg.Extrusion),
		Materializer: m,
		Logger:       logger.Named("pipeline"),
		Registerer:   prometheus.NewRegistry(),
	})
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func summarize(results []pipeline.TileResult) {
	var merged, filtered, skipped, batches, cancelled, failed int
	for _, r := range results {
		merged += r.Merged
		filtered += r.Filtered
		skipped += r.Skipped
		batches += r.Batches
		if r.Cancelled {
			cancelled++
		}
		if r.Err != nil && !r.Cancelled {
			failed++
			logger.Warn("tile failed", zap.String("tile", r.Tile.Key()), zap.Error(r.Err))
		}
	}
	logger.Info("build finished",
		zap.Int("tiles", len(results)),
		zap.Int("merged", merged),
		zap.Int("filtered", filtered),
		zap.Int("skipped", skipped),
		zap.Int("batches", batches),
		zap.Int("cancelled", cancelled),
		zap.Int("failed", failed),
	)
}
