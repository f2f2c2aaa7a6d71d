package main

import (
	"errors"
	"fmt"

	"github.com/Faultbox/tilemesh/internal/config"
	"github.com/Faultbox/tilemesh/internal/render"
)

func cmdBuild(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: tilemesh build <tile-dir>")
	}

	jobs, cache, err := loadJobs(cfg, args[0])
	if err != nil {
		return err
	}
	defer cache.Close()

	collector, err := render.NewCollector(false)
	if err != nil {
		return err
	}
	defer collector.Release()

	sched, err := newScheduler(cfg, collector)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	results, err := sched.Run(ctx, jobs)
	if err != nil {
		return err
	}
	summarize(results)
	fmt.Println(collector.Stats())
	return nil
}
