package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/Faultbox/tilemesh/internal/config"
	"github.com/Faultbox/tilemesh/internal/logger"
	"github.com/Faultbox/tilemesh/internal/pipeline"
	"github.com/Faultbox/tilemesh/internal/render"
	"github.com/Faultbox/tilemesh/internal/window"
	"github.com/Faultbox/tilemesh/pkg/math"
)

// drainInterval paces the GL thread while it waits for batches.
const drainInterval = 5 * time.Millisecond

func cmdUpload(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: tilemesh upload <tile-dir>")
	}
	win, err := window.New(window.Config{
		Title:  "tilemesh",
		Width:  320,
		Height: 240,
		Hidden: true,
	}, logger.Named("window"))
	if err != nil {
		return err
	}
	defer win.Close()

	registry := render.NewRegistry(logger.Named("render"))
	defer registry.Destroy()
	return upload(cfg, args[0], win, registry)
}

func cmdView(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: tilemesh view <tile-dir>")
	}
	win, err := window.New(window.Config{
		Title:  "tilemesh",
		Width:  1280,
		Height: 720,
		VSync:  true,
	}, logger.Named("window"))
	if err != nil {
		return err
	}
	defer win.Close()

	registry := render.NewRegistry(logger.Named("render"))
	defer registry.Destroy()
	if err := upload(cfg, args[0], win, registry); err != nil {
		return err
	}

	program, err := render.NewProgram()
	if err != nil {
		return err
	}
	defer program.Delete()

	cam := render.NewCamera()
	cam.Fit(registry)
	light := math.Vec3{X: 0.4, Y: 1, Z: 0.3}
	for {
		in := win.Poll()
		if in.Quit {
			return nil
		}
		cam.Drag(in.DragX, in.DragY)
		cam.Zoom(in.Wheel)

		aspect := win.Viewport()
		program.Render(registry, cam.ViewProjection(aspect), light)
		win.SwapBuffers()
	}
}

// upload builds on the worker pool and uploads on the calling thread, which
// owns the GL context.
func upload(cfg *config.Config, dir string, win *window.Window, registry *render.Registry) error {
	jobs, cache, err := loadJobs(cfg, dir)
	if err != nil {
		return err
	}
	defer cache.Close()

	queue := render.NewQueue(cfg.Workers.QueueDepth)
	sched, err := newScheduler(cfg, queue)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	type outcome struct {
		results []pipeline.TileResult
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		results, err := sched.Run(ctx, jobs)
		done <- outcome{results, err}
	}()

	interrupted := ctx.Done()
	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()
	for {
		if _, err := queue.Drain(registry, 0); err != nil {
			logger.Warn("upload failed", zap.Error(err))
		}
		if win.Poll().Quit {
			stop()
		}
		select {
		case out := <-done:
			// Batches sealed after the last drain.
			if _, err := queue.Drain(registry, 0); err != nil {
				logger.Warn("upload failed", zap.Error(err))
			}
			queue.Close()
			if out.err != nil {
				return out.err
			}
			summarize(out.results)
			fmt.Printf("%s meshes uploaded (%s)\n",
				humanize.Comma(int64(registry.Len())), humanize.IBytes(uint64(registry.Bytes())))
			return nil
		case <-interrupted:
			// Wake mergers blocked on a full queue.
			queue.Close()
			interrupted = nil
		case <-ticker.C:
		}
	}
}
