// Package pipeline schedules mesh building for tiles: features are built in
// parallel on a worker pool and merged in order, one tile at a time per
// accumulator, with cancellation checked between features.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Faultbox/tilemesh/internal/batch"
	"github.com/Faultbox/tilemesh/internal/extrude"
	"github.com/Faultbox/tilemesh/internal/feature"
	"github.com/Faultbox/tilemesh/internal/tiles"
)

// Scheduler errors.
var (
	ErrNotStarted = errors.New("scheduler not started")
	ErrStopped    = errors.New("scheduler stopped")
	ErrOptions    = errors.New("invalid scheduler options")
	ErrSource     = errors.New("invalid feature source")
)

// Source is the decoded feature stream of one tile.
type Source interface {
	Extent() int
	Len() int
	Feature(i int) (feature.Raw, error)
}

// Options configures a Scheduler.
type Options struct {
	Workers      int // 0 = GOMAXPROCS
	QueueDepth   int
	Mode         feature.ClipMode
	Filter       *feature.Filter // nil accepts everything
	Stage        extrude.Stage
	Materializer batch.Materializer
	Logger       *zap.Logger
	Registerer   prometheus.Registerer
}

// TileResult summarizes one submitted tile.
type TileResult struct {
	Tile      *tiles.Tile
	Features  int
	Merged    int
	Filtered  int
	Skipped   int
	Batches   int
	Cancelled bool
	Err       error
}

// Handle tracks a submitted tile.
type Handle struct {
	done   chan struct{}
	result TileResult
}

// Done is closed once the tile finished, failed or was cancelled.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the tile is done and returns its result.
func (h *Handle) Wait() TileResult {
	<-h.done
	return h.result
}

func (h *Handle) finish(r TileResult) {
	h.result = r
	close(h.done)
}

// Scheduler drains a queue of (tile, feature index) units with a fixed pool
// of workers. Each tile has one producer that enqueues its units in order and
// one merger that folds the results into the tile's accumulator in the same
// order.
type Scheduler struct {
	opts    Options
	log     *zap.Logger
	metrics *metrics
	queue   chan unit

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	stopped bool
	workers sync.WaitGroup
	tiles   sync.WaitGroup
}

// NewScheduler validates opts and registers the scheduler's metrics.
func NewScheduler(opts Options) (*Scheduler, error) {
	if opts.Stage == nil {
		return nil, fmt.Errorf("%w: no geometry stage", ErrOptions)
	}
	if opts.Materializer == nil {
		return nil, fmt.Errorf("%w: no materializer", ErrOptions)
	}
	if opts.Workers < 0 || opts.QueueDepth < 0 {
		return nil, fmt.Errorf("%w: negative worker or queue size", ErrOptions)
	}
	if opts.Workers == 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.QueueDepth == 0 {
		opts.QueueDepth = opts.Workers * 4
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	m, err := newMetrics(opts.Registerer)
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		opts:    opts,
		log:     opts.Logger,
		metrics: m,
		queue:   make(chan unit, opts.QueueDepth),
	}, nil
}

// Start launches the workers. Cancelling ctx aborts every tile in flight.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	for i := 0; i < s.opts.Workers; i++ {
		s.workers.Add(1)
		go s.work()
	}
	s.log.Info("scheduler started", zap.Int("workers", s.opts.Workers), zap.Int("queue", s.opts.QueueDepth))
}

// Submit queues a tile for building. The tile moves from Pending to
// Loading; a tile that is not pending finishes immediately.
func (s *Scheduler) Submit(tile *tiles.Tile, src Source) *Handle {
	h := &Handle{done: make(chan struct{})}

	s.mu.Lock()
	switch {
	case !s.started:
		s.mu.Unlock()
		h.finish(TileResult{Tile: tile, Err: ErrNotStarted})
		return h
	case s.stopped:
		s.mu.Unlock()
		h.finish(TileResult{Tile: tile, Err: ErrStopped})
		return h
	}
	s.tiles.Add(1)
	ctx := s.ctx
	s.mu.Unlock()

	if !tile.Begin() {
		s.tiles.Done()
		r := TileResult{Tile: tile, Features: src.Len(), Cancelled: tile.Cancelled()}
		if r.Cancelled {
			s.metrics.cancelled.Inc()
		}
		h.finish(r)
		return h
	}

	if e := src.Extent(); e <= 0 {
		s.tiles.Done()
		tile.Fail()
		err := fmt.Errorf("%w: tile %s has extent %d", ErrSource, tile.Key(), e)
		s.log.Error("tile failed", zap.Error(err))
		h.finish(TileResult{Tile: tile, Features: src.Len(), Err: err})
		return h
	}

	j := newJob(s, tile, src)
	s.metrics.inFlight.Inc()
	go j.produce(ctx)
	go func() {
		defer s.tiles.Done()
		r := j.merge(ctx)
		s.metrics.inFlight.Dec()
		h.finish(r)
		<-j.stopped
	}()
	return h
}

// Stop refuses new tiles, waits for submitted ones to finish and stops the
// workers.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrNotStarted
	}
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	s.stopped = true
	s.mu.Unlock()

	s.tiles.Wait()
	s.cancel()
	s.workers.Wait()
	s.log.Info("scheduler stopped")
	return nil
}

// Job pairs a tile with its feature source for Run.
type Job struct {
	Tile   *tiles.Tile
	Source Source
}

// Run builds every job and returns the results in job order.
func (s *Scheduler) Run(ctx context.Context, jobs []Job) ([]TileResult, error) {
	s.Start(ctx)
	handles := make([]*Handle, len(jobs))
	for i, j := range jobs {
		handles[i] = s.Submit(j.Tile, j.Source)
	}
	results := make([]TileResult, len(jobs))
	for i, h := range handles {
		results[i] = h.Wait()
	}
	return results, s.Stop()
}

func (s *Scheduler) work() {
	defer s.workers.Done()
	for {
		select {
		case u := <-s.queue:
			u.job.results[u.index] <- u.job.build(u.index)
		case <-s.ctx.Done():
			return
		}
	}
}
