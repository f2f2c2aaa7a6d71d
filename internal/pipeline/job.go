package pipeline

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/Faultbox/tilemesh/internal/batch"
	"github.com/Faultbox/tilemesh/internal/feature"
	"github.com/Faultbox/tilemesh/internal/tiles"
)

type unit struct {
	job   *job
	index int
}

type status int

const (
	built status = iota
	filtered
	skipped
	abandoned // tile left Loading before the unit ran
)

type outcome struct {
	status status
	frag   *batch.Fragment
}

// job is the per-tile state shared by its producer, the workers and its
// merger. results[i] receives exactly one outcome for every enqueued unit.
type job struct {
	s       *Scheduler
	tile    *tiles.Tile
	src     Source
	proj    feature.Projector
	log     *zap.Logger
	results []chan outcome

	produced int           // written before stopped is closed
	stopped  chan struct{} // closed when the producer is done
}

func newJob(s *Scheduler, tile *tiles.Tile, src Source) *job {
	n := src.Len()
	results := make([]chan outcome, n)
	for i := range results {
		results[i] = make(chan outcome, 1)
	}
	return &job{
		s:       s,
		tile:    tile,
		src:     src,
		proj:    feature.NewProjector(tile, src.Extent(), s.opts.Mode),
		log:     s.log.With(zap.String("tile", tile.Key())),
		results: results,
		stopped: make(chan struct{}),
	}
}

func (j *job) active() bool {
	return j.tile.State() == tiles.Loading
}

// produce enqueues feature units in index order until the tile stops being
// active.
func (j *job) produce(ctx context.Context) {
	defer close(j.stopped)
	for i := range j.results {
		if !j.active() {
			return
		}
		select {
		case j.s.queue <- unit{job: j, index: i}:
			j.produced = i + 1
		case <-ctx.Done():
			return
		}
	}
}

// build runs filter, projection and geometry construction for one feature.
func (j *job) build(i int) outcome {
	if !j.active() {
		return outcome{status: abandoned}
	}
	raw, err := j.src.Feature(i)
	if err != nil {
		j.log.Warn("skipping feature", zap.Int("index", i), zap.Error(err))
		return outcome{status: skipped}
	}
	if !feature.Extrudable(raw.Properties) {
		return outcome{status: filtered}
	}
	if f := j.s.opts.Filter; f != nil && !f.Accept(raw.Properties) {
		return outcome{status: filtered}
	}
	if len(raw.Rings) == 0 {
		return outcome{status: skipped}
	}
	projected, ok := j.proj.Apply(raw)
	if !ok {
		return outcome{status: skipped}
	}
	frag, err := j.s.opts.Stage.Build(j.tile, projected)
	if err != nil {
		j.log.Debug("geometry construction failed", zap.Int("index", i), zap.Error(err))
		return outcome{status: skipped}
	}
	return outcome{status: built, frag: frag}
}

// await returns the outcome of unit i, or false if the unit was never
// enqueued or the scheduler is shutting down.
func (j *job) await(ctx context.Context, i int) (outcome, bool) {
	select {
	case o := <-j.results[i]:
		return o, true
	case <-j.stopped:
		if i >= j.produced {
			return outcome{}, false
		}
	case <-ctx.Done():
		return outcome{}, false
	}
	select {
	case o := <-j.results[i]:
		return o, true
	case <-ctx.Done():
		return outcome{}, false
	}
}

// merge folds outcomes into the tile's accumulator strictly in index order.
// It is the only goroutine touching the accumulator.
func (j *job) merge(ctx context.Context) TileResult {
	m := j.s.metrics
	r := TileResult{Tile: j.tile, Features: len(j.results)}
	acc := batch.New(j.tile, m.counting(j.s.opts.Materializer), j.log)

	cancel := func() TileResult {
		acc.Drop()
		j.tile.Cancel()
		r.Batches = acc.Sealed()
		r.Cancelled = true
		if err := ctx.Err(); err != nil {
			r.Err = err
		}
		m.cancelled.Inc()
		j.log.Debug("tile cancelled", zap.Int("merged", r.Merged))
		return r
	}
	fail := func(err error) TileResult {
		if errors.Is(err, batch.ErrClosed) || ctx.Err() != nil {
			return cancel()
		}
		acc.Drop()
		j.tile.Fail()
		r.Batches = acc.Sealed()
		r.Err = err
		j.log.Error("tile failed", zap.Error(err))
		return r
	}

	for i := range j.results {
		if !j.active() {
			break
		}
		o, ok := j.await(ctx, i)
		if !ok || !j.active() {
			break
		}
		switch o.status {
		case filtered:
			r.Filtered++
			m.filtered.Inc()
			continue
		case skipped, abandoned:
			r.Skipped++
			m.skipped.Inc()
			continue
		}

		d, err := acc.Add(o.frag)
		switch {
		case errors.Is(err, batch.ErrInvalidFragment):
			j.log.Debug("invalid fragment", zap.Int("index", i), zap.Error(err))
			r.Skipped++
			m.skipped.Inc()
			continue
		case err != nil:
			return fail(err)
		}
		if d == batch.Merge || d == batch.SealAndStart {
			r.Merged++
			m.processed.Inc()
		} else {
			r.Skipped++
			m.skipped.Inc()
		}
	}

	if !j.active() || ctx.Err() != nil {
		return cancel()
	}
	if err := acc.Finish(); err != nil {
		return fail(err)
	}
	r.Batches = acc.Sealed()
	if !j.tile.Finish() {
		// Cancelled after the last merge; the sealed batches already left.
		r.Cancelled = true
		m.cancelled.Inc()
	}
	j.log.Debug("tile loaded",
		zap.Int("features", r.Features),
		zap.Int("merged", r.Merged),
		zap.Int("batches", r.Batches))
	return r
}
