package meshbuf

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Job is a handle to background work. Jobs chain through dependencies so a
// release can be scheduled behind the parallel writes that still use a buffer.
type Job struct {
	done chan struct{}
	err  error
}

// Completed returns a job that is already finished.
func Completed() *Job {
	j := &Job{done: make(chan struct{})}
	close(j.done)
	return j
}

// Done is closed when the job finishes.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Complete blocks until the job finishes and returns its error.
func (j *Job) Complete() error {
	<-j.done
	return j.err
}

// waitAll blocks on every dependency and returns the first error seen.
func waitAll(deps []*Job) error {
	var first error
	for _, d := range deps {
		if d == nil {
			continue
		}
		if err := d.Complete(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Schedule runs fn after all deps finish. If a dependency failed fn is
// skipped and the job carries that error.
func Schedule(fn func() error, deps ...*Job) *Job {
	j := &Job{done: make(chan struct{})}
	go func() {
		defer close(j.done)
		if err := waitAll(deps); err != nil {
			j.err = err
			return
		}
		j.err = fn()
	}()
	return j
}

// ParallelFor calls fn for every index in [0, n) on up to workers goroutines
// (GOMAXPROCS when workers < 1) once deps finish. The first error cancels
// the remaining indices.
func ParallelFor(ctx context.Context, n, workers int, fn func(ctx context.Context, i int) error, deps ...*Job) *Job {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	return Schedule(func() error {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i := 0; i < n; i++ {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				return fn(gctx, i)
			})
		}
		return g.Wait()
	}, deps...)
}
