package render

import (
	"fmt"
	"sync"

	"github.com/Faultbox/tilemesh/internal/batch"
)

// ErrQueueClosed is returned by Materialize after Close. It matches
// batch.ErrClosed.
var ErrQueueClosed = fmt.Errorf("render queue: %w", batch.ErrClosed)

// Queue hands sealed batches from pipeline goroutines to the one thread that
// owns the graphics context. Batches wait in the queue until Drain passes
// them on.
type Queue struct {
	ch     chan *batch.Sealed
	done   chan struct{}
	once   sync.Once
	mu     sync.RWMutex
	closed bool
}

// NewQueue returns a queue holding up to size batches; Materialize blocks
// while it is full.
func NewQueue(size int) *Queue {
	return &Queue{ch: make(chan *batch.Sealed, size), done: make(chan struct{})}
}

// Materialize enqueues s. The queue owns the buffer on success.
func (q *Queue) Materialize(s *batch.Sealed) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- s:
		return nil
	case <-q.done:
		return ErrQueueClosed
	}
}

// Drain passes up to max queued batches (all if max < 1) to m without
// blocking. Buffers m rejects are released. It returns how many batches m
// accepted and the first error m returned.
func (q *Queue) Drain(m batch.Materializer, max int) (int, error) {
	var (
		accepted int
		first    error
	)
	for n := 0; max < 1 || n < max; n++ {
		var s *batch.Sealed
		select {
		case s = <-q.ch:
		default:
			return accepted, first
		}
		if err := m.Materialize(s); err != nil {
			s.Buffer.Release()
			if first == nil {
				first = err
			}
			continue
		}
		accepted++
	}
	return accepted, first
}

// Len returns the number of waiting batches.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close refuses new batches and releases the ones still waiting.
func (q *Queue) Close() {
	// Wake blocked senders before waiting for them to leave.
	q.once.Do(func() { close(q.done) })
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	for {
		select {
		case s := <-q.ch:
			s.Buffer.Release()
		default:
			return
		}
	}
}
