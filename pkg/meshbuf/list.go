package meshbuf

import (
	"context"

	"github.com/pkg/errors"
)

// List owns an ordered set of Buffers. Buffers added to a List belong to it:
// Set, RemoveAtSwapBack, Clear and Release free the buffers they drop.
type List struct {
	noCopy noCopy

	s     *safety
	items []*Buffer
}

// NewList creates an empty List with room for capacity buffers.
func NewList(capacity int) (*List, error) {
	if capacity < 0 {
		return nil, errors.Wrapf(ErrAllocation, "negative list capacity %d", capacity)
	}
	return &List{s: &safety{}, items: make([]*Buffer, 0, capacity)}, nil
}

// Len returns the number of buffers.
func (l *List) Len() int {
	l.s.checkAlive("list len")
	return len(l.items)
}

// Cap returns the number of buffers the List can hold before growing.
func (l *List) Cap() int {
	l.s.checkAlive("list cap")
	return cap(l.items)
}

// SetCapacity grows or shrinks the backing table. Shrinking below Len is a
// bounds fault.
func (l *List) SetCapacity(n int) {
	l.s.checkMutate("list set capacity")
	if n < len(l.items) {
		fatal(ErrOutOfRange, "capacity %d below length %d", n, len(l.items))
	}
	items := make([]*Buffer, len(l.items), n)
	copy(items, l.items)
	l.items = items
}

// Add appends b and takes ownership of it. It returns b's index.
func (l *List) Add(b *Buffer) int {
	l.s.checkMutate("list add")
	b.s.checkAlive("add released buffer")
	l.items = append(l.items, b)
	return len(l.items) - 1
}

// AddCopy appends a clone of b; the caller keeps ownership of b.
func (l *List) AddCopy(b *Buffer) (int, error) {
	c, err := b.Clone()
	if err != nil {
		return -1, err
	}
	return l.Add(c), nil
}

// At returns the buffer at index i. The List keeps ownership.
func (l *List) At(i int) *Buffer {
	l.s.checkAlive("list at")
	if uint(i) >= uint(len(l.items)) {
		fatal(ErrOutOfRange, "list index %d out of range of length %d", i, len(l.items))
	}
	return l.items[i]
}

// Set replaces the buffer at index i with b, releasing the previous one.
func (l *List) Set(i int, b *Buffer) {
	l.s.checkMutate("list set")
	if uint(i) >= uint(len(l.items)) {
		fatal(ErrOutOfRange, "list index %d out of range of length %d", i, len(l.items))
	}
	b.s.checkAlive("set released buffer")
	old := l.items[i]
	l.items[i] = b
	if old != b {
		old.Release()
	}
}

// RemoveAtSwapBack releases the buffer at index i and moves the last buffer
// into its slot. Order is not preserved.
func (l *List) RemoveAtSwapBack(i int) {
	l.s.checkMutate("list remove")
	if uint(i) >= uint(len(l.items)) {
		fatal(ErrOutOfRange, "list index %d out of range of length %d", i, len(l.items))
	}
	removed := l.items[i]
	last := len(l.items) - 1
	l.items[i] = l.items[last]
	l.items[last] = nil
	l.items = l.items[:last]
	removed.Release()
}

// Bytes returns the storage held by all buffers in the List.
func (l *List) Bytes() int64 {
	l.s.checkAlive("list bytes")
	var total int64
	for _, b := range l.items {
		total += int64(b.Bytes())
	}
	return total
}

// Clear releases every buffer and keeps the List usable with its capacity.
func (l *List) Clear() {
	l.s.checkMutate("list clear")
	for i, b := range l.items {
		b.Release()
		l.items[i] = nil
	}
	l.items = l.items[:0]
}

// Release frees every buffer and invalidates the List.
func (l *List) Release() {
	l.s.release("list", false)
	for _, b := range l.items {
		b.Release()
	}
	l.items = nil
	l.s.freed.Store(true)
}

// ReleaseAfter invalidates the List now and, once deps complete, releases
// its buffers in parallel.
func (l *List) ReleaseAfter(deps ...*Job) *Job {
	l.s.release("list", false)
	items := l.items
	l.items = nil

	j := &Job{done: make(chan struct{})}
	go func() {
		defer close(j.done)
		// Release runs even when a dependency failed; the storage must not leak.
		j.err = waitAll(deps)
		_ = ParallelFor(context.Background(), len(items), 0, func(_ context.Context, i int) error {
			items[i].Release()
			return nil
		}).Complete()
		l.s.freed.Store(true)
	}()
	return j
}

// BeginRead declares read intent on the List's table (not its buffers).
func (l *List) BeginRead() *ReadGuard {
	l.s.acquireRead()
	return &ReadGuard{s: l.s}
}

// Released reports whether the List has been released.
func (l *List) Released() bool {
	return l.s.released.Load()
}
