package meshbuf

import (
	"unsafe"

	"github.com/Faultbox/tilemesh/pkg/math"
)

// Element is the set of value types a Buffer stores. None of them contain Go
// pointers, so they may live in memory the garbage collector does not scan.
type Element interface {
	math.Vec3 | math.Vec2 | uint16
}

// Array is a fixed-capacity view of one region inside a Buffer. It is valid
// until the owning Buffer is released; every access checks that first.
type Array[T Element] struct {
	s        *safety
	base     unsafe.Pointer
	n        int
	capacity int
}

func newArray[T Element](s *safety, mem []byte, capacity int) *Array[T] {
	a := &Array[T]{s: s, capacity: capacity}
	if capacity > 0 {
		a.base = unsafe.Pointer(unsafe.SliceData(mem))
	}
	return a
}

func (a *Array[T]) elem(i int) *T {
	var zero T
	return (*T)(unsafe.Add(a.base, uintptr(i)*unsafe.Sizeof(zero)))
}

// Len returns the number of valid elements.
func (a *Array[T]) Len() int {
	a.s.checkAlive("len")
	return a.n
}

// Cap returns the fixed capacity established at construction.
func (a *Array[T]) Cap() int {
	a.s.checkAlive("cap")
	return a.capacity
}

// At returns element i. i must be within [0, Len()).
func (a *Array[T]) At(i int) T {
	a.s.checkAlive("at")
	if uint(i) >= uint(a.n) {
		fatal(ErrOutOfRange, "index %d out of range of length %d", i, a.n)
	}
	return *a.elem(i)
}

// Set overwrites element i. i must be within [0, Len()).
func (a *Array[T]) Set(i int, v T) {
	a.s.checkMutate("set")
	if uint(i) >= uint(a.n) {
		fatal(ErrOutOfRange, "index %d out of range of length %d", i, a.n)
	}
	*a.elem(i) = v
}

// Append adds values after the last valid element. Growing past the
// capacity is a bounds fault, never a silent truncation.
func (a *Array[T]) Append(vs ...T) {
	a.s.checkMutate("append")
	if a.n+len(vs) > a.capacity {
		fatal(ErrOutOfRange, "append of %d exceeds capacity %d (length %d)", len(vs), a.capacity, a.n)
	}
	for _, v := range vs {
		*a.elem(a.n) = v
		a.n++
	}
}

// Resize sets the valid length. New elements keep whatever the storage held.
func (a *Array[T]) Resize(n int) {
	a.s.checkMutate("resize")
	if n < 0 || n > a.capacity {
		fatal(ErrOutOfRange, "resize to %d outside capacity %d", n, a.capacity)
	}
	a.n = n
}

// CopyFrom replaces the contents with src.
func (a *Array[T]) CopyFrom(src []T) {
	a.s.checkMutate("copy")
	if len(src) > a.capacity {
		fatal(ErrOutOfRange, "copy of %d exceeds capacity %d", len(src), a.capacity)
	}
	a.n = len(src)
	copy(a.unsafeSlice(), src)
}

// Slice returns a zero-copy view of the valid elements. The slice aliases
// the buffer's storage and must not be used after the buffer is released.
func (a *Array[T]) Slice() []T {
	a.s.checkAlive("slice")
	return a.unsafeSlice()
}

func (a *Array[T]) unsafeSlice() []T {
	if a.n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(a.base), a.n)
}

// Ptr returns the raw address of the first element and the valid length, for
// handing the contents to external numeric or graphics routines.
func (a *Array[T]) Ptr() (unsafe.Pointer, int) {
	a.s.checkAlive("ptr")
	return a.base, a.n
}

// ElemSize returns the size of one element in bytes.
func (a *Array[T]) ElemSize() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// Partition splits [0, Len()) into at most parts contiguous, non-overlapping
// ranges for parallel writers. The array holds write intent until every
// returned writer calls Done.
func (a *Array[T]) Partition(parts int) []*RangeWriter[T] {
	if parts < 1 {
		parts = 1
	}
	n := a.Len()
	if parts > n && n > 0 {
		parts = n
	}
	a.s.acquireWrite(int32(parts))

	writers := make([]*RangeWriter[T], 0, parts)
	step := (n + parts - 1) / parts
	for i := 0; i < parts; i++ {
		lo := min(i*step, n)
		hi := min(lo+step, n)
		writers = append(writers, &RangeWriter[T]{a: a, min: lo, max: hi})
	}
	return writers
}

// RangeWriter may read and write only the elements in [Min, Max) of its
// array. It stays usable until Done even if the owning buffer has been handed
// to ReleaseAfter, because physical release waits for its job.
type RangeWriter[T Element] struct {
	a        *Array[T]
	min, max int
	done     bool
}

// Min returns the first index of the range.
func (w *RangeWriter[T]) Min() int { return w.min }

// Max returns one past the last index of the range.
func (w *RangeWriter[T]) Max() int { return w.max }

func (w *RangeWriter[T]) check(i int) {
	if w.done || w.a.s.freed.Load() {
		fatal(ErrUseAfterFree, "range writer [%d, %d)", w.min, w.max)
	}
	if i < w.min || i >= w.max {
		fatal(ErrOutOfRange, "index %d outside restricted range [%d, %d)", i, w.min, w.max)
	}
}

// At returns element i.
func (w *RangeWriter[T]) At(i int) T {
	w.check(i)
	return *w.a.elem(i)
}

// Set overwrites element i.
func (w *RangeWriter[T]) Set(i int, v T) {
	w.check(i)
	*w.a.elem(i) = v
}

// Done returns the writer's share of the write intent.
func (w *RangeWriter[T]) Done() {
	if w.done {
		return
	}
	w.done = true
	w.a.s.writers.Add(-1)
}
