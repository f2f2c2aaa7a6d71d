// Package meshbuf provides off-heap storage for mesh arrays with explicit
// ownership: a Buffer is allocated once with a fixed layout, owned by one
// scope at a time and released exactly once.
package meshbuf

import (
	"unsafe"

	"github.com/pkg/errors"

	"github.com/Faultbox/tilemesh/pkg/math"
)

// Index is the triangle index type. Batches stay under 65,000 vertices so
// 16-bit indices always suffice.
type Index = uint16

// Layout fixes the capacity of each array in a Buffer.
type Layout struct {
	Vertices  int
	Normals   int
	Triangles []int // index capacity per submesh
	UVs       []int // coordinate capacity per uv channel
}

var (
	vec3Size  = int64(unsafe.Sizeof(math.Vec3{}))
	vec2Size  = int64(unsafe.Sizeof(math.Vec2{}))
	indexSize = int64(unsafe.Sizeof(Index(0)))
)

// Bytes returns the storage the layout needs, or ErrAllocation if any count
// is negative or the total exceeds MaxBytes.
func (l Layout) Bytes() (int64, error) {
	var total int64
	add := func(name string, n int, size int64) error {
		if n < 0 {
			return errors.Wrapf(ErrAllocation, "negative %s length %d", name, n)
		}
		if int64(n) > (MaxBytes-total)/size {
			return errors.Wrapf(ErrAllocation, "%s length %d exceeds %d bytes", name, n, int64(MaxBytes))
		}
		total += align(int64(n) * size)
		if total > MaxBytes {
			return errors.Wrapf(ErrAllocation, "layout exceeds %d bytes at %s", int64(MaxBytes), name)
		}
		return nil
	}
	if err := add("vertices", l.Vertices, vec3Size); err != nil {
		return 0, err
	}
	if err := add("normals", l.Normals, vec3Size); err != nil {
		return 0, err
	}
	for _, n := range l.UVs {
		if err := add("uv", n, vec2Size); err != nil {
			return 0, err
		}
	}
	for _, n := range l.Triangles {
		if err := add("triangles", n, indexSize); err != nil {
			return 0, err
		}
	}
	return total, nil
}

func align(n int64) int64 {
	return (n + 7) &^ 7
}

// Buffer owns the storage for one mesh: vertices, normals, one index array per
// submesh and one coordinate array per uv channel. Pass it by pointer; the
// value must not be copied.
type Buffer struct {
	noCopy noCopy

	s         *safety
	mem       []byte
	vertices  *Array[math.Vec3]
	normals   *Array[math.Vec3]
	triangles []*Array[Index]
	uvs       []*Array[math.Vec2]
}

// New allocates a Buffer with the given layout.
func New(layout Layout) (*Buffer, error) {
	size, err := layout.Bytes()
	if err != nil {
		return nil, err
	}
	mem, err := allocate(size)
	if err != nil {
		return nil, err
	}

	b := &Buffer{s: &safety{}, mem: mem}
	var off int64
	carve := func(n int, elem int64) []byte {
		span := align(int64(n) * elem)
		if span == 0 {
			return nil
		}
		region := mem[off : off+span]
		off += span
		return region
	}

	b.vertices = newArray[math.Vec3](b.s, carve(layout.Vertices, vec3Size), layout.Vertices)
	b.normals = newArray[math.Vec3](b.s, carve(layout.Normals, vec3Size), layout.Normals)
	for _, n := range layout.UVs {
		b.uvs = append(b.uvs, newArray[math.Vec2](b.s, carve(n, vec2Size), n))
	}
	for _, n := range layout.Triangles {
		b.triangles = append(b.triangles, newArray[Index](b.s, carve(n, indexSize), n))
	}
	return b, nil
}

// Vertices returns the vertex position array.
func (b *Buffer) Vertices() *Array[math.Vec3] {
	b.s.checkAlive("vertices")
	return b.vertices
}

// Normals returns the normal array.
func (b *Buffer) Normals() *Array[math.Vec3] {
	b.s.checkAlive("normals")
	return b.normals
}

// Triangles returns the index array of one submesh.
func (b *Buffer) Triangles(submesh int) *Array[Index] {
	b.s.checkAlive("triangles")
	if uint(submesh) >= uint(len(b.triangles)) {
		fatal(ErrOutOfRange, "submesh %d of %d", submesh, len(b.triangles))
	}
	return b.triangles[submesh]
}

// UVs returns the coordinate array of one uv channel.
func (b *Buffer) UVs(channel int) *Array[math.Vec2] {
	b.s.checkAlive("uvs")
	if uint(channel) >= uint(len(b.uvs)) {
		fatal(ErrOutOfRange, "uv channel %d of %d", channel, len(b.uvs))
	}
	return b.uvs[channel]
}

// SubmeshCount returns the number of index arrays.
func (b *Buffer) SubmeshCount() int {
	b.s.checkAlive("submesh count")
	return len(b.triangles)
}

// UVChannelCount returns the number of uv channels.
func (b *Buffer) UVChannelCount() int {
	b.s.checkAlive("uv channel count")
	return len(b.uvs)
}

// Bytes returns the size of the owned storage.
func (b *Buffer) Bytes() int {
	b.s.checkAlive("bytes")
	return len(b.mem)
}

// Layout returns a layout sized to the current lengths.
func (b *Buffer) Layout() Layout {
	b.s.checkAlive("layout")
	l := Layout{Vertices: b.vertices.n, Normals: b.normals.n}
	for _, t := range b.triangles {
		l.Triangles = append(l.Triangles, t.n)
	}
	for _, uv := range b.uvs {
		l.UVs = append(l.UVs, uv.n)
	}
	return l
}

// Clone copies the valid contents into a new, tightly sized Buffer. This is
// the only way contents are duplicated.
func (b *Buffer) Clone() (*Buffer, error) {
	g := b.BeginRead()
	defer g.Done()

	c, err := New(b.Layout())
	if err != nil {
		return nil, err
	}
	c.vertices.CopyFrom(b.vertices.unsafeSlice())
	c.normals.CopyFrom(b.normals.unsafeSlice())
	for i, t := range b.triangles {
		c.triangles[i].CopyFrom(t.unsafeSlice())
	}
	for i, uv := range b.uvs {
		c.uvs[i].CopyFrom(uv.unsafeSlice())
	}
	return c, nil
}

// Clear sets every array length to zero and keeps the storage.
func (b *Buffer) Clear() {
	b.s.checkMutate("clear")
	b.vertices.n = 0
	b.normals.n = 0
	for _, t := range b.triangles {
		t.n = 0
	}
	for _, uv := range b.uvs {
		uv.n = 0
	}
}

// BeginRead declares read intent for concurrent readers.
func (b *Buffer) BeginRead() *ReadGuard {
	b.s.acquireRead()
	return &ReadGuard{s: b.s}
}

// BeginWrite declares exclusive write intent.
func (b *Buffer) BeginWrite() *WriteGuard {
	b.s.acquireWrite(1)
	return &WriteGuard{s: b.s}
}

// Released reports whether Release or ReleaseAfter has been called.
func (b *Buffer) Released() bool {
	return b.s.released.Load()
}

// Release frees the storage now. Releasing twice panics with
// ErrDoubleDispose; releasing while guards are held panics with
// ErrAccessConflict.
func (b *Buffer) Release() {
	b.s.release("buffer", false)
	b.freeStorage()
}

// ReleaseAfter invalidates the handle immediately and frees the storage once
// deps complete. Range writers handed out before the call stay valid until
// then; active readers panic with ErrAccessConflict. The returned job
// reports the first dependency error, if any.
func (b *Buffer) ReleaseAfter(deps ...*Job) *Job {
	b.s.release("buffer", true)
	j := &Job{done: make(chan struct{})}
	go func() {
		defer close(j.done)
		j.err = waitAll(deps)
		b.freeStorage()
	}()
	return j
}

func (b *Buffer) freeStorage() {
	b.s.freed.Store(true)
	free(b.mem)
	b.mem = nil
}
