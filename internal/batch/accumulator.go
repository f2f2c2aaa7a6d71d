package batch

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/tilemesh/internal/tiles"
	"github.com/Faultbox/tilemesh/pkg/math"
	"github.com/Faultbox/tilemesh/pkg/meshbuf"
)

// Sealed is a finished draw unit. The Buffer belongs to whoever accepts it
// in Materialize.
type Sealed struct {
	Tile      *tiles.Tile
	Sequence  int
	Transform math.Mat4
	Buffer    *meshbuf.Buffer
}

// Name identifies the batch within its tile.
func (s *Sealed) Name() string {
	return fmt.Sprintf("Building %s#%d", s.Tile.Key(), s.Sequence)
}

// ErrClosed is returned (possibly wrapped) by a Materializer that is shutting
// down. The pipeline treats it as cancellation, not failure.
var ErrClosed = errors.New("materializer closed")

// Materializer receives sealed batches. On success it owns the buffer; on
// error the buffer is released by the caller.
type Materializer interface {
	Materialize(s *Sealed) error
}

// MaterializerFunc adapts a function to Materializer.
type MaterializerFunc func(s *Sealed) error

// Materialize calls f.
func (f MaterializerFunc) Materialize(s *Sealed) error { return f(s) }

// Accumulator holds the open batch of one tile. It is not safe for
// concurrent use: exactly one goroutine merges into it.
type Accumulator struct {
	tile *tiles.Tile
	out  Materializer
	log  *zap.Logger

	vertices  []math.Vec3
	normals   []math.Vec3
	triangles [][]int
	uvs       [][]math.Vec2
	scratch   []meshbuf.Index

	seq int
}

// New returns an empty accumulator for tile.
func New(tile *tiles.Tile, out Materializer, log *zap.Logger) *Accumulator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Accumulator{tile: tile, out: out, log: log}
}

// Vertices returns the vertex count of the open batch.
func (a *Accumulator) Vertices() int {
	return len(a.vertices)
}

// Sealed returns how many batches have been sealed.
func (a *Accumulator) Sealed() int {
	return a.seq
}

// Add offers a fragment to the open batch. A returned error comes from
// sealing the previous batch; the fragment still seeds the new one.
func (a *Accumulator) Add(f *Fragment) (Decision, error) {
	if err := f.Validate(); err != nil {
		return Discard, err
	}

	d := Decide(len(a.vertices), f.VertexCount())
	switch d {
	case Reject:
		a.log.Warn("fragment exceeds batch budget",
			zap.String("tile", a.tile.Key()),
			zap.Int("vertices", f.VertexCount()))
	case Merge:
		a.merge(f)
	case SealAndStart:
		var err error
		if len(a.vertices) > MinVertices {
			err = a.seal()
		}
		a.reset()
		a.merge(f)
		return d, err
	}
	return d, nil
}

// Finish seals the open batch if it holds enough vertices and leaves the
// accumulator empty either way.
func (a *Accumulator) Finish() error {
	defer a.reset()
	if len(a.vertices) > MinVertices {
		return a.seal()
	}
	return nil
}

// Drop discards the open batch without sealing it.
func (a *Accumulator) Drop() {
	a.reset()
}

func (a *Accumulator) merge(f *Fragment) {
	base := len(a.vertices)
	a.vertices = append(a.vertices, f.Vertices...)
	if len(f.Normals) == len(f.Vertices) {
		a.normals = append(a.normals, f.Normals...)
	} else {
		for range f.Vertices {
			a.normals = append(a.normals, math.Vec3{})
		}
	}

	a.triangles = grow(a.triangles, len(f.Triangles))
	for g, group := range f.Triangles {
		dst := a.triangles[g]
		for _, idx := range group {
			dst = append(dst, idx+base)
		}
		a.triangles[g] = dst
	}

	a.uvs = grow(a.uvs, len(f.UVs))
	for c, channel := range f.UVs {
		a.uvs[c] = append(a.uvs[c], channel...)
	}
}

// grow extends s to n entries, reusing emptied inner slices from earlier
// batches.
func grow[T any](s [][]T, n int) [][]T {
	for len(s) < n {
		if len(s) < cap(s) {
			s = s[:len(s)+1]
			s[len(s)-1] = s[len(s)-1][:0]
			continue
		}
		s = append(s, nil)
	}
	return s
}

func (a *Accumulator) reset() {
	a.vertices = a.vertices[:0]
	a.normals = a.normals[:0]
	for i := range a.triangles {
		a.triangles[i] = a.triangles[i][:0]
	}
	a.triangles = a.triangles[:0]
	for i := range a.uvs {
		a.uvs[i] = a.uvs[i][:0]
	}
	a.uvs = a.uvs[:0]
}

// seal copies the open batch into a new buffer and hands it on.
func (a *Accumulator) seal() error {
	layout := meshbuf.Layout{
		Vertices: len(a.vertices),
		Normals:  len(a.normals),
	}
	for _, g := range a.triangles {
		layout.Triangles = append(layout.Triangles, len(g))
	}
	for _, c := range a.uvs {
		layout.UVs = append(layout.UVs, len(c))
	}

	buf, err := meshbuf.New(layout)
	if err != nil {
		return fmt.Errorf("allocating batch for %s: %w", a.tile.Key(), err)
	}

	w := buf.BeginWrite()
	buf.Vertices().CopyFrom(a.vertices)
	buf.Normals().CopyFrom(a.normals)
	for g, group := range a.triangles {
		a.scratch = a.scratch[:0]
		for _, idx := range group {
			a.scratch = append(a.scratch, meshbuf.Index(idx))
		}
		buf.Triangles(g).CopyFrom(a.scratch)
	}
	for c, channel := range a.uvs {
		buf.UVs(c).CopyFrom(channel)
	}
	w.Done()

	s := &Sealed{
		Tile:      a.tile,
		Sequence:  a.seq,
		Transform: math.TranslateVec(a.tile.Position),
		Buffer:    buf,
	}
	a.seq++

	if err := a.out.Materialize(s); err != nil {
		buf.Release()
		return fmt.Errorf("materializing %s: %w", s.Name(), err)
	}
	a.log.Debug("sealed batch",
		zap.String("tile", a.tile.Key()),
		zap.Int("sequence", s.Sequence),
		zap.Int("vertices", layout.Vertices),
		zap.Int("submeshes", len(layout.Triangles)))
	return nil
}
