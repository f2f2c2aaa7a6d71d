package batch

import (
	"errors"
	"fmt"

	"github.com/Faultbox/tilemesh/pkg/math"
)

// ErrInvalidFragment is returned for a fragment whose arrays do not line up.
var ErrInvalidFragment = errors.New("invalid fragment")

// Fragment is the mesh built for one feature. Indices are local to the
// fragment and start at 0.
type Fragment struct {
	Vertices  []math.Vec3
	Normals   []math.Vec3 // empty or one per vertex
	Triangles [][]int     // one index group per submesh
	UVs       [][]math.Vec2
}

// VertexCount returns the number of vertices.
func (f *Fragment) VertexCount() int {
	return len(f.Vertices)
}

// Validate checks normals and indices against the vertex count.
func (f *Fragment) Validate() error {
	n := len(f.Vertices)
	if len(f.Normals) != 0 && len(f.Normals) != n {
		return fmt.Errorf("%w: %d normals for %d vertices", ErrInvalidFragment, len(f.Normals), n)
	}
	for g, group := range f.Triangles {
		if len(group)%3 != 0 {
			return fmt.Errorf("%w: submesh %d has %d indices", ErrInvalidFragment, g, len(group))
		}
		for _, idx := range group {
			if idx < 0 || idx >= n {
				return fmt.Errorf("%w: submesh %d index %d outside %d vertices", ErrInvalidFragment, g, idx, n)
			}
		}
	}
	return nil
}

// Reset empties the fragment and keeps its storage.
func (f *Fragment) Reset() {
	f.Vertices = f.Vertices[:0]
	f.Normals = f.Normals[:0]
	for i := range f.Triangles {
		f.Triangles[i] = f.Triangles[i][:0]
	}
	f.Triangles = f.Triangles[:0]
	for i := range f.UVs {
		f.UVs[i] = f.UVs[i][:0]
	}
	f.UVs = f.UVs[:0]
}
