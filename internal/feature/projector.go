package feature

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/Faultbox/tilemesh/internal/tiles"
	"github.com/Faultbox/tilemesh/pkg/math"
)

// ClipMode selects how features crossing a tile edge are handled.
type ClipMode int

const (
	// ClipAtEdge uses geometry the source already clipped to the tile.
	ClipAtEdge ClipMode = iota
	// StableIdentity uses unclipped geometry so a building keeps one identity
	// across tiles, and drops features whose first point lies outside the
	// tile.
	StableIdentity
)

func (m ClipMode) String() string {
	switch m {
	case ClipAtEdge:
		return "clip-at-edge"
	case StableIdentity:
		return "stable-identity"
	default:
		return fmt.Sprintf("ClipMode(%d)", int(m))
	}
}

// Projector maps extent-space rings onto the tile's local XZ plane.
type Projector struct {
	Extent float64
	Size   [2]float64
	Scale  float64
	Mode   ClipMode
}

// NewProjector returns a projector for tile.
func NewProjector(tile *tiles.Tile, extent int, mode ClipMode) Projector {
	return Projector{
		Extent: float64(extent),
		Size:   tile.Size(),
		Scale:  float64(tile.Scale),
		Mode:   mode,
	}
}

// Project converts rings to tile-local points with y = 0. It returns false
// for empty geometry, for a non-positive extent and, in StableIdentity mode, when the first point of
// the first ring lies outside [0, Extent] on either axis. Only that one point
// is tested: a feature starting inside the tile and extending past it is
// kept.
func (p Projector) Project(rings [][]orb.Point) ([][]math.Vec3, bool) {
	if len(rings) == 0 || len(rings[0]) == 0 || p.Extent <= 0 {
		return nil, false
	}
	if p.Mode == StableIdentity {
		first := rings[0][0]
		if first[0] < 0 || first[0] > p.Extent || first[1] < 0 || first[1] > p.Extent {
			return nil, false
		}
	}

	sx, sy := p.Size[0], p.Size[1]
	out := make([][]math.Vec3, 0, len(rings))
	for _, ring := range rings {
		pts := make([]math.Vec3, len(ring))
		for i, pt := range ring {
			pts[i] = math.Vec3{
				X: float32((pt[0]/p.Extent*sx - sx/2) * p.Scale),
				Z: float32(((p.Extent-pt[1])/p.Extent*sy - sy/2) * p.Scale),
			}
		}
		out = append(out, pts)
	}
	return out, true
}

// Apply projects a raw feature. ok is false when the feature is dropped.
func (p Projector) Apply(raw Raw) (*Feature, bool) {
	rings, ok := p.Project(raw.Rings)
	if !ok {
		return nil, false
	}
	return &Feature{ID: raw.ID, Rings: rings, Properties: raw.Properties}, true
}
