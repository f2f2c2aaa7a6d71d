package extrude

import (
	"fmt"

	"github.com/Faultbox/tilemesh/pkg/math"
)

// Roof triangulates the outer ring as a flat cap at the building top.
// Holes are not cut out of the roof.
type Roof struct{}

// Modify appends the roof to submesh 0.
func (Roof) Modify(c *Context) error {
	ring := openRing(c.Feature.Rings[0])
	if len(ring) < 3 {
		return fmt.Errorf("%w: %d distinct roof points", ErrDegenerate, len(ring))
	}

	flat := make([]math.Vec2, len(ring))
	for i, p := range ring {
		flat[i] = p.XZ()
	}
	tris := earClip(flat)
	if len(tris) == 0 {
		return fmt.Errorf("%w: roof has no area", ErrDegenerate)
	}

	frag := c.Fragment
	base := len(frag.Vertices)
	up := math.Vec3{Y: 1}
	for i, p := range ring {
		frag.Vertices = append(frag.Vertices, math.Vec3{X: p.X, Y: c.Top, Z: p.Z})
		frag.Normals = append(frag.Normals, up)
		frag.UVs[0] = append(frag.UVs[0], flat[i])
	}
	for _, idx := range tris {
		frag.Triangles[RoofSubmesh] = append(frag.Triangles[RoofSubmesh], base+idx)
	}
	return nil
}

// openRing drops the closing point of a closed ring.
func openRing(ring []math.Vec3) []math.Vec3 {
	if n := len(ring); n > 1 && ring[0] == ring[n-1] {
		return ring[:n-1]
	}
	return ring
}

// cross2 is the z component of (b-a) x (c-a) on the plane.
func cross2(a, b, c math.Vec2) float32 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

func signedArea(pts []math.Vec2) float32 {
	var area float32
	for i := range pts {
		j := (i + 1) % len(pts)
		area += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return area / 2
}

func inTriangle(p, a, b, c math.Vec2) bool {
	d1, d2, d3 := cross2(a, b, p), cross2(b, c, p), cross2(c, a, p)
	neg := d1 < 0 || d2 < 0 || d3 < 0
	pos := d1 > 0 || d2 > 0 || d3 > 0
	return !(neg && pos)
}

// earClip triangulates a simple polygon and returns index triples wound so
// each triangle faces +Y once lifted back onto the XZ plane.
func earClip(pts []math.Vec2) []int {
	n := len(pts)
	area := signedArea(pts)
	if area == 0 {
		return nil
	}
	// Work counter-clockwise in (x, z).
	idx := make([]int, n)
	for i := range idx {
		if area > 0 {
			idx[i] = i
		} else {
			idx[i] = n - 1 - i
		}
	}

	out := make([]int, 0, 3*(n-2))
	emit := func(a, b, c int) {
		// A counter-clockwise (x, z) triangle faces -Y.
		out = append(out, a, c, b)
	}

	for guard := 0; len(idx) > 3 && guard < n*n; guard++ {
		clipped := false
		for i := range idx {
			prev, cur, next := idx[(i+len(idx)-1)%len(idx)], idx[i], idx[(i+1)%len(idx)]
			a, b, c := pts[prev], pts[cur], pts[next]
			if cross2(a, b, c) <= 0 {
				continue
			}
			ear := true
			for _, o := range idx {
				if o == prev || o == cur || o == next {
					continue
				}
				if inTriangle(pts[o], a, b, c) {
					ear = false
					break
				}
			}
			if !ear {
				continue
			}
			emit(prev, cur, next)
			idx = append(idx[:i], idx[i+1:]...)
			clipped = true
			break
		}
		if !clipped {
			break
		}
	}

	// Whatever is left (normally one triangle) closes as a fan.
	for i := 1; i+1 < len(idx); i++ {
		emit(idx[0], idx[i], idx[i+1])
	}
	return out
}
