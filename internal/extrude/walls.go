package extrude

import (
	"github.com/Faultbox/tilemesh/pkg/math"
)

// Walls adds one quad per ring edge between the base and the top.
type Walls struct{}

// Modify appends walls for every ring to submesh 1. Nothing is added when
// the building has no height.
func (Walls) Modify(c *Context) error {
	if c.Top <= c.Base {
		return nil
	}
	frag := c.Fragment
	height := c.Top - c.Base
	for _, r := range c.Feature.Rings {
		ring := openRing(r)
		if len(ring) < 2 {
			continue
		}
		var run float32
		for i := range ring {
			p0, p1 := ring[i], ring[(i+1)%len(ring)]
			edge := p1.Sub(p0)
			length := edge.Length()
			if length == 0 {
				continue
			}

			b0 := math.Vec3{X: p0.X, Y: c.Base, Z: p0.Z}
			b1 := math.Vec3{X: p1.X, Y: c.Base, Z: p1.Z}
			t1 := math.Vec3{X: p1.X, Y: c.Top, Z: p1.Z}
			t0 := math.Vec3{X: p0.X, Y: c.Top, Z: p0.Z}
			normal := b1.Sub(b0).Cross(t1.Sub(b0)).Normalize()

			base := len(frag.Vertices)
			frag.Vertices = append(frag.Vertices, b0, b1, t1, t0)
			frag.Normals = append(frag.Normals, normal, normal, normal, normal)
			frag.UVs[0] = append(frag.UVs[0],
				math.Vec2{X: run, Y: 0},
				math.Vec2{X: run + length, Y: 0},
				math.Vec2{X: run + length, Y: height},
				math.Vec2{X: run, Y: height},
			)
			frag.Triangles[WallSubmesh] = append(frag.Triangles[WallSubmesh],
				base, base+1, base+2,
				base, base+2, base+3,
			)
			run += length
		}
	}
	return nil
}
