package extrude

import (
	"errors"
	"testing"

	"github.com/paulmach/orb/maptile"

	"github.com/Faultbox/tilemesh/internal/batch"
	"github.com/Faultbox/tilemesh/internal/config"
	"github.com/Faultbox/tilemesh/internal/feature"
	"github.com/Faultbox/tilemesh/internal/tiles"
	"github.com/Faultbox/tilemesh/pkg/math"
)

func testChain() *Chain {
	return NewChain(config.ExtrusionConfig{PropertyName: "height", ScaleFactor: 1, MinHeight: 3})
}

func testTile(scale float32) *tiles.Tile {
	return tiles.NewTile(maptile.New(1, 1, 2), scale)
}

// ring builds a closed ring on the XZ plane from (x, z) pairs.
func ring(xz ...float32) []math.Vec3 {
	var out []math.Vec3
	for i := 0; i+1 < len(xz); i += 2 {
		out = append(out, math.Vec3{X: xz[i], Z: xz[i+1]})
	}
	return append(out, out[0])
}

func box(props map[string]any) *feature.Feature {
	return &feature.Feature{
		Rings:      [][]math.Vec3{ring(0, 0, 10, 0, 10, 10, 0, 10)},
		Properties: props,
	}
}

func TestChainHeights(t *testing.T) {
	c := NewChain(config.ExtrusionConfig{PropertyName: "height", ScaleFactor: 1.5, MinHeight: 3})

	tests := []struct {
		name      string
		props     map[string]any
		scale     float32
		base, top float32
	}{
		{"property", map[string]any{"height": 10.0}, 1, 0, 15},
		{"tile scale", map[string]any{"height": 10.0}, 2, 0, 30},
		{"missing uses minimum", nil, 1, 0, 4.5},
		{"below minimum", map[string]any{"height": 1.0}, 1, 0, 4.5},
		{"string height", map[string]any{"height": "20"}, 1, 0, 30},
		{"min_height", map[string]any{"height": 10.0, "min_height": 4.0}, 1, 6, 15},
		{"min_height above top", map[string]any{"height": 10.0, "min_height": 40.0}, 1, 0, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, top := c.Heights(testTile(tt.scale), &feature.Feature{Properties: tt.props})
			if base != tt.base || top != tt.top {
				t.Errorf("Heights() = (%v, %v), want (%v, %v)", base, top, tt.base, tt.top)
			}
		})
	}
}

func TestChainBuildBox(t *testing.T) {
	frag, err := testChain().Build(testTile(1), box(map[string]any{"height": 12.0}))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if err := frag.Validate(); err != nil {
		t.Fatalf("fragment invalid: %v", err)
	}

	// 4 roof vertices plus 4 walls of 4 vertices.
	if frag.VertexCount() != 20 {
		t.Errorf("VertexCount() = %d, want 20", frag.VertexCount())
	}
	if got := len(frag.Triangles[RoofSubmesh]); got != 6 {
		t.Errorf("roof indices = %d, want 6", got)
	}
	if got := len(frag.Triangles[WallSubmesh]); got != 24 {
		t.Errorf("wall indices = %d, want 24", got)
	}
	if len(frag.UVs) != 1 || len(frag.UVs[0]) != frag.VertexCount() {
		t.Errorf("uv channel 0 has %d coordinates for %d vertices", len(frag.UVs[0]), frag.VertexCount())
	}
	for i := 0; i < 4; i++ {
		if frag.Vertices[i].Y != 12 {
			t.Errorf("roof vertex %d at y=%v, want 12", i, frag.Vertices[i].Y)
		}
	}
}

func TestRoofFacesUp(t *testing.T) {
	// Both windings, plus a concave L shape.
	footprints := [][]math.Vec3{
		ring(0, 0, 10, 0, 10, 10, 0, 10),
		ring(0, 0, 0, 10, 10, 10, 10, 0),
		ring(0, 0, 20, 0, 20, 5, 5, 5, 5, 20, 0, 20),
	}

	for i, fp := range footprints {
		frag, err := testChain().Build(testTile(1), &feature.Feature{Rings: [][]math.Vec3{fp}})
		if err != nil {
			t.Fatalf("footprint %d: Build failed: %v", i, err)
		}
		roof := frag.Triangles[RoofSubmesh]
		distinct := len(fp) - 1
		if len(roof) != 3*(distinct-2) {
			t.Errorf("footprint %d: %d roof indices, want %d", i, len(roof), 3*(distinct-2))
		}
		var area float32
		for j := 0; j < len(roof); j += 3 {
			a, b, c := frag.Vertices[roof[j]], frag.Vertices[roof[j+1]], frag.Vertices[roof[j+2]]
			n := b.Sub(a).Cross(c.Sub(a))
			if n.Y <= 0 {
				t.Errorf("footprint %d: roof triangle %d faces down", i, j/3)
			}
			area += n.Length() / 2
		}
		// The triangles must tile the footprint exactly.
		want := float32(100)
		if i == 2 {
			want = 175
		}
		if area < want-0.01 || area > want+0.01 {
			t.Errorf("footprint %d: roof area = %v, want %v", i, area, want)
		}
	}
}

func TestWallNormalsHorizontal(t *testing.T) {
	frag, err := testChain().Build(testTile(1), box(map[string]any{"height": 5.0}))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	for i := 4; i < frag.VertexCount(); i++ {
		n := frag.Normals[i]
		if n.Y != 0 || n.Length() < 0.999 || n.Length() > 1.001 {
			t.Errorf("wall normal %d = %v, want horizontal unit vector", i, n)
		}
	}
}

func TestChainDegenerate(t *testing.T) {
	tests := []struct {
		name string
		f    *feature.Feature
	}{
		{"no rings", &feature.Feature{}},
		{"two points", &feature.Feature{Rings: [][]math.Vec3{ring(0, 0, 1, 1)}}},
		{"collinear", &feature.Feature{Rings: [][]math.Vec3{ring(0, 0, 1, 0, 2, 0)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := testChain().Build(testTile(1), tt.f); !errors.Is(err, ErrDegenerate) {
				t.Errorf("Build() error = %v, want ErrDegenerate", err)
			}
		})
	}
}

func TestChainFeedsAccumulator(t *testing.T) {
	var sealed int
	acc := batch.New(testTile(1), batch.MaterializerFunc(func(s *batch.Sealed) error {
		sealed = s.Buffer.Vertices().Len()
		s.Buffer.Release()
		return nil
	}), nil)

	for i := 0; i < 3; i++ {
		frag, err := testChain().Build(testTile(1), box(nil))
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		if d, err := acc.Add(frag); err != nil || d != batch.Merge {
			t.Fatalf("Add() = %v, %v", d, err)
		}
	}
	if err := acc.Finish(); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if sealed != 60 {
		t.Errorf("sealed %d vertices, want 60", sealed)
	}
}
