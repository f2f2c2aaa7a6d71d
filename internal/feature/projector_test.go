package feature

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"github.com/Faultbox/tilemesh/internal/tiles"
	"github.com/Faultbox/tilemesh/pkg/math"
)

func square(x0, y0, x1, y1 float64) [][]orb.Point {
	return [][]orb.Point{{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}}
}

func TestProjectOrigin(t *testing.T) {
	p := Projector{Extent: 4096, Size: [2]float64{200, 100}, Scale: 0.5}

	rings, ok := p.Project([][]orb.Point{{{0, 0}}})
	if !ok {
		t.Fatal("Project() rejected the origin")
	}
	got := rings[0][0]
	want := math.Vec3{X: -50, Y: 0, Z: 25}
	if got != want {
		t.Errorf("Project((0,0)) = %v, want %v", got, want)
	}
}

func TestProjectCorners(t *testing.T) {
	p := Projector{Extent: 4096, Size: [2]float64{200, 100}, Scale: 1}

	tests := []struct {
		in   orb.Point
		want math.Vec3
	}{
		{orb.Point{4096, 4096}, math.Vec3{X: 100, Z: -50}},
		{orb.Point{2048, 2048}, math.Vec3{}},
		{orb.Point{4096, 0}, math.Vec3{X: 100, Z: 50}},
	}

	for _, tc := range tests {
		rings, ok := p.Project([][]orb.Point{{tc.in}})
		if !ok {
			t.Fatalf("Project(%v) rejected", tc.in)
		}
		if rings[0][0] != tc.want {
			t.Errorf("Project(%v) = %v, want %v", tc.in, rings[0][0], tc.want)
		}
	}
}

func TestProjectEmpty(t *testing.T) {
	p := Projector{Extent: 4096, Size: [2]float64{1, 1}, Scale: 1}
	if _, ok := p.Project(nil); ok {
		t.Error("Project(nil) should be rejected")
	}
	if _, ok := p.Project([][]orb.Point{{}}); ok {
		t.Error("Project(empty ring) should be rejected")
	}
}

func TestProjectZeroExtent(t *testing.T) {
	for _, mode := range []ClipMode{ClipAtEdge, StableIdentity} {
		p := Projector{Size: [2]float64{1, 1}, Scale: 1, Mode: mode}
		if out, ok := p.Project(square(0, 0, 10, 10)); ok {
			t.Errorf("%v: Project with zero extent = %v, want rejected", mode, out)
		}
	}
}

func TestProjectStableIdentity(t *testing.T) {
	p := Projector{Extent: 4096, Size: [2]float64{1, 1}, Scale: 1, Mode: StableIdentity}

	tests := []struct {
		name  string
		rings [][]orb.Point
		keep  bool
	}{
		{"inside", square(10, 10, 100, 100), true},
		{"on edge", square(4096, 0, 4200, 50), true},
		{"first point left", square(-5, 10, 100, 100), false},
		{"first point below", square(10, 4097, 100, 5000), false},
		// Only the first point is tested: a footprint that starts inside and
		// spills over the edge is kept.
		{"spills over edge", square(4000, 4000, 4500, 4500), true},
		// A footprint starting outside is dropped even if mostly inside.
		{"starts outside", [][]orb.Point{{{-1, 10}, {4000, 10}, {4000, 4000}, {10, 4000}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := p.Project(tt.rings)
			if ok != tt.keep {
				t.Errorf("Project() ok = %v, want %v", ok, tt.keep)
			}
		})
	}

	// ClipAtEdge never tests bounds.
	p.Mode = ClipAtEdge
	if _, ok := p.Project(square(-5, 10, 100, 100)); !ok {
		t.Error("ClipAtEdge should not reject out-of-range points")
	}
}

func TestNewProjector(t *testing.T) {
	tile := tiles.NewTile(maptile.New(19295, 24640, 16), 2)
	p := NewProjector(tile, 4096, StableIdentity)

	if p.Extent != 4096 || p.Scale != 2 || p.Mode != StableIdentity {
		t.Errorf("NewProjector() = %+v", p)
	}
	if p.Size != tile.Size() {
		t.Errorf("Size = %v, want %v", p.Size, tile.Size())
	}

	f, ok := p.Apply(Raw{ID: 7, Rings: square(0, 0, 4096, 4096), Properties: map[string]any{"height": 12.0}})
	if !ok {
		t.Fatal("Apply() rejected a tile-sized footprint")
	}
	if f.ID != 7 || len(f.Rings[0]) != 5 || f.Properties["height"] != 12.0 {
		t.Errorf("Apply() = %+v", f)
	}
}

func TestClipModeString(t *testing.T) {
	if ClipAtEdge.String() != "clip-at-edge" || StableIdentity.String() != "stable-identity" {
		t.Errorf("unexpected names %q, %q", ClipAtEdge, StableIdentity)
	}
}
