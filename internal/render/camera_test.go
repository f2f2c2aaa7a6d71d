package render

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/tilemesh/pkg/math"
)

func TestCameraPosition(t *testing.T) {
	c := NewCamera()
	c.Center = math.Vec3{X: 10, Z: -5}
	c.Distance = 100
	c.Pitch = float32(gomath.Pi / 2 * 0.999)
	c.Yaw = 0

	p := c.Position()
	if p.Y < 99 || p.Y > 100 {
		t.Errorf("Position().Y = %v, want about 100", p.Y)
	}
	if d := p.Sub(c.Center).Length(); d < 99.99 || d > 100.01 {
		t.Errorf("distance to center = %v, want 100", d)
	}
}

func TestCameraClamps(t *testing.T) {
	c := NewCamera()

	c.Drag(0, 1e6)
	if c.Pitch != c.MaxPitch {
		t.Errorf("Pitch = %v, want %v", c.Pitch, c.MaxPitch)
	}
	c.Drag(0, -1e6)
	if c.Pitch != c.MinPitch {
		t.Errorf("Pitch = %v, want %v", c.Pitch, c.MinPitch)
	}

	for i := 0; i < 100; i++ {
		c.Zoom(1)
	}
	if c.Distance != c.MinDistance {
		t.Errorf("Distance = %v, want %v", c.Distance, c.MinDistance)
	}
}

func TestCameraFit(t *testing.T) {
	r := NewRegistry(nil)
	r.meshes = []*Mesh{
		{Transform: math.Translate(-100, 0, 50)},
		{Transform: math.Translate(300, 0, -150)},
	}

	c := NewCamera()
	c.Fit(r)
	if c.Center.X != 100 || c.Center.Z != -50 {
		t.Errorf("Center = %+v, want (100, 0, -50)", c.Center)
	}
	if c.Distance != 400 {
		t.Errorf("Distance = %v, want 400", c.Distance)
	}
}
