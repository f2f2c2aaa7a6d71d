package render

import (
	gomath "math"

	"github.com/Faultbox/tilemesh/pkg/math"
)

// Camera orbits a center point above the tile plane.
type Camera struct {
	Center    math.Vec3
	Distance  float32
	Pitch     float32 // radians above the horizon
	Yaw       float32 // radians around +Y
	FovY      float32
	Near, Far float32

	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	DragSensitivity float32
	ZoomSensitivity float32
}

// NewCamera returns a camera looking down at the origin.
func NewCamera() *Camera {
	return &Camera{
		Distance:        500,
		Pitch:           0.6,
		FovY:            float32(gomath.Pi / 4),
		Near:            1,
		Far:             20000,
		MinDistance:     20,
		MaxDistance:     15000,
		MinPitch:        0.1,
		MaxPitch:        1.5,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
	}
}

// Position returns the camera position in world space.
func (c *Camera) Position() math.Vec3 {
	cosP := float32(gomath.Cos(float64(c.Pitch)))
	return math.Vec3{
		X: c.Center.X + c.Distance*cosP*float32(gomath.Sin(float64(c.Yaw))),
		Y: c.Center.Y + c.Distance*float32(gomath.Sin(float64(c.Pitch))),
		Z: c.Center.Z + c.Distance*cosP*float32(gomath.Cos(float64(c.Yaw))),
	}
}

// ViewProjection returns projection * view for a viewport aspect ratio.
func (c *Camera) ViewProjection(aspect float32) math.Mat4 {
	view := math.LookAt(c.Position(), c.Center, math.Vec3{Y: 1})
	return math.Perspective(c.FovY, aspect, c.Near, c.Far).Mul(view)
}

// Drag rotates the camera by a mouse delta in pixels.
func (c *Camera) Drag(dx, dy float32) {
	c.Yaw -= dx * c.DragSensitivity
	c.Pitch = clamp(c.Pitch+dy*c.DragSensitivity, c.MinPitch, c.MaxPitch)
}

// Zoom moves the camera towards the center for positive wheel deltas.
func (c *Camera) Zoom(delta float32) {
	c.Distance = clamp(c.Distance-delta*c.Distance*c.ZoomSensitivity, c.MinDistance, c.MaxDistance)
}

// Fit centers the camera on the origins of every mesh in r.
func (c *Camera) Fit(r *Registry) {
	if r.Len() == 0 {
		return
	}
	first := r.meshes[0].Transform.Origin()
	lo, hi := first, first
	for _, m := range r.meshes[1:] {
		o := m.Transform.Origin()
		lo.X, hi.X = min(lo.X, o.X), max(hi.X, o.X)
		lo.Z, hi.Z = min(lo.Z, o.Z), max(hi.Z, o.Z)
	}
	c.Center = math.Vec3{X: (lo.X + hi.X) / 2, Z: (lo.Z + hi.Z) / 2}
	size := max(hi.X-lo.X, hi.Z-lo.Z)
	c.Distance = clamp(size, c.MinDistance, c.MaxDistance)
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
