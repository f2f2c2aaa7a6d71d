package tiles

import (
	"fmt"
	"sync/atomic"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/project"

	"github.com/Faultbox/tilemesh/pkg/math"
)

// State is the lifecycle stage of a tile.
type State int32

// Tile states. Loaded, Cancelled and Errored are terminal.
const (
	Pending State = iota
	Loading
	Loaded
	Cancelled
	Errored
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Loading:
		return "Loading"
	case Loaded:
		return "Loaded"
	case Cancelled:
		return "Cancelled"
	case Errored:
		return "Errored"
	default:
		return fmt.Sprintf("Unknown(%d)", int32(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Loaded || s == Cancelled || s == Errored
}

// Tile describes one tile being built. The view side sets Position and may
// Cancel at any time; the builder drives the other transitions.
type Tile struct {
	ID       maptile.Tile
	Bounds   orb.Bound // Web-Mercator metres
	Scale    float32
	Position math.Vec3

	state atomic.Int32
}

// NewTile returns a pending tile with Mercator bounds for id.
func NewTile(id maptile.Tile, scale float32) *Tile {
	geo := id.Bound()
	return &Tile{
		ID: id,
		Bounds: orb.Bound{
			Min: project.Point(geo.Min, project.WGS84.ToMercator),
			Max: project.Point(geo.Max, project.WGS84.ToMercator),
		},
		Scale: scale,
	}
}

// Place sets Position to the tile centre relative to origin, a Mercator
// point, scaled the same way as the tile's geometry.
func (t *Tile) Place(origin orb.Point) {
	c := t.Bounds.Center()
	s := float64(t.Scale)
	t.Position = math.Vec3{
		X: float32((c[0] - origin[0]) * s),
		Z: float32((c[1] - origin[1]) * s),
	}
}

// Zoom returns the tile's zoom level.
func (t *Tile) Zoom() maptile.Zoom {
	return t.ID.Z
}

// Size returns the width and height of the bounds.
func (t *Tile) Size() [2]float64 {
	return [2]float64{t.Bounds.Max[0] - t.Bounds.Min[0], t.Bounds.Max[1] - t.Bounds.Min[1]}
}

// Key returns "z/x/y".
func (t *Tile) Key() string {
	return Key(t.ID)
}

// Key formats a tile id as "z/x/y".
func Key(id maptile.Tile) string {
	return fmt.Sprintf("%d/%d/%d", id.Z, id.X, id.Y)
}

// State returns the current state.
func (t *Tile) State() State {
	return State(t.state.Load())
}

// Cancelled reports whether the tile left the view before completion.
func (t *Tile) Cancelled() bool {
	return t.State() == Cancelled
}

// Cancel marks a pending or loading tile as cancelled. It returns false if
// the tile had already reached a terminal state.
func (t *Tile) Cancel() bool {
	for {
		cur := t.state.Load()
		if State(cur).Terminal() {
			return false
		}
		if t.state.CompareAndSwap(cur, int32(Cancelled)) {
			return true
		}
	}
}

// Begin moves Pending to Loading.
func (t *Tile) Begin() bool {
	return t.state.CompareAndSwap(int32(Pending), int32(Loading))
}

// Finish moves Loading to Loaded.
func (t *Tile) Finish() bool {
	return t.state.CompareAndSwap(int32(Loading), int32(Loaded))
}

// Fail moves Loading to Errored.
func (t *Tile) Fail() bool {
	return t.state.CompareAndSwap(int32(Loading), int32(Errored))
}

func (t *Tile) String() string {
	return fmt.Sprintf("tile %s (%s)", t.Key(), t.State())
}
