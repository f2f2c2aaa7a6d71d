// Package tiles computes which map tiles cover an area of interest and
// tracks the lifecycle of each tile while its meshes are built.
package tiles

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb/maptile"
)

// MaxZoom is the deepest zoom level coverage accepts.
const MaxZoom maptile.Zoom = 24

// ErrBoundary is returned for a malformed area of interest.
var ErrBoundary = errors.New("invalid boundary")

// LatLon is a geographic position in degrees.
type LatLon struct {
	Lat, Lon float64
}

// Valid reports whether the position is a real latitude/longitude pair.
func (p LatLon) Valid() bool {
	return s2.LatLngFromDegrees(p.Lat, p.Lon).IsValid()
}

// Boundary approximates an area as paired west and east edges. West[i] and
// East[i] lie on the same row, ordered north to south.
type Boundary struct {
	West []LatLon
	East []LatLon
}

// Validate checks that both edges are non-empty, paired and on the globe.
func (b Boundary) Validate() error {
	if len(b.West) == 0 {
		return fmt.Errorf("%w: empty", ErrBoundary)
	}
	if len(b.West) != len(b.East) {
		return fmt.Errorf("%w: %d west points, %d east points", ErrBoundary, len(b.West), len(b.East))
	}
	for i := range b.West {
		if !b.West[i].Valid() {
			return fmt.Errorf("%w: west[%d] %v", ErrBoundary, i, b.West[i])
		}
		if !b.East[i].Valid() {
			return fmt.Errorf("%w: east[%d] %v", ErrBoundary, i, b.East[i])
		}
	}
	return nil
}

// TileAt returns the Web-Mercator tile containing p at the given zoom.
// Results are clamped into the grid, so polar latitudes map to the edge rows.
func TileAt(p LatLon, zoom maptile.Zoom) maptile.Tile {
	n := math.Exp2(float64(zoom))
	lat := p.Lat * math.Pi / 180
	x := math.Floor((p.Lon + 180) / 360 * n)
	y := math.Floor((1 - math.Log(math.Tan(lat)+1/math.Cos(lat))/math.Pi) / 2 * n)
	return maptile.New(clampAxis(x, n), clampAxis(y, n), zoom)
}

func clampAxis(v, n float64) uint32 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > n-1:
		return uint32(n - 1)
	}
	return uint32(v)
}

// Coverage is the set of tiles known to need data. It only grows until Reset
// is called. Safe for concurrent use.
type Coverage struct {
	mu  sync.RWMutex
	set maptile.Set
}

// NewCoverage returns an empty coverage set.
func NewCoverage() *Coverage {
	return &Coverage{set: make(maptile.Set)}
}

// Add fills the tiles under b as one-row bands: for each boundary row the
// x range runs from the west to the east point and the y range reaches down
// to the next row. It returns the number of tiles not already in the set.
func (c *Coverage) Add(b Boundary, zoom maptile.Zoom) (int, error) {
	if zoom > MaxZoom {
		return 0, fmt.Errorf("%w: zoom %d above %d", ErrBoundary, zoom, MaxZoom)
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	added := 0
	last := len(b.West) - 1
	for i := range b.West {
		j := i + 1
		if i == last {
			j = i
		}
		top := TileAt(b.West[i], zoom)
		bottom := TileAt(b.West[j], zoom)
		right := TileAt(b.East[i], zoom)

		y0, y1 := span(top.Y, bottom.Y)
		x0, x1 := span(top.X, right.X)
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				if c.insert(maptile.New(x, y, zoom)) {
					added++
				}
			}
		}
	}
	return added, nil
}

// AddNeighborhood adds the 3x3 block of tiles centred on center, clipped to
// the grid edges.
func (c *Coverage) AddNeighborhood(center LatLon, zoom maptile.Zoom) (int, error) {
	if zoom > MaxZoom {
		return 0, fmt.Errorf("%w: zoom %d above %d", ErrBoundary, zoom, MaxZoom)
	}
	if !center.Valid() {
		return 0, fmt.Errorf("%w: center %v", ErrBoundary, center)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	mid := TileAt(center, zoom)
	limit := int64(1)<<zoom - 1
	added := 0
	for dy := int64(-1); dy <= 1; dy++ {
		for dx := int64(-1); dx <= 1; dx++ {
			x, y := int64(mid.X)+dx, int64(mid.Y)+dy
			if x < 0 || y < 0 || x > limit || y > limit {
				continue
			}
			if c.insert(maptile.New(uint32(x), uint32(y), zoom)) {
				added++
			}
		}
	}
	return added, nil
}

func (c *Coverage) insert(t maptile.Tile) bool {
	if c.set[t] {
		return false
	}
	c.set[t] = true
	return true
}

func span(a, b uint32) (uint32, uint32) {
	if a > b {
		return b, a
	}
	return a, b
}

// Contains reports whether t is in the set.
func (c *Coverage) Contains(t maptile.Tile) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.set[t]
}

// Len returns the number of tiles in the set.
func (c *Coverage) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.set)
}

// Tiles returns a snapshot of the set ordered by zoom, row, then column.
func (c *Coverage) Tiles() []maptile.Tile {
	c.mu.RLock()
	out := make([]maptile.Tile, 0, len(c.set))
	for t := range c.set {
		out = append(out, t)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	return out
}

// Reset empties the set.
func (c *Coverage) Reset() {
	c.mu.Lock()
	c.set = make(maptile.Set)
	c.mu.Unlock()
}
