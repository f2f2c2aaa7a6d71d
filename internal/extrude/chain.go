// Package extrude builds building meshes from projected footprints: a flat
// roof at the building height and vertical walls down to its base.
package extrude

import (
	"errors"
	"fmt"

	"github.com/Faultbox/tilemesh/internal/batch"
	"github.com/Faultbox/tilemesh/internal/config"
	"github.com/Faultbox/tilemesh/internal/feature"
	"github.com/Faultbox/tilemesh/internal/tiles"
	"github.com/Faultbox/tilemesh/pkg/math"
)

// Submesh slots in a built fragment.
const (
	RoofSubmesh = 0
	WallSubmesh = 1
)

// ErrDegenerate is returned for footprints that cannot form a mesh.
var ErrDegenerate = errors.New("degenerate footprint")

// Stage turns one projected feature into a fragment.
type Stage interface {
	Build(tile *tiles.Tile, f *feature.Feature) (*batch.Fragment, error)
}

// StageFunc adapts a function to Stage.
type StageFunc func(tile *tiles.Tile, f *feature.Feature) (*batch.Fragment, error)

// Build calls fn.
func (fn StageFunc) Build(tile *tiles.Tile, f *feature.Feature) (*batch.Fragment, error) {
	return fn(tile, f)
}

// Context is the state passed along a modifier chain for one feature.
type Context struct {
	Tile     *tiles.Tile
	Feature  *feature.Feature
	Base     float32
	Top      float32
	Fragment *batch.Fragment
}

// Modifier adds geometry to the fragment in a Context.
type Modifier interface {
	Modify(c *Context) error
}

// Chain runs modifiers in order over a fresh fragment.
type Chain struct {
	PropertyName string
	ScaleFactor  float64
	MinHeight    float64
	Modifiers    []Modifier
}

// NewChain returns the default roof and wall chain for cfg.
func NewChain(cfg config.ExtrusionConfig) *Chain {
	return &Chain{
		PropertyName: cfg.PropertyName,
		ScaleFactor:  cfg.ScaleFactor,
		MinHeight:    cfg.MinHeight,
		Modifiers:    []Modifier{Roof{}, Walls{}},
	}
}

// Heights returns the base and top of a feature in tile-local units. The
// top comes from the height property, falling back to MinHeight; the base
// from an optional "min_height" property.
func (c *Chain) Heights(tile *tiles.Tile, f *feature.Feature) (base, top float32) {
	h, ok := feature.Number(f.Properties, c.PropertyName)
	if !ok || h < c.MinHeight {
		h = c.MinHeight
	}
	b, _ := feature.Number(f.Properties, "min_height")
	if b < 0 || b > h {
		b = 0
	}
	scale := c.ScaleFactor * float64(tile.Scale)
	return float32(b * scale), float32(h * scale)
}

// Build runs the chain for one feature.
func (c *Chain) Build(tile *tiles.Tile, f *feature.Feature) (*batch.Fragment, error) {
	if len(f.Rings) == 0 {
		return nil, fmt.Errorf("%w: no rings", ErrDegenerate)
	}
	base, top := c.Heights(tile, f)
	ctx := &Context{
		Tile:    tile,
		Feature: f,
		Base:    base,
		Top:     top,
		Fragment: &batch.Fragment{
			Triangles: make([][]int, 2),
			UVs:       make([][]math.Vec2, 1),
		},
	}
	for _, m := range c.Modifiers {
		if err := m.Modify(ctx); err != nil {
			return nil, err
		}
	}
	return ctx.Fragment, nil
}
