// Package source decodes Mapbox Vector Tiles into the raw features the
// pipeline builds meshes from.
package source

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"

	"github.com/Faultbox/tilemesh/internal/feature"
)

// Decode errors.
var (
	ErrGeometryDecode = errors.New("geometry decode failed")
	ErrLayerNotFound  = errors.New("layer not found")
)

var gzipMagic = []byte{0x1f, 0x8b}

// Layer is one decoded tile layer. It is read-only once built and may be
// shared between goroutines.
type Layer struct {
	name     string
	extent   int
	mode     feature.ClipMode
	features []*geojson.Feature
	geoms    []orb.Geometry // clipped copies in ClipAtEdge mode
}

// Decode reads the named layer from an MVT payload, gzipped or not.
func Decode(data []byte, name string, mode feature.ClipMode) (*Layer, error) {
	var (
		layers mvt.Layers
		err    error
	)
	if bytes.HasPrefix(data, gzipMagic) {
		layers, err = mvt.UnmarshalGzipped(data)
	} else {
		layers, err = mvt.Unmarshal(data)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding tile: %w", err)
	}
	for _, l := range layers {
		if l.Name == name {
			return NewLayer(l, mode), nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrLayerNotFound, name)
}

// NewLayer wraps an already decoded layer. In ClipAtEdge mode every
// geometry is cloned and clipped to the tile here; l itself is not modified.
func NewLayer(l *mvt.Layer, mode feature.ClipMode) *Layer {
	extent := int(l.Extent)
	if extent == 0 {
		extent = mvt.DefaultExtent
	}
	geoms := make([]orb.Geometry, len(l.Features))
	e := float64(extent)
	bound := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{e, e}}
	for i, f := range l.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		geoms[i] = f.Geometry
		if mode == feature.ClipAtEdge {
			// clip.Geometry rewrites its input in place.
			geoms[i] = clip.Geometry(bound, orb.Clone(f.Geometry))
		}
	}
	return &Layer{name: l.Name, extent: extent, mode: mode, features: l.Features, geoms: geoms}
}

// Name returns the layer name.
func (l *Layer) Name() string { return l.name }

// Extent returns the tile coordinate range.
func (l *Layer) Extent() int { return l.extent }

// Mode returns the clipping mode the layer was built with.
func (l *Layer) Mode() feature.ClipMode { return l.mode }

// Len returns the number of features.
func (l *Layer) Len() int { return len(l.features) }

// Feature returns feature i. Non-polygonal geometry fails with
// ErrGeometryDecode. In ClipAtEdge mode the rings were clipped to the tile
// and may come back empty. The returned rings share the layer's storage and
// must not be modified.
func (l *Layer) Feature(i int) (feature.Raw, error) {
	if i < 0 || i >= len(l.features) {
		return feature.Raw{}, fmt.Errorf("%w: feature %d of %d", ErrGeometryDecode, i, len(l.features))
	}
	f := l.features[i]
	if f == nil || f.Geometry == nil {
		return feature.Raw{}, fmt.Errorf("%w: feature %d has no geometry", ErrGeometryDecode, i)
	}

	geom := l.geoms[i]

	raw := feature.Raw{ID: featureID(f.ID), Properties: f.Properties}
	switch g := geom.(type) {
	case nil:
	case orb.Polygon:
		raw.Rings = rings(g)
	case orb.MultiPolygon:
		for _, p := range g {
			raw.Rings = append(raw.Rings, rings(p)...)
		}
	default:
		return feature.Raw{}, fmt.Errorf("%w: feature %d is a %s", ErrGeometryDecode, i, geom.GeoJSONType())
	}
	return raw, nil
}

func rings(p orb.Polygon) [][]orb.Point {
	out := make([][]orb.Point, 0, len(p))
	for _, r := range p {
		if len(r) > 0 {
			out = append(out, []orb.Point(r))
		}
	}
	return out
}

func featureID(id any) uint64 {
	switch v := id.(type) {
	case uint64:
		return v
	case int64:
		return uint64(v)
	case float64:
		return uint64(v)
	case int:
		return uint64(v)
	}
	return 0
}
