package tiles

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// LoadBoundaryGeoJSON reads a boundary from a FeatureCollection holding two
// LineStrings with a "side" property of "west" and "east". Coordinates are
// GeoJSON [lon, lat].
func LoadBoundaryGeoJSON(data []byte) (Boundary, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return Boundary{}, fmt.Errorf("%w: %v", ErrBoundary, err)
	}

	var b Boundary
	for _, f := range fc.Features {
		ls, ok := f.Geometry.(orb.LineString)
		if !ok {
			continue
		}
		points := make([]LatLon, len(ls))
		for i, p := range ls {
			points[i] = LatLon{Lat: p.Lat(), Lon: p.Lon()}
		}
		switch side := f.Properties.MustString("side", ""); side {
		case "west":
			b.West = points
		case "east":
			b.East = points
		default:
			return Boundary{}, fmt.Errorf("%w: unknown side %q", ErrBoundary, side)
		}
	}
	if err := b.Validate(); err != nil {
		return Boundary{}, err
	}
	return b, nil
}

// LoadBoundaryFile reads a GeoJSON boundary from disk.
func LoadBoundaryFile(path string) (Boundary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Boundary{}, fmt.Errorf("reading boundary file: %w", err)
	}
	return LoadBoundaryGeoJSON(data)
}

// BoundaryFromPairs builds a boundary from [lat, lon] pairs.
func BoundaryFromPairs(west, east [][2]float64) Boundary {
	conv := func(in [][2]float64) []LatLon {
		out := make([]LatLon, len(in))
		for i, p := range in {
			out[i] = LatLon{Lat: p[0], Lon: p[1]}
		}
		return out
	}
	return Boundary{West: conv(west), East: conv(east)}
}
