// Package feature turns decoded tile features into tile-local geometry and
// decides which of them are built.
package feature

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/Faultbox/tilemesh/pkg/math"
)

// Raw is a feature as decoded from a tile: rings in extent space plus its
// properties.
type Raw struct {
	ID         uint64
	Rings      [][]orb.Point
	Properties map[string]any
}

// Feature is a projected feature. It only lives while one feature is being
// built.
type Feature struct {
	ID         uint64
	Rings      [][]math.Vec3
	Properties map[string]any
}

// Extrudable reports whether a feature may be turned into a mesh. Features
// tagged with a false "extrude" property are skipped.
func Extrudable(props map[string]any) bool {
	v, ok := props["extrude"]
	if !ok {
		return true
	}
	switch x := v.(type) {
	case bool:
		return x
	case string:
		b, err := strconv.ParseBool(x)
		return err != nil || b
	}
	return true
}

// Number reads a numeric property, accepting numeric strings.
func Number(props map[string]any, key string) (float64, bool) {
	switch x := props[key].(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// text renders a property as lower-case text for membership tests.
func text(props map[string]any, key string) (string, bool) {
	v, ok := props[key]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return strings.ToLower(s), true
	}
	return strings.ToLower(fmt.Sprint(v)), true
}
