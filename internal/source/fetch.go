package source

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulmach/orb/maptile"
)

// Fetcher returns the raw payload of a tile.
type Fetcher interface {
	Fetch(id maptile.Tile) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(id maptile.Tile) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(id maptile.Tile) ([]byte, error) { return f(id) }

// Dir reads tiles laid out as Root/z/x/y.mvt.
type Dir struct {
	Root string
	Ext  string // defaults to ".mvt"
}

// Path returns the file path of a tile.
func (d Dir) Path(id maptile.Tile) string {
	ext := d.Ext
	if ext == "" {
		ext = ".mvt"
	}
	return filepath.Join(d.Root, fmt.Sprint(id.Z), fmt.Sprint(id.X), fmt.Sprintf("%d%s", id.Y, ext))
}

// Fetch reads one tile from disk.
func (d Dir) Fetch(id maptile.Tile) ([]byte, error) {
	data, err := os.ReadFile(d.Path(id))
	if err != nil {
		return nil, fmt.Errorf("reading tile: %w", err)
	}
	return data, nil
}
