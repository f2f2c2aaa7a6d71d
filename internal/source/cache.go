package source

import (
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/paulmach/orb/maptile"

	"github.com/Faultbox/tilemesh/internal/feature"
	"github.com/Faultbox/tilemesh/internal/tiles"
)

// Cache keeps decoded layers so tiles that leave and re-enter the view are
// not fetched and decoded again. Cost is counted in features.
type Cache struct {
	layers *ristretto.Cache[string, *Layer]
	fetch  Fetcher
	layer  string
	mode   feature.ClipMode
}

// NewCache returns a cache holding about maxFeatures features of layer.
func NewCache(fetch Fetcher, layer string, mode feature.ClipMode, maxFeatures int64) (*Cache, error) {
	if maxFeatures < 1 {
		maxFeatures = 1
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, *Layer]{
		NumCounters: max(maxFeatures/10, 1000),
		MaxCost:     maxFeatures,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating layer cache: %w", err)
	}
	return &Cache{layers: c, fetch: fetch, layer: layer, mode: mode}, nil
}

func (c *Cache) key(id maptile.Tile) string {
	return fmt.Sprintf("%s/%s/%d", tiles.Key(id), c.layer, c.mode)
}

// Get returns a cached layer.
func (c *Cache) Get(id maptile.Tile) (*Layer, bool) {
	return c.layers.Get(c.key(id))
}

// Load returns the layer of a tile, fetching and decoding it on a miss.
func (c *Cache) Load(id maptile.Tile) (*Layer, error) {
	if l, ok := c.Get(id); ok {
		return l, nil
	}
	data, err := c.fetch.Fetch(id)
	if err != nil {
		return nil, err
	}
	l, err := Decode(data, c.layer, c.mode)
	if err != nil {
		return nil, fmt.Errorf("tile %s: %w", tiles.Key(id), err)
	}
	c.layers.Set(c.key(id), l, int64(l.Len())+1)
	c.layers.Wait()
	return l, nil
}

// Evict drops a tile from the cache.
func (c *Cache) Evict(id maptile.Tile) {
	c.layers.Del(c.key(id))
}

// Close stops the cache's background goroutines.
func (c *Cache) Close() {
	c.layers.Close()
}
