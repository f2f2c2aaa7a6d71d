// Package render receives sealed batches: it keeps them in memory, queues
// them for the GL thread and uploads them to vertex buffers.
package render

import (
	"fmt"
	"sync"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/dustin/go-humanize"

	"github.com/Faultbox/tilemesh/internal/batch"
	"github.com/Faultbox/tilemesh/pkg/math"
	"github.com/Faultbox/tilemesh/pkg/meshbuf"
)

// Entry describes one batch held by a Collector.
type Entry struct {
	Name      string
	Tile      string
	Sequence  int
	Transform math.Mat4
	Vertices  int
	Submeshes int
}

// Stats summarizes the batches a Collector has seen.
type Stats struct {
	Batches  int
	Tiles    int
	Vertices int64
	Bytes    int64
	P50      int64
	P99      int64
	Max      int64
}

func (s Stats) String() string {
	return fmt.Sprintf("%s batches over %s tiles, %s vertices (%s), batch size p50=%s p99=%s max=%s",
		humanize.Comma(int64(s.Batches)), humanize.Comma(int64(s.Tiles)),
		humanize.Comma(s.Vertices), humanize.IBytes(uint64(s.Bytes)),
		humanize.Comma(s.P50), humanize.Comma(s.P99), humanize.Comma(s.Max))
}

// Collector is an in-memory Materializer. With keep set it owns every sealed
// buffer in a meshbuf.List until Release; otherwise it records statistics
// and frees buffers straight away. Safe for concurrent use.
type Collector struct {
	mu       sync.Mutex
	keep     bool
	list     *meshbuf.List
	entries  []Entry
	tiles    map[string]int
	sizes    *hdrhistogram.Histogram
	vertices int64
	bytes    int64
}

// NewCollector returns an empty collector.
func NewCollector(keep bool) (*Collector, error) {
	list, err := meshbuf.NewList(64)
	if err != nil {
		return nil, err
	}
	return &Collector{
		keep:  keep,
		list:  list,
		tiles: make(map[string]int),
		sizes: hdrhistogram.New(1, batch.MaxVertices, 3),
	}, nil
}

// Materialize records s and takes ownership of its buffer.
func (c *Collector) Materialize(s *batch.Sealed) error {
	n := s.Buffer.Vertices().Len()
	size := int64(s.Buffer.Bytes())

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.sizes.RecordValue(int64(n)); err != nil {
		return fmt.Errorf("recording batch size: %w", err)
	}
	key := s.Tile.Key()
	c.tiles[key]++
	c.vertices += int64(n)
	c.bytes += size
	if !c.keep {
		s.Buffer.Release()
		return nil
	}
	c.list.Add(s.Buffer)
	c.entries = append(c.entries, Entry{
		Name:      s.Name(),
		Tile:      key,
		Sequence:  s.Sequence,
		Transform: s.Transform,
		Vertices:  n,
		Submeshes: s.Buffer.SubmeshCount(),
	})
	return nil
}

// Len returns the number of buffers held.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list.Len()
}

// Each calls fn with every held batch in arrival order. The buffer stays
// owned by the collector.
func (c *Collector) Each(fn func(e Entry, b *meshbuf.Buffer) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, e := range c.entries {
		if err := fn(e, c.list.At(i)); err != nil {
			return err
		}
	}
	return nil
}

// Evict frees every batch of a tile, keeping the others.
func (c *Collector) Evict(tile string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for i := 0; i < len(c.entries); {
		if c.entries[i].Tile != tile {
			i++
			continue
		}
		last := len(c.entries) - 1
		c.entries[i] = c.entries[last]
		c.entries = c.entries[:last]
		c.list.RemoveAtSwapBack(i)
		removed++
	}
	delete(c.tiles, tile)
	return removed
}

// Stats returns a snapshot of the recorded statistics.
func (c *Collector) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{
		Batches:  int(c.sizes.TotalCount()),
		Tiles:    len(c.tiles),
		Vertices: c.vertices,
		Bytes:    c.bytes,
	}
	if s.Batches > 0 {
		s.P50 = c.sizes.ValueAtQuantile(50)
		s.P99 = c.sizes.ValueAtQuantile(99)
		s.Max = c.sizes.Max()
	}
	return s
}

// Release frees every held buffer. The collector must not be used again.
func (c *Collector) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list.Release()
	c.entries = nil
}

// ReleaseAfter frees the held buffers once deps complete, for example after
// parallel post-processing that still reads them.
func (c *Collector) ReleaseAfter(deps ...*meshbuf.Job) *meshbuf.Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
	return c.list.ReleaseAfter(deps...)
}
