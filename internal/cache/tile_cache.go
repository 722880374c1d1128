package cache

import (
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/pkg/errors"

	"github.com/ecopia-map/ept_index/internal/data"
	"github.com/ecopia-map/ept_index/internal/metrics"
	"github.com/ecopia-map/ept_index/internal/octree"
)

// Key identifies one decoded tile: the dataset, the node and everything in the request that
// changes the decoded content.
type Key struct {
	URI        string
	Node       octree.NodeID
	Attributes string
	Filter     string
	Rect       string
}

func (k Key) String() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", k.URI, k.Node, k.Attributes, k.Filter, k.Rect)
}

// TileCache keeps decoded blocks, including the empty result of tiles without matching points.
// Blocks are copied on the way in and on the way out so callers own what they receive.
type TileCache struct {
	cache *ristretto.Cache[string, *data.Block]
}

func NewTileCache(maxBytes, counters int64) (*TileCache, error) {
	if counters <= 0 {
		counters = 100000
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, *data.Block]{
		NumCounters: counters,
		MaxCost:     maxBytes,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "cannot create tile cache")
	}
	return &TileCache{cache: c}, nil
}

// Get returns a copy of the cached block. A hit may carry a nil block for an empty tile.
func (c *TileCache) Get(key Key) (*data.Block, bool) {
	block, ok := c.cache.Get(key.String())
	if !ok {
		metrics.TileCacheLookupsTotal.WithLabelValues(metrics.ResultMiss).Inc()
		return nil, false
	}
	metrics.TileCacheLookupsTotal.WithLabelValues(metrics.ResultHit).Inc()
	return block.Clone(), true
}

// Set stores a copy of block, nil meaning the tile has no matching points. The write is applied
// asynchronously; call Wait to observe it.
func (c *TileCache) Set(key Key, block *data.Block) bool {
	cost := int64(1)
	if block != nil {
		cost = int64(len(block.Data())) + 1
	}
	return c.cache.Set(key.String(), block.Clone(), cost)
}

// Wait blocks until pending writes are visible.
func (c *TileCache) Wait() {
	c.cache.Wait()
}

func (c *TileCache) Clear() {
	c.cache.Clear()
}

// KeysAdded is the number of entries admitted since creation.
func (c *TileCache) KeysAdded() uint64 {
	return c.cache.Metrics.KeysAdded()
}

func (c *TileCache) Close() {
	c.cache.Close()
}
