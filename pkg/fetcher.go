package pkg

import (
	"context"

	"github.com/golang/geo/r2"
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/ecopia-map/ept_index/internal/access"
	"github.com/ecopia-map/ept_index/internal/cache"
	"github.com/ecopia-map/ept_index/internal/data"
	"github.com/ecopia-map/ept_index/internal/decoder"
	"github.com/ecopia-map/ept_index/internal/filter"
	"github.com/ecopia-map/ept_index/internal/metrics"
	"github.com/ecopia-map/ept_index/internal/octree"
)

// Request selects what a tile fetch returns.
type Request struct {
	// Attributes of the returned block, every dataset attribute when empty
	Attributes data.AttributeCollection
	// Optional predicate over real world points
	Filter filter.Expression
	// Optional 2-D rectangle in real world units
	FilterRect *r2.Rect
}

func (idx *Index) requestedAttributes(req Request) data.AttributeCollection {
	if req.Attributes.Count() == 0 {
		return idx.meta.schema.Attributes()
	}
	return req.Attributes
}

func (idx *Index) cacheKey(id octree.NodeID, req Request) cache.Key {
	key := cache.Key{
		URI:        idx.uri,
		Node:       id,
		Attributes: idx.requestedAttributes(req).String(),
	}
	if req.Filter != nil {
		key.Filter = req.Filter.String()
	}
	if req.FilterRect != nil {
		key.Rect = req.FilterRect.String()
	}
	return key
}

// decodeParams widens the requested attributes with the ones the filter reads and gives the
// decode its own copy of the filter.
func (idx *Index) decodeParams(req Request) decoder.Params {
	requested := idx.requestedAttributes(req)
	params := decoder.Params{
		Schema:     idx.meta.schema,
		Requested:  requested,
		Extended:   requested,
		Scale:      idx.meta.converter.Scale(),
		Offset:     idx.meta.converter.Offset(),
		FilterRect: req.FilterRect,
	}
	if req.Filter != nil {
		params.Filter = req.Filter.Clone()
		params.Extended = requested.Extend(idx.meta.schema.Attributes(), req.Filter.ReferencedAttributes())
	}
	return params
}

// TileLocator returns the locator of the tile file of id.
func (idx *Index) TileLocator(id octree.NodeID) string {
	return access.Join(idx.dir, "ept-data", id.String()+"."+idx.meta.encoding.Extension())
}

func (idx *Index) decode(id octree.NodeID, raw []byte, req Request) (*data.Block, error) {
	block, err := idx.decoder.Decode(raw, idx.decodeParams(req))
	if err != nil {
		metrics.TileDecodesTotal.WithLabelValues(idx.meta.encoding.String(), metrics.ResultError).Inc()
		return nil, errors.Wrapf(err, "tile %s", id)
	}
	metrics.TileDecodesTotal.WithLabelValues(idx.meta.encoding.String(), metrics.ResultOK).Inc()
	return block, nil
}

func (idx *Index) cached(key cache.Key) (*data.Block, bool) {
	if idx.tileCache == nil {
		return nil, false
	}
	return idx.tileCache.Get(key)
}

func (idx *Index) store(key cache.Key, block *data.Block) {
	if idx.tileCache == nil {
		return
	}
	if !idx.tileCache.Set(key, block) {
		glog.V(3).Infof("tile cache dropped %s", key)
	}
}

// NodeData returns the decoded points of a node restricted by the request. A nil block with a
// nil error means the tile holds no matching point or, for remote datasets, that the node does
// not exist. Concurrent calls for the same node and request share one fetch and decode; each
// caller receives its own copy of the block.
func (idx *Index) NodeData(ctx context.Context, id octree.NodeID, req Request) (*data.Block, error) {
	if err := idx.check(); err != nil {
		return nil, err
	}
	if err := checkNode(id); err != nil {
		return nil, err
	}
	key := idx.cacheKey(id, req)
	if block, ok := idx.cached(key); ok {
		return block, nil
	}

	v, err, _ := idx.flights.Do(key.String(), func() (interface{}, error) {
		if idx.accessType == access.Local {
			return idx.localNodeData(ctx, id, req, key)
		}
		return idx.remoteNodeData(ctx, id, req, key)
	})
	if err != nil {
		return nil, err
	}
	block, _ := v.(*data.Block)
	return block.Clone(), nil
}

func (idx *Index) localNodeData(ctx context.Context, id octree.NodeID, req Request, key cache.Key) (*data.Block, error) {
	raw, err := idx.accessor.Fetch(ctx, idx.TileLocator(id), access.FetchOptions{Kind: access.KindTile})
	if err != nil {
		return nil, err
	}
	block, err := idx.decode(id, raw, req)
	if err != nil {
		return nil, err
	}
	idx.store(key, block)
	return block, nil
}

func (idx *Index) remoteNodeData(ctx context.Context, id octree.NodeID, req Request, key cache.Key) (*data.Block, error) {
	ok, err := idx.loader.EnsureLoaded(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	r := idx.startBlockRequest(ctx, id, req, key)
	defer r.Close()
	if err := r.Wait(ctx); err != nil {
		return nil, err
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return r.TakeBlock(), nil
}

// AsyncNodeData starts fetching the tile of a node of a remote dataset and returns at once. A
// cache hit yields a request that is already finished. A nil request with a nil error means the
// node does not exist. Callers that lose interest must Close the request.
func (idx *Index) AsyncNodeData(ctx context.Context, id octree.NodeID, req Request) (*BlockRequest, error) {
	if err := idx.check(); err != nil {
		return nil, err
	}
	if err := checkNode(id); err != nil {
		return nil, err
	}
	if idx.accessType != access.Remote {
		return nil, ErrNotRemote
	}
	key := idx.cacheKey(id, req)
	if block, ok := idx.cached(key); ok {
		return newFinishedBlockRequest(id, block), nil
	}

	ok, err := idx.loader.EnsureLoaded(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return idx.startBlockRequest(ctx, id, req, key), nil
}

func (idx *Index) startBlockRequest(ctx context.Context, id octree.NodeID, req Request, key cache.Key) *BlockRequest {
	locator := idx.TileLocator(id)
	return newBlockRequest(ctx, id, blockJob{
		fetch: func(ctx context.Context) ([]byte, error) {
			return idx.accessor.Fetch(ctx, locator, access.FetchOptions{Kind: access.KindTile})
		},
		decode: func(raw []byte) (*data.Block, error) {
			return idx.decode(id, raw, req)
		},
		store: func(block *data.Block) {
			idx.store(key, block)
		},
	})
}
