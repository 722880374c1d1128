package pkg

import (
	"context"
	"sync/atomic"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"github.com/ecopia-map/ept_index/internal/data"
	"github.com/ecopia-map/ept_index/internal/io"
	"github.com/ecopia-map/ept_index/internal/octree"
)

// PrefetchResult summarizes a prefetch run.
type PrefetchResult struct {
	Tiles  int64
	Points int64
}

// Prefetch reads every tile down to maxDepth into the tile cache, resolving the hierarchy on the
// way. One producer walks the octree while the manager's PrefetchWorkers consumers fetch tiles.
func (idx *Index) Prefetch(ctx context.Context, maxDepth int, req Request) (PrefetchResult, error) {
	if err := idx.check(); err != nil {
		return PrefetchResult{}, err
	}

	// a consumer goroutine per configured worker
	numConsumers := idx.manager.GetOptions().PrefetchWorkers
	if numConsumers <= 0 {
		numConsumers = 1
	}

	// buffer 5 times greater than the number of consumers
	workChannel := make(chan *io.WorkUnit, numConsumers*5)

	var tiles, points atomic.Int64
	read := func(ctx context.Context, id octree.NodeID) (*data.Block, error) {
		return idx.NodeData(ctx, id, req)
	}

	g, gctx := errgroup.WithContext(ctx)
	producer := io.NewStandardProducer(idx, maxDepth)
	g.Go(func() error {
		return producer.Produce(gctx, workChannel, octree.Root)
	})
	for i := 0; i < numConsumers; i++ {
		consumer := io.NewStandardConsumer(read, &tiles, &points)
		g.Go(func() error {
			return consumer.Consume(gctx, workChannel)
		})
	}

	err := g.Wait()
	result := PrefetchResult{Tiles: tiles.Load(), Points: points.Load()}
	if err != nil {
		return result, err
	}
	glog.Infof("prefetched %d tiles (%d points) of %s down to depth %d", result.Tiles, result.Points, idx.uri, maxDepth)
	return result, nil
}
