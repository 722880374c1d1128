package io

import (
	"context"
	"sync/atomic"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/ecopia-map/ept_index/internal/data"
	"github.com/ecopia-map/ept_index/internal/octree"
)

// TileReader returns the decoded block of a node, nil when it holds no matching point.
type TileReader func(ctx context.Context, id octree.NodeID) (*data.Block, error)

type StandardConsumer struct {
	read   TileReader
	tiles  *atomic.Int64
	points *atomic.Int64
}

// NewStandardConsumer returns a consumer reading tiles with read. The counters are shared by all
// consumers of a run and may be nil.
func NewStandardConsumer(read TileReader, tiles, points *atomic.Int64) *StandardConsumer {
	if tiles == nil {
		tiles = &atomic.Int64{}
	}
	if points == nil {
		points = &atomic.Int64{}
	}
	return &StandardConsumer{
		read:   read,
		tiles:  tiles,
		points: points,
	}
}

// Continually consumes WorkUnits submitted to a work channel, reading the corresponding tiles.
// Returns when the channel is closed, on the first error or when ctx is done.
func (c *StandardConsumer) Consume(ctx context.Context, work <-chan *WorkUnit) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case unit, ok := <-work:
			if !ok {
				// channel was closed by producer
				return nil
			}
			if err := c.doWork(ctx, unit); err != nil {
				return err
			}
		}
	}
}

func (c *StandardConsumer) doWork(ctx context.Context, unit *WorkUnit) error {
	block, err := c.read(ctx, unit.Node)
	if err != nil {
		return errors.Wrapf(err, "cannot read tile %s", unit.Node)
	}
	c.tiles.Add(1)
	if block != nil {
		c.points.Add(int64(block.PointCount()))
	}
	glog.V(2).Infof("warmed tile %s (%d points declared)", unit.Node, unit.Count)
	return nil
}
