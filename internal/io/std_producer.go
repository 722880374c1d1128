package io

import (
	"context"

	"github.com/golang/glog"

	"github.com/ecopia-map/ept_index/internal/octree"
)

type StandardProducer struct {
	resolver NodeResolver
	maxDepth int
}

// NewStandardProducer returns a producer walking the octree down to maxDepth, inclusive.
func NewStandardProducer(resolver NodeResolver, maxDepth int) *StandardProducer {
	return &StandardProducer{
		resolver: resolver,
		maxDepth: maxDepth,
	}
}

// Walks the octree from root and submits a WorkUnit for every node holding points. Closes the
// channel when all work is submitted or the walk fails.
func (p *StandardProducer) Produce(ctx context.Context, work chan<- *WorkUnit, root octree.NodeID) error {
	defer close(work)
	return p.produce(ctx, root, work)
}

func (p *StandardProducer) produce(ctx context.Context, node octree.NodeID, work chan<- *WorkUnit) error {
	count, err := p.resolver.NodePointCount(ctx, node)
	if err != nil {
		glog.Warningf("cannot resolve node %s: %v", node, err)
		return err
	}
	if count < 0 {
		return nil
	}

	if count > 0 {
		select {
		case work <- &WorkUnit{Node: node, Count: count}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if node.D >= p.maxDepth {
		return nil
	}
	// existing children are known once node is
	for _, child := range octree.KnownChildren(p.resolver.Hierarchy(), node) {
		if err := p.produce(ctx, child, work); err != nil {
			return err
		}
	}
	return nil
}
