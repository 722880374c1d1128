package io

import (
	"context"

	"github.com/ecopia-map/ept_index/internal/octree"
)

type Producer interface {
	Produce(ctx context.Context, work chan<- *WorkUnit, root octree.NodeID) error
}

type Consumer interface {
	Consume(ctx context.Context, work <-chan *WorkUnit) error
}

// NodeResolver resolves the point count of a node, loading hierarchy files as needed. A negative
// count means the node is not part of the dataset.
type NodeResolver interface {
	NodePointCount(ctx context.Context, id octree.NodeID) (int64, error)
	Hierarchy() octree.ITree
}
