package io

import "github.com/ecopia-map/ept_index/internal/octree"

// Contains the minimal data needed to warm a single tile
type WorkUnit struct {
	Node  octree.NodeID
	Count int64
}
