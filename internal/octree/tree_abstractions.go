package octree

// ITree is a read view over an octree whose shape is only partially known.
type ITree interface {
	// Returns the point count of the node, if known
	CountOf(id NodeID) (int64, bool)
	// Reports whether the node exists but its subtree has not been fetched yet
	IsPending(id NodeID) bool
}

// KnownChildren returns the children of id that tree counts or marks pending, in octant order.
func KnownChildren(tree ITree, id NodeID) []NodeID {
	var children []NodeID
	for _, child := range id.Children() {
		if _, ok := tree.CountOf(child); ok || tree.IsPending(child) {
			children = append(children, child)
		}
	}
	return children
}
