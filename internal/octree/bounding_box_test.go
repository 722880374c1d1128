package octree

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

type mapTree struct {
	counts  map[NodeID]int64
	pending map[NodeID]bool
}

func (m mapTree) CountOf(id NodeID) (int64, bool) {
	c, ok := m.counts[id]
	return c, ok
}

func (m mapTree) IsPending(id NodeID) bool {
	return m.pending[id]
}

func TestNodeBounds(t *testing.T) {
	root := NewBoundingBox(0, 8, 0, 8, 0, 8)
	test.That(t, NodeBounds(root, Root), test.ShouldResemble, root)

	box := NodeBounds(root, NewNodeID(1, 1, 0, 1))
	test.That(t, box.Min, test.ShouldResemble, r3.Vector{X: 4, Y: 0, Z: 4})
	test.That(t, box.Max, test.ShouldResemble, r3.Vector{X: 8, Y: 4, Z: 8})

	box = NodeBounds(root, NewNodeID(3, 7, 0, 2))
	test.That(t, box.Min, test.ShouldResemble, r3.Vector{X: 7, Y: 0, Z: 2})
	test.That(t, box.Max, test.ShouldResemble, r3.Vector{X: 8, Y: 1, Z: 3})

	// descending octant by octant gives the same cube
	id := NewNodeID(3, 7, 0, 2)
	descended := root
	for _, node := range id.PathFromRoot()[1:] {
		descended = descended.ChildBox(node.Octant())
	}
	test.That(t, descended, test.ShouldResemble, box)
}

func TestNodeContaining(t *testing.T) {
	root := NewBoundingBox(0, 8, 0, 8, 0, 8)

	id, ok := NodeContaining(root, r3.Vector{X: 7.5, Y: 0.5, Z: 2.5}, 3)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, id, test.ShouldResemble, NewNodeID(3, 7, 0, 2))

	id, ok = NodeContaining(root, r3.Vector{X: 1, Y: 1, Z: 1}, 0)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, id, test.ShouldResemble, Root)

	_, ok = NodeContaining(root, r3.Vector{X: 9, Y: 1, Z: 1}, 2)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestKnownChildren(t *testing.T) {
	tree := mapTree{
		counts: map[NodeID]int64{
			Root:                  10,
			NewNodeID(1, 0, 0, 0): 4,
			NewNodeID(1, 1, 1, 1): 0,
		},
		pending: map[NodeID]bool{NewNodeID(1, 1, 0, 0): true},
	}
	children := KnownChildren(tree, Root)
	test.That(t, children, test.ShouldHaveLength, 3)
	test.That(t, children[0], test.ShouldResemble, NewNodeID(1, 0, 0, 0))
	test.That(t, children[1], test.ShouldResemble, NewNodeID(1, 1, 0, 0))
	test.That(t, children[2], test.ShouldResemble, NewNodeID(1, 1, 1, 1))
	test.That(t, KnownChildren(tree, NewNodeID(1, 0, 0, 0)), test.ShouldBeEmpty)
}
