package octree

import (
	"errors"
	"testing"

	"go.viam.com/test"
)

func TestParseFormatRoundTrip(t *testing.T) {
	for _, id := range []NodeID{
		Root,
		NewNodeID(1, 1, 0, 1),
		NewNodeID(3, 7, 0, 5),
		NewNodeID(12, 4095, 17, 2048),
		NewNodeID(MaxDepth, 1<<MaxDepth-1, 0, 1<<MaxDepth-1),
	} {
		parsed, err := ParseNodeID(id.String())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, parsed, test.ShouldResemble, id)
	}
	test.That(t, NewNodeID(2, 3, 1, 0).String(), test.ShouldResemble, "2-3-1-0")
}

func TestParseMalformed(t *testing.T) {
	for _, s := range []string{
		"",
		"0-0-0",
		"0-0-0-0-0",
		"a-0-0-0",
		"1-0-0-x",
		"0-0-0-1",
		"1-2-0-0",
		"-1-0-0-0",
		"31-0-0-0",
	} {
		_, err := ParseNodeID(s)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, errors.Is(err, ErrMalformedAddress), test.ShouldBeTrue)
	}
}

func TestParentChild(t *testing.T) {
	test.That(t, Root.Parent(), test.ShouldResemble, NoParent)
	test.That(t, Root.IsRoot(), test.ShouldBeTrue)

	for _, id := range []NodeID{
		NewNodeID(1, 1, 0, 1),
		NewNodeID(2, 3, 2, 1),
		NewNodeID(5, 17, 30, 9),
	} {
		test.That(t, id.Parent().Child(id.Octant()), test.ShouldResemble, id)
	}

	parent := NewNodeID(2, 1, 2, 3)
	for i, child := range parent.Children() {
		test.That(t, child.Parent(), test.ShouldResemble, parent)
		test.That(t, child.Octant(), test.ShouldResemble, uint8(i))
		test.That(t, child.Valid(), test.ShouldBeTrue)
	}
	test.That(t, Root.Child(5), test.ShouldResemble, NewNodeID(1, 1, 0, 1))
}

func TestPathFromRoot(t *testing.T) {
	id := NewNodeID(3, 5, 2, 7)
	path := id.PathFromRoot()
	test.That(t, path, test.ShouldHaveLength, 4)
	test.That(t, path[0], test.ShouldResemble, Root)
	test.That(t, path[1], test.ShouldResemble, NewNodeID(1, 1, 0, 1))
	test.That(t, path[2], test.ShouldResemble, NewNodeID(2, 2, 1, 3))
	test.That(t, path[3], test.ShouldResemble, id)

	test.That(t, Root.PathFromRoot(), test.ShouldHaveLength, 1)
	test.That(t, NoParent.PathFromRoot(), test.ShouldBeEmpty)
	test.That(t, NodeID{D: -3}.PathFromRoot(), test.ShouldBeEmpty)
}

func TestLess(t *testing.T) {
	test.That(t, Root.Less(NewNodeID(1, 0, 0, 0)), test.ShouldBeTrue)
	test.That(t, NewNodeID(1, 0, 1, 1).Less(NewNodeID(1, 1, 0, 0)), test.ShouldBeTrue)
	test.That(t, NewNodeID(1, 1, 0, 0).Less(NewNodeID(1, 1, 0, 0)), test.ShouldBeFalse)
}
