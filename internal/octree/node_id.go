package octree

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// MaxDepth is the deepest level a NodeID may address. Grid coordinates at this depth still fit an int32.
const MaxDepth = 30

// ErrMalformedAddress is returned for node addresses that cannot be parsed or lie outside the octree.
var ErrMalformedAddress = errors.New("malformed node address")

// NodeID addresses one cube of the octree: D is the depth (root is 0) and X, Y, Z the
// integer grid coordinates within that depth, each in [0, 2^D).
type NodeID struct {
	D int
	X int
	Y int
	Z int
}

// Root is the node covering the whole dataset.
var Root = NodeID{}

// NoParent is returned as the parent of the root node.
var NoParent = NodeID{D: -1}

func NewNodeID(d, x, y, z int) NodeID {
	return NodeID{D: d, X: x, Y: y, Z: z}
}

// ParseNodeID parses the canonical "D-X-Y-Z" form.
func ParseNodeID(s string) (NodeID, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 4 {
		return NoParent, errors.Wrapf(ErrMalformedAddress, "%q: expected 4 components", s)
	}

	var values [4]int
	for i, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil {
			return NoParent, errors.Wrapf(ErrMalformedAddress, "%q: component %d is not an integer", s, i)
		}
		values[i] = v
	}

	id := NodeID{D: values[0], X: values[1], Y: values[2], Z: values[3]}
	if !id.Valid() {
		return NoParent, errors.Wrapf(ErrMalformedAddress, "%q: coordinates out of range for depth", s)
	}
	return id, nil
}

// Valid reports whether the depth is supported and every coordinate is inside the depth's grid.
func (n NodeID) Valid() bool {
	if n.D < 0 || n.D > MaxDepth {
		return false
	}
	size := 1 << uint(n.D)
	return n.X >= 0 && n.X < size && n.Y >= 0 && n.Y < size && n.Z >= 0 && n.Z < size
}

func (n NodeID) IsRoot() bool {
	return n == Root
}

// Parent returns NoParent for the root.
func (n NodeID) Parent() NodeID {
	if n.D <= 0 {
		return NoParent
	}
	return NodeID{D: n.D - 1, X: n.X / 2, Y: n.Y / 2, Z: n.Z / 2}
}

// Child returns the node at depth D+1 occupying the given octant: bit 1 selects the upper X half,
// bit 2 the upper Y half and bit 4 the upper Z half.
func (n NodeID) Child(octant uint8) NodeID {
	return NodeID{
		D: n.D + 1,
		X: 2*n.X + int(octant&1),
		Y: 2*n.Y + int((octant>>1)&1),
		Z: 2*n.Z + int((octant>>2)&1),
	}
}

// Octant returns the position of the node inside its parent, using the same bit layout as Child.
func (n NodeID) Octant() uint8 {
	var result uint8 = 0
	if n.X&1 == 1 {
		result += 1
	}
	if n.Y&1 == 1 {
		result += 2
	}
	if n.Z&1 == 1 {
		result += 4
	}
	return result
}

// Children returns the eight nodes one level below.
func (n NodeID) Children() [8]NodeID {
	var children [8]NodeID
	for i := uint8(0); i < 8; i++ {
		children[i] = n.Child(i)
	}
	return children
}

// PathFromRoot lists the ancestors of n from the root down, n included.
func (n NodeID) PathFromRoot() []NodeID {
	if n.D < 0 {
		return nil
	}
	path := make([]NodeID, 0, n.D+1)
	for id := n; id.D >= 0; id = id.Parent() {
		path = append(path, id)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Less orders nodes by depth, then X, Y and Z.
func (n NodeID) Less(other NodeID) bool {
	if n.D != other.D {
		return n.D < other.D
	}
	if n.X != other.X {
		return n.X < other.X
	}
	if n.Y != other.Y {
		return n.Y < other.Y
	}
	return n.Z < other.Z
}

func (n NodeID) String() string {
	return fmt.Sprintf("%d-%d-%d-%d", n.D, n.X, n.Y, n.Z)
}
