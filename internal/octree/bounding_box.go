package octree

import (
	"math"

	"github.com/golang/geo/r3"
)

// BoundingBox is an axis aligned box. In the index it is expressed in the scaled integer
// coordinate space the octree addresses.
type BoundingBox struct {
	Min r3.Vector
	Max r3.Vector
}

func NewBoundingBox(xmin, xmax, ymin, ymax, zmin, zmax float64) BoundingBox {
	return BoundingBox{
		Min: r3.Vector{X: xmin, Y: ymin, Z: zmin},
		Max: r3.Vector{X: xmax, Y: ymax, Z: zmax},
	}
}

func (b BoundingBox) Mid() r3.Vector {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b BoundingBox) Size() r3.Vector {
	return b.Max.Sub(b.Min)
}

// OctantOf returns the index of the octant of b containing p, with the bit layout used by NodeID.Child.
func (b BoundingBox) OctantOf(p r3.Vector) uint8 {
	mid := b.Mid()
	var result uint8 = 0
	if p.X > mid.X {
		result += 1
	}
	if p.Y > mid.Y {
		result += 2
	}
	if p.Z > mid.Z {
		result += 4
	}
	return result
}

// ChildBox returns the sub box of b covering the given octant.
func (b BoundingBox) ChildBox(octant uint8) BoundingBox {
	mid := b.Mid()
	child := b
	if octant&1 == 1 {
		child.Min.X = mid.X
	} else {
		child.Max.X = mid.X
	}
	if octant&2 == 2 {
		child.Min.Y = mid.Y
	} else {
		child.Max.Y = mid.Y
	}
	if octant&4 == 4 {
		child.Min.Z = mid.Z
	} else {
		child.Max.Z = mid.Z
	}
	return child
}

// NodeBounds returns the cube covered by id when root covers the whole tree.
func NodeBounds(root BoundingBox, id NodeID) BoundingBox {
	if id.D <= 0 {
		return root
	}
	cells := math.Ldexp(1, id.D)
	size := root.Size().Mul(1 / cells)
	min := r3.Vector{
		X: root.Min.X + float64(id.X)*size.X,
		Y: root.Min.Y + float64(id.Y)*size.Y,
		Z: root.Min.Z + float64(id.Z)*size.Z,
	}
	return BoundingBox{Min: min, Max: min.Add(size)}
}

// Contains reports whether p lies inside b, borders included.
func (b BoundingBox) Contains(p r3.Vector) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// NodeContaining returns the node at the given depth whose cube contains p, descending octant by
// octant from the root box. The second result is false when p lies outside root.
func NodeContaining(root BoundingBox, p r3.Vector, depth int) (NodeID, bool) {
	if !root.Contains(p) || depth < 0 || depth > MaxDepth {
		return NoParent, false
	}
	id := Root
	box := root
	for id.D < depth {
		octant := box.OctantOf(p)
		id = id.Child(octant)
		box = box.ChildBox(octant)
	}
	return id, true
}
