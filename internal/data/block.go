package data

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Block holds decoded points of one tile as packed little endian records laid out by its
// attribute collection. X, Y and Z are stored as in the dataset; Scale and Offset map them
// to real world units.
type Block struct {
	attributes AttributeCollection
	pointCount int
	data       []byte
	scale      r3.Vector
	offset     r3.Vector
}

func NewBlock(attributes AttributeCollection, pointCount int, data []byte, scale, offset r3.Vector) *Block {
	return &Block{
		attributes: attributes,
		pointCount: pointCount,
		data:       data,
		scale:      scale,
		offset:     offset,
	}
}

func (b *Block) Attributes() AttributeCollection {
	return b.attributes
}

func (b *Block) PointCount() int {
	return b.pointCount
}

// Data returns the packed point records. The slice is owned by the block.
func (b *Block) Data() []byte {
	return b.data
}

func (b *Block) Scale() r3.Vector {
	return b.scale
}

func (b *Block) Offset() r3.Vector {
	return b.offset
}

// Clone returns a deep copy sharing no memory with b.
func (b *Block) Clone() *Block {
	if b == nil {
		return nil
	}
	return &Block{
		attributes: NewAttributeCollection(b.attributes.attributes...),
		pointCount: b.pointCount,
		data:       append([]byte(nil), b.data...),
		scale:      b.scale,
		offset:     b.offset,
	}
}

// Value returns the stored value of an attribute of point i.
func (b *Block) Value(i int, name string) (float64, error) {
	if i < 0 || i >= b.pointCount {
		return 0, errors.Errorf("point %d out of range [0, %d)", i, b.pointCount)
	}
	a, offset, ok := b.attributes.Find(name)
	if !ok {
		return 0, errors.Errorf("block has no attribute %q", name)
	}
	start := i*b.attributes.PointRecordSize() + offset
	return ReadValue(b.data[start:start+a.Size()], a.Type), nil
}

// Position returns the real world coordinates of point i.
func (b *Block) Position(i int) (r3.Vector, error) {
	x, err := b.Value(i, "X")
	if err != nil {
		return r3.Vector{}, err
	}
	y, err := b.Value(i, "Y")
	if err != nil {
		return r3.Vector{}, err
	}
	z, err := b.Value(i, "Z")
	if err != nil {
		return r3.Vector{}, err
	}
	return r3.Vector{
		X: x*b.scale.X + b.offset.X,
		Y: y*b.scale.Y + b.offset.Y,
		Z: z*b.scale.Z + b.offset.Z,
	}, nil
}
