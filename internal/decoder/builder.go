package decoder

import (
	"strings"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/ecopia-map/ept_index/internal/data"
)

// realPoint exposes X, Y and Z of a stored point in real world units.
type realPoint struct {
	point  data.Point
	scale  r3.Vector
	offset r3.Vector
}

func (p realPoint) Value(name string) (float64, bool) {
	v, ok := p.point.Value(name)
	if !ok {
		return 0, false
	}
	switch strings.ToUpper(name) {
	case "X":
		return v*p.scale.X + p.offset.X, true
	case "Y":
		return v*p.scale.Y + p.offset.Y, true
	case "Z":
		return v*p.scale.Z + p.offset.Z, true
	}
	return v, true
}

// blockBuilder accumulates the points of a tile that pass the rectangle and the filter,
// keeping only the requested attributes.
type blockBuilder struct {
	params  Params
	outputs []data.Attribute
	offsets []int
	size    int
	data    []byte
	count   int
}

func newBlockBuilder(params Params, capacity int) *blockBuilder {
	b := &blockBuilder{
		params:  params,
		outputs: params.Requested.Attributes(),
		size:    params.Requested.PointRecordSize(),
	}
	for _, a := range b.outputs {
		_, offset, _ := params.Requested.Find(a.Name)
		b.offsets = append(b.offsets, offset)
	}
	b.data = make([]byte, 0, capacity*b.size)
	return b
}

func (b *blockBuilder) add(p data.Point) error {
	world := realPoint{point: p, scale: b.params.Scale, offset: b.params.Offset}

	if b.params.FilterRect != nil {
		x, okX := world.Value("X")
		y, okY := world.Value("Y")
		if !okX || !okY {
			return errors.Wrap(ErrDecodeFailure, "filter rectangle needs X and Y")
		}
		if !b.params.FilterRect.ContainsPoint(r2.Point{X: x, Y: y}) {
			return nil
		}
	}

	if b.params.Filter != nil {
		keep, err := b.params.Filter.Evaluate(world)
		if err != nil {
			return errors.Wrapf(ErrDecodeFailure, "%v", err)
		}
		if !keep {
			return nil
		}
	}

	start := len(b.data)
	b.data = append(b.data, make([]byte, b.size)...)
	record := b.data[start:]
	for i, a := range b.outputs {
		v, ok := p.Value(a.Name)
		if !ok {
			return errors.Wrapf(ErrDecodeFailure, "tile has no attribute %q", a.Name)
		}
		data.WriteValue(record[b.offsets[i]:], a.Type, v)
	}
	b.count++
	return nil
}

// block returns nil when no point was kept.
func (b *blockBuilder) block() *data.Block {
	if b.count == 0 {
		return nil
	}
	return data.NewBlock(b.params.Requested, b.count, b.data, b.params.Scale, b.params.Offset)
}
