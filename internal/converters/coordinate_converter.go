package converters

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/shopspring/decimal"

	"github.com/ecopia-map/ept_index/internal/octree"
)

// CoordinateConverter maps between real world coordinates and the scaled integer space points
// are stored in.
type CoordinateConverter interface {
	ToScaled(world r3.Vector) r3.Vector
	ToReal(scaled r3.Vector) r3.Vector
	ScaledBox(min, max r3.Vector) octree.BoundingBox
	RealExtent(box octree.BoundingBox) (r2.Rect, float64, float64)
}

// ScaleOffsetConverter applies real = stored * scale + offset per axis.
type ScaleOffsetConverter struct {
	scale  r3.Vector
	offset r3.Vector
}

func NewScaleOffsetConverter(scale, offset r3.Vector) *ScaleOffsetConverter {
	return &ScaleOffsetConverter{scale: scale, offset: offset}
}

func (c *ScaleOffsetConverter) Scale() r3.Vector {
	return c.scale
}

func (c *ScaleOffsetConverter) Offset() r3.Vector {
	return c.offset
}

// ToScaled computes (real - offset) / scale in decimal arithmetic, so bounds written with the
// same decimals as scale and offset land exactly on the stored grid.
func (c *ScaleOffsetConverter) ToScaled(world r3.Vector) r3.Vector {
	return r3.Vector{
		X: toScaled(world.X, c.scale.X, c.offset.X),
		Y: toScaled(world.Y, c.scale.Y, c.offset.Y),
		Z: toScaled(world.Z, c.scale.Z, c.offset.Z),
	}
}

func toScaled(v, scale, offset float64) float64 {
	if scale == 0 {
		return v - offset
	}
	d := decimal.NewFromFloat(v).Sub(decimal.NewFromFloat(offset)).Div(decimal.NewFromFloat(scale))
	return d.InexactFloat64()
}

func (c *ScaleOffsetConverter) ToReal(scaled r3.Vector) r3.Vector {
	return r3.Vector{
		X: scaled.X*c.scale.X + c.offset.X,
		Y: scaled.Y*c.scale.Y + c.offset.Y,
		Z: scaled.Z*c.scale.Z + c.offset.Z,
	}
}

// ScaledBox converts a real world box to the stored coordinate space.
func (c *ScaleOffsetConverter) ScaledBox(min, max r3.Vector) octree.BoundingBox {
	return octree.BoundingBox{Min: c.ToScaled(min), Max: c.ToScaled(max)}
}

// RealExtent returns the 2-D extent and the Z range of a stored space box in real world units.
func (c *ScaleOffsetConverter) RealExtent(box octree.BoundingBox) (r2.Rect, float64, float64) {
	min := c.ToReal(box.Min)
	max := c.ToReal(box.Max)
	extent := r2.RectFromPoints(r2.Point{X: min.X, Y: min.Y}, r2.Point{X: max.X, Y: max.Y})
	return extent, min.Z, max.Z
}
