package data

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnsupportedAttributeType is returned for schema entries without a primitive mapping.
var ErrUnsupportedAttributeType = errors.New("unsupported attribute type")

// DataType is the primitive type of one attribute value.
type DataType int

const (
	Char DataType = iota
	Short
	UShort
	Int32
	Float
	Double
)

func (t DataType) Size() int {
	switch t {
	case Char:
		return 1
	case Short, UShort:
		return 2
	case Int32, Float:
		return 4
	case Double:
		return 8
	}
	return 0
}

func (t DataType) String() string {
	switch t {
	case Char:
		return "char"
	case Short:
		return "short"
	case UShort:
		return "ushort"
	case Int32:
		return "int32"
	case Float:
		return "float"
	case Double:
		return "double"
	}
	return "unknown"
}

// TypeFor maps a schema entry type ("signed", "unsigned", "float") and byte size to a primitive type.
// The checks run in a fixed order and the first match wins.
func TypeFor(kind string, size int) (DataType, error) {
	switch {
	case kind == "float" && size == 4:
		return Float, nil
	case kind == "float" && size == 8:
		return Double, nil
	case size == 1:
		return Char, nil
	case kind == "unsigned" && size == 2:
		return UShort, nil
	case size == 2:
		return Short, nil
	case size == 4 && kind != "float":
		return Int32, nil
	}
	return Char, errors.Wrapf(ErrUnsupportedAttributeType, "type %q of size %d", kind, size)
}

// ReadValue decodes a little endian value of type t from the start of buf.
func ReadValue(buf []byte, t DataType) float64 {
	switch t {
	case Char:
		return float64(int8(buf[0]))
	case Short:
		return float64(int16(binary.LittleEndian.Uint16(buf)))
	case UShort:
		return float64(binary.LittleEndian.Uint16(buf))
	case Int32:
		return float64(int32(binary.LittleEndian.Uint32(buf)))
	case Float:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(buf)))
	case Double:
		return math.Float64frombits(binary.LittleEndian.Uint64(buf))
	}
	return 0
}

// WriteValue encodes v as type t at the start of buf, rounding for integer types.
func WriteValue(buf []byte, t DataType, v float64) {
	switch t {
	case Char:
		buf[0] = byte(int8(math.Round(v)))
	case Short:
		binary.LittleEndian.PutUint16(buf, uint16(int16(math.Round(v))))
	case UShort:
		binary.LittleEndian.PutUint16(buf, uint16(math.Round(v)))
	case Int32:
		binary.LittleEndian.PutUint32(buf, uint32(int32(math.Round(v))))
	case Float:
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(v)))
	case Double:
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
	}
}

type Attribute struct {
	Name string
	Type DataType
}

func (a Attribute) Size() int {
	return a.Type.Size()
}

// AttributeCollection is an ordered list of attributes laid out back to back in a point record.
type AttributeCollection struct {
	attributes []Attribute
	offsets    []int
	size       int
}

func NewAttributeCollection(attributes ...Attribute) AttributeCollection {
	var c AttributeCollection
	for _, a := range attributes {
		c.Push(a)
	}
	return c
}

func (c *AttributeCollection) Push(a Attribute) {
	c.attributes = append(c.attributes, a)
	c.offsets = append(c.offsets, c.size)
	c.size += a.Size()
}

func (c AttributeCollection) Attributes() []Attribute {
	return append([]Attribute(nil), c.attributes...)
}

func (c AttributeCollection) Count() int {
	return len(c.attributes)
}

// PointRecordSize is the byte size of one point holding every attribute.
func (c AttributeCollection) PointRecordSize() int {
	return c.size
}

func (c AttributeCollection) Names() []string {
	names := make([]string, len(c.attributes))
	for i, a := range c.attributes {
		names[i] = a.Name
	}
	return names
}

// Find looks an attribute up by name, ignoring case, and returns its byte offset in the record.
func (c AttributeCollection) Find(name string) (Attribute, int, bool) {
	for i, a := range c.attributes {
		if strings.EqualFold(a.Name, name) {
			return a, c.offsets[i], true
		}
	}
	return Attribute{}, 0, false
}

// Extend returns a copy of c with the named attributes of schema appended, skipping names already
// present and names schema does not know.
func (c AttributeCollection) Extend(schema AttributeCollection, names []string) AttributeCollection {
	extended := NewAttributeCollection(c.attributes...)
	for _, name := range names {
		if _, _, ok := extended.Find(name); ok {
			continue
		}
		if a, _, ok := schema.Find(name); ok {
			extended.Push(a)
		}
	}
	return extended
}

func (c AttributeCollection) String() string {
	parts := make([]string, len(c.attributes))
	for i, a := range c.attributes {
		parts[i] = a.Name + ":" + a.Type.String()
	}
	return strings.Join(parts, ",")
}
