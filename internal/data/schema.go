package data

import (
	"strings"

	"github.com/pkg/errors"
)

// ClassFlags is the packed one byte field carrying the LAS classification flag bits.
const ClassFlags = "ClassFlags"

// Sub attributes ClassFlags expands into, with their bit in the packed byte.
var classFlagBits = []struct {
	name string
	mask byte
}{
	{"Synthetic", 1 << 0},
	{"KeyPoint", 1 << 1},
	{"Withheld", 1 << 2},
	{"Overlap", 1 << 3},
}

// Field is one physical entry of a stored point record.
type Field struct {
	Name   string
	Type   DataType
	Offset int
	Size   int
}

// Getter reads one logical attribute out of a stored point record.
type Getter func(record []byte) float64

// Schema describes the stored point record of a dataset: the physical fields in file order and
// the logical attributes exposed to callers. The two differ when ClassFlags is expanded.
type Schema struct {
	fields     []Field
	recordSize int
	attributes AttributeCollection
	getters    map[string]Getter
}

func NewSchema() *Schema {
	return &Schema{getters: make(map[string]Getter)}
}

// AddEntry appends a schema entry of the given type ("signed", "unsigned", "float") and size.
// A one byte ClassFlags entry becomes the Synthetic, KeyPoint, Withheld and Overlap attributes.
func (s *Schema) AddEntry(name, kind string, size int) error {
	if name == ClassFlags && size == 1 {
		field := s.addField(name, Char, size)
		for _, flag := range classFlagBits {
			mask := flag.mask
			offset := field.Offset
			s.attributes.Push(Attribute{Name: flag.name, Type: Char})
			s.getters[strings.ToLower(flag.name)] = func(record []byte) float64 {
				if record[offset]&mask != 0 {
					return 1
				}
				return 0
			}
		}
		return nil
	}

	t, err := TypeFor(kind, size)
	if err != nil {
		return errors.Wrapf(err, "attribute %q", name)
	}
	field := s.addField(name, t, size)
	s.attributes.Push(Attribute{Name: name, Type: t})
	offset := field.Offset
	s.getters[strings.ToLower(name)] = func(record []byte) float64 {
		return ReadValue(record[offset:], t)
	}
	return nil
}

func (s *Schema) addField(name string, t DataType, size int) Field {
	field := Field{Name: name, Type: t, Offset: s.recordSize, Size: size}
	s.fields = append(s.fields, field)
	s.recordSize += size
	return field
}

// Attributes returns the logical attributes in schema order.
func (s *Schema) Attributes() AttributeCollection {
	return NewAttributeCollection(s.attributes.attributes...)
}

func (s *Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// RecordSize is the byte size of one stored point.
func (s *Schema) RecordSize() int {
	return s.recordSize
}

// Getter returns the reader of a logical attribute, ignoring case.
func (s *Schema) Getter(name string) (Getter, bool) {
	g, ok := s.getters[strings.ToLower(name)]
	return g, ok
}
