package data

import (
	"errors"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
	"go.viam.com/test"
)

func TestClassFlagsExpansion(t *testing.T) {
	s := NewSchema()
	test.That(t, s.AddEntry("X", "signed", 4), test.ShouldBeNil)
	test.That(t, s.AddEntry(ClassFlags, "unsigned", 1), test.ShouldBeNil)
	test.That(t, s.AddEntry("Intensity", "unsigned", 2), test.ShouldBeNil)

	want := []string{"X", "Synthetic", "KeyPoint", "Withheld", "Overlap", "Intensity"}
	if diff := cmp.Diff(want, s.Attributes().Names()); diff != "" {
		t.Errorf("attributes mismatch (-want +got):\n%s", diff)
	}
	test.That(t, s.RecordSize(), test.ShouldEqual, 7)
	test.That(t, s.Fields(), test.ShouldHaveLength, 3)

	record := make([]byte, s.RecordSize())
	WriteValue(record, Int32, 512)
	record[4] = 0x0a // KeyPoint and Overlap
	WriteValue(record[5:], UShort, 300)

	p := RecordPoint{Schema: s, Record: record}
	for name, want := range map[string]float64{
		"X":         512,
		"Synthetic": 0,
		"keypoint":  1,
		"Withheld":  0,
		"Overlap":   1,
		"Intensity": 300,
	} {
		got, ok := p.Value(name)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, got, test.ShouldEqual, want)
	}
	_, ok := p.Value(ClassFlags)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestUnsupportedSchemaEntry(t *testing.T) {
	s := NewSchema()
	err := s.AddEntry("Huge", "signed", 8)
	test.That(t, errors.Is(err, ErrUnsupportedAttributeType), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "Huge")
}

func TestBlock(t *testing.T) {
	attributes := NewAttributeCollection(
		Attribute{Name: "X", Type: Int32},
		Attribute{Name: "Y", Type: Int32},
		Attribute{Name: "Z", Type: Int32},
	)
	raw := make([]byte, 2*attributes.PointRecordSize())
	for i, v := range []float64{100, 200, 300, 400, 500, 600} {
		WriteValue(raw[4*i:], Int32, v)
	}
	b := NewBlock(attributes, 2, raw, r3.Vector{X: 0.01, Y: 0.01, Z: 0.5}, r3.Vector{X: 10, Y: 20, Z: 0})

	p, err := b.Position(1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.X, test.ShouldAlmostEqual, 14.0)
	test.That(t, p.Y, test.ShouldAlmostEqual, 25.0)
	test.That(t, p.Z, test.ShouldAlmostEqual, 300.0)

	_, err = b.Value(2, "X")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = b.Value(0, "Intensity")
	test.That(t, err, test.ShouldNotBeNil)

	clone := b.Clone()
	clone.Data()[0] = 0xff
	v, err := b.Value(0, "X")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, 100.0)

	var empty *Block
	test.That(t, empty.Clone(), test.ShouldBeNil)
}
