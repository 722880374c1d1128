package data

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.viam.com/test"
)

func TestTypeFor(t *testing.T) {
	for _, tc := range []struct {
		kind string
		size int
		want DataType
	}{
		{"float", 4, Float},
		{"float", 8, Double},
		{"signed", 1, Char},
		{"unsigned", 1, Char},
		{"unsigned", 2, UShort},
		{"signed", 2, Short},
		{"signed", 4, Int32},
		{"unsigned", 4, Int32},
	} {
		got, err := TypeFor(tc.kind, tc.size)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got, test.ShouldEqual, tc.want)
	}

	for _, tc := range []struct {
		kind string
		size int
	}{
		{"signed", 8},
		{"unsigned", 8},
		{"float", 2},
		{"signed", 3},
	} {
		_, err := TypeFor(tc.kind, tc.size)
		test.That(t, errors.Is(err, ErrUnsupportedAttributeType), test.ShouldBeTrue)
	}
}

func TestReadWriteValue(t *testing.T) {
	buf := make([]byte, 8)
	for _, tc := range []struct {
		t     DataType
		value float64
	}{
		{Char, -7},
		{Short, -1200},
		{UShort, 65000},
		{Int32, -123456},
		{Float, 1.5},
		{Double, 1234.5678},
	} {
		WriteValue(buf, tc.t, tc.value)
		test.That(t, ReadValue(buf, tc.t), test.ShouldEqual, tc.value)
	}

	WriteValue(buf, Int32, 2.6)
	test.That(t, ReadValue(buf, Int32), test.ShouldEqual, 3.0)
}

func TestAttributeCollection(t *testing.T) {
	c := NewAttributeCollection(
		Attribute{Name: "X", Type: Int32},
		Attribute{Name: "Intensity", Type: UShort},
		Attribute{Name: "GpsTime", Type: Double},
	)
	test.That(t, c.Count(), test.ShouldEqual, 3)
	test.That(t, c.PointRecordSize(), test.ShouldEqual, 14)

	a, offset, ok := c.Find("gpstime")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, offset, test.ShouldEqual, 6)
	test.That(t, a.Type, test.ShouldEqual, Double)

	_, _, ok = c.Find("Red")
	test.That(t, ok, test.ShouldBeFalse)

	test.That(t, c.String(), test.ShouldEqual, "X:int32,Intensity:ushort,GpsTime:double")
}

func TestExtend(t *testing.T) {
	schema := NewAttributeCollection(
		Attribute{Name: "X", Type: Int32},
		Attribute{Name: "Y", Type: Int32},
		Attribute{Name: "Classification", Type: Char},
	)
	requested := NewAttributeCollection(Attribute{Name: "X", Type: Int32})

	extended := requested.Extend(schema, []string{"classification", "x", "Unknown"})
	if diff := cmp.Diff([]string{"X", "Classification"}, extended.Names()); diff != "" {
		t.Errorf("extended attributes mismatch (-want +got):\n%s", diff)
	}
	test.That(t, extended.PointRecordSize(), test.ShouldEqual, 5)
	test.That(t, requested.Count(), test.ShouldEqual, 1)
}
