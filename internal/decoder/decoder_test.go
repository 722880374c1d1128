package decoder

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/edaniels/lidario"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/klauspost/compress/zstd"
	"go.viam.com/test"

	"github.com/ecopia-map/ept_index/internal/data"
	"github.com/ecopia-map/ept_index/internal/ept"
	"github.com/ecopia-map/ept_index/internal/filter"
)

func testSchema(t *testing.T) *data.Schema {
	t.Helper()
	s := data.NewSchema()
	for _, entry := range []struct {
		name, kind string
		size       int
	}{
		{"X", "signed", 4},
		{"Y", "signed", 4},
		{"Z", "signed", 4},
		{"Intensity", "unsigned", 2},
		{"Classification", "unsigned", 1},
	} {
		test.That(t, s.AddEntry(entry.name, entry.kind, entry.size), test.ShouldBeNil)
	}
	return s
}

// testRecords packs stored points given as X, Y, Z, Intensity, Classification.
func testRecords(s *data.Schema, points [][5]float64) []byte {
	fields := s.Fields()
	raw := make([]byte, len(points)*s.RecordSize())
	for i, p := range points {
		record := raw[i*s.RecordSize():]
		for j, f := range fields {
			data.WriteValue(record[f.Offset:], f.Type, p[j])
		}
	}
	return raw
}

var testPoints = [][5]float64{
	{0, 0, 0, 10, 2},
	{500, 500, 100, 200, 2},
	{1000, 1000, 200, 300, 6},
}

func testParams(s *data.Schema) Params {
	return Params{
		Schema:    s,
		Requested: s.Attributes(),
		Extended:  s.Attributes(),
		Scale:     r3.Vector{X: 0.01, Y: 0.01, Z: 0.01},
		Offset:    r3.Vector{X: 100, Y: 200, Z: 0},
	}
}

func TestBinaryDecode(t *testing.T) {
	s := testSchema(t)
	raw := testRecords(s, testPoints)

	block, err := (&BinaryDecoder{}).Decode(raw, testParams(s))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, block.PointCount(), test.ShouldEqual, 3)
	test.That(t, block.Data(), test.ShouldResemble, raw)

	p, err := block.Position(1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.X, test.ShouldAlmostEqual, 105.0)
	test.That(t, p.Y, test.ShouldAlmostEqual, 205.0)
	test.That(t, p.Z, test.ShouldAlmostEqual, 1.0)

	empty, err := (&BinaryDecoder{}).Decode(nil, testParams(s))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, empty, test.ShouldBeNil)
}

func TestBinaryDecodeFilter(t *testing.T) {
	s := testSchema(t)
	raw := testRecords(s, testPoints)

	expression, err := filter.Parse("Classification == 2 && X > 101.0", s.Attributes())
	test.That(t, err, test.ShouldBeNil)

	params := testParams(s)
	params.Requested = data.NewAttributeCollection(data.Attribute{Name: "Intensity", Type: data.UShort})
	params.Extended = params.Requested.Extend(s.Attributes(), expression.ReferencedAttributes())
	params.Filter = expression

	block, err := (&BinaryDecoder{}).Decode(raw, params)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, block.PointCount(), test.ShouldEqual, 1)
	test.That(t, block.Attributes().Names(), test.ShouldResemble, []string{"Intensity"})
	v, err := block.Value(0, "Intensity")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, 200.0)

	none, err := filter.Parse("Classification == 9", s.Attributes())
	test.That(t, err, test.ShouldBeNil)
	params.Filter = none
	block, err = (&BinaryDecoder{}).Decode(raw, params)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, block, test.ShouldBeNil)
}

func TestBinaryDecodeRect(t *testing.T) {
	s := testSchema(t)
	raw := testRecords(s, testPoints)

	params := testParams(s)
	rect := r2.RectFromPoints(r2.Point{X: 104, Y: 204}, r2.Point{X: 111, Y: 211})
	params.FilterRect = &rect

	block, err := (&BinaryDecoder{}).Decode(raw, params)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, block.PointCount(), test.ShouldEqual, 2)
	v, err := block.Value(1, "Classification")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, 6.0)
}

func TestBinaryDecodeErrors(t *testing.T) {
	s := testSchema(t)
	raw := testRecords(s, testPoints)

	_, err := (&BinaryDecoder{}).Decode(raw[:len(raw)-1], testParams(s))
	test.That(t, errors.Is(err, ErrDecodeFailure), test.ShouldBeTrue)

	params := testParams(s)
	params.Extended = params.Extended.Extend(
		data.NewAttributeCollection(data.Attribute{Name: "Red", Type: data.UShort}), []string{"Red"})
	_, err = (&BinaryDecoder{}).Decode(raw, params)
	test.That(t, errors.Is(err, ErrDecodeFailure), test.ShouldBeTrue)

	params = testParams(s)
	params.Schema = data.NewSchema()
	_, err = (&BinaryDecoder{}).Decode(raw, params)
	test.That(t, errors.Is(err, ErrDecodeFailure), test.ShouldBeTrue)
}

func TestZstandardDecode(t *testing.T) {
	s := testSchema(t)
	raw := testRecords(s, testPoints)

	encoder, err := zstd.NewWriter(nil)
	test.That(t, err, test.ShouldBeNil)
	compressed := encoder.EncodeAll(raw, nil)
	test.That(t, encoder.Close(), test.ShouldBeNil)

	d, err := NewZstandardDecoder()
	test.That(t, err, test.ShouldBeNil)
	defer d.Close()

	block, err := d.Decode(compressed, testParams(s))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, block.Data(), test.ShouldResemble, raw)

	_, err = d.Decode([]byte("not a zstd frame"), testParams(s))
	test.That(t, errors.Is(err, ErrDecodeFailure), test.ShouldBeTrue)
}

func writeTestLas(t *testing.T, points []lidario.PointRecord0) []byte {
	t.Helper()
	fileName := filepath.Join(t.TempDir(), "tile.las")
	lf, err := lidario.NewLasFile(fileName, "w")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, lf.AddHeader(lidario.LasHeader{PointFormatID: 0}), test.ShouldBeNil)
	for i := range points {
		test.That(t, lf.AddLasPoint(&points[i]), test.ShouldBeNil)
	}
	test.That(t, lf.Close(), test.ShouldBeNil)

	raw, err := os.ReadFile(fileName)
	test.That(t, err, test.ShouldBeNil)
	return raw
}

func TestLasDecode(t *testing.T) {
	ground := lidario.PointRecord0{X: 101.25, Y: 202.5, Z: 3.75, Intensity: 40}
	ground.ClassBitField.SetClassification(2)
	building := lidario.PointRecord0{X: 108, Y: 209, Z: 12.5, Intensity: 90}
	building.ClassBitField.SetClassification(6)
	raw := writeTestLas(t, []lidario.PointRecord0{ground, building})

	s := testSchema(t)
	params := testParams(s)

	block, err := (&LasDecoder{}).Decode(raw, params)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, block.PointCount(), test.ShouldEqual, 2)

	p, err := block.Position(0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.X, test.ShouldAlmostEqual, 101.25)
	test.That(t, p.Y, test.ShouldAlmostEqual, 202.5)
	test.That(t, p.Z, test.ShouldAlmostEqual, 3.75)
	x, err := block.Value(0, "X")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, x, test.ShouldEqual, 125.0)
	c, err := block.Value(1, "Classification")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c, test.ShouldEqual, 6.0)

	expression, err := filter.Parse("Classification == 6", s.Attributes())
	test.That(t, err, test.ShouldBeNil)
	params.Filter = expression
	block, err = (&LasDecoder{}).Decode(raw, params)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, block.PointCount(), test.ShouldEqual, 1)
	i, err := block.Value(0, "Intensity")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, i, test.ShouldEqual, 90.0)
}

func TestLasDecodeErrors(t *testing.T) {
	s := testSchema(t)

	_, err := (&LasDecoder{}).Decode(make([]byte, 300), testParams(s))
	test.That(t, errors.Is(err, ErrDecodeFailure), test.ShouldBeTrue)

	block, err := (&LasDecoder{}).Decode(nil, testParams(s))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, block, test.ShouldBeNil)

	// compressed point records are flagged in the top bit of the format byte
	raw := writeTestLas(t, []lidario.PointRecord0{{X: 1, Y: 1, Z: 1}})
	raw[104] |= 0x80
	_, err = (&LasDecoder{}).Decode(raw, testParams(s))
	test.That(t, errors.Is(err, ErrDecodeFailure), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "compressed")
}

func TestForEncoding(t *testing.T) {
	for kind, want := range map[ept.EncodingKind]interface{}{
		ept.Binary:    &BinaryDecoder{},
		ept.Zstandard: &ZstandardDecoder{},
		ept.LasZip:    &LasDecoder{},
	} {
		d, err := ForEncoding(kind)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, d, test.ShouldHaveSameTypeAs, want)
		if z, ok := d.(*ZstandardDecoder); ok {
			z.Close()
		}
	}

	_, err := ForEncoding(ept.EncodingKind("copc"))
	test.That(t, err, test.ShouldNotBeNil)
}
