package decoder

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/ecopia-map/ept_index/internal/data"
	"github.com/ecopia-map/ept_index/internal/ept"
	"github.com/ecopia-map/ept_index/internal/filter"
)

// ErrDecodeFailure is returned when a fetched tile cannot be decoded.
var ErrDecodeFailure = errors.New("decode failure")

// Params carries everything a decoder needs besides the tile bytes.
type Params struct {
	// Stored point layout of the dataset
	Schema *data.Schema
	// Attributes of the returned block
	Requested data.AttributeCollection
	// Requested plus the attributes the filter reads
	Extended data.AttributeCollection
	Scale    r3.Vector
	Offset   r3.Vector
	// Optional predicate, owned by this decode
	Filter filter.Expression
	// Optional 2-D rectangle in real world units
	FilterRect *r2.Rect
}

// Decoder turns the bytes of one tile into a block restricted to the requested attributes.
// It returns a nil block and no error when the tile is empty or entirely filtered out.
type Decoder interface {
	Decode(raw []byte, params Params) (*data.Block, error)
}

// ForEncoding returns the decoder of an encoding kind.
func ForEncoding(kind ept.EncodingKind) (Decoder, error) {
	switch kind {
	case ept.Binary:
		return &BinaryDecoder{}, nil
	case ept.Zstandard:
		return NewZstandardDecoder()
	case ept.LasZip:
		return &LasDecoder{}, nil
	}
	return nil, errors.Errorf("no decoder for encoding %q", kind)
}
