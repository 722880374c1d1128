package decoder

import (
	"github.com/pkg/errors"

	"github.com/ecopia-map/ept_index/internal/data"
)

// BinaryDecoder reads tiles stored as packed point records.
type BinaryDecoder struct{}

func (d *BinaryDecoder) Decode(raw []byte, params Params) (*data.Block, error) {
	if params.Schema == nil || params.Schema.RecordSize() == 0 {
		return nil, errors.Wrap(ErrDecodeFailure, "empty schema")
	}
	for _, name := range params.Extended.Names() {
		if _, ok := params.Schema.Getter(name); !ok {
			return nil, errors.Wrapf(ErrDecodeFailure, "schema has no attribute %q", name)
		}
	}

	recordSize := params.Schema.RecordSize()
	if len(raw)%recordSize != 0 {
		return nil, errors.Wrapf(ErrDecodeFailure, "%d bytes is not a multiple of the %d byte record", len(raw), recordSize)
	}
	count := len(raw) / recordSize
	if count == 0 {
		return nil, nil
	}

	builder := newBlockBuilder(params, count)
	for i := 0; i < count; i++ {
		record := raw[i*recordSize : (i+1)*recordSize]
		if err := builder.add(data.RecordPoint{Schema: params.Schema, Record: record}); err != nil {
			return nil, err
		}
	}
	return builder.block(), nil
}
