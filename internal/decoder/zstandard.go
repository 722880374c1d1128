package decoder

import (
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/ecopia-map/ept_index/internal/data"
)

// ZstandardDecoder reads tiles holding packed point records compressed with zstandard.
// It is safe for concurrent use.
type ZstandardDecoder struct {
	zstd   *zstd.Decoder
	binary BinaryDecoder
}

func NewZstandardDecoder() (*ZstandardDecoder, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.Wrap(err, "cannot create zstd decoder")
	}
	return &ZstandardDecoder{zstd: decoder}, nil
}

func (d *ZstandardDecoder) Decode(raw []byte, params Params) (*data.Block, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	records, err := d.zstd.DecodeAll(raw, nil)
	if err != nil {
		return nil, errors.Wrapf(ErrDecodeFailure, "zstd: %v", err)
	}
	return d.binary.Decode(records, params)
}

// Close releases the decoder goroutines.
func (d *ZstandardDecoder) Close() {
	d.zstd.Close()
}
