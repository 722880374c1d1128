package decoder

import (
	"math"
	"os"
	"strings"

	"github.com/edaniels/lidario"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/ecopia-map/ept_index/internal/data"
)

// maxLasPointFormat is the last point record format the LAS reader understands.
const maxLasPointFormat = 3

// LasDecoder reads tiles stored as LAS files. Point records must be uncompressed and use
// formats 0 to 3.
type LasDecoder struct{}

func (d *LasDecoder) Decode(raw []byte, params Params) (block *data.Block, err error) {
	if len(raw) == 0 {
		return nil, nil
	}

	fileName, err := writeTempLas(raw)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := os.Remove(fileName); rerr != nil && !os.IsNotExist(rerr) {
			err = multierr.Combine(err, rerr)
		}
	}()

	if err := checkLasHeader(fileName); err != nil {
		return nil, err
	}

	lf, err := lidario.NewLasFile(fileName, "r")
	if err != nil {
		if lf != nil {
			err = multierr.Combine(err, closeLas(lf))
		}
		return nil, errors.Wrapf(ErrDecodeFailure, "las: %v", err)
	}
	defer func() {
		err = multierr.Combine(err, closeLas(lf))
	}()

	count := lf.Header.NumberPoints
	if count == 0 {
		return nil, nil
	}

	builder := newBlockBuilder(params, count)
	for i := 0; i < count; i++ {
		p, perr := lf.LasPoint(i)
		if perr != nil {
			return nil, errors.Wrapf(ErrDecodeFailure, "las point %d: %v", i, perr)
		}
		if aerr := builder.add(newLasPoint(p, params)); aerr != nil {
			return nil, aerr
		}
	}
	return builder.block(), nil
}

func writeTempLas(raw []byte) (string, error) {
	f, err := os.CreateTemp("", "ept-tile-*.las")
	if err != nil {
		return "", errors.Wrapf(ErrDecodeFailure, "las: %v", err)
	}
	_, werr := f.Write(raw)
	if err := multierr.Combine(werr, f.Close()); err != nil {
		return "", errors.Wrapf(ErrDecodeFailure, "las: %v", multierr.Combine(err, os.Remove(f.Name())))
	}
	return f.Name(), nil
}

// checkLasHeader reads the header only, rejecting files the point reader cannot handle.
func checkLasHeader(fileName string) (err error) {
	lf, err := lidario.NewLasFile(fileName, "rh")
	if lf != nil {
		defer func() {
			err = multierr.Combine(err, closeLas(lf))
		}()
	}
	if err != nil {
		return errors.Wrapf(ErrDecodeFailure, "las header: %v", err)
	}
	format := lf.Header.PointFormatID
	if format&0x80 != 0 {
		return errors.Wrapf(ErrDecodeFailure, "las: compressed point records (format %d) are not supported", format&0x3f)
	}
	if format > maxLasPointFormat {
		return errors.Wrapf(ErrDecodeFailure, "las: point format %d is not supported", format)
	}
	return nil
}

// closeLas ignores the error lidario reports for readers that never opened their file.
func closeLas(lf *lidario.LasFile) error {
	if err := lf.Close(); err != nil && !strings.Contains(err.Error(), "reader is nil") {
		return err
	}
	return nil
}

// lasPoint exposes a LAS point record under the attribute names of the dataset schema.
// X, Y and Z are converted back to stored integers with the dataset scale and offset.
type lasPoint map[string]float64

func newLasPoint(p lidario.LasPointer, params Params) lasPoint {
	pd := p.PointData()
	point := lasPoint{
		"x":                 stored(pd.X, params.Scale.X, params.Offset.X),
		"y":                 stored(pd.Y, params.Scale.Y, params.Offset.Y),
		"z":                 stored(pd.Z, params.Scale.Z, params.Offset.Z),
		"intensity":         float64(pd.Intensity),
		"returnnumber":      float64(pd.BitField.ReturnNumber()),
		"numberofreturns":   float64(pd.BitField.NumberOfReturns()),
		"scandirectionflag": boolValue(pd.BitField.ScanDirectionFlag()),
		"edgeofflightline":  boolValue(pd.BitField.EdgeOfFlightlineFlag()),
		"classification":    float64(pd.ClassBitField.Classification()),
		"synthetic":         boolValue(pd.ClassBitField.Synthetic()),
		"keypoint":          boolValue(pd.ClassBitField.Keypoint()),
		"withheld":          boolValue(pd.ClassBitField.Value&0x80 != 0),
		"overlap":           0,
		"scananglerank":     float64(pd.ScanAngle),
		"userdata":          float64(pd.UserData),
		"pointsourceid":     float64(pd.PointSourceID),
	}
	switch p.Format() {
	case 1, 3:
		point["gpstime"] = p.GpsTimeData()
	}
	switch p.Format() {
	case 2, 3:
		if rgb := p.RgbData(); rgb != nil {
			point["red"] = float64(rgb.Red)
			point["green"] = float64(rgb.Green)
			point["blue"] = float64(rgb.Blue)
		}
	}
	return point
}

func (p lasPoint) Value(name string) (float64, bool) {
	v, ok := p[strings.ToLower(name)]
	return v, ok
}

func stored(v, scale, offset float64) float64 {
	if scale == 0 {
		return v - offset
	}
	return math.Round((v - offset) / scale)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
