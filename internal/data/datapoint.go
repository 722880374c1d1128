package data

// Point gives access to the attribute values of one stored point.
type Point interface {
	// Returns the stored value of the named attribute, ignoring case
	Value(name string) (float64, bool)
}

// RecordPoint reads a point out of a packed record through the schema describing it.
type RecordPoint struct {
	Schema *Schema
	Record []byte
}

func (p RecordPoint) Value(name string) (float64, bool) {
	getter, ok := p.Schema.Getter(name)
	if !ok {
		return 0, false
	}
	return getter(p.Record), true
}

// MapPoint is a Point backed by a map. Keys are expected in the case the caller looks them up with.
type MapPoint map[string]float64

func (p MapPoint) Value(name string) (float64, bool) {
	v, ok := p[name]
	return v, ok
}
