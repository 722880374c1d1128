package pkg

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/ecopia-map/ept_index/internal/access"
	"github.com/ecopia-map/ept_index/internal/converters"
	"github.com/ecopia-map/ept_index/internal/data"
	"github.com/ecopia-map/ept_index/internal/ept"
	"github.com/ecopia-map/ept_index/internal/hierarchy"
	"github.com/ecopia-map/ept_index/internal/octree"
)

type eptDocument struct {
	DataType         string        `json:"dataType"`
	HierarchyType    string        `json:"hierarchyType"`
	Span             int           `json:"span"`
	Points           int64         `json:"points"`
	Srs              *eptSrs       `json:"srs"`
	Bounds           []float64     `json:"bounds"`
	BoundsConforming []float64     `json:"boundsConforming"`
	Schema           []schemaEntry `json:"schema"`
}

type eptSrs struct {
	Wkt string `json:"wkt"`
}

type schemaEntry struct {
	Name   string   `json:"name"`
	Type   string   `json:"type"`
	Size   int      `json:"size"`
	Scale  *float64 `json:"scale"`
	Offset *float64 `json:"offset"`

	Count    *float64     `json:"count"`
	Minimum  *float64     `json:"minimum"`
	Maximum  *float64     `json:"maximum"`
	Mean     *float64     `json:"mean"`
	StDev    *float64     `json:"stddev"`
	Variance *float64     `json:"variance"`
	Counts   []classCount `json:"counts"`
}

type classCount struct {
	Value int64 `json:"value"`
	Count int64 `json:"count"`
}

type manifestEntry struct {
	MetadataPath string `json:"metadataPath"`
}

// load runs the bootstrap of idx. It leaves idx untouched on error.
func (idx *Index) load(ctx context.Context) error {
	accessor, err := idx.manager.GetAccessor(idx.accessType)
	if err != nil {
		return err
	}

	raw, err := accessor.Fetch(ctx, idx.uri, access.FetchOptions{Kind: access.KindMetadata})
	if err != nil {
		return err
	}
	meta, err := parseMetadata(raw)
	if err != nil {
		return err
	}

	dec, err := idx.manager.GetDecoder(meta.encoding)
	if err != nil {
		return errors.Wrapf(ErrInvalidMetadata, "%v", err)
	}

	meta.original = loadOriginalMetadata(ctx, accessor, idx.dir)

	store := hierarchy.NewStore()
	store.MarkPending(octree.Root)
	loader := hierarchy.NewLoader(store, accessor, idx.dir)
	ok, err := loader.EnsureLoaded(ctx, octree.Root)
	if err != nil {
		return errors.Wrap(err, "cannot load root hierarchy")
	}
	if !ok {
		return errors.Wrapf(ErrInvalidMetadata, "root hierarchy %s has no count for the root node", loader.HierarchyLocator(octree.Root))
	}

	idx.accessor = accessor
	idx.decoder = dec
	idx.loader = loader
	idx.meta = meta
	return nil
}

// parseMetadata validates an ept.json document and derives the index metadata from it.
func parseMetadata(raw []byte) (*metadata, error) {
	var doc eptDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrapf(ErrInvalidMetadata, "%v", err)
	}

	encoding, ok := ept.ParseEncodingKind(doc.DataType)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidMetadata, "unknown data type %q", doc.DataType)
	}
	if doc.HierarchyType != "json" {
		return nil, errors.Wrapf(ErrInvalidMetadata, "unsupported hierarchy type %q", doc.HierarchyType)
	}
	if len(doc.Bounds) != 6 {
		return nil, errors.Wrapf(ErrInvalidMetadata, "bounds has %d values, want 6", len(doc.Bounds))
	}
	if len(doc.BoundsConforming) != 6 {
		return nil, errors.Wrapf(ErrInvalidMetadata, "boundsConforming has %d values, want 6", len(doc.BoundsConforming))
	}

	schema := data.NewSchema()
	stats := data.NewStatistics()
	scale := r3.Vector{X: 1, Y: 1, Z: 1}
	offset := r3.Vector{}
	for _, entry := range doc.Schema {
		if err := schema.AddEntry(entry.Name, entry.Type, entry.Size); err != nil {
			return nil, err
		}

		s, o := 1.0, 0.0
		if entry.Scale != nil {
			s = *entry.Scale
		}
		if entry.Offset != nil {
			o = *entry.Offset
		}
		switch entry.Name {
		case "X":
			scale.X, offset.X = s, o
		case "Y":
			scale.Y, offset.Y = s, o
		case "Z":
			scale.Z, offset.Z = s, o
		}

		if attributeStats := entry.statistics(); attributeStats != nil {
			stats.Set(entry.Name, attributeStats)
		}
	}

	converter := converters.NewScaleOffsetConverter(scale, offset)
	b := doc.Bounds
	rootBounds := converter.ScaledBox(r3.Vector{X: b[0], Y: b[1], Z: b[2]}, r3.Vector{X: b[3], Y: b[4], Z: b[5]})
	c := doc.BoundsConforming

	meta := &metadata{
		encoding:   encoding,
		span:       doc.Span,
		pointCount: doc.Points,
		converter:  converter,
		rootBounds: rootBounds,
		extent:     r2.RectFromPoints(r2.Point{X: c[0], Y: c[1]}, r2.Point{X: c[3], Y: c[4]}),
		zMin:       c[2],
		zMax:       c[5],
		schema:     schema,
		stats:      stats,
	}
	if doc.Srs != nil {
		meta.wkt = doc.Srs.Wkt
	}
	return meta, nil
}

func (e schemaEntry) statistics() *data.AttributeStatistics {
	values := []struct {
		stat  data.Statistic
		value *float64
	}{
		{data.Count, e.Count},
		{data.Min, e.Minimum},
		{data.Max, e.Maximum},
		{data.Mean, e.Mean},
		{data.StDev, e.StDev},
		{data.Variance, e.Variance},
	}

	var stats *data.AttributeStatistics
	for _, v := range values {
		if v.value == nil {
			continue
		}
		if stats == nil {
			stats = data.NewAttributeStatistics()
		}
		stats.Set(v.stat, *v.value)
	}
	for _, c := range e.Counts {
		if stats == nil {
			stats = data.NewAttributeStatistics()
		}
		stats.SetClassCount(c.Value, c.Count)
	}
	return stats
}

// loadOriginalMetadata reads the metadata of the first source listed by the manifest. The data is
// advisory: every failure is logged and yields nil.
func loadOriginalMetadata(ctx context.Context, accessor access.Accessor, dir string) map[string]interface{} {
	sources := access.Join(dir, "ept-sources")
	manifestLocator := access.Join(sources, "manifest.json")

	raw, err := accessor.Fetch(ctx, manifestLocator, access.FetchOptions{Kind: access.KindManifest})
	if err != nil {
		glog.V(2).Infof("no source manifest %s: %v", manifestLocator, err)
		return nil
	}
	var manifest []manifestEntry
	if err := json.Unmarshal(raw, &manifest); err != nil {
		glog.V(2).Infof("cannot parse source manifest %s: %v", manifestLocator, err)
		return nil
	}
	if len(manifest) == 0 || manifest[0].MetadataPath == "" {
		glog.V(2).Infof("source manifest %s lists no metadata", manifestLocator)
		return nil
	}

	metadataLocator := access.Join(sources, manifest[0].MetadataPath)
	raw, err = accessor.Fetch(ctx, metadataLocator, access.FetchOptions{Kind: access.KindManifest})
	if err != nil {
		glog.V(2).Infof("no source metadata %s: %v", metadataLocator, err)
		return nil
	}
	var document struct {
		Metadata map[string]json.RawMessage `json:"metadata"`
	}
	if err := json.Unmarshal(raw, &document); err != nil {
		glog.V(2).Infof("cannot parse source metadata %s: %v", metadataLocator, err)
		return nil
	}
	if len(document.Metadata) == 0 {
		return nil
	}

	keys := make([]string, 0, len(document.Metadata))
	for k := range document.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var original map[string]interface{}
	decoder := json.NewDecoder(bytes.NewReader(document.Metadata[keys[0]]))
	decoder.UseNumber()
	if err := decoder.Decode(&original); err != nil {
		glog.V(2).Infof("source metadata %s of %s is not an object", keys[0], metadataLocator)
		return nil
	}
	return original
}
