package pkg

import (
	"context"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/ecopia-map/ept_index/internal/access"
	"github.com/ecopia-map/ept_index/internal/cache"
	"github.com/ecopia-map/ept_index/internal/converters"
	"github.com/ecopia-map/ept_index/internal/data"
	"github.com/ecopia-map/ept_index/internal/decoder"
	"github.com/ecopia-map/ept_index/internal/ept"
	"github.com/ecopia-map/ept_index/internal/hierarchy"
	"github.com/ecopia-map/ept_index/internal/octree"
	"github.com/ecopia-map/ept_index/pkg/source_manager"
)

var (
	// ErrInvalidIndex is returned by every query on an index whose bootstrap failed.
	ErrInvalidIndex = errors.New("index is not valid")
	// ErrNotRemote is returned when asynchronous fetching is requested on a local index.
	ErrNotRemote = errors.New("asynchronous fetching needs a remote index")

	ErrInvalidMetadata          = ept.ErrInvalidMetadata
	ErrResourceUnavailable      = access.ErrResourceUnavailable
	ErrUnsupportedAttributeType = data.ErrUnsupportedAttributeType
	ErrMalformedAddress         = octree.ErrMalformedAddress
	ErrDecodeFailure            = decoder.ErrDecodeFailure
)

// metadata is everything bootstrap learns about the dataset. It is never modified afterwards.
type metadata struct {
	encoding   ept.EncodingKind
	span       int
	pointCount int64
	wkt        string
	converter  *converters.ScaleOffsetConverter
	rootBounds octree.BoundingBox
	extent     r2.Rect
	zMin       float64
	zMax       float64
	schema     *data.Schema
	stats      *data.Statistics
	original   map[string]interface{}
}

func (m *metadata) clone() *metadata {
	if m == nil {
		return nil
	}
	c := *m
	c.stats = m.stats.Clone()
	c.original = copyJSONObject(m.original)
	return &c
}

// copyJSONObject deep copies a decoded JSON object. Leaves other than objects and arrays are
// immutable and shared.
func copyJSONObject(object map[string]interface{}) map[string]interface{} {
	if object == nil {
		return nil
	}
	c := make(map[string]interface{}, len(object))
	for k, v := range object {
		c[k] = copyJSONValue(v)
	}
	return c
}

func copyJSONValue(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		return copyJSONObject(v)
	case []interface{}:
		c := make([]interface{}, len(v))
		for i, item := range v {
			c[i] = copyJSONValue(item)
		}
		return c
	default:
		return v
	}
}

// Index resolves octree nodes of an EPT dataset to point counts and decoded tiles, loading the
// hierarchy and the tiles on demand. It is safe for concurrent use.
type Index struct {
	uri        string
	dir        string
	accessType access.AccessType

	manager   source_manager.SourceManager
	accessor  access.Accessor
	decoder   decoder.Decoder
	tileCache *cache.TileCache
	loader    *hierarchy.Loader
	flights   *singleflight.Group

	meta *metadata
	err  error
}

// Open bootstraps the index of the dataset whose ept.json is at uri. It always returns an
// index; when bootstrap fails the index is invalid and Error tells why.
func Open(ctx context.Context, uri string, manager source_manager.SourceManager) *Index {
	if manager == nil {
		manager = source_manager.NewSourceManager(nil)
	}
	idx := &Index{
		uri:        uri,
		dir:        access.Dir(uri),
		accessType: access.Classify(uri),
		manager:    manager,
		tileCache:  manager.GetTileCache(),
		flights:    &singleflight.Group{},
	}
	if err := idx.load(ctx); err != nil {
		idx.err = err
		idx.meta = nil
		glog.Errorf("cannot open point cloud index %s: %v", uri, err)
		return idx
	}
	glog.V(1).Infof("opened %s index %s: %d points, %s encoding", idx.accessType, uri, idx.meta.pointCount, idx.meta.encoding)
	return idx
}

func (idx *Index) IsValid() bool {
	return idx.err == nil
}

// Error returns why bootstrap failed, nil for a valid index.
func (idx *Index) Error() error {
	return idx.err
}

func (idx *Index) check() error {
	if idx.err != nil {
		return errors.Wrapf(ErrInvalidIndex, "%v", idx.err)
	}
	return nil
}

// Clone returns an index sharing the transport, decoder and tile cache of idx but holding its own
// copy of the hierarchy. The copy is taken now and does not see later loads on idx.
func (idx *Index) Clone() *Index {
	clone := &Index{
		uri:        idx.uri,
		dir:        idx.dir,
		accessType: idx.accessType,
		manager:    idx.manager,
		accessor:   idx.accessor,
		decoder:    idx.decoder,
		tileCache:  idx.tileCache,
		flights:    &singleflight.Group{},
		meta:       idx.meta.clone(),
		err:        idx.err,
	}
	if idx.loader != nil {
		clone.loader = idx.loader.WithStore(idx.loader.Store().Clone())
	}
	return clone
}

func (idx *Index) URI() string {
	return idx.uri
}

func (idx *Index) AccessType() access.AccessType {
	return idx.accessType
}

// Hierarchy exposes the known part of the octree.
func (idx *Index) Hierarchy() octree.ITree {
	if idx.loader == nil {
		return hierarchy.NewStore()
	}
	return idx.loader.Store()
}

func checkNode(id octree.NodeID) error {
	if !id.Valid() {
		return errors.Wrapf(ErrMalformedAddress, "node %s", id)
	}
	return nil
}

// NodePointCount returns the number of points of a node, loading hierarchy files as needed.
// It returns -1 when the node is not part of the dataset.
func (idx *Index) NodePointCount(ctx context.Context, id octree.NodeID) (int64, error) {
	if err := idx.check(); err != nil {
		return -1, err
	}
	if err := checkNode(id); err != nil {
		return -1, err
	}
	ok, err := idx.loader.EnsureLoaded(ctx, id)
	if err != nil {
		return -1, err
	}
	if !ok {
		return -1, nil
	}
	count, _ := idx.loader.Store().CountOf(id)
	return count, nil
}

// HasNode reports whether the node is part of the dataset.
func (idx *Index) HasNode(ctx context.Context, id octree.NodeID) (bool, error) {
	count, err := idx.NodePointCount(ctx, id)
	return count >= 0, err
}

func (idx *Index) EncodingKind() ept.EncodingKind {
	if idx.meta == nil {
		return ""
	}
	return idx.meta.encoding
}

func (idx *Index) Span() int {
	if idx.meta == nil {
		return 0
	}
	return idx.meta.span
}

// PointCount is the number of points the dataset declares.
func (idx *Index) PointCount() int64 {
	if idx.meta == nil {
		return 0
	}
	return idx.meta.pointCount
}

// Crs returns the WKT of the coordinate reference system, empty when the dataset declares none.
func (idx *Index) Crs() string {
	if idx.meta == nil {
		return ""
	}
	return idx.meta.wkt
}

func (idx *Index) Scale() r3.Vector {
	if idx.meta == nil {
		return r3.Vector{X: 1, Y: 1, Z: 1}
	}
	return idx.meta.converter.Scale()
}

func (idx *Index) Offset() r3.Vector {
	if idx.meta == nil {
		return r3.Vector{}
	}
	return idx.meta.converter.Offset()
}

// RootBounds is the cube of the root node in the stored coordinate space.
func (idx *Index) RootBounds() octree.BoundingBox {
	if idx.meta == nil {
		return octree.BoundingBox{}
	}
	return idx.meta.rootBounds
}

// Extent is the tight 2-D extent of the points in real world units.
func (idx *Index) Extent() r2.Rect {
	if idx.meta == nil {
		return r2.EmptyRect()
	}
	return idx.meta.extent
}

func (idx *Index) ZMin() float64 {
	if idx.meta == nil {
		return 0
	}
	return idx.meta.zMin
}

func (idx *Index) ZMax() float64 {
	if idx.meta == nil {
		return 0
	}
	return idx.meta.zMax
}

// Attributes returns the point attributes of the dataset.
func (idx *Index) Attributes() data.AttributeCollection {
	if idx.meta == nil {
		return data.AttributeCollection{}
	}
	return idx.meta.schema.Attributes()
}

// OriginalMetadata returns a copy of the metadata of the first source file listed by the dataset manifest.
func (idx *Index) OriginalMetadata() map[string]interface{} {
	if idx.meta == nil {
		return nil
	}
	return copyJSONObject(idx.meta.original)
}

// NodeBounds returns the cube of a node in the stored coordinate space.
func (idx *Index) NodeBounds(id octree.NodeID) octree.BoundingBox {
	return octree.NodeBounds(idx.RootBounds(), id)
}

// NodeMapExtent returns the 2-D extent of a node in real world units.
func (idx *Index) NodeMapExtent(id octree.NodeID) r2.Rect {
	if idx.meta == nil {
		return r2.EmptyRect()
	}
	extent, _, _ := idx.meta.converter.RealExtent(idx.NodeBounds(id))
	return extent
}

// NodeError estimates the spacing of points in a node: its real world width divided by the span.
func (idx *Index) NodeError(id octree.NodeID) float64 {
	if idx.meta == nil || idx.meta.span <= 0 {
		return math.NaN()
	}
	return idx.NodeMapExtent(id).Size().X / float64(idx.meta.span)
}

// NodeAt returns the node at the given depth whose cube contains a real world point. The second
// result is false when the point is outside the dataset bounds.
func (idx *Index) NodeAt(p r3.Vector, depth int) (octree.NodeID, bool) {
	if idx.meta == nil {
		return octree.NoParent, false
	}
	return octree.NodeContaining(idx.meta.rootBounds, idx.meta.converter.ToScaled(p), depth)
}
