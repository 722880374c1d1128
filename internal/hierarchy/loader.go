package hierarchy

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/ecopia-map/ept_index/internal/access"
	"github.com/ecopia-map/ept_index/internal/ept"
	"github.com/ecopia-map/ept_index/internal/metrics"
	"github.com/ecopia-map/ept_index/internal/octree"
)

// ErrInvalidHierarchy is returned for hierarchy files that are not a flat node to count mapping.
// It matches ept.ErrInvalidMetadata.
var ErrInvalidHierarchy = errors.Wrap(ept.ErrInvalidMetadata, "invalid hierarchy file")

// PendingCount marks a child whose own hierarchy file has not been fetched yet.
const PendingCount = -1

// Loader resolves node counts on demand by fetching hierarchy files into a Store.
// The store lock is never held while fetching or parsing.
type Loader struct {
	store    *Store
	accessor access.Accessor
	dir      string
}

// NewLoader returns a loader reading D/ept-hierarchy/<node>.json below dir.
func NewLoader(store *Store, accessor access.Accessor, dir string) *Loader {
	return &Loader{
		store:    store,
		accessor: accessor,
		dir:      dir,
	}
}

func (l *Loader) Store() *Store {
	return l.store
}

// WithStore returns a loader sharing the transport of l but feeding another store.
func (l *Loader) WithStore(store *Store) *Loader {
	return &Loader{
		store:    store,
		accessor: l.accessor,
		dir:      l.dir,
	}
}

// HierarchyLocator returns the locator of the hierarchy file of id.
func (l *Loader) HierarchyLocator(id octree.NodeID) string {
	return access.Join(l.dir, "ept-hierarchy", id.String()+".json")
}

// EnsureLoaded fetches the hierarchy files on the path from the root to id until the count of id
// is known. It returns whether the count ended up known; false with a nil error means the node
// is not part of the dataset.
func (l *Loader) EnsureLoaded(ctx context.Context, id octree.NodeID) (bool, error) {
	if _, ok := l.store.CountOf(id); ok {
		return true, nil
	}

	for _, node := range id.PathFromRoot() {
		if _, ok := l.store.CountOf(node); ok {
			continue
		}
		if err := l.LoadSingle(ctx, node); err != nil {
			return false, err
		}
		if _, ok := l.store.CountOf(id); ok {
			return true, nil
		}
	}

	_, ok := l.store.CountOf(id)
	return ok, nil
}

// LoadSingle fetches and applies the hierarchy file of a pending node. Counted nodes and nodes
// that are neither counted nor pending have no file to fetch and are left alone.
func (l *Loader) LoadSingle(ctx context.Context, id octree.NodeID) error {
	if _, ok := l.store.CountOf(id); ok {
		return nil
	}
	if !l.store.IsPending(id) {
		return nil
	}

	locator := l.HierarchyLocator(id)
	data, err := l.accessor.Fetch(ctx, locator, access.FetchOptions{
		Kind:     access.KindHierarchy,
		UseCache: l.accessor.Type() == access.Remote,
	})
	if err != nil {
		metrics.HierarchyLoadsTotal.WithLabelValues(metrics.ResultError).Inc()
		glog.Warningf("cannot fetch hierarchy of node %s: %v", id, err)
		return err
	}

	counts, pending, err := ParseHierarchy(data)
	if err != nil {
		metrics.HierarchyLoadsTotal.WithLabelValues(metrics.ResultError).Inc()
		glog.Warningf("cannot parse hierarchy file %s: %v", locator, err)
		return errors.Wrapf(err, "hierarchy of node %s", id)
	}

	if err := l.store.ApplyHierarchy(id, counts, pending); err != nil {
		metrics.HierarchyLoadsTotal.WithLabelValues(metrics.ResultError).Inc()
		return errors.Wrapf(err, "hierarchy of node %s", id)
	}
	metrics.HierarchyLoadsTotal.WithLabelValues(metrics.ResultOK).Inc()
	glog.V(2).Infof("loaded hierarchy of node %s: %d counts, %d pending", id, len(counts), len(pending))
	return nil
}

// ParseHierarchy parses a hierarchy file completely before returning anything: every key must
// be a node address and every value an integer, either a point count or PendingCount.
func ParseHierarchy(data []byte) (map[octree.NodeID]int64, []octree.NodeID, error) {
	var raw map[string]json.Number
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return nil, nil, errors.Wrapf(ErrInvalidHierarchy, "%v", err)
	}
	if raw == nil {
		return nil, nil, errors.Wrap(ErrInvalidHierarchy, "not a JSON object")
	}

	counts := make(map[octree.NodeID]int64, len(raw))
	var pending []octree.NodeID
	for key, value := range raw {
		id, err := octree.ParseNodeID(key)
		if err != nil {
			return nil, nil, errors.Wrapf(ErrInvalidHierarchy, "%v", err)
		}
		count, err := value.Int64()
		if err != nil {
			return nil, nil, errors.Wrapf(ErrInvalidHierarchy, "node %s: value %q is not an integer", key, value.String())
		}
		switch {
		case count == PendingCount:
			pending = append(pending, id)
		case count >= 0:
			counts[id] = count
		default:
			return nil, nil, errors.Wrapf(ErrInvalidHierarchy, "node %s: invalid count %d", key, count)
		}
	}
	return counts, pending, nil
}
