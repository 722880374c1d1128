package hierarchy

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/tidwall/btree"

	"github.com/ecopia-map/ept_index/internal/octree"
)

// ErrConflictingCount is returned when a node already holds a different point count.
var ErrConflictingCount = errors.New("conflicting point count for node")

// Store is the incrementally discovered shape of the octree: the known point count of every
// resolved node plus the nodes whose hierarchy file still has to be fetched. A node is either
// counted, pending or unknown. Counts are never overwritten or removed.
type Store struct {
	counts  map[octree.NodeID]int64
	pending *btree.BTreeG[octree.NodeID]

	sync.RWMutex
}

func NewStore() *Store {
	return &Store{
		counts:  make(map[octree.NodeID]int64),
		pending: newPendingSet(),
	}
}

func newPendingSet() *btree.BTreeG[octree.NodeID] {
	return btree.NewBTreeGOptions(octree.NodeID.Less, btree.Options{NoLocks: true})
}

func (s *Store) CountOf(id octree.NodeID) (int64, bool) {
	s.RLock()
	defer s.RUnlock()
	count, ok := s.counts[id]
	return count, ok
}

// RecordCount inserts the count of a node. Recording the same count twice is a no-op,
// recording a different one fails with ErrConflictingCount and leaves the store untouched.
func (s *Store) RecordCount(id octree.NodeID, count int64) error {
	s.Lock()
	defer s.Unlock()
	if err := s.checkCount(id, count); err != nil {
		return err
	}
	s.recordCount(id, count)
	return nil
}

func (s *Store) checkCount(id octree.NodeID, count int64) error {
	if count < 0 {
		return errors.Errorf("negative point count %d for node %s", count, id)
	}
	if existing, ok := s.counts[id]; ok && existing != count {
		return errors.Wrapf(ErrConflictingCount, "node %s: have %d, got %d", id, existing, count)
	}
	return nil
}

func (s *Store) recordCount(id octree.NodeID, count int64) {
	s.counts[id] = count
	s.pending.Delete(id)
}

// MarkPending flags a node whose subtree hierarchy is still to be fetched. Counted nodes are left alone.
func (s *Store) MarkPending(id octree.NodeID) {
	s.Lock()
	defer s.Unlock()
	s.markPending(id)
}

func (s *Store) markPending(id octree.NodeID) {
	if _, ok := s.counts[id]; ok {
		return
	}
	s.pending.Set(id)
}

func (s *Store) IsPending(id octree.NodeID) bool {
	s.RLock()
	defer s.RUnlock()
	_, ok := s.pending.Get(id)
	return ok
}

func (s *Store) ClearPending(id octree.NodeID) {
	s.Lock()
	defer s.Unlock()
	s.pending.Delete(id)
}

// Apply records a batch of counts and pending markers as a single update. Every count is
// validated before anything is written, so a conflicting entry leaves the store unchanged.
func (s *Store) Apply(counts map[octree.NodeID]int64, pending []octree.NodeID) error {
	s.Lock()
	defer s.Unlock()
	return s.apply(counts, pending)
}

// ApplyHierarchy applies the content of the hierarchy file of owner like Apply and, in the same
// update, clears the pending marker of owner: its file is fetched once even when it does not
// list owner itself.
func (s *Store) ApplyHierarchy(owner octree.NodeID, counts map[octree.NodeID]int64, pending []octree.NodeID) error {
	s.Lock()
	defer s.Unlock()
	if err := s.apply(counts, pending); err != nil {
		return err
	}
	s.pending.Delete(owner)
	return nil
}

func (s *Store) apply(counts map[octree.NodeID]int64, pending []octree.NodeID) error {
	for id, count := range counts {
		if err := s.checkCount(id, count); err != nil {
			return err
		}
	}
	for id, count := range counts {
		s.recordCount(id, count)
	}
	for _, id := range pending {
		s.markPending(id)
	}
	return nil
}

// Len returns the number of counted nodes.
func (s *Store) Len() int {
	s.RLock()
	defer s.RUnlock()
	return len(s.counts)
}

// PendingNodes lists the pending nodes ordered by depth, then X, Y and Z.
func (s *Store) PendingNodes() []octree.NodeID {
	s.RLock()
	defer s.RUnlock()
	return s.pending.Items()
}

// Counts returns a copy of every known point count.
func (s *Store) Counts() map[octree.NodeID]int64 {
	s.RLock()
	defer s.RUnlock()
	counts := make(map[octree.NodeID]int64, len(s.counts))
	for id, count := range s.counts {
		counts[id] = count
	}
	return counts
}

// Clone snapshots the store under its lock. The copy shares no state with s and will not
// observe later updates to it.
func (s *Store) Clone() *Store {
	s.RLock()
	defer s.RUnlock()
	clone := &Store{
		counts:  make(map[octree.NodeID]int64, len(s.counts)),
		pending: newPendingSet(),
	}
	for id, count := range s.counts {
		clone.counts[id] = count
	}
	s.pending.Scan(func(id octree.NodeID) bool {
		clone.pending.Set(id)
		return true
	})
	return clone
}
