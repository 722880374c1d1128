package source_manager

import (
	"sync"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/ecopia-map/ept_index/internal/access"
	"github.com/ecopia-map/ept_index/internal/cache"
	"github.com/ecopia-map/ept_index/internal/decoder"
	"github.com/ecopia-map/ept_index/internal/ept"
)

// SourceManager hands out the collaborators an index reads through. One manager may serve
// several indexes, and clones of an index share the manager of the original.
type SourceManager interface {
	GetAccessor(accessType access.AccessType) (access.Accessor, error)
	GetDecoder(kind ept.EncodingKind) (decoder.Decoder, error)
	// Returns nil when tile caching is disabled
	GetTileCache() *cache.TileCache
	GetOptions() *ept.IndexOptions
	Close()
}

type StandardSourceManager struct {
	options *ept.IndexOptions

	local     *access.LocalAccessor
	remote    *access.RemoteAccessor
	decoders  map[ept.EncodingKind]decoder.Decoder
	tileCache *cache.TileCache
	cacheErr  error
	cacheOnce sync.Once

	sync.Mutex
}

func NewSourceManager(options *ept.IndexOptions) SourceManager {
	if options == nil {
		options = ept.DefaultIndexOptions()
	}
	return &StandardSourceManager{
		options:  options.Copy(),
		local:    access.NewLocalAccessor(),
		decoders: make(map[ept.EncodingKind]decoder.Decoder),
	}
}

func (m *StandardSourceManager) GetOptions() *ept.IndexOptions {
	return m.options.Copy()
}

func (m *StandardSourceManager) GetAccessor(accessType access.AccessType) (access.Accessor, error) {
	switch accessType {
	case access.Local:
		return m.local, nil
	case access.Remote:
		m.Lock()
		defer m.Unlock()
		if m.remote == nil {
			remote, err := access.NewRemoteAccessor(m.options.RemoteOptions())
			if err != nil {
				return nil, err
			}
			m.remote = remote
		}
		return m.remote, nil
	}
	return nil, errors.Errorf("unknown access type %q", accessType)
}

func (m *StandardSourceManager) GetDecoder(kind ept.EncodingKind) (decoder.Decoder, error) {
	m.Lock()
	defer m.Unlock()
	if d, ok := m.decoders[kind]; ok {
		return d, nil
	}
	d, err := decoder.ForEncoding(kind)
	if err != nil {
		return nil, err
	}
	m.decoders[kind] = d
	return d, nil
}

func (m *StandardSourceManager) GetTileCache() *cache.TileCache {
	m.cacheOnce.Do(func() {
		if m.options.TileCacheMaxBytes <= 0 {
			return
		}
		m.tileCache, m.cacheErr = cache.NewTileCache(m.options.TileCacheMaxBytes, m.options.TileCacheCounters)
		if m.cacheErr != nil {
			glog.Errorf("tile cache disabled: %v", m.cacheErr)
		}
	})
	return m.tileCache
}

// Close releases connections, decoder resources and the tile cache.
func (m *StandardSourceManager) Close() {
	m.Lock()
	defer m.Unlock()
	if m.remote != nil {
		m.remote.Close()
	}
	for _, d := range m.decoders {
		if z, ok := d.(*decoder.ZstandardDecoder); ok {
			z.Close()
		}
	}
	if m.tileCache != nil {
		m.tileCache.Close()
	}
}
