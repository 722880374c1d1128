package ept

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ecopia-map/ept_index/internal/access"
)

// ErrInvalidMetadata is returned for metadata or hierarchy documents that are malformed or unsupported.
var ErrInvalidMetadata = errors.New("invalid metadata")

type EncodingKind string

const (
	// Packed little endian point records laid out by the schema
	Binary EncodingKind = "binary"

	// LAS container, one file per tile
	LasZip EncodingKind = "laszip"

	// Packed records compressed as a single zstandard frame
	Zstandard EncodingKind = "zstandard"
)

func (e EncodingKind) String() string {
	return string(e)
}

// Extension returns the file suffix of tiles stored with this encoding.
func (e EncodingKind) Extension() string {
	switch e {
	case Binary:
		return "bin"
	case LasZip:
		return "laz"
	case Zstandard:
		return "zst"
	}
	return ""
}

func ParseEncodingKind(value string) (EncodingKind, bool) {
	normalizedValue := strings.Trim(strings.ToLower(value), " ")
	switch EncodingKind(normalizedValue) {
	case Binary:
		return Binary, true
	case LasZip:
		return LasZip, true
	case Zstandard:
		return Zstandard, true
	}
	return "", false
}

// Contains the options used to open an index
type IndexOptions struct {
	TileCacheMaxBytes int64 // Byte budget of the decoded tile cache, 0 disables caching
	TileCacheCounters int64 // Number of keys tracked by the tile cache admission policy

	RequestsPerSecond  float64       // Rate limit of remote requests, 0 means unlimited
	RequestBurst       int           // Burst allowed above the rate limit
	ResponseCacheBytes int64         // Byte budget of the remote response cache, 0 disables it
	RequestTimeout     time.Duration // Timeout of a single remote request

	PrefetchWorkers int // Number of consumers used when warming the tile cache
}

func DefaultIndexOptions() *IndexOptions {
	return &IndexOptions{
		TileCacheMaxBytes:  256 << 20,
		TileCacheCounters:  100000,
		ResponseCacheBytes: 16 << 20,
		RequestTimeout:     30 * time.Second,
		PrefetchWorkers:    4,
	}
}

// RemoteOptions returns the transport settings of remote datasets.
func (opt *IndexOptions) RemoteOptions() access.RemoteOptions {
	return access.RemoteOptions{
		RequestsPerSecond:  opt.RequestsPerSecond,
		Burst:              opt.RequestBurst,
		ResponseCacheBytes: opt.ResponseCacheBytes,
		Timeout:            opt.RequestTimeout,
	}
}

func (opt *IndexOptions) Copy() *IndexOptions {
	newOpt := *opt
	return &newOpt
}
