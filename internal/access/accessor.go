package access

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/ecopia-map/ept_index/internal/metrics"
)

// ErrResourceUnavailable is returned when a resource cannot be opened or transferred.
var ErrResourceUnavailable = errors.New("resource unavailable")

// errNotFound marks resources that the filesystem or server reports as absent.
var errNotFound = errors.Wrap(ErrResourceUnavailable, "not found")

// IsNotFound reports whether err means the resource does not exist, as opposed to a failed transfer.
func IsNotFound(err error) bool {
	return errors.Is(err, errNotFound)
}

func fetchResult(err error) string {
	if IsNotFound(err) {
		return metrics.ResultNotFound
	}
	return metrics.ResultError
}

type AccessType string

const (
	Local  AccessType = "local"
	Remote AccessType = "remote"
)

func (t AccessType) String() string {
	return string(t)
}

// ResourceKind names the role of a resource, used for logging and metrics.
type ResourceKind string

const (
	KindMetadata  ResourceKind = "metadata"
	KindManifest  ResourceKind = "manifest"
	KindHierarchy ResourceKind = "hierarchy"
	KindTile      ResourceKind = "tile"
)

type FetchOptions struct {
	Kind ResourceKind
	// Lets a remote accessor answer from, and store into, its response cache
	UseCache bool
}

// Accessor resolves a resource locator to its bytes.
type Accessor interface {
	Fetch(ctx context.Context, locator string, opts FetchOptions) ([]byte, error)
	Type() AccessType
}

// Classify returns Remote for http and https locators and Local for anything else.
func Classify(locator string) AccessType {
	lower := strings.ToLower(locator)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return Remote
	}
	return Local
}

// Dir strips the last path segment of a locator.
func Dir(locator string) string {
	i := strings.LastIndex(locator, "/")
	if i < 0 {
		return "."
	}
	return locator[:i]
}

// Join appends path elements to a directory locator using forward slashes, which both
// local paths and URLs accept.
func Join(dir string, elem ...string) string {
	parts := make([]string, 0, len(elem)+1)
	parts = append(parts, strings.TrimSuffix(dir, "/"))
	for _, e := range elem {
		parts = append(parts, strings.Trim(e, "/"))
	}
	return strings.Join(parts, "/")
}
