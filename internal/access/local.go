package access

import (
	"context"
	"os"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/ecopia-map/ept_index/internal/metrics"
)

// LocalAccessor reads resources from the filesystem.
type LocalAccessor struct{}

func NewLocalAccessor() *LocalAccessor {
	return &LocalAccessor{}
}

func (a *LocalAccessor) Type() AccessType {
	return Local
}

func (a *LocalAccessor) Fetch(ctx context.Context, locator string, opts FetchOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	data, err := os.ReadFile(locator)
	metrics.ResourceFetchDuration.WithLabelValues(Local.String(), string(opts.Kind)).Observe(time.Since(start).Seconds())
	if err != nil {
		cause := ErrResourceUnavailable
		if os.IsNotExist(err) {
			cause = errNotFound
		}
		err = errors.Wrapf(cause, "read %s: %v", locator, err)
		metrics.ResourceFetchesTotal.WithLabelValues(Local.String(), string(opts.Kind), fetchResult(err)).Inc()
		return nil, err
	}
	metrics.ResourceFetchesTotal.WithLabelValues(Local.String(), string(opts.Kind), metrics.ResultOK).Inc()
	glog.V(3).Infof("read %s %s (%d bytes)", opts.Kind, locator, len(data))
	return data, nil
}
