package access

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/ecopia-map/ept_index/internal/metrics"
)

type RemoteOptions struct {
	// Upper bound of requests per second, 0 disables the limiter
	RequestsPerSecond float64
	Burst             int
	// Byte budget of the response cache, 0 disables it
	ResponseCacheBytes int64
	// Per request timeout, 0 means no timeout besides the caller context
	Timeout time.Duration
	// Optional client, a pooled cleanhttp client is used when nil
	Client *http.Client
}

// RemoteAccessor fetches resources over HTTP(S).
type RemoteAccessor struct {
	client    *http.Client
	limiter   *rate.Limiter
	responses *ristretto.Cache[string, []byte]
	timeout   time.Duration
}

func NewRemoteAccessor(opts RemoteOptions) (*RemoteAccessor, error) {
	a := &RemoteAccessor{
		client:  opts.Client,
		timeout: opts.Timeout,
	}
	if a.client == nil {
		a.client = cleanhttp.DefaultPooledClient()
	}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		a.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	if opts.ResponseCacheBytes > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
			NumCounters: 10000,
			MaxCost:     opts.ResponseCacheBytes,
			BufferItems: 64,
		})
		if err != nil {
			return nil, errors.Wrap(err, "cannot create response cache")
		}
		a.responses = cache
	}
	return a, nil
}

func (a *RemoteAccessor) Type() AccessType {
	return Remote
}

func (a *RemoteAccessor) Fetch(ctx context.Context, locator string, opts FetchOptions) ([]byte, error) {
	if opts.UseCache && a.responses != nil {
		if data, ok := a.responses.Get(locator); ok {
			metrics.ResponseCacheHitsTotal.Inc()
			return append([]byte(nil), data...), nil
		}
	}

	start := time.Now()
	data, err := a.get(ctx, locator, opts)
	metrics.ResourceFetchDuration.WithLabelValues(Remote.String(), string(opts.Kind)).Observe(time.Since(start).Seconds())
	if err != nil {
		result := fetchResult(err)
		if ctx.Err() != nil {
			result = metrics.ResultCanceled
		}
		metrics.ResourceFetchesTotal.WithLabelValues(Remote.String(), string(opts.Kind), result).Inc()
		return nil, err
	}
	metrics.ResourceFetchesTotal.WithLabelValues(Remote.String(), string(opts.Kind), metrics.ResultOK).Inc()

	if opts.UseCache && a.responses != nil {
		a.responses.Set(locator, append([]byte(nil), data...), int64(len(data)))
	}
	return data, nil
}

func (a *RemoteAccessor) get(ctx context.Context, locator string, opts FetchOptions) ([]byte, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, errors.Wrapf(ErrResourceUnavailable, "rate limiter: %v", err)
		}
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	requestID := uuid.New().String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, errors.Wrapf(ErrResourceUnavailable, "build request for %s: %v", locator, err)
	}
	req.Header.Set("X-Request-Id", requestID)
	glog.V(2).Infof("[%s] GET %s (%s)", requestID, locator, opts.Kind)

	resp, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrapf(ErrResourceUnavailable, "GET %s: %v", locator, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		if resp.StatusCode == http.StatusNotFound {
			return nil, errors.Wrapf(errNotFound, "GET %s: %s", locator, resp.Status)
		}
		return nil, errors.Wrapf(ErrResourceUnavailable, "GET %s: %s", locator, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrapf(ErrResourceUnavailable, "read body of %s: %v", locator, err)
	}
	glog.V(2).Infof("[%s] %s: %d bytes in %s", requestID, locator, len(data), resp.Header.Get("Content-Type"))
	return data, nil
}

// Close releases idle connections and the response cache.
func (a *RemoteAccessor) Close() {
	a.client.CloseIdleConnections()
	if a.responses != nil {
		a.responses.Close()
	}
}
