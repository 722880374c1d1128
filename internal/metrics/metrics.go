package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Package level collectors, registered on the default registry by promauto.
var (
	// Resource fetches labeled by access type (local/remote), resource kind and result.
	ResourceFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ept_index_resource_fetches_total",
			Help: "Total number of resources fetched from the dataset",
		},
		[]string{"access", "kind", "result"},
	)

	// Time spent fetching a single resource.
	ResourceFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ept_index_resource_fetch_duration_seconds",
			Help:    "Duration of resource fetches in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"access", "kind"},
	)

	// Remote responses served from the response cache.
	ResponseCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ept_index_response_cache_hits_total",
			Help: "Total number of remote fetches answered by the response cache",
		},
	)

	// Tile cache lookups labeled by result (hit/miss).
	TileCacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ept_index_tile_cache_lookups_total",
			Help: "Total number of tile cache lookups",
		},
		[]string{"result"},
	)

	// Hierarchy files loaded labeled by result.
	HierarchyLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ept_index_hierarchy_loads_total",
			Help: "Total number of hierarchy files loaded",
		},
		[]string{"result"},
	)

	// Decoded tiles labeled by encoding and result.
	TileDecodesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ept_index_tile_decodes_total",
			Help: "Total number of tiles decoded",
		},
		[]string{"encoding", "result"},
	)

	// Asynchronous block requests currently in flight.
	BlockRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ept_index_block_requests_in_flight",
			Help: "Number of asynchronous block requests not yet finished",
		},
	)
)

const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultHit      = "hit"
	ResultMiss     = "miss"
	ResultCanceled = "canceled"
	ResultNotFound = "not_found"
)
