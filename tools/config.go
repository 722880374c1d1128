package tools

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ecopia-map/ept_index/internal/ept"
)

// Config mirrors the YAML file accepted by the --config flag.
type Config struct {
	TileCache       TileCacheConfig `yaml:"tile_cache"`
	Remote          RemoteConfig    `yaml:"remote"`
	PrefetchWorkers int             `yaml:"prefetch_workers"`
}

type TileCacheConfig struct {
	MaxBytes int64 `yaml:"max_bytes"` // 0 disables the cache
	Counters int64 `yaml:"counters"`
}

type RemoteConfig struct {
	RequestsPerSecond  float64 `yaml:"requests_per_second"` // 0 means unlimited
	Burst              int     `yaml:"burst"`
	ResponseCacheBytes int64   `yaml:"response_cache_bytes"`
	Timeout            string  `yaml:"timeout"` // "30s"
}

func DefaultConfig() *Config {
	defaults := ept.DefaultIndexOptions()
	return &Config{
		TileCache: TileCacheConfig{
			MaxBytes: defaults.TileCacheMaxBytes,
			Counters: defaults.TileCacheCounters,
		},
		Remote: RemoteConfig{
			RequestsPerSecond:  defaults.RequestsPerSecond,
			Burst:              defaults.RequestBurst,
			ResponseCacheBytes: defaults.ResponseCacheBytes,
			Timeout:            defaults.RequestTimeout.String(),
		},
		PrefetchWorkers: defaults.PrefetchWorkers,
	}
}

// LoadConfig reads the YAML file at path over the defaults. Unknown keys are rejected. An empty
// path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open config file %s", path)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, errors.Wrapf(err, "cannot parse config file %s", path)
	}
	return cfg, nil
}

// IndexOptions converts the configuration to the options of an index.
func (c *Config) IndexOptions() (*ept.IndexOptions, error) {
	opts := ept.DefaultIndexOptions()
	opts.TileCacheMaxBytes = c.TileCache.MaxBytes
	opts.TileCacheCounters = c.TileCache.Counters
	opts.RequestsPerSecond = c.Remote.RequestsPerSecond
	opts.RequestBurst = c.Remote.Burst
	opts.ResponseCacheBytes = c.Remote.ResponseCacheBytes
	opts.PrefetchWorkers = c.PrefetchWorkers

	if c.Remote.Timeout != "" {
		timeout, err := time.ParseDuration(c.Remote.Timeout)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid remote timeout %q", c.Remote.Timeout)
		}
		opts.RequestTimeout = timeout
	}
	if opts.TileCacheMaxBytes < 0 || opts.ResponseCacheBytes < 0 {
		return nil, errors.New("cache sizes cannot be negative")
	}
	return opts, nil
}
