// Package config loads ParqueDB's process configuration from the
// environment: the token-signing secret and the cache TTL overrides that
// shape the default cachepolicy preset.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/parquedb/parquedb/cachepolicy"
)

// Config is ParqueDB's process-wide environment-derived configuration.
type Config struct {
	// SyncSecret signs upload/download tokens (§4.G). Required.
	SyncSecret string

	// BaseDir is the local filesystem root for the WAL sidecar and any
	// file-backed blob store, when not pointed at a remote one.
	BaseDir string

	// Cache is the TTL preset served by cachepolicy.GetCacheHeaders for
	// every response, seeded from Default and overridden per-field by the
	// CACHE_* environment variables.
	Cache cachepolicy.TTLs
}

// Load reads Config from the environment. SYNC_SECRET is required; every
// CACHE_* override is optional.
func Load() (*Config, error) {
	secret := os.Getenv("SYNC_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("config: SYNC_SECRET is required")
	}

	cache := cachepolicy.Default
	if v, ok := os.LookupEnv("CACHE_DATA_TTL"); ok {
		d, err := parseSeconds("CACHE_DATA_TTL", v)
		if err != nil {
			return nil, err
		}
		cache.Data = d
	}
	if v, ok := os.LookupEnv("CACHE_METADATA_TTL"); ok {
		d, err := parseSeconds("CACHE_METADATA_TTL", v)
		if err != nil {
			return nil, err
		}
		cache.Metadata = d
	}
	if v, ok := os.LookupEnv("CACHE_BLOOM_TTL"); ok {
		d, err := parseSeconds("CACHE_BLOOM_TTL", v)
		if err != nil {
			return nil, err
		}
		cache.Bloom = d
	}
	if v, ok := os.LookupEnv("CACHE_STALE_WHILE_REVALIDATE"); ok {
		d, err := parseSeconds("CACHE_STALE_WHILE_REVALIDATE", v)
		if err != nil {
			return nil, err
		}
		cache.StaleWhileRevalidate = d > 0
		cache.SWRWindow = d
	}

	baseDir := os.Getenv("PARQUEDB_BASE_DIR")
	if baseDir == "" {
		baseDir = "."
	}

	return &Config{
		SyncSecret: secret,
		BaseDir:    baseDir,
		Cache:      cache,
	}, nil
}

func parseSeconds(name, v string) (time.Duration, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not an integer number of seconds: %w", name, v, err)
	}
	return time.Duration(n) * time.Second, nil
}
