// Package cacheinvalidate implements the standalone path invalidator and
// versioned cache key helpers from §4.F. The version-counter and
// bounded-signal-FIFO half of that component lives on engine.Shard, since
// it is part of the shard's own serialized state; this package covers the
// blob-storage-facing half that doesn't need shard locking.
package cacheinvalidate

import (
	"fmt"

	"github.com/parquedb/parquedb/blob"
)

// Op identifies the write operation that triggered invalidation, per
// §4.F's "operation-scoped helpers".
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpLink   Op = "link"
	OpUnlink Op = "unlink"
)

// Paths returns the fixed set of cache paths a namespace's writes can
// affect (§4.F).
func Paths(ns string) []string {
	return []string{
		dataPath(ns),
		bloomPath(ns),
		forwardRelsPath(ns),
		reverseRelsPath(ns),
		dataPath(ns) + "#footer",
		dataPath(ns) + "#metadata",
	}
}

func dataPath(ns string) string         { return fmt.Sprintf("data/%s/data.parquet", ns) }
func bloomPath(ns string) string        { return fmt.Sprintf("indexes/bloom/%s.bloom", ns) }
func forwardRelsPath(ns string) string  { return fmt.Sprintf("rels/forward/%s.parquet", ns) }
func reverseRelsPath(ns string) string  { return fmt.Sprintf("rels/reverse/%s.parquet", ns) }

// relationshipPaths returns only the relationship-facing paths, since
// link/unlink don't touch the entity data file or its metadata.
func relationshipPaths(ns string) []string {
	return []string{forwardRelsPath(ns), reverseRelsPath(ns)}
}

// Invalidator deletes cached copies of a namespace's affected paths from a
// backing cache store. It is a thin wrapper over blob.Store because the
// reference deployment fronts Parquet files with a CDN/cache-storage layer
// addressed the same way as the origin store.
type Invalidator struct {
	cache blob.Store
}

// New wraps a cache-facing blob.Store.
func New(cache blob.Store) *Invalidator {
	return &Invalidator{cache: cache}
}

// InvalidatePaths deletes every entry in paths from the cache store,
// tolerating already-absent entries.
func (inv *Invalidator) InvalidatePaths(ctx blob.Context, paths []string) error {
	for _, p := range paths {
		if err := inv.cache.Delete(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// InvalidateAfterWrite invalidates exactly the paths op can affect:
// link/unlink only touch the relationship paths, every other op
// invalidates the full path set (§4.F).
func (inv *Invalidator) InvalidateAfterWrite(ctx blob.Context, ns string, op Op) error {
	switch op {
	case OpLink, OpUnlink:
		return inv.InvalidatePaths(ctx, relationshipPaths(ns))
	default:
		return inv.InvalidatePaths(ctx, Paths(ns))
	}
}

// Key builds a versioned cache key so upstream caches can treat a new
// version as an automatic cache miss without an explicit purge (§4.F
// "Versioned cache keys").
func Key(path, ns string, version uint64) string {
	return fmt.Sprintf("%s?v=%d", path, version)
}
