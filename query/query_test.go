package query

import (
	"testing"

	"github.com/parquedb/parquedb/blob"
	"github.com/parquedb/parquedb/cachepolicy"
	"github.com/parquedb/parquedb/engine"
	"github.com/parquedb/parquedb/kv"
	"github.com/parquedb/parquedb/parquetio"
	"github.com/parquedb/parquedb/variant"
)

func newTestShard(t *testing.T) *engine.Shard {
	t.Helper()
	wal, err := engine.OpenWAL(":memory:")
	if err != nil {
		t.Fatalf("open wal: %v", err)
	}
	t.Cleanup(func() { wal.Close() })
	return engine.NewShard(wal, blob.NewMemory(), nil)
}

func doc(fields map[string]any) *variant.Object {
	o := variant.NewObject()
	for k, v := range fields {
		o.Set(k, v)
	}
	return o
}

func TestFindOverlaysUncheckpointedWrites(t *testing.T) {
	s := newTestShard(t)
	ex := NewExecutor(s, kv.NewMemory(), cachepolicy.Default)

	if _, err := s.Create("posts", doc(map[string]any{"$type": "Post", "name": "alpha", "views": 10.0}), engine.WriteOpts{Actor: "a"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Create("posts", doc(map[string]any{"$type": "Post", "name": "beta", "views": 20.0}), engine.WriteOpts{Actor: "a"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	res, err := ex.Find("posts", nil, Options{})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(res.Items) != 2 {
		t.Fatalf("expected 2 uncheckpointed items, got %d", len(res.Items))
	}
	if res.Stats.Tier != TierPrimary {
		t.Fatalf("first find should miss cache, tier = %q", res.Stats.Tier)
	}
}

func TestFindReadsCheckpointedData(t *testing.T) {
	s := newTestShard(t)
	ex := NewExecutor(s, kv.NewMemory(), cachepolicy.Default)

	for i := 0; i < 3; i++ {
		if _, err := s.Create("posts", doc(map[string]any{"$type": "Post", "name": "p", "views": float64(i)}), engine.WriteOpts{Actor: "a"}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if _, err := s.Checkpoint("posts"); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}

	res, err := ex.Find("posts", nil, Options{})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(res.Items) != 3 {
		t.Fatalf("expected 3 checkpointed items, got %d", len(res.Items))
	}
}

func TestFindPushesDownFilterAndCachesResult(t *testing.T) {
	s := newTestShard(t)
	cache := kv.NewMemory()
	ex := NewExecutor(s, cache, cachepolicy.Default)

	var ids []string
	for i := 0; i < 5; i++ {
		e, err := s.Create("posts", doc(map[string]any{"$type": "Post", "name": "p"}), engine.WriteOpts{Actor: "a"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, e.ID)
	}
	// Bump version on the last two entities so "version" (an always-present
	// audit column) can distinguish them for the filter below.
	for _, id := range ids[3:] {
		if _, err := s.Update("posts", id, engine.UpdateOps{Set: map[string]any{"name": "bumped"}}, engine.WriteOpts{Actor: "a"}); err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	if _, err := s.Checkpoint("posts"); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}

	conds := []Condition{{Field: "version", Op: parquetio.OpGte, Value: int64(2)}}
	res, err := ex.Find("posts", conds, Options{Sort: []SortSpec{{Field: "$id"}}})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(res.Items) != 2 {
		t.Fatalf("expected 2 items with version>=2, got %d: %+v", len(res.Items), res.Items)
	}

	res2, err := ex.Find("posts", conds, Options{Sort: []SortSpec{{Field: "$id"}}})
	if err != nil {
		t.Fatalf("find again: %v", err)
	}
	if !res2.Stats.CacheHit {
		t.Fatal("second identical find should hit the result cache")
	}
}

func TestFindRespectsSoftDelete(t *testing.T) {
	s := newTestShard(t)
	ex := NewExecutor(s, kv.NewMemory(), cachepolicy.Default)

	e, err := s.Create("posts", doc(map[string]any{"$type": "Post", "name": "gone"}), engine.WriteOpts{Actor: "a"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Delete("posts", e.ID, engine.WriteOpts{Actor: "a"}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	res, err := ex.Find("posts", nil, Options{})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(res.Items) != 0 {
		t.Fatalf("soft-deleted entity should be excluded by default, got %d items", len(res.Items))
	}

	res2, err := ex.Find("posts", nil, Options{IncludeDeleted: true})
	if err != nil {
		t.Fatalf("find includeDeleted: %v", err)
	}
	if len(res2.Items) != 1 {
		t.Fatalf("IncludeDeleted should surface the soft-deleted entity, got %d", len(res2.Items))
	}
}
