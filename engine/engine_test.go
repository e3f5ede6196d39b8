package engine

import (
	"testing"

	"github.com/parquedb/parquedb/blob"
	"github.com/parquedb/parquedb/variant"
)

func newTestShard(t *testing.T) *Shard {
	t.Helper()
	wal, err := OpenWAL(":memory:")
	if err != nil {
		t.Fatalf("open wal: %v", err)
	}
	t.Cleanup(func() { wal.Close() })
	return NewShard(wal, blob.NewMemory(), nil)
}

func doc(fields map[string]any) *variant.Object {
	o := variant.NewObject()
	for k, v := range fields {
		o.Set(k, v)
	}
	return o
}

func TestBasicCRUD(t *testing.T) {
	s := newTestShard(t)

	e, err := s.Create("posts", doc(map[string]any{"$type": "Post", "name": "First"}), WriteOpts{Actor: "alice"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if e.ID != "id1" || e.Version != 1 {
		t.Fatalf("unexpected created entity: %+v", e)
	}

	updated, err := s.Update("posts", e.ID, UpdateOps{Inc: map[string]float64{"views": 1}}, WriteOpts{Actor: "alice"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != 2 {
		t.Fatalf("version after update = %d, want 2", updated.Version)
	}
	views, _ := updated.Data.Get("views")
	if v, _ := toFloatAny(views); v != 1 {
		t.Fatalf("views = %v, want 1", views)
	}

	n, err := s.Delete("posts", e.ID, WriteOpts{Actor: "alice"})
	if err != nil || n != 1 {
		t.Fatalf("delete: n=%d err=%v", n, err)
	}

	got, err := s.Get("posts", e.ID, false)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for deleted entity, got %+v", got)
	}

	withDeleted, err := s.Get("posts", e.ID, true)
	if err != nil {
		t.Fatalf("get includeDeleted: %v", err)
	}
	if withDeleted == nil || withDeleted.DeletedAt == nil {
		t.Fatalf("expected deleted entity with deletedAt set, got %+v", withDeleted)
	}
}

func TestReconstructionAcrossFlush(t *testing.T) {
	s := newTestShard(t)

	var firstID string
	for i := 0; i < 50; i++ {
		e, err := s.Create("posts", doc(map[string]any{"$type": "Post", "name": "bulk"}), WriteOpts{Actor: "bot"})
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if i == 0 {
			firstID = e.ID
		}
	}
	if err := s.FlushAll(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	var lastID string
	for i := 0; i < 10; i++ {
		e, err := s.Create("posts", doc(map[string]any{"$type": "Post", "name": "buffered"}), WriteOpts{Actor: "bot"})
		if err != nil {
			t.Fatalf("create buffered %d: %v", i, err)
		}
		lastID = e.ID
	}

	s.entityCache.Purge()

	gotFirst, err := s.Get("posts", firstID, false)
	if err != nil || gotFirst == nil {
		t.Fatalf("get flushed entity: %v, %+v", err, gotFirst)
	}
	gotLast, err := s.Get("posts", lastID, false)
	if err != nil || gotLast == nil {
		t.Fatalf("get buffered entity: %v, %+v", err, gotLast)
	}
}

func TestTransactionRollback(t *testing.T) {
	s := newTestShard(t)

	first, err := s.Create("posts", doc(map[string]any{"$type": "Post", "name": "seed"}), WriteOpts{Actor: "alice"})
	if err != nil {
		t.Fatalf("seed create: %v", err)
	}

	preSeq := s.eventSeqCounters["posts"]
	preBufLen := len(s.nsEventBuffers["posts"].Events)

	if err := s.BeginTransaction(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := s.Create("posts", doc(map[string]any{"$type": "Post", "name": "a"}), WriteOpts{Actor: "alice"}); err != nil {
		t.Fatalf("txn create a: %v", err)
	}
	if _, err := s.Create("posts", doc(map[string]any{"$type": "Post", "name": "b"}), WriteOpts{Actor: "alice"}); err != nil {
		t.Fatalf("txn create b: %v", err)
	}
	if _, err := s.Update("posts", first.ID, UpdateOps{Set: map[string]any{"name": "changed"}}, WriteOpts{Actor: "alice"}); err != nil {
		t.Fatalf("txn update: %v", err)
	}

	if err := s.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	if got := s.eventSeqCounters["posts"]; got != preSeq {
		t.Fatalf("seq counter after rollback = %d, want %d", got, preSeq)
	}
	if got := len(s.nsEventBuffers["posts"].Events); got != preBufLen {
		t.Fatalf("buffer length after rollback = %d, want %d", got, preBufLen)
	}
	if s.entityCache.Len() != 0 {
		t.Fatalf("entity cache should be cleared after rollback, has %d entries", s.entityCache.Len())
	}
}

func TestLinkIsIdempotent(t *testing.T) {
	s := newTestShard(t)
	a, _ := s.Create("posts", doc(map[string]any{"$type": "Post", "name": "a"}), WriteOpts{Actor: "x"})
	b, _ := s.Create("users", doc(map[string]any{"$type": "User", "name": "b"}), WriteOpts{Actor: "x"})

	r1, err := s.Link("posts", a.ID, "authoredBy", "users", b.ID, LinkOpts{Actor: "x", MatchMode: MatchExact})
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	r2, err := s.Link("posts", a.ID, "authoredBy", "users", b.ID, LinkOpts{Actor: "x", MatchMode: MatchExact})
	if err != nil {
		t.Fatalf("link again: %v", err)
	}
	if r1.Version != r2.Version {
		t.Fatalf("re-linking a live edge should be a no-op: v1=%d v2=%d", r1.Version, r2.Version)
	}

	if err := s.Unlink("posts", a.ID, "authoredBy", "users", b.ID, "x"); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	rels := s.GetRelationships("posts", a.ID, "authoredBy", DirOutbound)
	if len(rels) != 0 {
		t.Fatalf("expected no live relationships after unlink, got %d", len(rels))
	}

	r3, err := s.Link("posts", a.ID, "authoredBy", "users", b.ID, LinkOpts{Actor: "x"})
	if err != nil {
		t.Fatalf("re-link after unlink: %v", err)
	}
	if r3.Version <= r2.Version {
		t.Fatalf("relinking a soft-deleted edge should bump version: got %d", r3.Version)
	}
}

func TestCheckpoint(t *testing.T) {
	s := newTestShard(t)
	for i := 0; i < 3; i++ {
		if _, err := s.Create("posts", doc(map[string]any{"$type": "Post", "name": "p"}), WriteOpts{Actor: "x"}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	cp, err := s.Checkpoint("posts")
	if err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	if cp == nil || cp.EventCount != 3 {
		t.Fatalf("unexpected checkpoint: %+v", cp)
	}
	if max, _ := s.wal.MaxSeq("posts", false); max != 0 {
		t.Fatalf("wal should be trimmed after checkpoint, max seq = %d", max)
	}
}

func TestRecoverShardAfterRestart(t *testing.T) {
	walPath := t.TempDir() + "/recover.wal"

	wal, err := OpenWAL(walPath)
	if err != nil {
		t.Fatalf("open wal: %v", err)
	}
	store := blob.NewMemory()
	s := NewShard(wal, store, nil)

	for i := 0; i < 3; i++ {
		if _, err := s.Create("posts", doc(map[string]any{"$type": "Post", "name": "p"}), WriteOpts{Actor: "x"}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	if _, err := s.Checkpoint("posts"); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	// One more entity after the checkpoint, still only in the WAL tail.
	last, err := s.Create("posts", doc(map[string]any{"$type": "Post", "name": "q"}), WriteOpts{Actor: "x"})
	if err != nil {
		t.Fatalf("create after checkpoint: %v", err)
	}

	a, err := s.Create("users", doc(map[string]any{"$type": "User", "name": "a"}), WriteOpts{Actor: "x"})
	if err != nil {
		t.Fatalf("create user a: %v", err)
	}
	b, err := s.Create("users", doc(map[string]any{"$type": "User", "name": "b"}), WriteOpts{Actor: "x"})
	if err != nil {
		t.Fatalf("create user b: %v", err)
	}
	if _, err := s.Link("users", a.ID, "friendsWith", "users", b.ID, LinkOpts{Actor: "x", MatchMode: MatchExact}); err != nil {
		t.Fatalf("link: %v", err)
	}
	if err := s.FlushAll(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	wal.Close()

	// Simulate a process restart against the same durable WAL.
	wal2, err := OpenWAL(walPath)
	if err != nil {
		t.Fatalf("reopen wal: %v", err)
	}
	t.Cleanup(func() { wal2.Close() })
	s2, err := RecoverShard(wal2, store, nil)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}

	next, err := s2.Create("posts", doc(map[string]any{"$type": "Post", "name": "r"}), WriteOpts{Actor: "x"})
	if err != nil {
		t.Fatalf("create after recovery: %v", err)
	}
	if next.ID == last.ID {
		t.Fatalf("recovered shard re-used entity id %q, want a fresh one after %q", next.ID, last.ID)
	}

	rels := s2.GetRelationships("users", a.ID, "friendsWith", DirOutbound)
	if len(rels) != 1 || rels[0].ToID != b.ID {
		t.Fatalf("recovered relIndex missing link a->b: %+v", rels)
	}
}

func TestCompactNamespaceRewritesFile(t *testing.T) {
	s := newTestShard(t)
	for i := 0; i < 3; i++ {
		if _, err := s.Create("posts", doc(map[string]any{"$type": "Post", "name": "p"}), WriteOpts{Actor: "x"}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if _, err := s.Checkpoint("posts"); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}

	res, err := s.CompactNamespace("posts")
	if err != nil {
		t.Fatalf("compact: %v", err)
	}
	if res.RowCount != 3 {
		t.Fatalf("compacted row count = %d, want 3", res.RowCount)
	}

	got, err := s.Get("posts", "id1", false)
	if err != nil || got == nil {
		t.Fatalf("get after compaction: %v, %+v", err, got)
	}
}
