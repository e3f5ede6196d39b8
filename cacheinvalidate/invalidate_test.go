package cacheinvalidate

import (
	"testing"

	"github.com/parquedb/parquedb/blob"
)

type testCtx struct{}

func (testCtx) Done() <-chan struct{} { return nil }
func (testCtx) Err() error            { return nil }

func seed(t *testing.T, store blob.Store, ns string, paths []string) {
	t.Helper()
	for _, p := range paths {
		if _, err := store.Put(testCtx{}, p, []byte("x"), ""); err != nil {
			t.Fatalf("seed %q: %v", p, err)
		}
	}
}

func assertAbsent(t *testing.T, store blob.Store, paths []string) {
	t.Helper()
	for _, p := range paths {
		if ok, _ := store.Exists(testCtx{}, p); ok {
			t.Fatalf("expected %q to be invalidated, still present", p)
		}
	}
}

func TestInvalidateAfterWriteFullSet(t *testing.T) {
	store := blob.NewMemory()
	seed(t, store, "posts", Paths("posts"))
	inv := New(store)

	if err := inv.InvalidateAfterWrite(testCtx{}, "posts", OpCreate); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	assertAbsent(t, store, Paths("posts"))
}

func TestInvalidateAfterWriteLinkUnlinkOnlyTouchesRelPaths(t *testing.T) {
	store := blob.NewMemory()
	seed(t, store, "posts", Paths("posts"))
	inv := New(store)

	if err := inv.InvalidateAfterWrite(testCtx{}, "posts", OpLink); err != nil {
		t.Fatalf("invalidate link: %v", err)
	}
	assertAbsent(t, store, relationshipPaths("posts"))

	if ok, _ := store.Exists(testCtx{}, dataPath("posts")); !ok {
		t.Fatal("link/unlink must not invalidate the entity data path")
	}

	if err := inv.InvalidateAfterWrite(testCtx{}, "posts", OpUnlink); err != nil {
		t.Fatalf("invalidate unlink: %v", err)
	}
	if ok, _ := store.Exists(testCtx{}, dataPath("posts")); !ok {
		t.Fatal("unlink must not invalidate the entity data path")
	}
}

func TestInvalidatePathsToleratesAbsentEntries(t *testing.T) {
	store := blob.NewMemory()
	inv := New(store)
	if err := inv.InvalidatePaths(testCtx{}, Paths("missing")); err != nil {
		t.Fatalf("invalidating already-absent paths should not error: %v", err)
	}
}

func TestKeyIsVersioned(t *testing.T) {
	k1 := Key("data/posts/data.parquet", "posts", 1)
	k2 := Key("data/posts/data.parquet", "posts", 2)
	if k1 == k2 {
		t.Fatal("different versions must produce different keys")
	}
}
