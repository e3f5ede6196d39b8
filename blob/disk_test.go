package blob

import (
	"testing"

	"github.com/parquedb/parquedb/internal/xerrors"
)

func TestDiskRoundTrip(t *testing.T) {
	d, err := NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("new disk: %v", err)
	}
	ctx := testCtx{}

	etag, err := d.Put(ctx, "a/b/data.parquet", []byte("hello"), "")
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	got, gotEtag, err := d.Get(ctx, "a/b/data.parquet")
	if err != nil || string(got) != "hello" || gotEtag != etag {
		t.Fatalf("get = %q %q %v, want hello %q", got, gotEtag, err, etag)
	}

	if _, err := d.Put(ctx, "a/b/data.parquet", []byte("world"), "stale-etag"); !xerrors.Is(err, xerrors.VersionMismatch) {
		t.Fatalf("expected a version-mismatch error for a stale etag, got %v", err)
	}

	exists, err := d.Exists(ctx, "a/b/data.parquet")
	if err != nil || !exists {
		t.Fatalf("exists = %v %v, want true", exists, err)
	}

	if err := d.Delete(ctx, "a/b/data.parquet"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if exists, _ := d.Exists(ctx, "a/b/data.parquet"); exists {
		t.Fatal("expected key to be gone after delete")
	}
}

type testCtx struct{}

func (testCtx) Done() <-chan struct{} { return nil }
func (testCtx) Err() error            { return nil }
