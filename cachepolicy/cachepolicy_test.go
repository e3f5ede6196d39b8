package cachepolicy

import (
	"testing"
	"time"
)

func TestPresetMultipliers(t *testing.T) {
	if ReadHeavy.Data != Default.Data*5 {
		t.Fatalf("ReadHeavy.Data = %v, want 5x default", ReadHeavy.Data)
	}
	if WriteHeavy.Data != Default.Data/4 {
		t.Fatalf("WriteHeavy.Data = %v, want default/4", WriteHeavy.Data)
	}
	if WriteHeavy.StaleWhileRevalidate {
		t.Fatal("WriteHeavy should disable stale-while-revalidate")
	}
	if NoCache.Data != 0 || NoCache.Metadata != 0 || NoCache.Bloom != 0 {
		t.Fatalf("NoCache should zero every TTL, got %+v", NoCache)
	}
}

func TestGetCacheHeaders(t *testing.T) {
	h := GetCacheHeaders(Default, TypeData, Meta{ETag: "abc", Size: 100})
	if h.ContentType != "application/octet-stream" {
		t.Fatalf("data content-type = %q", h.ContentType)
	}
	if h.CacheControl == "no-store" {
		t.Fatal("default data TTL should not be no-store")
	}

	hMeta := GetCacheHeaders(Default, TypeMetadata, Meta{})
	if hMeta.ContentType != "application/json" {
		t.Fatalf("metadata content-type = %q", hMeta.ContentType)
	}

	hNoCache := GetCacheHeaders(NoCache, TypeData, Meta{})
	if hNoCache.CacheControl != "no-store" {
		t.Fatalf("NoCache preset should emit no-store, got %q", hNoCache.CacheControl)
	}
}

func TestStaleness(t *testing.T) {
	maxAge := 100 * time.Second
	if !ShouldRevalidate(81*time.Second, maxAge) {
		t.Fatal("81s age against 100s max-age should cross the 80% threshold")
	}
	if ShouldRevalidate(79*time.Second, maxAge) {
		t.Fatal("79s age should not yet cross the 80% threshold")
	}
	if !IsStale(101*time.Second, maxAge) {
		t.Fatal("101s age should be stale against 100s max-age")
	}
	if IsStale(100*time.Second, maxAge) {
		t.Fatal("exactly max-age should not count as stale")
	}
	if !CanUseWhileStale(110*time.Second, maxAge, 20*time.Second) {
		t.Fatal("110s age should be within a 20s SWR window past 100s max-age")
	}
	if CanUseWhileStale(130*time.Second, maxAge, 20*time.Second) {
		t.Fatal("130s age should be outside a 20s SWR window")
	}
}

func TestCacheKeyRoundTrip(t *testing.T) {
	key := CacheKey("data/posts/data.parquet", 7, &[2]int64{100, 199})
	const want = "data/posts/data.parquet?v=7#100-199"
	if key != want {
		t.Fatalf("key = %q, want %q", key, want)
	}

	path, version, br := ParseCacheKey(key)
	if path != "data/posts/data.parquet" || version != 7 || br == nil || *br != [2]int64{100, 199} {
		t.Fatalf("parsed = (%q, %d, %v)", path, version, br)
	}

	plain := CacheKey("indexes/bloom/posts.bloom", 0, nil)
	if plain != "indexes/bloom/posts.bloom" {
		t.Fatalf("versionless unranged key = %q", plain)
	}
	p2, v2, br2 := ParseCacheKey(plain)
	if p2 != plain || v2 != 0 || br2 != nil {
		t.Fatalf("parsed plain key = (%q, %d, %v)", p2, v2, br2)
	}
}
