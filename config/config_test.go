package config

import "testing"

func TestLoadRequiresSyncSecret(t *testing.T) {
	t.Setenv("SYNC_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected Load to fail without SYNC_SECRET")
	}
}

func TestLoadAppliesCacheOverrides(t *testing.T) {
	t.Setenv("SYNC_SECRET", "shh")
	t.Setenv("CACHE_DATA_TTL", "30")
	t.Setenv("CACHE_STALE_WHILE_REVALIDATE", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Cache.Data.Seconds() != 30 {
		t.Fatalf("Cache.Data = %v, want 30s", cfg.Cache.Data)
	}
	if cfg.Cache.StaleWhileRevalidate {
		t.Fatal("CACHE_STALE_WHILE_REVALIDATE=0 should disable SWR")
	}
}
