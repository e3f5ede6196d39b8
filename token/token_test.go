package token

import (
	"testing"
	"time"

	"github.com/parquedb/parquedb/kv"
)

func TestTokenReplay(t *testing.T) {
	s := NewSigner("shh-its-a-secret", kv.NewMemory())

	tok, err := s.Mint("db1", "data/posts/data.parquet", "user1", KindUpload, time.Minute)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	p1, err := s.Verify(tok, KindUpload, true)
	if err != nil {
		t.Fatalf("verify 1: %v", err)
	}
	if p1 == nil {
		t.Fatal("first verification should succeed")
	}

	p2, err := s.Verify(tok, KindUpload, true)
	if err != nil {
		t.Fatalf("verify 2: %v", err)
	}
	if p2 != nil {
		t.Fatal("replayed upload token should fail verification")
	}
}

func TestTokenVerifyWithoutReplayCheck(t *testing.T) {
	s := NewSigner("shh-its-a-secret", kv.NewMemory())
	tok, _ := s.Mint("db1", "data/posts/data.parquet", "user1", KindUpload, time.Minute)

	if p, _ := s.Verify(tok, KindUpload, false); p == nil {
		t.Fatal("verify without replay check should succeed the first time")
	}
	if p, _ := s.Verify(tok, KindUpload, false); p == nil {
		t.Fatal("verify without replay check should succeed again")
	}
	if p, _ := s.Verify(tok, KindUpload, true); p == nil {
		t.Fatal("a final replay-checked verification should still succeed if nonce unconsumed")
	}
	if p, _ := s.Verify(tok, KindUpload, true); p != nil {
		t.Fatal("nonce should now be consumed")
	}
}

func TestDownloadTokensSkipReplayProtection(t *testing.T) {
	s := NewSigner("shh-its-a-secret", kv.NewMemory())
	tok, _ := s.Mint("db1", "data/posts/data.parquet", "user1", KindDownload, time.Minute)

	for i := 0; i < 3; i++ {
		p, err := s.Verify(tok, KindDownload, true)
		if err != nil || p == nil {
			t.Fatalf("download verification %d should always succeed: %v", i, err)
		}
	}
}

func TestMintWithoutSecretFails(t *testing.T) {
	s := NewSigner("", nil)
	if _, err := s.Mint("db1", "p", "u", KindUpload, time.Minute); err == nil {
		t.Fatal("expected mint to fail without a secret")
	}
}
