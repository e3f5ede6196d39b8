// Package token implements ParqueDB's upload/download token minting and
// verification, and the single-use replay guard for upload tokens (§4.G).
package token

import (
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/parquedb/parquedb/kv"
)

// Kind distinguishes upload tokens (single-use) from download tokens
// (idempotent, no replay protection).
type Kind string

const (
	KindUpload   Kind = "upload"
	KindDownload Kind = "download"
)

// Payload is the signed content of a token (§4.G).
type Payload struct {
	DatabaseID string `json:"databaseId"`
	Path       string `json:"path"`
	UserID     string `json:"userId"`
	ExpiresAt  int64  `json:"expiresAt"` // unix millis
	Type       Kind   `json:"type"`
	JTI        string `json:"jti"`
}

// Signer mints and verifies tokens using a process-wide HMAC-SHA256
// secret. Absence of a secret means Mint fails and Verify always returns
// nil, per §4.G.
type Signer struct {
	secret []byte
	used   kv.Store

	mu        sync.Mutex
	localUsed map[string]time.Time // in-process nonce set, used only when used is nil
}

// NewSigner builds a Signer. used backs the single-use nonce check for
// upload tokens; it may be nil, in which case only the in-process fallback
// applies.
func NewSigner(secret string, used kv.Store) *Signer {
	return &Signer{
		secret:    []byte(secret),
		used:      used,
		localUsed: map[string]time.Time{},
	}
}

func b64encode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func b64decode(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}

// Mint signs a new token for the given payload fields, generating a fresh
// jti. It fails if no secret was configured.
func (s *Signer) Mint(databaseID, path, userID string, kind Kind, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", fmt.Errorf("token: no signing secret configured")
	}
	jti, err := newNonce()
	if err != nil {
		return "", err
	}
	p := Payload{
		DatabaseID: databaseID,
		Path:       path,
		UserID:     userID,
		ExpiresAt:  time.Now().Add(ttl).UnixMilli(),
		Type:       kind,
		JTI:        jti,
	}
	return s.sign(p)
}

// sign computes the token wire format base64url(payload) + "." +
// base64url(mac) by driving jwt.SigningMethodHS256 directly over the
// payload bytes rather than building a full JWT — its Sign/Verify methods
// already produce the unpadded base64url segment this format needs, with
// no "alg"/"typ" header to carry since the wire format is spec-defined.
func (s *Signer) sign(p Payload) (string, error) {
	payloadBytes, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	sig, err := jwt.SigningMethodHS256.Sign(string(payloadBytes), s.secret)
	if err != nil {
		return "", err
	}
	return b64encode(payloadBytes) + "." + sig, nil
}

// newNonce mints the jti: a fresh random identifier, not required to be
// sortable or reversible, so a UUIDv4 fits without pulling in idgen's
// ULID machinery (reserved for Event ids).
func newNonce() (string, error) {
	return uuid.NewString(), nil
}

// Verify checks a token's signature, expiry, and type against wantKind. It
// returns (nil, nil) — not an error — on any verification failure, per
// §4.G ("verify returns null"); checkReplay controls whether upload
// tokens' single-use guard is enforced for this call.
func (s *Signer) Verify(tok string, wantKind Kind, checkReplay bool) (*Payload, error) {
	if len(s.secret) == 0 {
		return nil, nil
	}
	parts := strings.SplitN(tok, ".", 2)
	if len(parts) != 2 {
		return nil, nil
	}
	payloadBytes, err := b64decode(parts[0])
	if err != nil {
		return nil, nil
	}
	if err := jwt.SigningMethodHS256.Verify(string(payloadBytes), parts[1], s.secret); err != nil {
		return nil, nil
	}

	var p Payload
	if err := json.Unmarshal(payloadBytes, &p); err != nil {
		return nil, nil
	}
	if p.Type != wantKind {
		return nil, nil
	}
	if p.ExpiresAt < time.Now().UnixMilli() {
		return nil, nil
	}

	if wantKind == KindUpload && checkReplay {
		consumed, err := s.consumeNonce(p.JTI, time.UnixMilli(p.ExpiresAt))
		if err != nil || consumed {
			return nil, nil
		}
	}

	return &p, nil
}

// consumeNonce records jti as used, returning true if it was already
// recorded (a replay). With a KV store configured, the store's SetNX alone
// decides; kv.Store reports no errors, so there is no fallback on KV
// failure. Without a KV store, the in-process set is used.
func (s *Signer) consumeNonce(jti string, expiresAt time.Time) (alreadyUsed bool, err error) {
	ttl := time.Until(expiresAt)
	if ttl < 0 {
		ttl = 0
	}

	if s.used != nil {
		if ok := s.used.SetNX("USED_TOKENS:"+jti, []byte("1"), ttl); ok {
			return false, nil
		}
		return true, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for k, exp := range s.localUsed {
		if now.After(exp) {
			delete(s.localUsed, k)
		}
	}
	if _, seen := s.localUsed[jti]; seen {
		return true, nil
	}
	s.localUsed[jti] = now.Add(ttl)
	return false, nil
}
