// Package idgen generates the two identifier shapes ParqueDB needs: the
// ULID-sortable event id (§3 Event) and the short opaque per-namespace
// entity id (§3 Entity).
package idgen

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewEventID returns a fresh ULID-sortable id for an Event. ULID encodes a
// millisecond timestamp plus monotonic random bits, so ids generated in the
// same process sort the same as their creation order even within a single
// millisecond — exactly the "ULID-sortable id" requirement in §3.
func NewEventID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	return id.String()
}

// EntityID renders a per-namespace monotonic sequence number as the short
// opaque string form "id<seq>" used to build "<ns>/id<seq>" (S1: $id =
// "posts/id1"). Base36 keeps it short for large counters while staying
// opaque and URL-safe.
func EntityID(seq uint64) string {
	return "id" + strconv.FormatUint(seq, 36)
}

// ParseEntityID reverses EntityID, recovering the sequence number it
// encodes. Used only to rebuild a namespace's counter from WAL history on
// recovery — ids that don't match the "id<base36>" shape return ok=false.
func ParseEntityID(id string) (seq uint64, ok bool) {
	if len(id) < 3 || id[0] != 'i' || id[1] != 'd' {
		return 0, false
	}
	seq, err := strconv.ParseUint(id[2:], 36, 64)
	if err != nil {
		return 0, false
	}
	return seq, true
}

// QualifiedID joins a namespace and entity id into the "ns/id" form. The
// engine does not use it: Entity.ID and the persisted $id column hold the
// bare EntityID form, and event targets use "<ns>:<id>" (FormatEntityTarget,
// below).
func QualifiedID(ns string, seq uint64) string {
	return fmt.Sprintf("%s/%s", ns, EntityID(seq))
}

// FormatEntityTarget builds an event Target string "<ns>:<id>" for entity
// events.
func FormatEntityTarget(ns, id string) string {
	return ns + ":" + id
}

// FormatRelationshipTarget builds an event Target string
// "<fromNs>:<fromId>:<predicate>:<toNs>:<toId>" for relationship events.
func FormatRelationshipTarget(fromNs, fromID, predicate, toNs, toID string) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s", fromNs, fromID, predicate, toNs, toID)
}
