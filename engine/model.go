// Package engine implements ParqueDB's write engine (§4.E): a
// single-writer-per-shard core that buffers events, durably logs them to a
// WAL sidecar, reconstructs entities by folding events, and periodically
// checkpoints the WAL into Parquet.
package engine

import (
	"time"

	"github.com/parquedb/parquedb/variant"
)

// Op is an event's operation kind.
type Op string

const (
	OpCreate Op = "CREATE"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// MatchMode classifies how a relationship edge was established.
type MatchMode string

const (
	MatchExact  MatchMode = "exact"
	MatchFuzzy  MatchMode = "fuzzy"
	MatchNone   MatchMode = ""
)

// Entity is a reconstructed or freshly created record (§3 Entity).
type Entity struct {
	Namespace string
	ID        string
	Type      string
	Name      string
	Data      *variant.Object // user payload, audit fields excluded
	CreatedAt time.Time
	CreatedBy string
	UpdatedAt time.Time
	UpdatedBy string
	Version   int64
	DeletedAt *time.Time
	DeletedBy string
}

// IsDeleted reports whether the entity is soft-deleted.
func (e *Entity) IsDeleted() bool { return e.DeletedAt != nil }

// clone deep-copies an entity so snapshots and cache entries never alias
// mutable state.
func (e *Entity) clone() *Entity {
	if e == nil {
		return nil
	}
	cp := *e
	if e.Data != nil {
		cp.Data = variant.FromMap(e.Data.ToMap())
	}
	if e.DeletedAt != nil {
		t := *e.DeletedAt
		cp.DeletedAt = &t
	}
	return &cp
}

// Relationship is a directed edge between two entities (§3 Relationship).
type Relationship struct {
	FromNS     string
	FromID     string
	Predicate  string
	ToNS       string
	ToID       string
	Reverse    string
	MatchMode  MatchMode
	Similarity *float64
	Data       *variant.Object
	CreatedAt  time.Time
	CreatedBy  string
	UpdatedAt  time.Time
	UpdatedBy  string
	Version    int64
	DeletedAt  *time.Time
	DeletedBy  string
}

// IsDeleted reports whether the edge is soft-deleted.
func (r *Relationship) IsDeleted() bool { return r.DeletedAt != nil }

func (r *Relationship) clone() *Relationship {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Data != nil {
		cp.Data = variant.FromMap(r.Data.ToMap())
	}
	if r.Similarity != nil {
		s := *r.Similarity
		cp.Similarity = &s
	}
	if r.DeletedAt != nil {
		t := *r.DeletedAt
		cp.DeletedAt = &t
	}
	return &cp
}

// Event is one durable state transition (§3 Event).
type Event struct {
	ID       string
	Seq      uint64
	Ts       time.Time
	Op       Op
	Target   string
	Before   *variant.Object
	After    *variant.Object
	Actor    string
	Relation bool // true for relationship events, false for entity events
}

// Batch is a contiguous run of events for one namespace, as buffered
// in-process before a flush (§4.E "Event buffering & flushing").
type Batch struct {
	Namespace string
	Events    []Event
	FirstSeq  uint64
	LastSeq   uint64
	SizeBytes int64
}

func (b *Batch) isEmpty() bool { return len(b.Events) == 0 }

// Checkpoint records one completed materialization of the WAL into Parquet
// (§4.E "Checkpointing"). LastEntitySeq/LastEventSeq snapshot the shard's
// counters at checkpoint time, giving recovery a baseline once the entity
// events themselves are trimmed from the WAL.
type Checkpoint struct {
	ID            string
	Ts            time.Time
	EventCount    int64
	FirstEventID  string
	LastEventID   string
	ParquetPath   string
	LastEntitySeq uint64
	LastEventSeq  uint64
}
