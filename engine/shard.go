package engine

import (
	"sync"
	"time"

	json "github.com/goccy/go-json"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/parquedb/parquedb/blob"
	"github.com/parquedb/parquedb/internal/idgen"
	"github.com/parquedb/parquedb/internal/logging"
	"github.com/parquedb/parquedb/internal/xerrors"
	"github.com/parquedb/parquedb/schema"
)

const (
	entityCacheSize   = 1000
	pendingSignalsCap = 100
)

// SignalType classifies an invalidation signal (§4.F).
type SignalType string

const (
	SignalEntity       SignalType = "entity"
	SignalRelationship SignalType = "relationship"
	SignalFull         SignalType = "full"
)

// Signal is one cache-invalidation event pushed to the shard's bounded
// FIFO.
type Signal struct {
	Namespace string
	Type      SignalType
	Ts        time.Time
	Version   uint64
	EntityID  string
}

type cachedEntity struct {
	entity  *Entity
	version int64
}

// Shard owns everything a single-writer namespace group needs: id/seq
// counters, event buffers, the entity cache, invalidation bookkeeping, and
// the durable WAL handle (§4.E, §5 "Shard model").
type Shard struct {
	mu sync.Mutex

	wal   *WAL
	store blob.Store
	graph *schema.Graph

	entityIDCounters map[string]uint64
	eventSeqCounters map[string]uint64
	relSeqCounters   map[string]uint64

	nsEventBuffers  map[string]*Batch
	relEventBuffers map[string]*Batch

	entityCache *lru.Cache[string, cachedEntity]
	relIndex    map[string]*Relationship

	invalidationVersions map[string]uint64
	pendingSignals        []Signal

	txn *txnSnapshot

	log *zap.Logger
}

// NewShard constructs a Shard backed by wal and store. graph may be nil if
// the shard only needs untyped entity storage; checkpoints then write only
// the audit columns and $data. graph only shapes that column layout: writes
// are not validated against it.
func NewShard(wal *WAL, store blob.Store, graph *schema.Graph) *Shard {
	cache, _ := lru.New[string, cachedEntity](entityCacheSize)
	return &Shard{
		wal:                  wal,
		store:                store,
		graph:                graph,
		entityIDCounters:     map[string]uint64{},
		eventSeqCounters:     map[string]uint64{},
		relSeqCounters:       map[string]uint64{},
		nsEventBuffers:       map[string]*Batch{},
		relEventBuffers:      map[string]*Batch{},
		entityCache:          cache,
		relIndex:             map[string]*Relationship{},
		invalidationVersions: map[string]uint64{},
		log:                  logging.Named("engine"),
	}
}

func (s *Shard) nextEntityID(ns string) uint64 {
	s.entityIDCounters[ns]++
	return s.entityIDCounters[ns]
}

func (s *Shard) nextEventSeq(ns string, relation bool) uint64 {
	counters := s.eventSeqCounters
	if relation {
		counters = s.relSeqCounters
	}
	counters[ns]++
	return counters[ns]
}

func (s *Shard) bufferFor(ns string, relation bool) *Batch {
	bufs := s.nsEventBuffers
	if relation {
		bufs = s.relEventBuffers
	}
	b, ok := bufs[ns]
	if !ok {
		b = newBatch(ns, 0)
		bufs[ns] = b
	}
	return b
}

// appendEvent buffers ev, flushing when a threshold is crossed.
func (s *Shard) appendEvent(ns string, ev Event, relation bool) error {
	encoded, err := json.Marshal(ev)
	if err != nil {
		return xerrors.Wrap(xerrors.Fatal, "engine.appendEvent", err)
	}
	b := s.bufferFor(ns, relation)
	b.append(ev, int64(len(encoded)))
	if b.shouldFlush() {
		return s.flush(ns, relation)
	}
	return nil
}

// flush durably writes ns's buffered batch to the WAL and resets it
// (§4.E "Event buffering & flushing").
func (s *Shard) flush(ns string, relation bool) error {
	bufs := s.nsEventBuffers
	if relation {
		bufs = s.relEventBuffers
	}
	b, ok := bufs[ns]
	if !ok || b.isEmpty() {
		return nil
	}
	if err := s.wal.AppendBatch(*b, relation); err != nil {
		return err
	}
	b.reset()
	return nil
}

// FlushAll forces a flush across every buffered namespace, both entity and
// relationship buffers.
func (s *Shard) FlushAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ns := range s.nsEventBuffers {
		if err := s.flush(ns, false); err != nil {
			return err
		}
	}
	for ns := range s.relEventBuffers {
		if err := s.flush(ns, true); err != nil {
			return err
		}
	}
	return nil
}

// signalInvalidation bumps ns's version and pushes a bounded-FIFO signal
// (§4.F). The version bump happens after the write's event is appended and
// before the calling method returns; the event reaches the WAL only once
// appendEvent's flush threshold is crossed or a flush is forced.
func (s *Shard) signalInvalidation(ns string, typ SignalType, entityID string) {
	s.invalidationVersions[ns]++
	sig := Signal{
		Namespace: ns,
		Type:      typ,
		Ts:        time.Now(),
		Version:   s.invalidationVersions[ns],
		EntityID:  entityID,
	}
	s.pendingSignals = append(s.pendingSignals, sig)
	if len(s.pendingSignals) > pendingSignalsCap {
		s.pendingSignals = s.pendingSignals[len(s.pendingSignals)-pendingSignalsCap:]
	}
}

// CurrentVersion returns ns's current invalidation version.
func (s *Shard) CurrentVersion(ns string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invalidationVersions[ns]
}

// AllVersions returns a copy of every namespace's invalidation version.
func (s *Shard) AllVersions() map[string]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]uint64, len(s.invalidationVersions))
	for k, v := range s.invalidationVersions {
		out[k] = v
	}
	return out
}

// Pending returns buffered signals, optionally filtered by namespace and a
// minimum version.
func (s *Shard) Pending(ns string, sinceVersion uint64) []Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Signal, 0, len(s.pendingSignals))
	for _, sig := range s.pendingSignals {
		if ns != "" && sig.Namespace != ns {
			continue
		}
		if sig.Version <= sinceVersion {
			continue
		}
		out = append(out, sig)
	}
	return out
}

// allEvents returns ns's full event history: durable WAL rows followed by
// the in-memory buffer, per §4.E reconstruction step order.
func (s *Shard) allEvents(ns string, relation bool) ([]Event, error) {
	events, err := s.wal.ReadEvents(ns, relation)
	if err != nil {
		return nil, err
	}
	buf := s.bufferFor(ns, relation)
	events = append(events, buf.Events...)
	return events, nil
}

// getEntityFromEvents reconstructs an entity by folding its full event
// history (§4.E "Entity reconstruction").
func (s *Shard) getEntityFromEvents(ns, id string) (*Entity, error) {
	events, err := s.allEvents(ns, false)
	if err != nil {
		return nil, err
	}
	return foldEntity(ns, id, events), nil
}

func (s *Shard) getRelationshipFromEvents(target string, fromNs string) (*Relationship, error) {
	events, err := s.allEvents(fromNs, true)
	if err != nil {
		return nil, err
	}
	return foldRelationship(target, events), nil
}

func relationshipKey(fromNs, fromID, predicate, toNs, toID string) string {
	return idgen.FormatRelationshipTarget(fromNs, fromID, predicate, toNs, toID)
}
