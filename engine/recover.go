package engine

import (
	"github.com/parquedb/parquedb/blob"
	"github.com/parquedb/parquedb/internal/idgen"
	"github.com/parquedb/parquedb/schema"
)

// RecoverShard constructs a Shard and hydrates it from wal's durable
// history before returning, so a process restarted against a non-empty
// WAL never re-allocates an entity id or event seq already in use, and
// never starts with an empty relIndex despite rels_wal holding every
// relationship event durably (§4.E, §8). Callers that know the WAL is
// fresh (tests, a brand-new shard) can use NewShard directly to skip the
// recovery scan.
func RecoverShard(wal *WAL, store blob.Store, graph *schema.Graph) (*Shard, error) {
	s := NewShard(wal, store, graph)
	if err := s.hydrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// hydrate rebuilds entityIDCounters, eventSeqCounters, relSeqCounters, and
// relIndex for every namespace with WAL or checkpoint history.
func (s *Shard) hydrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	namespaces, err := s.wal.Namespaces()
	if err != nil {
		return err
	}
	for _, ns := range namespaces {
		if err := s.hydrateNamespace(ns); err != nil {
			return err
		}
	}
	return nil
}

func (s *Shard) hydrateNamespace(ns string) error {
	cp, err := s.wal.LatestCheckpoint(ns)
	if err != nil {
		return err
	}
	var entitySeq, eventSeq uint64
	if cp != nil {
		entitySeq, eventSeq = cp.LastEntitySeq, cp.LastEventSeq
	}

	// events_wal only holds the tail not yet folded into a checkpoint;
	// the checkpoint's own counters (above) cover everything it trimmed.
	entityEvents, err := s.wal.ReadEvents(ns, false)
	if err != nil {
		return err
	}
	for _, ev := range entityEvents {
		if ev.Seq > eventSeq {
			eventSeq = ev.Seq
		}
		if _, id := splitEntityTarget(ev.Target); id != "" {
			if seq, ok := idgen.ParseEntityID(id); ok && seq > entitySeq {
				entitySeq = seq
			}
		}
	}
	s.entityIDCounters[ns] = entitySeq
	s.eventSeqCounters[ns] = eventSeq

	// rels_wal is never trimmed (only entity events are checkpointed into
	// Parquet), so folding its full history recovers relIndex exactly.
	relEvents, err := s.wal.ReadEvents(ns, true)
	if err != nil {
		return err
	}
	var relSeq uint64
	targets := map[string]bool{}
	for _, ev := range relEvents {
		if ev.Seq > relSeq {
			relSeq = ev.Seq
		}
		targets[ev.Target] = true
	}
	s.relSeqCounters[ns] = relSeq
	for target := range targets {
		if r := foldRelationship(target, relEvents); r != nil {
			s.relIndex[target] = r
		}
	}
	return nil
}
