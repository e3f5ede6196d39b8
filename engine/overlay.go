package engine

import "github.com/parquedb/parquedb/blob"

// Store exposes the shard's backing blob store, so the query executor can
// read checkpointed Parquet data without duplicating the shard's storage
// wiring.
func (s *Shard) Store() blob.Store { return s.store }

// DataPath returns the Parquet path checkpoints for ns are written to.
func (s *Shard) DataPath(ns string) string { return dataPath(ns) }

// UncheckpointedEntities folds every entity touched by ns's current WAL and
// buffer — i.e. events not yet covered by a checkpoint — into their current
// state, keyed by entity id. The query executor overlays this onto rows
// read from the checkpointed Parquet file so that find() never misses a
// write that hasn't been materialized yet (§4.E, §4.I).
func (s *Shard) UncheckpointedEntities(ns string) (map[string]*Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.allEvents(ns, false)
	if err != nil {
		return nil, err
	}

	ids := map[string]bool{}
	for _, ev := range events {
		_, id := splitEntityTarget(ev.Target)
		if id != "" {
			ids[id] = true
		}
	}

	out := make(map[string]*Entity, len(ids))
	for id := range ids {
		if e := foldEntity(ns, id, events); e != nil {
			out[id] = e
		}
	}
	return out, nil
}
