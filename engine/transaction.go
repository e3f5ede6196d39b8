package engine

// txnSnapshot captures every piece of in-process state a rollback must
// restore (§4.E "Transactions"): counters, buffers, and the relationship
// index. WAL rows written during the transaction are durable and are
// never rewound — rollback relies on the fact that folding the same WAL
// events against restored (pre-transaction) buffers and counters produces
// no additional observable state, since the entity cache is cleared too.
type txnSnapshot struct {
	entityIDCounters map[string]uint64
	eventSeqCounters map[string]uint64
	relSeqCounters   map[string]uint64
	nsEventBuffers   map[string]*Batch
	relEventBuffers  map[string]*Batch
	relIndex         map[string]*Relationship
}

func copyUint64Map(m map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyBatchMap(m map[string]*Batch) map[string]*Batch {
	out := make(map[string]*Batch, len(m))
	for k, b := range m {
		cp := *b
		cp.Events = append([]Event(nil), b.Events...)
		out[k] = &cp
	}
	return out
}

func copyRelIndex(m map[string]*Relationship) map[string]*Relationship {
	out := make(map[string]*Relationship, len(m))
	for k, r := range m {
		out[k] = r.clone()
	}
	return out
}

// BeginTransaction opens a transaction scoped to this shard, erroring if
// one is already active.
func (s *Shard) BeginTransaction() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.txn != nil {
		return errTransactionActive("engine.BeginTransaction")
	}
	s.txn = &txnSnapshot{
		entityIDCounters: copyUint64Map(s.entityIDCounters),
		eventSeqCounters: copyUint64Map(s.eventSeqCounters),
		relSeqCounters:   copyUint64Map(s.relSeqCounters),
		nsEventBuffers:   copyBatchMap(s.nsEventBuffers),
		relEventBuffers:  copyBatchMap(s.relEventBuffers),
		relIndex:         copyRelIndex(s.relIndex),
	}
	return nil
}

// Commit discards the active transaction's snapshot, making its writes
// permanent.
func (s *Shard) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.txn == nil {
		return errNoTransaction("engine.Commit")
	}
	s.txn = nil
	return nil
}

// Rollback restores every snapshotted map to its pre-transaction value and
// clears the entity cache, since cached views may now be stale (§4.E).
func (s *Shard) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.txn == nil {
		return errNoTransaction("engine.Rollback")
	}
	s.entityIDCounters = s.txn.entityIDCounters
	s.eventSeqCounters = s.txn.eventSeqCounters
	s.relSeqCounters = s.txn.relSeqCounters
	s.nsEventBuffers = s.txn.nsEventBuffers
	s.relEventBuffers = s.txn.relEventBuffers
	s.relIndex = s.txn.relIndex
	s.entityCache.Purge()
	s.txn = nil
	return nil
}

// InTransaction reports whether a transaction is currently active.
func (s *Shard) InTransaction() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txn != nil
}
