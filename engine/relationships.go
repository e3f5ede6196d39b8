package engine

import (
	"strings"
	"time"

	"github.com/parquedb/parquedb/internal/idgen"
	"github.com/parquedb/parquedb/schema"
	"github.com/parquedb/parquedb/variant"
)

// Direction selects which side of an edge GetRelationships walks.
type Direction string

const (
	DirOutbound Direction = "outbound"
	DirInbound  Direction = "inbound"
)

// LinkOpts configures Link (§4.E).
type LinkOpts struct {
	Actor      string
	MatchMode  MatchMode
	Similarity *float64
	Data       *variant.Object
}

// Link creates (or reactivates) a directed edge, de-duplicating already-live
// edges and validating the matchMode/similarity constraints from §3
// Relationship.
func (s *Shard) Link(fromNs, fromID, predicate, toNs, toID string, opts LinkOpts) (*Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if opts.Similarity != nil && (*opts.Similarity < 0 || *opts.Similarity > 1) {
		return nil, errInvalidSimilarity("engine.Link")
	}
	if opts.MatchMode == MatchExact && opts.Similarity != nil && *opts.Similarity != 1.0 {
		return nil, errExactRequiresUnitSimilarity("engine.Link")
	}

	key := relationshipKey(fromNs, fromID, predicate, toNs, toID)
	existing := s.relIndex[key]
	if existing != nil && !existing.IsDeleted() {
		return existing.clone(), nil // already live: no-op
	}

	now := time.Now().UTC()
	reverse := schema.DefaultReverseName(predicate)

	if existing != nil && existing.IsDeleted() {
		before := relationshipSnapshot(existing)
		existing.DeletedAt = nil
		existing.DeletedBy = ""
		existing.Version++
		existing.UpdatedAt = now
		existing.UpdatedBy = opts.Actor
		if opts.Similarity != nil {
			existing.Similarity = opts.Similarity
		}
		if opts.MatchMode != "" {
			existing.MatchMode = opts.MatchMode
		}
		after := relationshipSnapshot(existing)
		ev := Event{
			ID: idgen.NewEventID(), Seq: s.nextEventSeq(fromNs, true), Ts: now,
			Op: OpUpdate, Target: key, Before: before, After: after, Actor: opts.Actor, Relation: true,
		}
		if err := s.appendEvent(fromNs, ev, true); err != nil {
			return nil, err
		}
		s.relIndex[key] = existing
		s.signalInvalidation(fromNs, SignalRelationship, "")
		return existing.clone(), nil
	}

	r := &Relationship{
		FromNS: fromNs, FromID: fromID, Predicate: predicate,
		ToNS: toNs, ToID: toID, Reverse: reverse,
		MatchMode: opts.MatchMode, Similarity: opts.Similarity, Data: opts.Data,
		CreatedAt: now, CreatedBy: opts.Actor, UpdatedAt: now, UpdatedBy: opts.Actor, Version: 1,
	}
	after := relationshipSnapshot(r)
	ev := Event{
		ID: idgen.NewEventID(), Seq: s.nextEventSeq(fromNs, true), Ts: now,
		Op: OpCreate, Target: key, After: after, Actor: opts.Actor, Relation: true,
	}
	if err := s.appendEvent(fromNs, ev, true); err != nil {
		return nil, err
	}
	s.relIndex[key] = r
	s.signalInvalidation(fromNs, SignalRelationship, "")
	return r.clone(), nil
}

func relationshipSnapshot(r *Relationship) *variant.Object {
	o := variant.NewObject()
	o.Set("fromNs", r.FromNS)
	o.Set("fromId", r.FromID)
	o.Set("predicate", r.Predicate)
	o.Set("toNs", r.ToNS)
	o.Set("toId", r.ToID)
	o.Set("reverse", r.Reverse)
	o.Set("matchMode", string(r.MatchMode))
	if r.Similarity != nil {
		o.Set("similarity", *r.Similarity)
	}
	if r.Data != nil {
		r.Data.Range(func(k string, v any) { o.Set(k, v) })
	}
	if r.DeletedAt != nil {
		o.Set("deletedAt", *r.DeletedAt)
		o.Set("deletedBy", r.DeletedBy)
	}
	return o
}

// Unlink soft-deletes a live edge; a no-op if already deleted or absent.
func (s *Shard) Unlink(fromNs, fromID, predicate, toNs, toID string, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := relationshipKey(fromNs, fromID, predicate, toNs, toID)
	r := s.relIndex[key]
	if r == nil || r.IsDeleted() {
		return nil
	}
	return s.softDeleteRelationshipLocked(fromNs, key, r, actor)
}

func (s *Shard) softDeleteRelationshipLocked(fromNs, key string, r *Relationship, actor string) error {
	now := time.Now().UTC()
	before := relationshipSnapshot(r)
	r.DeletedAt = &now
	r.DeletedBy = actor
	r.Version++
	after := relationshipSnapshot(r)
	ev := Event{
		ID: idgen.NewEventID(), Seq: s.nextEventSeq(fromNs, true), Ts: now,
		Op: OpDelete, Target: key, Before: before, After: after, Actor: actor, Relation: true,
	}
	if err := s.appendEvent(fromNs, ev, true); err != nil {
		return err
	}
	s.relIndex[key] = r
	s.signalInvalidation(fromNs, SignalRelationship, "")
	return nil
}

// cascadeSoftDeleteRelationships soft-deletes every edge touching ns/id in
// either direction, as part of Delete (§4.E). When hard is true, the edge
// is additionally dropped from the in-memory index after its DELETE event
// is durably recorded, rather than lingering there as a tombstone.
func (s *Shard) cascadeSoftDeleteRelationships(ns, id string, opts WriteOpts, hard bool) {
	prefix := ns + ":" + id + ":"
	suffix := ":" + ns + ":" + id
	for key, r := range s.relIndex {
		touches := strings.HasPrefix(key, prefix) || strings.HasSuffix(key, suffix)
		if !touches {
			continue
		}
		if hard {
			if !r.IsDeleted() {
				_ = s.softDeleteRelationshipLocked(r.FromNS, key, r, opts.Actor)
			}
			delete(s.relIndex, key)
			continue
		}
		if r.IsDeleted() {
			continue
		}
		_ = s.softDeleteRelationshipLocked(r.FromNS, key, r, opts.Actor)
	}
}

// GetRelationships returns live edges touching ns/id, optionally filtered
// by predicate and direction.
func (s *Shard) GetRelationships(ns, id string, predicate string, dir Direction) []*Relationship {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir == "" {
		dir = DirOutbound
	}
	var out []*Relationship
	for _, r := range s.relIndex {
		if r.IsDeleted() {
			continue
		}
		if predicate != "" && r.Predicate != predicate {
			continue
		}
		switch dir {
		case DirOutbound:
			if r.FromNS == ns && r.FromID == id {
				out = append(out, r.clone())
			}
		case DirInbound:
			if r.ToNS == ns && r.ToID == id {
				out = append(out, r.clone())
			}
		}
	}
	return out
}
