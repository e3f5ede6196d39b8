package engine

import (
	"github.com/parquedb/parquedb/internal/idgen"
	"github.com/parquedb/parquedb/variant"
)

// foldEntity applies events in order to reconstruct an entity's current
// state (§4.E "Entity reconstruction"). Replaying the same events always
// yields byte-identical state — the fold is pure and has no side effects.
func foldEntity(ns, id string, events []Event) *Entity {
	target := idgen.FormatEntityTarget(ns, id)
	var e *Entity
	for _, ev := range events {
		if ev.Relation || ev.Target != target {
			continue
		}
		switch ev.Op {
		case OpCreate:
			e = entityFromPayload(ns, id, ev)
		case OpUpdate:
			if e == nil {
				continue
			}
			applyUpdateEvent(e, ev)
		case OpDelete:
			if e == nil {
				continue
			}
			ts := ev.Ts
			e.DeletedAt = &ts
			e.DeletedBy = ev.Actor
			e.Version++
		}
	}
	return e
}

func entityFromPayload(ns, id string, ev Event) *Entity {
	e := &Entity{
		Namespace: ns,
		ID:        id,
		CreatedAt: ev.Ts,
		CreatedBy: ev.Actor,
		UpdatedAt: ev.Ts,
		UpdatedBy: ev.Actor,
		Version:   1,
		Data:      variant.NewObject(),
	}
	if ev.After == nil {
		return e
	}
	m := ev.After.ToMap()
	if t, ok := m["$type"].(string); ok {
		e.Type = t
	}
	if n, ok := m["name"].(string); ok {
		e.Name = n
	}
	delete(m, "$type")
	delete(m, "name")
	e.Data = variant.FromMap(m)
	return e
}

// applyUpdateEvent merges ev.After over the current state, per §4.E: a
// restore is an UPDATE whose before.deletedAt is set and whose
// after.deletedAt is absent.
func applyUpdateEvent(e *Entity, ev Event) {
	isRestore := false
	if ev.Before != nil {
		if _, had := ev.Before.Get("deletedAt"); had {
			afterHasDeletedAt := false
			if ev.After != nil {
				if v, ok := ev.After.Get("deletedAt"); ok && v != nil {
					afterHasDeletedAt = true
				}
			}
			isRestore = !afterHasDeletedAt
		}
	}

	if ev.After != nil {
		m := ev.After.ToMap()
		if t, ok := m["$type"].(string); ok {
			e.Type = t
		}
		if n, ok := m["name"].(string); ok {
			e.Name = n
		}
		delete(m, "$type")
		delete(m, "name")
		for k, v := range m {
			if e.Data == nil {
				e.Data = variant.NewObject()
			}
			e.Data.Set(k, v)
		}
	}

	e.Version++
	e.UpdatedAt = ev.Ts
	e.UpdatedBy = ev.Actor

	if isRestore {
		e.DeletedAt = nil
		e.DeletedBy = ""
	}
}

// foldRelationship reconstructs one relationship edge's current state from
// its events, identified by the canonical target string.
func foldRelationship(target string, events []Event) *Relationship {
	var r *Relationship
	for _, ev := range events {
		if !ev.Relation || ev.Target != target {
			continue
		}
		switch ev.Op {
		case OpCreate:
			r = relationshipFromPayload(ev)
		case OpUpdate:
			if r == nil {
				continue
			}
			applyRelationshipUpdate(r, ev)
		case OpDelete:
			if r == nil {
				continue
			}
			ts := ev.Ts
			r.DeletedAt = &ts
			r.DeletedBy = ev.Actor
			r.Version++
		}
	}
	return r
}

func relationshipFromPayload(ev Event) *Relationship {
	r := &Relationship{
		CreatedAt: ev.Ts,
		CreatedBy: ev.Actor,
		UpdatedAt: ev.Ts,
		UpdatedBy: ev.Actor,
		Version:   1,
	}
	if ev.After == nil {
		return r
	}
	m := ev.After.ToMap()
	if v, ok := m["fromNs"].(string); ok {
		r.FromNS = v
	}
	if v, ok := m["fromId"].(string); ok {
		r.FromID = v
	}
	if v, ok := m["predicate"].(string); ok {
		r.Predicate = v
	}
	if v, ok := m["toNs"].(string); ok {
		r.ToNS = v
	}
	if v, ok := m["toId"].(string); ok {
		r.ToID = v
	}
	if v, ok := m["reverse"].(string); ok {
		r.Reverse = v
	}
	if v, ok := m["matchMode"].(string); ok {
		r.MatchMode = MatchMode(v)
	}
	if v, ok := m["similarity"].(float64); ok {
		r.Similarity = &v
	}
	for _, k := range []string{"fromNs", "fromId", "predicate", "toNs", "toId", "reverse", "matchMode", "similarity"} {
		delete(m, k)
	}
	r.Data = variant.FromMap(m)
	return r
}

func applyRelationshipUpdate(r *Relationship, ev Event) {
	isRestore := false
	if ev.Before != nil {
		if _, had := ev.Before.Get("deletedAt"); had {
			afterHasDeletedAt := false
			if ev.After != nil {
				if v, ok := ev.After.Get("deletedAt"); ok && v != nil {
					afterHasDeletedAt = true
				}
			}
			isRestore = !afterHasDeletedAt
		}
	}
	if ev.After != nil {
		m := ev.After.ToMap()
		if v, ok := m["similarity"].(float64); ok {
			r.Similarity = &v
		}
		if v, ok := m["matchMode"].(string); ok {
			r.MatchMode = MatchMode(v)
		}
		delete(m, "similarity")
		delete(m, "matchMode")
		for k, v := range m {
			if r.Data == nil {
				r.Data = variant.NewObject()
			}
			r.Data.Set(k, v)
		}
	}
	r.Version++
	r.UpdatedAt = ev.Ts
	r.UpdatedBy = ev.Actor
	if isRestore {
		r.DeletedAt = nil
		r.DeletedBy = ""
	}
}
