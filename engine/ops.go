package engine

import (
	"time"

	"github.com/parquedb/parquedb/internal/idgen"
	"github.com/parquedb/parquedb/variant"
)

// WriteOpts carries the actor and optional concurrency controls shared by
// the mutating operations (§4.E).
type WriteOpts struct {
	Actor           string
	ExpectedVersion int64 // 0 means "no check"
	Upsert          bool
	Hard            bool
}

// Create allocates a new entity id, appends a CREATE event, signals
// invalidation, and returns the populated entity at version 1.
func (s *Shard) Create(ns string, doc *variant.Object, opts WriteOpts) (*Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	typeName, _ := doc.Get("$type")
	typeStr, _ := typeName.(string)
	if typeStr == "" {
		return nil, errMissingType("engine.Create")
	}
	nameVal, _ := doc.Get("name")
	nameStr, _ := nameVal.(string)
	if nameStr == "" {
		return nil, errMissingName("engine.Create")
	}

	id := idgen.EntityID(s.nextEntityID(ns))
	now := time.Now().UTC()

	payload := variant.FromMap(doc.ToMap())
	ev := Event{
		ID:     idgen.NewEventID(),
		Seq:    s.nextEventSeq(ns, false),
		Ts:     now,
		Op:     OpCreate,
		Target: idgen.FormatEntityTarget(ns, id),
		After:  payload,
		Actor:  opts.Actor,
	}
	if err := s.appendEvent(ns, ev, false); err != nil {
		return nil, err
	}

	e := entityFromPayload(ns, id, ev)
	s.cacheEntity(ns, id, e)
	s.signalInvalidation(ns, SignalEntity, id)
	return e.clone(), nil
}

// CreateMany sequentially composes Create over items; there is no implicit
// transaction, matching §4.E.
func (s *Shard) CreateMany(ns string, items []*variant.Object, opts WriteOpts) ([]*Entity, error) {
	out := make([]*Entity, 0, len(items))
	for _, doc := range items {
		e, err := s.Create(ns, doc, opts)
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Shard) cacheKey(ns, id string) string { return ns + "/" + id }

func (s *Shard) cacheEntity(ns, id string, e *Entity) {
	s.entityCache.Add(s.cacheKey(ns, id), cachedEntity{entity: e.clone(), version: e.Version})
}

// Get returns the current entity, or nil if missing or soft-deleted
// (unless includeDeleted).
func (s *Shard) Get(ns, id string, includeDeleted bool) (*Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(ns, id, includeDeleted)
}

func (s *Shard) getLocked(ns, id string, includeDeleted bool) (*Entity, error) {
	if cached, ok := s.entityCache.Get(s.cacheKey(ns, id)); ok {
		if cached.entity.IsDeleted() && !includeDeleted {
			return nil, nil
		}
		return cached.entity.clone(), nil
	}
	e, err := s.getEntityFromEvents(ns, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, nil
	}
	s.cacheEntity(ns, id, e)
	if e.IsDeleted() && !includeDeleted {
		return nil, nil
	}
	return e.clone(), nil
}

// UpdateOps is the fixed-order set of update operators applied by Update:
// $set -> $unset -> $inc -> $push -> $pull (§4.E).
type UpdateOps struct {
	Set   map[string]any
	Unset []string
	Inc   map[string]float64
	Push  map[string]any
	Pull  map[string]any
}

// Update applies ops to the entity at ns/id in the fixed operator order,
// bumping version and emitting an UPDATE event.
func (s *Shard) Update(ns, id string, ops UpdateOps, opts WriteOpts) (*Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.getLocked(ns, id, true)
	if err != nil {
		return nil, err
	}
	if e == nil {
		if opts.Upsert {
			doc := variant.NewObject()
			for k, v := range ops.Set {
				doc.Set(k, v)
			}
			s.mu.Unlock()
			created, cerr := s.Create(ns, doc, opts)
			s.mu.Lock()
			return created, cerr
		}
		return nil, errNotFound("engine.Update", ns, id)
	}
	if opts.ExpectedVersion != 0 && opts.ExpectedVersion != e.Version {
		return nil, errVersionMismatch("engine.Update", opts.ExpectedVersion, e.Version)
	}

	before := snapshotObject(e)
	applyUpdateOps(e, ops)
	after := snapshotObject(e)

	now := time.Now().UTC()
	e.Version++
	e.UpdatedAt = now
	e.UpdatedBy = opts.Actor

	ev := Event{
		ID:     idgen.NewEventID(),
		Seq:    s.nextEventSeq(ns, false),
		Ts:     now,
		Op:     OpUpdate,
		Target: idgen.FormatEntityTarget(ns, id),
		Before: before,
		After:  after,
		Actor:  opts.Actor,
	}
	if err := s.appendEvent(ns, ev, false); err != nil {
		return nil, err
	}

	s.cacheEntity(ns, id, e)
	s.signalInvalidation(ns, SignalEntity, id)
	return e.clone(), nil
}

func snapshotObject(e *Entity) *variant.Object {
	o := variant.NewObject()
	if e.Data != nil {
		for _, k := range e.Data.Keys() {
			v, _ := e.Data.Get(k)
			o.Set(k, v)
		}
	}
	o.Set("$type", e.Type)
	o.Set("name", e.Name)
	if e.DeletedAt != nil {
		o.Set("deletedAt", *e.DeletedAt)
		o.Set("deletedBy", e.DeletedBy)
	}
	return o
}

func applyUpdateOps(e *Entity, ops UpdateOps) {
	if e.Data == nil {
		e.Data = variant.NewObject()
	}
	for k, v := range ops.Set {
		switch k {
		case "$type":
			if s, ok := v.(string); ok {
				e.Type = s
			}
		case "name":
			if s, ok := v.(string); ok {
				e.Name = s
			}
		default:
			e.Data.Set(k, v)
		}
	}
	for _, k := range ops.Unset {
		e.Data.Delete(k)
	}
	for k, delta := range ops.Inc {
		cur := 0.0
		if v, ok := e.Data.Get(k); ok {
			cur, _ = toFloatAny(v)
		}
		e.Data.Set(k, cur+delta)
	}
	for k, v := range ops.Push {
		arr := []any{}
		if existing, ok := e.Data.Get(k); ok {
			if a, ok := existing.([]any); ok {
				arr = a
			}
		}
		arr = append(arr, v)
		e.Data.Set(k, arr)
	}
	for k, v := range ops.Pull {
		existing, ok := e.Data.Get(k)
		if !ok {
			continue
		}
		a, ok := existing.([]any)
		if !ok {
			continue
		}
		filtered := make([]any, 0, len(a))
		for _, item := range a {
			if !valueEquals(item, v) {
				filtered = append(filtered, item)
			}
		}
		e.Data.Set(k, filtered)
	}
}

func toFloatAny(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	default:
		return 0, false
	}
}

func valueEquals(a, b any) bool {
	af, aok := toFloatAny(a)
	bf, bok := toFloatAny(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}

// Delete soft- or hard-deletes the entity, cascading a soft-delete to
// every adjacent relationship in both directions.
func (s *Shard) Delete(ns, id string, opts WriteOpts) (deletedCount int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.getLocked(ns, id, true)
	if err != nil {
		return 0, err
	}
	if e == nil || (e.IsDeleted() && !opts.Hard) {
		return 0, nil
	}
	if opts.ExpectedVersion != 0 && opts.ExpectedVersion != e.Version {
		return 0, errVersionMismatch("engine.Delete", opts.ExpectedVersion, e.Version)
	}

	now := time.Now().UTC()
	before := snapshotObject(e)
	e.DeletedAt = &now
	e.DeletedBy = opts.Actor
	e.Version++

	ev := Event{
		ID:     idgen.NewEventID(),
		Seq:    s.nextEventSeq(ns, false),
		Ts:     now,
		Op:     OpDelete,
		Target: idgen.FormatEntityTarget(ns, id),
		Before: before,
		After:  snapshotObject(e),
		Actor:  opts.Actor,
	}
	if err := s.appendEvent(ns, ev, false); err != nil {
		return 0, err
	}
	s.cacheEntity(ns, id, e)
	s.signalInvalidation(ns, SignalEntity, id)

	s.cascadeSoftDeleteRelationships(ns, id, opts, opts.Hard)
	return 1, nil
}

// Restore undoes a soft-delete, bumping version and emitting an UPDATE
// event whose before carries deletedAt and whose after does not.
func (s *Shard) Restore(ns, id string, opts WriteOpts) (*Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.getLocked(ns, id, true)
	if err != nil {
		return nil, err
	}
	if e == nil || !e.IsDeleted() {
		return nil, errNotFound("engine.Restore", ns, id)
	}

	now := time.Now().UTC()
	before := snapshotObject(e)
	e.DeletedAt = nil
	e.DeletedBy = ""
	e.Version++
	e.UpdatedAt = now
	e.UpdatedBy = opts.Actor
	after := snapshotObject(e)

	ev := Event{
		ID:     idgen.NewEventID(),
		Seq:    s.nextEventSeq(ns, false),
		Ts:     now,
		Op:     OpUpdate,
		Target: idgen.FormatEntityTarget(ns, id),
		Before: before,
		After:  after,
		Actor:  opts.Actor,
	}
	if err := s.appendEvent(ns, ev, false); err != nil {
		return nil, err
	}
	s.cacheEntity(ns, id, e)
	s.signalInvalidation(ns, SignalEntity, id)
	return e.clone(), nil
}
