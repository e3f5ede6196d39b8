package variant

// Shred splits obj into (shredded, remaining): shredded holds only the
// listed fields (in the order they were requested, skipping absent ones),
// remaining holds everything else in its original order. Used to promote
// frequently-queried fields to top-level Parquet columns while keeping the
// full payload in $data (§4.A).
func Shred(obj *Object, fields []string) (shredded, remaining *Object) {
	shredded = NewObject()
	remaining = NewObject()
	wanted := make(map[string]bool, len(fields))
	for _, f := range fields {
		wanted[f] = true
	}
	for _, f := range fields {
		if v, ok := obj.Get(f); ok {
			shredded.Set(f, v)
		}
	}
	obj.Range(func(key string, val any) {
		if !wanted[key] {
			remaining.Set(key, val)
		}
	})
	return shredded, remaining
}

// Merge recombines a shredded/remaining pair, with shredded's keys winning
// on conflict. The result's field order is remaining's original order,
// followed by shredded's fields not in remaining, in shredded's order; a
// shredded key that is also in remaining keeps remaining's position.
func Merge(shredded, remaining *Object) *Object {
	out := NewObject()
	remaining.Range(func(key string, val any) {
		out.Set(key, val)
	})
	shredded.Range(func(key string, val any) {
		out.Set(key, val)
	})
	return out
}
