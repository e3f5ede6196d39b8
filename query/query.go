// Package query implements the find() executor (§4.I): it serves reads
// from a namespace's checkpointed Parquet file with predicate push-down and
// projection, overlays any writes the write engine hasn't checkpointed yet,
// and fronts the whole thing with a versioned result cache.
package query

import (
	"fmt"
	"sort"
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/parquedb/parquedb/blob"
	"github.com/parquedb/parquedb/cachepolicy"
	"github.com/parquedb/parquedb/engine"
	"github.com/parquedb/parquedb/kv"
	"github.com/parquedb/parquedb/parquetio"
)

// Condition is one equality/comparison predicate in a find() call. Multiple
// conditions are ANDed together.
type Condition struct {
	Field string
	Op    parquetio.FilterOp
	Value any
}

// SortSpec orders results by one field.
type SortSpec struct {
	Field string
	Desc  bool
}

// Options configures a Find call (§4.I).
type Options struct {
	Limit          int
	Skip           int
	Project        []string
	Sort           []SortSpec
	IncludeDeleted bool
}

// Tier identifies which layer of the cache hierarchy served a result, per
// §4.I's "stats counting cache hits by tier". Edge/CDN are the HTTP-fronting
// layers a deployed ParqueDB sits behind; this in-process executor only
// directly operates CacheStorage (the kv-backed query result cache) and
// Primary (Parquet + WAL overlay); it never reports Edge or CDN itself.
type Tier string

const (
	TierEdge         Tier = "edge"
	TierCDN          Tier = "cdn"
	TierCacheStorage Tier = "cache-storage"
	TierPrimary      Tier = "primary"
)

// Stats reports how a Find call was served.
type Stats struct {
	Tier             Tier
	CacheHit         bool
	RowsScanned      int
	RowGroupsScanned int
}

// Result is what Find returns.
type Result struct {
	Items    []map[string]any
	HasMore  bool
	Stats    Stats
}

// Executor answers find() queries for one shard's namespaces.
type Executor struct {
	shard *engine.Shard
	cache kv.Store
	ttls  cachepolicy.TTLs
}

// NewExecutor builds an Executor. cache may be nil to disable result
// caching entirely.
func NewExecutor(shard *engine.Shard, cache kv.Store, ttls cachepolicy.TTLs) *Executor {
	return &Executor{shard: shard, cache: cache, ttls: ttls}
}

type blobAdapter struct {
	store blob.Store
	key   string
}

func (a blobAdapter) Size(key string) (int64, error) { return a.store.Size(noopCtx{}, key) }
func (a blobAdapter) ReadRange(key string, start, end int64) ([]byte, error) {
	return a.store.GetRange(noopCtx{}, key, start, end)
}

type noopCtx struct{}

func (noopCtx) Done() <-chan struct{} { return nil }
func (noopCtx) Err() error            { return nil }

// pushDownable returns the first condition that parquetio can prune row
// groups with; every condition is still applied residually in-memory
// afterward, since parquetio.ReadOptions only carries a single Filter.
func pushDownable(conds []Condition) *parquetio.Filter {
	if len(conds) == 0 {
		return nil
	}
	c := conds[0]
	return &parquetio.Filter{Column: c.Field, Op: c.Op, Value: c.Value}
}

func matchesCondition(row map[string]any, c Condition) bool {
	v, ok := row[c.Field]
	switch c.Op {
	case parquetio.OpIsNull:
		return !ok || v == nil
	case parquetio.OpIsNotNull:
		return ok && v != nil
	}
	if !ok {
		return false
	}
	return compare(v, c.Op, c.Value)
}

func compare(v any, op parquetio.FilterOp, target any) bool {
	switch op {
	case parquetio.OpEq:
		return fmt.Sprint(v) == fmt.Sprint(target)
	case parquetio.OpNe:
		return fmt.Sprint(v) != fmt.Sprint(target)
	case parquetio.OpIn:
		values, ok := target.([]any)
		if !ok {
			return false
		}
		for _, x := range values {
			if fmt.Sprint(v) == fmt.Sprint(x) {
				return true
			}
		}
		return false
	case parquetio.OpGt, parquetio.OpGte, parquetio.OpLt, parquetio.OpLte:
		vf, vok := asFloat(v)
		tf, tok := asFloat(target)
		if !vok || !tok {
			return false
		}
		switch op {
		case parquetio.OpGt:
			return vf > tf
		case parquetio.OpGte:
			return vf >= tf
		case parquetio.OpLt:
			return vf < tf
		case parquetio.OpLte:
			return vf <= tf
		}
	}
	return false
}

func asFloat(v any) (float64, bool) {
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

func matchesAll(row map[string]any, conds []Condition) bool {
	for _, c := range conds {
		if !matchesCondition(row, c) {
			return false
		}
	}
	return true
}

// Find answers a query against ns: checkpointed Parquet data plus the
// uncheckpointed WAL/buffer tail, filtered, sorted, and paginated (§4.I).
func (ex *Executor) Find(ns string, conds []Condition, opts Options) (*Result, error) {
	version := ex.shard.CurrentVersion(ns)
	cacheKey := ex.resultCacheKey(ns, conds, opts, version)

	if ex.cache != nil {
		if cached, ok := ex.cache.Get(cacheKey); ok {
			var res Result
			if err := json.Unmarshal(cached, &res); err == nil {
				res.Stats = Stats{Tier: TierCacheStorage, CacheHit: true}
				return &res, nil
			}
		}
	}

	res, err := ex.findUncached(ns, conds, opts)
	if err != nil {
		return nil, err
	}
	res.Stats = Stats{Tier: TierPrimary, CacheHit: false, RowsScanned: res.Stats.RowsScanned, RowGroupsScanned: res.Stats.RowGroupsScanned}

	if ex.cache != nil {
		if encoded, err := json.Marshal(res); err == nil {
			ex.cache.Put(cacheKey, encoded, ex.ttls.Data)
		}
	}
	return res, nil
}

func (ex *Executor) findUncached(ns string, conds []Condition, opts Options) (*Result, error) {
	rows := map[string]map[string]any{}
	var rowGroupsScanned int

	path := ex.shard.DataPath(ns)
	if exists, _ := ex.shard.Store().Exists(noopCtx{}, path); exists {
		buf := parquetio.NewBlobBuffer(blobAdapter{store: ex.shard.Store()}, path)
		footer, err := parquetio.ReadMetadata(buf)
		if err != nil {
			return nil, err
		}
		filter := pushDownable(conds)
		groups := parquetio.GetRelevantRowGroups(footer, filter)
		rowGroupsScanned = len(groups)
		checkpointed, err := parquetio.ReadRowGroups(buf, footer, groups, parquetio.ReadOptions{Columns: opts.Project, Filter: filter})
		if err != nil {
			return nil, err
		}
		for _, r := range checkpointed {
			if id, ok := r["$id"].(string); ok {
				rows[id] = map[string]any(r)
			}
		}
	}

	overlay, err := ex.shard.UncheckpointedEntities(ns)
	if err != nil {
		return nil, err
	}
	for id, e := range overlay {
		if e.IsDeleted() && !opts.IncludeDeleted {
			delete(rows, id)
			continue
		}
		row := map[string]any{"$id": e.ID, "$type": e.Type, "name": e.Name, "version": e.Version}
		if e.Data != nil {
			e.Data.Range(func(k string, v any) { row[k] = v })
		}
		rows[id] = row
	}

	var items []map[string]any
	for _, r := range rows {
		if !opts.IncludeDeleted {
			if _, has := r["deletedAt"]; has && r["deletedAt"] != nil {
				continue
			}
		}
		if matchesAll(r, conds) {
			items = append(items, r)
		}
	}

	sortItems(items, opts.Sort)

	total := len(items)
	items = paginate(items, opts.Skip, opts.Limit)
	hasMore := opts.Limit > 0 && opts.Skip+len(items) < total

	return &Result{
		Items:   items,
		HasMore: hasMore,
		Stats:   Stats{RowsScanned: total, RowGroupsScanned: rowGroupsScanned},
	}, nil
}

func sortItems(items []map[string]any, specs []SortSpec) {
	if len(specs) == 0 {
		return
	}
	sort.SliceStable(items, func(i, j int) bool {
		for _, s := range specs {
			vi, vj := items[i][s.Field], items[j][s.Field]
			if cmp := compareAny(vi, vj); cmp != 0 {
				if s.Desc {
					return cmp > 0
				}
				return cmp < 0
			}
		}
		return false
	})
}

func compareAny(a, b any) int {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func paginate(items []map[string]any, skip, limit int) []map[string]any {
	if skip >= len(items) {
		return nil
	}
	items = items[skip:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func (ex *Executor) resultCacheKey(ns string, conds []Condition, opts Options, version uint64) string {
	encoded, _ := json.Marshal(struct {
		Conds []Condition
		Opts  Options
	}{conds, opts})
	base := fmt.Sprintf("query/%s/%s", ns, strconv.FormatUint(uint64(len(encoded)), 10)+"-"+hashBytes(encoded))
	return cachepolicy.CacheKey(base, version, nil)
}

func hashBytes(b []byte) string {
	var h uint32 = 2166136261
	for _, c := range b {
		h ^= uint32(c)
		h *= 16777619
	}
	return strconv.FormatUint(uint64(h), 16)
}
