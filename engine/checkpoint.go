package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/parquedb/parquedb/blob"
	"github.com/parquedb/parquedb/internal/idgen"
	"github.com/parquedb/parquedb/parquetio"
	"github.com/parquedb/parquedb/variant"
)

func dataPath(ns string) string { return fmt.Sprintf("data/%s/data.parquet", ns) }

// tableSpecFor builds the column layout for ns's typed rows. Without a
// schema graph (untyped mode) only the audit columns and $data are
// written.
func (s *Shard) tableSpecFor(typeName string) parquetio.TableSpec {
	if s.graph == nil {
		return parquetio.TableSpec{Columns: parquetio.AuditColumns()}
	}
	fields, err := s.graph.Resolve(typeName)
	if err != nil {
		return parquetio.TableSpec{Columns: parquetio.AuditColumns()}
	}
	t := s.graph.Types[typeName]
	var order []string
	if t != nil {
		order = t.ShredFields()
	}
	return parquetio.BuildTableSpec(fields, order)
}

func entityToRow(e *Entity) parquetio.Row {
	row := parquetio.Row{
		"$id":       e.ID,
		"$type":     e.Type,
		"name":      e.Name,
		"createdAt": e.CreatedAt,
		"createdBy": e.CreatedBy,
		"updatedAt": e.UpdatedAt,
		"updatedBy": e.UpdatedBy,
		"version":   e.Version,
	}
	if e.DeletedAt != nil {
		row["deletedAt"] = *e.DeletedAt
		row["deletedBy"] = e.DeletedBy
	}
	if e.Data != nil {
		data, err := variant.Encode(e.Data)
		if err == nil {
			row["$data"] = variant.Binary(data)
		}
		e.Data.Range(func(k string, v any) {
			row[k] = v
		})
	}
	return row
}

// Checkpoint materializes ns's WAL events into data/<ns>/data.parquet,
// records a checkpoints row, then trims the covered WAL rows and pending
// row-group markers (§4.E "Checkpointing"). Re-running with the same
// inputs produces the same artifact: the fold is pure and compact rewrites
// the full file deterministically.
func (s *Shard) Checkpoint(ns string) (*Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.flush(ns, false); err != nil {
		return nil, err
	}

	events, err := s.wal.ReadEvents(ns, false)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}

	ids := map[string]bool{}
	for _, ev := range events {
		if ev.Relation {
			continue
		}
		_, id := splitEntityTarget(ev.Target)
		if id != "" {
			ids[id] = true
		}
	}

	rowsByType := map[string][]parquetio.Row{}
	for id := range ids {
		e := foldEntity(ns, id, events)
		if e == nil {
			continue
		}
		rowsByType[e.Type] = append(rowsByType[e.Type], entityToRow(e))
	}

	lastSeq := events[len(events)-1].Seq
	firstID, lastID := events[0].ID, events[len(events)-1].ID

	// Single-typed-namespace simplification: most namespaces hold one
	// declared type, so write one data file per namespace covering all
	// its rows regardless of type, using the widest observed spec (most
	// columns; ties go to the alphabetically first type). Rows are ordered
	// by $id so the written file does not depend on map iteration order.
	typeNames := make([]string, 0, len(rowsByType))
	for typeName := range rowsByType {
		typeNames = append(typeNames, typeName)
	}
	sort.Strings(typeNames)
	var allRows []parquetio.Row
	var spec parquetio.TableSpec
	for _, typeName := range typeNames {
		if ts := s.tableSpecFor(typeName); len(ts.Columns) > len(spec.Columns) {
			spec = ts
		}
		allRows = append(allRows, rowsByType[typeName]...)
	}
	sort.Slice(allRows, func(i, j int) bool { return allRows[i]["$id"].(string) < allRows[j]["$id"].(string) })
	if len(rowsByType) == 0 {
		spec = parquetio.TableSpec{Columns: parquetio.AuditColumns()}
	}

	path := dataPath(ns)
	cfg := parquetio.DefaultConfig()

	var data []byte
	if existing, _, err := s.store.Get(noopCtx{}, path); err == nil {
		buf := &parquetio.MemBuffer{Data: existing}
		compacted, cerr := compactExisting(buf, allRows, spec, cfg)
		if cerr != nil {
			return nil, cerr
		}
		data = compacted
	} else {
		out, _, werr := parquetio.WriteBuffer(allRows, spec, cfg)
		if werr != nil {
			return nil, werr
		}
		data = out
	}

	if _, err := s.store.Put(noopCtx{}, path, data, ""); err != nil {
		return nil, err
	}

	cp := Checkpoint{
		ID:            idgen.NewEventID(),
		Ts:            time.Now().UTC(),
		EventCount:    int64(len(events)),
		FirstEventID:  firstID,
		LastEventID:   lastID,
		ParquetPath:   path,
		LastEntitySeq: s.entityIDCounters[ns],
		LastEventSeq:  s.eventSeqCounters[ns],
	}
	if err := s.wal.RecordCheckpoint(ns, cp); err != nil {
		return nil, err
	}
	if err := s.wal.DeleteUpTo(ns, lastSeq, false); err != nil {
		return nil, err
	}
	if err := s.wal.ClearPendingRowGroups(ns, lastSeq); err != nil {
		return nil, err
	}
	return &cp, nil
}

// CompactNamespace rewrites ns's Parquet data file in place: read-all plus
// write-new plus atomic swap, with no new rows (§3 "compaction = write-new +
// rename/delete-old"). Parquet files are treated as immutable once written;
// this is the operation that actually performs the replace, independent of
// checkpointing a WAL tail. A no-op (returns an empty WriteResult) when ns
// has no data file yet.
func (s *Shard) CompactNamespace(ns string) (parquetio.WriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := dataPath(ns)
	existing, etag, err := s.store.Get(noopCtx{}, path)
	if err != nil {
		return parquetio.WriteResult{}, nil
	}

	buf := &parquetio.MemBuffer{Data: existing}
	footer, err := parquetio.ReadMetadata(buf)
	if err != nil {
		return parquetio.WriteResult{}, err
	}
	rows, err := parquetio.ReadAll(buf, parquetio.ReadOptions{})
	if err != nil {
		return parquetio.WriteResult{}, err
	}

	cfg := parquetio.DefaultConfig()
	data, res, err := parquetio.WriteBuffer(rows, footer.Spec, cfg)
	if err != nil {
		return parquetio.WriteResult{}, err
	}
	if _, err := s.store.Put(noopCtx{}, path, data, etag); err != nil {
		return parquetio.WriteResult{}, err
	}
	return res, nil
}

func splitEntityTarget(target string) (ns, id string) {
	for i := 0; i < len(target); i++ {
		if target[i] == ':' {
			return target[:i], target[i+1:]
		}
	}
	return target, ""
}

func compactExisting(buf parquetio.AsyncBuffer, newRows []parquetio.Row, spec parquetio.TableSpec, cfg parquetio.Config) ([]byte, error) {
	existing, err := parquetio.ReadAll(buf, parquetio.ReadOptions{})
	if err != nil {
		return nil, err
	}
	// New rows for the same $id supersede the existing row.
	byID := map[string]parquetio.Row{}
	for _, r := range existing {
		if id, ok := r["$id"].(string); ok {
			byID[id] = r
		}
	}
	for _, r := range newRows {
		if id, ok := r["$id"].(string); ok {
			byID[id] = r
		}
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	merged := make([]parquetio.Row, 0, len(byID))
	for _, id := range ids {
		merged = append(merged, byID[id])
	}
	out, _, err := parquetio.WriteBuffer(merged, spec, cfg)
	return out, err
}

// noopCtx satisfies blob.Context trivially for the engine's internal,
// non-cancellable calls.
type noopCtx struct{}

func (noopCtx) Done() <-chan struct{} { return nil }
func (noopCtx) Err() error            { return nil }

var _ blob.Context = noopCtx{}
