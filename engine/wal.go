package engine

import (
	"database/sql"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/parquedb/parquedb/internal/xerrors"
)

// WAL is the durable sidecar holding event batches, pending row-group
// markers, and checkpoint records (§4.E). It is backed by an embedded
// pure-Go SQLite database so the engine has no cgo dependency and no
// external service to run in tests.
type WAL struct {
	db *sql.DB
}

const walSchema = `
CREATE TABLE IF NOT EXISTS events_wal (
	ns TEXT NOT NULL,
	first_seq INTEGER NOT NULL,
	last_seq INTEGER NOT NULL,
	bytes BLOB NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS events_wal_ns_seq ON events_wal(ns, first_seq);

CREATE TABLE IF NOT EXISTS rels_wal (
	ns TEXT NOT NULL,
	first_seq INTEGER NOT NULL,
	last_seq INTEGER NOT NULL,
	bytes BLOB NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS rels_wal_ns_seq ON rels_wal(ns, first_seq);

CREATE TABLE IF NOT EXISTS pending_row_groups (
	ns TEXT NOT NULL,
	last_seq INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS checkpoints (
	id TEXT PRIMARY KEY,
	ts INTEGER NOT NULL,
	ns TEXT NOT NULL,
	event_count INTEGER NOT NULL,
	first_event_id TEXT NOT NULL,
	last_event_id TEXT NOT NULL,
	parquet_path TEXT NOT NULL,
	last_entity_seq INTEGER NOT NULL DEFAULT 0,
	last_event_seq INTEGER NOT NULL DEFAULT 0
);
`

// OpenWAL opens (creating if absent) a SQLite-backed WAL at path. Use
// ":memory:" for ephemeral shards in tests.
func OpenWAL(path string) (*WAL, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("engine: opening wal: %w", err)
	}
	db.SetMaxOpenConns(1) // single-writer shard; avoid concurrent sqlite writers
	if _, err := db.Exec(walSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("engine: initializing wal schema: %w", err)
	}
	return &WAL{db: db}, nil
}

// Close releases the WAL's database handle.
func (w *WAL) Close() error { return w.db.Close() }

func walTable(relation bool) string {
	if relation {
		return "rels_wal"
	}
	return "events_wal"
}

// AppendBatch durably writes one flushed batch as a single WAL row.
func (w *WAL) AppendBatch(b Batch, relation bool) error {
	payload, err := json.Marshal(b.Events)
	if err != nil {
		return fmt.Errorf("engine: serializing batch: %w", err)
	}
	q := fmt.Sprintf(`INSERT INTO %s (ns, first_seq, last_seq, bytes, created_at) VALUES (?, ?, ?, ?, ?)`, walTable(relation))
	_, err = w.db.Exec(q, b.Namespace, b.FirstSeq, b.LastSeq, payload, time.Now().UnixMilli())
	if err != nil {
		return xerrors.Wrap(xerrors.Transient, "wal.AppendBatch", err)
	}
	return nil
}

// ReadEvents returns every event for ns from the WAL, ordered by
// ascending first_seq, oldest batch first (§4.E entity reconstruction
// step 1).
func (w *WAL) ReadEvents(ns string, relation bool) ([]Event, error) {
	q := fmt.Sprintf(`SELECT bytes FROM %s WHERE ns = ? ORDER BY first_seq ASC`, walTable(relation))
	rows, err := w.db.Query(q, ns)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.Transient, "wal.ReadEvents", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var batch []Event
		if err := json.Unmarshal(payload, &batch); err != nil {
			return nil, xerrors.Wrap(xerrors.Corruption, "wal.ReadEvents", err)
		}
		out = append(out, batch...)
	}
	return out, rows.Err()
}

// MaxSeq reports the highest last_seq recorded for ns, or 0 if none.
func (w *WAL) MaxSeq(ns string, relation bool) (uint64, error) {
	q := fmt.Sprintf(`SELECT COALESCE(MAX(last_seq), 0) FROM %s WHERE ns = ?`, walTable(relation))
	var max uint64
	if err := w.db.QueryRow(q, ns).Scan(&max); err != nil {
		return 0, err
	}
	return max, nil
}

// DeleteUpTo removes WAL rows for ns whose last_seq <= upTo, as part of
// checkpointing (§4.E).
func (w *WAL) DeleteUpTo(ns string, upTo uint64, relation bool) error {
	q := fmt.Sprintf(`DELETE FROM %s WHERE ns = ? AND last_seq <= ?`, walTable(relation))
	_, err := w.db.Exec(q, ns, upTo)
	return err
}

// MarkPendingRowGroup records that a checkpoint produced new row groups up
// to lastSeq, pending a subsequent compaction pass.
func (w *WAL) MarkPendingRowGroup(ns string, lastSeq uint64) error {
	_, err := w.db.Exec(`INSERT INTO pending_row_groups (ns, last_seq, created_at) VALUES (?, ?, ?)`,
		ns, lastSeq, time.Now().UnixMilli())
	return err
}

// ClearPendingRowGroups deletes pending_row_groups rows for ns at or below
// lastSeq, once their checkpoint is durable.
func (w *WAL) ClearPendingRowGroups(ns string, lastSeq uint64) error {
	_, err := w.db.Exec(`DELETE FROM pending_row_groups WHERE ns = ? AND last_seq <= ?`, ns, lastSeq)
	return err
}

// RecordCheckpoint inserts a completed checkpoint row. LastEntitySeq/
// LastEventSeq snapshot the shard's entity-id and event-seq counters at
// checkpoint time, since the entity events that would otherwise let a
// later recovery derive them get trimmed from events_wal right after
// (§4.E "Checkpointing" + recovery).
func (w *WAL) RecordCheckpoint(ns string, cp Checkpoint) error {
	_, err := w.db.Exec(
		`INSERT INTO checkpoints (id, ts, ns, event_count, first_event_id, last_event_id, parquet_path, last_entity_seq, last_event_seq) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cp.ID, cp.Ts.UnixMilli(), ns, cp.EventCount, cp.FirstEventID, cp.LastEventID, cp.ParquetPath, cp.LastEntitySeq, cp.LastEventSeq,
	)
	return err
}

// LatestCheckpoint returns the most recent checkpoint for ns, if any.
func (w *WAL) LatestCheckpoint(ns string) (*Checkpoint, error) {
	row := w.db.QueryRow(
		`SELECT id, ts, event_count, first_event_id, last_event_id, parquet_path, last_entity_seq, last_event_seq FROM checkpoints WHERE ns = ? ORDER BY ts DESC LIMIT 1`,
		ns,
	)
	var cp Checkpoint
	var tsMillis int64
	if err := row.Scan(&cp.ID, &tsMillis, &cp.EventCount, &cp.FirstEventID, &cp.LastEventID, &cp.ParquetPath, &cp.LastEntitySeq, &cp.LastEventSeq); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	cp.Ts = time.UnixMilli(tsMillis).UTC()
	return &cp, nil
}

// Namespaces returns every namespace with durable history in either the
// entity or relationship WAL, for recovery to hydrate (§4.E).
func (w *WAL) Namespaces() ([]string, error) {
	rows, err := w.db.Query(`SELECT ns FROM events_wal UNION SELECT ns FROM rels_wal UNION SELECT ns FROM checkpoints`)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.Transient, "wal.Namespaces", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var ns string
		if err := rows.Scan(&ns); err != nil {
			return nil, err
		}
		out = append(out, ns)
	}
	return out, rows.Err()
}
