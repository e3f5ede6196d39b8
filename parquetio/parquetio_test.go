package parquetio

import (
	"testing"

	"github.com/parquedb/parquedb/schema"
)

func testSpec() TableSpec {
	return TableSpec{Columns: []ColumnSpec{
		{Name: "$id", Logical: schema.PTString},
		{Name: "title", Logical: schema.PTString},
		{Name: "views", Logical: schema.PTInt64},
	}}
}

func TestWriteReadRoundTrip(t *testing.T) {
	rows := []Row{
		{"$id": "posts/id1", "title": "first", "views": int64(10)},
		{"$id": "posts/id2", "title": "second", "views": int64(20)},
		{"$id": "posts/id3", "title": "third", "views": int64(5)},
	}
	data, res, err := WriteBuffer(rows, testSpec(), DefaultConfig())
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if res.RowCount != 3 {
		t.Fatalf("row count = %d, want 3", res.RowCount)
	}

	buf := &MemBuffer{Data: data}
	got, err := ReadAll(buf, ReadOptions{})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d rows, want 3", len(got))
	}
	if got[1]["title"] != "second" {
		t.Fatalf("row 1 title = %v, want second", got[1]["title"])
	}
}

func TestWriteEmptyIsValid(t *testing.T) {
	data, res, err := WriteBuffer(nil, testSpec(), DefaultConfig())
	if err != nil {
		t.Fatalf("write empty: %v", err)
	}
	if res.RowCount != 0 || res.RowGroupCount != 0 {
		t.Fatalf("unexpected result for empty write: %+v", res)
	}
	buf := &MemBuffer{Data: data}
	got, err := ReadAll(buf, ReadOptions{})
	if err != nil {
		t.Fatalf("read empty: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d rows, want 0", len(got))
	}
}

func TestRowGroupPruning(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RowGroupSize = 2
	cfg.Statistics = true
	rows := []Row{
		{"$id": "a", "title": "a", "views": int64(1)},
		{"$id": "b", "title": "b", "views": int64(2)},
		{"$id": "c", "title": "c", "views": int64(100)},
		{"$id": "d", "title": "d", "views": int64(200)},
	}
	data, _, err := WriteBuffer(rows, testSpec(), cfg)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := &MemBuffer{Data: data}
	footer, err := ReadMetadata(buf)
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if len(footer.RowGroups) != 2 {
		t.Fatalf("row groups = %d, want 2", len(footer.RowGroups))
	}

	filter := &Filter{Column: "views", Op: OpGte, Value: int64(100)}
	indices := GetRelevantRowGroups(footer, filter)
	if len(indices) != 1 || indices[0] != 1 {
		t.Fatalf("pruned indices = %v, want [1]", indices)
	}

	rowsOut, err := ReadRowGroups(buf, footer, indices, ReadOptions{Filter: filter})
	if err != nil {
		t.Fatalf("read row groups: %v", err)
	}
	if len(rowsOut) != 2 {
		t.Fatalf("got %d rows, want 2", len(rowsOut))
	}
}

func TestRowGroupPruningKeepsAllGroupsWithoutStatistics(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RowGroupSize = 2
	cfg.Statistics = false
	rows := []Row{
		{"$id": "a", "title": "a", "views": int64(1)},
		{"$id": "b", "title": "b", "views": int64(2)},
		{"$id": "c", "title": "c", "views": int64(100)},
		{"$id": "d", "title": "d", "views": int64(200)},
	}
	data, _, err := WriteBuffer(rows, testSpec(), cfg)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := &MemBuffer{Data: data}
	footer, err := ReadMetadata(buf)
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if len(footer.RowGroups) != 2 {
		t.Fatalf("row groups = %d, want 2", len(footer.RowGroups))
	}
	for _, rg := range footer.RowGroups {
		col, ok := rg.ColumnByName("views")
		if !ok || col.Statistics.StatsWritten {
			t.Fatalf("expected no statistics written for %q, got %+v", "views", col.Statistics)
		}
	}

	// A filter that would prune one of the two groups if statistics were
	// present must keep both groups when statistics were never computed.
	filter := &Filter{Column: "views", Op: OpGte, Value: int64(100)}
	indices := GetRelevantRowGroups(footer, filter)
	if len(indices) != 2 {
		t.Fatalf("pruned indices = %v, want both groups kept ([0 1])", indices)
	}
}

func TestProjection(t *testing.T) {
	rows := []Row{{"$id": "a", "title": "t", "views": int64(1)}}
	data, _, err := WriteBuffer(rows, testSpec(), DefaultConfig())
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := &MemBuffer{Data: data}
	got, err := ReadAll(buf, ReadOptions{Columns: []string{"$id"}})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if _, ok := got[0]["title"]; ok {
		t.Fatalf("projection leaked unrequested column: %+v", got[0])
	}
	if got[0]["$id"] != "a" {
		t.Fatalf("projected column missing: %+v", got[0])
	}
}

func TestBloomFilterRoundTrip(t *testing.T) {
	bf := NewFilter(100, 0.01)
	bf.Add([]byte("posts/id1"))
	if !bf.MayContain([]byte("posts/id1")) {
		t.Fatal("expected MayContain true for inserted key")
	}
	decoded, err := DecodeFilter(bf.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.MayContain([]byte("posts/id1")) {
		t.Fatal("decoded filter lost membership")
	}
}
