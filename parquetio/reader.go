package parquetio

import (
	"fmt"

	"github.com/parquedb/parquedb/parquetio/codec"
	"github.com/parquedb/parquedb/schema"
)

func stringify(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(v)
}

// ReadMetadata fetches and parses just the footer, the minimum needed to
// plan a read (§4.D: "metadata-only fetch before row data").
func ReadMetadata(buf AsyncBuffer) (*Footer, error) {
	size, err := buf.ByteLength()
	if err != nil {
		return nil, fmt.Errorf("parquetio: %w", err)
	}
	if size < int64(len(fileMagic))+footerTrailerSize {
		if size == 0 {
			return &Footer{}, nil
		}
		return nil, fmt.Errorf("parquetio: file too small (%d bytes)", size)
	}

	trailer, err := buf.Slice(size-footerTrailerSize, size)
	if err != nil {
		return nil, err
	}
	footerLen, err := decodeFooterTrailer(trailer)
	if err != nil {
		return nil, err
	}

	footerStart := size - footerTrailerSize - int64(footerLen)
	if footerStart < int64(len(fileMagic)) {
		return nil, fmt.Errorf("parquetio: footer length %d overruns file", footerLen)
	}
	footerBytes, err := buf.Slice(footerStart, footerStart+int64(footerLen))
	if err != nil {
		return nil, err
	}
	return unmarshalFooter(footerBytes)
}

// ReadAll decodes every row matching opts, in row-group order. This reads
// the whole file's worth of row groups pruning permits; Stream should be
// preferred for large scans.
func ReadAll(buf AsyncBuffer, opts ReadOptions) ([]Row, error) {
	footer, err := ReadMetadata(buf)
	if err != nil {
		return nil, err
	}
	indices := relevantIndices(footer, opts)
	rows, err := ReadRowGroups(buf, footer, indices, opts)
	if err != nil {
		return nil, err
	}
	return applyOffsetLimit(rows, opts), nil
}

// Stream returns a lazy iterator over opts-matching rows: next() returns
// (row, true, nil) per row, (zero, false, nil) at end, or an error.
// Row groups excluded by pruning are never fetched or decoded.
func Stream(buf AsyncBuffer, opts ReadOptions) (next func() (Row, bool, error), err error) {
	footer, err := ReadMetadata(buf)
	if err != nil {
		return nil, err
	}
	indices := relevantIndices(footer, opts)

	var (
		rgPos    int
		rows     []Row
		rowPos   int
		emitted  int
		skipped  int
	)

	advance := func() error {
		for rowPos >= len(rows) {
			if rgPos >= len(indices) {
				return nil
			}
			rg, err := ReadRowGroups(buf, footer, []int{indices[rgPos]}, opts)
			if err != nil {
				return err
			}
			rgPos++
			rows = rg
			rowPos = 0
		}
		return nil
	}

	next = func() (Row, bool, error) {
		for {
			if err := advance(); err != nil {
				return nil, false, err
			}
			if rowPos >= len(rows) {
				return nil, false, nil
			}
			row := rows[rowPos]
			rowPos++
			if skipped < opts.Offset {
				skipped++
				continue
			}
			if opts.Limit > 0 && emitted >= opts.Limit {
				return nil, false, nil
			}
			emitted++
			return row, true, nil
		}
	}
	return next, nil
}

func relevantIndices(footer *Footer, opts ReadOptions) []int {
	return GetRelevantRowGroups(footer, opts.Filter)
}

func applyOffsetLimit(rows []Row, opts ReadOptions) []Row {
	if opts.Offset > 0 {
		if opts.Offset >= len(rows) {
			return nil
		}
		rows = rows[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(rows) {
		rows = rows[:opts.Limit]
	}
	return rows
}

// ReadRowGroups decodes the named row groups' columns into Row values,
// applying the column projection and residual filter in opts.
func ReadRowGroups(buf AsyncBuffer, footer *Footer, indices []int, opts ReadOptions) ([]Row, error) {
	wanted := projectionSet(opts.Columns, footer.Spec)

	var out []Row
	for _, idx := range indices {
		if idx < 0 || idx >= len(footer.RowGroups) {
			return nil, fmt.Errorf("parquetio: row group index %d out of range", idx)
		}
		rg := footer.RowGroups[idx]
		// A bloom filter that rules out an eq/in value on a string or int64
		// column skips the row group without decoding it.
		if f := opts.Filter; f != nil && (f.Op == OpEq || f.Op == OpIn) {
			if logical, ok := logicalTypeForColumn(footer, f); ok && (logical == schema.PTString || logical == schema.PTInt64) {
				if col, ok := rg.ColumnByName(f.Column); ok && col.BloomSize > 0 {
					bloomBytes, err := buf.Slice(col.BloomOffset, col.BloomOffset+col.BloomSize)
					if err != nil {
						return nil, fmt.Errorf("parquetio: reading bloom filter for %q: %w", col.Name, err)
					}
					if mayMatch, _ := bloomRefine(bloomBytes, f.Op, f.Value); !mayMatch {
						continue
					}
				}
			}
		}
		rows, err := decodeRowGroup(buf, rg, wanted)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			if matchesFilter(r, opts.Filter) {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func projectionSet(columns []string, spec TableSpec) map[string]bool {
	if len(columns) == 0 {
		return nil // nil means "all"
	}
	set := make(map[string]bool, len(columns))
	for _, c := range columns {
		set[c] = true
	}
	return set
}

func decodeRowGroup(buf AsyncBuffer, rg RowGroupMeta, wanted map[string]bool) ([]Row, error) {
	rows := make([]Row, rg.NumRows)
	for i := range rows {
		rows[i] = Row{}
	}

	for _, col := range rg.Columns {
		if wanted != nil && !wanted[col.Name] {
			continue
		}
		c, err := codec.Get(col.Codec)
		if err != nil {
			return nil, fmt.Errorf("parquetio: %w", err)
		}
		compressed, err := buf.Slice(col.Offset, col.Offset+col.CompressedSize)
		if err != nil {
			return nil, fmt.Errorf("parquetio: reading column %q: %w", col.Name, err)
		}
		raw, err := decompressPage(c, compressed, int(col.UncompressedSize))
		if err != nil {
			return nil, fmt.Errorf("parquetio: decompressing column %q: %w", col.Name, err)
		}
		values, err := decodeColumnPage(raw, int(rg.NumRows))
		if err != nil {
			return nil, fmt.Errorf("parquetio: decoding column %q: %w", col.Name, err)
		}
		for i, v := range values {
			rows[i][col.Name] = v
		}
	}
	return rows, nil
}

func matchesFilter(row Row, f *Filter) bool {
	if f == nil {
		return true
	}
	v, present := row[f.Column]
	switch f.Op {
	case OpIsNull:
		return !present || v == nil
	case OpIsNotNull:
		return present && v != nil
	}
	if !present || v == nil {
		return false
	}
	switch f.Op {
	case OpEq:
		return valuesEqual(v, f.Value)
	case OpNe:
		return !valuesEqual(v, f.Value)
	case OpIn:
		values, ok := f.Value.([]any)
		if !ok {
			return false
		}
		for _, want := range values {
			if valuesEqual(v, want) {
				return true
			}
		}
		return false
	case OpGt, OpGte, OpLt, OpLte:
		cmp := genericCompare(v, f.Value)
		switch f.Op {
		case OpGt:
			return cmp > 0
		case OpGte:
			return cmp >= 0
		case OpLt:
			return cmp < 0
		default:
			return cmp <= 0
		}
	default:
		return true
	}
}

func valuesEqual(a, b any) bool {
	return fmtSprint(a) == fmtSprint(b)
}

func genericCompare(a, b any) int {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	as, bs := fmtSprint(a), fmtSprint(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

func fmtSprint(v any) string {
	return stringify(v)
}
