package parquetio

import "github.com/parquedb/parquedb/schema"

// GetRelevantRowGroups implements row-group pruning (§4.D): a row group is
// excluded only when the predicate is provably unsatisfiable against its
// column statistics. Missing statistics or an unrecognized column means
// the row group is kept, since pruning must never produce a false
// negative.
func GetRelevantRowGroups(footer *Footer, filter *Filter) []int {
	indices := make([]int, 0, len(footer.RowGroups))
	logical, hasLogical := logicalTypeForColumn(footer, filter)
	for i, rg := range footer.RowGroups {
		if filter == nil || !hasLogical || rowGroupMaySatisfy(rg, filter, logical) {
			indices = append(indices, i)
		}
	}
	return indices
}

func logicalTypeForColumn(footer *Footer, filter *Filter) (schema.ParquetLogicalType, bool) {
	if filter == nil {
		return "", false
	}
	for _, c := range footer.Spec.Columns {
		if c.Name == filter.Column {
			return c.Logical, true
		}
	}
	return "", false
}

// rowGroupMaySatisfy reports whether a row group's statistics leave open
// the possibility that f matches at least one row.
func rowGroupMaySatisfy(rg RowGroupMeta, f *Filter, logical schema.ParquetLogicalType) bool {
	col, ok := rg.ColumnByName(f.Column)
	if !ok {
		return true
	}
	st := col.Statistics

	if !st.StatsWritten {
		// Config.Statistics was off when this row group was written — no
		// bounds or null counts were ever computed, so there is nothing to
		// prune against.
		return true
	}

	switch f.Op {
	case OpIsNull:
		return st.NullCount > 0
	case OpIsNotNull:
		return st.NullCount < rg.NumRows
	}
	if !st.HasBounds {
		// Stats were computed and the group is legitimately all-null:
		// no non-null value can satisfy a non-null-testing predicate.
		return false
	}

	switch f.Op {
	case OpEq:
		return compareTyped(logical, st.Min, f.Value) <= 0 && compareTyped(logical, st.Max, f.Value) >= 0
	case OpNe:
		// Ruling out "every row equals Value" needs more than min/max;
		// always keep.
		return true
	case OpGt:
		return compareTyped(logical, st.Max, f.Value) > 0
	case OpGte:
		return compareTyped(logical, st.Max, f.Value) >= 0
	case OpLt:
		return compareTyped(logical, st.Min, f.Value) < 0
	case OpLte:
		return compareTyped(logical, st.Min, f.Value) <= 0
	case OpIn:
		values, ok := f.Value.([]any)
		if !ok {
			return true
		}
		for _, v := range values {
			if compareTyped(logical, st.Min, v) <= 0 && compareTyped(logical, st.Max, v) >= 0 {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// bloomRefine applies a column's Bloom filter bytes, when present, to
// further exclude an eq/in predicate beyond what statistics alone allow.
// Callers that already fetched the column's bytes (the reader, after
// deciding a row group is statistics-relevant) can use this to skip
// decoding a row group whose bloom filter proves the value absent.
func bloomRefine(bloomBytes []byte, op FilterOp, value any) (mayMatch bool, err error) {
	bf, err := DecodeFilter(bloomBytes)
	if err != nil {
		return true, err
	}
	switch op {
	case OpEq:
		return bf.MayContain(bloomKey(value)), nil
	case OpIn:
		values, ok := value.([]any)
		if !ok {
			return true, nil
		}
		for _, v := range values {
			if bf.MayContain(bloomKey(v)) {
				return true, nil
			}
		}
		return false, nil
	default:
		return true, nil
	}
}
