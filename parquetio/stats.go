package parquetio

import (
	"time"

	"github.com/parquedb/parquedb/schema"
	"github.com/parquedb/parquedb/variant"
)

// ColumnStatistics holds the per-row-group min/max/null-count used for
// predicate push-down (§4.C, §4.D). Min/Max are nil when the column has no
// non-null values in the group. StatsWritten distinguishes "the writer ran
// with Config.Statistics=false, so Min/Max/HasBounds carry no information"
// from "stats were computed and this group legitimately has no bounds
// (every value null)" — pruning must treat only the latter as a bound, and
// must include the row group unconditionally when StatsWritten is false.
type ColumnStatistics struct {
	Min          any
	Max          any
	NullCount    int64
	HasBounds    bool
	StatsWritten bool
}

// computeStatistics scans a column's raw values (nulls as nil) and returns
// its bounds, comparing by the column's logical type.
func computeStatistics(logical schema.ParquetLogicalType, values []any) ColumnStatistics {
	st := ColumnStatistics{StatsWritten: true}
	var min, max any
	for _, v := range values {
		if v == nil {
			st.NullCount++
			continue
		}
		if !st.HasBounds {
			min, max = v, v
			st.HasBounds = true
			continue
		}
		if compareTyped(logical, v, min) < 0 {
			min = v
		}
		if compareTyped(logical, v, max) > 0 {
			max = v
		}
	}
	st.Min, st.Max = min, max
	return st
}

// compareTyped orders two column values according to their logical type.
// It returns <0, 0, >0 like bytes.Compare / strings.Compare.
func compareTyped(logical schema.ParquetLogicalType, a, b any) int {
	switch logical {
	case schema.PTString, schema.PTByteArray:
		as, bs := toString(a), toString(b)
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		default:
			return 0
		}
	case schema.PTBoolean:
		ab, bb := toBool(a), toBool(b)
		if ab == bb {
			return 0
		}
		if !ab {
			return -1
		}
		return 1
	case schema.PTDate, schema.PTTimestampMillis:
		at, bt := toMillis(a), toMillis(b)
		switch {
		case at < bt:
			return -1
		case at > bt:
			return 1
		default:
			return 0
		}
	default: // INT64, DOUBLE, DECIMAL
		af, bf := toFloat(a), toFloat(b)
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

func toFloat(v any) float64 {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case float64:
		return x
	default:
		return 0
	}
}

func toBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return ""
	}
}

func toMillis(v any) int64 {
	switch x := v.(type) {
	case time.Time:
		return x.UTC().UnixMilli()
	case variant.Date:
		return x.UTC().UnixMilli()
	case string:
		// Footer statistics come back from JSON as RFC 3339 strings.
		if t, err := time.Parse(time.RFC3339Nano, x); err == nil {
			return t.UTC().UnixMilli()
		}
		return 0
	case int64:
		return x
	case int:
		return int64(x)
	default:
		return 0
	}
}
