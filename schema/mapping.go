package schema

import "fmt"

// ParquetLogicalType is the wire-format type a field maps to, per the
// bit-exact mapping table in §4.B.
type ParquetLogicalType string

const (
	PTString          ParquetLogicalType = "STRING"
	PTInt64           ParquetLogicalType = "INT64"
	PTDouble          ParquetLogicalType = "DOUBLE"
	PTBoolean         ParquetLogicalType = "BOOLEAN"
	PTDate            ParquetLogicalType = "DATE"
	PTTimestampMillis ParquetLogicalType = "TIMESTAMP_MILLIS"
	PTDecimal         ParquetLogicalType = "DECIMAL"
	PTByteArray       ParquetLogicalType = "BYTE_ARRAY"
)

// ColumnMapping is the resolved Parquet representation of a schema field:
// its logical type, repetition (REPEATED for arrays), and, for DECIMAL,
// its precision/scale.
type ColumnMapping struct {
	LogicalType ParquetLogicalType
	Repeated    bool
	Precision   int
	Scale       int
}

// MapFieldType implements the bit-exact mapping table in §4.B. Decimal
// defaults to (18,2) when params are absent or malformed.
func MapFieldType(ft FieldType) ColumnMapping {
	var logical ParquetLogicalType
	precision, scale := 18, 2

	switch ft.Base {
	case "string", "text", "markdown", "email", "url", "uuid", "varchar", "char", "enum":
		logical = PTString
	case "int":
		logical = PTInt64
	case "number", "float", "double":
		logical = PTDouble
	case "boolean":
		logical = PTBoolean
	case "date":
		logical = PTDate
	case "datetime", "timestamp":
		logical = PTTimestampMillis
	case "decimal":
		logical = PTDecimal
		if p, s, ok := parseDecimalParams(ft.Params); ok {
			precision, scale = p, s
		}
	case "vector", "binary", "json":
		logical = PTByteArray
	default:
		// unknown base types are rejected by validation; as a last resort
		// readers/writers treat them as Variant-encoded bytes.
		logical = PTByteArray
	}

	return ColumnMapping{
		LogicalType: logical,
		Repeated:    ft.Array,
		Precision:   precision,
		Scale:       scale,
	}
}

func parseDecimalParams(params []string) (precision, scale int, ok bool) {
	if len(params) != 2 {
		return 0, 0, false
	}
	var p, s int
	if _, err := fmt.Sscanf(params[0], "%d", &p); err != nil {
		return 0, 0, false
	}
	if _, err := fmt.Sscanf(params[1], "%d", &s); err != nil {
		return 0, 0, false
	}
	return p, s, true
}
