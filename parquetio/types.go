// Package parquetio implements ParqueDB's Parquet writer/reader layer
// (§4.C, §4.D): row-group-partitioned writing with per-column codecs,
// dictionary encoding, statistics and bloom filters, and a reader that
// prunes row groups by statistics/bloom before decoding.
//
// The on-disk layout mimics Parquet's physical shape — a leading magic,
// column chunk bytes, and a trailing footer plus footer-length plus magic
// — but the footer itself is our own JSON-based metadata format rather
// than Apache Thrift's compact protocol. spec.md explicitly frees
// implementations from "backward compatibility with Parquet writer
// defaults" (Non-goals, §1): this reader and writer only need to agree
// with each other, not with parquet-mr.
package parquetio

import (
	"github.com/parquedb/parquedb/parquetio/codec"
	"github.com/parquedb/parquedb/schema"
)

// Row is one record to write: column name to raw Go value ( nil for
// absent/null).
type Row map[string]any

// ColumnSpec names one output column and its Parquet-mapped logical type.
type ColumnSpec struct {
	Name       string
	Logical    schema.ParquetLogicalType
	Repeated   bool
	Precision  int
	Scale      int
}

// TableSpec is the ordered column layout a Writer/Reader operates over.
type TableSpec struct {
	Columns []ColumnSpec
}

// ColumnNames returns the spec's column names in declaration order.
func (t TableSpec) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// AuditColumns returns the system columns present on every typed entity
// table (§4.C: "audit columns").
func AuditColumns() []ColumnSpec {
	return []ColumnSpec{
		{Name: "$id", Logical: schema.PTString},
		{Name: "$type", Logical: schema.PTString},
		{Name: "name", Logical: schema.PTString},
		{Name: "createdAt", Logical: schema.PTTimestampMillis},
		{Name: "createdBy", Logical: schema.PTString},
		{Name: "updatedAt", Logical: schema.PTTimestampMillis},
		{Name: "updatedBy", Logical: schema.PTString},
		{Name: "version", Logical: schema.PTInt64},
		{Name: "deletedAt", Logical: schema.PTTimestampMillis},
		{Name: "deletedBy", Logical: schema.PTString},
		{Name: "$data", Logical: schema.PTByteArray},
	}
}

// BuildTableSpec combines a type's shredded, resolved fields with the
// standard audit columns into the full Parquet column layout for a
// namespace's data file.
func BuildTableSpec(fields map[string]schema.FieldType, order []string) TableSpec {
	spec := TableSpec{}
	for _, c := range AuditColumns() {
		spec.Columns = append(spec.Columns, c)
	}
	for _, name := range order {
		ft, ok := fields[name]
		if !ok {
			continue
		}
		m := schema.MapFieldType(ft)
		spec.Columns = append(spec.Columns, ColumnSpec{
			Name:      name,
			Logical:   m.LogicalType,
			Repeated:  m.Repeated,
			Precision: m.Precision,
			Scale:     m.Scale,
		})
	}
	return spec
}

// FilterOp is a predicate operator supported by push-down (§4.D).
type FilterOp string

const (
	OpEq         FilterOp = "eq"
	OpNe         FilterOp = "ne"
	OpGt         FilterOp = "gt"
	OpGte        FilterOp = "gte"
	OpLt         FilterOp = "lt"
	OpLte        FilterOp = "lte"
	OpIn         FilterOp = "in"
	OpIsNull     FilterOp = "isNull"
	OpIsNotNull  FilterOp = "isNotNull"
)

// Filter is one push-downable predicate against a column.
type Filter struct {
	Column string
	Op     FilterOp
	Value  any // for OpIn, a []any
}

// ReadOptions configures ReadAll, ReadRowGroups and Stream.
type ReadOptions struct {
	Columns []string // projection; nil means all columns
	Filter  *Filter
	Limit   int // 0 means unlimited
	Offset  int
}

// Config configures a Writer.
type Config struct {
	Codec            codec.Name
	RowGroupSize     int // rows per group; default 10000
	Dictionary       bool
	Statistics       bool
	Bloom            bool
	KeyValueMetadata map[string]string
}

// DefaultConfig returns the §4.C default configuration.
func DefaultConfig() Config {
	return Config{
		Codec:        codec.Snappy,
		RowGroupSize: 10000,
		Dictionary:   true,
		Statistics:   true,
		Bloom:        false,
	}
}

// WriteResult summarizes a completed write (§4.C).
type WriteResult struct {
	RowCount      int64
	RowGroupCount int
	Columns       []string
	ETag          string
	Size          int64
}
