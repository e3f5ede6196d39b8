package parquetio

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/parquedb/parquedb/parquetio/codec"
	"github.com/parquedb/parquedb/schema"
)

// Write serializes rows under spec to dst, partitioned into row groups of
// at most cfg.RowGroupSize rows (§4.C). A zero-row input still produces a
// syntactically valid file: an empty body and a footer with no row
// groups, so readers never need to special-case "file doesn't exist yet".
func Write(dst io.Writer, rows []Row, spec TableSpec, cfg Config) (WriteResult, error) {
	if cfg.RowGroupSize <= 0 {
		cfg.RowGroupSize = DefaultConfig().RowGroupSize
	}
	if cfg.Codec == "" {
		cfg.Codec = DefaultConfig().Codec
	}
	c, err := codec.Get(cfg.Codec)
	if err != nil {
		return WriteResult{}, fmt.Errorf("parquetio: %w", err)
	}

	h := sha256.New()
	mw := io.MultiWriter(dst, h)

	var offset int64
	write := func(b []byte) error {
		n, err := mw.Write(b)
		offset += int64(n)
		return err
	}
	if err := write([]byte(fileMagic)); err != nil {
		return WriteResult{}, err
	}

	footer := &Footer{Spec: spec, KeyValueMetadata: cfg.KeyValueMetadata}

	for start := 0; start < len(rows); start += cfg.RowGroupSize {
		end := start + cfg.RowGroupSize
		if end > len(rows) {
			end = len(rows)
		}
		rg, err := writeRowGroup(write, &offset, rows[start:end], spec, cfg, c)
		if err != nil {
			return WriteResult{}, err
		}
		footer.RowGroups = append(footer.RowGroups, rg)
	}

	footerBytes, err := marshalFooter(footer)
	if err != nil {
		return WriteResult{}, fmt.Errorf("parquetio: encoding footer: %w", err)
	}
	if err := write(footerBytes); err != nil {
		return WriteResult{}, err
	}
	if err := write(encodeFooterTrailer(len(footerBytes))); err != nil {
		return WriteResult{}, err
	}

	return WriteResult{
		RowCount:      int64(len(rows)),
		RowGroupCount: len(footer.RowGroups),
		Columns:       spec.ColumnNames(),
		ETag:          hex.EncodeToString(h.Sum(nil)),
		Size:          offset,
	}, nil
}

func writeRowGroup(write func([]byte) error, offset *int64, rows []Row, spec TableSpec, cfg Config, c codec.Codec) (RowGroupMeta, error) {
	rg := RowGroupMeta{NumRows: int64(len(rows))}

	for _, col := range spec.Columns {
		values := make([]any, len(rows))
		for i, row := range rows {
			values[i] = row[col.Name]
		}

		raw, dictionaryUsed, err := encodeColumnPage(values, cfg.Dictionary)
		if err != nil {
			return RowGroupMeta{}, err
		}
		compressed, err := compressPage(c, raw)
		if err != nil {
			return RowGroupMeta{}, fmt.Errorf("parquetio: compressing column %q: %w", col.Name, err)
		}

		meta := ColumnChunkMeta{
			Name:             col.Name,
			Codec:            cfg.Codec,
			Offset:           *offset,
			CompressedSize:   int64(len(compressed)),
			UncompressedSize: int64(len(raw)),
			Dictionary:       dictionaryUsed,
		}
		if cfg.Statistics {
			meta.Statistics = computeStatistics(col.Logical, values)
		}
		if cfg.Bloom && isBloomEligible(col.Logical) {
			bloomBytes := buildColumnBloom(values)
			meta.BloomOffset = *offset + int64(len(compressed))
			meta.BloomSize = int64(len(bloomBytes))
			compressed = append(compressed, bloomBytes...)
		}

		if err := write(compressed); err != nil {
			return RowGroupMeta{}, err
		}
		rg.Columns = append(rg.Columns, meta)
	}

	return rg, nil
}

func isBloomEligible(l schema.ParquetLogicalType) bool {
	switch l {
	case schema.PTByteArray, schema.PTString, schema.PTInt64:
		return true
	default:
		return false
	}
}

func buildColumnBloom(values []any) []byte {
	nonNull := 0
	for _, v := range values {
		if v != nil {
			nonNull++
		}
	}
	bf := NewFilter(nonNull, 0.01)
	for _, v := range values {
		if v == nil {
			continue
		}
		bf.Add(bloomKey(v))
	}
	return bf.Bytes()
}

func bloomKey(v any) []byte {
	switch x := v.(type) {
	case []byte:
		return x
	case string:
		return []byte(x)
	default:
		return []byte(fmt.Sprint(x))
	}
}

// compactWrite re-writes rows already on disk together with newRows into
// dst, implementing §4.C's "append = read all existing rows, merge with
// new rows, rewrite the complete file" checkpoint semantics.
func compactWrite(dst io.Writer, buf AsyncBuffer, newRows []Row, spec TableSpec, cfg Config) (WriteResult, error) {
	existing, err := ReadAll(buf, ReadOptions{})
	if err != nil {
		return WriteResult{}, fmt.Errorf("parquetio: reading existing rows for compaction: %w", err)
	}
	all := make([]Row, 0, len(existing)+len(newRows))
	all = append(all, existing...)
	all = append(all, newRows...)
	return Write(dst, all, spec, cfg)
}

// WriteBuffer is a convenience wrapper returning the written bytes directly.
func WriteBuffer(rows []Row, spec TableSpec, cfg Config) ([]byte, WriteResult, error) {
	buf := &bytes.Buffer{}
	res, err := Write(buf, rows, spec, cfg)
	return buf.Bytes(), res, err
}
