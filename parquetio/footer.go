package parquetio

import (
	"encoding/binary"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/parquedb/parquedb/parquetio/codec"
)

// fileMagic brackets the file the way Parquet's PAR1 magic does, though
// the footer itself is our own format (see package doc).
const fileMagic = "PDB1"

// ColumnChunkMeta describes one column's on-disk bytes within a row group.
type ColumnChunkMeta struct {
	Name             string           `json:"name"`
	Codec            codec.Name       `json:"codec"`
	Offset           int64            `json:"offset"`
	CompressedSize   int64            `json:"compressedSize"`
	UncompressedSize int64            `json:"uncompressedSize"`
	Dictionary       bool             `json:"dictionary"`
	Statistics       ColumnStatistics `json:"statistics"`
	BloomOffset      int64            `json:"bloomOffset,omitempty"`
	BloomSize        int64            `json:"bloomSize,omitempty"`
}

// RowGroupMeta describes one row group's layout and per-column metadata.
type RowGroupMeta struct {
	NumRows int64             `json:"numRows"`
	Columns []ColumnChunkMeta `json:"columns"`
}

// ColumnByName looks up a row group's column metadata.
func (rg RowGroupMeta) ColumnByName(name string) (ColumnChunkMeta, bool) {
	for _, c := range rg.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnChunkMeta{}, false
}

// Footer is the complete file metadata: schema, row groups, and free-form
// key/value metadata (§4.C: "appends to file, updating the running
// footer").
type Footer struct {
	Spec             TableSpec         `json:"spec"`
	RowGroups        []RowGroupMeta    `json:"rowGroups"`
	KeyValueMetadata map[string]string `json:"keyValueMetadata,omitempty"`
}

// TotalRows sums NumRows across all row groups.
func (f *Footer) TotalRows() int64 {
	var n int64
	for _, rg := range f.RowGroups {
		n += rg.NumRows
	}
	return n
}

func marshalFooter(f *Footer) ([]byte, error) {
	return json.Marshal(f)
}

func unmarshalFooter(b []byte) (*Footer, error) {
	var f Footer
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parquetio: corrupt footer: %w", err)
	}
	return &f, nil
}

// footerTrailerSize is the fixed-size trailer written after the footer
// bytes: a 4-byte little-endian length followed by the 4-byte magic.
const footerTrailerSize = 8

func encodeFooterTrailer(footerLen int) []byte {
	b := make([]byte, footerTrailerSize)
	binary.LittleEndian.PutUint32(b[:4], uint32(footerLen))
	copy(b[4:], fileMagic)
	return b
}

func decodeFooterTrailer(b []byte) (footerLen int, err error) {
	if len(b) != footerTrailerSize {
		return 0, fmt.Errorf("parquetio: bad trailer size %d", len(b))
	}
	if string(b[4:]) != fileMagic {
		return 0, fmt.Errorf("parquetio: bad trailing magic %q", b[4:])
	}
	return int(binary.LittleEndian.Uint32(b[:4])), nil
}
