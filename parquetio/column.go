package parquetio

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/parquedb/parquedb/parquetio/codec"
	"github.com/parquedb/parquedb/variant"
)

const (
	pageFlagPlain      byte = 0
	pageFlagDictionary byte = 1
)

// encodeColumnPage turns one column's row values into its page bytes
// (§4.C steps 1-2: "columnarize values", "encode per column with
// dictionary when beneficial"), independent of compression. Null values
// are encoded as a single marker byte; non-null values go through the
// Variant codec so every logical type shares one physical encoding.
func encodeColumnPage(values []any, useDictionary bool) ([]byte, bool, error) {
	encoded := make([][]byte, len(values))
	isNull := make([]bool, len(values))
	for i, v := range values {
		if v == nil {
			isNull[i] = true
			continue
		}
		b, err := variant.Encode(v)
		if err != nil {
			return nil, false, fmt.Errorf("parquetio: encoding column value: %w", err)
		}
		encoded[i] = b
	}

	if useDictionary {
		dict := map[string]int{}
		var order [][]byte
		for i, b := range encoded {
			if isNull[i] {
				continue
			}
			key := string(b)
			if _, ok := dict[key]; !ok {
				dict[key] = len(order)
				order = append(order, b)
			}
		}
		// Only worth it when there's real repetition.
		nonNull := 0
		for _, n := range isNull {
			if !n {
				nonNull++
			}
		}
		if nonNull > 0 && len(order) < (nonNull+1)/2 {
			return buildDictionaryPage(isNull, encoded, dict, order), true, nil
		}
	}

	return buildPlainPage(isNull, encoded), false, nil
}

func buildPlainPage(isNull []bool, encoded [][]byte) []byte {
	buf := &bytes.Buffer{}
	buf.WriteByte(pageFlagPlain)
	for i, b := range encoded {
		if isNull[i] {
			buf.WriteByte(1)
			continue
		}
		buf.WriteByte(0)
		writeUvarint(buf, uint64(len(b)))
		buf.Write(b)
	}
	return buf.Bytes()
}

func buildDictionaryPage(isNull []bool, encoded [][]byte, dict map[string]int, order [][]byte) []byte {
	buf := &bytes.Buffer{}
	buf.WriteByte(pageFlagDictionary)
	writeUvarint(buf, uint64(len(order)))
	for _, b := range order {
		writeUvarint(buf, uint64(len(b)))
		buf.Write(b)
	}
	for i, b := range encoded {
		if isNull[i] {
			buf.WriteByte(1)
			continue
		}
		buf.WriteByte(0)
		idx := dict[string(b)]
		writeUvarint(buf, uint64(idx))
	}
	return buf.Bytes()
}

func writeUvarint(buf *bytes.Buffer, x uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], x)
	buf.Write(tmp[:n])
}

// decodeColumnPage reverses encodeColumnPage for rowCount values.
func decodeColumnPage(page []byte, rowCount int) ([]any, error) {
	if len(page) == 0 {
		if rowCount == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("parquetio: empty page for %d rows", rowCount)
	}
	r := &pageReader{buf: page, pos: 1}
	switch page[0] {
	case pageFlagPlain:
		return decodePlainPage(r, rowCount)
	case pageFlagDictionary:
		return decodeDictionaryPage(r, rowCount)
	default:
		return nil, fmt.Errorf("parquetio: unknown page flag %d", page[0])
	}
}

type pageReader struct {
	buf []byte
	pos int
}

func (r *pageReader) readByte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, fmt.Errorf("parquetio: truncated page")
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *pageReader) readUvarint() (uint64, error) {
	x, n := binary.Uvarint(r.buf[r.pos:])
	if n <= 0 {
		return 0, fmt.Errorf("parquetio: bad varint in page")
	}
	r.pos += n
	return x, nil
}

func (r *pageReader) readN(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, fmt.Errorf("parquetio: truncated page body")
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func decodePlainPage(r *pageReader, rowCount int) ([]any, error) {
	out := make([]any, rowCount)
	for i := 0; i < rowCount; i++ {
		flag, err := r.readByte()
		if err != nil {
			return nil, err
		}
		if flag == 1 {
			out[i] = nil
			continue
		}
		n, err := r.readUvarint()
		if err != nil {
			return nil, err
		}
		b, err := r.readN(int(n))
		if err != nil {
			return nil, err
		}
		v, err := variant.Decode(b)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func decodeDictionaryPage(r *pageReader, rowCount int) ([]any, error) {
	dictSize, err := r.readUvarint()
	if err != nil {
		return nil, err
	}
	dict := make([]any, dictSize)
	for i := range dict {
		n, err := r.readUvarint()
		if err != nil {
			return nil, err
		}
		b, err := r.readN(int(n))
		if err != nil {
			return nil, err
		}
		v, err := variant.Decode(b)
		if err != nil {
			return nil, err
		}
		dict[i] = v
	}
	out := make([]any, rowCount)
	for i := 0; i < rowCount; i++ {
		flag, err := r.readByte()
		if err != nil {
			return nil, err
		}
		if flag == 1 {
			out[i] = nil
			continue
		}
		idx, err := r.readUvarint()
		if err != nil {
			return nil, err
		}
		if int(idx) >= len(dict) {
			return nil, fmt.Errorf("parquetio: dictionary index out of range")
		}
		out[i] = dict[idx]
	}
	return out, nil
}

// compressPage applies the configured codec to already-columnarized bytes.
func compressPage(c codec.Codec, raw []byte) ([]byte, error) {
	return c.Compress(raw)
}

func decompressPage(c codec.Codec, compressed []byte, decompressedSize int) ([]byte, error) {
	return c.Decompress(compressed, decompressedSize)
}
