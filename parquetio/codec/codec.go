// Package codec implements the per-column compression codecs named in
// §4.C: none, snappy, gzip, zstd, lz4.
package codec

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Name identifies a compression codec by the names used in §4.C.
type Name string

const (
	None   Name = "none"
	Snappy Name = "snappy"
	Gzip   Name = "gzip"
	Zstd   Name = "zstd"
	LZ4    Name = "lz4"
)

// Codec compresses and decompresses column page bytes.
type Codec interface {
	Name() Name
	Compress(src []byte) ([]byte, error)
	Decompress(compressed []byte, decompressedSize int) ([]byte, error)
}

// Get resolves a Codec by name.
func Get(n Name) (Codec, error) {
	switch n {
	case None, "":
		return noneCodec{}, nil
	case Snappy:
		return snappyCodec{}, nil
	case Gzip:
		return gzipCodec{}, nil
	case Zstd:
		return zstdCodec{}, nil
	case LZ4:
		return lz4Codec{}, nil
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", n)
	}
}

type noneCodec struct{}

func (noneCodec) Name() Name                 { return None }
func (noneCodec) Compress(src []byte) ([]byte, error) { return src, nil }
func (noneCodec) Decompress(b []byte, _ int) ([]byte, error) { return b, nil }

// snappyCodec wraps github.com/golang/snappy, the reference block-format
// snappy implementation also depended on by the corpus's erigon build.
type snappyCodec struct{}

func (snappyCodec) Name() Name { return Snappy }

func (snappyCodec) Compress(src []byte) ([]byte, error) {
	return snappy.Encode(nil, src), nil
}

func (snappyCodec) Decompress(b []byte, _ int) ([]byte, error) {
	return snappy.Decode(nil, b)
}

// gzipCodec uses the standard library's gzip — the canonical
// implementation of the format; no pack dependency reimplements it any
// differently (see DESIGN.md).
type gzipCodec struct{}

func (gzipCodec) Name() Name { return Gzip }

func (gzipCodec) Compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gzipCodec) Decompress(b []byte, _ int) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

type zstdCodec struct{}

func (zstdCodec) Name() Name { return Zstd }

func (zstdCodec) Compress(src []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(src, nil), nil
}

func (zstdCodec) Decompress(b []byte, _ int) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(b, nil)
}

type lz4Codec struct{}

func (lz4Codec) Name() Name { return LZ4 }

func (lz4Codec) Compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (lz4Codec) Decompress(b []byte, _ int) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(b))
	return io.ReadAll(r)
}
