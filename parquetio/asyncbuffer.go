package parquetio

import (
	"fmt"
	"os"
)

// AsyncBuffer abstracts byte-range access over a file's backing storage, so
// the reader can pull just the footer and the row groups it needs without
// assuming a local filesystem (§4.D).
type AsyncBuffer interface {
	// ByteLength returns the total size of the underlying object.
	ByteLength() (int64, error)
	// Slice returns the bytes in [start, end). end == -1 means "to EOF".
	Slice(start, end int64) ([]byte, error)
}

// FileBuffer implements AsyncBuffer over an *os.File.
type FileBuffer struct {
	f *os.File
}

// NewFileBuffer opens path for reading and wraps it as an AsyncBuffer.
func NewFileBuffer(path string) (*FileBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("parquetio: opening %q: %w", path, err)
	}
	return &FileBuffer{f: f}, nil
}

// Close releases the underlying file handle.
func (b *FileBuffer) Close() error {
	return b.f.Close()
}

func (b *FileBuffer) ByteLength() (int64, error) {
	fi, err := b.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (b *FileBuffer) Slice(start, end int64) ([]byte, error) {
	size, err := b.ByteLength()
	if err != nil {
		return nil, err
	}
	if end < 0 || end > size {
		end = size
	}
	if start < 0 || start > end {
		return nil, fmt.Errorf("parquetio: invalid slice [%d,%d) over %d bytes", start, end, size)
	}
	buf := make([]byte, end-start)
	if _, err := b.f.ReadAt(buf, start); err != nil {
		return nil, fmt.Errorf("parquetio: reading slice [%d,%d): %w", start, end, err)
	}
	return buf, nil
}

// BlobStore is the minimal read surface BlobBuffer needs from a blob
// storage collaborator (ranged GETs over an opaque key).
type BlobStore interface {
	Size(key string) (int64, error)
	ReadRange(key string, start, end int64) ([]byte, error)
}

// BlobBuffer implements AsyncBuffer over a BlobStore key, letting the
// reader fetch only the footer and needed row groups from remote storage
// instead of downloading the whole object.
type BlobBuffer struct {
	store BlobStore
	key   string
}

// NewBlobBuffer wraps a BlobStore key as an AsyncBuffer.
func NewBlobBuffer(store BlobStore, key string) *BlobBuffer {
	return &BlobBuffer{store: store, key: key}
}

func (b *BlobBuffer) ByteLength() (int64, error) {
	return b.store.Size(b.key)
}

func (b *BlobBuffer) Slice(start, end int64) ([]byte, error) {
	if end < 0 {
		size, err := b.store.Size(b.key)
		if err != nil {
			return nil, err
		}
		end = size
	}
	return b.store.ReadRange(b.key, start, end)
}

// MemBuffer implements AsyncBuffer directly over an in-memory byte slice,
// for tests and small checkpoints that fit comfortably in memory.
type MemBuffer struct {
	Data []byte
}

func (b *MemBuffer) ByteLength() (int64, error) {
	return int64(len(b.Data)), nil
}

func (b *MemBuffer) Slice(start, end int64) ([]byte, error) {
	size := int64(len(b.Data))
	if end < 0 || end > size {
		end = size
	}
	if start < 0 || start > end {
		return nil, fmt.Errorf("parquetio: invalid slice [%d,%d) over %d bytes", start, end, size)
	}
	return b.Data[start:end], nil
}
