package blob

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/parquedb/parquedb/internal/xerrors"
)

// Disk is a filesystem-backed Store rooted at a base directory, for local
// development and the CLI's single-process deployment mode.
type Disk struct {
	mu      sync.Mutex
	baseDir string
}

// NewDisk returns a Disk rooted at baseDir, creating it if absent.
func NewDisk(baseDir string) (*Disk, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, xerrors.Wrap(xerrors.Fatal, "blob.NewDisk", err)
	}
	return &Disk{baseDir: baseDir}, nil
}

func (d *Disk) path(key string) string {
	return filepath.Join(d.baseDir, filepath.FromSlash(key))
}

func (d *Disk) Get(_ Context, key string) ([]byte, string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	data, err := os.ReadFile(d.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", xerrors.Newf(xerrors.NotFound, "blob.Disk.Get", "%q not found", key)
		}
		return nil, "", xerrors.Wrap(xerrors.Fatal, "blob.Disk.Get", err)
	}
	return data, etagOf(data), nil
}

func (d *Disk) GetRange(_ Context, key string, start, end int64) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, err := os.Open(d.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, xerrors.Newf(xerrors.NotFound, "blob.Disk.GetRange", "%q not found", key)
		}
		return nil, xerrors.Wrap(xerrors.Fatal, "blob.Disk.GetRange", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, xerrors.Wrap(xerrors.Fatal, "blob.Disk.GetRange", err)
	}
	size := fi.Size()
	if end < 0 || end > size {
		end = size
	}
	if start < 0 || start > end {
		return nil, xerrors.Newf(xerrors.InvalidInput, "blob.Disk.GetRange", "invalid range [%d,%d) over %d bytes", start, end, size)
	}
	buf := make([]byte, end-start)
	if _, err := f.ReadAt(buf, start); err != nil {
		return nil, xerrors.Wrap(xerrors.Fatal, "blob.Disk.GetRange", err)
	}
	return buf, nil
}

func (d *Disk) Size(_ Context, key string) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fi, err := os.Stat(d.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, xerrors.Newf(xerrors.NotFound, "blob.Disk.Size", "%q not found", key)
		}
		return 0, xerrors.Wrap(xerrors.Fatal, "blob.Disk.Size", err)
	}
	return fi.Size(), nil
}

func (d *Disk) Put(_ Context, key string, data []byte, ifMatch string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p := d.path(key)
	if ifMatch != "" {
		existing, err := os.ReadFile(p)
		if err != nil || etagOf(existing) != ifMatch {
			return "", xerrors.Newf(xerrors.VersionMismatch, "blob.Disk.Put", "etag mismatch for %q", key)
		}
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", xerrors.Wrap(xerrors.Fatal, "blob.Disk.Put", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", xerrors.Wrap(xerrors.Fatal, "blob.Disk.Put", err)
	}
	return etagOf(data), nil
}

func (d *Disk) Delete(_ Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := os.Remove(d.path(key)); err != nil && !os.IsNotExist(err) {
		return xerrors.Wrap(xerrors.Fatal, "blob.Disk.Delete", err)
	}
	return nil
}

func (d *Disk) Exists(_ Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := os.Stat(d.path(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, xerrors.Wrap(xerrors.Fatal, "blob.Disk.Exists", err)
}

var _ Store = (*Disk)(nil)
