package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// LocalFS is a storage.FS backed by real files in a directory, grounded
// on the rename-based atomicity the original compaction writer used:
// every component is written to a "-tmp-" name and fsynced, then
// Commit renames each into place with the data file renamed last, so a
// crash mid-commit can never leave a reader with a half-published SST.
type LocalFS struct {
	dir string
}

// NewLocalFS returns a LocalFS rooted at dir, which must already exist.
func NewLocalFS(dir string) *LocalFS {
	return &LocalFS{dir: dir}
}

func (fs *LocalFS) tempPath(generation int64, kind FileKind) string {
	return filepath.Join(fs.dir, fmt.Sprintf("-tmp-%d-%s.sst", generation, kind))
}

func (fs *LocalFS) finalPath(generation int64, kind FileKind) string {
	return filepath.Join(fs.dir, fileName(generation, kind))
}

type localWritable struct {
	f *os.File
}

func (w *localWritable) Write(p []byte) (int, error) { return w.f.Write(p) }
func (w *localWritable) Sync() error                 { return w.f.Sync() }
func (w *localWritable) Close() error                { return w.f.Close() }

func (w *localWritable) Finish() error {
	if err := w.f.Sync(); err != nil {
		_ = w.f.Close()
		return err
	}
	return w.f.Close()
}

func (w *localWritable) Abort() error {
	name := w.f.Name()
	_ = w.f.Close()
	return os.Remove(name)
}

func (fs *LocalFS) CreateTemp(generation int64, kind FileKind) (Writable, error) {
	f, err := os.OpenFile(fs.tempPath(generation, kind), os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrExists
		}
		return nil, err
	}
	return &localWritable{f: f}, nil
}

// Commit renames the temp files for generation into their final names,
// index and filter first, data last — the data file's presence under
// its final name is the durable signal that the whole SST is complete.
func (fs *LocalFS) Commit(generation int64) error {
	order := []FileKind{KindIndex, KindFilter, KindData}
	for _, kind := range order {
		tmp := fs.tempPath(generation, kind)
		if _, err := os.Stat(tmp); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		if err := os.Rename(tmp, fs.finalPath(generation, kind)); err != nil {
			return err
		}
	}
	return nil
}

type localReadable struct {
	f    *os.File
	size int64
}

func (r *localReadable) ReadAt(p []byte, off int64) (int, error) { return r.f.ReadAt(p, off) }
func (r *localReadable) Read(p []byte) (int, error)              { return r.f.Read(p) }
func (r *localReadable) Seek(offset int64, whence int) (int64, error) {
	return r.f.Seek(offset, whence)
}
func (r *localReadable) Size() int64  { return r.size }
func (r *localReadable) Close() error { return r.f.Close() }

func (fs *LocalFS) Open(generation int64, kind FileKind) (Readable, error) {
	f, err := os.Open(fs.finalPath(generation, kind))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &localReadable{f: f, size: info.Size()}, nil
}

func (fs *LocalFS) Remove(generation int64) error {
	removed := false
	for _, kind := range []FileKind{KindData, KindIndex, KindFilter} {
		for _, path := range []string{fs.finalPath(generation, kind), fs.tempPath(generation, kind)} {
			if err := os.Remove(path); err == nil {
				removed = true
			} else if !os.IsNotExist(err) {
				return err
			}
		}
	}
	if !removed {
		return ErrNotFound
	}
	return nil
}

func (fs *LocalFS) Close() error { return nil }

var _ FS = (*LocalFS)(nil)
