package storage

import (
	"bytes"
	"fmt"
	"sync"
)

type fileID struct {
	generation int64
	kind       FileKind
}

type memFile struct {
	bytes.Buffer
	committed bool
	open      bool
}

type memReader struct {
	*bytes.Reader
}

func (r memReader) Size() int64 { return int64(r.Len()) }
func (r memReader) Close() error { return nil }

type memWritable struct {
	fs   *InMemFS
	id   fileID
	file *memFile
}

func (w *memWritable) Write(p []byte) (int, error) { return w.file.Write(p) }
func (w *memWritable) Sync() error                 { return nil }

func (w *memWritable) Close() error {
	w.fs.mu.Lock()
	defer w.fs.mu.Unlock()
	w.file.open = false
	return nil
}

func (w *memWritable) Finish() error {
	w.fs.mu.Lock()
	defer w.fs.mu.Unlock()
	if !w.file.open {
		return ErrClosed
	}
	w.file.open = false
	return nil
}

func (w *memWritable) Abort() error {
	w.fs.mu.Lock()
	defer w.fs.mu.Unlock()
	delete(w.fs.temp, w.id)
	w.file.open = false
	return nil
}

// InMemFS is an in-memory storage.FS, used by tests and any caller that
// wants a scratch SST without touching a real filesystem, adapted from
// go-fs's inmemStorage.
type InMemFS struct {
	mu   sync.Mutex
	temp map[fileID]*memFile
	live map[fileID]*memFile
}

// NewInMemFS returns an empty InMemFS.
func NewInMemFS() *InMemFS {
	return &InMemFS{
		temp: make(map[fileID]*memFile),
		live: make(map[fileID]*memFile),
	}
}

func (fs *InMemFS) CreateTemp(generation int64, kind FileKind) (Writable, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	id := fileID{generation, kind}
	if _, ok := fs.temp[id]; ok {
		return nil, ErrExists
	}
	f := &memFile{open: true}
	fs.temp[id] = f
	return &memWritable{fs: fs, id: id, file: f}, nil
}

// Commit publishes every temp file for generation, data file last to
// match the real-filesystem atomicity contract even though an in-memory
// map commit is otherwise instantaneous — this keeps tests exercising
// the same ordering bugs a real rename sequence could expose.
func (fs *InMemFS) Commit(generation int64) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	order := []FileKind{KindIndex, KindFilter, KindData}
	for _, kind := range order {
		id := fileID{generation, kind}
		f, ok := fs.temp[id]
		if !ok {
			continue
		}
		f.committed = true
		fs.live[id] = f
		delete(fs.temp, id)
	}
	return nil
}

func (fs *InMemFS) Open(generation int64, kind FileKind) (Readable, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, ok := fs.live[fileID{generation, kind}]
	if !ok {
		return nil, ErrNotFound
	}
	return memReader{Reader: bytes.NewReader(f.Bytes())}, nil
}

func (fs *InMemFS) Remove(generation int64) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	removed := false
	for _, kind := range []FileKind{KindData, KindIndex, KindFilter} {
		id := fileID{generation, kind}
		if _, ok := fs.live[id]; ok {
			delete(fs.live, id)
			removed = true
		}
		if _, ok := fs.temp[id]; ok {
			delete(fs.temp, id)
			removed = true
		}
	}
	if !removed {
		return ErrNotFound
	}
	return nil
}

func (fs *InMemFS) Close() error { return nil }

var _ FS = (*InMemFS)(nil)

func fileName(generation int64, kind FileKind) string {
	return fmt.Sprintf("%d-%s.sst", generation, kind)
}
