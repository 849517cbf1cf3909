// Package storage abstracts the three files an SST is made of (data,
// index, filter) behind a small interface so the writer/reader packages
// never depend on whether bytes ultimately land on a real filesystem or
// in memory, grounded on the teacher's go-fs.Storage.
package storage

import (
	"errors"
	"io"
)

// FileKind is the role one physical file in an SST triplet plays.
type FileKind byte

const (
	KindData FileKind = iota
	KindIndex
	KindFilter
)

func (k FileKind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindIndex:
		return "index"
	case KindFilter:
		return "filter"
	default:
		return "unknown"
	}
}

var (
	ErrNotFound = errors.New("storage: file not found")
	ErrExists   = errors.New("storage: file exists")
	ErrClosed   = errors.New("storage: file is closed")
)

// Syncer flushes buffered writes to durable storage.
type Syncer interface {
	Sync() error
}

// Writable is an SST component file open for writing. Finish marks it
// durable and permanent; Abort discards it — exactly one of the two
// must be called before the writer moves on.
type Writable interface {
	io.WriteCloser
	Syncer

	Finish() error
	Abort() error
}

// Readable is an SST component file open for reading.
type Readable interface {
	io.ReaderAt
	io.ReadSeeker

	Size() int64
	Close() error
}

// FS creates and opens the data/index/filter files that make up one
// SST, identified by a generation number (the SST's table number) and a
// FileKind. Implementations decide their own on-disk naming scheme;
// callers only see Writable/Readable handles.
type FS interface {
	// CreateTemp opens a new file for generation/kind under a temporary
	// name, so a reader scanning the directory never observes a
	// partially-written SST component.
	CreateTemp(generation int64, kind FileKind) (Writable, error)

	// Commit atomically publishes every temp file created for
	// generation under its final name. Implementations must rename the
	// data file last, so a crash between renames always leaves behind
	// either no SST or a complete one (spec.md §6's atomicity contract).
	Commit(generation int64) error

	// Open opens the already-committed file for generation/kind for
	// reading.
	Open(generation int64, kind FileKind) (Readable, error)

	// Remove deletes every file belonging to generation, committed or
	// not. Used to clean up after a failed or superseded compaction.
	Remove(generation int64) error

	Close() error
}
