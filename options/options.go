// Package options carries the functional-options configuration for the
// writer, reader, and compaction packages, grounded on the teacher's
// WriteOptFn / With* pattern (lib/go-sstable/write_options.go).
package options

import (
	"github.com/datnguyenzzz/column-sstable/compression"
)

const (
	// TargetMaxBlockBytes is the target uncompressed size of one
	// physical block before the writer rounds off to the next artificial
	// or natural boundary, per spec.md §4.2 (1<<14, matching the
	// original SSTableWriter's TARGET_MAX_BLOCK_BYTES).
	TargetMaxBlockBytes = 1 << 14

	// IndexInterval is the default for WriteOpt.IndexInterval, which the
	// writer does not read: it writes one sparse index entry per block.
	IndexInterval = 128

	// DefaultBloomBitsPerKey sizes the Bloom filter written per SST.
	DefaultBloomBitsPerKey = 11

	// TargetMaxSliceBytes bounds how large compaction lets one output
	// slice grow before splitting it into a continuation slice sharing
	// the same metadata, per spec.md §4.4/§9's memory-bound requirement
	// (1<<20, matching the original SSTableWriter.TARGET_MAX_SLICE_BYTES).
	TargetMaxSliceBytes = 1 << 20
)

// WriteOpt configures an SST Writer.
type WriteOpt struct {
	// TargetMaxBlockBytes bounds how large a physical block is allowed
	// to grow: once it is exceeded, the block is closed at the next slice
	// boundary. It does not by itself force a slice boundary.
	TargetMaxBlockBytes int

	// TargetMaxSliceBytes bounds how large the in-progress slice is
	// allowed to grow before an artificial boundary is forced, per
	// spec.md §4.2 boundary rule #3 — a distinct knob from
	// TargetMaxBlockBytes, which instead bounds the containing block.
	TargetMaxSliceBytes int

	// IndexInterval is a reserved sparse-index stride. The writer does
	// not read it: every block gets exactly one index entry.
	IndexInterval int

	// BloomBitsPerKey sizes the per-SST Bloom filter.
	BloomBitsPerKey int

	// DataCompression selects the codec used for the data file's blocks.
	// IndexCompression and FilterCompression are not read by the writer:
	// the index and filter files are written uncompressed.
	DataCompression   compression.Tag
	IndexCompression  compression.Tag
	FilterCompression compression.Tag
}

// DefaultWriteOpt mirrors the teacher's DefaultWriteOpt: sane defaults a
// caller only overrides piecemeal via WriteOptFn.
var DefaultWriteOpt = WriteOpt{
	TargetMaxBlockBytes: TargetMaxBlockBytes,
	TargetMaxSliceBytes: TargetMaxSliceBytes,
	IndexInterval:       IndexInterval,
	BloomBitsPerKey:     DefaultBloomBitsPerKey,
	DataCompression:     compression.Snappy,
	IndexCompression:    compression.Snappy,
	FilterCompression:   compression.Identity,
}

// WriteOptFn mutates a WriteOpt being assembled by NewWriteOpt.
type WriteOptFn func(*WriteOpt)

// NewWriteOpt returns DefaultWriteOpt with every fn applied in order.
func NewWriteOpt(fns ...WriteOptFn) WriteOpt {
	opt := DefaultWriteOpt
	for _, fn := range fns {
		fn(&opt)
	}
	return opt
}

func WithTargetMaxBlockBytes(n int) WriteOptFn {
	return func(o *WriteOpt) { o.TargetMaxBlockBytes = n }
}

// WithSliceMaxBytes overrides WriteOpt.TargetMaxSliceBytes (named apart
// from compaction's WithTargetMaxSliceBytes, which configures
// CompactionOpt instead).
func WithSliceMaxBytes(n int) WriteOptFn {
	return func(o *WriteOpt) { o.TargetMaxSliceBytes = n }
}

func WithIndexInterval(n int) WriteOptFn {
	return func(o *WriteOpt) { o.IndexInterval = n }
}

func WithBloomBitsPerKey(n int) WriteOptFn {
	return func(o *WriteOpt) { o.BloomBitsPerKey = n }
}

func WithDataCompression(tag compression.Tag) WriteOptFn {
	return func(o *WriteOpt) { o.DataCompression = tag }
}

// ReadOpt configures an SST Reader/Scanner.
type ReadOpt struct {
	// CacheBytes sizes the block cache a Reader's Scanners share. Zero
	// disables caching.
	CacheBytes int64
}

var DefaultReadOpt = ReadOpt{CacheBytes: 8 << 20}

type ReadOptFn func(*ReadOpt)

func NewReadOpt(fns ...ReadOptFn) ReadOpt {
	opt := DefaultReadOpt
	for _, fn := range fns {
		fn(&opt)
	}
	return opt
}

func WithCacheBytes(n int64) ReadOptFn {
	return func(o *ReadOpt) { o.CacheBytes = n }
}

// CompactionOpt configures a CompactionIterator.
type CompactionOpt struct {
	// Major marks whether the compaction covers every SST that could
	// contain a resurrecting write for any row in its input set — only
	// then can expired tombstones be dropped, per spec.md §4.4/§4.1.
	Major bool

	// GCBefore is the wall-clock threshold (seconds) a tombstone's
	// LocalDeletionTime must fall strictly before to be GC-eligible.
	GCBefore int32

	// TargetMaxSliceBytes bounds one emitted output slice, per spec.md
	// §9's mid-compaction slice-size cap.
	TargetMaxSliceBytes int
}

// DefaultCompactionOpt leaves Major/GCBefore at their zero values (minor
// compaction, no GC) since those must always be supplied deliberately by
// the compaction scheduler; only the size bound has a sane default.
var DefaultCompactionOpt = CompactionOpt{TargetMaxSliceBytes: TargetMaxSliceBytes}

type CompactionOptFn func(*CompactionOpt)

func NewCompactionOpt(fns ...CompactionOptFn) CompactionOpt {
	opt := DefaultCompactionOpt
	for _, fn := range fns {
		fn(&opt)
	}
	return opt
}

func WithMajor(major bool) CompactionOptFn {
	return func(o *CompactionOpt) { o.Major = major }
}

func WithGCBefore(gcBefore int32) CompactionOptFn {
	return func(o *CompactionOpt) { o.GCBefore = gcBefore }
}

func WithTargetMaxSliceBytes(n int) CompactionOptFn {
	return func(o *CompactionOpt) { o.TargetMaxSliceBytes = n }
}
