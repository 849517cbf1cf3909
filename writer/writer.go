// Package writer implements the SST Writer: the component that turns a
// stream of (Metadata, ColumnKey, Column) triples — or pre-merged
// Slices, as compaction produces — into the data/index/filter file
// triplet spec.md §3/§4.2/§6 describe.
//
// Grounded directly on the original SSTableWriter: natural vs
// artificial slice/block boundaries, the BlockContext buffering scheme,
// and the rename-last-for-data atomicity contract on Close.
package writer

import (
	"encoding/binary"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/datnguyenzzz/column-sstable/block"
	"github.com/datnguyenzzz/column-sstable/bufferpool"
	"github.com/datnguyenzzz/column-sstable/column"
	"github.com/datnguyenzzz/column-sstable/compression"
	"github.com/datnguyenzzz/column-sstable/filter"
	"github.com/datnguyenzzz/column-sstable/key"
	"github.com/datnguyenzzz/column-sstable/options"
	"github.com/datnguyenzzz/column-sstable/slice"
	"github.com/datnguyenzzz/column-sstable/storage"
)

// ErrInputOrderViolation is returned when a caller appends a key that
// sorts before the last key written — the writer requires its input
// sorted per spec.md §7.
var ErrInputOrderViolation = fmt.Errorf("writer: input key out of order")

// ErrClosed is returned by any method called after Close.
var ErrClosed = fmt.Errorf("writer: already closed")

// IndexEntry locates one physical block within the data file, keyed by
// the ColumnKey the block begins with.
type IndexEntry struct {
	BlockKey key.ColumnKey
	Offset   uint64
	Length   uint64
}

// EncodedSize returns the number of bytes Encode will write for e.
func (e IndexEntry) EncodedSize() int {
	return e.BlockKey.EncodedSize() + 8 + 8
}

// Encode appends e to dst and returns the extended slice.
func (e IndexEntry) Encode(dst []byte) []byte {
	dst = e.BlockKey.Encode(dst)
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], e.Offset)
	dst = append(dst, tmp[:]...)
	binary.BigEndian.PutUint64(tmp[:], e.Length)
	dst = append(dst, tmp[:]...)
	return dst
}

// DecodeIndexEntry parses an IndexEntry from the front of src, returning
// it and the number of bytes consumed.
func DecodeIndexEntry(src []byte) (IndexEntry, int, error) {
	bk, n, err := key.Decode(src)
	if err != nil {
		return IndexEntry{}, 0, err
	}
	off := n
	if len(src) < off+16 {
		return IndexEntry{}, 0, fmt.Errorf("writer: truncated index entry")
	}
	offset := binary.BigEndian.Uint64(src[off:])
	off += 8
	length := binary.BigEndian.Uint64(src[off:])
	off += 8
	return IndexEntry{BlockKey: bk, Offset: offset, Length: length}, off, nil
}

// Footer summarizes a completed SST, returned by Close so the caller
// can hand it to reader.Open without re-deriving it from the files.
type Footer struct {
	Generation     int64
	ColumnsWritten int64
	SlicesWritten  int64
	BlocksWritten  int64
	ColumnDepth    int
}

// Writer appends columns (or pre-merged slices) to one SST, in
// ascending key order, and finalizes the data/index/filter triplet on
// Close.
type Writer struct {
	fs         storage.FS
	generation int64
	cmp        key.Comparer
	columnDepth int
	opt        options.WriteOpt

	dataW  storage.Writable
	indexW storage.Writable

	bloom *filter.Writer

	blockCtx      blockContext
	lastWrittenKey *key.ColumnKey

	columnsWritten int64
	slicesWritten  int64
	blocksWritten  int64
	dataPos        uint64

	closed bool
}

// NewWriter opens the temp data/index files for generation on fs and
// returns a Writer ready to accept columns in ColumnKey order at the
// given column-family depth (1 for standard, 2 for super).
func NewWriter(fs storage.FS, generation int64, cmp key.Comparer, columnDepth int, opts ...options.WriteOptFn) (*Writer, error) {
	dataW, err := fs.CreateTemp(generation, storage.KindData)
	if err != nil {
		return nil, fmt.Errorf("writer: create data file: %w", err)
	}
	indexW, err := fs.CreateTemp(generation, storage.KindIndex)
	if err != nil {
		_ = dataW.Abort()
		return nil, fmt.Errorf("writer: create index file: %w", err)
	}

	opt := options.NewWriteOpt(opts...)
	return &Writer{
		fs:          fs,
		generation:  generation,
		cmp:         cmp,
		columnDepth: columnDepth,
		opt:         opt,
		dataW:       dataW,
		indexW:      indexW,
		bloom:       filter.NewWriter(opt.BloomBitsPerKey),
	}, nil
}

// Append buffers one column under columnKey, sharing parent metadata
// meta, flushing the prior slice/block first if columnKey crosses a
// natural or artificial boundary.
func (w *Writer) Append(meta column.Metadata, columnKey key.ColumnKey, col column.Column) error {
	if w.closed {
		return ErrClosed
	}
	if err := w.beforeAppend(meta, columnKey); err != nil {
		return err
	}
	w.blockCtx.bufferColumn(col)

	w.bloom.Add(bloomProbeKey(columnKey))
	w.lastWrittenKey = &columnKey
	w.columnsWritten++
	return nil
}

// AppendSlice buffers an already-assembled Slice verbatim — the path
// compaction output takes, since it has already resolved Metadata and
// merged columns across inputs. s must not exceed the writer's target
// slice size; compaction is responsible for splitting oversized spans
// (spec.md §9's per-slice size cap during compaction).
func (w *Writer) AppendSlice(s slice.Slice) error {
	if w.closed {
		return ErrClosed
	}
	if err := w.beforeAppend(s.Meta, s.StartKey); err != nil {
		return err
	}
	w.blockCtx.bufferSlice(s)

	for _, col := range s.Columns {
		ck := s.StartKey.WithLeafName(col.Name)
		w.bloom.Add(bloomProbeKey(ck))
	}
	w.lastWrittenKey = &s.EndKey
	w.columnsWritten += int64(len(s.Columns))
	return nil
}

func bloomProbeKey(ck key.ColumnKey) []byte {
	return ck.Encode(nil)
}

// boundaryType classifies why a slice must be flushed before a new key
// can be buffered, mirroring SSTableWriter.BoundaryType.
type boundaryType byte

const (
	boundaryNone boundaryType = iota
	boundaryNatural
	boundaryArtificial
)

// shouldFlushSlice decides whether columnKey forces the in-progress
// slice to flush, comparing at columnDepth-1 (the parent-group level):
// a change there is always a natural boundary, since Metadata and
// columns are scoped per parent group.
func (w *Writer) shouldFlushSlice(meta column.Metadata, columnKey key.ColumnKey) boundaryType {
	cmp := w.cmp.Compare(*w.lastWrittenKey, columnKey, w.columnDepth-1)
	if cmp > 0 {
		return boundaryArtificial // unreachable in practice; beforeAppend already rejects this
	}
	if cmp < 0 {
		return boundaryNatural
	}
	if w.blockCtx.approxSliceLength() > w.opt.TargetMaxSliceBytes {
		return boundaryArtificial
	}
	if !metadataEqual(meta, w.blockCtx.meta) {
		return boundaryArtificial
	}
	return boundaryNone
}

func metadataEqual(a, b column.Metadata) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// beforeAppend validates ordering and flushes the current slice if
// columnKey starts a new one, before the caller buffers its payload.
func (w *Writer) beforeAppend(meta column.Metadata, columnKey key.ColumnKey) error {
	if w.lastWrittenKey == nil {
		w.blockCtx.resetSlice(meta, boundaryNatural, &columnKey)
		return nil
	}

	if w.cmp.Compare(*w.lastWrittenKey, columnKey, w.columnDepth) > 0 {
		zap.L().Error("writer: input order violation",
			zap.Int64("generation", w.generation), zap.Int64("columnsWritten", w.columnsWritten))
		return ErrInputOrderViolation
	}

	filled := w.blockCtx.approxBlockLength() > w.opt.TargetMaxBlockBytes
	btype := w.shouldFlushSlice(meta, columnKey)
	if btype != boundaryNone {
		return w.flushSlice(meta, btype, &columnKey, filled)
	}
	return nil
}

// flushSlice closes out the in-progress slice (closing its block too,
// if filled demands it), records any resulting IndexEntry, and resets
// the block context for the next slice.
func (w *Writer) flushSlice(meta column.Metadata, btype boundaryType, nextKey *key.ColumnKey, closeBlock bool) error {
	if w.blockCtx.isEmpty() {
		w.blockCtx.resetSlice(meta, btype, nextKey)
		return nil
	}

	entry, err := w.blockCtx.flushSlice(w, btype, nextKey, closeBlock)
	if err != nil {
		return err
	}
	if entry != nil {
		if err := w.addToIndex(*entry); err != nil {
			return err
		}
	}
	w.slicesWritten++
	w.blockCtx.resetSlice(meta, btype, nextKey)
	return nil
}

func (w *Writer) addToIndex(entry IndexEntry) error {
	buf := entry.Encode(nil)
	if _, err := w.indexW.Write(buf); err != nil {
		return fmt.Errorf("writer: write index entry: %w", err)
	}
	w.blocksWritten++
	return nil
}

// writeBlock compresses payload, frames it with a block.Header and
// trailer, and appends it to the data file, returning its on-disk
// offset and total length (header+payload+trailer).
func (w *Writer) writeBlock(payload []byte) (offset, length uint64, err error) {
	codec := compression.New(w.opt.DataCompression)
	compressed := codec.Compress(bufferpool.Get(len(payload)), payload)
	defer bufferpool.Put(compressed)

	phys := block.Physical{
		Header:  block.Header{PayloadLen: uint32(len(compressed)), CodecTag: byte(codec.Tag())},
		Payload: compressed,
	}
	phys.SetTrailer(block.KindData)

	var hdr [block.HeaderLen]byte
	block.EncodeHeader(phys.Header, hdr[:])

	offset = w.dataPos
	if _, err = w.dataW.Write(hdr[:]); err != nil {
		return 0, 0, err
	}
	if _, err = w.dataW.Write(phys.Payload); err != nil {
		return 0, 0, err
	}
	if _, err = w.dataW.Write(phys.Trailer[:]); err != nil {
		return 0, 0, err
	}
	length = uint64(phys.Size())
	w.dataPos += length
	return offset, length, nil
}

// Close flushes the final slice and block, serializes the Bloom
// filter, fsyncs every component, and commits the SST, renaming the
// data file last so a crash mid-commit never leaves a reader looking at
// a partial SST.
func (w *Writer) Close() (Footer, error) {
	if w.closed {
		return Footer{}, ErrClosed
	}
	w.closed = true

	if !w.blockCtx.isEmpty() {
		if err := w.flushSlice(w.blockCtx.meta, boundaryNatural, nil, true); err != nil {
			return Footer{}, err
		}
	} else if w.blockCtx.slicesInBlock > 0 {
		// a block has buffered slices but the final slice was already
		// flushed with closeBlock=false; force the close here.
		entry, err := w.blockCtx.closeBlock(w)
		if err != nil {
			return Footer{}, err
		}
		if entry != nil {
			if err := w.addToIndex(*entry); err != nil {
				return Footer{}, err
			}
		}
	}

	filterW, err := w.fs.CreateTemp(w.generation, storage.KindFilter)
	if err != nil {
		return Footer{}, fmt.Errorf("writer: create filter file: %w", err)
	}
	filterBytes := w.bloom.Build(nil)
	if _, err := filterW.Write(filterBytes); err != nil {
		_ = filterW.Abort()
		return Footer{}, fmt.Errorf("writer: write filter: %w", err)
	}
	if err := filterW.Finish(); err != nil {
		return Footer{}, fmt.Errorf("writer: finish filter: %w", err)
	}

	if err := w.indexW.Finish(); err != nil {
		return Footer{}, fmt.Errorf("writer: finish index: %w", err)
	}
	if err := w.dataW.Finish(); err != nil {
		return Footer{}, fmt.Errorf("writer: finish data: %w", err)
	}

	if err := w.fs.Commit(w.generation); err != nil {
		return Footer{}, fmt.Errorf("writer: commit: %w", err)
	}

	zap.L().Info("writer: sst committed",
		zap.Int64("generation", w.generation),
		zap.Int64("columns", w.columnsWritten),
		zap.Int64("slices", w.slicesWritten),
		zap.Int64("blocks", w.blocksWritten))

	return Footer{
		Generation:     w.generation,
		ColumnsWritten: w.columnsWritten,
		SlicesWritten:  w.slicesWritten,
		BlocksWritten:  w.blocksWritten,
		ColumnDepth:    w.columnDepth,
	}, nil
}

// Abort discards every temp file created for this SST without
// committing, releasing the underlying storage.
func (w *Writer) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true
	zap.L().Warn("writer: aborting sst", zap.Int64("generation", w.generation))
	_ = w.indexW.Abort()
	_ = w.dataW.Abort()
	if err := w.fs.Remove(w.generation); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return nil
}
