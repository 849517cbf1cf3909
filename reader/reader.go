// Package reader implements the SST Reader and Scanner described in
// spec.md §4.3: opening a finalized data/index/filter triplet, a bloom
// probe ahead of the sparse index, and ordered slice iteration with
// filter-guided seeking.
//
// Grounded on the teacher's row_block.RowBlockReader (which also wraps a
// storage.ILayoutReader and hands out block-level iterators) and on
// SSTableReader/Scanner.java for the ownership and seek contract.
package reader

import (
	"fmt"
	"sort"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/datnguyenzzz/column-sstable/block"
	"github.com/datnguyenzzz/column-sstable/blockcache"
	"github.com/datnguyenzzz/column-sstable/bufferpool"
	"github.com/datnguyenzzz/column-sstable/compression"
	"github.com/datnguyenzzz/column-sstable/filter"
	"github.com/datnguyenzzz/column-sstable/key"
	"github.com/datnguyenzzz/column-sstable/options"
	"github.com/datnguyenzzz/column-sstable/storage"
	"github.com/datnguyenzzz/column-sstable/writer"
)

// ErrCorruptSSTable is returned when a block's trailer checksum doesn't
// match its payload, or a record can't be decoded — spec.md §7's
// CorruptSSTable error kind.
var ErrCorruptSSTable = fmt.Errorf("reader: corrupt sstable")

// Reader opens one SST's triplet and serves as the factory for Scanners.
// Once open it never mutates its own state, so its methods are safe for
// concurrent use provided each caller holds its own Scanner (spec.md §5);
// the underlying files are only closed once every Scanner handed out has
// been closed and the Reader itself has been closed, per spec.md §3's
// ownership rule.
type Reader struct {
	fs          storage.FS
	generation  int64
	cmp         key.Comparer
	columnDepth int
	opt         options.ReadOpt

	dataR storage.Readable
	index []writer.IndexEntry // ascending BlockKey order, one per block
	bloom []byte

	cache *blockcache.Cache

	refs    int32
	closing int32
}

// Open reads the filter and index files fully into memory and opens the
// data file for on-demand block reads. cmp/columnDepth must match the
// ones the SST was written with.
func Open(fs storage.FS, generation int64, cmp key.Comparer, columnDepth int, opts ...options.ReadOptFn) (*Reader, error) {
	opt := options.NewReadOpt(opts...)

	bloomBytes, err := readWholeFile(fs, generation, storage.KindFilter)
	if err != nil {
		return nil, fmt.Errorf("reader: open filter: %w", err)
	}

	indexBytes, err := readWholeFile(fs, generation, storage.KindIndex)
	if err != nil {
		return nil, fmt.Errorf("reader: open index: %w", err)
	}
	entries, err := decodeIndex(indexBytes)
	if err != nil {
		zap.L().Error("reader: corrupt index", zap.Int64("generation", generation), zap.Error(err))
		return nil, fmt.Errorf("reader: decode index: %w: %w", ErrCorruptSSTable, err)
	}

	dataR, err := fs.Open(generation, storage.KindData)
	if err != nil {
		return nil, fmt.Errorf("reader: open data: %w", err)
	}

	r := &Reader{
		fs:          fs,
		generation:  generation,
		cmp:         cmp,
		columnDepth: columnDepth,
		opt:         opt,
		dataR:       dataR,
		index:       entries,
		bloom:       bloomBytes,
	}
	if opt.CacheBytes > 0 {
		r.cache = blockcache.New(opt.CacheBytes)
	}
	return r, nil
}

func readWholeFile(fs storage.FS, generation int64, kind storage.FileKind) ([]byte, error) {
	r, err := fs.Open(generation, kind)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	buf := make([]byte, r.Size())
	if len(buf) == 0 {
		return buf, nil
	}
	if _, err := r.ReadAt(buf, 0); err != nil {
		return nil, err
	}
	return buf, nil
}

func decodeIndex(src []byte) ([]writer.IndexEntry, error) {
	var entries []writer.IndexEntry
	for off := 0; off < len(src); {
		e, n, err := writer.DecodeIndexEntry(src[off:])
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
		off += n
	}
	return entries, nil
}

// MayContain runs a bloom probe over ck (the full column key, depth ==
// columnDepth). It is only meaningful for a full leaf key; callers
// seeking to a coarser (row- or group-level) key should skip it, since
// the filter was only ever populated with leaf keys (spec.md §4.2).
func (r *Reader) MayContain(ck key.ColumnKey) bool {
	if len(r.bloom) == 0 {
		return true
	}
	return filter.MayContain(r.bloom, ck.Encode(nil))
}

// blockFor returns the index of the last block whose first key is <=
// target, or 0 if target sorts before every block's first key.
func (r *Reader) blockFor(target key.ColumnKey) int {
	n := len(r.index)
	i := sort.Search(n, func(i int) bool {
		return r.cmp.Compare(r.index[i].BlockKey, target, r.columnDepth) > 0
	})
	if i == 0 {
		return 0
	}
	return i - 1
}

// NewScanner returns a Scanner positioned before the first slice (call
// Next to advance to it), holding a reference on r until Close.
func (r *Reader) NewScanner() *Scanner {
	atomic.AddInt32(&r.refs, 1)
	sc := &Scanner{reader: r, blockIdx: -1}
	sc.loadBlock(0)
	return sc
}

// Close marks r as no longer needed by its owner; the underlying files
// are only actually released once every outstanding Scanner has also
// been closed (spec.md §3/§5's reference-counted ownership model).
func (r *Reader) Close() error {
	if atomic.AddInt32(&r.closing, 1) != 1 {
		return nil
	}
	if atomic.LoadInt32(&r.refs) == 0 {
		return r.doClose()
	}
	return nil
}

func (r *Reader) release() error {
	if atomic.AddInt32(&r.refs, -1) == 0 && atomic.LoadInt32(&r.closing) != 0 {
		return r.doClose()
	}
	return nil
}

func (r *Reader) doClose() error {
	return r.dataR.Close()
}

// readBlock returns the decompressed payload of the block at (offset,
// length), consulting and populating the block cache first.
func (r *Reader) readBlock(offset, length uint64) ([]byte, error) {
	ck := blockcache.Key{Generation: r.generation, Offset: offset}
	if r.cache != nil {
		if cached, ok := r.cache.Get(ck); ok {
			return cached, nil
		}
	}

	raw := bufferpool.Get(int(length))
	raw = raw[:length]
	defer bufferpool.Put(raw)

	if _, err := r.dataR.ReadAt(raw, int64(offset)); err != nil {
		return nil, fmt.Errorf("reader: read block at %d: %w", offset, err)
	}
	if len(raw) < block.HeaderLen+block.TrailerLen {
		return nil, fmt.Errorf("%w: block shorter than its framing", ErrCorruptSSTable)
	}

	hdr := block.DecodeHeader(raw[:block.HeaderLen])
	payloadEnd := block.HeaderLen + int(hdr.PayloadLen)
	if payloadEnd+block.TrailerLen > len(raw) {
		return nil, fmt.Errorf("%w: truncated block payload", ErrCorruptSSTable)
	}
	payload := raw[block.HeaderLen:payloadEnd]

	phys := block.Physical{Header: hdr, Payload: payload}
	copy(phys.Trailer[:], raw[payloadEnd:payloadEnd+block.TrailerLen])
	if !phys.VerifyTrailer() {
		zap.L().Error("reader: block checksum mismatch",
			zap.Int64("generation", r.generation), zap.Uint64("offset", offset))
		return nil, fmt.Errorf("%w: checksum mismatch at offset %d", ErrCorruptSSTable, offset)
	}

	codec := compression.New(compression.Tag(hdr.CodecTag))
	decodedLen, err := codec.DecompressedLen(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSSTable, err)
	}
	decoded := make([]byte, decodedLen)
	if err := codec.Decompress(decoded, payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSSTable, err)
	}

	if r.cache != nil {
		r.cache.Set(ck, decoded)
	}
	return decoded, nil
}
