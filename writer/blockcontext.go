package writer

import (
	"github.com/datnguyenzzz/column-sstable/column"
	"github.com/datnguyenzzz/column-sstable/key"
	"github.com/datnguyenzzz/column-sstable/slice"
)

// blockContext buffers the slice currently being assembled and the raw
// bytes of the block it belongs to, so the writer can measure both
// lengths before deciding to flush, mirroring SSTableWriter.BlockContext.
type blockContext struct {
	meta     column.Metadata
	sliceKey *key.ColumnKey
	numCols  int
	sliceBuf []byte

	slicesInBlock int
	blockBuf      []byte
	blockKey      *key.ColumnKey
}

func (b *blockContext) bufferColumn(col column.Column) {
	b.sliceBuf = col.Encode(b.sliceBuf)
	b.numCols++
}

func (b *blockContext) bufferSlice(s slice.Slice) {
	b.meta = s.Meta
	b.sliceKey = &s.StartKey
	b.numCols = len(s.Columns)
	for _, col := range s.Columns {
		b.sliceBuf = col.Encode(b.sliceBuf)
	}
}

func (b *blockContext) isEmpty() bool { return b.numCols == 0 }

func (b *blockContext) approxSliceLength() int { return len(b.sliceBuf) }

func (b *blockContext) approxBlockLength() int { return len(b.blockBuf) + b.approxSliceLength() }

// resetSlice begins a new slice sharing meta, rounding sliceKey down to
// NAME_BEGIN at its parent-group level when btype is a natural
// boundary — the same rounding SSTableWriter.BlockContext.resetSlice
// performs, so Metadata for a whole subrange applies even to keys
// discovered later that share its parents.
func (b *blockContext) resetSlice(meta column.Metadata, btype boundaryType, sliceKey *key.ColumnKey) {
	b.meta = meta
	if sliceKey != nil && btype == boundaryNatural {
		nk := sliceKey.WithName(key.Begin())
		b.sliceKey = &nk
	} else {
		b.sliceKey = sliceKey
	}
	b.sliceBuf = b.sliceBuf[:0]
	b.numCols = 0
}

// flushSlice prepends a SliceMark to the buffered slice payload, appends
// both to the in-progress block, and closes the block if closeBlock is
// set. Returns the IndexEntry for a closed block, or nil if the block
// stays open.
func (b *blockContext) flushSlice(w *Writer, btype boundaryType, nextKey *key.ColumnKey, closeBlock bool) (*IndexEntry, error) {
	if b.slicesInBlock == 0 {
		b.blockKey = b.sliceKey
		b.blockBuf = b.blockBuf[:0]
	}

	sliceLen := len(b.sliceBuf)
	status := slice.StatusContinue
	if closeBlock {
		status = slice.StatusEnd
	}

	// Round the slice's end/next keys the same way the original writer
	// does: a natural boundary means every key sharing this slice's
	// parent group is covered by its Metadata, so the end is rounded up
	// to NAME_END and the following slice's start rounded down to
	// NAME_BEGIN.
	var endKey key.ColumnKey
	if btype == boundaryNatural {
		endKey = b.sliceKey.WithName(key.End())
	} else if nextKey != nil {
		endKey = *nextKey
	} else {
		endKey = *b.sliceKey
	}

	var adjustedNext *key.ColumnKey
	if nextKey != nil {
		if btype == boundaryNatural {
			nk := nextKey.WithName(key.Begin())
			adjustedNext = &nk
		} else {
			adjustedNext = nextKey
		}
	}

	mark := slice.Mark{
		Meta:       b.meta,
		StartKey:   *b.sliceKey,
		EndKey:     endKey,
		NextKey:    adjustedNext,
		PayloadLen: uint32(sliceLen),
		ColCount:   uint32(b.numCols),
		Status:     status,
	}
	b.blockBuf = mark.Encode(b.blockBuf)
	b.blockBuf = append(b.blockBuf, b.sliceBuf...)
	b.slicesInBlock++

	if !closeBlock {
		return nil, nil
	}
	return b.closeBlock(w)
}

// closeBlock compresses and writes the accumulated block bytes to the
// data file, returning the IndexEntry that locates it.
func (b *blockContext) closeBlock(w *Writer) (*IndexEntry, error) {
	offset, length, err := w.writeBlock(b.blockBuf)
	if err != nil {
		return nil, err
	}
	entry := &IndexEntry{BlockKey: *b.blockKey, Offset: offset, Length: length}

	b.blockBuf = b.blockBuf[:0]
	b.slicesInBlock = 0
	b.blockKey = nil
	return entry, nil
}
