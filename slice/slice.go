// Package slice defines Slice, the unit of I/O framing and compaction
// output described in spec.md §3: a contiguous run of columns sharing a
// parent group, bounded by a start/end ColumnKey and carrying that
// parent group's deletion Metadata.
package slice

import (
	"github.com/datnguyenzzz/column-sstable/column"
	"github.com/datnguyenzzz/column-sstable/key"
)

// Status marks whether more Slice records follow in the same block
// (StatusContinue) or this record is the block's last (StatusEnd),
// mirroring the BLOCK_CONTINUE / BLOCK_END framing in spec.md §6.
type Status uint8

const (
	StatusContinue Status = iota
	StatusEnd
)

// Slice is one on-disk unit: the [StartKey, EndKey] span it covers, the
// resolved deletion Metadata for its parent group, and the Columns
// carried in this span. NextKey points at the key the following Slice
// record begins with, whichever block that record lands in, and is nil
// only for the SST's final slice — the pointer SliceMark.next_key
// encodes so a scanner can skip an entire slice without decoding its
// columns.
type Slice struct {
	StartKey key.ColumnKey
	EndKey   key.ColumnKey
	NextKey  *key.ColumnKey
	Meta     column.Metadata
	Columns  []column.Column
	Status   Status
}

// Mark is the metadata envelope written immediately before a Slice's
// column payload, per spec.md §6's SliceMark record. It lets a scanner
// bloom/index its way to a slice and skip over its payload without
// decoding columns when the lookup doesn't need them.
type Mark struct {
	Meta       column.Metadata
	StartKey   key.ColumnKey
	EndKey     key.ColumnKey
	NextKey    *key.ColumnKey
	PayloadLen uint32
	ColCount   uint32
	Status     Status
}

// MarkOf derives the Mark that must precede s's encoded column payload.
func MarkOf(s Slice, payloadLen int) Mark {
	return Mark{
		Meta:       s.Meta,
		StartKey:   s.StartKey,
		EndKey:     s.EndKey,
		NextKey:    s.NextKey,
		PayloadLen: uint32(payloadLen),
		ColCount:   uint32(len(s.Columns)),
		Status:     s.Status,
	}
}
