// Package compaction implements the compaction merge iterator of
// spec.md §4.4: a heap-merge of N scanners into one monotonically
// non-decreasing stream of output slices, resolving conflicting column
// versions by priority and purging dead data under tombstone GC policy.
//
// Grounded on the completed variant of the original CompactionIterator
// (the one producing SliceBuffer-equivalent output with explicit
// isDeleted(major, gcBefore) checks, per spec.md §9's open-question
// resolution) — the BufferEntry/MetadataEntry/ColumnEntry merge buffer,
// ensureMergeBuffer's draining rule, and the scanner priority queue all
// carry over; container/heap and container/list replace the source's
// java.util.PriorityQueue and LinkedList, the idiomatic Go fit the
// examples pack has no off-the-shelf alternative for (see DESIGN.md).
package compaction

import (
	"container/heap"
	"container/list"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/datnguyenzzz/column-sstable/column"
	"github.com/datnguyenzzz/column-sstable/key"
	"github.com/datnguyenzzz/column-sstable/options"
	"github.com/datnguyenzzz/column-sstable/slice"
)

// ErrNoInput is returned by New when given an empty scanner set; compaction
// always operates over a non-empty input set per spec.md §4.4.
var ErrNoInput = fmt.Errorf("compaction: no input scanners")

// Scanner is the minimal surface compaction needs from an input: ordered
// slice iteration plus resource release. reader.Scanner satisfies this
// by construction; tests substitute fakes.
type Scanner interface {
	Get() (slice.Slice, bool)
	Next() bool
	Close() error
}

// Iterator heap-merges its input Scanners into a single non-decreasing
// stream of output Slices. It is single-threaded, finite, and not
// restartable: once exhausted or closed it stays that way.
type Iterator struct {
	cmp   key.Comparer
	depth int
	opt   options.CompactionOpt

	queue *scannerQueue
	buf   *list.List

	cur slice.Slice
	err error

	outSlice *slice.Slice
	outBytes int

	closed   bool
	closeErr error
}

// New returns an Iterator over scanners, sharing comparator cmp and
// configured at name-component depth (spec.md §4.1's "d"). scanners must
// be non-empty and already positioned before their first slice (as
// Reader.NewScanner leaves them).
func New(scanners []Scanner, cmp key.Comparer, depth int, opts ...options.CompactionOptFn) (*Iterator, error) {
	if len(scanners) == 0 {
		return nil, ErrNoInput
	}
	it := &Iterator{
		cmp:   cmp,
		depth: depth,
		opt:   options.NewCompactionOpt(opts...),
		buf:   list.New(),
		queue: &scannerQueue{cmp: cmp, depth: depth},
	}
	for i, sc := range scanners {
		h := &scannerHandle{id: i, sc: sc}
		if h.advance() {
			heap.Push(it.queue, h)
		} else {
			it.closeHandle(h)
		}
	}
	zap.L().Info("compaction: starting",
		zap.Int("inputs", len(scanners)), zap.Bool("major", it.opt.Major), zap.Int32("gcBefore", it.opt.GCBefore))
	return it, nil
}

// Next advances the iterator, reporting whether a Slice is available via
// Get. It returns false at EOF or after a fatal error (see Err).
func (it *Iterator) Next() bool {
	if it.closed || it.err != nil {
		return false
	}
	sl, ok, err := it.computeNext()
	if err != nil {
		it.err = err
		return false
	}
	if !ok {
		return false
	}
	it.cur = sl
	return true
}

// Get returns the slice Next last produced.
func (it *Iterator) Get() slice.Slice { return it.cur }

// Err returns the first fatal error encountered, if any. Scanner I/O
// errors and corrupt-table detections propagate here per spec.md §7.
func (it *Iterator) Err() error { return it.err }

// Close releases every input scanner — still open ones from an aborted
// iteration, and any closed earlier as they hit EOF — aggregating their
// close errors with go.uber.org/multierr. Safe to call more than once.
func (it *Iterator) Close() error {
	if it.closed {
		return it.closeErr
	}
	it.closed = true
	for it.queue.Len() > 0 {
		h := heap.Pop(it.queue).(*scannerHandle)
		it.closeHandle(h)
	}
	zap.L().Info("compaction: finished", zap.Error(it.closeErr))
	return it.closeErr
}

func (it *Iterator) closeHandle(h *scannerHandle) {
	if err := h.sc.Close(); err != nil {
		zap.L().Warn("compaction: scanner close error", zap.Int("scannerID", h.id), zap.Error(err))
		it.closeErr = multierr.Append(it.closeErr, err)
	}
}

// scannerHandle pairs one input Scanner with the slice it is currently
// positioned at and a stable id for priority-queue tie-breaking.
type scannerHandle struct {
	id  int
	sc  Scanner
	cur slice.Slice
	ok  bool
}

// advance pulls the handle's next slice, reporting whether one exists.
func (h *scannerHandle) advance() bool {
	if !h.sc.Next() {
		h.cur, h.ok = slice.Slice{}, false
		return false
	}
	h.cur, h.ok = h.sc.Get()
	return h.ok
}

// scannerQueue orders scanner handles by the key of their current slice,
// tie-broken by scanner id for a stable merge order, per spec.md §4.3's
// "Ordering" contract and §9's "stable tie-breaking on scanner id" note.
type scannerQueue struct {
	items []*scannerHandle
	cmp   key.Comparer
	depth int
}

func (q *scannerQueue) Len() int { return len(q.items) }

func (q *scannerQueue) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if c := q.cmp.Compare(a.cur.StartKey, b.cur.StartKey, q.depth); c != 0 {
		return c < 0
	}
	return a.id < b.id
}

func (q *scannerQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *scannerQueue) Push(x any) { q.items = append(q.items, x.(*scannerHandle)) }

func (q *scannerQueue) Pop() any {
	n := len(q.items)
	it := q.items[n-1]
	q.items[n-1] = nil
	q.items = q.items[:n-1]
	return it
}

// entryKind tags a bufferEntry as either half of the BufferEntry
// discriminated union spec.md §4.4 describes — a compile-time
// discriminator in place of the source's BufferEntry subclassing
// (spec.md §9).
type entryKind byte

const (
	entryMetadata entryKind = iota
	entryColumn
)

// bufferEntry is one node of the merge buffer: either a MetadataEntry,
// applying to every ColumnEntry that follows until the next
// MetadataEntry, or a ColumnEntry itself.
type bufferEntry struct {
	kind entryKind
	key  key.ColumnKey
	meta column.Metadata
	col  column.Column
}

// compareEntries orders two bufferEntries by key, with a MetadataEntry
// sorting before a ColumnEntry on an equal key so the metadata applies
// to it (spec.md §4.4).
func (it *Iterator) compareEntries(a, b bufferEntry) int {
	if c := it.cmp.Compare(a.key, b.key, it.depth); c != 0 {
		return c
	}
	if a.kind == b.kind {
		return 0
	}
	if a.kind == entryMetadata {
		return -1
	}
	return 1
}

// resolveEntries combines two bufferEntries of the same kind and equal
// key: metadata resolves pairwise-max, columns resolve by priority.
func resolveEntries(a, b bufferEntry) bufferEntry {
	if a.kind == entryMetadata {
		return bufferEntry{kind: entryMetadata, key: a.key, meta: column.Resolve(a.meta, b.meta)}
	}
	if a.col.ComparePriority(b.col) >= 0 {
		return a
	}
	return b
}

// mergeToBuffer merges sl's metadata and columns into the buffer
// in-place, per spec.md §4.4's mergeToBuffer: a classic merge of two
// sorted runs, inserting the smaller head before the larger and
// resolving equal heads of the same variant.
func (it *Iterator) mergeToBuffer(sl slice.Slice) {
	rhs := make([]bufferEntry, 0, len(sl.Columns)+1)
	rhs = append(rhs, bufferEntry{kind: entryMetadata, key: sl.StartKey, meta: sl.Meta})
	for _, col := range sl.Columns {
		rhs = append(rhs, bufferEntry{kind: entryColumn, key: sl.StartKey.WithLeafName(col.Name), col: col})
	}

	cursor := it.buf.Front()
	ri := 0
	for ri < len(rhs) {
		r := rhs[ri]
		if cursor == nil {
			it.buf.PushBack(r)
			ri++
			continue
		}
		l := cursor.Value.(bufferEntry)
		switch c := it.compareEntries(l, r); {
		case c < 0:
			cursor = cursor.Next()
		case c == 0:
			cursor.Value = resolveEntries(l, r)
			ri++
			cursor = cursor.Next()
		default:
			it.buf.InsertBefore(r, cursor)
			ri++
		}
	}
}

// ensureMergeBuffer guarantees the merge buffer's head holds the global
// minimum key across the buffer and every scanner's current slice,
// draining and merging any scanner at or below that minimum, per
// spec.md §4.4. Returns false iff both the buffer and the scanner queue
// are empty — compaction is over.
func (it *Iterator) ensureMergeBuffer() bool {
	var minimum key.ColumnKey
	if it.buf.Len() > 0 {
		minimum = it.buf.Front().Value.(bufferEntry).key
	} else if it.queue.Len() == 0 {
		return false
	} else {
		minimum = it.queue.items[0].cur.StartKey
	}

	drainedAny := false
	for it.queue.Len() > 0 && it.cmp.Compare(it.queue.items[0].cur.StartKey, minimum, it.depth) <= 0 {
		h := heap.Pop(it.queue).(*scannerHandle)
		drainedAny = true
		it.mergeToBuffer(h.cur)
		if h.advance() {
			heap.Push(it.queue, h)
		} else {
			it.closeHandle(h)
		}
	}
	return drainedAny || it.buf.Len() > 0
}

// isFullyDeleted reports whether every column of s was dropped and s's
// metadata itself is safe to discard — either empty (never deleted) or,
// under a major compaction, past gcBefore at every level — per
// spec.md §4.4's "fully deleted" definition.
func (it *Iterator) isFullyDeleted(s slice.Slice) bool {
	if len(s.Columns) > 0 {
		return false
	}
	for _, mark := range s.Meta {
		if mark == column.Live {
			continue
		}
		if !it.opt.Major || mark.LocalDeletionTime >= it.opt.GCBefore {
			return false
		}
	}
	return true
}

// computeNext pops entries off the merge buffer (refilling it first via
// ensureMergeBuffer) and assembles the next output Slice, per
// spec.md §4.4's computeNext: a MetadataEntry starts a new output slice,
// emitting the previous one first unless it was fully deleted; a
// ColumnEntry is appended unless Column.IsDeleted says otherwise.
func (it *Iterator) computeNext() (slice.Slice, bool, error) {
	for {
		if !it.ensureMergeBuffer() {
			if it.outSlice != nil {
				out := *it.outSlice
				it.outSlice = nil
				if !it.isFullyDeleted(out) {
					return out, true, nil
				}
			}
			return slice.Slice{}, false, nil
		}

		front := it.buf.Front()
		entry := front.Value.(bufferEntry)
		it.buf.Remove(front)

		switch entry.kind {
		case entryMetadata:
			var toEmit *slice.Slice
			if it.outSlice != nil && !it.isFullyDeleted(*it.outSlice) {
				out := *it.outSlice
				toEmit = &out
			}
			it.outSlice = &slice.Slice{StartKey: entry.key, EndKey: entry.key, Meta: entry.meta}
			it.outBytes = 0
			if toEmit != nil {
				return *toEmit, true, nil
			}

		case entryColumn:
			if it.outSlice == nil {
				return slice.Slice{}, false, fmt.Errorf("compaction: column entry %v with no open metadata", entry.key)
			}
			if entry.col.IsDeleted(it.outSlice.Meta, it.opt.Major, it.opt.GCBefore) {
				continue
			}
			it.outSlice.Columns = append(it.outSlice.Columns, entry.col)
			it.outSlice.EndKey = entry.key
			it.outBytes += entry.col.EncodedSize()

			if it.opt.TargetMaxSliceBytes > 0 && it.outBytes >= it.opt.TargetMaxSliceBytes {
				out := *it.outSlice
				it.outSlice = &slice.Slice{StartKey: entry.key, EndKey: entry.key, Meta: out.Meta}
				it.outBytes = 0
				if !it.isFullyDeleted(out) {
					return out, true, nil
				}
			}
		}
	}
}
