package reader

import (
	"fmt"

	"github.com/datnguyenzzz/column-sstable/column"
	"github.com/datnguyenzzz/column-sstable/key"
	"github.com/datnguyenzzz/column-sstable/slice"
)

// Scanner iterates a Reader's slices in key order, per spec.md §4.3. It
// is not thread-safe; one goroutine at a time may drive it. The zero
// value is not usable — obtain a Scanner via Reader.NewScanner.
type Scanner struct {
	reader *Reader

	blockIdx  int
	curSlices []slice.Slice
	sliceIdx  int

	started bool
	atEOF   bool
	closed  bool
	err     error

	colFilter ColumnFilter
}

// Err returns the first fatal error the scanner encountered, if any.
func (s *Scanner) Err() error { return s.err }

// Get returns the slice the scanner is currently positioned at — with
// its columns narrowed by any installed ColumnFilter — or false if the
// scanner hasn't been advanced yet or has reached EOF.
func (s *Scanner) Get() (slice.Slice, bool) {
	if s.closed || s.atEOF || !s.started || s.curSlices == nil {
		return slice.Slice{}, false
	}
	sl := s.curSlices[s.sliceIdx]
	if s.colFilter != nil {
		sl.Columns = filterColumns(sl.Columns, s.colFilter)
	}
	return sl, true
}

// Next advances to the following slice — honoring any installed
// ColumnFilter, which may cause whole slices to be skipped or the
// scanner to jump ahead via an index-guided seek — and reports whether a
// slice is available.
func (s *Scanner) Next() bool {
	if s.closed || s.atEOF || s.err != nil {
		return false
	}
	if !s.started {
		s.started = true
		if s.curSlices == nil {
			s.atEOF = true
			return false
		}
		return s.settle()
	}
	s.advanceSlice()
	return s.settle()
}

// advanceSlice moves to the immediately following slice, crossing block
// boundaries as needed, or marks EOF.
func (s *Scanner) advanceSlice() {
	s.sliceIdx++
	for s.sliceIdx >= len(s.curSlices) {
		if !s.loadBlock(s.blockIdx + 1) {
			s.atEOF = true
			return
		}
	}
}

// settle applies the installed ColumnFilter at the current position,
// skipping or seeking ahead per spec.md §4.5 until a slice passes
// matchesBetween or the scanner reaches EOF.
func (s *Scanner) settle() bool {
	for {
		if s.atEOF || s.err != nil {
			return false
		}
		if s.colFilter == nil {
			return true
		}
		sl := s.curSlices[s.sliceIdx]
		res := s.colFilter.MatchesBetween(leafName(sl.StartKey), leafName(sl.EndKey))
		switch res.Action {
		case MatchContinue:
			return true
		case NoMatchDone:
			s.atEOF = true
			return false
		case MatchSeek:
			target := sl.StartKey.WithLeafName(res.SeekTo)
			if !s.positionTo(target) {
				s.atEOF = true
				return false
			}
		}
	}
}

// SeekTo positions the scanner at the first slice whose end key is >=
// target, per spec.md §4.3: a bloom probe first (a miss returns false
// immediately without touching the index), then the sparse index,
// then an intra-block scan. It never moves the scanner backward — a
// target behind the current position only rescans forward from here.
func (s *Scanner) SeekTo(target key.ColumnKey) bool {
	if s.closed || s.err != nil {
		return false
	}
	s.started = true
	if !s.positionTo(target) {
		s.atEOF = true
		return false
	}
	return s.settle()
}

// positionTo is the filter-agnostic positioning primitive SeekTo and
// settle's MatchSeek branch share.
func (s *Scanner) positionTo(target key.ColumnKey) bool {
	r := s.reader
	if target.Depth() == r.columnDepth && !r.MayContain(target) {
		return false
	}

	b := r.blockFor(target)
	if b < s.blockIdx {
		b = s.blockIdx
	}

	for {
		if b != s.blockIdx || s.curSlices == nil {
			if !s.loadBlock(b) {
				return false
			}
		}
		from := 0
		if b == s.blockIdx && s.sliceIdx > 0 {
			from = s.sliceIdx
		}
		for i := from; i < len(s.curSlices); i++ {
			if r.cmp.Compare(s.curSlices[i].EndKey, target, r.columnDepth) >= 0 {
				s.sliceIdx = i
				return true
			}
		}
		b++
		if b >= len(r.index) {
			return false
		}
	}
}

// loadBlock decodes block b's slices into curSlices and positions the
// scanner at its first slice. Returns false at EOF or on a fatal error
// (see Err).
func (s *Scanner) loadBlock(b int) bool {
	if b < 0 || b >= len(s.reader.index) {
		return false
	}
	entry := s.reader.index[b]
	data, err := s.reader.readBlock(entry.Offset, entry.Length)
	if err != nil {
		s.err = err
		return false
	}
	slices, err := decodeBlockSlices(data)
	if err != nil {
		s.err = fmt.Errorf("%w: %v", ErrCorruptSSTable, err)
		return false
	}
	if len(slices) == 0 {
		s.err = fmt.Errorf("%w: empty block", ErrCorruptSSTable)
		return false
	}
	s.blockIdx = b
	s.curSlices = slices
	s.sliceIdx = 0
	return true
}

// SetColumnFilter installs f, consulted per slice from the next Next or
// SeekTo call onward.
func (s *Scanner) SetColumnFilter(f ColumnFilter) { s.colFilter = f }

// GetBytesRemaining approximates the bytes left to scan: the sum of the
// on-disk lengths of the current and following blocks.
func (s *Scanner) GetBytesRemaining() int64 {
	if s.closed || s.blockIdx < 0 || s.blockIdx >= len(s.reader.index) {
		return 0
	}
	var total int64
	for _, e := range s.reader.index[s.blockIdx:] {
		total += int64(e.Length)
	}
	return total
}

// Close releases the scanner's reference on its Reader.
func (s *Scanner) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.reader.release()
}

func decodeBlockSlices(data []byte) ([]slice.Slice, error) {
	var out []slice.Slice
	for off := 0; off < len(data); {
		mark, n, err := slice.DecodeMark(data[off:])
		if err != nil {
			return nil, err
		}
		off += n
		if off+int(mark.PayloadLen) > len(data) {
			return nil, fmt.Errorf("truncated slice payload")
		}
		payload := data[off : off+int(mark.PayloadLen)]
		off += int(mark.PayloadLen)

		cols := make([]column.Column, 0, mark.ColCount)
		for coff := 0; uint32(len(cols)) < mark.ColCount; {
			col, n, err := column.DecodeColumn(payload[coff:])
			if err != nil {
				return nil, err
			}
			cols = append(cols, col)
			coff += n
		}

		out = append(out, slice.Slice{
			StartKey: mark.StartKey,
			EndKey:   mark.EndKey,
			NextKey:  mark.NextKey,
			Meta:     mark.Meta,
			Columns:  cols,
			Status:   mark.Status,
		})
		if mark.Status == slice.StatusEnd {
			break
		}
	}
	return out, nil
}

func leafName(ck key.ColumnKey) key.Name {
	if ck.Depth() == 0 {
		return key.Begin()
	}
	return ck.Names[ck.Depth()-1]
}

func filterColumns(cols []column.Column, f ColumnFilter) []column.Column {
	out := make([]column.Column, 0, len(cols))
	for _, c := range cols {
		if f.Matches(c.Name) {
			out = append(out, c)
		}
	}
	return out
}
