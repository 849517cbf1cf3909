package reader

import "github.com/datnguyenzzz/column-sstable/key"

// MatchAction is the verdict a ColumnFilter returns for one slice's
// bounds, per spec.md §4.5.
type MatchAction int

const (
	// MatchContinue means the slice may contain wanted columns; decode
	// and scan it.
	MatchContinue MatchAction = iota
	// NoMatchDone means every slice from here on is past anything the
	// filter wants; the scanner should stop.
	NoMatchDone
	// MatchSeek means the slice is entirely before what the filter
	// wants; the scanner should seek forward to SeekTo instead of
	// scanning slice by slice.
	MatchSeek
)

// MatchResult is the return value of ColumnFilter.MatchesBetween.
type MatchResult struct {
	Action MatchAction
	SeekTo []byte // meaningful only when Action == MatchSeek
}

var matchContinue = MatchResult{Action: MatchContinue}
var noMatchDone = MatchResult{Action: NoMatchDone}

func matchSeek(name []byte) MatchResult { return MatchResult{Action: MatchSeek, SeekTo: name} }

// ColumnFilter lets a Scanner skip slices and columns it doesn't need to
// decode, per spec.md §4.5. Compaction never installs one — it must see
// every column to resolve tombstones and priority correctly.
type ColumnFilter interface {
	// MatchesBetween is consulted once per slice, with the slice's
	// bounding name components at the leaf level.
	MatchesBetween(begin, end key.Name) MatchResult
	// Matches is consulted per column within a slice MatchesBetween
	// accepted, to drop columns the filter doesn't want.
	Matches(name []byte) bool
}

// boundCompare orders a slice boundary Name (which may be a sentinel)
// against a real column name.
func boundCompare(bound key.Name, name []byte, cmp key.NameComparer) int {
	switch bound.Kind {
	case key.NameBegin:
		return -1
	case key.NameEnd:
		return 1
	default:
		return cmp.Compare(bound.Bytes, name)
	}
}

// NameFilter matches exactly one column name, grounded on
// NameMatchFilter.java — the filter behind a point read for a single
// named column.
type NameFilter struct {
	Cmp  key.NameComparer
	Name []byte
}

func (f NameFilter) MatchesBetween(begin, end key.Name) MatchResult {
	if boundCompare(end, f.Name, f.Cmp) < 0 {
		// positioned before our name: ask the scanner to seek forward
		return matchSeek(f.Name)
	}
	if boundCompare(begin, f.Name, f.Cmp) > 0 {
		// positioned after our name: nothing further can match
		return noMatchDone
	}
	return matchContinue
}

func (f NameFilter) Matches(name []byte) bool {
	return f.Cmp.Compare(f.Name, name) == 0
}

var _ ColumnFilter = NameFilter{}

// NameSetFilter matches a sorted set of column names within one row,
// generalizing NameFilter the way SSTableNamesIterator.java iterates a
// sorted columnNames set against a row's slices, seeking ahead to the
// next wanted name instead of scanning every column of a wide row.
type NameSetFilter struct {
	Cmp   key.NameComparer
	Names [][]byte // must be sorted ascending under Cmp

	idx int
}

// NewNameSetFilter returns a NameSetFilter over names, which the caller
// must have already sorted under cmp.
func NewNameSetFilter(cmp key.NameComparer, names [][]byte) *NameSetFilter {
	return &NameSetFilter{Cmp: cmp, Names: names}
}

func (f *NameSetFilter) MatchesBetween(begin, end key.Name) MatchResult {
	for {
		if f.idx >= len(f.Names) {
			return noMatchDone
		}
		want := f.Names[f.idx]
		if boundCompare(end, want, f.Cmp) < 0 {
			return matchSeek(want)
		}
		if boundCompare(begin, want, f.Cmp) > 0 {
			// this wanted name fell in a gap between slices; it will
			// never be found, move on to the next one
			f.idx++
			continue
		}
		return matchContinue
	}
}

func (f *NameSetFilter) Matches(name []byte) bool {
	for f.idx < len(f.Names) && f.Cmp.Compare(f.Names[f.idx], name) < 0 {
		f.idx++
	}
	if f.idx >= len(f.Names) || f.Cmp.Compare(f.Names[f.idx], name) != 0 {
		return false
	}
	f.idx++
	return true
}

var _ ColumnFilter = (*NameSetFilter)(nil)
