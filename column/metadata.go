package column

// Metadata carries one (markedForDeleteAt, localDeletionTime) pair per
// ancestor level above the column itself: the row, plus the D-1 parent
// groups of a depth-D ColumnKey — so D pairs in all (1 for a standard
// CF, 2 for a super CF). Each level is independently deletable (a
// super-CF's supercolumn can be dropped without touching its siblings).
type Metadata []DeletionMark

// DeletionMark is one ancestor's deletion bookkeeping: markedForDeleteAt
// is the highest column timestamp the ancestor's tombstone covers,
// localDeletionTime is the wall-clock second that tombstone was written.
type DeletionMark struct {
	MarkedForDeleteAt int64
	LocalDeletionTime int32
}

// Live is the zero-value deletion mark: nothing below this ancestor has
// been deleted.
var Live = DeletionMark{MarkedForDeleteAt: -1, LocalDeletionTime: 0}

// NewMetadata returns depth Live marks, one per parent group.
func NewMetadata(depth int) Metadata {
	m := make(Metadata, depth)
	for i := range m {
		m[i] = Live
	}
	return m
}

// DeletesAt reports whether any ancestor's tombstone covers timestamp,
// i.e. a parent group was deleted at or after this column was written.
func (m Metadata) DeletesAt(timestamp int64) bool {
	for _, mark := range m {
		if timestamp <= mark.MarkedForDeleteAt {
			return true
		}
	}
	return false
}

// Resolve combines two Metadata for the same parent-group path,
// pairwise-maxing each level's MarkedForDeleteAt (and the
// LocalDeletionTime that travels with whichever mark wins), per
// spec.md §4.1's slice-merge rule. The shorter of the two determines the
// result's length; callers always compare Metadata produced for keys of
// equal depth, so lengths match in practice.
func Resolve(a, b Metadata) Metadata {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make(Metadata, n)
	for i := 0; i < n; i++ {
		if a[i].MarkedForDeleteAt >= b[i].MarkedForDeleteAt {
			out[i] = a[i]
		} else {
			out[i] = b[i]
		}
	}
	return out
}
