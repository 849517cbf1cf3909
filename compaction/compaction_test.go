package compaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datnguyenzzz/column-sstable/column"
	"github.com/datnguyenzzz/column-sstable/key"
	"github.com/datnguyenzzz/column-sstable/options"
	"github.com/datnguyenzzz/column-sstable/slice"
)

// fakeScanner replays a fixed list of Slices, standing in for a
// reader.Scanner in these tests.
type fakeScanner struct {
	slices []slice.Slice
	idx    int
	closed bool
}

func (f *fakeScanner) Next() bool {
	if f.idx >= len(f.slices) {
		return false
	}
	f.idx++
	return true
}

func (f *fakeScanner) Get() (slice.Slice, bool) {
	if f.idx == 0 || f.idx > len(f.slices) {
		return slice.Slice{}, false
	}
	return f.slices[f.idx-1], true
}

func (f *fakeScanner) Close() error {
	f.closed = true
	return nil
}

func rowKey(row, col string) key.ColumnKey {
	return key.ColumnKey{
		DK:    key.DecoratedKey{Token: []byte(row), RawKey: []byte(row)},
		Names: []key.Name{key.RealName([]byte(col))},
	}
}

func liveSlice(row, col string, ts int64, value string) slice.Slice {
	k := rowKey(row, col)
	return slice.Slice{
		StartKey: k,
		EndKey:   k,
		Meta:     column.NewMetadata(1),
		Columns:  []column.Column{{Name: []byte(col), Value: []byte(value), Timestamp: ts}},
	}
}

func tombstoneSlice(row, col string, ts int64, localDeletionTime int32) slice.Slice {
	k := rowKey(row, col)
	return slice.Slice{
		StartKey: k,
		EndKey:   k,
		Meta:     column.NewMetadata(1),
		Columns:  []column.Column{column.NewTombstone([]byte(col), ts, localDeletionTime)},
	}
}

func collect(t *testing.T, it *Iterator) []slice.Slice {
	t.Helper()
	var out []slice.Slice
	for it.Next() {
		out = append(out, it.Get())
	}
	require.NoError(t, it.Err())
	require.NoError(t, it.Close())
	return out
}

func newIterator(t *testing.T, scanners []Scanner, opts ...options.CompactionOptFn) *Iterator {
	t.Helper()
	cmp := key.NewComparer(1, key.ByteOrderComparer{})
	it, err := New(scanners, cmp, 1, opts...)
	require.NoError(t, err)
	return it
}

func TestIterator_S1_Overwrite(t *testing.T) {
	a := &fakeScanner{slices: []slice.Slice{liveSlice("k1", "c1", 0, "v1")}}
	b := &fakeScanner{slices: []slice.Slice{liveSlice("k1", "c1", 1, "v2")}}

	it := newIterator(t, []Scanner{a, b}, options.WithMajor(true))
	out := collect(t, it)

	require.Len(t, out, 1)
	require.Len(t, out[0].Columns, 1)
	assert.Equal(t, []byte("v2"), out[0].Columns[0].Value)
	assert.Equal(t, int64(1), out[0].Columns[0].Timestamp)
}

func TestIterator_S2_DisjointMerge(t *testing.T) {
	a := &fakeScanner{slices: []slice.Slice{liveSlice("k1", "c1", 0, "v1")}}
	b := &fakeScanner{slices: []slice.Slice{liveSlice("k2", "c2", 0, "v2")}}

	it := newIterator(t, []Scanner{a, b}, options.WithMajor(true))
	out := collect(t, it)

	require.Len(t, out, 2)
	assert.Equal(t, []byte("k1"), out[0].StartKey.DK.RawKey)
	assert.Equal(t, []byte("k2"), out[1].StartKey.DK.RawKey)
}

func TestIterator_S3_TombstoneGC(t *testing.T) {
	a := &fakeScanner{slices: []slice.Slice{liveSlice("k1", "c1", 5, "v")}}
	b := &fakeScanner{slices: []slice.Slice{tombstoneSlice("k1", "c1", 10, 100)}}

	outOld := collect(t, newIterator(t, []Scanner{
		&fakeScanner{slices: a.slices}, &fakeScanner{slices: b.slices},
	}, options.WithMajor(true), options.WithGCBefore(200)))
	assert.Empty(t, outOld, "tombstone past gcBefore must be dropped entirely")

	outRetained := collect(t, newIterator(t, []Scanner{
		&fakeScanner{slices: a.slices}, &fakeScanner{slices: b.slices},
	}, options.WithMajor(true), options.WithGCBefore(50)))
	require.Len(t, outRetained, 1)
	require.Len(t, outRetained[0].Columns, 1)
	assert.True(t, outRetained[0].Columns[0].Flags.IsTombstone())
}

func TestIterator_S4_ParentTombstone(t *testing.T) {
	deletedMeta := column.Metadata{{MarkedForDeleteAt: 10, LocalDeletionTime: 100}}
	k1c1 := rowKey("k1", "c1")
	k1c2 := rowKey("k1", "c2")

	a := &fakeScanner{slices: []slice.Slice{
		{
			StartKey: k1c1, EndKey: k1c2, Meta: deletedMeta,
			Columns: []column.Column{
				{Name: []byte("c1"), Timestamp: 5},
				{Name: []byte("c2"), Timestamp: 15},
			},
		},
	}}

	it := newIterator(t, []Scanner{a}, options.WithMajor(true))
	out := collect(t, it)

	require.Len(t, out, 1)
	require.Len(t, out[0].Columns, 1)
	assert.Equal(t, []byte("c2"), out[0].Columns[0].Name)
	assert.Equal(t, int64(10), out[0].Meta[0].MarkedForDeleteAt)
}

func TestIterator_S5_MinorCompactionRetainsTombstone(t *testing.T) {
	a := &fakeScanner{slices: []slice.Slice{tombstoneSlice("k1", "c1", 5, 1)}}

	it := newIterator(t, []Scanner{a}, options.WithMajor(false), options.WithGCBefore(1<<30))
	out := collect(t, it)

	require.Len(t, out, 1)
	require.Len(t, out[0].Columns, 1)
	assert.True(t, out[0].Columns[0].Flags.IsTombstone())
}

func TestIterator_S6_ConflictTieBreak(t *testing.T) {
	a := &fakeScanner{slices: []slice.Slice{tombstoneSlice("k1", "c1", 10, 100)}}
	b := &fakeScanner{slices: []slice.Slice{liveSlice("k1", "c1", 10, "anything")}}
	out := collect(t, newIterator(t, []Scanner{a, b}, options.WithMajor(false)))
	require.Len(t, out, 1)
	require.Len(t, out[0].Columns, 1)
	assert.True(t, out[0].Columns[0].Flags.IsTombstone(), "tombstone must win a timestamp tie")

	c := &fakeScanner{slices: []slice.Slice{liveSlice("k1", "c1", 10, "b")}}
	d := &fakeScanner{slices: []slice.Slice{liveSlice("k1", "c1", 10, "a")}}
	out2 := collect(t, newIterator(t, []Scanner{c, d}, options.WithMajor(false)))
	require.Len(t, out2, 1)
	require.Len(t, out2[0].Columns, 1)
	assert.Equal(t, []byte("b"), out2[0].Columns[0].Value, "greater value must win a further tie")
}

func TestIterator_ClosesAllScanners(t *testing.T) {
	a := &fakeScanner{slices: []slice.Slice{liveSlice("k1", "c1", 0, "v1")}}
	b := &fakeScanner{slices: []slice.Slice{liveSlice("k2", "c2", 0, "v2")}}

	it := newIterator(t, []Scanner{a, b})
	collect(t, it)

	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestNew_NoScanners(t *testing.T) {
	cmp := key.NewComparer(1, key.ByteOrderComparer{})
	_, err := New(nil, cmp, 1)
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestIterator_SplitsOversizedSlice(t *testing.T) {
	meta := column.NewMetadata(1)
	k := rowKey("k1", "row")
	cols := []column.Column{
		{Name: []byte("c1"), Value: make([]byte, 100), Timestamp: 1},
		{Name: []byte("c2"), Value: make([]byte, 100), Timestamp: 1},
		{Name: []byte("c3"), Value: make([]byte, 100), Timestamp: 1},
	}
	a := &fakeScanner{slices: []slice.Slice{{StartKey: k, EndKey: k, Meta: meta, Columns: cols}}}

	it := newIterator(t, []Scanner{a}, options.WithTargetMaxSliceBytes(100))
	out := collect(t, it)

	require.Len(t, out, 3, "each column should land in its own slice once the byte budget is tiny")
	var total int
	for _, s := range out {
		total += len(s.Columns)
	}
	assert.Equal(t, 3, total)
}
