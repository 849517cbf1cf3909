// End-to-end round trip across writer, reader and compaction, grounded
// on the teacher's functional/on_mem_test.go style: build real SSTs
// against an in-memory FS, reopen them, and compact.
package columnsstable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datnguyenzzz/column-sstable/column"
	"github.com/datnguyenzzz/column-sstable/compaction"
	"github.com/datnguyenzzz/column-sstable/key"
	"github.com/datnguyenzzz/column-sstable/options"
	"github.com/datnguyenzzz/column-sstable/reader"
	"github.com/datnguyenzzz/column-sstable/storage"
	"github.com/datnguyenzzz/column-sstable/writer"
)

func rowKey(row, col string) key.ColumnKey {
	return key.ColumnKey{
		DK:    key.DecoratedKey{Token: []byte(row), RawKey: []byte(row)},
		Names: []key.Name{key.RealName([]byte(col))},
	}
}

func writeSST(t *testing.T, fs storage.FS, generation int64, cmp key.Comparer, entries map[string]column.Column) writer.Footer {
	t.Helper()
	w, err := writer.NewWriter(fs, generation, cmp, 1)
	require.NoError(t, err)

	for row, col := range entries {
		ck := rowKey(row, string(col.Name))
		require.NoError(t, w.Append(column.NewMetadata(1), ck, col))
	}
	footer, err := w.Close()
	require.NoError(t, err)
	return footer
}

func TestWriterReaderCompaction_RoundTrip(t *testing.T) {
	fs := storage.NewInMemFS()
	cmp := key.NewComparer(1, key.ByteOrderComparer{})

	writeSST(t, fs, 1, cmp, map[string]column.Column{
		"k1": {Name: []byte("c1"), Value: []byte("v1"), Timestamp: 0},
	})
	writeSST(t, fs, 2, cmp, map[string]column.Column{
		"k2": {Name: []byte("c2"), Value: []byte("v2"), Timestamp: 0},
	})

	r1, err := reader.Open(fs, 1, cmp, 1)
	require.NoError(t, err)
	r2, err := reader.Open(fs, 2, cmp, 1)
	require.NoError(t, err)

	it, err := compaction.New([]compaction.Scanner{r1.NewScanner(), r2.NewScanner()}, cmp, 1, options.WithMajor(true))
	require.NoError(t, err)

	outFS := storage.NewInMemFS()
	outW, err := writer.NewWriter(outFS, 3, cmp, 1)
	require.NoError(t, err)

	footer, err := compaction.Run(it, outW)
	require.NoError(t, err)
	assert.Equal(t, int64(2), footer.ColumnsWritten)

	require.NoError(t, r1.Close())
	require.NoError(t, r2.Close())

	outR, err := reader.Open(outFS, 3, cmp, 1)
	require.NoError(t, err)
	defer outR.Close()

	sc := outR.NewScanner()
	defer sc.Close()

	var names []string
	for sc.Next() {
		sl, ok := sc.Get()
		require.True(t, ok)
		for _, c := range sl.Columns {
			names = append(names, string(c.Name))
		}
	}
	require.NoError(t, sc.Err())
	assert.ElementsMatch(t, []string{"c1", "c2"}, names)
}

func TestReader_Next_WithNameFilter(t *testing.T) {
	fs := storage.NewInMemFS()
	cmp := key.NewComparer(1, key.ByteOrderComparer{})

	writeSST(t, fs, 1, cmp, map[string]column.Column{
		"k1": {Name: []byte("c1"), Value: []byte("v1"), Timestamp: 0},
	})

	r, err := reader.Open(fs, 1, cmp, 1)
	require.NoError(t, err)
	defer r.Close()

	sc := r.NewScanner()
	defer sc.Close()
	sc.SetColumnFilter(reader.NameFilter{Cmp: key.ByteOrderComparer{}, Name: []byte("c1")})

	require.True(t, sc.Next())
	sl, ok := sc.Get()
	require.True(t, ok)
	require.Len(t, sl.Columns, 1)
	assert.Equal(t, []byte("v1"), sl.Columns[0].Value)
}
