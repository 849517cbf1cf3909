package writer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datnguyenzzz/column-sstable/column"
	"github.com/datnguyenzzz/column-sstable/key"
	"github.com/datnguyenzzz/column-sstable/options"
	"github.com/datnguyenzzz/column-sstable/storage"
)

func testKey(row, col string) key.ColumnKey {
	return key.ColumnKey{
		DK:    key.DecoratedKey{Token: []byte(row), RawKey: []byte(row)},
		Names: []key.Name{key.RealName([]byte(col))},
	}
}

func TestWriter_RejectsOutOfOrderAppend(t *testing.T) {
	fs := storage.NewInMemFS()
	cmp := key.NewComparer(1, key.ByteOrderComparer{})
	w, err := NewWriter(fs, 1, cmp, 1)
	require.NoError(t, err)

	require.NoError(t, w.Append(column.NewMetadata(1), testKey("k2", "c1"), column.Column{Name: []byte("c1"), Timestamp: 1}))
	err = w.Append(column.NewMetadata(1), testKey("k1", "c1"), column.Column{Name: []byte("c1"), Timestamp: 1})
	assert.ErrorIs(t, err, ErrInputOrderViolation)

	require.NoError(t, w.Abort())
}

func TestWriter_ClosedRejectsFurtherAppends(t *testing.T) {
	fs := storage.NewInMemFS()
	cmp := key.NewComparer(1, key.ByteOrderComparer{})
	w, err := NewWriter(fs, 1, cmp, 1)
	require.NoError(t, err)

	require.NoError(t, w.Append(column.NewMetadata(1), testKey("k1", "c1"), column.Column{Name: []byte("c1"), Timestamp: 1}))
	_, err = w.Close()
	require.NoError(t, err)

	err = w.Append(column.NewMetadata(1), testKey("k2", "c1"), column.Column{Name: []byte("c1"), Timestamp: 1})
	assert.ErrorIs(t, err, ErrClosed)

	_, err = w.Close()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestWriter_MultiBlockFlush(t *testing.T) {
	fs := storage.NewInMemFS()
	cmp := key.NewComparer(1, key.ByteOrderComparer{})
	w, err := NewWriter(fs, 1, cmp, 1, options.WithTargetMaxBlockBytes(64))
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		row := string(rune('a' + i))
		col := column.Column{Name: []byte("c"), Value: make([]byte, 32), Timestamp: int64(i)}
		require.NoError(t, w.Append(column.NewMetadata(1), testKey(row, "c"), col))
	}

	footer, err := w.Close()
	require.NoError(t, err)
	assert.Equal(t, int64(20), footer.ColumnsWritten)
	assert.Greater(t, footer.BlocksWritten, int64(1), "a tiny TargetMaxBlockBytes should force multiple blocks")
}

func TestWriter_AppendRow_StandardColumnFamily(t *testing.T) {
	fs := storage.NewInMemFS()
	cmp := key.NewComparer(1, key.ByteOrderComparer{})
	w, err := NewWriter(fs, 1, cmp, 1)
	require.NoError(t, err)

	err = w.AppendRow(key.DecoratedKey{Token: []byte("k1"), RawKey: []byte("k1")}, Row{
		Columns: []column.Column{
			{Name: []byte("a"), Timestamp: 1},
			{Name: []byte("b"), Timestamp: 1},
		},
	})
	require.NoError(t, err)

	footer, err := w.Close()
	require.NoError(t, err)
	assert.Equal(t, int64(2), footer.ColumnsWritten)
}

func TestWriter_AppendRow_SuperColumnFamily(t *testing.T) {
	fs := storage.NewInMemFS()
	cmp := key.NewComparer(2, key.ByteOrderComparer{})
	w, err := NewWriter(fs, 1, cmp, 2)
	require.NoError(t, err)

	err = w.AppendRow(key.DecoratedKey{Token: []byte("k1"), RawKey: []byte("k1")}, Row{
		SuperColumns: []SuperColumn{
			{
				Name: []byte("sc1"),
				Columns: []column.Column{
					{Name: []byte("a"), Timestamp: 1},
				},
			},
		},
	})
	require.NoError(t, err)

	footer, err := w.Close()
	require.NoError(t, err)
	assert.Equal(t, int64(1), footer.ColumnsWritten)
}
