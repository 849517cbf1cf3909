package storage

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemFS_CreateCommitOpen(t *testing.T) {
	fs := NewInMemFS()

	for _, kind := range []FileKind{KindData, KindIndex, KindFilter} {
		w, err := fs.CreateTemp(1, kind)
		require.NoError(t, err)
		_, err = w.Write([]byte(kind.String()))
		require.NoError(t, err)
		require.NoError(t, w.Finish())
	}

	_, err := fs.Open(1, KindData)
	assert.ErrorIs(t, err, ErrNotFound, "must not be visible before Commit")

	require.NoError(t, fs.Commit(1))

	for _, kind := range []FileKind{KindData, KindIndex, KindFilter} {
		r, err := fs.Open(1, kind)
		require.NoError(t, err)
		buf := make([]byte, r.Size())
		_, err = r.ReadAt(buf, 0)
		require.NoError(t, err)
		assert.Equal(t, kind.String(), string(buf))
		require.NoError(t, r.Close())
	}
}

func TestInMemFS_Abort(t *testing.T) {
	fs := NewInMemFS()

	w, err := fs.CreateTemp(1, KindData)
	require.NoError(t, err)
	require.NoError(t, w.Abort())

	require.NoError(t, fs.Commit(1))
	_, err = fs.Open(1, KindData)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemFS_Remove(t *testing.T) {
	fs := NewInMemFS()

	w, err := fs.CreateTemp(1, KindData)
	require.NoError(t, err)
	require.NoError(t, w.Finish())
	require.NoError(t, fs.Commit(1))

	require.NoError(t, fs.Remove(1))
	_, err = fs.Open(1, KindData)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalFS_CommitOrdersDataFileLast(t *testing.T) {
	dir := t.TempDir()
	fs := NewLocalFS(dir)

	for _, kind := range []FileKind{KindData, KindIndex, KindFilter} {
		w, err := fs.CreateTemp(7, kind)
		require.NoError(t, err)
		_, err = w.Write([]byte(kind.String()))
		require.NoError(t, err)
		require.NoError(t, w.Finish())
	}

	require.NoError(t, fs.Commit(7))

	for _, kind := range []FileKind{KindData, KindIndex, KindFilter} {
		r, err := fs.Open(7, kind)
		require.NoError(t, err)
		buf := make([]byte, r.Size())
		_, err = r.ReadAt(buf, 0)
		require.NoError(t, err)
		assert.Equal(t, kind.String(), string(buf))
		require.NoError(t, r.Close())
	}

	_, err := os.Stat(fs.tempPath(7, KindData))
	assert.True(t, os.IsNotExist(err), "temp data file must be gone after commit")
}
