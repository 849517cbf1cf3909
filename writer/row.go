package writer

import (
	"github.com/datnguyenzzz/column-sstable/column"
	"github.com/datnguyenzzz/column-sstable/key"
)

// SuperColumn is one supercolumn's worth of subcolumns, carrying its own
// deletion bookkeeping independent of its siblings.
type SuperColumn struct {
	Name              []byte
	MarkedForDeleteAt int64
	LocalDeletionTime int32
	Columns           []column.Column
}

// Row is an in-memory column family for one DecoratedKey, flattened
// from whatever higher-level representation a caller assembled it in.
// AppendRow exists for callers that build up an entire row before
// writing it — memtable flush being the canonical case — rather than
// streaming individual (Metadata, ColumnKey, Column) triples themselves.
type Row struct {
	MarkedForDeleteAt int64
	LocalDeletionTime int32

	// Columns holds the row's columns for a standard column family.
	// Exactly one of Columns or SuperColumns should be set.
	Columns []column.Column

	// SuperColumns holds the row's supercolumns for a super column
	// family, each with an additional level of deletion metadata.
	SuperColumns []SuperColumn
}

// AppendRow flattens row into a sequence of Append calls, qualifying
// each column with dk and its parent name(s) and folding the row's (and,
// for a super CF, each supercolumn's) deletion bookkeeping into the
// Metadata passed down. Grounded on the original SSTableWriter's
// flatteningAppend, the bridge between an in-memory column family and
// the append-in-key-order contract this writer requires.
func (w *Writer) AppendRow(dk key.DecoratedKey, row Row) error {
	meta := column.Metadata{{MarkedForDeleteAt: row.MarkedForDeleteAt, LocalDeletionTime: row.LocalDeletionTime}}

	if len(row.SuperColumns) == 0 {
		for _, col := range row.Columns {
			ck := key.ColumnKey{DK: dk, Names: []key.Name{key.RealName(col.Name)}}
			if err := w.Append(meta, ck, col); err != nil {
				return err
			}
		}
		return nil
	}

	for _, sc := range row.SuperColumns {
		childMeta := column.Metadata{
			meta[0],
			{MarkedForDeleteAt: sc.MarkedForDeleteAt, LocalDeletionTime: sc.LocalDeletionTime},
		}
		for _, col := range sc.Columns {
			ck := key.ColumnKey{DK: dk, Names: []key.Name{key.RealName(sc.Name), key.RealName(col.Name)}}
			if err := w.Append(childMeta, ck, col); err != nil {
				return err
			}
		}
	}
	return nil
}
