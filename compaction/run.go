package compaction

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/datnguyenzzz/column-sstable/writer"
)

// Run drains it into w, one AppendSlice call per output slice, then
// closes both — it, then w — aggregating every error encountered along
// the way with go.uber.org/multierr. Convenience wrapper around the
// Iterator/Writer pair for callers that just want "merge these SSTs
// into one," per spec.md §4.4's worked compaction driver.
func Run(it *Iterator, w *writer.Writer) (writer.Footer, error) {
	var err error
	for it.Next() {
		if appendErr := w.AppendSlice(it.Get()); appendErr != nil {
			err = multierr.Append(err, appendErr)
			break
		}
	}
	err = multierr.Append(err, it.Err())
	err = multierr.Append(err, it.Close())

	if err != nil {
		zap.L().Error("compaction: run failed, aborting output", zap.Error(err))
		err = multierr.Append(err, w.Abort())
		return writer.Footer{}, err
	}

	footer, closeErr := w.Close()
	if closeErr != nil {
		return writer.Footer{}, closeErr
	}
	return footer, nil
}
