package slice

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/datnguyenzzz/column-sstable/column"
	"github.com/datnguyenzzz/column-sstable/key"
)

func dummyKey(name string) key.ColumnKey {
	return key.ColumnKey{
		DK:    key.DecoratedKey{Token: []byte("t"), RawKey: []byte("row")},
		Names: []key.Name{key.RealName([]byte(name))},
	}
}

func TestMark_EncodeDecode_Roundtrip(t *testing.T) {
	next := dummyKey("next")

	testList := []Mark{
		{
			Meta:       column.NewMetadata(1),
			StartKey:   dummyKey("a"),
			EndKey:     dummyKey("z"),
			NextKey:    nil,
			PayloadLen: 1024,
			ColCount:   7,
			Status:     StatusEnd,
		},
		{
			Meta:       column.Metadata{{MarkedForDeleteAt: 10, LocalDeletionTime: 20}},
			StartKey:   dummyKey("a"),
			EndKey:     dummyKey("m"),
			NextKey:    &next,
			PayloadLen: 16384,
			ColCount:   128,
			Status:     StatusContinue,
		},
	}

	for _, m := range testList {
		encoded := m.Encode(nil)
		assert.Equal(t, len(encoded), m.EncodedSize())

		decoded, n, err := DecodeMark(encoded)
		assert.NoError(t, err)
		assert.Equal(t, len(encoded), n)
		assert.Equal(t, m.PayloadLen, decoded.PayloadLen)
		assert.Equal(t, m.ColCount, decoded.ColCount)
		assert.Equal(t, m.Status, decoded.Status)
		if m.NextKey == nil {
			assert.Nil(t, decoded.NextKey)
		} else {
			assert.NotNil(t, decoded.NextKey)
		}
	}
}
