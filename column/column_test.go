package column

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumn_ComparePriority(t *testing.T) {
	type param struct {
		desc     string
		a        Column
		b        Column
		expected int
	}

	testList := []param{
		{
			desc:     "higher timestamp wins",
			a:        Column{Timestamp: 5},
			b:        Column{Timestamp: 3},
			expected: 1,
		},
		{
			desc:     "lower timestamp loses",
			a:        Column{Timestamp: 3},
			b:        Column{Timestamp: 5},
			expected: -1,
		},
		{
			desc:     "tie, tombstone beats live",
			a:        NewTombstone([]byte("c"), 10, 100),
			b:        Column{Timestamp: 10, Value: []byte("anything")},
			expected: 1,
		},
		{
			desc:     "tie, live loses to tombstone",
			a:        Column{Timestamp: 10, Value: []byte("anything")},
			b:        NewTombstone([]byte("c"), 10, 100),
			expected: -1,
		},
		{
			desc:     "tie, greater value wins",
			a:        Column{Timestamp: 10, Value: []byte("b")},
			b:        Column{Timestamp: 10, Value: []byte("a")},
			expected: 1,
		},
		{
			desc:     "fully equal",
			a:        Column{Timestamp: 10, Value: []byte("a")},
			b:        Column{Timestamp: 10, Value: []byte("a")},
			expected: 0,
		},
	}

	for _, tc := range testList {
		t.Run(tc.desc, func(t *testing.T) {
			got := tc.a.ComparePriority(tc.b)
			if tc.expected > 0 {
				assert.Positive(t, got)
			} else if tc.expected < 0 {
				assert.Negative(t, got)
			} else {
				assert.Zero(t, got)
			}
		})
	}
}

func TestColumn_IsDeleted(t *testing.T) {
	liveMeta := NewMetadata(1)
	deletedMeta := Metadata{{MarkedForDeleteAt: 50, LocalDeletionTime: 1000}}

	type param struct {
		desc      string
		col       Column
		meta      Metadata
		major     bool
		gcBefore  int32
		expected  bool
	}

	testList := []param{
		{
			desc:     "live column under live parent",
			col:      Column{Timestamp: 100},
			meta:     liveMeta,
			expected: false,
		},
		{
			desc:     "column predates parent tombstone",
			col:      Column{Timestamp: 10},
			meta:     deletedMeta,
			expected: true,
		},
		{
			desc:     "column postdates parent tombstone survives",
			col:      Column{Timestamp: 100},
			meta:     deletedMeta,
			expected: false,
		},
		{
			desc:     "own tombstone not yet gc-eligible on minor compaction",
			col:      NewTombstone([]byte("x"), 100, 500),
			meta:     liveMeta,
			major:    false,
			gcBefore: 1000,
			expected: false,
		},
		{
			desc:     "own tombstone gc-eligible on major compaction past gcBefore",
			col:      NewTombstone([]byte("x"), 100, 500),
			meta:     liveMeta,
			major:    true,
			gcBefore: 1000,
			expected: true,
		},
		{
			desc:     "own tombstone not yet past gcBefore even on major",
			col:      NewTombstone([]byte("x"), 100, 2000),
			meta:     liveMeta,
			major:    true,
			gcBefore: 1000,
			expected: false,
		},
	}

	for _, tc := range testList {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.col.IsDeleted(tc.meta, tc.major, tc.gcBefore))
		})
	}
}

func TestColumn_EncodeDecode_Roundtrip(t *testing.T) {
	testList := []Column{
		{Name: []byte("col"), Value: []byte("val"), Timestamp: 42, Flags: 0},
		NewTombstone([]byte("deleted"), 99, 12345),
		{Name: []byte(""), Value: []byte(""), Timestamp: 0, Flags: 0},
	}

	for _, c := range testList {
		encoded := c.Encode(nil)
		assert.Equal(t, len(encoded), c.EncodedSize())

		decoded, n, err := DecodeColumn(encoded)
		assert.NoError(t, err)
		assert.Equal(t, len(encoded), n)
		assert.Equal(t, c, decoded)
	}
}
