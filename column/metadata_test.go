package column

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetadata_Resolve(t *testing.T) {
	type param struct {
		desc     string
		a        Metadata
		b        Metadata
		expected Metadata
	}

	testList := []param{
		{
			desc:     "pairwise max per level",
			a:        Metadata{{MarkedForDeleteAt: 10, LocalDeletionTime: 100}, {MarkedForDeleteAt: 5, LocalDeletionTime: 50}},
			b:        Metadata{{MarkedForDeleteAt: 3, LocalDeletionTime: 30}, {MarkedForDeleteAt: 8, LocalDeletionTime: 80}},
			expected: Metadata{{MarkedForDeleteAt: 10, LocalDeletionTime: 100}, {MarkedForDeleteAt: 8, LocalDeletionTime: 80}},
		},
		{
			desc:     "both live stays live",
			a:        NewMetadata(1),
			b:        NewMetadata(1),
			expected: Metadata{Live},
		},
	}

	for _, tc := range testList {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.expected, Resolve(tc.a, tc.b))
			// Resolve must be commutative.
			assert.Equal(t, tc.expected, Resolve(tc.b, tc.a))
		})
	}
}

func TestMetadata_DeletesAt(t *testing.T) {
	m := Metadata{{MarkedForDeleteAt: 10}, {MarkedForDeleteAt: -1}}

	assert.True(t, m.DeletesAt(10))
	assert.True(t, m.DeletesAt(5))
	assert.False(t, m.DeletesAt(11))
}

func TestMetadata_EncodeDecode_Roundtrip(t *testing.T) {
	m := Metadata{
		{MarkedForDeleteAt: -1, LocalDeletionTime: 0},
		{MarkedForDeleteAt: 123456, LocalDeletionTime: 789},
	}

	encoded := m.Encode(nil)
	assert.Equal(t, len(encoded), m.EncodedSize())

	decoded, n, err := DecodeMetadata(encoded)
	assert.NoError(t, err)
	assert.Equal(t, len(encoded), n)
	assert.Equal(t, m, decoded)
}
