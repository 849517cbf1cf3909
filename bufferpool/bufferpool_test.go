package bufferpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetPoolIDAndCapacity(t *testing.T) {
	type param struct {
		desc        string
		size        int
		expectedID  int
		expectedCap int
	}

	testList := []param{
		{"zero size", 0, 0, 256},
		{"one byte", 1, 0, 256},
		{"max small pool", 256, 0, 256},
		{"min medium pool", 257, 1, 512},
		{"max medium pool", 512, 1, 512},
		{"min large pool", 513, 2, 1024},
		{"negative size", -1, 0, 256},
	}

	for _, tc := range testList {
		t.Run(tc.desc, func(t *testing.T) {
			id, poolCap := getPoolIDAndCapacity(tc.size)
			assert.Equal(t, tc.expectedID, id)
			assert.Equal(t, tc.expectedCap, poolCap)
		})
	}
}

func TestGetPut_Roundtrip(t *testing.T) {
	b := Get(4096)
	assert.Equal(t, 0, len(b))
	assert.GreaterOrEqual(t, cap(b), 4096)

	b = append(b, []byte("hello")...)
	Put(b)

	b2 := Get(4096)
	assert.Equal(t, 0, len(b2))
}
