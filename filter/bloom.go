// Package filter implements the per-SST Bloom filter spec.md §4.2
// describes: a blocked Bloom filter (cache-line-sized buckets, per
// https://save-buffer.github.io/bloom_filter.html) probed on the
// combination of a row's decorated key and a column name before the
// reader trusts the sparse index, adapted from the teacher's
// filter.bloomFilter.
package filter

import (
	"encoding/binary"
	"sync"
)

const (
	// DefaultBitsPerKey sizes the filter for roughly a 1% false-positive
	// rate at the engine's typical fan-out of ~11 columns probed per row
	// (spec.md §4.2).
	DefaultBitsPerKey = 11
	hashBlockLen       = 0x4000
	cacheLineBytesSize = 64
	cacheLineBitsSize  = 8 * cacheLineBytesSize
)

type blockHash [hashBlockLen]uint32

var blockHashPool = sync.Pool{
	New: func() interface{} {
		return &blockHash{}
	},
}

// Writer accumulates probe keys for one whole SST and builds the
// serialized filter bytes written into the SST's filter file.
type Writer struct {
	bitsPerKey int

	blocks   []*blockHash
	numKeys  int
	lastHash uint32
}

// NewWriter returns a Writer sized for bitsPerKey bits per added key.
func NewWriter(bitsPerKey int) *Writer {
	if bitsPerKey <= 0 {
		bitsPerKey = DefaultBitsPerKey
	}
	return &Writer{bitsPerKey: bitsPerKey}
}

// Add records one probe key: typically the concatenation of a row's
// DecoratedKey and a column name, per spec.md §4.2. Consecutive
// duplicate keys (a common pattern when adding every column of the same
// row back to back) are deduplicated cheaply via lastHash.
func (w *Writer) Add(probeKey []byte) {
	h := bloomHash(probeKey)
	if w.numKeys > 0 && w.lastHash == h {
		return
	}

	pos := w.numKeys % hashBlockLen
	if pos == 0 {
		w.blocks = append(w.blocks, blockHashPool.Get().(*blockHash))
	}

	w.blocks[len(w.blocks)-1][pos] = h
	w.lastHash = h
	w.numKeys++
}

// Build appends the serialized filter to dst and returns the extended
// slice. The format is self-describing: nLines and nProbes trail the
// bit array so MayContain needs no side channel.
func (w *Writer) Build(dst []byte) []byte {
	nLines := (w.numKeys*w.bitsPerKey + cacheLineBitsSize - 1) / cacheLineBitsSize
	if nLines == 0 {
		nLines = 1
	}
	if nLines%2 == 0 {
		nLines++
	}
	nBytes := nLines * cacheLineBytesSize

	base := len(dst)
	dst = append(dst, make([]byte, nBytes+5)...)
	bits := dst[base : base+nBytes]

	nProbes := calculateProbes(w.bitsPerKey)
	for idx, blk := range w.blocks {
		nHashes := hashBlockLen
		if idx == len(w.blocks)-1 && w.numKeys%hashBlockLen != 0 {
			nHashes = w.numKeys % hashBlockLen
		}
		for _, h := range blk[:nHashes] {
			delta := h>>17 | h<<15
			startPos := (h % uint32(nLines)) * cacheLineBitsSize
			hh := h
			for p := byte(0); p < nProbes; p++ {
				bitPos := startPos + (hh % cacheLineBitsSize)
				bits[bitPos/8] |= 1 << (bitPos % 8)
				hh += delta
			}
		}
	}
	dst[base+nBytes] = nProbes
	binary.LittleEndian.PutUint32(dst[base+nBytes+1:], uint32(nLines))

	for i, blk := range w.blocks {
		blockHashPool.Put(blk)
		w.blocks[i] = nil
	}
	w.blocks = w.blocks[:0]
	w.numKeys = 0

	return dst
}

// MayContain reports whether probeKey might be present in filter — a
// false positive is possible, a false negative never is.
func MayContain(filter, probeKey []byte) bool {
	if len(filter) <= 5 {
		return false
	}
	n := len(filter) - 5
	nProbes := filter[n]
	nLines := binary.LittleEndian.Uint32(filter[n+1:])
	if nLines == 0 {
		return false
	}
	cacheLineBits := 8 * (uint32(n) / nLines)

	h := bloomHash(probeKey)
	delta := h>>17 | h<<15
	b := (h % nLines) * cacheLineBits

	for j := byte(0); j < nProbes; j++ {
		bitPos := b + (h % cacheLineBits)
		if filter[bitPos/8]&(1<<(bitPos%8)) == 0 {
			return false
		}
		h += delta
	}
	return true
}

func calculateProbes(bitsPerKey int) byte {
	n := byte(float64(bitsPerKey) * 0.69) // ln(2)
	if n < 1 {
		n = 1
	}
	if n > 30 {
		n = 30
	}
	return n
}

// bloomHash hashes probeKey, following the LevelDB/RocksDB-style
// algorithm the teacher's bloomHash implements (signed byte
// sign-extension included, to keep the bit distribution it relies on).
func bloomHash(b []byte) uint32 {
	const (
		seed = 0xbc9f1d34
		m    = 0xc6a4a793
	)
	h := uint32(seed) ^ uint32(uint64(uint32(len(b))*m))
	for ; len(b) >= 4; b = b[4:] {
		h += uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
		h *= m
		h ^= h >> 16
	}

	switch len(b) {
	case 3:
		h += uint32(int8(b[2])) << 16
		fallthrough
	case 2:
		h += uint32(int8(b[1])) << 8
		fallthrough
	case 1:
		h += uint32(int8(b[0]))
		h *= m
		h ^= h >> 24
	}
	return h
}
