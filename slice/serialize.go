package slice

import (
	"encoding/binary"
	"fmt"

	"github.com/datnguyenzzz/column-sstable/column"
	"github.com/datnguyenzzz/column-sstable/key"
)

// hasNextKey / noNextKey discriminate the optional next_key field.
const (
	noNextKey   byte = 0
	hasNextKey  byte = 1
)

// EncodedSize returns the number of bytes Encode will write for m.
func (m Mark) EncodedSize() int {
	n := m.Meta.EncodedSize() + m.StartKey.EncodedSize() + m.EndKey.EncodedSize()
	n += 1 // next_key presence byte
	if m.NextKey != nil {
		n += m.NextKey.EncodedSize()
	}
	n += 4 + 4 + 1 // payload_len + col_count + status
	return n
}

// Encode appends the SliceMark record described in spec.md §6 to dst and
// returns the extended slice:
//
//	meta, start_key, end_key, next_key(optional), payload_len:u32, col_count:u32, status:u8
func (m Mark) Encode(dst []byte) []byte {
	dst = m.Meta.Encode(dst)
	dst = m.StartKey.Encode(dst)
	dst = m.EndKey.Encode(dst)
	if m.NextKey != nil {
		dst = append(dst, hasNextKey)
		dst = m.NextKey.Encode(dst)
	} else {
		dst = append(dst, noNextKey)
	}
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], m.PayloadLen)
	dst = append(dst, tmp[:]...)
	binary.BigEndian.PutUint32(tmp[:], m.ColCount)
	dst = append(dst, tmp[:]...)
	dst = append(dst, byte(m.Status))
	return dst
}

// DecodeMark parses a SliceMark record from the front of src, returning
// the mark and the number of bytes consumed.
func DecodeMark(src []byte) (Mark, int, error) {
	meta, n, err := column.DecodeMetadata(src)
	if err != nil {
		return Mark{}, 0, fmt.Errorf("slice: meta: %w", err)
	}
	off := n

	start, n, err := key.Decode(src[off:])
	if err != nil {
		return Mark{}, 0, fmt.Errorf("slice: start_key: %w", err)
	}
	off += n

	end, n, err := key.Decode(src[off:])
	if err != nil {
		return Mark{}, 0, fmt.Errorf("slice: end_key: %w", err)
	}
	off += n

	if len(src) < off+1 {
		return Mark{}, 0, fmt.Errorf("slice: truncated next_key presence byte")
	}
	var nextKey *key.ColumnKey
	present := src[off]
	off++
	if present == hasNextKey {
		nk, n, err := key.Decode(src[off:])
		if err != nil {
			return Mark{}, 0, fmt.Errorf("slice: next_key: %w", err)
		}
		nextKey = &nk
		off += n
	}

	if len(src) < off+4+4+1 {
		return Mark{}, 0, fmt.Errorf("slice: truncated trailer")
	}
	payloadLen := binary.BigEndian.Uint32(src[off:])
	off += 4
	colCount := binary.BigEndian.Uint32(src[off:])
	off += 4
	status := Status(src[off])
	off++

	return Mark{
		Meta:       meta,
		StartKey:   start,
		EndKey:     end,
		NextKey:    nextKey,
		PayloadLen: payloadLen,
		ColCount:   colCount,
		Status:     status,
	}, off, nil
}
