package column

import (
	"encoding/binary"
	"fmt"
)

// EncodedSize returns the number of bytes Encode will write for c.
func (c Column) EncodedSize() int {
	n := 2 + len(c.Name) + 8 + 1 + 4 + len(c.Value)
	if c.Flags.IsTombstone() {
		n += 4
	}
	return n
}

// Encode appends the Column record described in spec.md §6 to dst and
// returns the extended slice:
//
//	name_len:u16 name:bytes timestamp:i64 flags:u8 value_len:u32 value:bytes
//
// followed, only when FlagTombstone is set, by local_deletion_time:i32 —
// an extension beyond the bare wire shape spec.md §6 names, needed
// because a dropped tombstone can never be reconstructed from a replay
// of its siblings' records.
func (c Column) Encode(dst []byte) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint16(tmp[:2], uint16(len(c.Name)))
	dst = append(dst, tmp[:2]...)
	dst = append(dst, c.Name...)

	binary.BigEndian.PutUint64(tmp[:8], uint64(c.Timestamp))
	dst = append(dst, tmp[:8]...)

	dst = append(dst, byte(c.Flags))

	binary.BigEndian.PutUint32(tmp[:4], uint32(len(c.Value)))
	dst = append(dst, tmp[:4]...)
	dst = append(dst, c.Value...)

	if c.Flags.IsTombstone() {
		binary.BigEndian.PutUint32(tmp[:4], uint32(c.LocalDeletionTime))
		dst = append(dst, tmp[:4]...)
	}
	return dst
}

// DecodeColumn parses a Column record from the front of src, returning
// the column and the number of bytes consumed.
func DecodeColumn(src []byte) (Column, int, error) {
	if len(src) < 2 {
		return Column{}, 0, fmt.Errorf("column: truncated name_len")
	}
	off := 0
	nameLen := int(binary.BigEndian.Uint16(src[off:]))
	off += 2
	if len(src) < off+nameLen+8+1+4 {
		return Column{}, 0, fmt.Errorf("column: truncated header")
	}
	name := src[off : off+nameLen]
	off += nameLen

	ts := int64(binary.BigEndian.Uint64(src[off:]))
	off += 8

	flags := Flags(src[off])
	off++

	valLen := int(binary.BigEndian.Uint32(src[off:]))
	off += 4
	if len(src) < off+valLen {
		return Column{}, 0, fmt.Errorf("column: truncated value")
	}
	val := src[off : off+valLen]
	if valLen == 0 && flags.IsTombstone() {
		val = nil // a tombstone carries no value, as NewTombstone builds it
	}
	off += valLen

	c := Column{Name: name, Value: val, Timestamp: ts, Flags: flags}
	if flags.IsTombstone() {
		if len(src) < off+4 {
			return Column{}, 0, fmt.Errorf("column: truncated local_deletion_time")
		}
		c.LocalDeletionTime = int32(binary.BigEndian.Uint32(src[off:]))
		off += 4
	}
	return c, off, nil
}

// EncodedSize returns the number of bytes Encode will write for m.
func (m Metadata) EncodedSize() int {
	return 1 + len(m)*(8+4)
}

// Encode appends the Metadata record described in spec.md §6 to dst and
// returns the extended slice:
//
//	depth:u8, then depth pairs of (marked_for_delete_at:i64, local_deletion_time:i32)
func (m Metadata) Encode(dst []byte) []byte {
	dst = append(dst, byte(len(m)))
	var tmp [8]byte
	for _, mark := range m {
		binary.BigEndian.PutUint64(tmp[:8], uint64(mark.MarkedForDeleteAt))
		dst = append(dst, tmp[:8]...)
		binary.BigEndian.PutUint32(tmp[:4], uint32(mark.LocalDeletionTime))
		dst = append(dst, tmp[:4]...)
	}
	return dst
}

// DecodeMetadata parses a Metadata record from the front of src,
// returning the metadata and the number of bytes consumed.
func DecodeMetadata(src []byte) (Metadata, int, error) {
	if len(src) < 1 {
		return nil, 0, fmt.Errorf("metadata: truncated depth")
	}
	depth := int(src[0])
	off := 1
	if len(src) < off+depth*12 {
		return nil, 0, fmt.Errorf("metadata: truncated marks")
	}
	m := make(Metadata, depth)
	for i := 0; i < depth; i++ {
		markedAt := int64(binary.BigEndian.Uint64(src[off:]))
		off += 8
		ldt := int32(binary.BigEndian.Uint32(src[off:]))
		off += 4
		m[i] = DeletionMark{MarkedForDeleteAt: markedAt, LocalDeletionTime: ldt}
	}
	return m, off, nil
}
