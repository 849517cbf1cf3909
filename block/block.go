// Package block implements the physical block: the compressed,
// checksummed byte range an SST's data file is divided into, framed by
// the BlockHeader spec.md §6 and §9 describe. The index and filter files
// are written without block framing.
package block

import (
	"encoding/binary"
	"hash/crc32"
)

// Kind distinguishes the three physical block roles an SST file holds,
// mirroring block.BlockKind in the teacher package this is adapted from.
type Kind byte

const (
	KindUnknown Kind = iota
	KindData
	KindIndex
	KindFilter
)

// HeaderLen is the size of the BlockHeader written immediately before
// every physical block's (possibly compressed) payload: a u32 payload
// length, a codec tag byte, and 3 reserved bytes.
//
// The codec tag records which compression.Codec produced the payload:
// the writer stores the tag of its configured data codec
// (WriteOpt.DataCompression, Snappy by default) and the reader picks
// the decompressor from it. See compression.Codec.
const HeaderLen = 4 + 1 + 3

// TrailerLen is the size of the trailer appended after a physical
// block's payload: one auxiliary byte (the block Kind, folded into the
// checksum so a block can't be silently reinterpreted as another kind)
// plus a CRC32 checksum.
const TrailerLen = 1 + 4

// Header is the fixed-size record preceding a block's payload.
type Header struct {
	PayloadLen uint32
	CodecTag   byte
}

// EncodeHeader writes h into the first HeaderLen bytes of dst.
func EncodeHeader(h Header, dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:4], h.PayloadLen)
	dst[4] = h.CodecTag
	dst[5], dst[6], dst[7] = 0, 0, 0
}

// DecodeHeader reads a Header from the first HeaderLen bytes of src.
func DecodeHeader(src []byte) Header {
	return Header{
		PayloadLen: binary.LittleEndian.Uint32(src[0:4]),
		CodecTag:   src[4],
	}
}

// Physical is a block as it sits on disk: header, payload, and trailer.
type Physical struct {
	Header  Header
	Payload []byte
	Trailer [TrailerLen]byte
}

// Size is the full on-disk footprint of p, header and trailer included.
func (p *Physical) Size() int {
	return HeaderLen + len(p.Payload) + TrailerLen
}

// SetTrailer computes and stores p's trailer from its payload and kind.
func (p *Physical) SetTrailer(kind Kind) {
	var aux [1]byte
	aux[0] = byte(kind)
	checksum := crc32.ChecksumIEEE(p.Payload)
	checksum = crc32.Update(checksum, crc32.IEEETable, aux[:])

	p.Trailer[0] = aux[0]
	binary.LittleEndian.PutUint32(p.Trailer[1:], checksum)
}

// VerifyTrailer reports whether p's stored trailer matches its payload,
// catching silent corruption before the caller trusts the bytes. A
// mismatch surfaces to the caller as a CorruptSSTable-class error.
func (p *Physical) VerifyTrailer() bool {
	var aux [1]byte
	aux[0] = p.Trailer[0]
	checksum := crc32.ChecksumIEEE(p.Payload)
	checksum = crc32.Update(checksum, crc32.IEEETable, aux[:])
	return binary.LittleEndian.Uint32(p.Trailer[1:]) == checksum
}

// Handle locates a block within its file.
type Handle struct {
	Offset uint64
	Length uint64 // includes header and trailer
}

// EncodeInto writes bh as two varints into buf, returning the number of
// bytes written.
func (bh Handle) EncodeInto(buf []byte) int {
	n := binary.PutUvarint(buf, bh.Offset)
	m := binary.PutUvarint(buf[n:], bh.Length)
	return n + m
}

// DecodeFrom reads a Handle from two varints at the front of buf,
// returning the number of bytes consumed, or 0 on malformed input.
func DecodeFrom(buf []byte) (Handle, int) {
	offset, n := binary.Uvarint(buf)
	if n <= 0 {
		return Handle{}, 0
	}
	length, m := binary.Uvarint(buf[n:])
	if m <= 0 {
		return Handle{}, 0
	}
	return Handle{Offset: offset, Length: length}, n + m
}
