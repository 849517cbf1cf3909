// Package compression implements the pluggable per-block codecs an SST
// writer uses for its data blocks, grounded on the
// teacher's compression package (which wraps golang/snappy and
// DataDog/zstd behind one interface).
package compression

import (
	"encoding/binary"
	"fmt"

	"github.com/DataDog/zstd"
	"github.com/golang/snappy"
)

// Tag is the codec identifier written into block.Header.CodecTag, the
// field spec.md §9 calls out. Each block carries the tag of the codec
// that compressed it; the writer's default is Snappy
// (options.DefaultWriteOpt), with Identity and Zstd selectable.
type Tag byte

const (
	Identity Tag = iota
	Snappy
	Zstd
)

// Codec compresses and decompresses one physical block's payload.
type Codec interface {
	Tag() Tag
	// Compress appends the compressed form of src to dst[:0] and returns
	// the extended slice.
	Compress(dst, src []byte) []byte
	// Decompress decompresses compressed into buf, which must be sized
	// exactly to DecompressedLen(compressed).
	Decompress(buf, compressed []byte) error
	// DecompressedLen returns the size buf must have for Decompress.
	DecompressedLen(compressed []byte) (int, error)
}

// New returns the Codec for tag.
func New(tag Tag) Codec {
	switch tag {
	case Snappy:
		return snappyCodec{}
	case Zstd:
		return zstdCodec{}
	default:
		return identityCodec{}
	}
}

type identityCodec struct{}

func (identityCodec) Tag() Tag                 { return Identity }
func (identityCodec) Compress(dst, src []byte) []byte { return append(dst[:0], src...) }
func (identityCodec) Decompress(buf, compressed []byte) error {
	if len(buf) != len(compressed) {
		return fmt.Errorf("compression: identity: dst size %d != src size %d", len(buf), len(compressed))
	}
	copy(buf, compressed)
	return nil
}
func (identityCodec) DecompressedLen(compressed []byte) (int, error) { return len(compressed), nil }

type snappyCodec struct{}

func (snappyCodec) Tag() Tag { return Snappy }

func (snappyCodec) Compress(dst, src []byte) []byte {
	dst = dst[:cap(dst):cap(dst)]
	return snappy.Encode(dst, src)
}

func (snappyCodec) Decompress(buf, compressed []byte) error {
	res, err := snappy.Decode(buf, compressed)
	if err != nil {
		return err
	}
	if len(res) != len(buf) || (len(res) > 0 && &res[0] != &buf[0]) {
		return fmt.Errorf("compression: snappy: decoded into a different buffer than provided")
	}
	return nil
}

func (snappyCodec) DecompressedLen(b []byte) (int, error) {
	return snappy.DecodedLen(b)
}

type zstdCodec struct{}

const zstdLevel = 3

func (zstdCodec) Tag() Tag { return Zstd }

// Compress prefixes its output with a uvarint encoding of len(src), since
// DataDog/zstd's wire format doesn't self-describe the decompressed
// length the way snappy's does.
func (zstdCodec) Compress(dst, src []byte) []byte {
	if len(dst) < binary.MaxVarintLen64 {
		dst = append(dst, make([]byte, binary.MaxVarintLen64-len(dst))...)
	}
	bound := zstd.CompressBound(len(src))
	if cap(dst) < binary.MaxVarintLen64+bound {
		dst = make([]byte, binary.MaxVarintLen64, binary.MaxVarintLen64+bound)
	}
	zCtx := zstd.NewCtx()
	varIntLen := binary.PutUvarint(dst, uint64(len(src)))
	result, err := zCtx.CompressLevel(dst[varIntLen:varIntLen+bound], src, zstdLevel)
	if err != nil {
		panic(fmt.Sprintf("compression: zstd compress: %v", err))
	}
	return dst[:varIntLen+len(result)]
}

func (zstdCodec) Decompress(buf, compressed []byte) error {
	_, prefixLen := binary.Uvarint(compressed)
	compressed = compressed[prefixLen:]
	if len(compressed) == 0 {
		return fmt.Errorf("compression: zstd: empty src buffer")
	}
	if len(buf) == 0 {
		return fmt.Errorf("compression: zstd: empty dst buffer")
	}
	zCtx := zstd.NewCtx()
	_, err := zCtx.DecompressInto(buf, compressed)
	return err
}

func (zstdCodec) DecompressedLen(b []byte) (int, error) {
	decodedLen, varIntLen := binary.Uvarint(b)
	if varIntLen <= 0 {
		return 0, fmt.Errorf("compression: zstd: malformed length prefix")
	}
	return int(decodedLen), nil
}
