package key

import (
	"encoding/binary"
	"fmt"
)

// sentinelFlag distinguishes, for a zero-length name component, whether
// it is a genuinely empty real name or one of the two sentinels. Real
// non-empty names never need a flag byte.
type sentinelFlag byte

const (
	flagRealEmpty sentinelFlag = iota
	flagBegin
	flagEnd
)

// EncodedSize returns the number of bytes Encode will write for k.
func (k ColumnKey) EncodedSize() int {
	n := 2 + 2 + len(k.DK.Token) + 2 + len(k.DK.RawKey) // dk_len + token + rawkey lengths
	n += 1                                              // name_count
	for _, nm := range k.Names {
		n += 2 // length prefix
		if nm.Kind == NameReal && len(nm.Bytes) > 0 {
			n += len(nm.Bytes)
		} else {
			n += 1 // discriminating flag byte
		}
	}
	return n
}

// Encode appends the ColumnKey record described in spec.md §6 to dst and
// returns the extended slice:
//
//	dk_len:u16 dk_bytes name_count:u8
//	  name_count * (len:u16, [flag:u8] | bytes)
//
// dk_bytes is itself `token_len:u16 token rawkey_len:u16 rawkey`; dk_len
// is the combined length of that inner encoding.
func (k ColumnKey) Encode(dst []byte) []byte {
	dkLen := 2 + len(k.DK.Token) + 2 + len(k.DK.RawKey)
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], uint16(dkLen))
	dst = append(dst, tmp[:]...)

	binary.BigEndian.PutUint16(tmp[:], uint16(len(k.DK.Token)))
	dst = append(dst, tmp[:]...)
	dst = append(dst, k.DK.Token...)

	binary.BigEndian.PutUint16(tmp[:], uint16(len(k.DK.RawKey)))
	dst = append(dst, tmp[:]...)
	dst = append(dst, k.DK.RawKey...)

	dst = append(dst, byte(len(k.Names)))
	for _, nm := range k.Names {
		dst = encodeName(dst, nm)
	}
	return dst
}

func encodeName(dst []byte, nm Name) []byte {
	var tmp [2]byte
	if nm.Kind == NameReal && len(nm.Bytes) > 0 {
		binary.BigEndian.PutUint16(tmp[:], uint16(len(nm.Bytes)))
		dst = append(dst, tmp[:]...)
		dst = append(dst, nm.Bytes...)
		return dst
	}
	binary.BigEndian.PutUint16(tmp[:], 0)
	dst = append(dst, tmp[:]...)
	switch nm.Kind {
	case NameBegin:
		dst = append(dst, byte(flagBegin))
	case NameEnd:
		dst = append(dst, byte(flagEnd))
	default:
		dst = append(dst, byte(flagRealEmpty))
	}
	return dst
}

// Decode parses a ColumnKey record from the front of src, returning the
// key and the number of bytes consumed.
func Decode(src []byte) (ColumnKey, int, error) {
	if len(src) < 2 {
		return ColumnKey{}, 0, fmt.Errorf("key: truncated dk_len")
	}
	off := 0
	dkLen := int(binary.BigEndian.Uint16(src[off:]))
	off += 2
	if len(src) < off+dkLen+1 {
		return ColumnKey{}, 0, fmt.Errorf("key: truncated dk")
	}
	dkEnd := off + dkLen
	dk, err := decodeDK(src[off:dkEnd])
	if err != nil {
		return ColumnKey{}, 0, err
	}
	off = dkEnd

	nameCount := int(src[off])
	off++
	names := make([]Name, 0, nameCount)
	for i := 0; i < nameCount; i++ {
		nm, n, err := decodeName(src[off:])
		if err != nil {
			return ColumnKey{}, 0, err
		}
		names = append(names, nm)
		off += n
	}
	return ColumnKey{DK: dk, Names: names}, off, nil
}

func decodeDK(src []byte) (DecoratedKey, error) {
	if len(src) < 2 {
		return DecoratedKey{}, fmt.Errorf("key: truncated token_len")
	}
	off := 0
	tokLen := int(binary.BigEndian.Uint16(src[off:]))
	off += 2
	if len(src) < off+tokLen+2 {
		return DecoratedKey{}, fmt.Errorf("key: truncated token")
	}
	token := src[off : off+tokLen]
	off += tokLen

	rawLen := int(binary.BigEndian.Uint16(src[off:]))
	off += 2
	if len(src) < off+rawLen {
		return DecoratedKey{}, fmt.Errorf("key: truncated rawkey")
	}
	raw := src[off : off+rawLen]

	return DecoratedKey{Token: token, RawKey: raw}, nil
}

func decodeName(src []byte) (Name, int, error) {
	if len(src) < 2 {
		return Name{}, 0, fmt.Errorf("key: truncated name length")
	}
	n := int(binary.BigEndian.Uint16(src))
	if n > 0 {
		if len(src) < 2+n {
			return Name{}, 0, fmt.Errorf("key: truncated name bytes")
		}
		return RealName(src[2 : 2+n]), 2 + n, nil
	}
	if len(src) < 3 {
		return Name{}, 0, fmt.Errorf("key: truncated sentinel flag")
	}
	switch sentinelFlag(src[2]) {
	case flagBegin:
		return Begin(), 3, nil
	case flagEnd:
		return End(), 3, nil
	default:
		return RealName(nil), 3, nil
	}
}
