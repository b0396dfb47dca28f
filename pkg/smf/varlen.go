package smf

import "io"

// maxVarLenBytes is the longest variable-length quantity SMF allows.
const maxVarLenBytes = 4

// MaxVarLen is the largest value a 4-byte quantity can hold.
const MaxVarLen = 0x0FFFFFFF

// ReadVarLen decodes a variable-length quantity: 7 bits per byte, most
// significant group first, high bit set on every byte but the last.
// At most four bytes are consumed.
func ReadVarLen(r io.ByteReader) (uint32, error) {
	var value uint32
	for range maxVarLenBytes {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		value = value<<7 | uint32(b&0x7F)
		if b&0x80 == 0 {
			break
		}
	}
	return value, nil
}

// AppendVarLen appends the variable-length encoding of v to dst.
// Values above MaxVarLen are truncated to 28 bits.
func AppendVarLen(dst []byte, v uint32) []byte {
	v &= MaxVarLen
	var buf [maxVarLenBytes]byte
	i := len(buf) - 1
	buf[i] = byte(v & 0x7F)
	for v >>= 7; v > 0; v >>= 7 {
		i--
		buf[i] = byte(v&0x7F) | 0x80
	}
	return append(dst, buf[i:]...)
}
