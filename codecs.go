package pmap

import "encoding/binary"

// Uint64Codec encodes a uint64 as 8 bytes, big-endian, the usual wire
// encoding for integer keys (binary.BigEndian.PutUint64).
type Uint64Codec struct{}

func (Uint64Codec) Size() uint32 { return 8 }

func (Uint64Codec) Encode(v uint64, dst []byte) { binary.BigEndian.PutUint64(dst, v) }

func (Uint64Codec) Decode(src []byte) uint64 { return binary.BigEndian.Uint64(src) }

// Uint32Codec encodes a uint32 as 4 bytes, big-endian.
type Uint32Codec struct{}

func (Uint32Codec) Size() uint32 { return 4 }

func (Uint32Codec) Encode(v uint32, dst []byte) { binary.BigEndian.PutUint32(dst, v) }

func (Uint32Codec) Decode(src []byte) uint32 { return binary.BigEndian.Uint32(src) }

// FixedStringCodec encodes a string into a fixed-width, NUL-padded slot of
// Width bytes. Strings longer than Width are truncated on Encode.
type FixedStringCodec struct {
	Width uint32
}

func (c FixedStringCodec) Size() uint32 { return c.Width }

func (c FixedStringCodec) Encode(v string, dst []byte) {
	for i := range dst {
		dst[i] = 0
	}

	copy(dst, v)
}

func (c FixedStringCodec) Decode(src []byte) string {
	end := len(src)
	for end > 0 && src[end-1] == 0 {
		end--
	}

	return string(src[:end])
}

// FixedBytesCodec encodes a []byte into a fixed-width, zero-padded slot.
// Unlike FixedStringCodec, Decode does not strip the padding: it returns
// all Width bytes, so trailing zero bytes of the original value are not
// distinguishable from padding.
type FixedBytesCodec struct {
	Width uint32
}

func (c FixedBytesCodec) Size() uint32 { return c.Width }

func (c FixedBytesCodec) Encode(v []byte, dst []byte) {
	for i := range dst {
		dst[i] = 0
	}

	copy(dst, v)
}

func (c FixedBytesCodec) Decode(src []byte) []byte {
	out := make([]byte, len(src))
	copy(out, src)

	return out
}
