package pmap

import "github.com/cespare/xxhash/v2"

// Codec encodes a value of type T into (and decodes it back out of) a
// fixed-width byte slot. Key/value serialization is an external,
// pluggable collaborator; Codec is the Go-idiomatic generic counterpart
// that lets Map[K, V] store arbitrary fixed-width K/V types in the
// fixed-size entry records the on-disk layout requires.
type Codec[T any] interface {
	// Size is the fixed encoded width in bytes. Must be constant for the
	// lifetime of a given file: it is baked into slotSize at Open time.
	Size() uint32
	// Encode writes the encoding of v into dst, which is exactly Size()
	// bytes long.
	Encode(v T, dst []byte)
	// Decode reconstructs a T from src, which is exactly Size() bytes long.
	Decode(src []byte) T
}

// KeyHasher supplies the hash/equality pair as a pluggable, externally
// supplied collaborator (hash(K) -> u32, equals(K, K) -> bool).
type KeyHasher[K any] interface {
	// Hash returns the full hash; Map masks it to 31 bits itself
	// (h = user_hash(key) & 0x7FFFFFFF) so hashers don't each need to
	// remember the mask.
	Hash(k K) uint32
	Equal(a, b K) bool
}

// codecHasher is the default KeyHasher: it hashes a key's encoded bytes
// with xxhash and compares keys by comparing their encoded bytes.
type codecHasher[K any] struct {
	codec Codec[K]
}

// NewDefaultHasher builds the xxhash-backed KeyHasher used when Open is
// not given an explicit WithHasher option.
func NewDefaultHasher[K any](codec Codec[K]) KeyHasher[K] {
	return &codecHasher[K]{codec: codec}
}

func (h *codecHasher[K]) Hash(k K) uint32 {
	buf := make([]byte, h.codec.Size())
	h.codec.Encode(k, buf)

	return uint32(xxhash.Sum64(buf))
}

func (h *codecHasher[K]) Equal(a, b K) bool {
	sz := h.codec.Size()
	ba := make([]byte, sz)
	bb := make([]byte, sz)
	h.codec.Encode(a, ba)
	h.codec.Encode(b, bb)

	for i := range ba {
		if ba[i] != bb[i] {
			return false
		}
	}

	return true
}
