// Package pmap implements a persistent, crash-consistent, single-writer/
// multi-reader hash map backed by two memory-mapped files. This file holds
// the Map type, Open/Close, and the hash-table primitives (FindEntry
// here; Insert/Remove/Clear/Resize in mutate.go).
package pmap

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/theflywheel/pmap/internal/chaos"
)

// Map is a persistent hash table over two memory-mapped files: path+
// "-buckets" and path+"-entries". A Map value is safe to share across
// goroutines within one process; the cross-process write lock (lock.go)
// additionally coordinates multiple processes attached to the same file
// pair.
type Map[K comparable, V any] struct {
	path string

	keyCodec Codec[K]
	valCodec Codec[V]
	hasher   KeyHasher[K]

	pid   int32
	log   *zap.Logger
	crash chaos.Point

	buckets *region
	entries *region

	bucketsHdr bucketsHeader
	entriesHdr entriesHeader

	keySize  uint32
	valSize  uint32
	slotSize uint32 // align4(8 + keySize + valSize)
}

// Option configures a Map at Open time.
type Option[K comparable, V any] func(*Map[K, V])

// WithHasher overrides the default xxhash-based KeyHasher.
func WithHasher[K comparable, V any](h KeyHasher[K]) Option[K, V] {
	return func(m *Map[K, V]) { m.hasher = h }
}

// WithLogger overrides the default no-op logger. Lock theft, resize, and
// recovery events are logged at Info/Warn.
func WithLogger[K comparable, V any](log *zap.Logger) Option[K, V] {
	return func(m *Map[K, V]) { m.log = log }
}

// WithCrashPoint wires a fault-injection hook for tests. Production code
// never needs this option: the zero value of Map.crash is chaos.Noop{}.
func WithCrashPoint[K comparable, V any](c chaos.Point) Option[K, V] {
	return func(m *Map[K, V]) { m.crash = c }
}

func align4(n uint32) uint32 { return (n + 3) &^ 3 }

// Open opens or creates the persistent map rooted at path (two files,
// path+"-buckets" and path+"-entries", are opened/created), ensuring it has
// room for at least capacity entries before any resize. capacity defaults
// to 5 when 0 is passed.
func Open[K comparable, V any](path string, capacity uint32, keyCodec Codec[K], valCodec Codec[V], opts ...Option[K, V]) (*Map[K, V], error) {
	if capacity == 0 {
		capacity = 5
	}

	m := &Map[K, V]{
		path:     path,
		keyCodec: keyCodec,
		valCodec: valCodec,
		pid:      currentPID(),
		log:      zap.NewNop(),
		crash:    chaos.Noop{},
		keySize:  keyCodec.Size(),
		valSize:  valCodec.Size(),
	}
	m.slotSize = align4(8 + m.keySize + m.valSize)
	m.hasher = NewDefaultHasher(keyCodec)

	for _, opt := range opts {
		opt(m)
	}

	gen := generationFor(capacity)

	bucketsRegion, err := openRegion(path+"-buckets", int64(HeaderLength)+int64(primes[gen])*4)
	if err != nil {
		return nil, err
	}

	entriesRegion, err := openRegion(path+"-entries", int64(HeaderLength)+int64(primes[gen])*int64(m.slotSize))
	if err != nil {
		_ = bucketsRegion.close()

		return nil, err
	}

	m.buckets = bucketsRegion
	m.entries = entriesRegion
	m.bucketsHdr = bucketsHeader{r: bucketsRegion}
	m.entriesHdr = entriesHeader{r: entriesRegion}

	if err := m.initialize(gen); err != nil {
		_ = m.Close()

		return nil, err
	}

	return m, nil
}

// initialize grows both files to match the requested generation if the
// existing (possibly freshly zeroed) header names a smaller one.
func (m *Map[K, V]) initialize(wantGen uint32) error {
	loadedGen := uint32(m.bucketsHdr.generation())
	if m.buckets.len() <= HeaderLength {
		// Freshly truncated file: generation reads 0 like every other
		// zeroed int32, which happens to be correct only if wantGen is
		// also 0. Force it explicitly so a fresh Open(path, bigCapacity)
		// doesn't silently stay at generation 0.
		loadedGen = 0
	}

	if loadedGen >= wantGen && m.buckets.len() > HeaderLength {
		return nil
	}

	m.log.Info("initializing generation",
		zap.Uint32("generation", wantGen),
		zap.Uint32("bucket_count", primes[wantGen]))

	if err := m.growToGeneration(wantGen); err != nil {
		return err
	}

	m.bucketsHdr.setGeneration(int32(wantGen))

	return nil
}

func (m *Map[K, V]) growToGeneration(gen uint32) error {
	n := primes[gen]

	bucketsSize := int64(HeaderLength) + int64(n)*4
	if int64(m.buckets.len()) < bucketsSize {
		if err := m.buckets.grow(bucketsSize); err != nil {
			return fmt.Errorf("pmap: growing buckets file: %w", err)
		}
	}

	entriesSize := int64(HeaderLength) + int64(n)*int64(m.slotSize)
	if int64(m.entries.len()) < entriesSize {
		if err := m.entries.grow(entriesSize); err != nil {
			return fmt.Errorf("pmap: growing entries file: %w", err)
		}
	}

	return nil
}

// Close unmaps both files and closes their descriptors.
func (m *Map[K, V]) Close() error {
	var firstErr error

	if m.entries != nil {
		if err := m.entries.close(); err != nil {
			firstErr = err
		}
	}

	if m.buckets != nil {
		if err := m.buckets.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// mask31 applies h = user_hash(key) & 0x7FFFFFFF.
func mask31(h uint32) uint32 { return h & 0x7FFFFFFF }

func (m *Map[K, V]) entryOffset(i int32) uint32 { return HeaderLength + uint32(i)*m.slotSize }

func (m *Map[K, V]) bucketOffset(i uint32) uint32 { return HeaderLength + i*4 }

func (m *Map[K, V]) entryHashCode(i int32) int32 { return m.entries.loadI32(m.entryOffset(i)) }

func (m *Map[K, V]) setEntryHashCode(i int32, v int32) { m.entries.storeI32(m.entryOffset(i), v) }

func (m *Map[K, V]) entryNext(i int32) int32 { return m.entries.loadI32(m.entryOffset(i) + 4) }

func (m *Map[K, V]) setEntryNext(i int32, v int32) { m.entries.storeI32(m.entryOffset(i)+4, v) }

func (m *Map[K, V]) entryKey(i int32) K {
	return m.keyCodec.Decode(m.entries.bytesAt(m.entryOffset(i)+8, m.keySize))
}

func (m *Map[K, V]) setEntryKey(i int32, k K) {
	m.keyCodec.Encode(k, m.entries.bytesAt(m.entryOffset(i)+8, m.keySize))
}

func (m *Map[K, V]) entryValue(i int32) V {
	return m.valCodec.Decode(m.entries.bytesAt(m.entryOffset(i)+8+m.keySize, m.valSize))
}

func (m *Map[K, V]) setEntryValue(i int32, v V) {
	m.valCodec.Encode(v, m.entries.bytesAt(m.entryOffset(i)+8+m.keySize, m.valSize))
}

func (m *Map[K, V]) bucketAt(idx uint32) int32 {
	return unbias(m.buckets.loadU32(m.bucketOffset(idx)))
}

func (m *Map[K, V]) setBucketAt(idx uint32, logical int32) {
	m.buckets.storeU32(m.bucketOffset(idx), bias(logical))
}

// chainLookup walks every generation's chain for h/key: for gen from
// generation down to 0, probe buckets[h % primes[gen]]. Shared by
// FindEntry (under the seqlock) and Insert's Phase A (under the write
// lock).
func (m *Map[K, V]) chainLookup(h uint32, key K) (index int32) {
	gen := m.bucketsHdr.generation()

	for g := gen; g >= 0; g-- {
		mod := primes[g]
		idx := m.bucketAt(h % mod)

		for idx != -1 {
			if uint32(m.entryHashCode(idx)) == h && m.hasher.Equal(m.entryKey(idx), key) {
				return idx
			}

			idx = m.entryNext(idx)
		}
	}

	return -1
}

// FindEntry looks up key, returning its value and whether it was present.
// Runs lock-free under the seqlock read protocol; escalates to the write
// lock only if recovery is needed to converge.
func (m *Map[K, V]) FindEntry(key K) (V, bool) {
	h := mask31(m.hasher.Hash(key))

	var (
		idx int32
		val V
	)

	m.readLockIf(func() {
		idx = m.chainLookup(h, key)
		if idx >= 0 {
			val = m.entryValue(idx)
		}
	})

	if idx < 0 {
		var zero V

		return zero, false
	}

	return val, true
}

// Get is the public alias for FindEntry returning (value, ok).
func (m *Map[K, V]) Get(key K) (V, bool) { return m.FindEntry(key) }

// Index returns the value for key or ErrNotFound.
func (m *Map[K, V]) Index(key K) (V, error) {
	v, ok := m.FindEntry(key)
	if !ok {
		return v, ErrNotFound
	}

	return v, nil
}

// ContainsKey reports whether key is present.
func (m *Map[K, V]) ContainsKey(key K) bool {
	_, ok := m.FindEntry(key)

	return ok
}

// Count reports the number of live entries: count - freeCount.
func (m *Map[K, V]) Count() int32 {
	var n int32

	m.readLockIf(func() {
		n = m.bucketsHdr.count() - m.bucketsHdr.freeCount()
	})

	return n
}
