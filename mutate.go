package pmap

import "go.uber.org/zap"

// Set updates the value for key if present, otherwise inserts it.
func (m *Map[K, V]) Set(key K, value V) error {
	return m.insert(key, value, false)
}

// Add inserts key, failing with ErrDuplicateKey if it is already present.
func (m *Map[K, V]) Add(key K, value V) error {
	return m.insert(key, value, true)
}

// insert has two phases: Phase A looks for an existing key across every
// generation; Phase B allocates and links a new entry. Both phases run
// under the write lock and are individually journaled so a crash
// mid-step is recoverable.
func (m *Map[K, V]) insert(key K, value V, addOnly bool) error {
	h := mask31(m.hasher.Hash(key))

	return m.withWriteLock(false, func(bool) error {
		existing := m.chainLookup(h, key)
		if existing >= 0 {
			if addOnly {
				return ErrDuplicateKey
			}

			return m.updatePhaseA(existing, value)
		}

		return m.insertPhaseB(h, key, value)
	})
}

// updatePhaseA is Insert's update branch: key already present, replace
// its value in place.
func (m *Map[K, V]) updatePhaseA(i int32, value V) error {
	m.crash.Hit(11)

	// With no free slot and every slot of the current generation in use,
	// the slot at count lies past the end of the entries file: grow first.
	if m.bucketsHdr.freeCount() == 0 && m.bucketsHdr.count() == int32(primes[m.bucketsHdr.generation()]) {
		if err := m.resize(); err != nil {
			return err
		}
	}

	s := m.chooseScratchSlot()

	payload := m.slotSize - 8
	m.entries.copyBytes(m.entryOffset(s)+8, m.entryOffset(i)+8, payload)

	m.entriesHdr.setIndexCopy(i)
	m.entriesHdr.raiseFlag(flagUpdateValueReplace)

	m.crash.Hit(12)

	m.setEntryValue(i, value)

	m.crash.Hit(13)

	m.entriesHdr.clearFlags()

	return nil
}

// chooseScratchSlot picks the slot Phase A borrows as scratch space for the
// pre-image of {key,value}: the free-list head if one exists, else the
// first never-allocated slot at count. Neither freeList/freeCount/count
// are mutated by this choice (the slot is borrowed, not allocated), so
// recover.go can recompute the identical slot during recovery by re-running
// this same rule during recovery.
func (m *Map[K, V]) chooseScratchSlot() int32 {
	if m.bucketsHdr.freeCount() > 0 {
		return m.bucketsHdr.freeList()
	}

	return m.bucketsHdr.count()
}

// insertPhaseB is Insert's allocation branch: allocate an index (reusing
// the free list or growing into a new slot), link it into its bucket's
// chain, and write the entry.
func (m *Map[K, V]) insertPhaseB(h uint32, key K, value V) error {
	gen := m.bucketsHdr.generation()
	targetBucket := h % primes[gen]

	index, err := m.acquireIndex()
	if err != nil {
		return err
	}

	m.crash.Hit(41)

	m.entriesHdr.setBucketOrLastNextCopy(int32(targetBucket))
	m.entriesHdr.setIndexCopy(m.bucketAt(targetBucket))
	m.entriesHdr.raiseFlag(flagInsertBucketHead)

	m.crash.Hit(42)

	m.setEntryHashCode(index, int32(h))
	m.setEntryNext(index, m.bucketAt(targetBucket))
	m.setEntryKey(index, key)
	m.setEntryValue(index, value)

	m.crash.Hit(43)

	m.setBucketAt(targetBucket, index)

	m.crash.Hit(44)

	m.entriesHdr.clearFlags()

	return nil
}

// acquireIndex implements Insert Phase B steps 2-3: reuse the free list if
// non-empty, otherwise grow into a fresh slot (resizing first if the table
// is full).
func (m *Map[K, V]) acquireIndex() (int32, error) {
	if m.bucketsHdr.freeCount() > 0 {
		return m.acquireFromFreeList()
	}

	return m.acquireNewSlot()
}

func (m *Map[K, V]) acquireFromFreeList() (int32, error) {
	m.crash.Hit(21)

	index := m.bucketsHdr.freeList()

	m.entriesHdr.setFreeListCopy(index)
	m.entriesHdr.setFreeCountCopy(m.bucketsHdr.freeCount())
	m.entriesHdr.raiseFlag(flagInsertFreeList)

	m.crash.Hit(22)

	m.bucketsHdr.setFreeList(m.entryNext(index))
	m.bucketsHdr.setFreeCount(m.bucketsHdr.freeCount() - 1)

	m.crash.Hit(23)

	return index, nil
}

func (m *Map[K, V]) acquireNewSlot() (int32, error) {
	m.crash.Hit(31)

	gen := m.bucketsHdr.generation()
	if m.bucketsHdr.count() == int32(primes[gen]) {
		if err := m.resize(); err != nil {
			return -1, err
		}
	}

	m.crash.Hit(32)

	index := m.bucketsHdr.count()

	m.entriesHdr.setCountCopy(index)
	m.entriesHdr.raiseFlag(flagInsertNewCount)

	m.crash.Hit(33)

	m.bucketsHdr.setCount(index + 1)

	m.crash.Hit(34)

	return index, nil
}

// resize advances generation by one and grows both files to match.
// Existing entries are never rehashed; they stay reachable through
// FindEntry's per-generation probe.
func (m *Map[K, V]) resize() error {
	newGen := uint32(m.bucketsHdr.generation()) + 1

	m.log.Info("resizing",
		zap.Uint32("new_generation", newGen),
		zap.Uint32("new_bucket_count", primes[newGen]))

	if err := m.growToGeneration(newGen); err != nil {
		return err
	}

	m.crash.Hit(35)

	m.bucketsHdr.setGeneration(int32(newGen))

	return nil
}

// Remove deletes key if present, returning whether it was found.
func (m *Map[K, V]) Remove(key K) (removed bool) {
	h := mask31(m.hasher.Hash(key))

	_ = m.withWriteLock(false, func(bool) error {
		gen := m.bucketsHdr.generation()

		for g := gen; g >= 0; g-- {
			mod := primes[g]
			bucketIdx := h % mod

			last := int32(-1)
			idx := m.bucketAt(bucketIdx)

			for idx != -1 {
				if uint32(m.entryHashCode(idx)) == h && m.hasher.Equal(m.entryKey(idx), key) {
					m.removeAt(bucketIdx, last, idx)
					removed = true

					return nil
				}

				last = idx
				idx = m.entryNext(idx)
			}
		}

		return nil
	})

	return removed
}

// removeAt runs Remove's two phases: unlink from the bucket chain, then
// return the slot to the free list, each separately journaled.
func (m *Map[K, V]) removeAt(bucketIdx uint32, last, i int32) {
	m.unlink(bucketIdx, last, i)
	m.freeEntry(i)
	m.entriesHdr.clearFlags()
}

func (m *Map[K, V]) unlink(bucketIdx uint32, last, i int32) {
	if last == -1 {
		m.crash.Hit(51)

		m.entriesHdr.setBucketOrLastNextCopy(int32(bucketIdx))
		m.entriesHdr.setIndexCopy(m.bucketAt(bucketIdx))
		m.entriesHdr.raiseFlag(flagRemoveUnlinkHead)

		m.setBucketAt(bucketIdx, m.entryNext(i))

		return
	}

	m.crash.Hit(52)

	m.entriesHdr.setIndexCopy(last)
	m.entriesHdr.setBucketOrLastNextCopy(m.entryNext(last))
	m.entriesHdr.raiseFlag(flagRemoveUnlinkPred)

	m.setEntryNext(last, m.entryNext(i))
}

func (m *Map[K, V]) freeEntry(i int32) {
	m.crash.Hit(71)

	m.entriesHdr.setCountCopy(i)
	m.entriesHdr.setFreeListCopy(m.bucketsHdr.freeList())
	m.entriesHdr.setFreeCountCopy(m.bucketsHdr.freeCount())
	m.entriesHdr.saveScratch(m.entryHashCode(i), m.entryNext(i))
	m.entriesHdr.raiseFlag(flagRemoveFreeList)

	m.crash.Hit(72)

	m.setEntryHashCode(i, -1)

	m.crash.Hit(73)

	m.setEntryNext(i, m.bucketsHdr.freeList())

	m.crash.Hit(74)

	m.bucketsHdr.setFreeList(i)
	m.bucketsHdr.setFreeCount(m.bucketsHdr.freeCount() + 1)

	m.crash.Hit(75)
}

// Clear removes every entry.
func (m *Map[K, V]) Clear() error {
	return m.withWriteLock(false, func(bool) error {
		m.clearLocked()

		return nil
	})
}

func (m *Map[K, V]) clearLocked() {
	m.entriesHdr.raiseFlag(flagClear)
	m.crash.Hit(6)

	// Every bucket of the current generation is reset, not just the first
	// count: a bucket past count can still head a chain into the entries
	// zeroed below.
	nb := primes[m.bucketsHdr.generation()]
	for b := uint32(0); b < nb; b++ {
		m.setBucketAt(b, -1)
	}

	n := m.bucketsHdr.count()
	for i := int32(0); i < n; i++ {
		m.zeroEntry(i)
	}

	m.bucketsHdr.setFreeList(-1)
	m.bucketsHdr.setCount(0)
	m.bucketsHdr.setFreeCount(0)

	m.entriesHdr.clearFlags()
}

func (m *Map[K, V]) zeroEntry(i int32) {
	off := m.entryOffset(i)
	buf := m.entries.bytesAt(off, m.slotSize)
	for j := range buf {
		buf[j] = 0
	}
	// hashCode's zero value is 0, not the "free" sentinel -1; Clear must
	// leave every cleared slot explicitly free.
	m.setEntryHashCode(i, -1)
}
