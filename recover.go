package pmap

import "go.uber.org/zap"

// recover inspects recoveryFlags in descending bit order, undoes/redoes
// the matching step, clears that bit, and loops until recoveryFlags is 0.
// Called only from withWriteLock immediately after a successful lock
// steal (lock.go), never exposed to callers directly.
func (m *Map[K, V]) recover() {
	for {
		flags := m.entriesHdr.recoveryFlags()
		if flags == 0 {
			return
		}

		bit, ok := highestSetFlag(flags)
		if !ok {
			// No known bit matches a set flag: the journal names a step
			// this build doesn't recognize. This is ErrCorrupt, but recover
			// has no caller to return it to (it runs implicitly inside
			// withWriteLock); surface it the same way the release-CAS
			// mismatch does, since an unrecognized journal entry is just as
			// unsafe to proceed past.
			fatalf("recoveryFlags 0x%x has an unrecognized bit set: %v", flags, ErrCorrupt)
		}

		m.log.Warn("replaying recovery step", zap.Int32("bit", bitNumber(bit)))

		m.applyRecoveryStep(bit)
		m.entriesHdr.lowerFlag(bit)
	}
}

// highestSetFlag returns the numerically highest recognized bit set in
// flags. Recovery must process bits highest-first: rolling back the
// highest-numbered flag restores the precondition for rolling back the
// next, since within one Insert/Remove call a later
// forward step's flag (e.g. bit 4, the bucket-link step) is raised on top
// of an earlier one (e.g. bit 2 or 3, index acquisition) without clearing
// it - see mutate.go's raiseFlag calls.
func highestSetFlag(flags int32) (bit int32, ok bool) {
	for _, b := range []int32{
		flagClear,
		flagRemoveFreeList,
		flagRemoveUnlinkPred,
		flagRemoveUnlinkHead,
		flagInsertBucketHead,
		flagInsertNewCount,
		flagInsertFreeList,
		flagUpdateValueReplace,
	} {
		if flags&b != 0 {
			return b, true
		}
	}

	return 0, false
}

func bitNumber(flag int32) int32 {
	n := int32(1)
	for flag > 1 {
		flag >>= 1
		n++
	}

	return n
}

// applyRecoveryStep is the decision table mapping a recovery flag to the
// rollback action that undoes the forward step it names.
func (m *Map[K, V]) applyRecoveryStep(bit int32) {
	switch bit {
	case flagClear:
		m.clearLocked()
	case flagRemoveFreeList:
		m.recoverRemoveFreeList()
	case flagRemoveUnlinkPred:
		m.entries.storeI32(m.entryOffset(m.entriesHdr.indexCopy())+4, m.entriesHdr.bucketOrLastNextCopy())
	case flagRemoveUnlinkHead:
		m.setBucketAt(uint32(m.entriesHdr.bucketOrLastNextCopy()), m.entriesHdr.indexCopy())
	case flagInsertBucketHead:
		m.setBucketAt(uint32(m.entriesHdr.bucketOrLastNextCopy()), m.entriesHdr.indexCopy())
		if m.entriesHdr.recoveryFlags()&flagInsertFreeList != 0 {
			// The slot came off the free list and may already hold the new
			// entry's {hashCode,next}. freeList still holds the slot's old
			// successor, so put the slot back as a free-list node before
			// bit 2's rollback makes it the head again.
			index := m.entriesHdr.freeListCopy()
			m.setEntryHashCode(index, -1)
			m.setEntryNext(index, m.bucketsHdr.freeList())
		}
	case flagInsertNewCount:
		m.bucketsHdr.setCount(m.entriesHdr.countCopy())
	case flagInsertFreeList:
		m.bucketsHdr.setFreeList(m.entriesHdr.freeListCopy())
		m.bucketsHdr.setFreeCount(m.entriesHdr.freeCountCopy())
	case flagUpdateValueReplace:
		m.recoverUpdateValue()
	}
}

// recoverRemoveFreeList undoes Remove's free-list phase (bit 7): restore
// freeList/freeCount, and restore the removed entry's {hashCode,next} from
// the 8-byte scratch slot (its {key,value} were never overwritten, so only
// those two fields need restoring).
func (m *Map[K, V]) recoverRemoveFreeList() {
	m.bucketsHdr.setFreeList(m.entriesHdr.freeListCopy())
	m.bucketsHdr.setFreeCount(m.entriesHdr.freeCountCopy())

	i := m.entriesHdr.countCopy()
	hashCode, next := m.entriesHdr.loadScratch()
	m.setEntryHashCode(i, hashCode)
	m.setEntryNext(i, next)
}

// recoverUpdateValue undoes Insert Phase A's update branch (bit 1): restore
// {key,value} at entries[indexCopy]+8 from the scratch slot the forward
// path borrowed. The borrowed slot is recomputed with the exact same
// rule the forward path used (chooseScratchSlot): freeList/freeCount/count
// are never mutated by the update branch, so they still hold the values
// they held when the forward path made its choice.
func (m *Map[K, V]) recoverUpdateValue() {
	i := m.entriesHdr.indexCopy()
	s := m.chooseScratchSlot()

	payload := m.slotSize - 8
	m.entries.copyBytes(m.entryOffset(i)+8, m.entryOffset(s)+8, payload)
}
