package pmap

// HeaderLength is the fixed prefix, in bytes, at the start of both mapped
// files. Both files share this layout but interpret the slots differently
// (see bucketsHeader / entriesHeader below).
const HeaderLength = 256

// Buckets-file header offsets.
const (
	offLockPID     = 0
	offVersion     = 8
	offNextVersion = 16
	offCount       = 24
	offFreeList    = 32
	offFreeCount   = 40
	offGeneration  = 48
)

// Entries-file header offsets. recoveryFlags aliases offLockPID's byte
// offset (0) because the two files' headers are never read through the
// same region value, only through the bucketsHeader/entriesHeader views
// below, so there is no risk of the slots being confused for each other.
const (
	offRecoveryFlags         = 0
	offCountCopy             = 24
	offFreeListCopy          = 32
	offFreeCountCopy         = 40
	offIndexCopy            = 48
	offBucketOrLastNextCopy = 56
	offScratch              = HeaderLength - 8
)

// Recovery flag bits. Bit numbers are part of the on-disk crash-recovery
// contract (a journal written by one build is replayed by the next) and
// must never be renumbered.
const (
	flagClear              = 1 << 7 // bit 8
	flagRemoveFreeList     = 1 << 6 // bit 7
	flagRemoveUnlinkPred   = 1 << 5 // bit 6
	flagRemoveUnlinkHead   = 1 << 4 // bit 5
	flagInsertBucketHead   = 1 << 3 // bit 4
	flagInsertNewCount     = 1 << 2 // bit 3
	flagInsertFreeList     = 1 << 1 // bit 2
	flagUpdateValueReplace = 1 << 0 // bit 1
)

// bucketsHeader is a thin, offset-checked view over a region mapping the
// "-buckets" file.
type bucketsHeader struct{ r *region }

func (h bucketsHeader) lockPID() int32       { return h.r.loadI32(offLockPID) }
func (h bucketsHeader) version() int64       { return h.r.loadI64(offVersion) }
func (h bucketsHeader) nextVersion() int64   { return h.r.loadI64(offNextVersion) }
func (h bucketsHeader) count() int32         { return h.r.loadI32(offCount) }
func (h bucketsHeader) setCount(v int32)     { h.r.storeI32(offCount, v) }
func (h bucketsHeader) freeListRaw() uint32  { return h.r.loadU32(offFreeList) }
func (h bucketsHeader) setFreeListRaw(v uint32) { h.r.storeU32(offFreeList, v) }
func (h bucketsHeader) freeCount() int32     { return h.r.loadI32(offFreeCount) }
func (h bucketsHeader) setFreeCount(v int32) { h.r.storeI32(offFreeCount, v) }
func (h bucketsHeader) generation() int32    { return h.r.loadI32(offGeneration) }
func (h bucketsHeader) setGeneration(v int32) { h.r.storeI32(offGeneration, v) }

// freeList returns the unbiased, logical free-list head (-1 == empty).
func (h bucketsHeader) freeList() int32 { return unbias(h.freeListRaw()) }

func (h bucketsHeader) setFreeList(logical int32) { h.setFreeListRaw(bias(logical)) }

// entriesHeader is a thin, offset-checked view over a region mapping the
// "-entries" file: the recovery journal (flags + shadow slots).
type entriesHeader struct{ r *region }

func (h entriesHeader) recoveryFlags() int32     { return h.r.loadI32(offRecoveryFlags) }
func (h entriesHeader) setRecoveryFlags(v int32) { h.r.storeI32(offRecoveryFlags, v) }

// raiseFlag ORs bit into recoveryFlags. Forward-path steps OR their flag in
// rather than overwrite: a single Insert/Remove call can have two bits live
// at once (e.g. bit 2 or 3 from index acquisition, plus bit 4 from the
// bucket-link step) while mid-flight, and recover.go's descending-bit walk
// depends on seeing all of them.
func (h entriesHeader) raiseFlag(bit int32) { h.setRecoveryFlags(h.recoveryFlags() | bit) }

// lowerFlag clears a single bit, used by recover.go as it walks flags in
// descending order.
func (h entriesHeader) lowerFlag(bit int32) { h.setRecoveryFlags(h.recoveryFlags() &^ bit) }

// clearFlags clears the whole journal, the "recoveryFlags <- 0" step every
// forward path ends with on success.
func (h entriesHeader) clearFlags() { h.setRecoveryFlags(0) }

func (h entriesHeader) countCopy() int32     { return h.r.loadI32(offCountCopy) }
func (h entriesHeader) setCountCopy(v int32) { h.r.storeI32(offCountCopy, v) }

func (h entriesHeader) freeListCopy() int32     { return h.r.loadI32(offFreeListCopy) }
func (h entriesHeader) setFreeListCopy(v int32) { h.r.storeI32(offFreeListCopy, v) }

func (h entriesHeader) freeCountCopy() int32     { return h.r.loadI32(offFreeCountCopy) }
func (h entriesHeader) setFreeCountCopy(v int32) { h.r.storeI32(offFreeCountCopy, v) }

func (h entriesHeader) indexCopy() int32     { return h.r.loadI32(offIndexCopy) }
func (h entriesHeader) setIndexCopy(v int32) { h.r.storeI32(offIndexCopy, v) }

func (h entriesHeader) bucketOrLastNextCopy() int32 { return h.r.loadI32(offBucketOrLastNextCopy) }
func (h entriesHeader) setBucketOrLastNextCopy(v int32) {
	h.r.storeI32(offBucketOrLastNextCopy, v)
}

// scratch is the 8-byte slot reserved at HeaderLength-8 used by Remove's
// free-list phase to stash an entry's {hashCode,next} before clearing it.
func (h entriesHeader) saveScratch(hashCode, next int32) {
	h.r.storeI32(offScratch, hashCode)
	h.r.storeI32(offScratch+4, next)
}

func (h entriesHeader) loadScratch() (hashCode, next int32) {
	return h.r.loadI32(offScratch), h.r.loadI32(offScratch + 4)
}

// bias/unbias implement the +1-biased encoding: load-bearing, not cosmetic.
// A freshly truncated file is all zeroes, and an all-zero bucket/freeList
// slot must read back as "empty" (-1) without any initialization pass over
// the file.
func bias(logical int32) uint32 {
	return uint32(logical + 1)
}

func unbias(stored uint32) int32 {
	return int32(stored) - 1
}
