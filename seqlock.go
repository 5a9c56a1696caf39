package pmap

// readSpinThreshold is the number of mismatched (version, nextVersion)
// observations before a reader escalates to taking the write lock to run
// recovery.
const readSpinThreshold = 100

// readLockIf runs f optimistically under the seqlock protocol: snapshot
// version, run f (which writes its result into variables captured by its
// closure), snapshot nextVersion, retry on mismatch. After
// readSpinThreshold mismatches it escalates by taking the write lock to
// run recover with fixVersions=true, which repairs nextVersion := version
// without bumping version, converging readers that merely observed an
// orphaned writer, then keeps retrying.
func (m *Map[K, V]) readLockIf(f func()) {
	mismatches := 0

	for {
		v1 := m.bucketsHdr.version()

		f()

		v2 := m.bucketsHdr.nextVersion()
		if v1 == v2 {
			return
		}

		mismatches++
		if mismatches >= readSpinThreshold {
			_ = m.withWriteLock(true, func(bool) error { return nil })
			mismatches = 0
		}
	}
}
