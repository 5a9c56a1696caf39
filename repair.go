package pmap

// Repair forces a write-lock acquisition cycle with no mutation of its
// own, so an orphaned lock left by a crashed writer is detected, stolen,
// and rolled back even when the caller has no Set/Remove/Clear of its own
// to piggyback the check on. cmd/pmapctl's repair subcommand uses this to
// offer recovery as a standalone operation.
func (m *Map[K, V]) Repair() error {
	return m.withWriteLock(false, func(recovered bool) error {
		return nil
	})
}
