package pmap

// Stats summarizes the on-disk header state of a Map. It exists for
// inspection tooling (cmd/pmapctl's stat subcommand) that needs to report
// health without reaching into the header's bit layout directly.
type Stats struct {
	Count         int32
	FreeCount     int32
	Generation    int32
	LockHeldByPID int32
	RecoveryFlags int32
}

// Stat reports the current header state.
func (m *Map[K, V]) Stat() Stats {
	return Stats{
		Count:         m.bucketsHdr.count(),
		FreeCount:     m.bucketsHdr.freeCount(),
		Generation:    m.bucketsHdr.generation(),
		LockHeldByPID: m.bucketsHdr.lockPID(),
		RecoveryFlags: m.entriesHdr.recoveryFlags(),
	}
}
