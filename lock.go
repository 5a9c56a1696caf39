package pmap

import (
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// spinThreshold is the number of failed CAS attempts before a contender
// gives up spinning and checks whether the current holder is still alive.
const spinThreshold = 100

const spinBackoff = 50 * time.Microsecond

// writeLock is the cross-process lock keyed on the buckets file's lock_pid
// slot. It is the one piece of synchronization in the whole design that
// crosses process boundaries; everything else (seqlock.go) is lock-free
// for readers.
type writeLock struct {
	buckets bucketsHeader
	pid     int32
	log     *zap.Logger
}

// acquire runs the three-step acquisition protocol: CAS, spin, then
// orphan-check-and-steal. It returns recoverNeeded=true iff this call
// stole the lock from an orphaned holder, in which case the caller is
// expected to run recover() before doing anything else.
func (l *writeLock) acquire(fixVersions bool) (recoverNeeded bool, err error) {
	if l.buckets.r.casI32(offLockPID, 0, l.pid) {
		if !fixVersions {
			l.buckets.r.addI64(offNextVersion, 1)
		}

		return false, nil
	}

	spins := 0
	for {
		if l.buckets.r.casI32(offLockPID, 0, l.pid) {
			if !fixVersions {
				l.buckets.r.addI64(offNextVersion, 1)
			}

			return false, nil
		}

		spins++
		if spins < spinThreshold {
			time.Sleep(spinBackoff)

			continue
		}

		holder := l.buckets.lockPID()
		if holder == 0 {
			spins = 0

			continue
		}

		alive := holder != l.pid && processAlive(holder)
		if alive {
			return false, ErrLockHeld
		}

		// Either holder == l.pid (reentrant orphan, only reachable under
		// fault injection) or the OS reports the holder is dead: steal the
		// lock.
		if l.buckets.r.casI32(offLockPID, holder, l.pid) {
			l.log.Warn("stole orphaned write lock",
				zap.Int32("previous_pid", holder),
				zap.Int32("pid", l.pid))

			if !fixVersions {
				l.buckets.r.addI64(offNextVersion, 1)
			}

			return true, nil
		}

		spins = 0
	}
}

// release performs the final CAS-to-zero step. A release CAS that
// observes a holder other than l.pid means another process stole the
// lock while this one's body was still running - that is unrecoverable
// and the process must fail-fast.
func (l *writeLock) release(fixVersions bool) {
	if fixVersions {
		l.buckets.r.storeI64(offNextVersion, l.buckets.version())
	} else {
		l.buckets.r.addI64(offVersion, 1)
	}

	if !l.buckets.r.casI32(offLockPID, l.pid, 0) {
		fatalf("write lock released by pid %d but held by someone else at release time", l.pid)
	}
}

// withWriteLock is the public write-lock entry point: acquire, optionally
// run recovery, run body, release.
//
// Deliberately not a defer: a real crash never runs Go's deferred release,
// it just stops the process with the lock PID slot still set, and a test
// simulating that crash via chaos.Injector's panic needs the same thing:
// the lock left held (orphaned) for the next acquire to steal and recover.
// A defer here would quietly release the lock during the panic's unwind
// and make the fault-injection scenarios untestable.
func (m *Map[K, V]) withWriteLock(fixVersions bool, body func(recover bool) error) error {
	lock := &writeLock{buckets: m.bucketsHdr, pid: m.pid, log: m.log}

	recoverNeeded, err := lock.acquire(fixVersions)
	if err != nil {
		return err
	}

	if recoverNeeded {
		m.recover()
	}

	result := body(recoverNeeded)

	lock.release(fixVersions)

	return result
}

// processAlive asks the OS whether pid currently names a live process, the
// orphan-detection step an orphaned-lock steal needs. Uses golang.org/x/sys/unix
// (pulled from calvinalkan/agent-task and matrixorigin/matrixone, both of
// which carry x/sys for OS-level primitives) rather than a hand-rolled
// syscall probe: signal 0 delivers no signal but still performs the
// existence/permission check, which is the standard POSIX idiom for this.
func processAlive(pid int32) bool {
	err := unix.Kill(int(pid), 0)
	if err == nil {
		return true
	}

	// ESRCH: no such process. EPERM: process exists but we lack
	// permission to signal it - still alive from our point of view.
	return err == unix.EPERM
}

func currentPID() int32 { return int32(os.Getpid()) }
