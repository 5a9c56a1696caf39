package pmap

import (
	"errors"
	"fmt"
)

// Error kinds. These are sentinels, not types: callers use errors.Is.
var (
	// ErrNotFound is returned by Index when the key is absent.
	ErrNotFound = errors.New("pmap: key not found")

	// ErrDuplicateKey is returned by Add when the key is already present.
	ErrDuplicateKey = errors.New("pmap: key already exists")

	// ErrLockHeld is returned when another live process holds the write
	// lock and the spin/escalation budget is exhausted.
	ErrLockHeld = errors.New("pmap: write lock held by another live process")

	// ErrConcurrentlyModified is returned by the iterator when it detects
	// the map's version advanced during iteration.
	ErrConcurrentlyModified = errors.New("pmap: map was modified during iteration")

	// ErrCorrupt names a recoveryFlags value recover cannot reconcile (an
	// unknown bit set). recover has no caller to return it to, so it
	// panics with a fatal error whose message includes ErrCorrupt.
	ErrCorrupt = errors.New("pmap: recovery journal is corrupt")
)

// fatalError wraps the one unrecoverable condition in the design: the
// release-time CAS of lock_pid observing a different holder than the one
// that acquired it. This is not an error a caller can meaningfully recover
// from; the process must fail-fast, so it is surfaced as a panic rather
// than an error value, consistent with Go's convention that truly
// unrecoverable invariant violations panic instead of returning an error
// nobody can act on.
type fatalError struct {
	msg string
}

func (e *fatalError) Error() string { return "pmap: fatal: " + e.msg }

func fatalf(format string, args ...any) {
	panic(&fatalError{msg: fmt.Sprintf(format, args...)})
}
