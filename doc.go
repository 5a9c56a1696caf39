/*
Package pmap provides a persistent, crash-consistent hash table backed by
two memory-mapped files.

Map[K, V] stores typed key/value pairs in a chained hash table, identical
in spirit to a classic separate-chaining dictionary, except every mutating
step is journaled into fixed header slots of the mapped files so that if
the writing process is killed mid-operation, or leaves the cross-process
write lock orphaned, the next process to attach can recover a consistent
state before proceeding.

Basic usage:

	import "github.com/theflywheel/pmap"

	m, err := pmap.Open[uint64, uint64](
		"data", 1000, pmap.Uint64Codec{}, pmap.Uint64Codec{},
	)
	if err != nil {
		log.Fatal(err)
	}
	defer m.Close()

	if err := m.Set(12345, 67890); err != nil {
		log.Fatal(err)
	}

	if v, ok := m.Get(12345); ok {
		fmt.Println("value:", v)
	}

Features:

  - Fixed-width, typed keys and values via a pluggable Codec[T]
  - Memory-mapped file storage for persistence and lock-free reads
  - Single-writer/multi-process cross-process write lock keyed on PID,
    with orphan detection and automatic lock theft
  - A seqlock-style optimistic read protocol: readers never block
  - Generational rehash-free growth: growing the table never moves an
    already-placed entry
  - A recovery journal that can always distinguish, after a crash, whether
    an interrupted write should be rolled back or is already durable

On-disk layout:

Each file ("<path>-buckets" and "<path>-entries") starts with the same
256-byte header layout, interpreted differently per file: the buckets file
holds the write-lock PID slot and the (version, nextVersion) pair readers
use for the seqlock protocol; the entries file holds the recovery journal
(a bitfield of in-flight-step flags plus shadow copies of the fields each
step is about to mutate). See DESIGN.md in the module root for the full
design rationale.
*/
package pmap
