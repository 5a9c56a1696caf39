package pmap

// Iterator is a lazy sequence of (K, V) with fail-fast semantics: it
// snapshots version at creation and fails with ErrConcurrentlyModified if
// the live version has advanced by the time Next is called.
//
// Iteration rechecks a single version snapshot on each Next call rather
// than a full seqlock (version, nextVersion) pair - see DESIGN.md for why
// this stays fail-fast instead of upgrading to seqlock-protected
// iteration.
type Iterator[K comparable, V any] struct {
	m       *Map[K, V]
	version int64
	next    int32
	count   int32
	done    bool
}

// Iter returns a fail-fast iterator over the map's current live entries.
func (m *Map[K, V]) Iter() *Iterator[K, V] {
	return &Iterator[K, V]{
		m:       m,
		version: m.bucketsHdr.version(),
		next:    0,
		count:   m.bucketsHdr.count(),
	}
}

// Next advances the iterator, returning the next live (key, value) pair.
// ok is false once the sequence is exhausted. err is ErrConcurrentlyModified
// if the map was mutated since Iter was called; once returned, the
// iterator is permanently exhausted.
func (it *Iterator[K, V]) Next() (key K, value V, ok bool, err error) {
	if it.done {
		return key, value, false, nil
	}

	if it.m.bucketsHdr.version() != it.version {
		it.done = true

		return key, value, false, ErrConcurrentlyModified
	}

	for it.next < it.count {
		i := it.next
		it.next++

		if it.m.entryHashCode(i) == -1 {
			continue
		}

		return it.m.entryKey(i), it.m.entryValue(i), true, nil
	}

	it.done = true

	return key, value, false, nil
}

// Keys returns a snapshot slice of every live key: a thin wrapper over
// Iter, not part of the core hash-table engineering.
func (m *Map[K, V]) Keys() ([]K, error) {
	keys := make([]K, 0, m.Count())

	it := m.Iter()

	for {
		k, _, ok, err := it.Next()
		if err != nil {
			return nil, err
		}

		if !ok {
			return keys, nil
		}

		keys = append(keys, k)
	}
}

// Values returns a snapshot slice of every live value.
func (m *Map[K, V]) Values() ([]V, error) {
	values := make([]V, 0, m.Count())

	it := m.Iter()

	for {
		_, v, ok, err := it.Next()
		if err != nil {
			return nil, err
		}

		if !ok {
			return values, nil
		}

		values = append(values, v)
	}
}
