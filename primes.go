package pmap

// Generation sizing follows a fixed prime ladder: bucket/entry array
// lengths are always a prime from this table, never a rehash-on-grow
// doubling. Growing the map
// advances the generation index; entries placed under a lower generation
// stay reachable (see FindEntry's per-generation probe in map.go), so a
// grow never has to touch an existing entry.
var primes = []uint32{
	3, 7, 11, 17, 23, 29, 37, 47, 59, 71, 89, 107, 131, 163, 197, 239, 293,
	353, 431, 521, 631, 761, 919, 1103, 1327, 1597, 1931, 2333, 2801, 3371,
	4049, 4861, 5839, 7013, 8419, 10103, 12143, 14591, 17519, 21023, 25229,
	30293, 36353, 43627, 52361, 62851, 75431, 90523, 108631, 130363, 156437,
	187751, 225307, 270371, 324449, 389357, 467237, 560689, 672827, 807403,
	968897, 1162687, 1395263, 1674319, 2009191, 2411033, 2893249, 3471899,
	4166287, 4999559, 5999471, 7199369,
}

// generationFor returns the smallest generation g such that primes[g] >=
// capacity. If capacity exceeds the last tabulated prime, the table is
// extended on the fly by doubling and scanning for the next prime.
func generationFor(capacity uint32) uint32 {
	for g, p := range primes {
		if p >= capacity {
			return uint32(g)
		}
	}

	return extendPrimesTo(capacity)
}

// extendPrimesTo grows the package-level prime ladder so that its last
// entry is >= capacity, and returns the generation index of that entry.
// Only ever called once the static table (good to ~7.2M slots) is
// exhausted. Mirrors the classic doubling-and-rounding-to-a-prime growth
// rule of a generic hash table's expand-on-resize step.
func extendPrimesTo(capacity uint32) uint32 {
	candidate := primes[len(primes)-1]
	for candidate < capacity {
		candidate = nextPrime(candidate*2 + 1)
		primes = append(primes, candidate)
	}

	return uint32(len(primes) - 1)
}

func nextPrime(n uint32) uint32 {
	if n%2 == 0 {
		n++
	}
	for !isPrime(n) {
		n += 2
	}

	return n
}

func isPrime(n uint32) bool {
	if n < 2 {
		return false
	}
	if n%2 == 0 {
		return n == 2
	}
	for d := uint32(3); d*d <= n; d += 2 {
		if n%d == 0 {
			return false
		}
	}

	return true
}
