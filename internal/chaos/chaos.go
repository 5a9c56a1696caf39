// Package chaos provides the fault-injection hook points a crash-recovery
// engine needs for testing: an interface with a no-op production
// implementation and a configurable test implementation that panics at a
// labelled scenario number. The scenario numbers are part of the
// crash-recovery test matrix and must never be renumbered.
package chaos

// Point is injected into the persistent map so its write path can call
// Hit at each labelled crash point. Production code always gets Noop{};
// tests wire up an Injector to simulate the writer process dying at an
// exact step.
type Point interface {
	// Hit is called with the scenario number immediately before the step
	// it labels executes. A test Point panics to simulate the writer
	// process dying mid-operation; the panic is expected to propagate out
	// of WriteLock's body so the lock is left held (orphaned) for the
	// next process to steal and recover.
	Hit(scenario int)
}

// Noop is the production implementation: it never interrupts anything.
type Noop struct{}

func (Noop) Hit(int) {}

// Crash is the sentinel panic value a test Injector raises. Recovering
// tests assert on this type to distinguish an injected crash from a real
// bug.
type Crash struct{ Scenario int }

// Injector is the test implementation: it panics with Crash the first
// time Hit observes its configured scenario number, then disarms itself
// so a retried operation after recovery runs to completion.
type Injector struct {
	At   int
	done bool
}

func (i *Injector) Hit(scenario int) {
	if i.done || scenario != i.At {
		return
	}

	i.done = true

	panic(Crash{Scenario: scenario})
}
