package main

import (
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/theflywheel/pmap"
)

func cmdRepair(out, errOut io.Writer, args []string) int {
	flagSet := flag.NewFlagSet("repair", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	keySize := flagSet.Uint32("key-size", 8, "key width in bytes")
	valueSize := flagSet.Uint32("value-size", 8, "value width in bytes")

	if err := flagSet.Parse(args); err != nil {
		fmt.Fprintln(errOut, "error:", err)

		return 1
	}

	remaining := flagSet.Args()
	if len(remaining) != 1 {
		fmt.Fprintln(errOut, "error: repair requires exactly one path argument")

		return 1
	}

	m, err := pmap.Open[string, []byte](remaining[0], 0,
		pmap.FixedStringCodec{Width: *keySize},
		pmap.FixedBytesCodec{Width: *valueSize},
	)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)

		return 1
	}
	defer m.Close()

	before := m.Stat().LockHeldByPID

	if err := m.Repair(); err != nil {
		fmt.Fprintln(errOut, "error:", err)

		return 1
	}

	if before != 0 {
		fmt.Fprintf(out, "stole orphaned lock held by pid %d and rolled back the interrupted operation\n", before)
	} else {
		fmt.Fprintln(out, "no orphaned lock found; nothing to repair")
	}

	return 0
}
