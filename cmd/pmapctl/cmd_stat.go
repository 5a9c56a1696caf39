package main

import (
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/theflywheel/pmap"
)

func cmdStat(out, errOut io.Writer, args []string) int {
	flagSet := flag.NewFlagSet("stat", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	keySize := flagSet.Uint32("key-size", 8, "key width in bytes")
	valueSize := flagSet.Uint32("value-size", 8, "value width in bytes")

	if err := flagSet.Parse(args); err != nil {
		fmt.Fprintln(errOut, "error:", err)

		return 1
	}

	remaining := flagSet.Args()
	if len(remaining) != 1 {
		fmt.Fprintln(errOut, "error: stat requires exactly one path argument")

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

	s := m.Stat()

	fmt.Fprintf(out, "count:          %d\n", s.Count)
	fmt.Fprintf(out, "free_count:     %d\n", s.FreeCount)
	fmt.Fprintf(out, "generation:     %d\n", s.Generation)
	fmt.Fprintf(out, "lock_held_by:   %d\n", s.LockHeldByPID)
	fmt.Fprintf(out, "recovery_flags: %#x\n", uint32(s.RecoveryFlags))

	return 0
}
