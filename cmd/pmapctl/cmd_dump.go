package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"

	"github.com/theflywheel/pmap"
)

type dumpEntry struct {
	Key   string `json:"key"`
	Value string `json:"value_hex"`
}

func cmdDump(out, errOut io.Writer, args []string) int {
	flagSet := flag.NewFlagSet("dump", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	keySize := flagSet.Uint32("key-size", 8, "key width in bytes")
	valueSize := flagSet.Uint32("value-size", 8, "value width in bytes")
	outPath := flagSet.String("out", "", "file to write the JSON snapshot to (required)")

	if err := flagSet.Parse(args); err != nil {
		fmt.Fprintln(errOut, "error:", err)

		return 1
	}

	remaining := flagSet.Args()
	if len(remaining) != 1 {
		fmt.Fprintln(errOut, "error: dump requires exactly one path argument")

		return 1
	}

	if *outPath == "" {
		fmt.Fprintln(errOut, "error: --out is required")

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

	entries := make([]dumpEntry, 0, m.Count())

	it := m.Iter()

	for {
		k, v, ok, iterErr := it.Next()
		if iterErr != nil {
			fmt.Fprintln(errOut, "error:", iterErr)

			return 1
		}

		if !ok {
			break
		}

		entries = append(entries, dumpEntry{Key: k, Value: hex.EncodeToString(v)})
	}

	buf, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)

		return 1
	}

	// Atomic write: a reader of the output path never observes a
	// partially-written snapshot, matching the crash-safety the map
	// itself provides on the files it owns.
	if err := atomic.WriteFile(*outPath, bytes.NewReader(buf)); err != nil {
		fmt.Fprintln(errOut, "error:", err)

		return 1
	}

	fmt.Fprintf(out, "wrote %d entries to %s\n", len(entries), *outPath)

	return 0
}
