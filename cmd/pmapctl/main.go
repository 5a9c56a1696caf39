// Command pmapctl inspects, dumps, and repairs a pmap file pair from the
// command line, without requiring a caller to link against the Go API.
package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	os.Exit(run(os.Stdout, os.Stderr, os.Args[1:]))
}

func run(out, errOut io.Writer, args []string) int {
	if len(args) == 0 {
		printUsage(out)

		return 1
	}

	switch args[0] {
	case "stat":
		return cmdStat(out, errOut, args[1:])
	case "dump":
		return cmdDump(out, errOut, args[1:])
	case "repair":
		return cmdRepair(out, errOut, args[1:])
	case "-h", "--help", "help":
		printUsage(out)

		return 0
	default:
		fmt.Fprintf(errOut, "pmapctl: unknown command %q\n", args[0])
		printUsage(errOut)

		return 1
	}
}

func printUsage(out io.Writer) {
	fmt.Fprintln(out, "Usage: pmapctl <command> [flags] <path>")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  stat    Print header state: count, free count, generation, lock holder")
	fmt.Fprintln(out, "  dump    Write all live entries as a JSON snapshot")
	fmt.Fprintln(out, "  repair  Force a lock acquisition cycle, stealing and rolling back an orphaned lock")
}
