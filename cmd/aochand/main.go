// Command aochand drives solver binaries against stored test inputs,
// grounded on crates/aoc/src/cli of the original implementation. The
// default and --stdin modes are preserved as documented CLI surface only;
// the behavior implemented end-to-end here is --test.
package main

import (
	"errors"
	"fmt"
	"os"

	_ "go.uber.org/automaxprocs"

	"github.com/ictrobot/aochand/internal/cli"
	"github.com/ictrobot/aochand/internal/usageerr"
)

func main() {
	root := cli.NewRootCommand()

	err := root.Execute()
	switch {
	case err == nil:
		os.Exit(0)
	case errors.Is(err, usageerr.ErrFailedSilent):
		os.Exit(1)
	case errors.As(err, new(*usageerr.UsageError)):
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(usageerr.ExitCode)
	default:
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
