// Command docsql compiles document queries to PostgreSQL and runs them.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/docsql/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Commands print their own formatted errors; only cobra's own
		// failures (unknown flags, bad arguments) still need reporting.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
