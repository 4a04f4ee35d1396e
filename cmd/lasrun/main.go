// Command lasrun assembles and runs LAStools command lines. Every LAStools
// tool, production variant and pipeline is a subcommand whose flags are
// the tool's parameters.
package main

import (
	"errors"
	"fmt"
	"os"
)

// exitError carries a process exit code out of a command.
type exitError struct {
	Code    int
	Message string
}

func (e *exitError) Error() string {
	return e.Message
}

func main() {
	if err := newApp(os.Stdout, os.Stderr).execute(os.Args[1:]); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
