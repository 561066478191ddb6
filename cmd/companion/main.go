// Command companion is a terminal chat companion that answers with kindness,
// backed by Google Gemini.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

var version = "dev"

// exitError carries a status code for failures already reported to the user.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// streams holds the process I/O so commands can be driven from tests.
type streams struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
}

func main() {
	s := streams{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		getenv: os.Getenv,
	}

	os.Exit(execute(context.Background(), s, os.Args[1:]))
}

// execute runs the root command with args and returns the process exit code.
func execute(ctx context.Context, s streams, args []string) int {
	cmd := newRootCmd(s)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}

	fmt.Fprintf(s.stderr, "error: %v\n", err)

	return 1
}
