// Command ldaudit reports stale LaunchDarkly feature flags and the code that
// still references them.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ldaudit/ldaudit/internal/cli"
	"github.com/ldaudit/ldaudit/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// run executes the CLI with args and returns the process exit code.
func run(args []string, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd(version.GetVersion())
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	reportError(stderr, err)
	return extractExitCode(err)
}

// reportError prints err and a remediation hint, if any.
func reportError(w io.Writer, err error) {
	if err == nil {
		return
	}
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	if hint := cli.ErrorHint(err); hint != "" {
		_, _ = fmt.Fprintf(w, "Hint: %s\n", hint)
	}
}

// extractExitCode maps a command error to a process exit code.
func extractExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}
