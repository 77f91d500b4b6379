package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/bgricker/apiprobe/internal/probe"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the CLI and maps the outcome onto an exit code. Panics are
// reported with a stack trace instead of crashing the process.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(stderr, "Error: %v\n\n%s", r, debug.Stack())
			code = ExitFailure
		}
	}()

	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, probe.ErrInterrupted):
		fmt.Fprintln(stderr, "\nInterrupted")
		return ExitFailure
	case isQuiet(err):
		return exitCode(err)
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCode(err)
	}
}
