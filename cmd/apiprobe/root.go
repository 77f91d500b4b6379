package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apiprobe",
		Short: "Apiprobe smoke-tests a running API",
		Long: "Apiprobe sends a fixed battery of requests to a running API, checks the\n" +
			"status codes and a few JSON fields, and prints a pass/fail report.\n" +
			"Without a subcommand it behaves like \"apiprobe run\".",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          noArgs,
		RunE:          runProbes,
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	persistent := cmd.PersistentFlags()
	persistent.String("config", "", "config file (default .apiprobe.yml in the working directory)")
	persistent.String("base-url", "", "base URL of the API under test (default http://localhost:3000)")
	persistent.String("format", "pretty", "output format (pretty|plain|json)")
	persistent.Duration("timeout", 0, "per-request timeout, 0 uses the HTTP client default")
	persistent.String("login-email", "", "email used by the login and password reset probes")
	persistent.String("login-password", "", "password used by the login probe")
	persistent.String("node-id", "", "node id used by the machine reporting probes (default 1)")
	persistent.StringArray("only-group", nil, "include only matching probe groups (repeatable, /regex/ allowed)")
	persistent.StringArray("skip-group", nil, "exclude matching probe groups (repeatable, /regex/ allowed)")
	persistent.Bool("extended", false, "also run the extended checks")
	persistent.Bool("e2e", false, "also run the end-to-end account journey (opens and closes a ticket, rotates the subscription token)")
	persistent.BoolP("verbose", "v", false, "log requests and decisions to stderr")
	persistent.String("metrics-file", "", "write Prometheus metrics for the run to this file")

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newRunCmd())

	return cmd
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown argument %q for %q", args[0], cmd.CommandPath()))
	}
	return nil
}
