package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bgricker/apiprobe/internal/config"
)

// gatherFlags reads the flags the user actually passed, so that unset flags
// never shadow lower precedence sources.
func gatherFlags(flags *pflag.FlagSet) (config.FlagValues, error) {
	var values config.FlagValues

	stringFlags := []struct {
		name string
		dst  *config.StringFlag
	}{
		{"base-url", &values.BaseURL},
		{"format", &values.Format},
		{"login-email", &values.LoginEmail},
		{"login-password", &values.LoginPassword},
		{"node-id", &values.NodeID},
		{"metrics-file", &values.MetricsFile},
	}
	for _, f := range stringFlags {
		if !flags.Changed(f.name) {
			continue
		}
		v, err := flags.GetString(f.name)
		if err != nil {
			return values, fmt.Errorf("parse --%s: %w", f.name, err)
		}
		*f.dst = config.StringFlag{Value: v, Set: true}
	}

	if flags.Changed("timeout") {
		v, err := flags.GetDuration("timeout")
		if err != nil {
			return values, fmt.Errorf("parse --timeout: %w", err)
		}
		values.Timeout = config.DurationFlag{Value: v, Set: true}
	}

	if flags.Changed("only-group") {
		v, err := flags.GetStringArray("only-group")
		if err != nil {
			return values, fmt.Errorf("parse --only-group: %w", err)
		}
		values.OnlyGroups = config.SliceFlag{Values: append([]string{}, v...)}
	}

	if flags.Changed("skip-group") {
		v, err := flags.GetStringArray("skip-group")
		if err != nil {
			return values, fmt.Errorf("parse --skip-group: %w", err)
		}
		values.SkipGroups = config.SliceFlag{Values: append([]string{}, v...)}
	}

	if flags.Changed("extended") {
		v, err := flags.GetBool("extended")
		if err != nil {
			return values, fmt.Errorf("parse --extended: %w", err)
		}
		values.Extended = config.BoolFlag{Value: v, Set: true}
	}

	if flags.Changed("e2e") {
		v, err := flags.GetBool("e2e")
		if err != nil {
			return values, fmt.Errorf("parse --e2e: %w", err)
		}
		values.Journey = config.BoolFlag{Value: v, Set: true}
	}

	if flags.Changed("verbose") {
		v, err := flags.GetBool("verbose")
		if err != nil {
			return values, fmt.Errorf("parse --verbose: %w", err)
		}
		values.Verbose = config.BoolFlag{Value: v, Set: true}
	}

	return values, nil
}
