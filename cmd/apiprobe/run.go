package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bgricker/apiprobe/internal/client"
	"github.com/bgricker/apiprobe/internal/metrics"
	"github.com/bgricker/apiprobe/internal/output"
	"github.com/bgricker/apiprobe/internal/probe"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the probe battery against the API",
		Args:  noArgs,
		RunE:  runProbes,
	}
}

func runProbes(cmd *cobra.Command, _ []string) error {
	cfg, files, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)
	logger.Debug("configuration loaded", "sources", describeFiles(files), "base_url", cfg.BaseURL, "format", cfg.Format)

	selector, err := selectorFor(cfg)
	if err != nil {
		return err
	}

	reporter, err := output.New(cfg.Format, cmd.OutOrStdout())
	if err != nil {
		return WrapExitError(ExitCommandError, "select reporter", err)
	}

	api := client.New(client.Options{
		BaseURL:      cfg.BaseURL,
		Timeout:      cfg.Timeout,
		Logger:       logger,
		LogRequests:  cfg.LogRequests || cfg.Verbose,
		LogResponses: cfg.LogResponses,
	})

	runner := probe.New(probe.Options{
		Client:   api,
		Reporter: reporter,
		Logger:   logger,
		Selector: selector,
		Groups:   catalogFor(cfg),
	})

	outcome, err := runner.Run(cmd.Context())
	if errors.Is(err, probe.ErrInterrupted) {
		return err
	}
	if err != nil {
		return WrapExitError(ExitFailure, "run aborted", err)
	}

	if cfg.MetricsFile != "" {
		reg := metrics.New()
		reg.Observe(outcome.Results, outcome.Stats, time.Now())
		if err := reg.WriteFile(cfg.MetricsFile); err != nil {
			return WrapExitError(ExitFailure, "export metrics", err)
		}
		logger.Debug("metrics written", "path", cfg.MetricsFile)
	}

	if code := outcome.Stats.ExitCode(); code != ExitSuccess {
		return &ExitError{
			Code:    code,
			Message: fmt.Sprintf("%d of %d probes failed", outcome.Stats.Failed, outcome.Stats.Total),
			Quiet:   true,
		}
	}
	return nil
}
