package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bgricker/apiprobe/internal/config"
	"github.com/bgricker/apiprobe/internal/discovery"
	"github.com/bgricker/apiprobe/internal/logging"
	"github.com/bgricker/apiprobe/internal/probe"
	"github.com/bgricker/apiprobe/internal/probe/filter"
)

// loadConfig layers defaults, the config file, .env, the environment and
// flags, in that order. Every failure is a command error.
func loadConfig(cmd *cobra.Command) (config.Config, discovery.Files, error) {
	root, err := os.Getwd()
	if err != nil {
		return config.Config{}, discovery.Files{}, WrapExitError(ExitCommandError, "determine working directory", err)
	}

	explicit, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, discovery.Files{}, WrapExitError(ExitCommandError, "parse --config", err)
	}

	files, err := discovery.Locate(root, explicit)
	if err != nil {
		return config.Config{}, files, WrapExitError(ExitCommandError, "locate config", err)
	}

	cfg, err := config.Load(config.Default(), files.Config)
	if err != nil {
		return cfg, files, WrapExitError(ExitCommandError, "load config", err)
	}

	if err := config.ApplyEnv(&cfg, files.DotEnv, os.Environ()); err != nil {
		return cfg, files, WrapExitError(ExitCommandError, "load environment", err)
	}

	flags, err := gatherFlags(cmd.Flags())
	if err != nil {
		return cfg, files, WrapExitError(ExitCommandError, "read flags", err)
	}
	config.ApplyFlags(&cfg, flags)

	if err := cfg.Validate(); err != nil {
		return cfg, files, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	return cfg, files, nil
}

func newLogger(cmd *cobra.Command, cfg config.Config) *slog.Logger {
	return logging.ForVerbosity(cmd.ErrOrStderr(), cfg.Verbose || cfg.LogRequests || cfg.LogResponses)
}

func catalogFor(cfg config.Config) []probe.Group {
	return probe.Catalog(probe.CatalogOptions{
		LoginEmail:    cfg.LoginEmail,
		LoginPassword: cfg.LoginPassword,
		NodeID:        cfg.NodeID,
		RootMarker:    cfg.RootMarker,
		HealthMarker:  cfg.HealthMarker,
		Extended:      cfg.Extended,
		Journey:       cfg.Journey,
	})
}

func selectorFor(cfg config.Config) (filter.Selector, error) {
	selector, err := filter.NewSelector(cfg.OnlyGroups, cfg.SkipGroups)
	if err != nil {
		return selector, WrapExitError(ExitCommandError, "invalid group filter", err)
	}
	return selector, nil
}

func describeFiles(files discovery.Files) string {
	root, err := os.Getwd()
	if err != nil {
		return fmt.Sprintf("%+v", files)
	}
	return files.Describe(root)
}
