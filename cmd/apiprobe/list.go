package main

import (
	"github.com/spf13/cobra"

	"github.com/bgricker/apiprobe/internal/output"
	"github.com/bgricker/apiprobe/internal/probe"
	"github.com/bgricker/apiprobe/internal/probe/filter"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the probe groups and probes that would run",
		Args:  noArgs,
		RunE:  runList,
	}
}

func runList(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	selector, err := selectorFor(cfg)
	if err != nil {
		return err
	}

	planner, err := output.NewPlanner(cfg.Format, cmd.OutOrStdout())
	if err != nil {
		return WrapExitError(ExitCommandError, "select reporter", err)
	}
	return planner.Plan(planFor(catalogFor(cfg), selector))
}

func planFor(groups []probe.Group, selector filter.Selector) []output.PlanGroup {
	plan := make([]output.PlanGroup, 0, len(groups))
	for i, g := range groups {
		if !selector.Allow(g.ID, g.Title) {
			continue
		}
		pg := output.PlanGroup{
			Index:        i + 1,
			ID:           g.ID,
			Title:        g.Title,
			RequiresAuth: g.RequiresAuth,
			Probes:       make([]output.PlanProbe, 0, len(g.Probes)),
		}
		for _, p := range g.Probes {
			pg.Probes = append(pg.Probes, output.PlanProbe{
				Name:   p.Name,
				Method: p.Method,
				Path:   p.Path,
				Auth:   p.Auth,
				Accept: p.Accept,
			})
		}
		plan = append(plan, pg)
	}
	return plan
}
