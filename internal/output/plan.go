package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// PlanGroup is a probe group as shown by the list command.
type PlanGroup struct {
	Index        int         `json:"index"`
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	RequiresAuth bool        `json:"requires_auth"`
	Probes       []PlanProbe `json:"probes"`
}

// PlanProbe is a single planned request.
type PlanProbe struct {
	Name   string `json:"name"`
	Method string `json:"method"`
	Path   string `json:"path"`
	Auth   bool   `json:"auth"`
	Accept []int  `json:"accept"`
}

// Planner renders the probes a run would execute.
type Planner interface {
	Plan(groups []PlanGroup) error
}

// NewPlanner returns the plan renderer for format.
func NewPlanner(format string, out io.Writer) (Planner, error) {
	switch strings.ToLower(format) {
	case FormatPretty, "":
		return NewPretty(out), nil
	case FormatPlain:
		return NewPlain(out), nil
	case FormatJSON:
		return NewJSON(out), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// Plan lists groups and their probes.
func (r *TextRenderer) Plan(groups []PlanGroup) error {
	if len(groups) == 0 {
		return r.writeLines("No matching probe groups")
	}
	probes := 0
	for _, g := range groups {
		heading := fmt.Sprintf("%d. %s [%s]", g.Index, g.Title, g.ID)
		if g.RequiresAuth {
			heading += " (requires token)"
		}
		if err := r.writeLines(r.palette.frame(heading)); err != nil {
			return err
		}
		for _, p := range g.Probes {
			line := fmt.Sprintf("   %-5s %-32s %s", p.Method, p.Path, p.Name)
			if err := r.writeLines(strings.TrimRight(line, " ")); err != nil {
				return err
			}
			probes++
		}
	}
	return r.writeLines("", fmt.Sprintf("%d groups, %d probes", len(groups), probes))
}

// Plan writes the groups as a JSON array.
func (j *JSONRenderer) Plan(groups []PlanGroup) error {
	if groups == nil {
		groups = []PlanGroup{}
	}
	enc := json.NewEncoder(j.out)
	enc.SetIndent("", "  ")
	return enc.Encode(groups)
}
