// Package probe defines the smoke-test battery and runs it.
//
// A probe is one request plus the rule that judges its response. Probes are
// grouped; a group may require the session to hold a token, in which case it
// is skipped visibly when none was captured. Probes never abort the run:
// transport errors and malformed bodies turn into failing results and the
// runner moves on.
package probe

import (
	"fmt"
	"slices"

	"github.com/bgricker/apiprobe/internal/client"
)

// Group is an ordered set of probes reported under one heading.
type Group struct {
	ID           string
	Title        string
	RequiresAuth bool
	Probes       []Probe
}

// Probe describes a single request and how to judge the response.
type Probe struct {
	Name   string
	Method string
	// Path is the request path. When Route is set it is only the template
	// shown by listings.
	Path string
	// Route builds the path from values captured earlier in the run. An
	// error fails the probe without sending anything.
	Route func(session *Session) (string, error)
	// Auth sends the session token as a bearer credential.
	Auth bool
	// Body builds the JSON payload; nil sends no body.
	Body func() any
	// Accept lists the status codes that count as a pass.
	Accept []int
	// JSON requires the body to decode before any judgement is made.
	JSON bool
	// Check adds a body assertion on top of the status code.
	Check func(resp client.Response, session *Session) bool
	// Detail formats the line printed under the result.
	Detail func(resp client.Response, sent any) string
	// Capture runs after a passing result and may update the session. A
	// non-empty return is printed as a note.
	Capture func(resp client.Response, session *Session) string
}

// Judge applies the status and body rules to resp.
func (p Probe) Judge(resp client.Response, session *Session) bool {
	if !slices.Contains(p.Accept, resp.StatusCode) {
		return false
	}
	if p.Check != nil && !p.Check(resp, session) {
		return false
	}
	return true
}

func statusDetail(resp client.Response, _ any) string {
	return fmt.Sprintf("status: %d", resp.StatusCode)
}

func noDetail(client.Response, any) string {
	return ""
}

func rejectionDetail(resp client.Response, _ any) string {
	return fmt.Sprintf("status: %d (rejection expected)", resp.StatusCode)
}
