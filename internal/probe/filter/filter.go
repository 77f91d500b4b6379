// Package filter selects probe groups by name.
package filter

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern represents a compiled filter condition supporting substring and regex matching.
type Pattern struct {
	raw   string
	regex *regexp.Regexp
	lower string
}

// Compile transforms raw pattern strings into Pattern values. A pattern
// wrapped in slashes is a regular expression; anything else is a
// case-insensitive substring.
func Compile(patterns []string) ([]Pattern, error) {
	result := make([]Pattern, 0, len(patterns))
	for _, raw := range patterns {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.HasPrefix(raw, "/") && strings.HasSuffix(raw, "/") && len(raw) >= 2 {
			expr := raw[1 : len(raw)-1]
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("compile regexp %q: %w", raw, err)
			}
			result = append(result, Pattern{raw: raw, regex: re})
			continue
		}
		result = append(result, Pattern{raw: raw, lower: strings.ToLower(raw)})
	}
	return result, nil
}

// String returns the pattern as written.
func (p Pattern) String() string {
	return p.raw
}

// Match reports whether the pattern matches the supplied string.
func (p Pattern) Match(s string) bool {
	if s == "" {
		return false
	}
	if p.regex != nil {
		return p.regex.MatchString(s)
	}
	return strings.Contains(strings.ToLower(s), p.lower)
}

// Selector holds compiled include and exclude patterns.
type Selector struct {
	only []Pattern
	skip []Pattern
}

// NewSelector compiles only and skip pattern lists.
func NewSelector(only, skip []string) (Selector, error) {
	onlyPatterns, err := Compile(only)
	if err != nil {
		return Selector{}, fmt.Errorf("only-group: %w", err)
	}
	skipPatterns, err := Compile(skip)
	if err != nil {
		return Selector{}, fmt.Errorf("skip-group: %w", err)
	}
	return Selector{only: onlyPatterns, skip: skipPatterns}, nil
}

// Allow reports whether an item identified by keys passes the selector. An
// empty include list admits everything; any exclude match rejects.
func (s Selector) Allow(keys ...string) bool {
	if len(s.only) > 0 && !matchesAny(keys, s.only) {
		return false
	}
	if len(s.skip) > 0 && matchesAny(keys, s.skip) {
		return false
	}
	return true
}

func matchesAny(keys []string, patterns []Pattern) bool {
	for _, pattern := range patterns {
		for _, key := range keys {
			if pattern.Match(key) {
				return true
			}
		}
	}
	return false
}
