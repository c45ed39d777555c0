package filtering

import (
	"fmt"
	"strings"

	"github.com/femon07/codex-skill-updater/pkg/constants"
	"github.com/femon07/codex-skill-updater/pkg/strategy"
)

// FilterAll is the filter value that matches all items.
const FilterAll = "all"

// FilterOptions contains the filter criteria for skills.
//
// Each field can contain comma-separated values. Empty strings or "all"
// match everything for that criteria.
//
// Fields:
//   - Strategy: strategy values (UpdateViaRemote, InstallFromLocalArchive, ManualSourceMapRequired)
//   - Name: skill name patterns (see ParseMatcher)
type FilterOptions struct {
	Strategy string
	Name     string
}

// Filter is a compiled FilterOptions.
type Filter struct {
	strategies []string
	names      []Matcher
}

// FromFlags creates FilterOptions from CLI flag values.
func FromFlags(strategyFlag, nameFlag string) FilterOptions {
	return FilterOptions{Strategy: strategyFlag, Name: nameFlag}
}

// IsEmpty returns true when no filter is set.
func (o FilterOptions) IsEmpty() bool {
	return len(trimAndSplit(o.Strategy)) == 0 && len(trimAndSplit(o.Name)) == 0
}

// Compile validates the options and returns a Filter.
//
// Strategy values are matched case-insensitively against the known strategies.
//
// Returns:
//   - *Filter: the compiled filter
//   - error: an unknown strategy or an invalid name pattern
func (o FilterOptions) Compile() (*Filter, error) {
	f := &Filter{}
	for _, s := range trimAndSplit(o.Strategy) {
		canonical, ok := canonicalStrategy(s)
		if !ok {
			return nil, fmt.Errorf("unknown strategy %q (valid: %s)", s, strings.Join(constants.Strategies, ", "))
		}
		f.strategies = append(f.strategies, canonical)
	}
	names, err := ParseMatchers(trimAndSplit(o.Name))
	if err != nil {
		return nil, err
	}
	f.names = names
	return f, nil
}

// Match reports whether a skill passes the filter.
//
// A skill passes when its strategy is one of the selected strategies and its
// name matches at least one name pattern. Empty criteria match everything.
func (f *Filter) Match(name, strategyValue string) bool {
	if f == nil {
		return true
	}
	if len(f.strategies) > 0 && !contains(f.strategies, strategyValue) {
		return false
	}
	if len(f.names) == 0 {
		return true
	}
	for _, m := range f.names {
		if m.Match(name) {
			return true
		}
	}
	return false
}

// Decisions returns the decisions that pass the filter, preserving order.
func (f *Filter) Decisions(decisions []strategy.Decision) []strategy.Decision {
	if f == nil || (len(f.strategies) == 0 && len(f.names) == 0) {
		return decisions
	}
	var filtered []strategy.Decision
	for _, d := range decisions {
		if f.Match(d.Name, d.Strategy) {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

func canonicalStrategy(s string) (string, bool) {
	for _, known := range constants.Strategies {
		if strings.EqualFold(known, s) {
			return known, true
		}
	}
	return "", false
}

// trimAndSplit splits a comma-separated flag and drops empty parts. "all"
// yields an empty slice.
func trimAndSplit(s string) []string {
	if strings.TrimSpace(s) == "" || strings.EqualFold(strings.TrimSpace(s), FilterAll) {
		return []string{}
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
