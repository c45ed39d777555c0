package filtering

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// Matcher defines the interface for skill name matching strategies.
//
// Example:
//
//	matcher, _ := filtering.ParseMatcher("pdf-*")
//	if matcher.Match("pdf-tools") {
//	    fmt.Println("matched!")
//	}
type Matcher interface {
	// Match tests if the given value matches the pattern.
	Match(value string) bool

	// String returns a string representation of the matcher.
	String() string
}

// ExactMatcher matches names equal to the pattern, ignoring case.
type ExactMatcher struct {
	Pattern string
}

// Match tests if value equals the pattern.
func (m *ExactMatcher) Match(value string) bool {
	return strings.EqualFold(value, m.Pattern)
}

func (m *ExactMatcher) String() string {
	return m.Pattern
}

// PrefixMatcher matches names that start with the prefix, ignoring case.
type PrefixMatcher struct {
	Prefix string
}

// Match tests if value starts with the prefix.
func (m *PrefixMatcher) Match(value string) bool {
	return strings.HasPrefix(strings.ToLower(value), strings.ToLower(m.Prefix))
}

func (m *PrefixMatcher) String() string {
	return m.Prefix + "*"
}

// SuffixMatcher matches names that end with the suffix, ignoring case.
type SuffixMatcher struct {
	Suffix string
}

// Match tests if value ends with the suffix.
func (m *SuffixMatcher) Match(value string) bool {
	return strings.HasSuffix(strings.ToLower(value), strings.ToLower(m.Suffix))
}

func (m *SuffixMatcher) String() string {
	return "*" + m.Suffix
}

// GlobMatcher matches names with path.Match syntax (*, ?, [class]).
//
// Example:
//
//	matcher := &filtering.GlobMatcher{Pattern: "doc?-*"}
//	matcher.Match("docx-writer") // returns true
//	matcher.Match("pdf")         // returns false
type GlobMatcher struct {
	Pattern string
}

// Match tests if value matches the glob pattern. A malformed pattern matches nothing.
func (m *GlobMatcher) Match(value string) bool {
	ok, err := path.Match(strings.ToLower(m.Pattern), strings.ToLower(value))
	return err == nil && ok
}

func (m *GlobMatcher) String() string {
	return m.Pattern
}

// RegexMatcher matches names against a regular expression.
type RegexMatcher struct {
	Pattern string
	regex   *regexp.Regexp
}

// Match tests if value matches the regex.
func (m *RegexMatcher) Match(value string) bool {
	if m.regex == nil {
		return false
	}
	return m.regex.MatchString(value)
}

// String returns the pattern prefixed with a tilde.
func (m *RegexMatcher) String() string {
	return "~" + m.Pattern
}

// NotMatcher negates another matcher.
type NotMatcher struct {
	Matcher Matcher
}

// Match returns true when the wrapped matcher does not match.
func (m *NotMatcher) Match(value string) bool {
	return !m.Matcher.Match(value)
}

func (m *NotMatcher) String() string {
	return "!" + m.Matcher.String()
}

// ParseMatcher creates the appropriate matcher for a pattern string.
//
// Supported syntax:
//   - "name" - exact match (case-insensitive)
//   - "prefix*" - prefix match
//   - "*suffix" - suffix match
//   - "a?c*", "[ab]*" - glob match
//   - "~regex" - regex match
//   - "!pattern" - negated match
//
// Parameters:
//   - pattern: Pattern string to parse
//
// Returns:
//   - Matcher: Appropriate matcher for the pattern
//   - error: Error if pattern is invalid (bad regex or glob)
func ParseMatcher(pattern string) (Matcher, error) {
	if strings.HasPrefix(pattern, "!") {
		inner, err := ParseMatcher(pattern[1:])
		if err != nil {
			return nil, err
		}
		return &NotMatcher{Matcher: inner}, nil
	}

	if strings.HasPrefix(pattern, "~") {
		re, err := regexp.Compile(pattern[1:])
		if err != nil {
			return nil, fmt.Errorf("invalid name pattern %q: %w", pattern, err)
		}
		return &RegexMatcher{Pattern: pattern[1:], regex: re}, nil
	}

	if strings.ContainsAny(pattern, "*?[") {
		if strings.HasSuffix(pattern, "*") && !strings.ContainsAny(pattern[:len(pattern)-1], "*?[") {
			return &PrefixMatcher{Prefix: pattern[:len(pattern)-1]}, nil
		}
		if strings.HasPrefix(pattern, "*") && !strings.ContainsAny(pattern[1:], "*?[") {
			return &SuffixMatcher{Suffix: pattern[1:]}, nil
		}
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("invalid name pattern %q: %w", pattern, err)
		}
		return &GlobMatcher{Pattern: pattern}, nil
	}

	return &ExactMatcher{Pattern: pattern}, nil
}

// ParseMatchers creates matchers from multiple pattern strings.
func ParseMatchers(patterns []string) ([]Matcher, error) {
	matchers := make([]Matcher, 0, len(patterns))
	for _, pattern := range patterns {
		m, err := ParseMatcher(pattern)
		if err != nil {
			return nil, err
		}
		matchers = append(matchers, m)
	}
	return matchers, nil
}

// Verify interface implementations.
var (
	_ Matcher = (*ExactMatcher)(nil)
	_ Matcher = (*PrefixMatcher)(nil)
	_ Matcher = (*SuffixMatcher)(nil)
	_ Matcher = (*GlobMatcher)(nil)
	_ Matcher = (*RegexMatcher)(nil)
	_ Matcher = (*NotMatcher)(nil)
)
