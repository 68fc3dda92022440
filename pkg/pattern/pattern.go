// Package pattern implements the exclusion and inclusion filters used across
// the analysis engine. A filter is a list of patterns; each pattern is either
// a glob (the default, matched case-insensitively like fnmatch) or a regular
// expression selected with the "re:" prefix. A candidate matches the filter
// when any pattern matches.
package pattern

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Prefixes that disambiguate the pattern syntax. A pattern without a
// recognized prefix is treated as a glob.
const (
	prefixRegexp = "re:"
	prefixGlob   = "glob:"
)

// ErrInvalidPattern indicates a pattern that failed to compile.
var ErrInvalidPattern = errors.New("invalid pattern")

// Matcher is a compiled, OR-combined list of patterns. The zero value matches
// nothing. Matchers are immutable after Compile and safe for concurrent use.
type Matcher struct {
	patterns []compiledPattern
}

type compiledPattern struct {
	re     *regexp.Regexp
	source string
}

// Compile builds a Matcher from raw pattern strings. It fails fast on the
// first pattern that does not compile, identifying the offender.
func Compile(patterns []string) (*Matcher, error) {
	m := &Matcher{patterns: make([]compiledPattern, 0, len(patterns))}

	for _, p := range patterns {
		re, err := compileOne(p)
		if err != nil {
			return nil, err
		}

		m.patterns = append(m.patterns, compiledPattern{re: re, source: p})
	}

	return m, nil
}

// MustCompile is Compile for patterns known to be valid, such as test
// fixtures and built-in defaults. It panics on error.
func MustCompile(patterns []string) *Matcher {
	m, err := Compile(patterns)
	if err != nil {
		panic(err)
	}

	return m
}

func compileOne(p string) (*regexp.Regexp, error) {
	var (
		expr string
		err  error
	)

	switch {
	case strings.HasPrefix(p, prefixRegexp):
		expr = strings.TrimPrefix(p, prefixRegexp)
	case strings.HasPrefix(p, prefixGlob):
		expr = globToRegexp(strings.TrimPrefix(p, prefixGlob))
	default:
		expr = globToRegexp(p)
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidPattern, p, err)
	}

	return re, nil
}

// globToRegexp translates a glob into an anchored, case-insensitive regular
// expression. Unlike path.Match, "*" crosses path separators, which is what
// fnmatch-style exclusion lists expect.
func globToRegexp(glob string) string {
	var b strings.Builder

	b.WriteString("(?i)^")

	for _, r := range glob {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}

	b.WriteString("$")

	return b.String()
}

// Match reports whether the candidate matches any pattern in the filter.
// Matching never fails for a compiled Matcher.
func (m *Matcher) Match(candidate string) bool {
	if m == nil {
		return false
	}

	for _, p := range m.patterns {
		if p.re.MatchString(candidate) {
			return true
		}
	}

	return false
}

// MatchAny reports whether any of the candidates matches the filter.
func (m *Matcher) MatchAny(candidates ...string) bool {
	for _, c := range candidates {
		if m.Match(c) {
			return true
		}
	}

	return false
}

// Empty reports whether the filter has no patterns.
func (m *Matcher) Empty() bool {
	return m == nil || len(m.patterns) == 0
}

// Sources returns the original pattern strings, in compile order.
func (m *Matcher) Sources() []string {
	if m == nil {
		return nil
	}

	sources := make([]string, len(m.patterns))
	for i, p := range m.patterns {
		sources[i] = p.source
	}

	return sources
}
