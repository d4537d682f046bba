package topic

import (
	"fmt"
	"regexp"
)

// Pattern decides whether a topic belongs to a pattern registration.
//
// String returns the pattern's source text. The bus keys its pattern indices
// by the pattern's concrete type and that text, so two patterns of the same
// kind compiled from the same source share one member set, and the first one
// registered does the matching for both. Implementations must therefore
// return a String that identifies the set of topics they match: two values
// of one type with equal String must match the same topics.
type Pattern interface {
	Match(t Topic) bool
	String() string
}

// Regexp is a Pattern backed by a regular expression that must match the
// whole topic, not a substring of it.
type Regexp struct {
	source string
	re     *regexp.Regexp
}

// CompileRegexp compiles expr into a whole-topic Regexp pattern.
func CompileRegexp(expr string) (*Regexp, error) {
	re, err := regexp.Compile(`^(?:` + expr + `)$`)
	if err != nil {
		return nil, fmt.Errorf("compile topic pattern %q: %w", expr, err)
	}
	return &Regexp{source: expr, re: re}, nil
}

// MustCompileRegexp is like CompileRegexp but panics if expr is invalid.
func MustCompileRegexp(expr string) *Regexp {
	p, err := CompileRegexp(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// Match implements Pattern.
func (r *Regexp) Match(t Topic) bool {
	if t == None {
		return false
	}
	return r.re.MatchString(string(t))
}

// String implements Pattern.
func (r *Regexp) String() string {
	return r.source
}

// Wildcard is a Pattern over dot-separated topics using "*" for one segment
// and "**" for any number of segments.
type Wildcard Topic

// Match implements Pattern.
func (w Wildcard) Match(t Topic) bool {
	return t.Matches(Topic(w))
}

// String implements Pattern.
func (w Wildcard) String() string {
	return string(w)
}
