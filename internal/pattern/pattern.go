// Package pattern compiles phrase templates into anchored, case-insensitive matchers.
//
// A template is plain text with three optional constructs:
//
//	"show me *stuff"              splat: captures everything in that position
//	"give :thing please"          named: captures exactly one word
//	"do you like tea (please)"    optional: matches with or without the segment
//
// Captures are returned positionally, left to right.
package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// Matcher tests a candidate string and returns its captures on success.
type Matcher interface {
	Match(s string) ([]string, bool)
	String() string
}

// Regexp is a Matcher backed by a compiled regular expression.
type Regexp struct {
	re *regexp.Regexp
}

// FromRegexp wraps a pre-built expression. It is used as-is: no anchoring and no case folding.
func FromRegexp(re *regexp.Regexp) *Regexp {
	return &Regexp{re: re}
}

// Match returns the submatches of s (without the full match) when s is accepted.
func (r *Regexp) Match(s string) ([]string, bool) {
	if r == nil || r.re == nil {
		return nil, false
	}
	groups := r.re.FindStringSubmatch(s)
	if groups == nil {
		return nil, false
	}
	params := make([]string, len(groups)-1)
	copy(params, groups[1:])
	return params, true
}

// String returns the source expression.
func (r *Regexp) String() string {
	if r == nil || r.re == nil {
		return ""
	}
	return r.re.String()
}

var (
	optionalSegment  = regexp.MustCompile(`\s*\((.*?)\)\s*`)
	namedSlot        = regexp.MustCompile(`(\(\?)?:(?:\\x\{[0-9a-f]+\})+`)
	splatSlot        = regexp.MustCompile(`\*\S+`)
	optionalGroup    = regexp.MustCompile(`(\(\?:[^)]+\))\?`)
	templateSpecials = "():*"
)

// Compile turns a phrase template into a Matcher.
//
// Every literal rune becomes a code-point escape before the slot rewrites run, so punctuation
// and non-ASCII text in the template are matched verbatim and never read as expression syntax.
func Compile(template string) (*Regexp, error) {
	expr := Translate(template)
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile template %q: %w", template, err)
	}
	return &Regexp{re: re}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(template string) *Regexp {
	m, err := Compile(template)
	if err != nil {
		panic(err)
	}
	return m
}

// Translate returns the regular expression source Compile would use for template.
func Translate(template string) string {
	expr := escapeLiterals(template)
	expr = optionalSegment.ReplaceAllString(expr, "(?:$1)?")
	expr = namedSlot.ReplaceAllStringFunc(expr, func(match string) string {
		if strings.HasPrefix(match, "(?") {
			return match
		}
		return `([^\s]+)`
	})
	expr = splatSlot.ReplaceAllLiteralString(expr, "(.*?)")
	expr = optionalGroup.ReplaceAllString(expr, `\s*$1?\s*`)
	return "(?i)^" + expr + "$"
}

// escapeLiterals rewrites every rune except template markers and whitespace as \x{hex}.
func escapeLiterals(template string) string {
	var b strings.Builder
	b.Grow(len(template) * 6)
	for _, r := range template {
		if strings.ContainsRune(templateSpecials, r) || isSpace(r) {
			b.WriteRune(r)
			continue
		}
		fmt.Fprintf(&b, `\x{%x}`, r)
	}
	return b.String()
}

// isSpace mirrors the \s class of RE2 so escaping and matching agree on whitespace.
func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\f', '\r':
		return true
	default:
		return false
	}
}
