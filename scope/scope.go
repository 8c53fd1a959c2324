// Package scope implements a single inclusion/exclusion predicate over one
// identity component of a statement (kw, obj, desc, anchor, or nm).
package scope

import "regexp"

// Component names a statement identity component a Scope is built over.
type Component string

const (
	KW     Component = "kw"
	Obj    Component = "obj"
	Desc   Component = "desc"
	Anchor Component = "anchor"
	Nm     Component = "nm"
)

// Args is the set of filter keyword arguments a caller passes to
// Script.Filter / Tag.Scope. Keys are "incl_<component>" / "excl_<component>"
// per spec.md §4.3; this struct realizes those dynamic kwargs as typed,
// per-component slices.
type Args struct {
	Incl map[Component][]string
	Excl map[Component][]string
}

// NewArgs returns an empty Args ready to be populated.
func NewArgs() Args {
	return Args{Incl: map[Component][]string{}, Excl: map[Component][]string{}}
}

// Scope is a predicate over one identity component's current value (Base).
// It matches when any inclusion pattern matches Base (literal substring or
// regex) AND no exclusion pattern matches. With no inclusion patterns given,
// inclusion defaults to a singleton of Base itself ("no filter" => included).
type Scope struct {
	Component Component
	Base      string

	inclPatterns []string
	exclPatterns []string
}

// New constructs a Scope bound to one component and its current base value.
func New(component Component, base string) *Scope {
	return &Scope{Component: component, Base: base}
}

// Evaluate extracts this scope's incl_<component>/excl_<component> lists
// from args (falling back to defaults) and returns whether Base is included.
func (s *Scope) Evaluate(args Args) bool {
	incl := args.Incl[s.Component]
	excl := args.Excl[s.Component]

	s.inclPatterns = incl
	s.exclPatterns = excl

	included := len(incl) == 0 // default: singleton of Base => always matches
	for _, p := range incl {
		if matches(p, s.Base) {
			included = true
			break
		}
	}

	if !included {
		return false
	}

	for _, p := range excl {
		if matches(p, s.Base) {
			return false
		}
	}

	return true
}

// matches reports whether pattern matches value either as a literal
// substring or, if it compiles, as a regular expression. Both are tried:
// a pattern that is also valid regex syntax but intended literally (e.g.
// "select") still matches via the substring check.
func matches(pattern, value string) bool {
	if pattern == "" {
		return false
	}

	if containsSubstring(value, pattern) {
		return true
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}

	return re.MatchString(value)
}

func containsSubstring(value, pattern string) bool {
	if len(pattern) > len(value) {
		return false
	}

	for i := 0; i+len(pattern) <= len(value); i++ {
		if value[i:i+len(pattern)] == pattern {
			return true
		}
	}

	return false
}
