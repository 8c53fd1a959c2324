// Package tag implements the identity record for one statement: the
// combination of user-provided and inferred (kw, obj, desc, anchor, nm)
// values, and the five Scope predicates built over them.
package tag

import (
	"strconv"
	"strings"

	"github.com/sqlscript-io/sqlscript/config"
	"github.com/sqlscript-io/sqlscript/scope"
)

// Tag is a statement's identity: kw (keyword), obj (object), desc
// (description), anchor ("<kw> <obj>"), and nm (full name). Each component
// independently prefers its user-provided value over its inferred one
// (spec.md §4.2's "override independence").
type Tag struct {
	cfg *config.Config

	NmPr    string
	Index   int
	KwPr    string
	ObjPr   string
	DescPr  string
	AnchorPr string

	FirstLine string
	Words     []string

	Kw     string
	Obj    string
	Desc   string
	Anchor string
	Nm     string

	IsIncluded bool

	Scopes map[scope.Component]*scope.Scope
}

// New builds a Tag from a (possibly empty) user-provided name, the
// statement's raw SQL (used only for its first line), and the statement's
// 1-based index within the script (used in the generated description).
func New(cfg *config.Config, nmPr, sql string, index int) *Tag {
	t := &Tag{cfg: cfg, NmPr: nmPr, Index: index}

	t.FirstLine = firstLineOf(sql)
	t.Words = strings.Fields(t.FirstLine)

	if nmPr != "" {
		anchorPart, descPart, hasSep := cutOn(nmPr, cfg.Patterns.SepDesc)

		fields := strings.Fields(anchorPart)
		if len(fields) > 0 {
			t.KwPr = fields[0]
			if len(fields) > 1 {
				t.ObjPr = strings.Join(fields[1:], " ")
			}
		}

		t.AnchorPr = strings.TrimSpace(anchorPart)
		if hasSep {
			t.DescPr = strings.TrimSpace(descPart)
		}
	}

	t.Kw = firstNonEmpty(t.KwPr, t.kwGenerated())
	t.Obj = firstNonEmpty(t.ObjPr, t.objGenerated())
	t.Desc = firstNonEmpty(t.DescPr, t.descGenerated())
	t.Anchor = firstNonEmpty(t.AnchorPr, t.anchorGenerated())
	t.Nm = firstNonEmpty(nmPr, t.nmGenerated())

	t.IsIncluded = true
	t.Scopes = map[scope.Component]*scope.Scope{
		scope.KW:     scope.New(scope.KW, t.Kw),
		scope.Obj:    scope.New(scope.Obj, t.Obj),
		scope.Desc:   scope.New(scope.Desc, t.Desc),
		scope.Anchor: scope.New(scope.Anchor, t.Anchor),
		scope.Nm:     scope.New(scope.Nm, t.Nm),
	}

	return t
}

// kwGenerated is kw_ge: the first SQL line's first token, normalized
// through the configured keyword exceptions.
func (t *Tag) kwGenerated() string {
	if len(t.Words) == 0 {
		return ""
	}

	for phrase, norm := range t.cfg.KeywordExceptions {
		if strings.HasPrefix(t.FirstLine, phrase) {
			return norm
		}
	}

	return t.Words[0]
}

// objGenerated is obj_ge: the earliest-configured named_objects term found
// (whole-word) in the first SQL line, or the configured default.
func (t *Tag) objGenerated() string {
	for _, term := range t.cfg.NamedObjects {
		if wholeWordMatch(t.FirstLine, term) {
			return term
		}
	}

	return t.cfg.DefaultObject
}

// descGenerated is desc_ge.
func (t *Tag) descGenerated() string {
	return t.cfg.DefaultDescription + " #" + strconv.Itoa(t.Index)
}

// anchorGenerated is anchor_ge.
func (t *Tag) anchorGenerated() string {
	obj := t.objGenerated()
	kw := t.kwGenerated()

	if obj == t.cfg.DefaultObject {
		if generic, ok := t.cfg.GenericAnchors[kw]; ok {
			return generic
		}
	}

	if kw == "" {
		return obj
	}

	if obj == "" {
		return kw
	}

	return kw + " " + obj
}

// nmGenerated is nm_ge.
func (t *Tag) nmGenerated() string {
	return t.anchorGenerated() + t.cfg.Patterns.SepDesc + t.descGenerated()
}

// Scope evaluates all five identity-component scopes against filter args and
// updates/returns IsIncluded. A statement is included iff every component's
// scope includes it.
func (t *Tag) Scope(args scope.Args) bool {
	included := true
	for _, c := range config.ScopeAttributes {
		if !t.Scopes[scope.Component(c)].Evaluate(args) {
			included = false
		}
	}

	t.IsIncluded = included

	return included
}

func firstLineOf(sql string) string {
	trimmed := strings.Trim(sql, "\n ")
	if trimmed == "" {
		return ""
	}

	line := strings.SplitN(trimmed, "\n", 2)[0]

	return strings.ToLower(strings.TrimSpace(line))
}

func wholeWordMatch(haystack, word string) bool {
	if word == "" {
		return false
	}

	for _, w := range strings.Fields(haystack) {
		if strings.Trim(w, "(),;") == word {
			return true
		}
	}

	return false
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}

	return b
}

// cutOn partitions s on sep, python-partition style: if sep is not found,
// before==s, after=="", found==false.
func cutOn(s, sep string) (before, after string, found bool) {
	if sep == "" {
		return s, "", false
	}

	idx := strings.Index(s, sep)
	if idx < 0 {
		return s, "", false
	}

	return s[:idx], s[idx+len(sep):], true
}
