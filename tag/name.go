package tag

import (
	"strings"

	"github.com/sqlscript-io/sqlscript/config"
)

// Name decomposes a raw attribute key into its display name and wildcard
// flags (spec.md §4.1 "Wildcard semantics on attribute KEYS"). A key may
// terminate with one or more wildcard characters separated by an internal
// delimiter; three flags are recognized: paragraph, verbatim, omit-name.
// Escaping the wildcard character with a leading backslash disables flag
// interpretation at that position.
type Name struct {
	Raw      string
	Stripped string // display name with wildcard suffix removed, escapes resolved
	Flags    []string

	IsParagraph bool
	IsVerbatim  bool
	IsOmitName  bool

	// Adjusted is the name to render: empty when IsOmitName, the raw
	// stripped name when IsVerbatim, title-cased otherwise.
	Adjusted string
}

// NewName parses nm against cfg's wildcard configuration.
func NewName(nm string, cfg *config.Config) *Name {
	stripped, flags := partitionOnWildcard(nm, cfg.Patterns.Wildcards)

	n := &Name{Raw: nm, Stripped: stripped, Flags: flags}

	wc := cfg.Patterns.Wildcards
	n.IsParagraph = contains(flags, wc.Paragraph)
	n.IsVerbatim = contains(flags, wc.Verbatim)
	n.IsOmitName = contains(flags, wc.OmitAttrName)

	switch {
	case n.IsOmitName:
		n.Adjusted = ""
		n.IsParagraph = true // omit-name implies paragraph rendering
	case n.IsVerbatim:
		n.Adjusted = n.Stripped
	default:
		n.Adjusted = strings.Title(strings.ToLower(n.Stripped)) //nolint:staticcheck // matches teacher's plain-ASCII title-casing, no unicode needs here
	}

	return n
}

// IsReserved reports whether the stripped display name (case-insensitively)
// starts with the given reserved term, e.g. "results" matches "Results*".
func (n *Name) IsReserved(term string) bool {
	a, b := strings.ToLower(n.Stripped), strings.ToLower(term)
	return len(a) >= len(b) && strings.HasPrefix(a, b)
}

func contains(flags []string, target string) bool {
	if target == "" {
		return false
	}

	for _, f := range flags {
		if f == target {
			return true
		}
	}

	return false
}

// partitionOnWildcard finds the first unescaped wildcard character in nm and
// splits it into a display name (escapes resolved) and a list of flag
// letters split on the configured delimiter.
func partitionOnWildcard(nm string, wc config.Wildcards) (string, []string) {
	if wc.Char == "" {
		return nm, nil
	}

	idx := firstUnescapedWildcard(nm, wc.Char, wc.EscapeChar)
	if idx < 0 {
		return unescape(nm, wc.Char, wc.EscapeChar), nil
	}

	display := unescape(nm[:idx], wc.Char, wc.EscapeChar)
	suffix := strings.ReplaceAll(nm[idx:], wc.Char, "")

	var flags []string

	delim := wc.Delim
	if delim == "" {
		delim = "_"
	}

	for _, f := range strings.Split(suffix, delim) {
		if f != "" {
			flags = append(flags, f)
		}
	}

	return display, flags
}

func firstUnescapedWildcard(s, char, escape string) int {
	if char == "" {
		return -1
	}

	for i := 0; i+len(char) <= len(s); i++ {
		if s[i:i+len(char)] != char {
			continue
		}

		if escape != "" && i >= len(escape) && s[i-len(escape):i] == escape {
			continue
		}

		return i
	}

	return -1
}

func unescape(s, char, escape string) string {
	if escape == "" {
		return s
	}

	return strings.ReplaceAll(s, escape+char, char)
}
