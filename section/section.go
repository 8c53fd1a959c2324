// Package section builds the renderable block for one statement or marker:
// an ordered list of attribute items with the configured formatting rules
// (wildcard flags, reserved-attribute injection) already applied. Markup
// (spec.md §4.9) consumes Sections to emit both the .sql and .md outputs.
package section

import (
	"strconv"
	"strings"

	"github.com/sqlscript-io/sqlscript/config"
	"github.com/sqlscript-io/sqlscript/tabular"
	"github.com/sqlscript-io/sqlscript/tag"
)

// ItemKind discriminates how an Item should be rendered.
type ItemKind int

const (
	ItemBullet ItemKind = iota
	ItemParagraph
	ItemCodeBlock
	ItemTable
)

// Item is one rendered attribute: either a labeled/unlabeled bullet or
// paragraph, a fenced code block (the SQL reserved attribute), or a table
// (the Results reserved attribute).
type Item struct {
	Kind  ItemKind
	Label string // "" when the wildcard flags suppress the label
	Text  string
	Table *tabular.Table
}

// Section is one renderable block: a heading plus its ordered items.
type Section struct {
	HeadingLevel int
	HeadingText  string
	Items        []Item
}

// StatementInputs bundles what BuildStatement needs beyond cfg.
type StatementInputs struct {
	Tag      *tag.Tag
	Attrs    tag.Attrs
	SQL      string
	Executed bool
	Results  *tabular.Table
}

// BuildStatement renders one statement's Section: heading is the tag's nm,
// items follow cfg.AttrOrder with reserved Results/SQL attributes injected
// per §4.9, then any attribute not named in AttrOrder appended in the
// order it was parsed.
func BuildStatement(cfg *config.Config, in StatementInputs) *Section {
	s := &Section{
		HeadingLevel: cfg.Markdown.StatementHeadingLevel,
		HeadingText:  in.Tag.Nm,
	}

	used := map[string]bool{}

	for _, orderKey := range cfg.AttrOrder {
		base := strings.TrimSuffix(orderKey, cfg.Patterns.Wildcards.Char)

		switch strings.ToLower(base) {
		case "results":
			if cfg.Markdown.IncludeResults && in.Executed && in.Results != nil {
				s.Items = append(s.Items, Item{
					Kind:  ItemTable,
					Label: reservedLabel(cfg, "results", "Results"),
					Table: in.Results,
				})
			}

			continue
		case "sql":
			if cfg.Markdown.IncludeSQL {
				s.Items = append(s.Items, Item{
					Kind:  ItemCodeBlock,
					Label: reservedLabel(cfg, "sql", "SQL"),
					Text:  in.SQL,
				})
			}

			continue
		}

		for _, kv := range in.Attrs {
			if used[kv.Key] {
				continue
			}

			n := tag.NewName(kv.Key, cfg)
			if !strings.EqualFold(n.Stripped, base) {
				continue
			}

			s.Items = append(s.Items, itemFor(n, kv.Value))
			used[kv.Key] = true
		}
	}

	for _, kv := range in.Attrs {
		if used[kv.Key] {
			continue
		}

		n := tag.NewName(kv.Key, cfg)
		s.Items = append(s.Items, itemFor(n, kv.Value))
	}

	return s
}

// BuildMarker renders a Marker's Section: heading is the marker name, items
// are its free-form attributes in parse order.
func BuildMarker(cfg *config.Config, name string, attrs tag.Attrs) *Section {
	s := &Section{
		HeadingLevel: cfg.Markdown.MarkerHeadingLevel,
		HeadingText:  name,
	}

	for _, kv := range attrs {
		n := tag.NewName(kv.Key, cfg)
		s.Items = append(s.Items, itemFor(n, kv.Value))
	}

	return s
}

func itemFor(n *tag.Name, value any) Item {
	kind := ItemBullet
	if n.IsParagraph {
		kind = ItemParagraph
	}

	label := n.Adjusted
	if n.IsOmitName {
		label = ""
	}

	return Item{Kind: kind, Label: label, Text: formatValue(value)}
}

func formatValue(value any) string {
	switch v := value.(type) {
	case []string:
		return strings.Join(v, ", ")
	case bool:
		if v {
			return "true"
		}

		return "false"
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return v
	default:
		return ""
	}
}

func reservedLabel(cfg *config.Config, key, fallback string) string {
	if r, ok := cfg.Markdown.Reserved[key]; ok && r.AttrName != "" {
		return r.AttrName
	}

	return fallback
}
