// Package markup renders a Script's contents into a paired .sql/.md document
// (spec.md §4.9): the .sql file is the reconstructible source with tag
// blocks intact, the .md file is a human-readable render with one heading
// per item and reserved Results/SQL attributes injected where enabled.
package markup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sqlscript-io/sqlscript/config"
	"github.com/sqlscript-io/sqlscript/section"
	"github.com/sqlscript-io/sqlscript/tabular"
)

// Item is one entry in a Markup's ordered contents: either a statement
// (Section built from its Tag/attrs/SQL/Results) or a marker.
type Item struct {
	IsMarker bool

	// Statement fields
	TagBlockRaw string // the tag block's inner text, if any; RenderSQL adds the delimiters
	SQL         string

	// Marker fields
	MarkerRaw string // the canonicalized tag block text

	Section *section.Section
}

// Markup renders Items into the .sql/.md pair described by spec.md §4.9/§6.
type Markup struct {
	cfg        *config.Config
	sourcePath string
	items      []Item
}

// New builds a Markup over items, rendering relative to sourcePath (used
// only to derive the output directory and stem).
func New(cfg *config.Config, sourcePath string, items []Item) *Markup {
	return &Markup{cfg: cfg, sourcePath: sourcePath, items: items}
}

// outputPaths computes the .sql/.md destinations per spec.md §6:
// <source_dir>/<export_subdir>/<stem>/[<prefix>]<stem>[<suffix>].{sql,md}
func (m *Markup) outputPaths() (sqlPath, mdPath string) {
	dir := filepath.Dir(m.sourcePath)
	stem := strings.TrimSuffix(filepath.Base(m.sourcePath), filepath.Ext(m.sourcePath))

	base := m.cfg.Markdown.Prefix + stem + m.cfg.Markdown.Suffix
	outDir := filepath.Join(dir, m.cfg.Markdown.ExportSubdir, stem)

	return filepath.Join(outDir, base+".sql"), filepath.Join(outDir, base+".md")
}

// Write renders both outputs to disk, creating the export directory.
func (m *Markup) Write() (sqlPath, mdPath string, err error) {
	sqlPath, mdPath = m.outputPaths()

	if err := os.MkdirAll(filepath.Dir(sqlPath), 0o755); err != nil {
		return "", "", fmt.Errorf("markup: create export directory: %w", err)
	}

	if err := os.WriteFile(sqlPath, []byte(m.RenderSQL()), 0o644); err != nil {
		return "", "", fmt.Errorf("markup: write sql: %w", err)
	}

	if err := os.WriteFile(mdPath, []byte(m.RenderMarkdown()), 0o644); err != nil {
		return "", "", fmt.Errorf("markup: write md: %w", err)
	}

	return sqlPath, mdPath, nil
}

// RenderSQL reproduces the .sql output: an optional disclaimer header
// followed by each item in source order.
func (m *Markup) RenderSQL() string {
	var b strings.Builder

	if m.cfg.Markdown.Disclaimer != "" {
		b.WriteString(m.cfg.Markdown.Disclaimer)
		b.WriteString("\n\n")
	}

	for i, item := range m.items {
		if i > 0 {
			b.WriteString("\n\n")
		}

		if item.IsMarker {
			b.WriteString(item.MarkerRaw)
			continue
		}

		if item.TagBlockRaw != "" {
			b.WriteString(m.cfg.Patterns.OpenTag)
			b.WriteString(item.TagBlockRaw)
			b.WriteString(m.cfg.Patterns.CloseTag)
			b.WriteString("\n")
		}

		b.WriteString(strings.TrimSpace(item.SQL))
		b.WriteString(";")
	}

	b.WriteString("\n")

	return b.String()
}

// RenderMarkdown builds the .md document: one heading per item followed by
// its Section's ordered attribute items.
func (m *Markup) RenderMarkdown() string {
	var b strings.Builder

	if m.cfg.Markdown.Disclaimer != "" {
		b.WriteString("<!-- ")
		b.WriteString(strings.TrimPrefix(strings.TrimSuffix(m.cfg.Markdown.Disclaimer, " -->"), "<!-- "))
		b.WriteString(" -->\n\n")
	}

	for i, item := range m.items {
		if i > 0 {
			b.WriteString("\n")
		}

		renderSection(&b, item.Section)
	}

	return b.String()
}

func renderSection(b *strings.Builder, s *section.Section) {
	if s == nil {
		return
	}

	fmt.Fprintf(b, "%s %s\n\n", strings.Repeat("#", s.HeadingLevel), s.HeadingText)

	for _, item := range s.Items {
		switch item.Kind {
		case section.ItemCodeBlock:
			if item.Label != "" {
				fmt.Fprintf(b, "**%s**\n\n", item.Label)
			}

			fmt.Fprintf(b, "```sql\n%s\n```\n\n", strings.TrimSpace(item.Text))
		case section.ItemTable:
			if item.Label != "" {
				fmt.Fprintf(b, "**%s**\n\n", item.Label)
			}

			renderTable(b, item.Table)
		case section.ItemParagraph:
			b.WriteString(item.Text)
			b.WriteString("\n\n")
		default:
			if item.Label != "" {
				fmt.Fprintf(b, "- **%s**: %s\n", item.Label, item.Text)
			} else {
				fmt.Fprintf(b, "- %s\n", item.Text)
			}
		}
	}

	b.WriteString("\n")
}

func renderTable(b *strings.Builder, t *tabular.Table) {
	if t == nil || len(t.Columns) == 0 {
		b.WriteString("_(no results)_\n\n")
		return
	}

	fmt.Fprintf(b, "| %s |\n", strings.Join(t.Columns, " | "))

	seps := make([]string, len(t.Columns))
	for i := range seps {
		seps[i] = "---"
	}

	fmt.Fprintf(b, "| %s |\n", strings.Join(seps, " | "))

	for _, row := range t.Rows {
		vals := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			vals[i] = fmt.Sprintf("%v", row[c])
		}

		fmt.Fprintf(b, "| %s |\n", strings.Join(vals, " | "))
	}

	b.WriteString("\n")
}
