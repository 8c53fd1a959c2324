// Package script implements the top-level coordinator (spec.md §4.4, §4.7):
// splitting a source file into statements and markers, attaching tag blocks,
// maintaining the filter stack, and dispatching execution and rendering.
package script

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sqlscript-io/sqlscript/config"
	"github.com/sqlscript-io/sqlscript/exception"
	"github.com/sqlscript-io/sqlscript/markup"
	"github.com/sqlscript-io/sqlscript/scope"
	"github.com/sqlscript-io/sqlscript/section"
	"github.com/sqlscript-io/sqlscript/sqlerrors"
	"github.com/sqlscript-io/sqlscript/statement"
	"github.com/sqlscript-io/sqlscript/tag"
	"github.com/sqlscript-io/sqlscript/warehouse"
)

// Marker is a tag block not attached to a following statement.
type Marker struct {
	Name  string
	Raw   string
	Attrs tag.Attrs
	Index float64
}

// Item is one entry in a Script's ordered contents view: exactly one of
// Statement or Marker is set.
type Item struct {
	Statement *statement.Statement
	Marker    *Marker
	Index     float64 // integer-valued for statements, fractional for markers
}

// Script owns every statement and marker parsed from one source file.
type Script struct {
	cfg    *config.Config
	Path   string
	Source string

	all      map[int]*statement.Statement // keyed by original (stable) index
	origOrder []int

	markers map[float64]*Marker

	duplicates map[string]int // name -> count, only entries with count > 1

	E *exception.Handler

	stack   []*filterFrame
	filters map[string]scope.Args // id -> every imposed scope, spec.md §4.4's "filters" ledger
}

type filterFrame struct {
	id      string
	ctxID   int64
	args    scope.Args
	visible []int // original indices included, in display order

	prevIncluded map[int]bool // Tag.IsIncluded before this frame, by original index
	prevIndex    map[int]int  // Statement.Index before this frame's renumbering
}

// New parses source into statements and markers and builds their Tags.
func New(cfg *config.Config, path, source string) (*Script, error) {
	s := &Script{
		cfg: cfg, Path: path, Source: source,
		all: map[int]*statement.Statement{}, markers: map[float64]*Marker{},
		duplicates: map[string]int{},
		filters:    map[string]scope.Args{},
		E:          exception.New(),
	}

	if err := s.parse(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Script) parse() error {
	blocks, err := splitTagBlocks(s.Source, s.cfg.Patterns.OpenTag, s.cfg.Patterns.CloseTag)
	if err != nil {
		return err
	}

	stmts := splitStatements(s.Source)

	attached := attachBlocks(s.Source, blocks, stmts)

	nameCounts := map[string]int{}
	statementOrdinal := 0

	for i, st := range stmts {
		block, hasBlock := attached[i]

		var (
			attrs    tag.Attrs
			rawBlock string
			nmPr     string
		)

		if hasBlock {
			rawBlock = block.Raw

			parsed, name, err := tag.ParseBlock(s.cfg, block.Raw, false)
			if err != nil {
				return err
			}

			attrs, nmPr = parsed, name
		}

		statementOrdinal++

		t := tag.New(s.cfg, nmPr, st.SQL, statementOrdinal)

		proc := buildProcessor(s.cfg, t.Anchor, attrs)

		stObj := statement.New(st.SQL, rawBlock, attrs, t, statementOrdinal, proc)
		s.all[statementOrdinal] = stObj
		s.origOrder = append(s.origOrder, statementOrdinal)

		// Script's ctx_id coordinates across the object tree (spec.md §5):
		// Set/Reset calls made on s.E during Filter/Run propagate to every
		// owned statement's own ledger.
		s.E.Mirror(stObj.E)

		nameCounts[t.Nm]++
	}

	for name, count := range nameCounts {
		if count > 1 {
			s.duplicates[name] = count
		}
	}

	s.buildMarkers(blocks, attached, stmts)

	return nil
}

// buildMarkers assigns float indices to every unattached tag block, per
// spec.md §4.4: statement_index + i/10 between that statement and the next,
// or depth+1+j/10 after the last statement.
func (s *Script) buildMarkers(blocks []tagBlockSpan, attached map[int]tagBlockSpan, stmts []stmtSpan) {
	attachedStarts := map[int]bool{}
	for _, b := range attached {
		attachedStarts[b.Start] = true
	}

	depth := len(stmts)

	for _, b := range blocks {
		if attachedStarts[b.Start] {
			continue
		}

		precedingStmt := -1

		for i, st := range stmts {
			if st.Start < b.Start {
				precedingStmt = i + 1
			}
		}

		ordinal := markerOrdinal(blocks, attached, stmts, b, precedingStmt)

		var index float64
		if precedingStmt < 0 {
			index = float64(0) + float64(ordinal)/10
		} else if precedingStmt >= depth {
			index = float64(depth+1) + float64(ordinal)/10
		} else {
			index = float64(precedingStmt) + float64(ordinal)/10
		}

		attrs, name, err := tag.ParseBlock(s.cfg, b.Raw, true)
		if err != nil {
			continue
		}

		s.markers[index] = &Marker{Name: name, Raw: b.Raw, Attrs: attrs, Index: index}
	}
}

func markerOrdinal(blocks []tagBlockSpan, attached map[int]tagBlockSpan, stmts []stmtSpan, target tagBlockSpan, precedingStmt int) int {
	attachedStarts := map[int]bool{}
	for _, b := range attached {
		attachedStarts[b.Start] = true
	}

	ordinal := 0

	for _, b := range blocks {
		if attachedStarts[b.Start] {
			continue
		}

		prev := -1
		for i, st := range stmts {
			if st.Start < b.Start {
				prev = i + 1
			}
		}

		if prev != precedingStmt {
			continue
		}

		ordinal++

		if b.Start == target.Start {
			return ordinal
		}
	}

	return ordinal
}

// buildProcessor selects the QA variant named by a statement's anchor,
// populated from its parsed attributes (spec.md §4.6, §4.6.1). A statement
// whose anchor isn't a configured QA anchor gets the base no-op Processor
// (statement.New's default).
func buildProcessor(cfg *config.Config, anchor string, attrs tag.Attrs) statement.Processor {
	if !cfg.IsQAAnchor(anchor) {
		return nil
	}

	switch anchor {
	case "qa-empty":
		return statement.Empty{}
	case "qa-diff":
		return &statement.Diff{
			PartitionOn:    attrString(attrs, "partition_on", ""),
			EndIndexAt:     attrString(attrs, "end_index_at", ""),
			IgnorePattern:  attrStringSlice(attrs, "ignore_patterns"),
			ComparePattern: attrStringSlice(attrs, "compare_patterns"),
			AbsTol:         attrDecimal(attrs, "abs_tol", cfg.QA.DefaultAbsTol),
			RelTol:         attrDecimal(attrs, "rel_tol", cfg.QA.DefaultRelTol),
		}
	case "qa-expect":
		return &statement.Expect{
			RowCount: attrIntPtr(attrs, "row_count"),
			Column:   attrString(attrs, "column", ""),
			Equals:   attrString(attrs, "equals", ""),
		}
	default:
		return nil
	}
}

func attrString(attrs tag.Attrs, key, def string) string {
	v, ok := attrs.Get(key)
	if !ok {
		return def
	}

	if s, ok := v.(string); ok {
		return s
	}

	return def
}

func attrStringSlice(attrs tag.Attrs, key string) []string {
	v, ok := attrs.Get(key)
	if !ok {
		return nil
	}

	s, _ := v.([]string)

	return s
}

func attrDecimal(attrs tag.Attrs, key, fallback string) decimal.Decimal {
	if v, ok := attrs.Get(key); ok {
		switch t := v.(type) {
		case float64:
			return decimal.NewFromFloat(t)
		case string:
			if d, err := decimal.NewFromString(t); err == nil {
				return d
			}
		}
	}

	d, _ := decimal.NewFromString(fallback)

	return d
}

func attrIntPtr(attrs tag.Attrs, key string) *int {
	v, ok := attrs.Get(key)
	if !ok {
		return nil
	}

	switch t := v.(type) {
	case float64:
		n := int(t)
		return &n
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return &n
		}
	}

	return nil
}

// S fetches a statement by 1-based index (negative allowed, counting from
// the end of the current view) or by unique name.
func (s *Script) S(id any) (*statement.Statement, error) {
	switch v := id.(type) {
	case int:
		return s.byIndex(v)
	case string:
		return s.byName(v)
	default:
		return nil, &sqlerrors.StatementNotFoundError{ID: id}
	}
}

func (s *Script) byIndex(idx int) (*statement.Statement, error) {
	visible := s.visibleIndices()

	n := len(visible)
	if idx < 0 {
		idx = n + idx + 1
	}

	if idx < 1 || idx > n {
		return nil, &sqlerrors.StatementNotFoundError{ID: idx}
	}

	return s.all[visible[idx-1]], nil
}

func (s *Script) byName(name string) (*statement.Statement, error) {
	if count, dup := s.duplicates[name]; dup && count > 1 {
		return nil, &sqlerrors.DuplicateTagError{Name: name, Count: count}
	}

	for _, idx := range s.visibleIndices() {
		if s.all[idx].Tag.Nm == name {
			return s.all[idx], nil
		}
	}

	return nil, &sqlerrors.StatementNotFoundError{ID: name}
}

// visibleIndices returns the current view's original indices in display
// order: the active filter frame's, or every statement in source order.
func (s *Script) visibleIndices() []int {
	if len(s.stack) > 0 {
		return s.stack[len(s.stack)-1].visible
	}

	return s.origOrder
}

// RunSelector is what Run's _id argument selects: a single id, a
// contiguous range, an explicit list, or everything visible (nil/zero).
type RunSelector struct {
	One   any
	Range *[2]int
	List  []any
}

// Run executes the selected statements per spec.md §4.7.
func (s *Script) Run(ctx context.Context, sel *RunSelector, opts statement.RunOptions) error {
	var targets []*statement.Statement

	switch {
	case sel == nil || (sel.One == nil && sel.Range == nil && sel.List == nil):
		for _, idx := range s.visibleIndices() {
			targets = append(targets, s.all[idx])
		}
	case sel.One != nil:
		st, err := s.S(sel.One)
		if err != nil {
			return err
		}

		targets = []*statement.Statement{st}
	case sel.Range != nil:
		lo, hi := sel.Range[0], sel.Range[1]
		for i := lo; i <= hi; i++ {
			st, err := s.S(i)
			if err != nil {
				return err
			}

			targets = append(targets, st)
		}
	case sel.List != nil:
		for _, id := range sel.List {
			st, err := s.S(id)
			if err != nil {
				return err
			}

			targets = append(targets, st)
		}
	}

	for _, st := range targets {
		if err := st.Run(ctx, opts); err != nil {
			return err
		}
	}

	return nil
}

// FilterOptions controls how a Filter call composes with the active filter
// context, per spec.md §4.4's from_id/as_id branching. At most one of FromID
// / AsID may be set.
type FilterOptions struct {
	FromID string // branch from a previously-saved scope instead of the active parent
	AsID   string // name this filter's resulting scope so a later FromID can reuse it
}

// Filter opens a new scope context composed with the active parent (if any),
// includes a currently visible statement only when its Tag matches both the
// scope the context starts from and args, renumbers the visible subset 1..K, invokes fn, then restores the
// prior view (including every touched Tag.IsIncluded and Statement.Index)
// and re-raises the first to_raise error collected in that context,
// mirroring spec.md §4.4's context-manager semantics.
func (s *Script) Filter(args scope.Args, fn func(*Script) error) error {
	return s.FilterWith(args, FilterOptions{}, fn)
}

// FilterWith is Filter with explicit from_id/as_id branching.
func (s *Script) FilterWith(args scope.Args, opts FilterOptions, fn func(*Script) error) error {
	if opts.FromID != "" && opts.AsID != "" {
		return &sqlerrors.InternalError{
			Name: "Script.Filter",
			Msg:  "cannot accept both FromID and AsID",
		}
	}

	var base scope.Args

	switch {
	case opts.FromID != "":
		saved, ok := s.filters[opts.FromID]
		if !ok {
			return &sqlerrors.InternalError{
				Name: "Script.Filter",
				Msg:  "from_id " + opts.FromID + " does not exist in filters",
			}
		}

		base = saved
	case opts.AsID != "":
		base = scope.NewArgs()
	case len(s.stack) > 0:
		base = s.stack[len(s.stack)-1].args
	default:
		base = scope.NewArgs()
	}

	merged := mergeArgs(base, args)

	id := opts.AsID
	if id == "" {
		id = opts.FromID
	}

	if id == "" {
		id = strconv.Itoa(len(s.filters) + 1)
	}

	s.filters[id] = merged

	frame := &filterFrame{
		id: id, args: merged,
		prevIncluded: map[int]bool{}, prevIndex: map[int]int{},
	}

	if err := s.E.Set(-1, true, nil); err != nil {
		return err
	}

	frame.ctxID, _ = s.E.CtxID()

	ordinal := 0

	for _, idx := range s.visibleIndices() {
		st := s.all[idx]
		frame.prevIncluded[idx] = st.Tag.IsIncluded
		frame.prevIndex[idx] = st.Index

		if st.Tag.Scope(base) && st.Tag.Scope(args) {
			ordinal++
			st.Index = ordinal
			frame.visible = append(frame.visible, idx)
		}
	}

	s.stack = append(s.stack, frame)

	fnErr := fn(s)

	s.stack = s.stack[:len(s.stack)-1]

	for idx, included := range frame.prevIncluded {
		s.all[idx].Tag.IsIncluded = included
	}

	for idx, index := range frame.prevIndex {
		s.all[idx].Index = index
	}

	s.E.Reset(true, true, false)

	if fnErr != nil {
		return fnErr
	}

	raised, err := s.E.Get(exception.Query{FromCtx: &frame.ctxID, ToRaise: boolPtr(true)}, false)
	if err == nil && len(raised) > 0 {
		return raised[len(raised)-1] // Get orders most-recent first
	}

	return nil
}

func boolPtr(b bool) *bool { return &b }

// mergeArgs unions two scope.Args' inclusion/exclusion pattern lists
// per-component, the way spec.md's filter() composes kwargs with an
// inherited or reused scope.
func mergeArgs(base, extra scope.Args) scope.Args {
	merged := scope.NewArgs()

	for _, c := range config.ScopeAttributes {
		comp := scope.Component(c)
		merged.Incl[comp] = unionStrings(base.Incl[comp], extra.Incl[comp])
		merged.Excl[comp] = unionStrings(base.Excl[comp], extra.Excl[comp])
	}

	return merged
}

func unionStrings(a, b []string) []string {
	seen := map[string]bool{}

	var out []string

	for _, s := range a {
		if s == "" || seen[s] {
			continue
		}

		seen[s] = true

		out = append(out, s)
	}

	for _, s := range b {
		if s == "" || seen[s] {
			continue
		}

		seen[s] = true

		out = append(out, s)
	}

	return out
}

// Contents returns the ordered view of items currently visible (or every
// item, if all is true), interleaving markers when withMarkers is true.
func (s *Script) Contents(all, withMarkers bool) []Item {
	var indices []int
	if all {
		indices = s.origOrder
	} else {
		indices = s.visibleIndices()
	}

	items := make([]Item, 0, len(indices))
	for _, idx := range indices {
		items = append(items, Item{Statement: s.all[idx], Index: float64(s.all[idx].Index)})
	}

	if withMarkers {
		for _, m := range s.markers {
			items = append(items, Item{Marker: m, Index: m.Index})
		}
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Index < items[j].Index })

	return items
}

// Doc builds a Markup over the current contents.
func (s *Script) Doc(all, withMarkers bool) *markup.Markup {
	contents := s.Contents(all, withMarkers)

	items := make([]markup.Item, 0, len(contents))
	for _, it := range contents {
		if it.Marker != nil {
			items = append(items, markup.Item{
				IsMarker:  true,
				MarkerRaw: it.Marker.Raw,
				Section:   section.BuildMarker(s.cfg, it.Marker.Name, it.Marker.Attrs),
			})

			continue
		}

		st := it.Statement
		items = append(items, markup.Item{
			TagBlockRaw: st.AttrsRaw,
			SQL:         st.SQL,
			Section: section.BuildStatement(s.cfg, section.StatementInputs{
				Tag: st.Tag, Attrs: st.AttrsParsed, SQL: st.SQL,
				Executed: st.Executed, Results: st.Results,
			}),
		})
	}

	return markup.New(s.cfg, s.Path, items)
}

// Connect opens the named connection profile from cfg and returns a ready
// warehouse.Conn for Run's opts.Conn.
func (s *Script) Connect(name string) (*warehouse.SQLConn, error) {
	conn, ok := s.cfg.Connections[name]
	if !ok {
		return nil, &sqlerrors.InternalError{Name: "Script.Connect", Msg: "unknown connection profile: " + name}
	}

	return warehouse.Open(conn)
}

var wsRun = regexp.MustCompile(`\A[ \t]*\n?[ \t]*\z`)

func isAttachableGap(gap string) bool {
	if strings.Count(gap, "\n") > 1 {
		return false
	}

	return wsRun.MatchString(gap) || strings.TrimSpace(gap) == ""
}
