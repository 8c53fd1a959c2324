package statement

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sqlscript-io/sqlscript/sqlerrors"
	"github.com/sqlscript-io/sqlscript/tabular"
)

func statementName(s *Statement) string {
	if s.Tag != nil {
		return s.Tag.Nm
	}

	return "statement"
}

// Empty is the QA.Empty variant (spec.md §4.6): the statement's result set
// must have zero rows.
type Empty struct{}

// Process implements Processor: pass iff the statement's Results are empty.
func (Empty) Process(_ context.Context, s *Statement, onFailure string) (bool, error) {
	rows := s.Results.RowCount()
	if rows == 0 {
		return true, nil
	}

	s.E.Collect(&sqlerrors.QAEmptyFailure{
		Name: statementName(s), Index: s.Index, Rows: rows, ToRaise: onFailure != "c",
	})

	return false, nil
}

// Diff is the QA.Diff variant (spec.md §4.6): partition the result set by a
// column and assert every consecutive pair of partitions agrees within
// tolerance on every shared comparison column.
type Diff struct {
	PartitionOn   string
	EndIndexAt    string
	IgnorePattern []string
	ComparePattern []string
	AbsTol        decimal.Decimal
	RelTol        decimal.Decimal

	Partitions  []*tabular.Table
	IdxCols     []string
	DropCols    []string
	CompareCols []string
}

// Process implements Processor per spec.md §4.6's QA.Diff.process().
func (d *Diff) Process(_ context.Context, s *Statement, onFailure string) (bool, error) {
	table := s.Results
	if table == nil {
		return false, fmt.Errorf("qa-diff: statement produced no result set")
	}

	if !table.HasColumn(d.PartitionOn) {
		return false, fmt.Errorf("qa-diff: partition_on column %q not found", d.PartitionOn)
	}

	d.IdxCols = idxColsUpTo(table.Columns, d.EndIndexAt, d.PartitionOn)
	if len(d.IdxCols) == 0 {
		return false, fmt.Errorf("qa-diff: idx_cols is empty")
	}

	d.DropCols = matchingColumns(table.Columns, d.IgnorePattern)

	d.CompareCols = compareCols(table.Columns, d.ComparePattern, d.PartitionOn, d.IdxCols, d.DropCols)
	if len(d.CompareCols) == 0 {
		return false, fmt.Errorf("qa-diff: compare_cols is empty")
	}

	reduced := table.DropColumns(d.DropCols)
	d.Partitions = reduced.Partition(d.PartitionOn)

	if len(d.Partitions) < 2 {
		return false, fmt.Errorf("qa-diff: partition_on %q produced fewer than 2 partitions", d.PartitionOn)
	}

	for i := 0; i+1 < len(d.Partitions); i++ {
		for _, col := range d.CompareCols {
			if !withinTolerance(d.Partitions[i], d.Partitions[i+1], col, d.AbsTol, d.RelTol) {
				maxAbs, _ := d.Partitions[i].MaxAbsDiff(d.Partitions[i+1], col)
				maxRel, _ := d.Partitions[i].MaxRelDiff(d.Partitions[i+1], col)

				s.E.Collect(&sqlerrors.QADiffFailure{
					Name: statementName(s), Index: s.Index, Column: col,
					PartitionA: fmt.Sprintf("%d", i), PartitionB: fmt.Sprintf("%d", i+1),
					MaxAbs: maxAbs.String(), MaxRel: maxRel.String(),
					ToRaise: onFailure != "c",
				})

				return false, nil
			}
		}
	}

	return true, nil
}

func withinTolerance(a, b *tabular.Table, column string, absTol, relTol decimal.Decimal) bool {
	if !relTol.IsZero() {
		rel, ok := a.MaxRelDiff(b, column)
		if ok {
			return rel.LessThanOrEqual(relTol)
		}
	}

	abs, ok := a.MaxAbsDiff(b, column)
	if !ok {
		return false
	}

	return abs.LessThanOrEqual(absTol)
}

func idxColsUpTo(columns []string, endIndexAt, partitionOn string) []string {
	var out []string

	for _, c := range columns {
		if c == partitionOn {
			continue
		}

		out = append(out, c)

		if c == endIndexAt {
			break
		}
	}

	return out
}

func matchingColumns(columns []string, patterns []string) []string {
	var out []string

	for _, c := range columns {
		for _, p := range patterns {
			if matchColumn(p, c) {
				out = append(out, c)
				break
			}
		}
	}

	return out
}

func compareCols(columns, patterns []string, partitionOn string, idxCols, dropCols []string) []string {
	excluded := map[string]bool{partitionOn: true}
	for _, c := range idxCols {
		excluded[c] = true
	}

	for _, c := range dropCols {
		excluded[c] = true
	}

	if len(patterns) == 0 {
		var out []string

		for _, c := range columns {
			if !excluded[c] {
				out = append(out, c)
			}
		}

		return out
	}

	var out []string

	for _, c := range columns {
		if excluded[c] {
			continue
		}

		for _, p := range patterns {
			if matchColumn(p, c) {
				out = append(out, c)
				break
			}
		}
	}

	return out
}

func matchColumn(pattern, column string) bool {
	if strings.Contains(column, pattern) {
		return true
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}

	return re.MatchString(column)
}

// Expect is the supplemented QA.Expect variant (SPEC_FULL.md §4.6.1,
// grounded on the original implementation's qa/ directory): asserts either
// an exact row count or that a named column's values all equal a constant.
type Expect struct {
	RowCount *int
	Column   string
	Equals   string
}

// Process implements Processor.
func (e *Expect) Process(_ context.Context, s *Statement, onFailure string) (bool, error) {
	table := s.Results
	if table == nil {
		return false, fmt.Errorf("qa-expect: statement produced no result set")
	}

	if e.RowCount != nil {
		if table.RowCount() == *e.RowCount {
			return true, nil
		}

		s.E.Collect(&sqlerrors.QAExpectFailure{
			Name: statementName(s), Index: s.Index,
			Reason:  fmt.Sprintf("expected %d rows, got %d", *e.RowCount, table.RowCount()),
			ToRaise: onFailure != "c",
		})

		return false, nil
	}

	if e.Column == "" {
		return false, fmt.Errorf("qa-expect: neither row_count nor column was configured")
	}

	if !table.HasColumn(e.Column) {
		return false, fmt.Errorf("qa-expect: column %q not found", e.Column)
	}

	for _, row := range table.Rows {
		if fmt.Sprintf("%v", row[e.Column]) != e.Equals {
			s.E.Collect(&sqlerrors.QAExpectFailure{
				Name: statementName(s), Index: s.Index,
				Reason:  fmt.Sprintf("column %q value %v != expected %q", e.Column, row[e.Column], e.Equals),
				ToRaise: onFailure != "c",
			})

			return false, nil
		}
	}

	return true, nil
}
