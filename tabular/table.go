// Package tabular provides the minimal in-memory result-set value the rest
// of the engine needs. It stands in for the "tabular-data capability" that
// spec.md §1 treats as an external collaborator — a full DataFrame library
// is out of scope, but QA.Diff (spec.md §4.6) needs partitioning and
// pairwise tolerance comparison against real result sets, so a small
// concrete implementation lives here rather than being left unimplemented.
package tabular

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Table is an ordered set of columns plus rows keyed by column name.
type Table struct {
	Columns []string
	Rows    []map[string]any
}

// New builds a Table from an explicit column order and row data.
func New(columns []string, rows []map[string]any) *Table {
	return &Table{Columns: append([]string(nil), columns...), Rows: rows}
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int {
	if t == nil {
		return 0
	}

	return len(t.Rows)
}

// Lower returns a copy of t with every column name lower-cased.
func (t *Table) Lower() *Table {
	cols := make([]string, len(t.Columns))
	rename := make(map[string]string, len(t.Columns))

	for i, c := range t.Columns {
		lc := strings.ToLower(c)
		cols[i] = lc
		rename[c] = lc
	}

	rows := make([]map[string]any, len(t.Rows))
	for i, r := range t.Rows {
		nr := make(map[string]any, len(r))
		for k, v := range r {
			nr[rename[k]] = v
		}

		rows[i] = nr
	}

	return &Table{Columns: cols, Rows: rows}
}

// HasColumn reports whether name is one of t's columns.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}

	return false
}

// DropColumns returns a copy of t without the named columns.
func (t *Table) DropColumns(names []string) *Table {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}

	var cols []string

	for _, c := range t.Columns {
		if !drop[c] {
			cols = append(cols, c)
		}
	}

	rows := make([]map[string]any, len(t.Rows))
	for i, r := range t.Rows {
		nr := make(map[string]any, len(cols))
		for _, c := range cols {
			nr[c] = r[c]
		}

		rows[i] = nr
	}

	return &Table{Columns: cols, Rows: rows}
}

// Partition splits t into one sub-table per distinct value of column,
// ordered by the value's string form in ascending order, mirroring a pandas
// DataFrame.groupby(column) used for partitioned-equality QA checks.
func (t *Table) Partition(column string) []*Table {
	order := []string{}
	byKey := map[string][]map[string]any{}

	for _, r := range t.Rows {
		key := keyOf(r[column])
		if _, ok := byKey[key]; !ok {
			order = append(order, key)
		}

		byKey[key] = append(byKey[key], r)
	}

	sort.Strings(order)

	out := make([]*Table, 0, len(order))
	for _, k := range order {
		out = append(out, &Table{Columns: t.Columns, Rows: byKey[k]})
	}

	return out
}

func keyOf(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return ""
	default:
		return decimal.NewFromFloat(toFloat(x)).String()
	}
}

// MaxAbsDiff returns the maximum absolute difference between t and other's
// values in column, compared row-by-row in order. ok is false if either
// table has no rows in that column or a value isn't numeric.
func (t *Table) MaxAbsDiff(other *Table, column string) (decimal.Decimal, bool) {
	a, b, ok := pairedValues(t, other, column)
	if !ok {
		return decimal.Zero, false
	}

	max := decimal.Zero

	for i := range a {
		d := a[i].Sub(b[i]).Abs()
		if d.GreaterThan(max) {
			max = d
		}
	}

	return max, true
}

// MaxRelDiff returns the maximum relative difference (|a/b - 1|) between t
// and other's values in column.
func (t *Table) MaxRelDiff(other *Table, column string) (decimal.Decimal, bool) {
	a, b, ok := pairedValues(t, other, column)
	if !ok {
		return decimal.Zero, false
	}

	max := decimal.Zero

	for i := range a {
		if b[i].IsZero() {
			if !a[i].IsZero() {
				return decimal.Zero, false
			}

			continue
		}

		d := a[i].Div(b[i]).Sub(decimal.NewFromInt(1)).Abs()
		if d.GreaterThan(max) {
			max = d
		}
	}

	return max, true
}

func pairedValues(t, other *Table, column string) ([]decimal.Decimal, []decimal.Decimal, bool) {
	if t == nil || other == nil || len(t.Rows) != len(other.Rows) || len(t.Rows) == 0 {
		return nil, nil, false
	}

	a := make([]decimal.Decimal, len(t.Rows))
	b := make([]decimal.Decimal, len(other.Rows))

	for i := range t.Rows {
		da, ok := toDecimal(t.Rows[i][column])
		if !ok {
			return nil, nil, false
		}

		db, ok := toDecimal(other.Rows[i][column])
		if !ok {
			return nil, nil, false
		}

		a[i], b[i] = da, db
	}

	return a, b, true
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, true
	case float64:
		return decimal.NewFromFloat(x), true
	case float32:
		return decimal.NewFromFloat32(x), true
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int64:
		return decimal.NewFromInt(x), true
	case string:
		d, err := decimal.NewFromString(x)
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	case int64:
		return float64(x)
	default:
		return 0
	}
}
