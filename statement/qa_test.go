package statement_test

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"

	"github.com/sqlscript-io/sqlscript/statement"
	"github.com/sqlscript-io/sqlscript/tabular"
)

func TestEmptyPassesOnZeroRows(t *testing.T) {
	s := statement.New("select 1", "", nil, newTag(), 1, statement.Empty{})
	s.Results = tabular.New([]string{"n"}, nil)

	pass, err := s.Process.Process(t.Context(), s, "")
	assert.NoError(t, err)
	assert.True(t, pass)
}

func TestEmptyFailsOnNonZeroRows(t *testing.T) {
	s := statement.New("select 1", "", nil, newTag(), 1, statement.Empty{})
	s.Results = tabular.New([]string{"n"}, []map[string]any{{"n": 1}})

	pass, err := s.Process.Process(t.Context(), s, "")
	assert.NoError(t, err)
	assert.False(t, pass)
}

func diffRows() []map[string]any {
	return []map[string]any{
		{"region": "east", "idx": 1, "amount": 100.0},
		{"region": "west", "idx": 1, "amount": 100.0},
	}
}

func TestDiffPassesWhenPartitionsAgreeWithinTolerance(t *testing.T) {
	s := statement.New("select 1", "", nil, newTag(), 1, nil)
	s.Results = tabular.New([]string{"region", "idx", "amount"}, diffRows())

	d := &statement.Diff{
		PartitionOn: "region",
		EndIndexAt:  "idx",
		AbsTol:      decimal.NewFromFloat(0.01),
	}

	pass, err := d.Process(t.Context(), s, "")
	assert.NoError(t, err)
	assert.True(t, pass)
}

func TestDiffFailsWhenPartitionsExceedTolerance(t *testing.T) {
	rows := []map[string]any{
		{"region": "east", "idx": 1, "amount": 100.0},
		{"region": "west", "idx": 1, "amount": 200.0},
	}

	s := statement.New("select 1", "", nil, newTag(), 1, nil)
	s.Results = tabular.New([]string{"region", "idx", "amount"}, rows)

	d := &statement.Diff{
		PartitionOn: "region",
		EndIndexAt:  "idx",
		AbsTol:      decimal.NewFromFloat(0.01),
	}

	pass, err := d.Process(t.Context(), s, "")
	assert.NoError(t, err)
	assert.False(t, pass)
}

func TestDiffUsesRelativeToleranceWhenConfigured(t *testing.T) {
	rows := []map[string]any{
		{"region": "east", "idx": 1, "amount": 100.0},
		{"region": "west", "idx": 1, "amount": 101.0},
	}

	s := statement.New("select 1", "", nil, newTag(), 1, nil)
	s.Results = tabular.New([]string{"region", "idx", "amount"}, rows)

	d := &statement.Diff{
		PartitionOn: "region",
		EndIndexAt:  "idx",
		RelTol:      decimal.NewFromFloat(0.5),
	}

	pass, err := d.Process(t.Context(), s, "")
	assert.NoError(t, err)
	assert.True(t, pass)
}

func TestDiffErrorsWhenPartitionColumnMissing(t *testing.T) {
	s := statement.New("select 1", "", nil, newTag(), 1, nil)
	s.Results = tabular.New([]string{"amount"}, []map[string]any{{"amount": 1.0}})

	d := &statement.Diff{PartitionOn: "region", EndIndexAt: "idx"}

	_, err := d.Process(t.Context(), s, "")
	assert.Error(t, err)
}

func TestExpectPassesOnMatchingRowCount(t *testing.T) {
	s := statement.New("select 1", "", nil, newTag(), 1, nil)
	s.Results = tabular.New([]string{"n"}, []map[string]any{{"n": 1}, {"n": 2}})

	count := 2
	e := &statement.Expect{RowCount: &count}

	pass, err := e.Process(t.Context(), s, "")
	assert.NoError(t, err)
	assert.True(t, pass)
}

func TestExpectFailsOnMismatchedRowCount(t *testing.T) {
	s := statement.New("select 1", "", nil, newTag(), 1, nil)
	s.Results = tabular.New([]string{"n"}, []map[string]any{{"n": 1}})

	count := 2
	e := &statement.Expect{RowCount: &count}

	pass, err := e.Process(t.Context(), s, "")
	assert.NoError(t, err)
	assert.False(t, pass)
}

func TestExpectPassesWhenColumnValuesAllEqual(t *testing.T) {
	s := statement.New("select 1", "", nil, newTag(), 1, nil)
	s.Results = tabular.New([]string{"status"}, []map[string]any{{"status": "ok"}, {"status": "ok"}})

	e := &statement.Expect{Column: "status", Equals: "ok"}

	pass, err := e.Process(t.Context(), s, "")
	assert.NoError(t, err)
	assert.True(t, pass)
}

func TestExpectFailsWhenAColumnValueDiffers(t *testing.T) {
	s := statement.New("select 1", "", nil, newTag(), 1, nil)
	s.Results = tabular.New([]string{"status"}, []map[string]any{{"status": "ok"}, {"status": "fail"}})

	e := &statement.Expect{Column: "status", Equals: "ok"}

	pass, err := e.Process(t.Context(), s, "")
	assert.NoError(t, err)
	assert.False(t, pass)
}

func TestExpectErrorsWhenNeitherRowCountNorColumnConfigured(t *testing.T) {
	s := statement.New("select 1", "", nil, newTag(), 1, nil)
	s.Results = tabular.New([]string{"status"}, nil)

	e := &statement.Expect{}

	_, err := e.Process(t.Context(), s, "")
	assert.Error(t, err)
}
