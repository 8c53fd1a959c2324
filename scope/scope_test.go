package scope_test

import (
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/sqlscript-io/sqlscript/scope"
)

func TestEvaluateDefaultsToIncluded(t *testing.T) {
	s := scope.New(scope.KW, "select")
	assert.True(t, s.Evaluate(scope.NewArgs()))
}

func TestEvaluateInclusionRequiresAMatch(t *testing.T) {
	s := scope.New(scope.Obj, "orders")

	args := scope.NewArgs()
	args.Incl[scope.Obj] = []string{"customers"}
	assert.False(t, s.Evaluate(args))

	args.Incl[scope.Obj] = []string{"orders"}
	assert.True(t, s.Evaluate(args))
}

func TestEvaluateExclusionOverridesInclusion(t *testing.T) {
	s := scope.New(scope.Nm, "insert into orders~load")

	args := scope.NewArgs()
	args.Excl[scope.Nm] = []string{"load"}
	assert.False(t, s.Evaluate(args))
}

func TestEvaluateMatchesRegex(t *testing.T) {
	s := scope.New(scope.Anchor, "select customers")

	args := scope.NewArgs()
	args.Incl[scope.Anchor] = []string{"^select .*"}
	assert.True(t, s.Evaluate(args))
}
