package tag_test

import (
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/sqlscript-io/sqlscript/config"
	"github.com/sqlscript-io/sqlscript/scope"
	"github.com/sqlscript-io/sqlscript/tag"
)

func TestNewTagInfersEverythingWhenUntagged(t *testing.T) {
	cfg := config.Default()

	tg := tag.New(cfg, "", "create table orders (id int)", 3)
	assert.Equal(t, "create", tg.Kw)
	assert.Equal(t, "table", tg.Obj)
	assert.Equal(t, "statement #3", tg.Desc)
	assert.Equal(t, "create table", tg.Anchor)
	assert.Equal(t, "create table~statement #3", tg.Nm)
}

func TestNewTagObjectDefaultsWhenNoNamedObjectPresent(t *testing.T) {
	cfg := config.Default()

	tg := tag.New(cfg, "", "select * from orders where active = true", 1)
	assert.Equal(t, "unknown", tg.Obj)
	// select has a generic_anchors entry, used because obj fell back to default.
	assert.Equal(t, "select data", tg.Anchor)
}

func TestNewTagUserNameOverridesAnchorOnly(t *testing.T) {
	cfg := config.Default()

	tg := tag.New(cfg, "load orders", "select * from orders", 1)
	assert.Equal(t, "load", tg.Kw)
	assert.Equal(t, "orders", tg.Obj)
	assert.Equal(t, "load orders", tg.Anchor)
	// desc falls back to the generated value even though anchor was provided.
	assert.Equal(t, "statement #1", tg.Desc)
	// nm is taken verbatim from the provided name; it is not reconstructed
	// from the independently-resolved anchor/desc.
	assert.Equal(t, "load orders", tg.Nm)
}

func TestNewTagUserNameWithDescription(t *testing.T) {
	cfg := config.Default()

	tg := tag.New(cfg, "load orders~daily batch", "select * from orders", 1)
	assert.Equal(t, "load orders", tg.Anchor)
	assert.Equal(t, "daily batch", tg.Desc)
	assert.Equal(t, "load orders~daily batch", tg.Nm)
}

func TestNewTagGenericAnchorUsedWhenObjectIsDefault(t *testing.T) {
	cfg := config.Default()

	tg := tag.New(cfg, "", "commit", 2)
	assert.Equal(t, "commit transaction", tg.Anchor)
}

func TestNewTagKeywordExceptionNormalizesFirstWord(t *testing.T) {
	cfg := config.Default()

	tg := tag.New(cfg, "", "create or replace view v as select 1", 1)
	assert.Equal(t, "create", tg.Kw)
}

func TestScopeIncludesOnlyWhenAllFiveComponentsMatch(t *testing.T) {
	cfg := config.Default()
	tg := tag.New(cfg, "load orders~daily batch", "select * from orders", 1)

	args := scope.NewArgs()
	args.Incl[scope.Obj] = []string{"orders"}
	assert.True(t, tg.Scope(args))
	assert.True(t, tg.IsIncluded)

	args.Incl[scope.Obj] = []string{"customers"}
	assert.False(t, tg.Scope(args))
	assert.False(t, tg.IsIncluded)
}
