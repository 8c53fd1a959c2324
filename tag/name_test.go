package tag_test

import (
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/sqlscript-io/sqlscript/config"
	"github.com/sqlscript-io/sqlscript/tag"
)

func TestNewNamePlainKeyHasNoFlags(t *testing.T) {
	cfg := config.Default()

	n := tag.NewName("Description", cfg)
	assert.Equal(t, "Description", n.Stripped)
	assert.False(t, n.IsParagraph)
	assert.False(t, n.IsVerbatim)
	assert.False(t, n.IsOmitName)
	assert.Equal(t, "Description", n.Adjusted)
}

func TestNewNameParagraphFlag(t *testing.T) {
	cfg := config.Default()

	n := tag.NewName("notes*p", cfg)
	assert.Equal(t, "notes", n.Stripped)
	assert.True(t, n.IsParagraph)
	assert.Equal(t, "Notes", n.Adjusted)
}

func TestNewNameOmitNameImpliesParagraphAndBlankAdjusted(t *testing.T) {
	cfg := config.Default()

	n := tag.NewName("body*o", cfg)
	assert.True(t, n.IsOmitName)
	assert.True(t, n.IsParagraph)
	assert.Equal(t, "", n.Adjusted)
}

func TestNewNameVerbatimKeepsStrippedCasing(t *testing.T) {
	cfg := config.Default()

	n := tag.NewName("SQL*v", cfg)
	assert.True(t, n.IsVerbatim)
	assert.Equal(t, "SQL", n.Adjusted)
}

func TestNewNameEscapedWildcardIsLiteral(t *testing.T) {
	cfg := config.Default()

	n := tag.NewName(`weird\*name`, cfg)
	assert.Equal(t, "weird*name", n.Stripped)
	assert.Equal(t, 0, len(n.Flags))
}

func TestIsReservedMatchesCaseInsensitivePrefix(t *testing.T) {
	cfg := config.Default()

	n := tag.NewName("Results*", cfg)
	assert.True(t, n.IsReserved("results"))
	assert.False(t, n.IsReserved("sql"))
}
