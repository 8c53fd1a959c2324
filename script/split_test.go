package script

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestAttachBlocksAttachesOnSingleNewlineGap(t *testing.T) {
	source := "/*- load orders -*/\nselect 1;"

	blocks, err := splitTagBlocks(source, "/*-", "-*/")
	assert.NoError(t, err)

	stmts := splitStatements(source)

	attached := attachBlocks(source, blocks, stmts)
	assert.Equal(t, 1, len(attached))
	assert.Equal(t, " load orders ", attached[0].Raw)
}

func TestAttachBlocksSkipsGapWithTwoBlankLines(t *testing.T) {
	source := "/*- load orders -*/\n\n\nselect 1;"

	blocks, err := splitTagBlocks(source, "/*-", "-*/")
	assert.NoError(t, err)

	stmts := splitStatements(source)

	attached := attachBlocks(source, blocks, stmts)
	assert.Equal(t, 0, len(attached))
}

func TestAttachBlocksPicksClosestUnusedBlock(t *testing.T) {
	source := "/*- earlier -*/\n\n\n/*- closest -*/\nselect 1;"

	blocks, err := splitTagBlocks(source, "/*-", "-*/")
	assert.NoError(t, err)

	stmts := splitStatements(source)

	attached := attachBlocks(source, blocks, stmts)
	assert.Equal(t, 1, len(attached))
	assert.Equal(t, " closest ", attached[0].Raw)
}

func TestIsAttachableGapAllowsAtMostOneNewline(t *testing.T) {
	assert.True(t, isAttachableGap("\n"))
	assert.True(t, isAttachableGap("  \n "))
	assert.True(t, isAttachableGap(""))
	assert.False(t, isAttachableGap("\n\n"))
}
