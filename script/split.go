package script

import (
	"github.com/sqlscript-io/sqlscript/splitter"
)

type tagBlockSpan = splitter.TagBlock
type stmtSpan = splitter.Statement

func splitTagBlocks(source, openTag, closeTag string) ([]tagBlockSpan, error) {
	return splitter.FindTagBlocks(source, openTag, closeTag)
}

func splitStatements(source string) []stmtSpan {
	return splitter.Split(source)
}

// attachBlocks matches each statement to the tag block immediately
// preceding it, when the gap between the block's close_tag and the
// statement's first token is only whitespace containing at most one
// newline (spec.md §4.4). Returns a map keyed by statement slice index.
func attachBlocks(source string, blocks []tagBlockSpan, stmts []stmtSpan) map[int]tagBlockSpan {
	attached := map[int]tagBlockSpan{}

	usedBlock := map[int]bool{}

	for i, st := range stmts {
		best := -1

		for bi, b := range blocks {
			if usedBlock[bi] || b.End > st.Start {
				continue
			}

			gap := source[b.End:st.Start]
			if !isAttachableGap(gap) {
				continue
			}

			if best < 0 || blocks[bi].End > blocks[best].End {
				best = bi
			}
		}

		if best >= 0 {
			attached[i] = blocks[best]
			usedBlock[best] = true
		}
	}

	return attached
}
