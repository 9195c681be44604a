// Package diffgen produces the unified diff of pre-LLM vs post-LLM text
// (spec.md §4.H).
package diffgen

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
)

// Identical reports whether before and after are byte-identical, using a
// fast hash comparison before falling back to nothing further — diff
// generation is skipped entirely in this case (spec.md §4.H).
func Identical(before, after string) bool {
	if len(before) != len(after) {
		return false
	}
	return xxhash.Sum64String(before) == xxhash.Sum64String(after)
}

// Unified produces a deterministic unified diff of before vs after with a
// fixed 3-line context, using the Myers algorithm. Returns the empty string
// when the two texts are identical.
func Unified(beforeName, afterName, before, after string) string {
	if Identical(before, after) {
		return ""
	}
	edits := myers.ComputeEdits(span.URIFromPath(beforeName), before, after)
	unified := gotextdiff.ToUnified(beforeName, afterName, before, edits)
	return fmt.Sprint(unified)
}
