// Package pipeline composes the individual stage packages (logparser,
// reassemble, cleanup, formatter, llmcorrect, diffgen) into the linear
// data-flow described in spec.md §2, operating on immutable StageFrame
// snapshots (spec.md §3).
package pipeline

import (
	"github.com/aquilaworks/convocations/internal/model"
)

// Frame is the immutable snapshot passed between stages. Each stage
// function consumes a Frame and returns the next one; callers never mutate
// a Frame in place.
type Frame struct {
	Events []model.LogEvent
	Text   string
}
