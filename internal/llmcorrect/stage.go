package llmcorrect

import (
	"context"
	"errors"

	"github.com/aquilaworks/convocations/internal/rerr"
	"github.com/aquilaworks/convocations/internal/retry"
)

// Warning describes a single chunk falling back to its original text
// (spec.md §4.G: "falls back to the original chunk and records a
// warning").
type Warning struct {
	ChunkIndex int
	Err        error
}

// Result is the outcome of Run.
type Result struct {
	// Text is the corrected document, or the original if the stage was
	// skipped or aborted.
	Text string
	// Ran reports whether any chunk was actually sent to the model.
	Ran bool
	// Aborted reports whether the stage aborted after the first chunk
	// failed authentication (spec.md §4.G: "authentication rejection on
	// the first chunk → abort LLM stage, retain pre-LLM output").
	Aborted    bool
	AbortCause error
	Warnings   []Warning
}

// Corrector is the interface Run depends on; Client implements it against a
// real OpenRouter-compatible endpoint, and tests supply a stub.
type Corrector interface {
	CorrectChunk(ctx context.Context, chunk string) (string, error)
}

// Run chunks text and submits each chunk sequentially to client, retrying
// per the shared retry helper and falling back to the original chunk on
// terminal per-chunk failure. An auth failure on the very first chunk
// aborts the whole stage instead of falling back (the credential is
// presumed broken for every subsequent chunk too).
func Run(ctx context.Context, client Corrector, text string, maxChars int, retryCfg retry.Config) Result {
	chunks := Chunk(text, maxChars)
	if len(chunks) == 0 {
		return Result{Text: text}
	}
	if retryCfg.ShouldRetry == nil {
		retryCfg.ShouldRetry = func(err error) bool { return !isAuthFailure(err) }
	}

	corrected := make([]string, len(chunks))
	var warnings []Warning

	for i, chunk := range chunks {
		var out string
		err := retry.Do(ctx, retryCfg, func(ctx context.Context) error {
			result, callErr := client.CorrectChunk(ctx, chunk)
			if callErr != nil {
				return callErr
			}
			out = result
			return nil
		})

		if err != nil {
			if i == 0 && rerr.Of(err, rerr.KindLLM) && isAuthFailure(err) {
				return Result{Text: text, Ran: true, Aborted: true, AbortCause: err}
			}
			warnings = append(warnings, Warning{ChunkIndex: i, Err: err})
			corrected[i] = chunk
			continue
		}
		corrected[i] = out
	}

	return Result{Text: Join(corrected), Ran: true, Warnings: warnings}
}

func isAuthFailure(err error) bool {
	var e *rerr.Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Phase == rerr.LLMPhaseAuth
}
