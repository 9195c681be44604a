package pipeline

import (
	"context"
	"time"

	"github.com/aquilaworks/convocations/internal/cleanup"
	"github.com/aquilaworks/convocations/internal/diffgen"
	"github.com/aquilaworks/convocations/internal/formatter"
	"github.com/aquilaworks/convocations/internal/llmcorrect"
	"github.com/aquilaworks/convocations/internal/logparser"
	"github.com/aquilaworks/convocations/internal/model"
	"github.com/aquilaworks/convocations/internal/reassemble"
	"github.com/aquilaworks/convocations/internal/retry"
	"github.com/aquilaworks/convocations/internal/rerr"
)

// ParseAndFilter runs components C (parse), D (reassemble), and the window
// filter, in the order spec.md §2's data flow requires: parse → reassemble
// → filter by window. Reassembly happens before filtering so a
// continuation line is never merged across the window boundary (the
// reassemble package itself enforces that, given the window).
func ParseAndFilter(raw []byte, parseOpts logparser.Options, window model.EventWindow) []model.LogEvent {
	events := logparser.Parse(raw, parseOpts)
	fused := reassemble.Fuse(events, window)
	out := make([]model.LogEvent, 0, len(fused))
	for _, e := range fused {
		if window.Contains(e.Timestamp) {
			out = append(out, e)
		}
	}
	return logparser.KeepRoleplay(out)
}

// Clean runs component E over events, per spec.md §4.E, only when enabled.
func Clean(events []model.LogEvent, enabled bool) []model.LogEvent {
	if !enabled {
		return events
	}
	return cleanup.Events(events)
}

// Format runs component F, per spec.md §4.F, only when enabled. When
// disabled, the events' bodies are joined as-is (one per line) so the
// cleanup/format toggles remain independent per spec.md §9's resolved open
// question.
func Format(events []model.LogEvent, enabled bool) string {
	if !enabled {
		return rawJoin(events)
	}
	return formatter.Render(events)
}

func rawJoin(events []model.LogEvent) string {
	text := ""
	for _, e := range events {
		text += e.Body + "\n"
	}
	return text
}

// LLMOptions configures component G.
type LLMOptions struct {
	Enabled        bool
	Client         llmcorrect.Corrector
	MaxChunkChars  int
	Retry          retry.Config
	ShowDiff       bool
	KeepOriginal   bool
}

// LLMResult captures everything the runtime needs after component G/H run:
// the text to write, whether a companion unedited file is needed, the
// unified diff (if any), and accumulated warnings.
type LLMResult struct {
	FinalText      string
	UneditedText   string
	WriteUnedited  bool
	UnifiedDiff    string
	Warnings       []string
	Skipped        bool
	SkipReason     string
}

// CorrectAndDiff runs components G and H together, since H's output
// depends entirely on whether G actually ran (spec.md §4.H: "skipped when
// the LLM stage is skipped... or when the two texts are byte-identical").
func CorrectAndDiff(ctx context.Context, preLLM string, opts LLMOptions) LLMResult {
	if !opts.Enabled {
		return LLMResult{FinalText: preLLM, Skipped: true, SkipReason: "llm disabled"}
	}
	if opts.Client == nil {
		return LLMResult{FinalText: preLLM, Skipped: true, SkipReason: "no credential configured"}
	}

	result := llmcorrect.Run(ctx, opts.Client, preLLM, opts.MaxChunkChars, opts.Retry)
	if result.Aborted {
		return LLMResult{
			FinalText:  preLLM,
			Skipped:    true,
			SkipReason: result.AbortCause.Error(),
			Warnings:   []string{"LLM stage aborted: " + result.AbortCause.Error()},
		}
	}

	warnings := make([]string, 0, len(result.Warnings))
	for _, w := range result.Warnings {
		warnings = append(warnings, w.Err.Error())
	}

	var diff string
	if opts.ShowDiff {
		diff = diffgen.Unified("before.txt", "after.txt", preLLM, result.Text)
	}

	return LLMResult{
		FinalText:     result.Text,
		UneditedText:  preLLM,
		WriteUnedited: opts.KeepOriginal,
		UnifiedDiff:   diff,
		Warnings:      warnings,
	}
}

// StageTimer measures a stage's wall-clock duration for progress reporting.
// The job runtime's driver puts it, as a duration string, in the stage-end
// ProgressEvent's Message; the event's ElapsedMs is time since job start.
func StageTimer() func() time.Duration {
	start := time.Now()
	return func() time.Duration { return time.Since(start) }
}

// ValidateNonEmpty returns rerr.EmptyWindow when no events fell inside the
// window, per spec.md §4.I / §7 EmptyWindow semantics.
func ValidateNonEmpty(events []model.LogEvent, window model.EventWindow) error {
	if len(events) > 0 {
		return nil
	}
	return rerr.New(rerr.KindEmptyWindow, "no events fell inside window "+window.Start.Format(time.RFC3339)+" - "+window.End.Format(time.RFC3339))
}
