// Package llmcorrect implements the LLM correction stage (spec.md §4.G):
// chunked rewrite of narrative text via an external OpenRouter-compatible
// model, with domain-term preservation and per-chunk fallback semantics.
package llmcorrect

import "strings"

// Chunk splits text into contiguous runs of whole lines, each bounded by
// maxChars, never dividing a line across two chunks. This is the spec's
// mandated line-boundary, character-budget policy — never token-based
// (spec.md §9 Open Question, resolved).
func Chunk(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = defaultMaxChunkChars
	}
	lines := splitKeepingNewlines(text)
	if len(lines) == 0 {
		return nil
	}

	var chunks []string
	var current strings.Builder

	for _, line := range lines {
		if current.Len() > 0 && current.Len()+len(line) > maxChars {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		// A single line longer than maxChars still goes out whole: the
		// spec forbids dividing a line, so the budget is a soft cap for
		// any one line.
		current.WriteString(line)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// defaultMaxChunkChars is the default character budget per chunk when the
// caller does not override it.
const defaultMaxChunkChars = 4000

// splitKeepingNewlines splits text into lines, each retaining its trailing
// "\n" (except possibly the last), so that re-joining chunks with no
// separator reproduces the original text exactly.
func splitKeepingNewlines(text string) []string {
	if text == "" {
		return nil
	}
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}

// Join reassembles chunks produced by Chunk (or their corrected
// replacements) back into one document.
func Join(chunks []string) string {
	return strings.Join(chunks, "")
}
