// Package cleanup implements the cleanup stage (spec.md §4.E): stripping OOC
// markers and normalizing punctuation on event bodies, line by line.
package cleanup

import (
	"strings"

	"github.com/aquilaworks/convocations/internal/model"
	"golang.org/x/text/unicode/norm"
)

var curlyQuoteReplacer = strings.NewReplacer(
	"‘", "'", "’", "'",
	"“", "\"", "”", "\"",
)

const ellipsis = "…"

var terminalPunctuation = map[rune]bool{
	'.': true, '!': true, '?': true, '"': true, '\'': true,
}

// Body applies the five required transformations to a single event body, in
// order, and reports whether the result is non-empty (callers drop
// empty-after-cleanup events).
func Body(s string) (string, bool) {
	s = norm.NFC.String(s)
	s = stripOOC(s)
	s = curlyQuoteReplacer.Replace(s)
	s = strings.ReplaceAll(s, ellipsis, "...")
	s = collapseWhitespace(s)
	if s == "" {
		return "", false
	}
	s = ensureTerminalPunctuation(s)
	return s, true
}

// Events applies Body to every event's Body field, dropping any event whose
// body becomes empty after cleanup.
func Events(events []model.LogEvent) []model.LogEvent {
	out := make([]model.LogEvent, 0, len(events))
	for _, e := range events {
		body, ok := Body(e.Body)
		if !ok {
			continue
		}
		e.Body = body
		out = append(out, e)
	}
	return out
}

// stripOOC removes spans enclosed by ((…)) or [[…]], greedily
// outermost-first so nested markers of the same kind are removed as one
// span rather than leaving inner delimiters behind.
func stripOOC(s string) string {
	s = stripSpans(s, "((", "))")
	s = stripSpans(s, "[[", "]]")
	return s
}

func stripSpans(s, open, close string) string {
	for {
		start := strings.Index(s, open)
		if start < 0 {
			return s
		}
		rest := s[start+len(open):]
		depth := 1
		i := 0
		end := -1
		for i < len(rest) {
			switch {
			case strings.HasPrefix(rest[i:], open):
				depth++
				i += len(open)
			case strings.HasPrefix(rest[i:], close):
				depth--
				i += len(close)
				if depth == 0 {
					end = i
				}
			default:
				i++
			}
			if end >= 0 {
				break
			}
		}
		if end < 0 {
			// Unterminated marker: drop from the opening delimiter to the
			// end of the string rather than looping forever.
			return s[:start]
		}
		s = s[:start] + rest[end:]
	}
}

func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

func ensureTerminalPunctuation(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	last := runes[len(runes)-1]
	if terminalPunctuation[last] {
		return s
	}
	return s + "."
}
