// Package formatter renders cleaned events as narrative prose (spec.md
// §4.F).
package formatter

import (
	"strings"

	"github.com/aquilaworks/convocations/internal/model"
)

// Line renders a single event as one narrative line. The formatter does not
// attempt English morphology: emote bodies are emitted verbatim after the
// speaker name, whether or not they begin with a quote.
func Line(e model.LogEvent) string {
	switch e.Channel {
	case model.ChannelSay:
		return e.Speaker + ` says, "` + e.Body + `"`
	case model.ChannelEmote:
		return e.Speaker + " " + e.Body
	default:
		return e.Speaker + " " + e.Body
	}
}

// Render renders a full event sequence into the final narrative document:
// one line per event, single-newline separated, with a required trailing
// newline.
func Render(events []model.LogEvent) string {
	lines := make([]string, 0, len(events))
	for _, e := range events {
		lines = append(lines, Line(e))
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// SpeakerSet returns the distinct set of speaker names appearing in events,
// used to verify the formatter's speaker-preservation property.
func SpeakerSet(events []model.LogEvent) map[string]struct{} {
	set := make(map[string]struct{}, len(events))
	for _, e := range events {
		set[e.Speaker] = struct{}{}
	}
	return set
}
