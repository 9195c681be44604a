// Package reassemble fuses multi-line messages into single logical events
// (spec.md §4.D).
package reassemble

import (
	"strings"
	"time"

	"github.com/aquilaworks/convocations/internal/model"
)

// ContinuationThreshold is the maximum timestamp delta between a candidate
// continuation line and the event it extends (spec.md §4.D: "e.g. 1
// second").
const ContinuationThreshold = 1 * time.Second

// ContinuationSentinel is the explicit continuation marker recognized in
// addition to leading whitespace.
const ContinuationSentinel = ">> "

// Fuse merges continuation lines into the preceding say/emote event's body.
// A line is treated as a continuation when either:
//   - it parsed with an empty speaker, or
//   - it arrives within ContinuationThreshold of the previous say/emote
//     event AND its body starts with leading whitespace or
//     ContinuationSentinel.
//
// Continuations never cross a channel/speaker boundary, never merge into an
// `other`-channel event, and never merge two events that straddle window's
// boundary — a continuation whose own timestamp falls outside window while
// the event it would extend falls inside (or vice versa) is left unmerged,
// since reassembly runs before window filtering in the pipeline.
func Fuse(events []model.LogEvent, window model.EventWindow) []model.LogEvent {
	out := make([]model.LogEvent, 0, len(events))

	for _, e := range events {
		if len(out) > 0 && isContinuation(out[len(out)-1], e) && window.Contains(out[len(out)-1].Timestamp) == window.Contains(e.Timestamp) {
			prev := &out[len(out)-1]
			prev.Body = strings.TrimSpace(prev.Body) + " " + strings.TrimSpace(stripSentinel(e.Body))
			continue
		}
		out = append(out, e)
	}
	return out
}

func isContinuation(prev, cur model.LogEvent) bool {
	if prev.Channel != model.ChannelSay && prev.Channel != model.ChannelEmote {
		return false
	}
	if cur.Channel != model.ChannelSay && cur.Channel != model.ChannelEmote {
		return false
	}
	if cur.Channel != prev.Channel {
		return false
	}

	if cur.Speaker == "" {
		return true
	}

	if cur.Speaker != prev.Speaker {
		return false
	}
	delta := cur.Timestamp.Sub(prev.Timestamp)
	if delta < 0 {
		delta = -delta
	}
	if delta > ContinuationThreshold {
		return false
	}
	return startsWithContinuationMarker(cur.Body)
}

func startsWithContinuationMarker(body string) bool {
	if strings.HasPrefix(body, ContinuationSentinel) {
		return true
	}
	if len(body) == 0 {
		return false
	}
	r := []rune(body)[0]
	return r == ' ' || r == '\t'
}

func stripSentinel(body string) string {
	return strings.TrimPrefix(body, ContinuationSentinel)
}
