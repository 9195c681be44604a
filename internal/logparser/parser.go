// Package logparser implements the line parser / channel filter (spec.md
// §4.C): turning raw UTF-8 log bytes into structured LogEvents, keeping
// only say/emote/other, and silently discarding malformed lines.
package logparser

import (
	"bufio"
	"strings"
	"time"

	"github.com/aquilaworks/convocations/internal/model"
)

// lineChannels maps the recognized bracketed channel tags to the three-value
// Channel enumeration. Anything not listed here is simply not recognized as
// a parseable line (the parser discards it), matching spec.md §4.C's
// "closed set of non-roleplay channels that map to other" — we list the
// common non-roleplay chat tags explicitly so they route to ChannelOther
// instead of being dropped as malformed.
var lineChannels = map[string]model.Channel{
	"Say":      model.ChannelSay,
	"Emote":    model.ChannelEmote,
	"Guild":    model.ChannelOther,
	"Group":    model.ChannelOther,
	"Tell":     model.ChannelOther,
	"Shout":    model.ChannelOther,
	"Auction":  model.ChannelOther,
	"OOC":      model.ChannelOther,
	"System":   model.ChannelOther,
}

// Options configures parsing.
type Options struct {
	// SourceLocation is the timezone the raw log's timestamps are expressed
	// in. When nil, Parse reads them as UTC; the job runtime's driver sets
	// it to the active preset's timezone.
	SourceLocation *time.Location
}

// Parse reads raw log bytes and emits one LogEvent per well-formed line,
// preserving source order (spec.md §4.C). Invalid UTF-8 sequences are
// tolerated via the standard replacement-character conversion. Malformed
// lines are silently discarded; they never halt the parse.
func Parse(raw []byte, opts Options) []model.LogEvent {
	loc := opts.SourceLocation
	if loc == nil {
		loc = time.UTC
	}

	text := string(raw) // invalid UTF-8 becomes U+FFFD automatically
	var events []model.LogEvent

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		ev, ok := parseLine(line, loc)
		if !ok {
			continue
		}
		events = append(events, ev)
	}
	return events
}

// parseLine parses one line of shape:
//
//	[YYYY-MM-DD HH:MM:SS] [CHANNEL] Speaker: body
//
// Returns ok=false for anything that doesn't match this shape or whose
// channel tag is unrecognized.
func parseLine(line string, loc *time.Location) (model.LogEvent, bool) {
	if len(line) == 0 || line[0] != '[' {
		return model.LogEvent{}, false
	}
	tsEnd := strings.IndexByte(line, ']')
	if tsEnd < 0 {
		return model.LogEvent{}, false
	}
	tsRaw := line[1:tsEnd]
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", tsRaw, loc)
	if err != nil {
		return model.LogEvent{}, false
	}

	rest := line[tsEnd+1:]
	rest = strings.TrimPrefix(rest, " ")
	if len(rest) == 0 || rest[0] != '[' {
		return model.LogEvent{}, false
	}
	chEnd := strings.IndexByte(rest, ']')
	if chEnd < 0 {
		return model.LogEvent{}, false
	}
	chanTag := rest[1:chEnd]
	channel, known := lineChannels[chanTag]
	if !known {
		return model.LogEvent{}, false
	}

	rest = strings.TrimPrefix(rest[chEnd+1:], " ")

	var speaker, body string
	if idx := strings.Index(rest, ": "); idx >= 0 {
		speaker = rest[:idx]
		body = rest[idx+2:]
	} else {
		// No "Speaker: " prefix at all — treat the whole remainder as body
		// with an empty speaker; the reassembler decides what to do with
		// empty-speaker continuations.
		speaker = ""
		body = rest
	}

	if (channel == model.ChannelSay || channel == model.ChannelEmote) && speaker == "" && body == "" {
		return model.LogEvent{}, false
	}

	return model.LogEvent{
		Timestamp: ts,
		Channel:   channel,
		Speaker:   speaker,
		Body:      body,
	}, true
}

// KeepRoleplay filters a parsed event slice down to say/emote channels only,
// per spec.md §2's data-flow description ("keep only say/emote"). Channel
// `other` events are retained only transiently for continuation-detection
// purposes by the reassembler upstream of this filter; call this after
// reassembly once other-channel context is no longer needed, or earlier if
// the caller never needs other-channel continuations.
func KeepRoleplay(events []model.LogEvent) []model.LogEvent {
	out := make([]model.LogEvent, 0, len(events))
	for _, e := range events {
		if e.Channel == model.ChannelSay || e.Channel == model.ChannelEmote {
			out = append(out, e)
		}
	}
	return out
}
