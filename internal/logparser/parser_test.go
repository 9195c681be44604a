package logparser

import (
	"testing"
	"time"

	"github.com/aquilaworks/convocations/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWellFormedLines(t *testing.T) {
	raw := []byte(
		"[2024-10-19 22:01:03] [Say] Kaelith: The storm is close now.\n" +
			"[2024-10-19 22:01:10] [Emote] Kaelith draws her blade.\n" +
			"[2024-10-19 22:01:15] [Guild] Raidbot: loot distributed\n",
	)
	events := Parse(raw, Options{SourceLocation: time.UTC})
	require.Len(t, events, 3)

	assert.Equal(t, model.ChannelSay, events[0].Channel)
	assert.Equal(t, "Kaelith", events[0].Speaker)
	assert.Equal(t, "The storm is close now.", events[0].Body)

	assert.Equal(t, model.ChannelEmote, events[1].Channel)

	assert.Equal(t, model.ChannelOther, events[2].Channel)
}

func TestParsePreservesSourceOrder(t *testing.T) {
	raw := []byte(
		"[2024-10-19 22:01:03] [Say] A: first\n" +
			"[2024-10-19 22:01:04] [Say] B: second\n" +
			"garbage line that matches nothing\n" +
			"[2024-10-19 22:01:05] [Say] C: third\n",
	)
	events := Parse(raw, Options{SourceLocation: time.UTC})
	require.Len(t, events, 3)
	assert.Equal(t, []string{"first", "second", "third"}, []string{
		events[0].Body, events[1].Body, events[2].Body,
	})
}

func TestParseDiscardsMalformedLines(t *testing.T) {
	raw := []byte(
		"not a log line\n" +
			"[bad timestamp] [Say] A: hi\n" +
			"[2024-10-19 22:01:03] [Unrecognized] A: hi\n" +
			"\n",
	)
	events := Parse(raw, Options{SourceLocation: time.UTC})
	assert.Empty(t, events)
}

func TestParseTolerantOfInvalidUTF8(t *testing.T) {
	raw := append([]byte("[2024-10-19 22:01:03] [Say] A: "), 0xff, 0xfe)
	raw = append(raw, []byte("tail\n")...)
	events := Parse(raw, Options{SourceLocation: time.UTC})
	require.Len(t, events, 1)
	assert.Contains(t, events[0].Body, "tail")
}

func TestKeepRoleplayDropsOtherChannels(t *testing.T) {
	events := []model.LogEvent{
		{Channel: model.ChannelSay, Body: "a"},
		{Channel: model.ChannelOther, Body: "b"},
		{Channel: model.ChannelEmote, Body: "c"},
	}
	kept := KeepRoleplay(events)
	require.Len(t, kept, 2)
	assert.Equal(t, "a", kept[0].Body)
	assert.Equal(t, "c", kept[1].Body)
}
