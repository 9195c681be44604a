package reassemble

import (
	"testing"
	"time"

	"github.com/aquilaworks/convocations/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ev(t time.Time, channel model.Channel, speaker, body string) model.LogEvent {
	return model.LogEvent{Timestamp: t, Channel: channel, Speaker: speaker, Body: body}
}

func wideWindow() model.EventWindow {
	return model.EventWindow{
		Start: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestFuseEmptySpeakerContinuation(t *testing.T) {
	base := time.Date(2024, 10, 19, 22, 0, 0, 0, time.UTC)
	events := []model.LogEvent{
		ev(base, model.ChannelSay, "Kaelith", "The storm is close,"),
		ev(base.Add(2*time.Second), model.ChannelSay, "", "and closing fast."),
	}
	fused := Fuse(events, wideWindow())
	require.Len(t, fused, 1)
	assert.Equal(t, "The storm is close, and closing fast.", fused[0].Body)
}

func TestFuseMarkerWithinThreshold(t *testing.T) {
	base := time.Date(2024, 10, 19, 22, 0, 0, 0, time.UTC)
	events := []model.LogEvent{
		ev(base, model.ChannelSay, "Kaelith", "I have much to say"),
		ev(base.Add(500*time.Millisecond), model.ChannelSay, "Kaelith", ">> about this matter."),
	}
	fused := Fuse(events, wideWindow())
	require.Len(t, fused, 1)
	assert.Equal(t, "I have much to say about this matter.", fused[0].Body)
}

func TestFuseDoesNotMergeAcrossSpeakers(t *testing.T) {
	base := time.Date(2024, 10, 19, 22, 0, 0, 0, time.UTC)
	events := []model.LogEvent{
		ev(base, model.ChannelSay, "Kaelith", "hello"),
		ev(base.Add(500*time.Millisecond), model.ChannelSay, "Valandil", " world"),
	}
	fused := Fuse(events, wideWindow())
	require.Len(t, fused, 2)
}

func TestFuseDoesNotMergeBeyondThreshold(t *testing.T) {
	base := time.Date(2024, 10, 19, 22, 0, 0, 0, time.UTC)
	events := []model.LogEvent{
		ev(base, model.ChannelSay, "Kaelith", "hello"),
		ev(base.Add(5*time.Second), model.ChannelSay, "Kaelith", " world"),
	}
	fused := Fuse(events, wideWindow())
	require.Len(t, fused, 2)
}

func TestFuseDoesNotMergeAcrossWindowBoundary(t *testing.T) {
	windowStart := time.Date(2024, 10, 19, 22, 0, 0, 0, time.UTC)
	w := model.EventWindow{Start: windowStart, End: windowStart.Add(time.Hour)}
	events := []model.LogEvent{
		ev(windowStart.Add(-500*time.Millisecond), model.ChannelSay, "Kaelith", "before window"),
		ev(windowStart, model.ChannelSay, "", "inside window"),
	}
	fused := Fuse(events, w)
	require.Len(t, fused, 2)
}

func TestFusePreservesOrder(t *testing.T) {
	base := time.Date(2024, 10, 19, 22, 0, 0, 0, time.UTC)
	events := []model.LogEvent{
		ev(base, model.ChannelSay, "A", "one"),
		ev(base.Add(time.Second*10), model.ChannelSay, "B", "two"),
		ev(base.Add(time.Second*20), model.ChannelSay, "C", "three"),
	}
	fused := Fuse(events, wideWindow())
	require.Len(t, fused, 3)
	assert.Equal(t, "one", fused[0].Body)
	assert.Equal(t, "two", fused[1].Body)
	assert.Equal(t, "three", fused[2].Body)
}
