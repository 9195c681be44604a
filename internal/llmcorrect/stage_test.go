package llmcorrect

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aquilaworks/convocations/internal/rerr"
	"github.com/aquilaworks/convocations/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCorrector struct {
	calls int
	fn    func(call int, chunk string) (string, error)
}

func (s *stubCorrector) CorrectChunk(ctx context.Context, chunk string) (string, error) {
	s.calls++
	return s.fn(s.calls-1, chunk)
}

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func TestRunCorrectsEveryChunk(t *testing.T) {
	text := "line one.\nline two.\n"
	stub := &stubCorrector{fn: func(call int, chunk string) (string, error) {
		return strings.ToUpper(chunk), nil
	}}
	result := Run(context.Background(), stub, text, 9, fastRetry())
	assert.True(t, result.Ran)
	assert.Empty(t, result.Warnings)
	assert.False(t, result.Aborted)
	assert.Equal(t, strings.ToUpper(text), result.Text)
}

func TestRunFallsBackOnTerminalChunkFailure(t *testing.T) {
	text := "line one.\nline two.\n"
	stub := &stubCorrector{fn: func(call int, chunk string) (string, error) {
		if strings.Contains(chunk, "one") {
			return "", rerr.LLM(rerr.LLMPhaseServer, "boom", nil)
		}
		return strings.ToUpper(chunk), nil
	}}
	result := Run(context.Background(), stub, text, 9, fastRetry())
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, 0, result.Warnings[0].ChunkIndex)
	assert.False(t, result.Aborted)
	assert.Contains(t, result.Text, "line one.")
	assert.Contains(t, result.Text, "LINE TWO.")
}

func TestRunAbortsOnFirstChunkAuthFailure(t *testing.T) {
	text := "line one.\nline two.\n"
	stub := &stubCorrector{fn: func(call int, chunk string) (string, error) {
		return "", rerr.LLM(rerr.LLMPhaseAuth, "rejected", nil)
	}}
	result := Run(context.Background(), stub, text, 9, fastRetry())
	assert.True(t, result.Aborted)
	assert.Equal(t, text, result.Text)
	assert.Error(t, result.AbortCause)
}

func TestRunSkippedWhenTextEmpty(t *testing.T) {
	stub := &stubCorrector{fn: func(call int, chunk string) (string, error) { return chunk, nil }}
	result := Run(context.Background(), stub, "", 100, fastRetry())
	assert.False(t, result.Ran)
	assert.Equal(t, "", result.Text)
}
