package jobruntime

import (
	"context"
	"testing"
	"time"

	"github.com/aquilaworks/convocations/internal/model"
	"github.com/aquilaworks/convocations/internal/rerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, ch <-chan model.ProgressEvent, timeout time.Duration) []model.ProgressEvent {
	t.Helper()
	var events []model.ProgressEvent
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-deadline:
			return events
		}
	}
}

func TestSubmitSecondCallWhileBusyFailsFast(t *testing.T) {
	blockCh := make(chan struct{})
	rt := New(func(ctx context.Context, cfg model.RuntimeConfig, jobID model.JobID, emit func(model.ProgressEvent)) (model.RunOutcome, error) {
		<-blockCh
		return model.RunOutcome{OutputPath: "out.txt"}, nil
	})

	id, err := rt.Submit(model.RuntimeConfig{})
	require.NoError(t, err)

	_, err = rt.Submit(model.RuntimeConfig{})
	assert.ErrorIs(t, err, ErrBusy)

	status, ok := rt.Status(id)
	assert.True(t, ok)
	assert.Equal(t, model.JobRunning, status)

	close(blockCh)
}

func TestProgressOrderingHasOneQueuedAndOneTerminal(t *testing.T) {
	rt := New(func(ctx context.Context, cfg model.RuntimeConfig, jobID model.JobID, emit func(model.ProgressEvent)) (model.RunOutcome, error) {
		emit(model.ProgressEvent{Kind: model.ProgressStageBegin, Stage: model.StageParse})
		emit(model.ProgressEvent{Kind: model.ProgressStageEnd, Stage: model.StageParse})
		emit(model.ProgressEvent{Kind: model.ProgressStageBegin, Stage: model.StageFormat})
		emit(model.ProgressEvent{Kind: model.ProgressStageEnd, Stage: model.StageFormat})
		return model.RunOutcome{OutputPath: "out.txt"}, nil
	})

	id, err := rt.Submit(model.RuntimeConfig{})
	require.NoError(t, err)

	ch, unsub, ok := rt.Observe(id)
	require.True(t, ok)
	defer unsub()

	events := drain(t, ch, time.Second)

	queuedCount, terminalCount := 0, 0
	begins := map[model.StageName]int{}
	ends := map[model.StageName]int{}
	for _, ev := range events {
		switch ev.Kind {
		case model.ProgressQueued:
			queuedCount++
		case model.ProgressCompleted, model.ProgressFailed:
			terminalCount++
		case model.ProgressStageBegin:
			begins[ev.Stage]++
		case model.ProgressStageEnd:
			ends[ev.Stage]++
		}
	}
	assert.Equal(t, 1, queuedCount)
	assert.Equal(t, 1, terminalCount)
	assert.Equal(t, events[len(events)-1].Kind, model.ProgressCompleted)
	for stage, n := range begins {
		assert.Equal(t, 1, n, "stage %s begin count", stage)
		assert.Equal(t, 1, ends[stage], "stage %s end count", stage)
	}
}

// TestLLMAuthFailureOnFirstChunkCompletesWithWarning exercises spec.md §8
// scenario 5: an auth failure on the first chunk falls back to the pre-LLM
// text, emits a warning carrying LlmError{auth}, omits the diff, and still
// terminates `completed`.
func TestLLMAuthFailureOnFirstChunkCompletesWithWarning(t *testing.T) {
	authErr := rerr.LLM(rerr.LLMPhaseAuth, "unauthorized", nil)
	rt := New(func(ctx context.Context, cfg model.RuntimeConfig, jobID model.JobID, emit func(model.ProgressEvent)) (model.RunOutcome, error) {
		emit(model.ProgressEvent{Kind: model.ProgressStageBegin, Stage: model.StageLLM})
		emit(model.ProgressEvent{Kind: model.ProgressWarning, Message: authErr.Error(), ErrorKind: string(rerr.KindLLM)})
		emit(model.ProgressEvent{Kind: model.ProgressStageEnd, Stage: model.StageLLM})
		return model.RunOutcome{OutputPath: "pre-llm-output.txt", WarningCount: 1}, nil
	})

	id, err := rt.Submit(model.RuntimeConfig{LLMEnabled: true})
	require.NoError(t, err)

	ch, unsub, ok := rt.Observe(id)
	require.True(t, ok)
	defer unsub()

	events := drain(t, ch, time.Second)

	var sawWarning bool
	var terminal model.ProgressEvent
	for _, ev := range events {
		if ev.Kind == model.ProgressWarning {
			sawWarning = true
			assert.Contains(t, ev.Message, "auth")
		}
		if ev.Kind == model.ProgressCompleted || ev.Kind == model.ProgressFailed {
			terminal = ev
		}
	}
	assert.True(t, sawWarning)
	assert.Equal(t, model.ProgressCompleted, terminal.Kind)
	assert.Equal(t, "pre-llm-output.txt", terminal.OutputPath)

	for _, ev := range events {
		assert.NotEqual(t, model.ProgressDiff, ev.Kind, "diff event must be omitted on first-chunk auth failure")
	}
}

// TestDryRunCompletesWithoutWritingOutput exercises spec.md §8 scenario 6:
// a dry run resolves the window only, then terminates `completed` with the
// derived output path, never reaching the later stages.
func TestDryRunCompletesWithoutWritingOutput(t *testing.T) {
	rt := New(func(ctx context.Context, cfg model.RuntimeConfig, jobID model.JobID, emit func(model.ProgressEvent)) (model.RunOutcome, error) {
		require.True(t, cfg.DryRun)
		emit(model.ProgressEvent{Kind: model.ProgressStageBegin, Stage: model.StageResolveWindow})
		emit(model.ProgressEvent{Kind: model.ProgressStageEnd, Stage: model.StageResolveWindow})
		return model.RunOutcome{OutputPath: "derived/2024-10-19.txt"}, nil
	})

	id, err := rt.Submit(model.RuntimeConfig{DryRun: true})
	require.NoError(t, err)

	ch, unsub, ok := rt.Observe(id)
	require.True(t, ok)
	defer unsub()

	events := drain(t, ch, time.Second)

	for _, ev := range events {
		assert.NotEqual(t, model.StageWrite, ev.Stage)
		assert.NotEqual(t, model.StageLLM, ev.Stage)
	}
	terminal := events[len(events)-1]
	assert.Equal(t, model.ProgressCompleted, terminal.Kind)
	assert.Equal(t, "derived/2024-10-19.txt", terminal.OutputPath)
}

func TestCancelRequestsDriverCancellation(t *testing.T) {
	started := make(chan struct{})
	rt := New(func(ctx context.Context, cfg model.RuntimeConfig, jobID model.JobID, emit func(model.ProgressEvent)) (model.RunOutcome, error) {
		close(started)
		<-ctx.Done()
		return model.RunOutcome{}, ctx.Err()
	})

	id, err := rt.Submit(model.RuntimeConfig{})
	require.NoError(t, err)
	<-started

	assert.True(t, rt.Cancel(id))

	ch, unsub, ok := rt.Observe(id)
	require.True(t, ok)
	defer unsub()

	events := drain(t, ch, time.Second)
	terminal := events[len(events)-1]
	assert.Equal(t, model.ProgressFailed, terminal.Kind)
	assert.Equal(t, "cancelled", terminal.ErrorKind)
}

// TestOutcomeSurvivesFailureForHistory covers spec.md SPEC_FULL §4.L: a
// driver that resolves a window and then fails later must still have its
// window recoverable via Outcome, so a failed run's history record can
// carry real bounds instead of zero values.
func TestOutcomeSurvivesFailureForHistory(t *testing.T) {
	window := model.EventWindow{
		Start: time.Date(2024, 10, 19, 2, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 10, 19, 4, 25, 0, 0, time.UTC),
	}
	rt := New(func(ctx context.Context, cfg model.RuntimeConfig, jobID model.JobID, emit func(model.ProgressEvent)) (model.RunOutcome, error) {
		return model.RunOutcome{OutputPath: "partial.txt", Window: window}, rerr.New(rerr.KindIO, "disk full")
	})

	id, err := rt.Submit(model.RuntimeConfig{})
	require.NoError(t, err)

	ch, unsub, ok := rt.Observe(id)
	require.True(t, ok)
	defer unsub()
	drain(t, ch, time.Second)

	status, ok := rt.Status(id)
	require.True(t, ok)
	assert.Equal(t, model.JobFailed, status)

	outcome, ok := rt.Outcome(id)
	require.True(t, ok)
	assert.Equal(t, window, outcome.Window)
	assert.Equal(t, "partial.txt", outcome.OutputPath)
}
