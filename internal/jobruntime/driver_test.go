package jobruntime

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquilaworks/convocations/internal/config"
	"github.com/aquilaworks/convocations/internal/model"
	"github.com/aquilaworks/convocations/internal/secretstore"
)

func writeSampleLog(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "session.log")
	raw := "[2024-10-19 22:01:03] [Say] Kaelith: The storm is close now.\n" +
		"[2024-10-19 22:01:10] [Emote] Kaelith draws her blade.\n" +
		"[2024-10-19 22:01:15] [Guild] Raidbot: loot distributed\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))
	return path
}

func TestDefaultDriverWritesOutputForExplicitWindow(t *testing.T) {
	dir := t.TempDir()
	logPath := writeSampleLog(t, dir)

	driver := NewDefaultDriver(Deps{
		Secrets: secretstore.Store{MasterKeyPath: filepath.Join(dir, "secret.key")},
		Now:     func() time.Time { return time.Date(2024, 10, 19, 23, 0, 0, 0, time.UTC) },
	})

	start := time.Date(2024, 10, 19, 22, 0, 0, 0, time.UTC)
	end := time.Date(2024, 10, 19, 22, 30, 0, 0, time.UTC)
	cfg := model.RuntimeConfig{
		InputPath:               logPath,
		ExplicitStart:           &start,
		ExplicitEnd:             &end,
		CleanupEnabled:          true,
		FormatDialogueEnabled:   true,
		OutputTarget:            model.OutputTargetDirectory,
		OutputDirectoryOverride: dir,
	}

	var events []model.ProgressEvent
	emit := func(ev model.ProgressEvent) { events = append(events, ev) }

	outcome, err := driver(context.Background(), cfg, model.NewJobID(), emit)
	require.NoError(t, err)
	require.NotEmpty(t, outcome.OutputPath)
	assert.True(t, outcome.Window.Valid())

	data, err := os.ReadFile(outcome.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Kaelith")

	var sawParse, sawWrite bool
	for _, ev := range events {
		if ev.Kind == model.ProgressStageBegin && ev.Stage == model.StageParse {
			sawParse = true
		}
		if ev.Kind == model.ProgressStageBegin && ev.Stage == model.StageWrite {
			sawWrite = true
		}
	}
	assert.True(t, sawParse)
	assert.True(t, sawWrite)
}

func TestDefaultDriverDryRunSkipsFileIO(t *testing.T) {
	dir := t.TempDir()

	driver := NewDefaultDriver(Deps{
		Secrets: secretstore.Store{MasterKeyPath: filepath.Join(dir, "secret.key")},
		Now:     func() time.Time { return time.Date(2024, 10, 19, 23, 0, 0, 0, time.UTC) },
	})

	start := time.Date(2024, 10, 19, 22, 0, 0, 0, time.UTC)
	end := time.Date(2024, 10, 19, 22, 30, 0, 0, time.UTC)
	cfg := model.RuntimeConfig{
		InputPath:               filepath.Join(dir, "does-not-exist.log"),
		ExplicitStart:           &start,
		ExplicitEnd:             &end,
		DryRun:                  true,
		OutputDirectoryOverride: dir,
	}

	var events []model.ProgressEvent
	emit := func(ev model.ProgressEvent) { events = append(events, ev) }

	outcome, err := driver(context.Background(), cfg, model.NewJobID(), emit)
	require.NoError(t, err)
	assert.NotEmpty(t, outcome.OutputPath)
	_, statErr := os.Stat(outcome.OutputPath)
	assert.True(t, os.IsNotExist(statErr))

	for _, ev := range events {
		assert.NotEqual(t, model.StageWrite, ev.Stage)
	}
}

// TestDefaultDriverOutputFilenameUsesPresetLocalDate drives a real preset
// (rsm7: Saturday, America/New_York, 22:00) rather than an explicit UTC
// window. The resolved window's local start falls on Saturday 2024-10-19,
// but its UTC instant rolls over to 2024-10-20T02:00:00Z. The derived
// filename must carry the local date (101924), not the UTC date (102024).
func TestDefaultDriverOutputFilenameUsesPresetLocalDate(t *testing.T) {
	dir := t.TempDir()
	logPath := writeSampleLog(t, dir)

	preset, err := config.FindPreset(config.Builtins(), "rsm7")
	require.NoError(t, err)

	driver := NewDefaultDriver(Deps{
		Presets: []model.Preset{preset},
		Secrets: secretstore.Store{MasterKeyPath: filepath.Join(dir, "secret.key")},
		Now:     func() time.Time { return time.Date(2024, 10, 20, 9, 0, 0, 0, time.UTC) },
	})

	cfg := model.RuntimeConfig{
		InputPath:               logPath,
		ActivePreset:            "rsm7",
		CleanupEnabled:          true,
		FormatDialogueEnabled:   true,
		OutputTarget:            model.OutputTargetDirectory,
		OutputDirectoryOverride: dir,
	}

	outcome, err := driver(context.Background(), cfg, model.NewJobID(), func(model.ProgressEvent) {})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "rsm7-101924.txt"), outcome.OutputPath)
}

func TestDefaultDriverEmptyWindowFailsValidation(t *testing.T) {
	dir := t.TempDir()
	logPath := writeSampleLog(t, dir)

	driver := NewDefaultDriver(Deps{
		Secrets: secretstore.Store{MasterKeyPath: filepath.Join(dir, "secret.key")},
		Now:     func() time.Time { return time.Now() },
	})

	start := time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2099, 1, 1, 1, 0, 0, 0, time.UTC)
	cfg := model.RuntimeConfig{
		InputPath:     logPath,
		ExplicitStart: &start,
		ExplicitEnd:   &end,
	}

	_, err := driver(context.Background(), cfg, model.NewJobID(), func(model.ProgressEvent) {})
	require.Error(t, err)
}
