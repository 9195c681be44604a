package jobruntime

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aquilaworks/convocations/internal/config"
	"github.com/aquilaworks/convocations/internal/environment"
	"github.com/aquilaworks/convocations/internal/eventwindow"
	"github.com/aquilaworks/convocations/internal/llmcorrect"
	"github.com/aquilaworks/convocations/internal/logparser"
	"github.com/aquilaworks/convocations/internal/model"
	"github.com/aquilaworks/convocations/internal/pipeline"
	"github.com/aquilaworks/convocations/internal/redact"
	"github.com/aquilaworks/convocations/internal/report"
	"github.com/aquilaworks/convocations/internal/retry"
	"github.com/aquilaworks/convocations/internal/rerr"
	"github.com/aquilaworks/convocations/internal/secretstore"
)

// Deps wires the concrete collaborators NewDefaultDriver needs: the preset
// set (already sanitized by internal/config), the secret store, and a
// clock so tests can pin `now`.
type Deps struct {
	Presets []model.Preset
	Secrets secretstore.Store
	Now     func() time.Time
}

// NewDefaultDriver returns a Driver that runs the full pipeline described
// by spec.md §2's data flow: resolve window (B) → parse+filter (C/D) →
// cleanup (E) → format (F) → correct+diff (G/H) → write output, emitting a
// ProgressEvent at every stage boundary.
func NewDefaultDriver(deps Deps) Driver {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return func(ctx context.Context, cfg model.RuntimeConfig, jobID model.JobID, emit func(model.ProgressEvent)) (model.RunOutcome, error) {
		begin := func(stage model.StageName) func() {
			emit(model.ProgressEvent{Kind: model.ProgressStageBegin, Stage: stage})
			timer := pipeline.StageTimer()
			return func() {
				emit(model.ProgressEvent{Kind: model.ProgressStageEnd, Stage: stage, Message: timer().String()})
			}
		}

		end := begin(model.StageResolveWindow)
		window, preset, err := resolveWindow(cfg, deps.Presets, now())
		end()
		if err != nil {
			return model.RunOutcome{}, err
		}

		outputPath := derivedOutputPath(cfg, preset, window)
		outcome := model.RunOutcome{OutputPath: outputPath, Window: window}

		if cfg.DryRun {
			emit(model.ProgressEvent{Kind: model.ProgressInfo, Message: fmt.Sprintf("dry run: resolved window %s - %s", window.Start, window.End)})
			return outcome, nil
		}

		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		raw, err := os.ReadFile(cfg.InputPath)
		if err != nil {
			return outcome, rerr.IO(cfg.InputPath, err)
		}

		parseOpts := logparser.Options{}
		if preset.Timezone != "" {
			if loc, err := time.LoadLocation(preset.Timezone); err == nil {
				parseOpts.SourceLocation = loc
			}
		}
		end = begin(model.StageParse)
		events := pipeline.ParseAndFilter(raw, parseOpts, window)
		end()

		if err := pipeline.ValidateNonEmpty(events, window); err != nil {
			return outcome, err
		}

		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		end = begin(model.StageCleanup)
		events = pipeline.Clean(events, cfg.CleanupEnabled)
		end()

		end = begin(model.StageFormat)
		text := pipeline.Format(events, cfg.FormatDialogueEnabled)
		end()

		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		llmOpts := pipeline.LLMOptions{
			Enabled:       cfg.LLMEnabled,
			MaxChunkChars: 0, // Chunk() applies its own default budget
			Retry:         retry.DefaultConfig,
			ShowDiff:      cfg.ShowDiff,
			KeepOriginal:  cfg.KeepOriginalOutput,
		}
		var apiKey string
		if cfg.LLMEnabled {
			if cfg.CredentialHandle.IsSet() {
				var err error
				apiKey, err = deps.Secrets.Get(cfg.CredentialHandle)
				if err != nil {
					emit(model.ProgressEvent{Kind: model.ProgressWarning, Message: err.Error(), ErrorKind: string(rerr.KindSecret)})
				} else {
					llmOpts.Client = &llmcorrect.Client{APIKey: apiKey, Model: cfg.Model, FreeModelsOnly: cfg.FreeModelsOnly}
				}
			} else {
				emit(model.ProgressEvent{Kind: model.ProgressWarning, Message: "llm enabled but no credential configured: skipping correction"})
			}
		}

		end = begin(model.StageLLM)
		llmResult := pipeline.CorrectAndDiff(ctx, text, llmOpts)
		end()
		for _, w := range llmResult.Warnings {
			msg := w
			if apiKey != "" {
				msg = redact.String(msg, apiKey)
			}
			emit(model.ProgressEvent{Kind: model.ProgressWarning, Message: msg, ErrorKind: string(rerr.KindLLM)})
		}
		if llmResult.UnifiedDiff != "" {
			emit(model.ProgressEvent{Kind: model.ProgressDiff, UnifiedDiff: llmResult.UnifiedDiff})
		}

		outcome.LLMRan = !llmResult.Skipped
		outcome.WarningCount = len(llmResult.Warnings)

		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		end = begin(model.StageWrite)
		if err := writeOutputs(outputPath, llmResult); err != nil {
			end()
			return outcome, err
		}
		end()

		if llmResult.UnifiedDiff != "" || len(llmResult.Warnings) > 0 {
			reportPath := report.SiblingPath(outputPath)
			if err := report.Write(reportPath, report.TechnicalReport{
				UnifiedDiff: llmResult.UnifiedDiff,
				Warnings:    llmResult.Warnings,
			}); err != nil {
				emit(model.ProgressEvent{Kind: model.ProgressWarning, Message: "technical report not written: " + err.Error()})
			}
		}

		return outcome, nil
	}
}

func resolveWindow(cfg model.RuntimeConfig, presets []model.Preset, now time.Time) (model.EventWindow, model.Preset, error) {
	if cfg.ExplicitStart != nil && cfg.ExplicitEnd != nil {
		w, err := eventwindow.ResolveExplicit(*cfg.ExplicitStart, *cfg.ExplicitEnd)
		return w, model.Preset{}, err
	}

	preset, err := config.FindPreset(presets, cfg.ActivePreset)
	if err != nil {
		return model.EventWindow{}, model.Preset{}, rerr.Wrap(rerr.KindInvalidWindow, "active preset does not resolve", err)
	}
	w, err := eventwindow.Resolve(preset, cfg.WeeksAgo, cfg.Duration, now)
	return w, preset, err
}

func derivedOutputPath(cfg model.RuntimeConfig, preset model.Preset, window model.EventWindow) string {
	if cfg.OutputTarget == model.OutputTargetFile && cfg.OutputFileOverride != "" {
		return cfg.OutputFileOverride
	}

	prefix := preset.FilePrefix
	if prefix == "" {
		prefix = "convocation"
	}

	// spec.md §6: the filename date is the window-start date in local
	// timezone, not UTC. Without a preset (explicit --start/--end) fall
	// back to the process's local timezone.
	loc := time.Local
	if preset.Timezone != "" {
		if l, err := time.LoadLocation(preset.Timezone); err == nil {
			loc = l
		}
	}
	name := fmt.Sprintf("%s-%s.txt", prefix, window.Start.In(loc).Format("010206"))

	dir := cfg.OutputDirectoryOverride
	if dir == "" {
		dir = environment.WorkingDirOverride()
	}
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, name)
}

func writeOutputs(outputPath string, result pipeline.LLMResult) error {
	if _, err := os.Stat(filepath.Dir(outputPath)); err != nil {
		return rerr.IO(outputPath, err)
	}
	if err := os.WriteFile(outputPath, []byte(result.FinalText), 0o644); err != nil {
		return rerr.IO(outputPath, err)
	}

	unedited := uneditedPath(outputPath)
	if result.WriteUnedited && result.UneditedText != "" {
		if err := os.WriteFile(unedited, []byte(result.UneditedText), 0o644); err != nil {
			return rerr.IO(unedited, err)
		}
	} else {
		os.Remove(unedited)
	}
	return nil
}

func uneditedPath(outputPath string) string {
	ext := filepath.Ext(outputPath)
	base := outputPath[:len(outputPath)-len(ext)]
	return base + "_unedited" + ext
}
