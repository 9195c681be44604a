// Command rconv ingests a roleplay chat-log transcript for a configured
// window, cleans and narrates it, optionally runs it through an LLM
// correction pass, and writes the result to disk (spec.md §1/§6).
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/aquilaworks/convocations/internal/config"
	"github.com/aquilaworks/convocations/internal/environment"
	"github.com/aquilaworks/convocations/internal/history"
	"github.com/aquilaworks/convocations/internal/jobruntime"
	"github.com/aquilaworks/convocations/internal/logging"
	"github.com/aquilaworks/convocations/internal/model"
	"github.com/aquilaworks/convocations/internal/progressui"
	"github.com/aquilaworks/convocations/internal/rerr"
	"github.com/aquilaworks/convocations/internal/secretstore"
)

// Exit codes, per spec.md §6.
const (
	exitSuccess          = 0
	exitUnexpected       = 1
	exitArgumentError    = 2
	exitEmptyOrNotFound  = 3
	exitLLMUnavailable   = 4
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCommand()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return exitCodeFor(err)
	}
	return exitSuccess
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "rconv",
		Short: "Turn a roleplay chat log into narrative-style session text",
		RunE:  runConvert,
	}

	f := root.Flags()
	f.Int("last", 0, "weeks_ago: how many occurrences of the preset's weekday back to resolve")
	f.String("preset", "", "active preset name")
	f.Bool("rsm7", false, "shorthand for the rsm7 builtin preset")
	f.Bool("rsm8", false, "shorthand for the rsm8 builtin preset")
	f.Bool("tp6", false, "shorthand for the tp6 builtin preset")
	f.Bool("1h", false, "1 hour duration override")
	f.Bool("2h", false, "2 hour duration override")
	f.Float64("duration-hours", 0, "explicit duration override in hours")
	f.String("start", "", "explicit window start (RFC3339), bypasses preset resolution")
	f.String("end", "", "explicit window end (RFC3339), bypasses preset resolution")
	f.String("cleanup", "true", "enable the cleanup stage (true/false)")
	f.String("format-dialogue", "true", "enable the dialogue formatter (true/false)")
	f.String("llm", "false", "enable the LLM correction stage (true/false)")
	f.Bool("keep-orig", false, "keep the *_unedited companion file")
	f.Bool("no-diff", false, "suppress the unified diff")
	f.Bool("dry-run", false, "resolve the window and report the output path without running the pipeline")
	f.String("outfile", "", "output file path override")
	f.String("model", "", "OpenRouter model identifier")
	f.Bool("free-models-only", false, "restrict routing to free-tier models")
	f.String("input", "", "input log file path")

	bind(f, "last", "preset", "rsm7", "rsm8", "tp6", "1h", "2h", "duration-hours", "start", "end",
		"cleanup", "format-dialogue", "llm", "keep-orig", "no-diff", "dry-run", "outfile", "model",
		"free-models-only", "input")

	viper.SetEnvPrefix("RCONV")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	root.AddCommand(newPresetCommand(), newSecretCommand(), newHistoryCommand())
	return root
}

func bind(f *pflag.FlagSet, names ...string) {
	for _, name := range names {
		_ = viper.BindPFlag(name, f.Lookup(name))
	}
}

func exitCodeFor(err error) int {
	if err == nil {
		return exitSuccess
	}
	switch {
	case rerr.Of(err, rerr.KindArgument), rerr.Of(err, rerr.KindInvalidWindow):
		return exitArgumentError
	case rerr.Of(err, rerr.KindEmptyWindow):
		return exitEmptyOrNotFound
	case rerr.Of(err, rerr.KindIO):
		return exitEmptyOrNotFound
	case rerr.Of(err, rerr.KindLLM), rerr.Of(err, rerr.KindSecret):
		return exitLLMUnavailable
	default:
		fmt.Fprintln(os.Stderr, err)
		return exitUnexpected
	}
}

func configDir() string {
	if dir := environment.WorkingDirOverride(); dir != "" {
		return dir
	}
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "convocations")
}

func openStore() config.Store {
	dir := configDir()
	return config.Store{
		Path:           filepath.Join(dir, "config.toml"),
		LegacyJSONPath: filepath.Join(dir, "config.json"),
	}
}

func runConvert(cmd *cobra.Command, args []string) error {
	logging.Configure(os.Stderr, zerolog.InfoLevel)
	logger := logging.Logger()

	store := openStore()
	cfg, presets, warnings, err := store.Load()
	if err != nil {
		return err
	}
	for _, w := range warnings {
		logger.Warn().Msg(w.Message)
	}

	if err := applyFlags(&cfg, presets); err != nil {
		return err
	}

	secrets := secretstore.Store{MasterKeyPath: filepath.Join(configDir(), "secret.key")}
	driver := jobruntime.NewDefaultDriver(jobruntime.Deps{Presets: presets, Secrets: secrets, Now: time.Now})
	rt := jobruntime.New(driver)

	startedAt := time.Now()
	jobID, err := rt.Submit(cfg)
	if err != nil {
		return err
	}

	events, unsub, ok := rt.Observe(jobID)
	if !ok {
		return rerr.Internal("job disappeared immediately after submit", nil)
	}
	defer unsub()

	terminal, err := progressui.Run(events, logger)
	if err != nil {
		return err
	}
	if n := rt.DroppedEvents(jobID); n > 0 {
		logger.Warn().Uint64("dropped_events", n).Msg("progress events were dropped for a slow observer")
	}

	status, _ := rt.Status(jobID)
	outcome, _ := rt.Outcome(jobID)
	finishedAt := time.Now()

	if hist, err := history.Open(filepath.Join(configDir(), "history.db")); err == nil {
		defer hist.Close()
		_ = hist.Insert(history.RunRecord{
			JobID:          jobID.String(),
			PresetName:     cfg.ActivePreset,
			WindowStartUTC: outcome.Window.Start,
			WindowEndUTC:   outcome.Window.End,
			OutputPath:     outcome.OutputPath,
			LLMRan:         outcome.LLMRan,
			WarningCount:   outcome.WarningCount,
			FinalStatus:    status,
			StartedAt:      startedAt,
			FinishedAt:     finishedAt,
		})
	}

	if status == model.JobFailed {
		kind := rerr.Kind(terminal.ErrorKind)
		if kind == "" {
			kind = rerr.KindInternal
		}
		msg := terminal.Message
		if msg == "" {
			msg = "job failed"
		}
		return rerr.New(kind, msg)
	}

	return nil
}

func applyFlags(cfg *model.RuntimeConfig, presets []model.Preset) error {
	shorthand := map[string]bool{"rsm7": viper.GetBool("rsm7"), "rsm8": viper.GetBool("rsm8"), "tp6": viper.GetBool("tp6")}
	selected := ""
	count := 0
	for name, on := range shorthand {
		if on {
			selected = name
			count++
		}
	}
	if count > 1 {
		return rerr.New(rerr.KindArgument, "--rsm7, --rsm8, --tp6 are mutually exclusive")
	}
	if selected != "" {
		cfg.ActivePreset = selected
	} else if p := viper.GetString("preset"); p != "" {
		cfg.ActivePreset = p
	}

	if input := viper.GetString("input"); input != "" {
		cfg.InputPath = input
	}
	if cfg.InputPath == "" {
		return rerr.New(rerr.KindArgument, "an input log path is required")
	}

	cfg.WeeksAgo = viper.GetInt("last")

	durFlags := 0
	if viper.GetBool("1h") {
		cfg.Duration = model.DurationOverride{Enabled: true, Hours: 1}
		durFlags++
	}
	if viper.GetBool("2h") {
		cfg.Duration = model.DurationOverride{Enabled: true, Hours: 2}
		durFlags++
	}
	if h := viper.GetFloat64("duration-hours"); h > 0 {
		cfg.Duration = model.DurationOverride{Enabled: true, Hours: h}
		durFlags++
	}
	if durFlags > 1 {
		return rerr.New(rerr.KindArgument, "--1h, --2h, --duration-hours are mutually exclusive")
	}

	start, startSet := viper.GetString("start"), viper.IsSet("start")
	end, endSet := viper.GetString("end"), viper.IsSet("end")
	if startSet != endSet {
		return rerr.New(rerr.KindArgument, "--start and --end must be given together")
	}
	if startSet && endSet {
		if selected != "" || viper.GetString("preset") != "" {
			return rerr.New(rerr.KindArgument, "--start/--end conflicts with preset selection")
		}
		startT, err := time.Parse(time.RFC3339, start)
		if err != nil {
			return rerr.Wrap(rerr.KindArgument, "malformed --start", err)
		}
		endT, err := time.Parse(time.RFC3339, end)
		if err != nil {
			return rerr.Wrap(rerr.KindArgument, "malformed --end", err)
		}
		cfg.ExplicitStart, cfg.ExplicitEnd = &startT, &endT
	}

	cfg.CleanupEnabled = viper.GetBool("cleanup")
	cfg.FormatDialogueEnabled = viper.GetBool("format-dialogue")
	cfg.LLMEnabled = viper.GetBool("llm")
	cfg.KeepOriginalOutput = viper.GetBool("keep-orig")
	cfg.ShowDiff = !viper.GetBool("no-diff")
	cfg.DryRun = viper.GetBool("dry-run")

	if out := viper.GetString("outfile"); out != "" {
		cfg.OutputTarget = model.OutputTargetFile
		cfg.OutputFileOverride = out
	}
	if modelID := viper.GetString("model"); modelID != "" {
		cfg.Model = modelID
	}
	if viper.GetBool("free-models-only") {
		cfg.FreeModelsOnly = true
	}

	return nil
}
