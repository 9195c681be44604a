package config

import "github.com/aquilaworks/convocations/internal/model"

// RawDuration mirrors model.DurationOverride in the on-disk TOML shape.
type RawDuration struct {
	Enabled bool    `mapstructure:"enabled" toml:"enabled"`
	Hours   float64 `mapstructure:"hours" toml:"hours"`
}

// RawSecretHandle mirrors model.SecretHandle in the on-disk TOML shape
// (spec.md §6's `[runtime.openrouter_api_key]` sub-table).
type RawSecretHandle struct {
	Backend    string `mapstructure:"backend" toml:"backend"`
	Account    string `mapstructure:"account,omitempty" toml:"account,omitempty"`
	Nonce      []byte `mapstructure:"nonce,omitempty" toml:"nonce,omitempty"`
	Ciphertext []byte `mapstructure:"ciphertext,omitempty" toml:"ciphertext,omitempty"`
}

// RawRuntime is the `[runtime]` table.
type RawRuntime struct {
	InputPath    string `mapstructure:"input_path" toml:"input_path"`
	ActivePreset string `mapstructure:"active_preset" toml:"active_preset"`
	WeeksAgo     int    `mapstructure:"weeks_ago" toml:"weeks_ago"`

	DurationOverride RawDuration `mapstructure:"duration_override" toml:"duration_override"`

	CleanupEnabled        bool `mapstructure:"cleanup_enabled" toml:"cleanup_enabled"`
	FormatDialogueEnabled bool `mapstructure:"format_dialogue_enabled" toml:"format_dialogue_enabled"`
	LLMEnabled            bool `mapstructure:"llm_enabled" toml:"llm_enabled"`
	KeepOriginalOutput    bool `mapstructure:"keep_original_output" toml:"keep_original_output"`
	ShowDiff              bool `mapstructure:"show_diff" toml:"show_diff"`
	DryRun                bool `mapstructure:"dry_run" toml:"dry_run"`

	OutputTarget            string `mapstructure:"output_target" toml:"output_target"`
	OutputFileOverride      string `mapstructure:"output_file_override" toml:"output_file_override"`
	OutputDirectoryOverride string `mapstructure:"output_directory_override" toml:"output_directory_override"`

	OpenRouterModel  string          `mapstructure:"openrouter_model" toml:"openrouter_model"`
	FreeModelsOnly   bool            `mapstructure:"free_models_only" toml:"free_models_only"`
	OpenRouterAPIKey RawSecretHandle `mapstructure:"openrouter_api_key" toml:"openrouter_api_key"`
}

// RawUI is the presentational `[ui]` table: opaque to the core.
type RawUI struct {
	Theme           string `mapstructure:"theme" toml:"theme"`
	ShowTimestamps  bool   `mapstructure:"show_timestamps" toml:"show_timestamps"`
}

// Document is the full on-disk configuration shape (spec.md §6).
type Document struct {
	SchemaVersion int            `mapstructure:"schema_version" toml:"schema_version"`
	Runtime       RawRuntime     `mapstructure:"runtime" toml:"runtime"`
	UI            RawUI          `mapstructure:"ui" toml:"ui"`
	Presets       []model.Preset `mapstructure:"presets" toml:"presets"`
}

// ToDocument re-serializes a sanitized RuntimeConfig/preset set back into
// the on-disk Document shape, used both to persist a run's effective
// configuration and to test Sanitize's idempotency (Sanitize(ToDocument(
// Sanitize(doc))) must equal Sanitize(doc) with no new warnings).
func ToDocument(cfg model.RuntimeConfig, presets []model.Preset) Document {
	return Document{
		SchemaVersion: CurrentSchemaVersion,
		Runtime: RawRuntime{
			InputPath:             cfg.InputPath,
			ActivePreset:          cfg.ActivePreset,
			WeeksAgo:              cfg.WeeksAgo,
			DurationOverride:      RawDuration{Enabled: cfg.Duration.Enabled, Hours: cfg.Duration.Hours},
			CleanupEnabled:        cfg.CleanupEnabled,
			FormatDialogueEnabled: cfg.FormatDialogueEnabled,
			LLMEnabled:            cfg.LLMEnabled,
			KeepOriginalOutput:    cfg.KeepOriginalOutput,
			ShowDiff:              cfg.ShowDiff,
			DryRun:                cfg.DryRun,
			OutputTarget:          string(cfg.OutputTarget),
			OutputFileOverride:    cfg.OutputFileOverride,
			OutputDirectoryOverride: cfg.OutputDirectoryOverride,
			OpenRouterModel:       cfg.Model,
			FreeModelsOnly:        cfg.FreeModelsOnly,
			OpenRouterAPIKey: RawSecretHandle{
				Backend:    string(cfg.CredentialHandle.Backend),
				Account:    cfg.CredentialHandle.Account,
				Nonce:      cfg.CredentialHandle.Nonce,
				Ciphertext: cfg.CredentialHandle.Ciphertext,
			},
		},
		Presets: presets,
	}
}

// Default returns a fresh Document seeded with the four builtin presets and
// sensible runtime defaults.
func Default() Document {
	return Document{
		SchemaVersion: CurrentSchemaVersion,
		Runtime: RawRuntime{
			ActivePreset:          Builtins()[0].Name,
			CleanupEnabled:        true,
			FormatDialogueEnabled: true,
			OutputTarget:          string(model.OutputTargetDirectory),
		},
		Presets: Builtins(),
	}
}
