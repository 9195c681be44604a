// Package config implements the configuration sanitizer (spec.md §4.J): a
// pure function from a raw on-disk Document to a validated RuntimeConfig
// plus preset list plus warnings, and the atomic load/save/CRUD plumbing
// around it.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aquilaworks/convocations/internal/model"
)

// Warning is a single sanitizer diagnostic: the document was adjusted, but
// the run proceeds rather than failing.
type Warning struct {
	Message string
}

// Sanitize is the pure function spec.md §4.J names: it never reads or
// writes the filesystem, never mutates doc, and is idempotent —
// Sanitize(Sanitize(doc)) produces the same RuntimeConfig/presets and no
// new warnings.
func Sanitize(doc Document) (model.RuntimeConfig, []model.Preset, []Warning) {
	if doc.SchemaVersion != CurrentSchemaVersion {
		return sanitizeDefaults("schema_version mismatch: reset to defaults")
	}

	var warnings []Warning

	presets, presetWarnings := sanitizePresets(doc.Presets)
	warnings = append(warnings, presetWarnings...)

	activePreset := doc.Runtime.ActivePreset
	if !hasPresetNamed(presets, activePreset) {
		activePreset = presets[0].Name
		warnings = append(warnings, Warning{fmt.Sprintf("unknown active_preset %q: reset to %q", doc.Runtime.ActivePreset, activePreset)})
	}

	cfg := model.RuntimeConfig{
		InputPath:             doc.Runtime.InputPath,
		ActivePreset:          activePreset,
		WeeksAgo:              doc.Runtime.WeeksAgo,
		CleanupEnabled:        doc.Runtime.CleanupEnabled,
		FormatDialogueEnabled: doc.Runtime.FormatDialogueEnabled,
		LLMEnabled:            doc.Runtime.LLMEnabled,
		KeepOriginalOutput:    doc.Runtime.KeepOriginalOutput,
		ShowDiff:              doc.Runtime.ShowDiff,
		DryRun:                doc.Runtime.DryRun,
		Model:                 doc.Runtime.OpenRouterModel,
		FreeModelsOnly:        doc.Runtime.FreeModelsOnly,
	}

	if doc.Runtime.WeeksAgo < 0 {
		cfg.WeeksAgo = 0
		warnings = append(warnings, Warning{"weeks_ago was negative: reset to 0"})
	}

	dur := doc.Runtime.DurationOverride
	if dur.Enabled {
		if dur.Hours >= 1.0 {
			cfg.Duration = model.DurationOverride{Enabled: true, Hours: dur.Hours}
		} else {
			warnings = append(warnings, Warning{fmt.Sprintf("duration_override.hours %.2f is < 1.0: override disabled", dur.Hours)})
		}
	}

	target := model.OutputTarget(doc.Runtime.OutputTarget)
	switch target {
	case model.OutputTargetFile, model.OutputTargetDirectory:
		cfg.OutputTarget = target
	default:
		cfg.OutputTarget = model.OutputTargetDirectory
		if doc.Runtime.OutputTarget != "" {
			warnings = append(warnings, Warning{fmt.Sprintf("unknown output_target %q: reset to %q", doc.Runtime.OutputTarget, model.OutputTargetDirectory)})
		}
	}
	cfg.OutputFileOverride = doc.Runtime.OutputFileOverride
	cfg.OutputDirectoryOverride = doc.Runtime.OutputDirectoryOverride
	if cfg.OutputTarget == model.OutputTargetFile && cfg.OutputFileOverride != "" {
		if !filepath.IsAbs(cfg.OutputFileOverride) && filepath.Dir(cfg.OutputFileOverride) == "." {
			// Relative, bare filename: parent is the working directory,
			// always assumed to exist. Nothing to warn about here; a
			// missing explicit parent directory is caught by the runtime
			// at write time (IoError), not by the sanitizer, since the
			// sanitizer must not touch the filesystem.
		}
	}

	cfg.CredentialHandle = sanitizeSecretHandle(doc.Runtime.OpenRouterAPIKey)

	return cfg, presets, warnings
}

func sanitizeDefaults(reason string) (model.RuntimeConfig, []model.Preset, []Warning) {
	d := Default()
	cfg, presets, _ := sanitizeNoSchemaCheck(d)
	return cfg, presets, []Warning{{reason}}
}

// sanitizeNoSchemaCheck runs the same logic as Sanitize but without the
// schema_version gate, used only to sanitize the known-good Default()
// document (avoids infinite recursion).
func sanitizeNoSchemaCheck(doc Document) (model.RuntimeConfig, []model.Preset, []Warning) {
	doc.SchemaVersion = CurrentSchemaVersion
	return Sanitize(doc)
}

func sanitizePresets(raw []model.Preset) ([]model.Preset, []Warning) {
	var warnings []Warning
	seen := make(map[string]bool)
	out := make([]model.Preset, 0, len(raw)+len(Builtins()))

	for _, p := range raw {
		if seen[p.Name] {
			warnings = append(warnings, Warning{fmt.Sprintf("duplicate preset name %q: later occurrence dropped", p.Name)})
			continue
		}
		seen[p.Name] = true
		out = append(out, p)
	}

	for _, b := range Builtins() {
		if !seen[b.Name] {
			warnings = append(warnings, Warning{fmt.Sprintf("missing builtin preset %q: restored", b.Name)})
			out = append(out, b)
			seen[b.Name] = true
		}
	}

	return out, warnings
}

func hasPresetNamed(presets []model.Preset, name string) bool {
	if name == "" {
		return false
	}
	for _, p := range presets {
		if p.Name == name {
			return true
		}
	}
	return false
}

func sanitizeSecretHandle(raw RawSecretHandle) model.SecretHandle {
	switch model.SecretBackend(strings.ToLower(raw.Backend)) {
	case model.SecretBackendKeyring:
		return model.SecretHandle{Backend: model.SecretBackendKeyring, Account: raw.Account}
	case model.SecretBackendLocalEncrypted:
		return model.SecretHandle{Backend: model.SecretBackendLocalEncrypted, Nonce: raw.Nonce, Ciphertext: raw.Ciphertext}
	default:
		return model.SecretHandle{}
	}
}
