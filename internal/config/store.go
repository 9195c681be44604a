package config

import (
	"os"
	"path/filepath"

	"github.com/aquilaworks/convocations/internal/model"
	"github.com/aquilaworks/convocations/internal/rerr"
	"github.com/google/renameio/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/viper"
)

// Store loads, sanitizes, and atomically persists the configuration
// document at Path (spec.md §6: "Writes are atomic").
type Store struct {
	// Path is the current-format TOML config file.
	Path string
	// LegacyJSONPath is the old-format file migrated from when Path does
	// not yet exist (spec.md §6: "the legacy file is left in place").
	LegacyJSONPath string
}

// Load reads the document at s.Path (migrating from s.LegacyJSONPath if
// s.Path is absent), sanitizes it, and returns the validated RuntimeConfig,
// presets, and any warnings accumulated along the way.
func (s Store) Load() (model.RuntimeConfig, []model.Preset, []Warning, error) {
	doc, loadWarnings, err := s.loadDocument()
	if err != nil {
		return model.RuntimeConfig{}, nil, nil, err
	}
	cfg, presets, sanitizeWarnings := Sanitize(doc)
	return cfg, presets, append(loadWarnings, sanitizeWarnings...), nil
}

func (s Store) loadDocument() (Document, []Warning, error) {
	if _, err := os.Stat(s.Path); err == nil {
		v := viper.New()
		v.SetConfigFile(s.Path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return Default(), []Warning{{"config file unreadable: using defaults"}}, nil
		}
		var doc Document
		if err := v.Unmarshal(&doc); err != nil {
			return Default(), []Warning{{"config file malformed: using defaults"}}, nil
		}
		return doc, nil, nil
	} else if !os.IsNotExist(err) {
		return Document{}, nil, rerr.IO(s.Path, err)
	}

	if s.LegacyJSONPath != "" {
		if data, err := os.ReadFile(s.LegacyJSONPath); err == nil {
			var doc Document
			if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &doc); err == nil {
				return doc, []Warning{{"migrated legacy JSON configuration"}}, nil
			}
			return Default(), []Warning{{"legacy JSON configuration unreadable: using defaults"}}, nil
		}
	}

	return Default(), nil, nil
}

// Save converts cfg/presets back into a Document and writes it atomically
// to s.Path (write-to-temp, fsync, rename via renameio, per spec.md §5).
func (s Store) Save(cfg model.RuntimeConfig, presets []model.Preset) error {
	doc := ToDocument(cfg, presets)
	v := viper.New()
	v.SetConfigType("toml")
	flat := map[string]any{
		"schema_version": doc.SchemaVersion,
		"runtime":        doc.Runtime,
		"ui":             doc.UI,
		"presets":        doc.Presets,
	}
	for k, val := range flat {
		v.Set(k, val)
	}

	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return rerr.IO(s.Path, err)
	}

	scratch, err := os.CreateTemp(filepath.Dir(s.Path), ".convocations-config-*.toml")
	if err != nil {
		return rerr.IO(s.Path, err)
	}
	scratchPath := scratch.Name()
	scratch.Close()
	defer os.Remove(scratchPath)

	if err := v.WriteConfigAs(scratchPath); err != nil {
		return rerr.IO(s.Path, err)
	}
	data, err := os.ReadFile(scratchPath)
	if err != nil {
		return rerr.IO(s.Path, err)
	}
	// Atomic write-to-temp + fsync + rename, per spec.md §5 "Shared
	// resources".
	if err := renameio.WriteFile(s.Path, data, 0o600); err != nil {
		return rerr.IO(s.Path, err)
	}
	return nil
}

// AddPreset appends a new preset, rejecting a duplicate name.
func AddPreset(presets []model.Preset, p model.Preset) ([]model.Preset, error) {
	for _, existing := range presets {
		if existing.Name == p.Name {
			return presets, rerr.New(rerr.KindArgument, "preset "+p.Name+" already exists")
		}
	}
	return append(presets, p), nil
}

// UpdatePreset replaces the preset named p.Name, rejecting edits that strip
// the builtin flag from a builtin preset.
func UpdatePreset(presets []model.Preset, p model.Preset) ([]model.Preset, error) {
	for i, existing := range presets {
		if existing.Name == p.Name {
			if existing.Builtin && !p.Builtin {
				return presets, rerr.New(rerr.KindArgument, "cannot strip builtin flag from preset "+p.Name)
			}
			out := append([]model.Preset(nil), presets...)
			out[i] = p
			return out, nil
		}
	}
	return presets, rerr.New(rerr.KindArgument, "preset "+p.Name+" does not exist")
}

// DeletePreset removes the preset named name, rejecting deletion of any
// builtin (spec.md §3: "deleting a builtin is rejected").
func DeletePreset(presets []model.Preset, name string) ([]model.Preset, error) {
	out := make([]model.Preset, 0, len(presets))
	found := false
	for _, p := range presets {
		if p.Name == name {
			found = true
			if p.Builtin {
				return presets, rerr.New(rerr.KindArgument, "cannot delete builtin preset "+name)
			}
			continue
		}
		out = append(out, p)
	}
	if !found {
		return presets, rerr.New(rerr.KindArgument, "preset "+name+" does not exist")
	}
	return out, nil
}

// FindPreset returns the preset named name.
func FindPreset(presets []model.Preset, name string) (model.Preset, error) {
	for _, p := range presets {
		if p.Name == name {
			return p, nil
		}
	}
	return model.Preset{}, rerr.New(rerr.KindArgument, "preset "+name+" does not exist")
}
