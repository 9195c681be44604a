package config

import "github.com/aquilaworks/convocations/internal/model"

// CurrentSchemaVersion is the schema_version this build understands. A
// mismatch in a loaded document triggers a full reset to defaults (spec.md
// §4.J).
const CurrentSchemaVersion = 1

// Builtins returns the four built-in presets that must always survive
// sanitization (spec.md §3: "Four builtins are always present after
// sanitization; deleting a builtin is rejected."). rsm7's numbers are the
// ones spec.md §8 scenario 1 and 2 exercise directly.
func Builtins() []model.Preset {
	return []model.Preset{
		{
			Name:            "rsm7",
			Weekday:         6, // Saturday
			Timezone:        "America/New_York",
			StartHour:       22,
			StartMinute:     0,
			DurationMinutes: 145,
			FilePrefix:      "rsm7",
			DefaultWeeksAgo: 0,
			Builtin:         true,
		},
		{
			Name:            "rsm8",
			Weekday:         6, // Saturday
			Timezone:        "America/New_York",
			StartHour:       20,
			StartMinute:     0,
			DurationMinutes: 180,
			FilePrefix:      "rsm8",
			DefaultWeeksAgo: 0,
			Builtin:         true,
		},
		{
			Name:            "tp6",
			Weekday:         2, // Tuesday
			Timezone:        "America/New_York",
			StartHour:       20,
			StartMinute:     0,
			DurationMinutes: 120,
			FilePrefix:      "tp6",
			DefaultWeeksAgo: 0,
			Builtin:         true,
		},
		{
			Name:            "sunday-social",
			Weekday:         0, // Sunday
			Timezone:        "America/New_York",
			StartHour:       19,
			StartMinute:     0,
			DurationMinutes: 120,
			FilePrefix:      "sunday",
			DefaultWeeksAgo: 0,
			Builtin:         true,
		},
	}
}

func builtinNames() map[string]bool {
	names := make(map[string]bool)
	for _, p := range Builtins() {
		names[p.Name] = true
	}
	return names
}
