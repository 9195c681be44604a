// Package model defines the core data types shared across every pipeline
// stage: Preset, RuntimeConfig, EventWindow, LogEvent, and the progress/job
// state machine types. See spec.md §3.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Weekday is an alias of time.Weekday (0 = Sunday through 6 = Saturday), so
// presets use the standard library's weekday values directly.
type Weekday = time.Weekday

// Preset is a named, reusable event-window template (spec.md §3).
type Preset struct {
	Name            string   `mapstructure:"name" toml:"name"`
	Weekday         Weekday  `mapstructure:"weekday" toml:"weekday"`
	Timezone        string   `mapstructure:"timezone" toml:"timezone"`
	StartHour       int      `mapstructure:"start_hour" toml:"start_hour"`
	StartMinute     int      `mapstructure:"start_minute" toml:"start_minute"`
	DurationMinutes int      `mapstructure:"duration_minutes" toml:"duration_minutes"`
	FilePrefix      string   `mapstructure:"file_prefix" toml:"file_prefix"`
	DefaultWeeksAgo int      `mapstructure:"default_weeks_ago" toml:"default_weeks_ago"`
	Builtin         bool     `mapstructure:"builtin" toml:"builtin"`
}

// Channel enumerates the recognized log-line channels (spec.md §3/§4.C).
type Channel string

const (
	ChannelSay   Channel = "say"
	ChannelEmote Channel = "emote"
	ChannelOther Channel = "other"
)

// LogEvent is a single logical chat message (spec.md §3).
type LogEvent struct {
	Timestamp time.Time
	Channel   Channel
	Speaker   string
	Body      string
}

// EventWindow is a closed-open UTC interval: [Start, End).
type EventWindow struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether the window satisfies End > Start (spec.md §3).
func (w EventWindow) Valid() bool {
	return w.End.After(w.Start)
}

// Contains reports whether t falls within [Start, End).
func (w EventWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// DurationOverride captures the optional "--1h"/"--2h"/"--duration-hours"
// CLI group (spec.md §3).
type DurationOverride struct {
	Enabled bool
	Hours   float64
}

// OutputTarget selects where the runtime writes its primary output.
type OutputTarget string

const (
	OutputTargetFile      OutputTarget = "file"
	OutputTargetDirectory OutputTarget = "directory"
)

// SecretHandle is an opaque reference to a credential resolvable via the
// secret store. It never carries plaintext (spec.md §3/§4.A).
type SecretHandle struct {
	Backend SecretBackend `mapstructure:"backend" toml:"backend"`
	// Account is used by the keyring backend.
	Account string `mapstructure:"account,omitempty" toml:"account,omitempty"`
	// Nonce and Ciphertext are used by the local-encrypted backend.
	Nonce      []byte `mapstructure:"nonce,omitempty" toml:"nonce,omitempty"`
	Ciphertext []byte `mapstructure:"ciphertext,omitempty" toml:"ciphertext,omitempty"`
}

// SecretBackend tags which SecretHandle variant is in play.
type SecretBackend string

const (
	SecretBackendKeyring        SecretBackend = "keyring"
	SecretBackendLocalEncrypted SecretBackend = "local-encrypted"
	// SecretBackendNone marks the absence of a configured credential.
	SecretBackendNone SecretBackend = ""
)

// IsSet reports whether h names an actual credential.
func (h SecretHandle) IsSet() bool {
	return h.Backend != SecretBackendNone
}

// RuntimeConfig is the sanitized set of knobs driving a single run
// (spec.md §3).
type RuntimeConfig struct {
	InputPath string

	ActivePreset string
	WeeksAgo     int
	Duration     DurationOverride

	// ExplicitStart/ExplicitEnd bypass preset resolution entirely when set.
	ExplicitStart *time.Time
	ExplicitEnd   *time.Time

	CleanupEnabled       bool
	FormatDialogueEnabled bool
	LLMEnabled           bool
	KeepOriginalOutput   bool
	ShowDiff             bool
	DryRun               bool

	OutputTarget           OutputTarget
	OutputFileOverride     string
	OutputDirectoryOverride string

	Model          string
	FreeModelsOnly bool
	CredentialHandle SecretHandle
}

// JobStatus enumerates the states of the job state machine (spec.md §3).
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// StageName identifies a pipeline stage for progress reporting.
type StageName string

const (
	StageResolveWindow StageName = "resolve_window"
	StageParse         StageName = "parse"
	StageReassemble    StageName = "reassemble"
	StageCleanup       StageName = "cleanup"
	StageFormat        StageName = "format"
	StageLLM           StageName = "llm"
	StageDiff          StageName = "diff"
	StageWrite         StageName = "write"
)

// JobID identifies a single job run.
type JobID = uuid.UUID

// NewJobID mints a fresh random job identifier.
func NewJobID() JobID { return uuid.New() }

// ProgressKind enumerates the ProgressEvent variants (spec.md §3).
type ProgressKind string

const (
	ProgressQueued     ProgressKind = "queued"
	ProgressStageBegin ProgressKind = "stage-begin"
	ProgressStageEnd   ProgressKind = "stage-end"
	ProgressInfo       ProgressKind = "info"
	ProgressWarning    ProgressKind = "warning"
	ProgressDiff       ProgressKind = "diff"
	ProgressCompleted  ProgressKind = "completed"
	ProgressFailed     ProgressKind = "failed"
)

// RunOutcome carries the per-run facts a Driver learns beyond the bare
// output path — the resolved window and the LLM stage's outcome — so the
// job runtime can expose them for history persistence (spec.md SPEC_FULL
// §3's RunRecord). A Driver that fails before resolving the window returns
// the zero value; a Driver that fails after resolving it should still set
// Window so the failure is recorded with its bounds.
type RunOutcome struct {
	OutputPath   string
	Window       EventWindow
	LLMRan       bool
	WarningCount int
}

// ProgressEvent is one message on a job's observe() stream (spec.md §3).
type ProgressEvent struct {
	JobID        JobID
	Kind         ProgressKind
	ElapsedMs    int64
	Stage        StageName
	Message      string
	UnifiedDiff  string
	OutputPath   string
	ErrorKind    string
	Sequence     uint64
}
