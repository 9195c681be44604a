// Package rerr defines the tagged error kinds produced by the convocations
// core, per the error handling design: a small set of recoverable/fatal
// kinds that every stage and the job runtime agree on.
package rerr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for callers that need to branch on failure type
// (CLI exit codes, ProgressEvent.Failed, warning-vs-fatal policy).
type Kind string

const (
	KindArgument     Kind = "argument"
	KindConfig       Kind = "config"
	KindInvalidWindow Kind = "invalid_window"
	KindIO           Kind = "io"
	KindEmptyWindow  Kind = "empty_window"
	KindLLM          Kind = "llm"
	KindSecret       Kind = "secret"
	KindCancelled    Kind = "cancelled"
	KindInternal     Kind = "internal"
)

// LLMPhase further classifies a KindLLM error, per spec §4.G/§7.
type LLMPhase string

const (
	LLMPhaseAuth    LLMPhase = "auth"
	LLMPhaseTimeout LLMPhase = "timeout"
	LLMPhaseNetwork LLMPhase = "network"
	LLMPhaseServer  LLMPhase = "server"
)

// Error is the error type returned by every core component. It carries a
// Kind for programmatic branching, an optional Path (IoError) and Phase
// (LlmError), a human message, and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Phase   LLMPhase
	Path    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path=%s)", e.Kind, e.Message, e.Path)
	}
	if e.Phase != "" {
		return fmt.Sprintf("%s[%s]: %s", e.Kind, e.Phase, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates a plain Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// IO creates an IoError with a path, per spec §7.
func IO(path string, cause error) *Error {
	return &Error{Kind: KindIO, Path: path, Message: "I/O failure", Cause: cause}
}

// LLM creates an LlmError with a phase, per spec §7.
func LLM(phase LLMPhase, message string, cause error) *Error {
	return &Error{Kind: KindLLM, Phase: phase, Message: message, Cause: cause}
}

// Internal wraps any unexpected invariant violation. The runtime never
// panics: these become terminal Internal errors instead.
func Internal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: message, Cause: cause}
}

// Of reports whether err is an *Error of the given kind.
func Of(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
