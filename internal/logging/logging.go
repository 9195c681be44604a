// Package logging configures the process-wide zerolog logger. Every stage
// and the job runtime log through this package; the job runtime itself is
// responsible for redacting resolved credentials (internal/redact) out of
// any warning text before it reaches a log line or progress event
// (spec.md §4.A, §5).
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Configure sets the global logger's minimum level and destination. Safe to
// call once at process start; subsequent calls are no-ops so library code
// can call Logger() without worrying about initialization order.
func Configure(w io.Writer, level zerolog.Level) {
	once.Do(func() {
		if w == nil {
			w = os.Stderr
		}
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
	})
}

// Logger returns the process-wide logger, configuring a sensible default
// (info level, stderr) the first time it's called without a prior
// Configure.
func Logger() zerolog.Logger {
	Configure(os.Stderr, zerolog.InfoLevel)
	return logger
}

// ForJob returns a child logger with job_id bound, used by the job runtime
// and every stage it drives so log lines can be correlated to a single run.
func ForJob(jobID string) zerolog.Logger {
	return Logger().With().Str("job_id", jobID).Logger()
}
