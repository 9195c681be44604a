package jobruntime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aquilaworks/convocations/internal/logging"
	"github.com/aquilaworks/convocations/internal/model"
	"github.com/aquilaworks/convocations/internal/rerr"
)

// ErrBusy is returned by Submit when a job is already active (spec.md
// §4.I: "a second submit while one is active fails fast with BusyError; no
// queueing").
var ErrBusy = errors.New("a job is already running")

// Driver runs the actual pipeline for one job. It must call emit for every
// ProgressEvent it wants observers to see (the runtime itself emits
// `queued` before calling Driver and the terminal event after it returns).
// It must honor ctx cancellation at stage boundaries (spec.md §4.I). The
// returned RunOutcome is retained even on error so a failure recorded to
// history can still carry the window it failed within.
type Driver func(ctx context.Context, cfg model.RuntimeConfig, jobID model.JobID, emit func(model.ProgressEvent)) (model.RunOutcome, error)

// Runtime is the singleton job runtime. The zero value is not usable; use
// New.
type Runtime struct {
	driver Driver

	mu      sync.Mutex
	current *activeJob
}

type activeJob struct {
	id        model.JobID
	hub       *hub
	cancel    context.CancelFunc
	startedAt time.Time
	status    model.JobStatus
	outcome   model.RunOutcome
}

// New creates a Runtime that executes jobs via driver.
func New(driver Driver) *Runtime {
	return &Runtime{driver: driver}
}

// Submit starts a new job if none is active, returning its JobID
// immediately; the caller returns before any stage runs (spec.md §4.I:
// "the caller of submit returns immediately").
func (r *Runtime) Submit(cfg model.RuntimeConfig) (model.JobID, error) {
	r.mu.Lock()
	if r.current != nil && r.current.status == model.JobRunning {
		r.mu.Unlock()
		return model.JobID{}, ErrBusy
	}

	id := model.NewJobID()
	ctx, cancel := context.WithCancel(context.Background())
	job := &activeJob{
		id:        id,
		hub:       newHub(),
		cancel:    cancel,
		startedAt: time.Now(),
		status:    model.JobRunning,
	}
	r.current = job
	r.mu.Unlock()

	job.hub.publish(model.ProgressEvent{
		JobID:     id,
		Kind:      model.ProgressQueued,
		ElapsedMs: 0,
		Sequence:  0,
	})

	go r.run(ctx, job, cfg)

	return id, nil
}

func (r *Runtime) run(ctx context.Context, job *activeJob, cfg model.RuntimeConfig) {
	logger := logging.ForJob(job.id.String())
	var seq uint64 = 1

	emit := func(ev model.ProgressEvent) {
		ev.JobID = job.id
		ev.ElapsedMs = time.Since(job.startedAt).Milliseconds()
		ev.Sequence = seq
		seq++
		job.hub.publish(ev)
	}

	outcome, err := r.driver(ctx, cfg, job.id, emit)

	r.mu.Lock()
	job.outcome = outcome
	if errors.Is(ctx.Err(), context.Canceled) {
		job.status = model.JobFailed
		emit(model.ProgressEvent{Kind: model.ProgressFailed, ErrorKind: "cancelled", Message: "job cancelled"})
		logger.Info().Msg("job cancelled")
	} else if err != nil {
		job.status = model.JobFailed
		emit(model.ProgressEvent{Kind: model.ProgressFailed, ErrorKind: errorKind(err), Message: err.Error()})
		logger.Error().Err(err).Msg("job failed")
	} else {
		job.status = model.JobCompleted
		emit(model.ProgressEvent{Kind: model.ProgressCompleted, OutputPath: outcome.OutputPath})
		logger.Info().Str("output_path", outcome.OutputPath).Msg("job completed")
	}
	job.hub.close()
	r.mu.Unlock()
}

// Observe returns the event stream for jobID, replaying buffered history.
// The bool result is false if jobID does not match the current or most
// recently run job.
func (r *Runtime) Observe(jobID model.JobID) (<-chan model.ProgressEvent, func(), bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil || r.current.id != jobID {
		return nil, nil, false
	}
	ch, unsub := r.current.hub.subscribe()
	return ch, unsub, true
}

// Cancel requests cancellation of jobID. The runtime honors this at the
// next stage boundary (spec.md §4.I), not mid-I/O except for the LLM
// stage's in-flight HTTP request.
func (r *Runtime) Cancel(jobID model.JobID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil || r.current.id != jobID || r.current.status != model.JobRunning {
		return false
	}
	r.current.cancel()
	return true
}

// DroppedEvents returns the count of progress events dropped for jobID due
// to a full subscriber buffer (spec.md §5's required diagnostics
// surfacing).
func (r *Runtime) DroppedEvents(jobID model.JobID) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil || r.current.id != jobID {
		return 0
	}
	return r.current.hub.droppedCount()
}

// Status returns the current status of jobID, if it is the active (or most
// recently finished) job.
func (r *Runtime) Status(jobID model.JobID) (model.JobStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil || r.current.id != jobID {
		return "", false
	}
	return r.current.status, true
}

// Outcome returns the RunOutcome the driver reported for jobID, if it is
// the active (or most recently finished) job. It is only meaningful after
// the job has reached a terminal ProgressEvent.
func (r *Runtime) Outcome(jobID model.JobID) (model.RunOutcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil || r.current.id != jobID {
		return model.RunOutcome{}, false
	}
	return r.current.outcome, true
}

func errorKind(err error) string {
	var e *rerr.Error
	if errors.As(err, &e) {
		return string(e.Kind)
	}
	return string(rerr.KindInternal)
}
