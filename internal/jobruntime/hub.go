// Package jobruntime implements the job runtime (spec.md §4.I): a
// singleton background worker that drives the pipeline stages, streams
// ProgressEvents to observers, and enforces the single-active-job
// invariant.
package jobruntime

import (
	"sync"

	"github.com/aquilaworks/convocations/internal/model"
)

const defaultBufferCap = 1000

// hub fans a single job's ProgressEvents out to every observer, buffering
// the last defaultBufferCap events so a late subscriber still sees
// `queued` and earlier stage-begin/stage-end pairs. Each hub serves one
// job, and the runtime runs one job at a time (spec.md §4.I).
type hub struct {
	mu      sync.Mutex
	buf     []model.ProgressEvent
	clients map[chan model.ProgressEvent]struct{}
	done    bool
	dropped uint64
}

func newHub() *hub {
	return &hub{
		buf:     make([]model.ProgressEvent, 0, defaultBufferCap),
		clients: make(map[chan model.ProgressEvent]struct{}),
	}
}

// publish appends ev to the buffer and fans it out to every current
// subscriber. A subscriber whose channel is full does not block
// publishing; instead the event is counted as dropped for that
// subscriber, per spec.md §5 ("a dropped-events counter must be surfaced
// to the diagnostics view, never silently swallowed").
func (h *hub) publish(ev model.ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done {
		return
	}
	if len(h.buf) >= defaultBufferCap {
		copy(h.buf, h.buf[1:])
		h.buf = h.buf[:len(h.buf)-1]
	}
	h.buf = append(h.buf, ev)

	for ch := range h.clients {
		select {
		case ch <- ev:
		default:
			h.dropped++
		}
	}
}

// subscribe returns a channel receiving future events (after replaying the
// buffered history) and an unsubscribe function.
func (h *hub) subscribe() (<-chan model.ProgressEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan model.ProgressEvent, defaultBufferCap+64)
	for _, ev := range h.buf {
		ch <- ev
	}
	if h.done {
		close(ch)
		return ch, func() {}
	}
	h.clients[ch] = struct{}{}
	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.clients, ch)
	}
	return ch, unsubscribe
}

// close marks the hub as finished, closing every subscriber channel.
// Further publish calls are no-ops.
func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.done = true
	for ch := range h.clients {
		close(ch)
	}
	h.clients = nil
}

// droppedCount returns the number of events dropped due to a full
// subscriber buffer, for diagnostics.
func (h *hub) droppedCount() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}
