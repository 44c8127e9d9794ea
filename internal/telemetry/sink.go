package telemetry

import (
	"log/slog"
	"sync"
)

// SlogSink writes telemetry events to the process-wide structured logger.
// This is the default sink when no external telemetry pipeline is wired.
type SlogSink struct{}

// Emit logs the event at Info level with structured fields.
func (SlogSink) Emit(event Event) {
	attrs := []any{
		"event_id", event.ID,
		"kind", event.Kind,
		"outcome", event.Outcome,
		"source_id", event.SourceID,
		"issue_id", event.IssueID,
		"user_id", event.UserID,
		"duration", event.Duration,
	}
	if event.HasSeverity {
		attrs = append(attrs, "severity", event.Severity.String())
	}
	slog.Info("telemetry event", attrs...)
}

// Recorder is a test sink that captures every emitted event.
//
// Thread-safety: safe for concurrent use via internal mutex, although the
// data layer emits from a single writer.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit appends the event to the recorded list.
func (r *Recorder) Emit(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of all recorded events in emission order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Reset discards all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
