// Package telemetry defines the fire-and-forget event sink the data layer
// reports remediation outcomes to.
//
// Sinks are external collaborators. The data layer never depends on a sink
// succeeding: events are emitted through EmitSafely, which swallows panics
// so a misbehaving sink cannot corrupt the single-writer state machine.
package telemetry

import (
	"log/slog"
	"time"

	"safetyhub/internal/issue"
)

// Kind identifies the category of a telemetry event.
type Kind string

const (
	// KindActionCompleted is emitted when an in-flight remediation action
	// is unmarked with a terminal outcome.
	KindActionCompleted Kind = "action_completed"
)

// Outcome is the terminal result category of a remediation action.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
	OutcomeTimeout Outcome = "timeout"
)

// Event is one telemetry record. The issue context fields are only set
// when the caller provided an issue snapshot at unmark time.
type Event struct {
	ID       string
	Kind     Kind
	Outcome  Outcome
	SourceID string
	IssueID  string
	UserID   issue.UserID
	Duration time.Duration

	// Severity of the acted-on issue, when a snapshot was provided.
	Severity    issue.Severity
	HasSeverity bool
}

// Sink consumes telemetry events. Implementations must be cheap and
// non-blocking; emission happens inline on the write path.
type Sink interface {
	Emit(event Event)
}

// EmitSafely delivers an event to the sink, converting a sink panic into a
// log line. A nil sink drops the event.
func EmitSafely(sink Sink, event Event) {
	if sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("telemetry sink panicked",
				"event_id", event.ID,
				"kind", event.Kind,
				"panic", r,
			)
		}
	}()
	sink.Emit(event)
}
