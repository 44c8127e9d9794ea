package data

import (
	"sort"
	"time"

	"safetyhub/internal/issue"
	"safetyhub/internal/telemetry"
)

// InFlightStore tracks remediation actions currently executing.
//
// An action is in the set between MarkInFlight and UnmarkInFlight; absence
// means not pending. No terminal "failed" state is ever stored - the
// outcome is reported transiently to the telemetry sink at unmark time and
// not retained.
type InFlightStore struct {
	clock Clock
	sink  telemetry.Sink
	ids   telemetry.IDGenerator

	// marked-at instants, kept so unmark telemetry carries the duration.
	actions map[issue.IssueActionID]time.Time
}

func newInFlightStore(clock Clock, sink telemetry.Sink, ids telemetry.IDGenerator) *InFlightStore {
	return &InFlightStore{
		clock:   clock,
		sink:    sink,
		ids:     ids,
		actions: make(map[issue.IssueActionID]time.Time),
	}
}

// MarkInFlight inserts the action into the pending set. Idempotent: marking
// an already-pending action keeps its original marked-at instant.
func (s *InFlightStore) MarkInFlight(actionID issue.IssueActionID) {
	if _, ok := s.actions[actionID]; ok {
		return
	}
	s.actions[actionID] = s.clock.Now()
}

// ActionIsInFlight reports whether the action is currently pending.
func (s *InFlightStore) ActionIsInFlight(actionID issue.IssueActionID) bool {
	_, ok := s.actions[actionID]
	return ok
}

// UnmarkInFlight removes the action from the pending set and emits one
// telemetry event carrying the outcome and, if provided, the issue snapshot
// context.
//
// Returns true only if the action was actually pending; unmarking an absent
// id is a no-op that emits nothing, which lets the Coordinator skip
// redundant recomputation.
func (s *InFlightStore) UnmarkInFlight(actionID issue.IssueActionID, snapshot *issue.Issue, outcome telemetry.Outcome) bool {
	markedAt, ok := s.actions[actionID]
	if !ok {
		return false
	}
	delete(s.actions, actionID)

	event := telemetry.Event{
		ID:       s.ids.Generate(),
		Kind:     telemetry.KindActionCompleted,
		Outcome:  outcome,
		SourceID: actionID.IssueKey.SourceID,
		IssueID:  actionID.IssueKey.IssueID,
		UserID:   actionID.IssueKey.UserID,
		Duration: s.clock.Now().Sub(markedAt),
	}
	if snapshot != nil {
		event.Severity = snapshot.Severity
		event.HasSeverity = true
	}
	telemetry.EmitSafely(s.sink, event)

	return true
}

// InFlightForUser returns all pending action ids for the user, ordered by
// id for deterministic dumps.
func (s *InFlightStore) InFlightForUser(userID issue.UserID) []issue.IssueActionID {
	var out []issue.IssueActionID
	for id := range s.actions {
		if id.IssueKey.UserID == userID {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}

// clearForUser drops all pending actions for the user. Administrative
// reset: no telemetry is emitted.
func (s *InFlightStore) clearForUser(userID issue.UserID) {
	for id := range s.actions {
		if id.IssueKey.UserID == userID {
			delete(s.actions, id)
		}
	}
}

// clear drops all pending actions without emitting telemetry.
func (s *InFlightStore) clear() {
	s.actions = make(map[issue.IssueActionID]time.Time)
}
