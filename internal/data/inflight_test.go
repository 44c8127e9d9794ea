package data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safetyhub/internal/issue"
	"safetyhub/internal/telemetry"
)

func TestMarkActionInFlightIdempotent(t *testing.T) {
	env := newTestEnv(t)
	aid := actionID("lock", "weak-pin", 10, "fix")

	env.coord.MarkActionInFlight(aid)
	env.clock.Advance(time.Minute)
	env.coord.MarkActionInFlight(aid)
	assert.True(t, env.coord.ActionIsInFlight(aid))

	// The second mark did not reset the marked-at instant, so the reported
	// duration spans from the first mark.
	env.clock.Advance(time.Minute)
	require.True(t, env.coord.UnmarkActionInFlight(aid, nil, telemetry.OutcomeSuccess))

	events := env.sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, 2*time.Minute, events[0].Duration)
}

func TestUnmarkAbsentActionEmitsNothing(t *testing.T) {
	env := newTestEnv(t)
	aid := actionID("lock", "weak-pin", 10, "fix")

	assert.False(t, env.coord.UnmarkActionInFlight(aid, nil, telemetry.OutcomeError))
	assert.Empty(t, env.sink.Events())
}

func TestUnmarkEmitsExactlyOneEvent(t *testing.T) {
	env := newTestEnv(t)
	aid := actionID("lock", "weak-pin", 10, "fix")
	snapshot := simpleIssue("weak-pin", issue.SeverityCritical)

	env.coord.MarkActionInFlight(aid)
	env.clock.Advance(3 * time.Second)

	require.True(t, env.coord.UnmarkActionInFlight(aid, &snapshot, telemetry.OutcomeTimeout))
	assert.False(t, env.coord.ActionIsInFlight(aid))

	events := env.sink.Events()
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, "ev-1", ev.ID)
	assert.Equal(t, telemetry.KindActionCompleted, ev.Kind)
	assert.Equal(t, telemetry.OutcomeTimeout, ev.Outcome)
	assert.Equal(t, "lock", ev.SourceID)
	assert.Equal(t, "weak-pin", ev.IssueID)
	assert.Equal(t, issue.UserID(10), ev.UserID)
	assert.Equal(t, 3*time.Second, ev.Duration)
	assert.True(t, ev.HasSeverity)
	assert.Equal(t, issue.SeverityCritical, ev.Severity)

	// A second unmark for the same action is a no-op.
	assert.False(t, env.coord.UnmarkActionInFlight(aid, &snapshot, telemetry.OutcomeTimeout))
	assert.Len(t, env.sink.Events(), 1)
}

func TestUnmarkWithoutSnapshotOmitsSeverity(t *testing.T) {
	env := newTestEnv(t)
	aid := actionID("lock", "weak-pin", 10, "fix")

	env.coord.MarkActionInFlight(aid)
	require.True(t, env.coord.UnmarkActionInFlight(aid, nil, telemetry.OutcomeSuccess))

	events := env.sink.Events()
	require.Len(t, events, 1)
	assert.False(t, events[0].HasSeverity)
}

func TestClearsDropInFlightWithoutTelemetry(t *testing.T) {
	env := newTestEnv(t)
	mine := actionID("lock", "weak-pin", 10, "fix")
	other := actionID("lock", "weak-pin", 11, "fix")

	env.coord.MarkActionInFlight(mine)
	env.coord.MarkActionInFlight(other)

	env.coord.ClearForUser(10)
	assert.False(t, env.coord.ActionIsInFlight(mine))
	assert.True(t, env.coord.ActionIsInFlight(other))
	assert.Empty(t, env.sink.Events())

	env.coord.Clear()
	assert.False(t, env.coord.ActionIsInFlight(other))
	assert.Empty(t, env.sink.Events())
}
