package data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safetyhub/internal/issue"
	"safetyhub/internal/telemetry"
)

// Full lifecycle: two sources report issues sharing a dedup id, the
// representative and then the duplicate get dismissed, and both resurface
// as their severity windows elapse.
func TestDedupDismissResurfaceLifecycle(t *testing.T) {
	env := newTestEnv(t)
	group := singleUserGroup(10)

	env.mustSetData(t, payload(dedupIssue("dup", issue.SeverityInformation, "x")), "battery", batteryPkg, 10)
	env.mustSetData(t, payload(dedupIssue("main", issue.SeverityRecommendation, "x")), "lock", lockPkg, 10)

	// The higher-severity issue represents the pair.
	assert.Equal(t, []issue.IssueKey{issueKey("lock", "main", 10)},
		rankedKeys(env.coord.IssuesDedupedSortedDescFor(group)))

	// Dismissing the representative filters it before dedup, so the
	// duplicate takes its place.
	env.coord.DismissIssue(issueKey("lock", "main", 10))
	assert.Equal(t, []issue.IssueKey{issueKey("battery", "dup", 10)},
		rankedKeys(env.coord.IssuesDedupedSortedDescFor(group)))

	env.coord.DismissIssue(issueKey("battery", "dup", 10))
	assert.Empty(t, env.coord.IssuesDedupedSortedDescFor(group))

	// 24h window elapses for the information issue; the recommendation one
	// stays dismissed under its 48h window. A new report triggers the
	// recompute that surfaces the change.
	env.clock.Advance(24*time.Hour + time.Second)
	env.mustSetData(t, payload(simpleIssue("tick", issue.SeverityInformation)), "beta", betaPkg, 10)
	assert.Equal(t, []issue.IssueKey{
		issueKey("battery", "dup", 10),
		issueKey("beta", "tick", 10),
	}, rankedKeys(env.coord.IssuesDedupedSortedDescFor(group)))

	// Past 48h both resurface and dedup reasserts the representative.
	env.clock.Advance(24 * time.Hour)
	env.mustSetData(t, nil, "beta", betaPkg, 10)
	assert.Equal(t, []issue.IssueKey{issueKey("lock", "main", 10)},
		rankedKeys(env.coord.IssuesDedupedSortedDescFor(group)))
}

func TestDismissNotificationKeepsIssueRanked(t *testing.T) {
	env := newTestEnv(t)
	key := issueKey("lock", "iss", 10)

	env.mustSetData(t, payload(simpleIssue("iss", issue.SeverityInformation)), "lock", lockPkg, 10)
	env.coord.DismissNotification(key)

	assert.True(t, env.coord.IsNotificationDismissedNow(key, issue.SeverityInformation))
	assert.Len(t, env.coord.IssuesDedupedSortedDescFor(singleUserGroup(10)), 1)

	env.clock.Advance(24*time.Hour + time.Second)
	assert.False(t, env.coord.IsNotificationDismissedNow(key, issue.SeverityInformation))
}

func TestClearForUserLeavesOtherUsersIntact(t *testing.T) {
	env := newTestEnv(t)

	env.mustSetData(t, payload(simpleIssue("a", issue.SeverityInformation)), "lock", lockPkg, 10)
	env.mustSetData(t, payload(simpleIssue("b", issue.SeverityInformation)), "lock", lockPkg, 11)
	env.coord.DismissIssue(issueKey("battery", "ghost", 10))
	env.coord.DismissIssue(issueKey("battery", "ghost", 11))
	env.coord.MarkActionInFlight(actionID("lock", "a", 10, "fix"))
	env.coord.MarkActionInFlight(actionID("lock", "b", 11, "fix"))

	env.coord.ClearForUser(10)

	key10 := issue.SourceKey{SourceID: "lock", PackageName: lockPkg, UserID: 10}
	key11 := issue.SourceKey{SourceID: "lock", PackageName: lockPkg, UserID: 11}
	assert.Nil(t, env.coord.SourceDataForKey(key10))
	assert.NotNil(t, env.coord.SourceDataForKey(key11))
	assert.True(t, env.coord.SourceLastUpdated(key10).IsZero())

	assert.False(t, env.coord.IsIssueDismissed(issueKey("battery", "ghost", 10), issue.SeverityInformation))
	assert.True(t, env.coord.IsIssueDismissed(issueKey("battery", "ghost", 11), issue.SeverityInformation))

	assert.False(t, env.coord.ActionIsInFlight(actionID("lock", "a", 10, "fix")))
	assert.True(t, env.coord.ActionIsInFlight(actionID("lock", "b", 11, "fix")))

	assert.Nil(t, env.coord.IssuesForUser(10))
	assert.Empty(t, env.coord.IssuesDedupedSortedDescFor(singleUserGroup(10)))
	assert.Len(t, env.coord.IssuesDedupedSortedDescFor(singleUserGroup(11)), 1)
}

func TestClearDropsEverything(t *testing.T) {
	env := newTestEnv(t)

	env.mustSetData(t, payload(simpleIssue("a", issue.SeverityCritical)), "lock", lockPkg, 10)
	env.coord.DismissIssue(issueKey("lock", "a", 10))
	env.coord.MarkActionInFlight(actionID("lock", "a", 10, "fix"))

	env.coord.Clear()

	key := issue.SourceKey{SourceID: "lock", PackageName: lockPkg, UserID: 10}
	assert.Nil(t, env.coord.SourceDataForKey(key))
	assert.True(t, env.coord.SourceLastUpdated(key).IsZero())
	assert.False(t, env.coord.IsIssueDismissed(issueKey("lock", "a", 10), issue.SeverityCritical))
	_, ok := env.coord.IssueFirstSeenAt(issueKey("lock", "a", 10))
	assert.False(t, ok)
	assert.False(t, env.coord.ActionIsInFlight(actionID("lock", "a", 10, "fix")))
	assert.Nil(t, env.coord.IssuesForUser(10))
	assert.Empty(t, env.coord.PersistableSnapshot())
	assert.Empty(t, env.sink.Events())
}

func TestDefaultCollaboratorsAreWired(t *testing.T) {
	coord := NewCoordinator(testRegistry(t), &stubResolver{})

	// The system clock and default sink must be usable out of the box.
	changed, err := coord.SetSourceData(payload(simpleIssue("a", issue.SeverityInformation)), "lock", lockPkg, 10)
	require.NoError(t, err)
	assert.True(t, changed)

	aid := actionID("lock", "a", 10, "fix")
	coord.MarkActionInFlight(aid)
	assert.True(t, coord.UnmarkActionInFlight(aid, nil, telemetry.OutcomeSuccess))
}

type stubResolver struct{}

func (stubResolver) ProfileGroup(userID issue.UserID) issue.UserProfileGroup {
	return issue.UserProfileGroup{Primary: userID}
}

func (stubResolver) IsUserActive(issue.UserID) bool { return true }
