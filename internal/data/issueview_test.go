package data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safetyhub/internal/issue"
)

func TestDedupHigherSeverityWins(t *testing.T) {
	env := newTestEnv(t)

	env.mustSetData(t, payload(dedupIssue("low", issue.SeverityInformation, "x")), "lock", lockPkg, 10)
	env.mustSetData(t, payload(dedupIssue("high", issue.SeverityCritical, "x")), "battery", batteryPkg, 10)

	ranked := env.coord.IssuesDedupedSortedDescFor(singleUserGroup(10))
	require.Len(t, ranked, 1)
	assert.Equal(t, issueKey("battery", "high", 10), ranked[0].Key)

	filtered := env.coord.MostRecentFilteredOutDuplicateIssues(10)
	require.Len(t, filtered, 1)
	assert.Equal(t, issueKey("lock", "low", 10), filtered[0].Key)
}

func TestDedupEarlierFirstSeenBreaksSeverityTie(t *testing.T) {
	env := newTestEnv(t)

	env.mustSetData(t, payload(dedupIssue("old", issue.SeverityRecommendation, "x")), "battery", batteryPkg, 10)
	env.clock.Advance(time.Hour)
	env.mustSetData(t, payload(dedupIssue("new", issue.SeverityRecommendation, "x")), "lock", lockPkg, 10)

	ranked := env.coord.IssuesDedupedSortedDescFor(singleUserGroup(10))
	require.Len(t, ranked, 1)
	assert.Equal(t, issueKey("battery", "old", 10), ranked[0].Key)
}

func TestDedupKeyOrderBreaksFullTie(t *testing.T) {
	env := newTestEnv(t)

	// Same severity, same first-seen instant: the lexicographically
	// smaller key wins.
	env.mustSetData(t, payload(dedupIssue("iss", issue.SeverityRecommendation, "x")), "lock", lockPkg, 10)
	env.mustSetData(t, payload(dedupIssue("iss", issue.SeverityRecommendation, "x")), "battery", batteryPkg, 10)

	ranked := env.coord.IssuesDedupedSortedDescFor(singleUserGroup(10))
	require.Len(t, ranked, 1)
	assert.Equal(t, issueKey("battery", "iss", 10), ranked[0].Key)
}

func TestDedupIDUnicodeCanonicalized(t *testing.T) {
	env := newTestEnv(t)

	// Precomposed vs combining-accent spellings of the same id.
	env.mustSetData(t, payload(dedupIssue("a", issue.SeverityInformation, "caf\u00e9")), "lock", lockPkg, 10)
	env.mustSetData(t, payload(dedupIssue("b", issue.SeverityCritical, "cafe\u0301")), "battery", batteryPkg, 10)

	ranked := env.coord.IssuesDedupedSortedDescFor(singleUserGroup(10))
	require.Len(t, ranked, 1)
	assert.Equal(t, issueKey("battery", "b", 10), ranked[0].Key)
}

func TestEmptyDedupIDNeverDeduplicates(t *testing.T) {
	env := newTestEnv(t)

	env.mustSetData(t, payload(simpleIssue("a", issue.SeverityInformation)), "lock", lockPkg, 10)
	env.mustSetData(t, payload(simpleIssue("b", issue.SeverityInformation)), "battery", batteryPkg, 10)

	assert.Len(t, env.coord.IssuesDedupedSortedDescFor(singleUserGroup(10)), 2)
	assert.Empty(t, env.coord.MostRecentFilteredOutDuplicateIssues(10))
}

func TestDedupScopedToUser(t *testing.T) {
	env := newTestEnv(t)

	env.mustSetData(t, payload(dedupIssue("iss", issue.SeverityCritical, "x")), "lock", lockPkg, 10)
	env.mustSetData(t, payload(dedupIssue("iss", issue.SeverityCritical, "x")), "lock", lockPkg, 11)

	group := issue.UserProfileGroup{Primary: 10, Profiles: []issue.UserID{11}}
	assert.Len(t, env.coord.IssuesDedupedSortedDescFor(group), 2)
}

func TestFilteredOutReplacedEachRecompute(t *testing.T) {
	env := newTestEnv(t)

	env.mustSetData(t, payload(dedupIssue("low", issue.SeverityInformation, "x")), "lock", lockPkg, 10)
	env.mustSetData(t, payload(dedupIssue("high", issue.SeverityCritical, "x")), "battery", batteryPkg, 10)
	require.Len(t, env.coord.MostRecentFilteredOutDuplicateIssues(10), 1)

	// The loser disappears from its source: the next recompute has no
	// duplicates, and the previous generation is not retained.
	env.mustSetData(t, nil, "lock", lockPkg, 10)
	assert.Empty(t, env.coord.MostRecentFilteredOutDuplicateIssues(10))
}

func TestGroupMappingUnionAcrossDuplicates(t *testing.T) {
	env := newTestEnv(t)

	// beta lives in "experimental", battery in "device". The surviving
	// representative inherits both mappings.
	env.mustSetData(t, payload(dedupIssue("exp", issue.SeverityInformation, "x")), "beta", betaPkg, 10)
	env.mustSetData(t, payload(dedupIssue("dev", issue.SeverityCritical, "x")), "battery", batteryPkg, 10)

	winner := issueKey("battery", "dev", 10)
	assert.Equal(t, []string{"device", "experimental"}, env.coord.GroupMappingFor(winner))

	// The absorbed duplicate has no mapping of its own.
	assert.Nil(t, env.coord.GroupMappingFor(issueKey("beta", "exp", 10)))
}

func TestRankedOrderSeverityDescThenFirstSeen(t *testing.T) {
	env := newTestEnv(t)

	env.mustSetData(t, payload(simpleIssue("info", issue.SeverityInformation)), "beta", betaPkg, 10)
	env.clock.Advance(time.Minute)
	env.mustSetData(t, payload(
		simpleIssue("rec-late", issue.SeverityRecommendation),
	), "battery", batteryPkg, 10)
	env.clock.Advance(time.Minute)
	env.mustSetData(t, payload(
		simpleIssue("crit", issue.SeverityCritical),
		simpleIssue("rec-later", issue.SeverityRecommendation),
	), "lock", lockPkg, 10)

	ranked := env.coord.IssuesDedupedSortedDescFor(singleUserGroup(10))
	assert.Equal(t, []issue.IssueKey{
		issueKey("lock", "crit", 10),
		issueKey("battery", "rec-late", 10),
		issueKey("lock", "rec-later", 10),
		issueKey("beta", "info", 10),
	}, rankedKeys(ranked))
}

func TestDismissedIssuesDroppedFromRankedView(t *testing.T) {
	env := newTestEnv(t)

	env.mustSetData(t, payload(simpleIssue("iss", issue.SeverityInformation)), "lock", lockPkg, 10)
	require.Len(t, env.coord.IssuesDedupedSortedDescFor(singleUserGroup(10)), 1)

	env.coord.DismissIssue(issueKey("lock", "iss", 10))
	assert.Empty(t, env.coord.IssuesDedupedSortedDescFor(singleUserGroup(10)))

	// Resurfaces after the 24h information window, on the next recompute.
	env.clock.Advance(24*time.Hour + time.Second)
	env.mustSetData(t, payload(simpleIssue("other", issue.SeverityInformation)), "battery", batteryPkg, 10)
	assert.Len(t, env.coord.IssuesDedupedSortedDescFor(singleUserGroup(10)), 2)
}

func TestCountLoggableIssues(t *testing.T) {
	env := newTestEnv(t)

	env.mustSetData(t, payload(simpleIssue("a", issue.SeverityInformation)), "lock", lockPkg, 10)
	env.mustSetData(t, payload(simpleIssue("b", issue.SeverityInformation)), "beta", betaPkg, 10)

	// beta is configured non-loggable.
	assert.Equal(t, 1, env.coord.CountLoggableIssuesFor(singleUserGroup(10)))
}

func TestInactiveUserExcludedFromGroupReads(t *testing.T) {
	env := newTestEnv(t)

	env.mustSetData(t, payload(simpleIssue("a", issue.SeverityInformation)), "lock", lockPkg, 10)
	env.mustSetData(t, payload(simpleIssue("b", issue.SeverityCritical)), "lock", lockPkg, 11)

	group := issue.UserProfileGroup{Primary: 10, Profiles: []issue.UserID{11}}
	require.Len(t, env.coord.IssuesDedupedSortedDescFor(group), 2)

	env.resolver.Inactive[11] = true
	assert.Equal(t, []issue.IssueKey{issueKey("lock", "a", 10)},
		rankedKeys(env.coord.IssuesDedupedSortedDescFor(group)))
	assert.Equal(t, 1, env.coord.CountLoggableIssuesFor(group))
}

func TestIssuesForUserIsPreDedupAndUnfiltered(t *testing.T) {
	env := newTestEnv(t)

	env.mustSetData(t, payload(dedupIssue("low", issue.SeverityInformation, "x")), "lock", lockPkg, 10)
	env.mustSetData(t, payload(dedupIssue("high", issue.SeverityCritical, "x")), "battery", batteryPkg, 10)
	env.coord.DismissIssue(issueKey("battery", "high", 10))

	// Raw view keeps duplicates and dismissed issues.
	raw := env.coord.IssuesForUser(10)
	assert.Len(t, raw, 2)

	assert.Empty(t, env.coord.IssuesDedupedSortedDescFor(singleUserGroup(10)))
}
