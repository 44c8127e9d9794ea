package data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"safetyhub/internal/config"
	"safetyhub/internal/issue"
	"safetyhub/internal/telemetry"
	"safetyhub/internal/testutil"
)

// baseTime is the frozen scenario start for all data tests.
var baseTime = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

const (
	lockPkg    = "com.example.lock"
	batteryPkg = "com.example.battery"
	betaPkg    = "com.example.beta"
)

// testRegistry declares three sources: lock and battery in the "device"
// group (loggable), beta in "experimental" (not loggable). Information
// resurfaces after 24h, recommendation after 48h, critical never.
func testRegistry(t *testing.T) *config.Registry {
	t.Helper()
	r, err := config.NewRegistry(
		[]config.Source{
			{ID: "lock", PackageName: lockPkg, Loggable: true},
			{ID: "battery", PackageName: batteryPkg, Loggable: true},
			{ID: "beta", PackageName: betaPkg, Loggable: false},
		},
		[]config.Group{
			{ID: "device", SourceIDs: []string{"lock", "battery"}},
			{ID: "experimental", SourceIDs: []string{"beta"}},
		},
		map[issue.Severity]config.Window{
			issue.SeverityUnspecified:    {Delay: time.Hour},
			issue.SeverityInformation:    {Delay: 24 * time.Hour},
			issue.SeverityRecommendation: {Delay: 48 * time.Hour},
			issue.SeverityCritical:       {Never: true},
		},
	)
	require.NoError(t, err)
	return r
}

// testEnv bundles a coordinator with its injected collaborators.
type testEnv struct {
	coord    *Coordinator
	clock    *testutil.Clock
	resolver *testutil.Resolver
	sink     *telemetry.Recorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := testutil.NewClock(baseTime)
	resolver := &testutil.Resolver{
		Groups:   map[issue.UserID]issue.UserProfileGroup{},
		Inactive: map[issue.UserID]bool{},
	}
	sink := &telemetry.Recorder{}
	coord := NewCoordinator(
		testRegistry(t),
		resolver,
		WithClock(clock),
		WithTelemetrySink(sink),
		WithIDGenerator(telemetry.NewFixedGenerator("ev-1", "ev-2", "ev-3", "ev-4")),
	)
	return &testEnv{coord: coord, clock: clock, resolver: resolver, sink: sink}
}

func issueKey(sourceID, issueID string, userID issue.UserID) issue.IssueKey {
	return issue.IssueKey{SourceID: sourceID, IssueID: issueID, UserID: userID}
}

func actionID(sourceID, issueID string, userID issue.UserID, action string) issue.IssueActionID {
	return issue.IssueActionID{IssueKey: issueKey(sourceID, issueID, userID), ActionID: action}
}

func payload(issues ...issue.Issue) *issue.Payload {
	return &issue.Payload{Issues: issues}
}

func simpleIssue(id string, severity issue.Severity) issue.Issue {
	return issue.Issue{ID: id, Title: id, Severity: severity}
}

func dedupIssue(id string, severity issue.Severity, dedupID string) issue.Issue {
	return issue.Issue{ID: id, Title: id, Severity: severity, DeduplicationID: dedupID}
}

// mustSetData sets source data and fails the test on validation errors.
func (e *testEnv) mustSetData(t *testing.T, p *issue.Payload, sourceID, packageName string, userID issue.UserID) bool {
	t.Helper()
	changed, err := e.coord.SetSourceData(p, sourceID, packageName, userID)
	require.NoError(t, err)
	return changed
}

func singleUserGroup(userID issue.UserID) issue.UserProfileGroup {
	return issue.UserProfileGroup{Primary: userID}
}

func rankedKeys(infos []issue.Info) []issue.IssueKey {
	keys := make([]issue.IssueKey, len(infos))
	for n := range infos {
		keys[n] = infos[n].Key
	}
	return keys
}
