package data

import (
	"bytes"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"

	"safetyhub/internal/issue"
)

// To regenerate golden files, run:
//
//	go test ./internal/data -update
func TestDumpGolden(t *testing.T) {
	env := newTestEnv(t)

	env.mustSetData(t, payload(dedupIssue("weak-pin", issue.SeverityCritical, "pin")), "lock", lockPkg, 10)

	env.clock.Advance(time.Minute)
	env.mustSetData(t, payload(
		dedupIssue("pin-dup", issue.SeverityInformation, "pin"),
		simpleIssue("drain", issue.SeverityInformation),
	), "battery", batteryPkg, 10)

	env.clock.Advance(time.Minute)
	env.coord.DismissNotification(issueKey("battery", "drain", 10))
	env.coord.MarkActionInFlight(actionID("lock", "weak-pin", 10, "fix"))
	env.coord.MarkRefreshTimedOut(issue.SourceKey{SourceID: "beta", PackageName: betaPkg, UserID: 11})

	var buf bytes.Buffer
	env.coord.Dump(&buf)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "dump", buf.Bytes())
}

func TestDumpEmptyCoordinator(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	env.coord.Dump(&buf)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "dump_empty", buf.Bytes())
}
