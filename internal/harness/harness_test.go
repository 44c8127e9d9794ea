package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safetyhub/internal/issue"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestScenarioDedupDismissResurface(t *testing.T) {
	result := RunWithGolden(t, loadTestScenario(t, "dedup_dismiss_resurface"))
	assert.True(t, result.Passed(), "expectation failures: %v", result.Errors)
}

func TestScenarioInflightOutcome(t *testing.T) {
	result := RunWithGolden(t, loadTestScenario(t, "inflight_outcome"))
	assert.True(t, result.Passed(), "expectation failures: %v", result.Errors)

	require.Len(t, result.Events, 1)
	assert.Equal(t, "event-0001", result.Events[0].ID)
}

func TestScenarioErrorLifecycle(t *testing.T) {
	result := RunWithGolden(t, loadTestScenario(t, "error_lifecycle"))
	assert.True(t, result.Passed(), "expectation failures: %v", result.Errors)
}

func TestRunRecordsExpectationFailure(t *testing.T) {
	registry, err := filepath.Abs("testdata/registry")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: failing_expectation
description: a wrong expect_changed is recorded, not fatal
registry: `+registry+`
steps:
  - op: set_data
    source: lock
    package: com.example.lock
    user: 10
    issues:
      - id: a
        severity: information
    expect_changed: false
`), 0o644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Passed())
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected changed=false")

	// The failing expectation still executed; trace and dump are complete.
	assert.Len(t, result.Trace, 1)
	assert.Contains(t, result.Dump, "=== source data ===")
}

func TestRunFailsOnInvalidRequest(t *testing.T) {
	registry, err := filepath.Abs("testdata/registry")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: undeclared_source
description: reporting for an undeclared source aborts the run
registry: `+registry+`
steps:
  - op: set_data
    source: imaginary
    package: com.example.imaginary
    user: 10
    issues:
      - id: a
        severity: information
`), 0o644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	_, err = Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "steps[0]")
}

func TestBuildResolver(t *testing.T) {
	resolver := buildResolver([]UserSpec{
		{ID: 10, Profiles: []int32{11, 12}},
		{ID: 13, Inactive: true},
	})

	group := resolver.ProfileGroup(10)
	assert.Equal(t, issue.UserID(10), group.Primary)
	assert.Equal(t, []issue.UserID{11, 12}, group.Profiles)

	// Undeclared users fall back to an active single-member group.
	assert.Equal(t, issue.UserID(99), resolver.ProfileGroup(99).Primary)
	assert.True(t, resolver.IsUserActive(99))

	assert.False(t, resolver.IsUserActive(13))
}

func TestEventIDsOnePerUnmark(t *testing.T) {
	scenario := &Scenario{Steps: []Step{
		{Op: OpSetData},
		{Op: OpUnmarkInFlight},
		{Op: OpAdvance},
		{Op: OpUnmarkInFlight},
	}}
	assert.Equal(t, []string{"event-0001", "event-0002"}, eventIDs(scenario))
}
