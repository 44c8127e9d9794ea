package harness

import (
	"bytes"
	"fmt"
	"time"

	"safetyhub/internal/config"
	"safetyhub/internal/data"
	"safetyhub/internal/issue"
	"safetyhub/internal/telemetry"
	"safetyhub/internal/testutil"
)

// Epoch is the deterministic start instant of every scenario clock.
var Epoch = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

// Result captures one scenario execution: the step trace, the telemetry
// emitted along the way, the final state dump and any expectation failures.
type Result struct {
	ScenarioName string
	Trace        []string
	Events       []telemetry.Event
	Dump         string
	Errors       []string
}

// Passed reports whether every step expectation held.
func (r *Result) Passed() bool { return len(r.Errors) == 0 }

// AddError records one expectation failure.
func (r *Result) AddError(msg string) { r.Errors = append(r.Errors, msg) }

// Render serializes the result into the deterministic report format used
// for golden file comparison.
func (r *Result) Render() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "scenario: %s\n", r.ScenarioName)

	fmt.Fprintln(&buf, "--- trace ---")
	for _, line := range r.Trace {
		fmt.Fprintln(&buf, line)
	}

	fmt.Fprintln(&buf, "--- events ---")
	for _, ev := range r.Events {
		fmt.Fprintf(&buf, "%s %s %s/%s/u%d outcome=%s duration=%s",
			ev.ID, ev.Kind, ev.SourceID, ev.IssueID, ev.UserID, ev.Outcome, ev.Duration)
		if ev.HasSeverity {
			fmt.Fprintf(&buf, " severity=%s", ev.Severity)
		}
		fmt.Fprintln(&buf)
	}

	fmt.Fprintln(&buf, "--- state ---")
	buf.WriteString(r.Dump)

	if len(r.Errors) > 0 {
		fmt.Fprintln(&buf, "--- errors ---")
		for _, msg := range r.Errors {
			fmt.Fprintln(&buf, msg)
		}
	}
	return buf.Bytes()
}

// Run executes a scenario against a freshly wired coordinator.
//
// Each scenario gets its own registry load, clock and recorder for
// isolation. Event ids are predetermined (event-0001, event-0002, ...) so
// traces stay byte-stable. A step that fails outright (invalid request,
// unparsable payload) aborts the run; a failed expect_changed assertion is
// recorded in the result and execution continues.
func Run(scenario *Scenario) (*Result, error) {
	registry, err := config.LoadRegistry(scenario.Registry)
	if err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}

	clock := testutil.NewClock(Epoch)
	resolver := buildResolver(scenario.Users)
	recorder := &telemetry.Recorder{}

	coord := data.NewCoordinator(
		registry,
		resolver,
		data.WithClock(clock),
		data.WithTelemetrySink(recorder),
		data.WithIDGenerator(telemetry.NewFixedGenerator(eventIDs(scenario)...)),
	)

	result := &Result{ScenarioName: scenario.Name}
	for i, step := range scenario.Steps {
		if err := executeStep(coord, resolver, clock, &step, result); err != nil {
			return nil, fmt.Errorf("steps[%d] (%s): %w", i, step.Op, err)
		}
	}

	var dump bytes.Buffer
	coord.Dump(&dump)
	result.Dump = dump.String()
	result.Events = recorder.Events()
	return result, nil
}

// eventIDs pre-allocates one deterministic id per unmark step. Not every
// id is consumed; unused ids are harmless.
func eventIDs(scenario *Scenario) []string {
	var ids []string
	for _, step := range scenario.Steps {
		if step.Op == OpUnmarkInFlight {
			ids = append(ids, fmt.Sprintf("event-%04d", len(ids)+1))
		}
	}
	return ids
}

func buildResolver(users []UserSpec) *testutil.Resolver {
	resolver := &testutil.Resolver{
		Groups:   make(map[issue.UserID]issue.UserProfileGroup),
		Inactive: make(map[issue.UserID]bool),
	}
	for _, u := range users {
		group := issue.UserProfileGroup{Primary: issue.UserID(u.ID)}
		for _, p := range u.Profiles {
			group.Profiles = append(group.Profiles, issue.UserID(p))
		}
		resolver.Groups[issue.UserID(u.ID)] = group
		if u.Inactive {
			resolver.Inactive[issue.UserID(u.ID)] = true
		}
	}
	return resolver
}

func executeStep(coord *data.Coordinator, resolver *testutil.Resolver, clock *testutil.Clock, step *Step, result *Result) error {
	sourceKey := issue.SourceKey{
		SourceID:    step.Source,
		PackageName: step.Package,
		UserID:      issue.UserID(step.User),
	}
	issueKey := issue.IssueKey{
		SourceID: step.Source,
		IssueID:  step.Issue,
		UserID:   issue.UserID(step.User),
	}
	actionID := issue.IssueActionID{IssueKey: issueKey, ActionID: step.Action}

	switch step.Op {
	case OpSetData:
		payload, err := buildPayload(step.Issues)
		if err != nil {
			return err
		}
		changed, err := coord.SetSourceData(payload, step.Source, step.Package, issue.UserID(step.User))
		if err != nil {
			return err
		}
		result.Trace = append(result.Trace,
			fmt.Sprintf("set_data %s issues=%d changed=%t", sourceKey, len(payload.Issues), changed))
		checkChanged(step, changed, result)

	case OpEvict:
		changed, err := coord.SetSourceData(nil, step.Source, step.Package, issue.UserID(step.User))
		if err != nil {
			return err
		}
		result.Trace = append(result.Trace, fmt.Sprintf("evict %s changed=%t", sourceKey, changed))
		checkChanged(step, changed, result)

	case OpReportError:
		changed, err := coord.ReportSourceError(step.Source, step.Package, issue.UserID(step.User))
		if err != nil {
			return err
		}
		result.Trace = append(result.Trace, fmt.Sprintf("report_error %s changed=%t", sourceKey, changed))
		checkChanged(step, changed, result)

	case OpTimeout:
		coord.MarkRefreshTimedOut(sourceKey)
		result.Trace = append(result.Trace, fmt.Sprintf("timeout %s", sourceKey))

	case OpClearErrors:
		coord.ClearSourceErrors(resolver.ProfileGroup(issue.UserID(step.User)))
		result.Trace = append(result.Trace, fmt.Sprintf("clear_errors u%d", step.User))

	case OpDismissIssue:
		coord.DismissIssue(issueKey)
		result.Trace = append(result.Trace, fmt.Sprintf("dismiss_issue %s", issueKey))

	case OpDismissNotification:
		coord.DismissNotification(issueKey)
		result.Trace = append(result.Trace, fmt.Sprintf("dismiss_notification %s", issueKey))

	case OpMarkInFlight:
		coord.MarkActionInFlight(actionID)
		result.Trace = append(result.Trace, fmt.Sprintf("mark_in_flight %s", actionID))

	case OpUnmarkInFlight:
		snapshot := coord.Issue(issueKey)
		changed := coord.UnmarkActionInFlight(actionID, snapshot, telemetry.Outcome(step.Outcome))
		result.Trace = append(result.Trace,
			fmt.Sprintf("unmark_in_flight %s outcome=%s changed=%t", actionID, step.Outcome, changed))
		checkChanged(step, changed, result)

	case OpAdvance:
		d, err := time.ParseDuration(step.By)
		if err != nil {
			return err
		}
		clock.Advance(d)
		result.Trace = append(result.Trace, fmt.Sprintf("advance %s", d))

	case OpClearUser:
		coord.ClearForUser(issue.UserID(step.User))
		result.Trace = append(result.Trace, fmt.Sprintf("clear_user u%d", step.User))

	case OpClear:
		coord.Clear()
		result.Trace = append(result.Trace, "clear")

	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	return nil
}

func checkChanged(step *Step, changed bool, result *Result) {
	if step.ExpectChanged != nil && *step.ExpectChanged != changed {
		result.AddError(fmt.Sprintf("%s: expected changed=%t, got changed=%t",
			step.Op, *step.ExpectChanged, changed))
	}
}

func buildPayload(specs []IssueSpec) (*issue.Payload, error) {
	payload := &issue.Payload{Issues: make([]issue.Issue, 0, len(specs))}
	for _, spec := range specs {
		severity, err := issue.ParseSeverity(spec.Severity)
		if err != nil {
			return nil, err
		}
		iss := issue.Issue{
			ID:              spec.ID,
			Title:           spec.Title,
			Summary:         spec.Summary,
			Severity:        severity,
			DeduplicationID: spec.DedupID,
		}
		for _, action := range spec.Actions {
			iss.Actions = append(iss.Actions, issue.Action{
				ID:            action.ID,
				Label:         action.Label,
				ResolvesIssue: action.Resolves,
			})
		}
		payload.Issues = append(payload.Issues, iss)
	}
	return payload, nil
}
