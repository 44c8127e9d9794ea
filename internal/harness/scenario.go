package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"safetyhub/internal/issue"
	"safetyhub/internal/telemetry"
)

// Scenario defines one conformance scenario: a registry to load, the user
// topology, and the ordered steps to execute against a fresh coordinator.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Registry is the path of the CUE registry directory, relative to the
	// scenario file location.
	Registry string `yaml:"registry"`

	// Users declares profile groups and activity flags. Users not listed
	// resolve to an active single-member group of themselves.
	Users []UserSpec `yaml:"users,omitempty"`

	// Steps is the ordered mutation sequence.
	Steps []Step `yaml:"steps"`
}

// UserSpec declares one user's profile group membership and activity.
type UserSpec struct {
	ID       int32   `yaml:"id"`
	Profiles []int32 `yaml:"profiles,omitempty"`
	Inactive bool    `yaml:"inactive,omitempty"`
}

// Step is one mutation against the coordinator. Op selects the operation;
// the other fields apply per op.
type Step struct {
	Op string `yaml:"op"`

	// Source addressing (set_data, evict, report_error, timeout).
	Source  string `yaml:"source,omitempty"`
	Package string `yaml:"package,omitempty"`
	User    int32  `yaml:"user,omitempty"`

	// Issue and action addressing (dismiss_*, mark/unmark_in_flight).
	Issue  string `yaml:"issue,omitempty"`
	Action string `yaml:"action,omitempty"`

	// Outcome reported at unmark_in_flight: success, error or timeout.
	Outcome string `yaml:"outcome,omitempty"`

	// Issues is the payload reported by set_data.
	Issues []IssueSpec `yaml:"issues,omitempty"`

	// By is the duration for advance, in time.ParseDuration syntax.
	By string `yaml:"by,omitempty"`

	// ExpectChanged asserts the changed result of set_data, evict,
	// report_error and unmark_in_flight. Nil skips the assertion.
	ExpectChanged *bool `yaml:"expect_changed,omitempty"`
}

// IssueSpec describes one issue in a set_data payload.
type IssueSpec struct {
	ID       string       `yaml:"id"`
	Title    string       `yaml:"title,omitempty"`
	Summary  string       `yaml:"summary,omitempty"`
	Severity string       `yaml:"severity"`
	DedupID  string       `yaml:"dedup_id,omitempty"`
	Actions  []ActionSpec `yaml:"actions,omitempty"`
}

// ActionSpec describes one remediation action on an issue.
type ActionSpec struct {
	ID       string `yaml:"id"`
	Label    string `yaml:"label,omitempty"`
	Resolves bool   `yaml:"resolves,omitempty"`
}

// Step op constants.
const (
	OpSetData             = "set_data"
	OpEvict               = "evict"
	OpReportError         = "report_error"
	OpTimeout             = "timeout"
	OpClearErrors         = "clear_errors"
	OpDismissIssue        = "dismiss_issue"
	OpDismissNotification = "dismiss_notification"
	OpMarkInFlight        = "mark_in_flight"
	OpUnmarkInFlight      = "unmark_in_flight"
	OpAdvance             = "advance"
	OpClearUser           = "clear_user"
	OpClear               = "clear"
)

// LoadScenario reads and parses a scenario YAML file. The registry path is
// resolved relative to the scenario file location. Returns an error if the
// file is malformed, contains unknown fields (typos), or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Registry != "" && !filepath.IsAbs(scenario.Registry) {
		scenario.Registry = filepath.Join(filepath.Dir(path), scenario.Registry)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Registry == "" {
		return fmt.Errorf("registry is required")
	}
	if info, err := os.Stat(s.Registry); err != nil || !info.IsDir() {
		return fmt.Errorf("registry directory not found: %s", s.Registry)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step *Step) error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("steps[%d]: %s", index, fmt.Sprintf(format, args...))
	}

	switch step.Op {
	case "":
		return fail("op is required")

	case OpSetData:
		if step.Source == "" || step.Package == "" {
			return fail("source and package are required for %s", step.Op)
		}
		if len(step.Issues) == 0 {
			return fail("issues list is required for set_data (use evict to remove data)")
		}
		for j, spec := range step.Issues {
			if spec.ID == "" {
				return fail("issues[%d]: id is required", j)
			}
			if _, err := issue.ParseSeverity(spec.Severity); err != nil {
				return fail("issues[%d]: %v", j, err)
			}
			for k, action := range spec.Actions {
				if action.ID == "" {
					return fail("issues[%d].actions[%d]: id is required", j, k)
				}
			}
		}

	case OpEvict, OpReportError, OpTimeout:
		if step.Source == "" || step.Package == "" {
			return fail("source and package are required for %s", step.Op)
		}

	case OpDismissIssue, OpDismissNotification:
		if step.Source == "" || step.Issue == "" {
			return fail("source and issue are required for %s", step.Op)
		}

	case OpMarkInFlight, OpUnmarkInFlight:
		if step.Source == "" || step.Issue == "" || step.Action == "" {
			return fail("source, issue and action are required for %s", step.Op)
		}
		if step.Op == OpUnmarkInFlight {
			switch telemetry.Outcome(step.Outcome) {
			case telemetry.OutcomeSuccess, telemetry.OutcomeError, telemetry.OutcomeTimeout:
			default:
				return fail("unknown outcome %q", step.Outcome)
			}
		}

	case OpAdvance:
		if step.By == "" {
			return fail("by is required for advance")
		}
		d, err := time.ParseDuration(step.By)
		if err != nil {
			return fail("bad duration %q: %v", step.By, err)
		}
		if d < 0 {
			return fail("advance duration must not be negative")
		}

	case OpClearErrors, OpClearUser, OpClear:
		// User defaults to 0 for clear_errors and clear_user.

	default:
		return fail("unknown op %q", step.Op)
	}
	return nil
}
