package issue

import "fmt"

// Severity is the severity level a source assigns to an issue.
//
// Levels are ordered: higher values rank above lower values in the derived
// issue view and may use longer (or infinite) dismissal resurface windows.
type Severity int

const (
	// SeverityUnspecified means the source did not classify the issue.
	SeverityUnspecified Severity = iota

	// SeverityInformation is a purely informational signal.
	SeverityInformation

	// SeverityRecommendation suggests the user should act, without urgency.
	SeverityRecommendation

	// SeverityCritical is an urgent warning requiring user attention.
	SeverityCritical
)

// ValidSeverities lists all defined severity levels in ascending order.
var ValidSeverities = []Severity{
	SeverityUnspecified,
	SeverityInformation,
	SeverityRecommendation,
	SeverityCritical,
}

// String returns the level's canonical name.
func (s Severity) String() string {
	switch s {
	case SeverityUnspecified:
		return "unspecified"
	case SeverityInformation:
		return "information"
	case SeverityRecommendation:
		return "recommendation"
	case SeverityCritical:
		return "critical"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// ParseSeverity maps a canonical name back to a Severity.
// Returns an error for unknown names.
func ParseSeverity(name string) (Severity, error) {
	for _, s := range ValidSeverities {
		if s.String() == name {
			return s, nil
		}
	}
	return SeverityUnspecified, fmt.Errorf("unknown severity %q", name)
}
