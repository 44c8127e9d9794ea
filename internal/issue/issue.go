package issue

// Action is a remediation action a source offers on an issue.
type Action struct {
	ID            string
	Label         string
	ResolvesIssue bool
}

// Issue is one reportable problem carried in a source payload.
//
// DeduplicationID is an opaque value shared by issues considered equivalent
// for display purposes; empty means the issue never deduplicates.
type Issue struct {
	ID              string
	Title           string
	Summary         string
	Severity        Severity
	DeduplicationID string
	Actions         []Action
}

// Equal reports whether two issues are observably identical.
func (i Issue) Equal(other Issue) bool {
	if i.ID != other.ID ||
		i.Title != other.Title ||
		i.Summary != other.Summary ||
		i.Severity != other.Severity ||
		i.DeduplicationID != other.DeduplicationID {
		return false
	}
	if len(i.Actions) != len(other.Actions) {
		return false
	}
	for n := range i.Actions {
		if i.Actions[n] != other.Actions[n] {
			return false
		}
	}
	return true
}

// Payload is one successful report from a source: an ordered sequence of
// issue records. Order is preserved as reported; ranking happens in the
// derived view, not here.
type Payload struct {
	Issues []Issue
}

// Equal reports whether two payloads are observably identical.
// A nil payload only equals another nil payload.
func (p *Payload) Equal(other *Payload) bool {
	if p == nil || other == nil {
		return p == other
	}
	if len(p.Issues) != len(other.Issues) {
		return false
	}
	for n := range p.Issues {
		if !p.Issues[n].Equal(other.Issues[n]) {
			return false
		}
	}
	return true
}

// Issue returns the payload issue with the given id, or nil if the id is
// not part of this payload.
func (p *Payload) Issue(issueID string) *Issue {
	if p == nil {
		return nil
	}
	for n := range p.Issues {
		if p.Issues[n].ID == issueID {
			return &p.Issues[n]
		}
	}
	return nil
}

// Info pairs an issue with its owning source and package.
// This is the element type of the derived, ranked issue view.
type Info struct {
	Issue       Issue
	Key         IssueKey
	PackageName string
}
