package issue

import "fmt"

// UserID identifies one user (primary user or associated profile).
type UserID int32

// SourceKey identifies one reporting source instance for one user.
//
// A source is uniquely addressed by its configured id, the package it
// reports from, and the user it reports for. Keys are stable for the
// process lifetime of that user and are removed when the user is removed.
type SourceKey struct {
	SourceID    string
	PackageName string
	UserID      UserID
}

// String returns a stable textual form used for dumps and ordering.
func (k SourceKey) String() string {
	return fmt.Sprintf("%s/%s/u%d", k.SourceID, k.PackageName, k.UserID)
}

// IssueKey is the stable identity of one reported issue instance.
//
// IssueID is the issue's id within its source, which is distinct from the
// source-level deduplication identifier: two issues with different
// IssueKeys may still deduplicate against each other.
type IssueKey struct {
	SourceID string
	IssueID  string
	UserID   UserID
}

// String returns a stable textual form used for dumps and tie-breaking.
func (k IssueKey) String() string {
	return fmt.Sprintf("%s/%s/u%d", k.SourceID, k.IssueID, k.UserID)
}

// IssueActionID identifies one remediation action offered on an issue.
type IssueActionID struct {
	IssueKey IssueKey
	ActionID string
}

// String returns a stable textual form used for dumps.
func (id IssueActionID) String() string {
	return fmt.Sprintf("%s/%s", id.IssueKey, id.ActionID)
}
