package data

import "safetyhub/internal/issue"

// UserResolver expands user-profile-groups into concrete user ids and
// reports which users are currently active.
//
// The resolver is an external collaborator: the data layer never tracks
// user lifecycle itself. Group-scoped reads consult IsUserActive so that
// issues belonging to stopped profiles drop out of aggregated views without
// any state mutation.
type UserResolver interface {
	// ProfileGroup returns the group the given user belongs to. A user
	// with no associated profiles is its own single-member group.
	ProfileGroup(userID issue.UserID) issue.UserProfileGroup

	// IsUserActive reports whether the user is currently active/running.
	IsUserActive(userID issue.UserID) bool
}
