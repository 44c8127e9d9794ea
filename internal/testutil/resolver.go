package testutil

import "safetyhub/internal/issue"

// Resolver is a deterministic user-profile-group resolver for tests.
//
// Users not present in Groups resolve to a single-member group of
// themselves. All users are active unless listed in Inactive.
type Resolver struct {
	Groups   map[issue.UserID]issue.UserProfileGroup
	Inactive map[issue.UserID]bool
}

// ProfileGroup returns the configured group for the user, or a
// single-member group.
func (r *Resolver) ProfileGroup(userID issue.UserID) issue.UserProfileGroup {
	if g, ok := r.Groups[userID]; ok {
		return g
	}
	return issue.UserProfileGroup{Primary: userID}
}

// IsUserActive reports whether the user is active.
func (r *Resolver) IsUserActive(userID issue.UserID) bool {
	return !r.Inactive[userID]
}
