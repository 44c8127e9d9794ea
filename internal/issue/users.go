package issue

// UserProfileGroup is the set of user identities (primary user plus
// associated profiles) treated as one scope for aggregation.
type UserProfileGroup struct {
	Primary  UserID
	Profiles []UserID
}

// AllUserIDs returns the primary user followed by all profiles.
func (g UserProfileGroup) AllUserIDs() []UserID {
	ids := make([]UserID, 0, 1+len(g.Profiles))
	ids = append(ids, g.Primary)
	ids = append(ids, g.Profiles...)
	return ids
}

// Contains reports whether the given user belongs to this group.
func (g UserProfileGroup) Contains(userID UserID) bool {
	if g.Primary == userID {
		return true
	}
	for _, id := range g.Profiles {
		if id == userID {
			return true
		}
	}
	return false
}
