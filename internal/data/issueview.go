package data

import (
	"sort"
	"time"

	"safetyhub/internal/config"
	"safetyhub/internal/issue"
)

// IssueViewStore holds the derived, deduplicated, ranked issue view.
//
// The view is a read-mostly cache rebuilt wholesale on every recompute call
// for a user scope - never incrementally patched - so the dedup tie-break
// and ranking stay globally consistent after any single-field change.
// Recomputation cost is O(total issues in scope).
type IssueViewStore struct {
	registry   *config.Registry
	sources    *SourceDataStore
	dismissals *DismissalStore
	resolver   UserResolver

	byUser map[issue.UserID]*userIssueView
}

// userIssueView is one user's rebuilt snapshot.
type userIssueView struct {
	// raw is the unfiltered, pre-dedup gather result, for internal
	// consumers.
	raw []issue.Info

	// ranked is the dismissal-filtered, deduplicated list in descending
	// severity order.
	ranked []issue.Info

	// filteredOut holds the issues dropped as duplicates in the most
	// recent recompute. Replaced, never accumulated.
	filteredOut []issue.Info

	// groups maps each surviving issue to the group ids it is relevant
	// to. A dedup representative inherits the groups of every duplicate
	// it absorbed.
	groups map[issue.IssueKey][]string
}

func newIssueViewStore(registry *config.Registry, sources *SourceDataStore, dismissals *DismissalStore, resolver UserResolver) *IssueViewStore {
	return &IssueViewStore{
		registry:   registry,
		sources:    sources,
		dismissals: dismissals,
		resolver:   resolver,
		byUser:     make(map[issue.UserID]*userIssueView),
	}
}

// updateIssuesForUser rebuilds the full derived view for one user:
// gather, drop currently-dismissed issues, deduplicate, rank, and map
// surviving issues to their configured groups.
func (s *IssueViewStore) updateIssuesForUser(userID issue.UserID) {
	raw := s.sources.issuesForUser(userID)

	// First observation stamps first-seen; it must happen before dedup so
	// the first-seen tie-break is defined for every candidate.
	for n := range raw {
		s.dismissals.noteObserved(raw[n].Key)
	}

	visible := make([]issue.Info, 0, len(raw))
	for n := range raw {
		if s.dismissals.IsIssueDismissed(raw[n].Key, raw[n].Issue.Severity) {
			continue
		}
		visible = append(visible, raw[n])
	}

	ranked, filteredOut, groups := s.deduplicate(visible)
	s.sortRanked(ranked)

	s.byUser[userID] = &userIssueView{
		raw:         raw,
		ranked:      ranked,
		filteredOut: filteredOut,
		groups:      groups,
	}
}

// updateIssuesForGroup rebuilds the derived view for every user in the
// group.
func (s *IssueViewStore) updateIssuesForGroup(group issue.UserProfileGroup) {
	for _, userID := range group.AllUserIDs() {
		s.updateIssuesForUser(userID)
	}
}

// deduplicate groups issues sharing the same non-empty deduplication id
// within the user and keeps exactly one representative per group.
//
// Tie-break: highest severity, then earliest first-seen, then stable
// key-based order for full determinism. Every non-representative lands in
// the filtered-out list. A representative's group mapping is the union of
// the mappings of all issues it absorbed.
func (s *IssueViewStore) deduplicate(issues []issue.Info) (kept, filteredOut []issue.Info, groups map[issue.IssueKey][]string) {
	groupSets := make(map[issue.IssueKey]map[string]bool, len(issues))
	for n := range issues {
		groupSets[issues[n].Key] = s.groupSetForSource(issues[n].Key.SourceID)
	}

	// Representatives by canonical dedup id, in first-encounter order so
	// the kept list stays deterministic.
	repByDedupID := make(map[string]int)
	kept = make([]issue.Info, 0, len(issues))
	filteredOut = []issue.Info{}

	for n := range issues {
		dedupID := issue.CanonicalDedupID(issues[n].Issue.DeduplicationID)
		if dedupID == "" {
			kept = append(kept, issues[n])
			continue
		}
		repIdx, ok := repByDedupID[dedupID]
		if !ok {
			repByDedupID[dedupID] = len(kept)
			kept = append(kept, issues[n])
			continue
		}

		rep := kept[repIdx]
		if s.outranks(issues[n], rep) {
			// New representative absorbs the old one.
			filteredOut = append(filteredOut, rep)
			mergeGroupSet(groupSets[issues[n].Key], groupSets[rep.Key])
			kept[repIdx] = issues[n]
		} else {
			filteredOut = append(filteredOut, issues[n])
			mergeGroupSet(groupSets[rep.Key], groupSets[issues[n].Key])
		}
	}

	groups = make(map[issue.IssueKey][]string, len(kept))
	for n := range kept {
		groups[kept[n].Key] = sortedGroupIDs(groupSets[kept[n].Key])
	}
	return kept, filteredOut, groups
}

// outranks reports whether candidate wins the dedup tie-break against the
// current representative.
func (s *IssueViewStore) outranks(candidate, rep issue.Info) bool {
	if candidate.Issue.Severity != rep.Issue.Severity {
		return candidate.Issue.Severity > rep.Issue.Severity
	}
	candidateSeen := s.firstSeenOrZero(candidate.Key)
	repSeen := s.firstSeenOrZero(rep.Key)
	if !candidateSeen.Equal(repSeen) {
		return candidateSeen.Before(repSeen)
	}
	return candidate.Key.String() < rep.Key.String()
}

// sortRanked orders issues descending by severity with a stable
// deterministic secondary order (first-seen ascending, then issue key), so
// equal-severity issues never reorder between recomputes with unchanged
// input.
func (s *IssueViewStore) sortRanked(issues []issue.Info) {
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Issue.Severity != issues[j].Issue.Severity {
			return issues[i].Issue.Severity > issues[j].Issue.Severity
		}
		iSeen := s.firstSeenOrZero(issues[i].Key)
		jSeen := s.firstSeenOrZero(issues[j].Key)
		if !iSeen.Equal(jSeen) {
			return iSeen.Before(jSeen)
		}
		return issues[i].Key.String() < issues[j].Key.String()
	})
}

func (s *IssueViewStore) firstSeenOrZero(key issue.IssueKey) time.Time {
	t, _ := s.dismissals.IssueFirstSeenAt(key)
	return t
}

func (s *IssueViewStore) groupSetForSource(sourceID string) map[string]bool {
	set := make(map[string]bool)
	for _, groupID := range s.registry.GroupsForSource(sourceID) {
		set[groupID] = true
	}
	return set
}

func mergeGroupSet(dst, src map[string]bool) {
	for groupID := range src {
		dst[groupID] = true
	}
}

func sortedGroupIDs(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for groupID := range set {
		out = append(out, groupID)
	}
	sort.Strings(out)
	return out
}

// IssuesDedupedSortedDescFor returns the deduplicated issues of all active
// users in the group, ranked in descending severity order.
func (s *IssueViewStore) IssuesDedupedSortedDescFor(group issue.UserProfileGroup) []issue.Info {
	var out []issue.Info
	for _, userID := range group.AllUserIDs() {
		if !s.resolver.IsUserActive(userID) {
			continue
		}
		if view, ok := s.byUser[userID]; ok {
			out = append(out, view.ranked...)
		}
	}
	s.sortRanked(out)
	return out
}

// CountLoggableIssuesFor counts the deduplicated issues of all active
// users in the group whose sources are configured as loggable.
func (s *IssueViewStore) CountLoggableIssuesFor(group issue.UserProfileGroup) int {
	count := 0
	for _, userID := range group.AllUserIDs() {
		if !s.resolver.IsUserActive(userID) {
			continue
		}
		view, ok := s.byUser[userID]
		if !ok {
			continue
		}
		for n := range view.ranked {
			if s.registry.IsLoggable(view.ranked[n].Key.SourceID) {
				count++
			}
		}
	}
	return count
}

// IssuesForUser returns the unfiltered, pre-dedup issue list from the last
// recompute, for internal consumers.
func (s *IssueViewStore) IssuesForUser(userID issue.UserID) []issue.Info {
	view, ok := s.byUser[userID]
	if !ok {
		return nil
	}
	return copyInfos(view.raw)
}

// MostRecentFilteredOutDuplicateIssues returns the issues dropped as
// duplicates in the most recent recompute for the user. Exactly one
// generation of history: each recompute replaces the previous set.
func (s *IssueViewStore) MostRecentFilteredOutDuplicateIssues(userID issue.UserID) []issue.Info {
	view, ok := s.byUser[userID]
	if !ok {
		return nil
	}
	return copyInfos(view.filteredOut)
}

// GroupMappingFor returns the sorted ids of the groups the given issue is
// relevant to, or nil if no mapping is configured or the issue did not
// survive the last recompute.
func (s *IssueViewStore) GroupMappingFor(key issue.IssueKey) []string {
	view, ok := s.byUser[key.UserID]
	if !ok {
		return nil
	}
	groups, ok := view.groups[key]
	if !ok {
		return nil
	}
	out := make([]string, len(groups))
	copy(out, groups)
	return out
}

// clearForUser drops the user's derived view.
func (s *IssueViewStore) clearForUser(userID issue.UserID) {
	delete(s.byUser, userID)
}

// clear drops all derived views.
func (s *IssueViewStore) clear() {
	s.byUser = make(map[issue.UserID]*userIssueView)
}

func copyInfos(in []issue.Info) []issue.Info {
	if in == nil {
		return nil
	}
	out := make([]issue.Info, len(in))
	copy(out, in)
	return out
}
