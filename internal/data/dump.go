package data

import (
	"fmt"
	"io"
	"sort"
	"time"

	"safetyhub/internal/issue"
)

// Dump writes a human-readable snapshot of all four stores for debugging.
// Output ordering is fully deterministic so dumps are golden-testable.
func (c *Coordinator) Dump(w io.Writer) {
	c.sources.dumpTo(w)
	c.dismissals.dumpTo(w)
	c.inflight.dumpTo(w)
	c.view.dumpTo(w)
}

func dumpInstant(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func dumpOptionalInstant(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return dumpInstant(*t)
}

func (s *SourceDataStore) dumpTo(w io.Writer) {
	fmt.Fprintln(w, "=== source data ===")

	keys := make([]issue.SourceKey, 0, len(s.lastUpdated))
	seen := make(map[issue.SourceKey]bool, len(s.lastUpdated))
	for key := range s.lastUpdated {
		keys = append(keys, key)
		seen[key] = true
	}
	// Errored-only entries created via MarkRefreshTimedOut always carry a
	// last-update instant, but keep the union anyway.
	for key := range s.entries {
		if !seen[key] {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	for _, key := range keys {
		entry := s.entries[key]
		issueCount := 0
		if entry != nil && entry.payload != nil {
			issueCount = len(entry.payload.Issues)
		}
		fmt.Fprintf(w, "  %s: state=%s issues=%d last_updated=%s\n",
			key, entry.state(), issueCount, dumpInstant(s.lastUpdated[key]))
	}
	fmt.Fprintf(w, "  total entries: %d\n", len(s.entries))
}

func (s *DismissalStore) dumpTo(w io.Writer) {
	fmt.Fprintln(w, "=== dismissals ===")
	for _, rec := range s.Snapshot() {
		fmt.Fprintf(w, "  %s: first_seen=%s issue_dismissed_at=%s notification_dismissed_at=%s\n",
			rec.Key,
			dumpInstant(rec.FirstSeenAt),
			dumpOptionalInstant(rec.IssueDismissedAt),
			dumpOptionalInstant(rec.NotificationDismissedAt))
	}
	fmt.Fprintf(w, "  total records: %d\n", len(s.records))
}

func (s *InFlightStore) dumpTo(w io.Writer) {
	fmt.Fprintln(w, "=== in-flight actions ===")

	ids := make([]issue.IssueActionID, 0, len(s.actions))
	for id := range s.actions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	for _, id := range ids {
		fmt.Fprintf(w, "  %s: marked_at=%s\n", id, dumpInstant(s.actions[id]))
	}
	fmt.Fprintf(w, "  total pending: %d\n", len(s.actions))
}

func (s *IssueViewStore) dumpTo(w io.Writer) {
	fmt.Fprintln(w, "=== issue view ===")

	userIDs := make([]issue.UserID, 0, len(s.byUser))
	for userID := range s.byUser {
		userIDs = append(userIDs, userID)
	}
	sort.Slice(userIDs, func(i, j int) bool { return userIDs[i] < userIDs[j] })

	for _, userID := range userIDs {
		view := s.byUser[userID]
		fmt.Fprintf(w, "  user %d:\n", userID)
		fmt.Fprintf(w, "    ranked (%d):\n", len(view.ranked))
		for n, info := range view.ranked {
			fmt.Fprintf(w, "      %d. %s severity=%s\n", n+1, info.Key, info.Issue.Severity)
		}
		fmt.Fprintf(w, "    filtered duplicates (%d):\n", len(view.filteredOut))
		for _, info := range view.filteredOut {
			fmt.Fprintf(w, "      %s severity=%s\n", info.Key, info.Issue.Severity)
		}
		fmt.Fprintf(w, "    group mapping (%d):\n", len(view.groups))
		mappingKeys := make([]issue.IssueKey, 0, len(view.groups))
		for key := range view.groups {
			mappingKeys = append(mappingKeys, key)
		}
		sort.Slice(mappingKeys, func(i, j int) bool {
			return mappingKeys[i].String() < mappingKeys[j].String()
		})
		for _, key := range mappingKeys {
			fmt.Fprintf(w, "      %s -> %v\n", key, view.groups[key])
		}
	}
}
