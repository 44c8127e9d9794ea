package data

import (
	"log/slog"
	"sort"
	"time"

	"safetyhub/internal/config"
	"safetyhub/internal/issue"
)

// PersistedDismissal is the durable shape of one dismissal record.
//
// Only dismissal-related state is persisted across restarts: first-seen,
// issue-dismissed-at and notification-dismissed-at, keyed by issue key.
// Raw source data and in-flight actions always start empty after a restart.
type PersistedDismissal struct {
	Key                     issue.IssueKey
	FirstSeenAt             time.Time
	IssueDismissedAt        *time.Time
	NotificationDismissedAt *time.Time
}

// Persister loads and saves dismissal records.
//
// Implementations are external collaborators (see internal/persist for the
// SQLite-backed one). Load is called at startup before the first read; Save
// is triggered externally, never by the data layer on each mutation.
type Persister interface {
	Load() ([]PersistedDismissal, error)
	Save(records []PersistedDismissal) error
}

// dismissalRecord tracks per-issue user interactions that must survive
// across reporting events. firstSeenAt is immutable once set. The two
// dismissal instants are independent: dismissing a notification does not
// dismiss the issue.
type dismissalRecord struct {
	firstSeenAt             time.Time
	issueDismissedAt        *time.Time
	notificationDismissedAt *time.Time
}

// DismissalStore holds dismissal timestamps and first-seen instants per
// issue key, and answers time-relative "is dismissed now" queries using
// severity-dependent resurface windows.
//
// "Dismissed" is a computed predicate, not a stored boolean: it is
// re-evaluated on every call against the current clock, so dismissed issues
// resurface lazily without timers.
type DismissalStore struct {
	clock    Clock
	registry *config.Registry
	records  map[issue.IssueKey]*dismissalRecord
}

func newDismissalStore(clock Clock, registry *config.Registry) *DismissalStore {
	return &DismissalStore{
		clock:    clock,
		registry: registry,
		records:  make(map[issue.IssueKey]*dismissalRecord),
	}
}

// IsIssueDismissed returns true iff a dismissal instant is recorded and the
// elapsed time since dismissal is still inside the resurface window for the
// given severity. Unknown keys are never dismissed.
func (s *DismissalStore) IsIssueDismissed(key issue.IssueKey, severity issue.Severity) bool {
	rec, ok := s.records[key]
	if !ok {
		return false
	}
	return s.dismissedNow(rec.issueDismissedAt, severity)
}

// IsNotificationDismissedNow returns true iff the notification-dismissal
// predicate holds under the same window rule, or the issue itself is
// currently dismissed (a dismissed issue's notification counts as
// dismissed too).
func (s *DismissalStore) IsNotificationDismissedNow(key issue.IssueKey, severity issue.Severity) bool {
	rec, ok := s.records[key]
	if !ok {
		return false
	}
	return s.dismissedNow(rec.notificationDismissedAt, severity) ||
		s.dismissedNow(rec.issueDismissedAt, severity)
}

// DismissIssue records an issue dismissal at the current instant.
// Notification-dismissal state is not altered.
func (s *DismissalStore) DismissIssue(key issue.IssueKey) {
	rec := s.getOrCreate(key)
	now := s.clock.Now()
	rec.issueDismissedAt = &now
}

// DismissNotification records a notification dismissal at the current
// instant, independent of issue dismissal.
func (s *DismissalStore) DismissNotification(key issue.IssueKey) {
	rec := s.getOrCreate(key)
	now := s.clock.Now()
	rec.notificationDismissedAt = &now
}

// IssueFirstSeenAt returns the instant the issue key was first observed.
// Set exactly once, never updated thereafter. ok is false if the key has
// never been observed.
func (s *DismissalStore) IssueFirstSeenAt(key issue.IssueKey) (time.Time, bool) {
	rec, ok := s.records[key]
	if !ok {
		return time.Time{}, false
	}
	return rec.firstSeenAt, true
}

// noteObserved creates the record for a newly observed issue key, stamping
// first-seen. Existing records are untouched (first-seen immutability).
func (s *DismissalStore) noteObserved(key issue.IssueKey) {
	s.getOrCreate(key)
}

func (s *DismissalStore) getOrCreate(key issue.IssueKey) *dismissalRecord {
	rec, ok := s.records[key]
	if !ok {
		rec = &dismissalRecord{firstSeenAt: s.clock.Now()}
		s.records[key] = rec
	}
	return rec
}

// dismissedNow evaluates the time-windowed dismissal predicate for one
// recorded instant. A nil instant means never dismissed. A Never window
// keeps the dismissal sticky forever; otherwise the dismissal expires once
// the severity's delay has elapsed.
func (s *DismissalStore) dismissedNow(dismissedAt *time.Time, severity issue.Severity) bool {
	if dismissedAt == nil {
		return false
	}
	window := s.registry.ResurfaceWindow(severity)
	if window.Never {
		return true
	}
	return s.clock.Now().Sub(*dismissedAt) < window.Delay
}

// clearForSource drops all dismissal records belonging to the given source
// and user. Called when a source's data entry is evicted.
func (s *DismissalStore) clearForSource(sourceID string, userID issue.UserID) {
	for key := range s.records {
		if key.SourceID == sourceID && key.UserID == userID {
			delete(s.records, key)
		}
	}
}

// LoadState hydrates dismissal records from the persister.
//
// In-memory records take precedence: only unknown keys are hydrated. A
// failed or empty load degrades to "no dismissal state available" - serving
// undismissed issues beats refusing to serve data - so the error is logged
// and swallowed.
func (s *DismissalStore) LoadState(p Persister) {
	if p == nil {
		return
	}
	records, err := p.Load()
	if err != nil {
		slog.Warn("loading persisted dismissal state failed, starting empty", "error", err)
		return
	}
	loaded := 0
	for _, pr := range records {
		if _, ok := s.records[pr.Key]; ok {
			continue
		}
		s.records[pr.Key] = &dismissalRecord{
			firstSeenAt:             pr.FirstSeenAt,
			issueDismissedAt:        copyInstant(pr.IssueDismissedAt),
			notificationDismissedAt: copyInstant(pr.NotificationDismissedAt),
		}
		loaded++
	}
	slog.Debug("loaded persisted dismissal state", "records", loaded)
}

// Snapshot returns all records in persistable form, ordered by issue key
// for deterministic saves.
func (s *DismissalStore) Snapshot() []PersistedDismissal {
	out := make([]PersistedDismissal, 0, len(s.records))
	for key, rec := range s.records {
		out = append(out, PersistedDismissal{
			Key:                     key,
			FirstSeenAt:             rec.firstSeenAt,
			IssueDismissedAt:        copyInstant(rec.issueDismissedAt),
			NotificationDismissedAt: copyInstant(rec.notificationDismissedAt),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key.String() < out[j].Key.String()
	})
	return out
}

// clearForUser drops all records for the given user. Records outside scope
// are untouched, preserving their first-seen instants.
func (s *DismissalStore) clearForUser(userID issue.UserID) {
	for key := range s.records {
		if key.UserID == userID {
			delete(s.records, key)
		}
	}
}

// clear drops all records.
func (s *DismissalStore) clear() {
	s.records = make(map[issue.IssueKey]*dismissalRecord)
}

func copyInstant(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
