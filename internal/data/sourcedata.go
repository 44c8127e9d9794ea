package data

import (
	"log/slog"
	"sort"
	"time"

	"safetyhub/internal/config"
	"safetyhub/internal/issue"
)

// SourceState describes what a source entry currently holds. Data and
// error coexist: a source that errors after a successful report keeps its
// last-known payload alongside the error flag.
type SourceState int

const (
	// SourceStateNoData means the source never reported, or its entry was
	// evicted.
	SourceStateNoData SourceState = iota

	// SourceStateHasData means the source holds a payload and no error.
	SourceStateHasData

	// SourceStateHasError means the source is errored with no payload.
	SourceStateHasError

	// SourceStateHasDataAndError means the source is errored but still
	// holds its last-known payload.
	SourceStateHasDataAndError
)

// String returns the state's dump form.
func (s SourceState) String() string {
	switch s {
	case SourceStateNoData:
		return "no-data"
	case SourceStateHasData:
		return "data"
	case SourceStateHasError:
		return "error"
	case SourceStateHasDataAndError:
		return "data+error"
	default:
		return "unknown"
	}
}

// sourceEntry holds what one source last reported. payload and hasError
// are not mutually exclusive; a nil payload with hasError unset never
// occurs (such entries are deleted instead).
type sourceEntry struct {
	payload  *issue.Payload
	hasError bool
}

func (e *sourceEntry) state() SourceState {
	switch {
	case e == nil:
		return SourceStateNoData
	case e.payload != nil && e.hasError:
		return SourceStateHasDataAndError
	case e.payload != nil:
		return SourceStateHasData
	case e.hasError:
		return SourceStateHasError
	default:
		return SourceStateNoData
	}
}

// SourceDataStore holds the latest reported payload or error flag per
// source key, plus the last-update instant used for staleness display.
//
// Last-update instants deliberately survive eviction and error transitions;
// only per-user clears remove them.
type SourceDataStore struct {
	clock      Clock
	validator  validator
	dismissals *DismissalStore
	inflight   *InFlightStore

	entries     map[issue.SourceKey]*sourceEntry
	lastUpdated map[issue.SourceKey]time.Time
}

func newSourceDataStore(clock Clock, registry *config.Registry, dismissals *DismissalStore, inflight *InFlightStore) *SourceDataStore {
	return &SourceDataStore{
		clock:       clock,
		validator:   validator{registry: registry},
		dismissals:  dismissals,
		inflight:    inflight,
		entries:     make(map[issue.SourceKey]*sourceEntry),
		lastUpdated: make(map[issue.SourceKey]time.Time),
	}
}

// SetData replaces the latest payload for the given source, after
// validating the request against the registry.
//
// A nil payload evicts the entry and drops all dismissal records for that
// source's issues. Otherwise the payload replaces the entry and clears any
// error flag.
//
// Returns whether the new state differs observably from the prior one
// (issue set, severities or error status changed).
func (s *SourceDataStore) SetData(payload *issue.Payload, sourceID, packageName string, userID issue.UserID) (bool, error) {
	if err := s.validator.validateRequest(sourceID, packageName, userID); err != nil {
		return false, err
	}
	key := issue.SourceKey{SourceID: sourceID, PackageName: packageName, UserID: userID}
	now := s.clock.Now()

	if payload == nil {
		old, ok := s.entries[key]
		delete(s.entries, key)
		s.dismissals.clearForSource(sourceID, userID)
		if !ok {
			return false, nil
		}
		s.lastUpdated[key] = now
		slog.Debug("source data evicted", "source_key", key)
		return old.state() != SourceStateNoData, nil
	}

	old := s.entries[key]
	changed := old.state() != SourceStateHasData || !old.payload.Equal(payload)
	s.entries[key] = &sourceEntry{payload: clonePayload(payload)}
	s.lastUpdated[key] = now
	return changed, nil
}

// ReportError marks the source as errored without discarding previously
// reported data, after validating the request against the registry.
//
// Returns whether this is a state transition (not-errored to errored).
func (s *SourceDataStore) ReportError(sourceID, packageName string, userID issue.UserID) (bool, error) {
	if err := s.validator.validateRequest(sourceID, packageName, userID); err != nil {
		return false, err
	}
	key := issue.SourceKey{SourceID: sourceID, PackageName: packageName, UserID: userID}
	return s.setError(key), nil
}

// MarkRefreshTimedOut marks the source as errored because no response
// arrived within the refresh deadline. Equivalent to ReportError, distinct
// trigger only; no request validation since the key originates internally.
func (s *SourceDataStore) MarkRefreshTimedOut(key issue.SourceKey) bool {
	return s.setError(key)
}

func (s *SourceDataStore) setError(key issue.SourceKey) bool {
	entry, ok := s.entries[key]
	if !ok {
		entry = &sourceEntry{}
		s.entries[key] = entry
	}
	changed := !entry.hasError
	entry.hasError = true
	s.lastUpdated[key] = s.clock.Now()
	return changed
}

// ClearErrors clears error flags for all sources covering the given
// user-profile-group, so stale errors do not linger into a new refresh
// cycle. Entries holding only an error flag revert to no-data.
func (s *SourceDataStore) ClearErrors(group issue.UserProfileGroup) {
	for key, entry := range s.entries {
		if !group.Contains(key.UserID) {
			continue
		}
		entry.hasError = false
		if entry.payload == nil {
			delete(s.entries, key)
		}
	}
}

// Data returns the last-known payload for the given source after
// validating the request. Nil if the source never reported or its entry
// was evicted. The error flag does not hide the payload.
func (s *SourceDataStore) Data(sourceID, packageName string, userID issue.UserID) (*issue.Payload, error) {
	if err := s.validator.validateRequest(sourceID, packageName, userID); err != nil {
		return nil, err
	}
	return s.DataForKey(issue.SourceKey{SourceID: sourceID, PackageName: packageName, UserID: userID}), nil
}

// DataForKey returns the last-known payload for the given key without any
// request validation.
func (s *SourceDataStore) DataForKey(key issue.SourceKey) *issue.Payload {
	entry, ok := s.entries[key]
	if !ok {
		return nil
	}
	return clonePayload(entry.payload)
}

// HasError reports whether the source is currently flagged as errored.
func (s *SourceDataStore) HasError(key issue.SourceKey) bool {
	entry, ok := s.entries[key]
	return ok && entry.hasError
}

// State returns the current state of the given source key.
func (s *SourceDataStore) State(key issue.SourceKey) SourceState {
	return s.entries[key].state()
}

// LastUpdated returns the instant the source's entry last changed, or the
// zero time if no update has occurred. Survives eviction and errors.
func (s *SourceDataStore) LastUpdated(key issue.SourceKey) time.Time {
	return s.lastUpdated[key]
}

// Issue returns the issue with the given key from its source's latest
// payload, or nil if the issue is not currently part of it.
func (s *SourceDataStore) Issue(key issue.IssueKey) *issue.Issue {
	sourceKey, ok := s.validator.sourceKeyFor(key)
	if !ok {
		return nil
	}
	entry, ok := s.entries[sourceKey]
	if !ok {
		return nil
	}
	found := entry.payload.Issue(key.IssueID)
	if found == nil {
		return nil
	}
	c := cloneIssue(*found)
	return &c
}

// Action returns the remediation action with the given id.
//
// Returns nil if the owning issue is not part of the latest payload, if
// the issue is currently dismissed, or if the action is in flight -
// in-flight actions are unavailable for re-triggering until they complete.
func (s *SourceDataStore) Action(actionID issue.IssueActionID) *issue.Action {
	iss := s.Issue(actionID.IssueKey)
	if iss == nil {
		return nil
	}
	if s.dismissals.IsIssueDismissed(actionID.IssueKey, iss.Severity) {
		return nil
	}
	if s.inflight.ActionIsInFlight(actionID) {
		return nil
	}
	for n := range iss.Actions {
		if iss.Actions[n].ID == actionID.ActionID {
			a := iss.Actions[n]
			return &a
		}
	}
	return nil
}

// issuesForUser gathers all issues reported for the user by non-errored
// sources, in deterministic source-key order. This is the raw input of the
// derived view recompute; dismissal filtering and dedup happen there.
func (s *SourceDataStore) issuesForUser(userID issue.UserID) []issue.Info {
	keys := make([]issue.SourceKey, 0, len(s.entries))
	for key, entry := range s.entries {
		if key.UserID != userID || entry.hasError || entry.payload == nil {
			continue
		}
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})

	var out []issue.Info
	for _, key := range keys {
		entry := s.entries[key]
		for _, iss := range entry.payload.Issues {
			out = append(out, issue.Info{
				Issue:       cloneIssue(iss),
				Key:         issue.IssueKey{SourceID: key.SourceID, IssueID: iss.ID, UserID: userID},
				PackageName: key.PackageName,
			})
		}
	}
	return out
}

// clearForUser drops all entries and last-update instants for the user.
func (s *SourceDataStore) clearForUser(userID issue.UserID) {
	for key := range s.entries {
		if key.UserID == userID {
			delete(s.entries, key)
		}
	}
	for key := range s.lastUpdated {
		if key.UserID == userID {
			delete(s.lastUpdated, key)
		}
	}
}

// clear drops all entries and last-update instants.
func (s *SourceDataStore) clear() {
	s.entries = make(map[issue.SourceKey]*sourceEntry)
	s.lastUpdated = make(map[issue.SourceKey]time.Time)
}

// clonePayload deep-copies a payload so callers cannot mutate store state
// through retained references.
func clonePayload(p *issue.Payload) *issue.Payload {
	if p == nil {
		return nil
	}
	c := &issue.Payload{Issues: make([]issue.Issue, len(p.Issues))}
	for n := range p.Issues {
		c.Issues[n] = cloneIssue(p.Issues[n])
	}
	return c
}

func cloneIssue(i issue.Issue) issue.Issue {
	c := i
	if i.Actions != nil {
		c.Actions = make([]issue.Action, len(i.Actions))
		copy(c.Actions, i.Actions)
	}
	return c
}
