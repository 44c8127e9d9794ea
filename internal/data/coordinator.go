package data

import (
	"log/slog"
	"time"

	"safetyhub/internal/config"
	"safetyhub/internal/issue"
	"safetyhub/internal/telemetry"
)

// Coordinator is the single entry point mutating the four repositories.
//
// It owns no data itself; it owns the consistency rule: after any mutator
// reports a change, the derived issue view is recomputed synchronously for
// exactly the affected scope before the mutator returns. Reads are pure
// pass-through delegations to the owning store and never recompute.
//
// Construction wires the stores explicitly; there are no ambient
// singletons. Lifecycle runs from service start to process end, with
// explicit per-user and full clears.
//
// NOT thread-safe: see the package documentation for the single-writer
// contract.
type Coordinator struct {
	clock    Clock
	registry *config.Registry
	resolver UserResolver

	sources    *SourceDataStore
	dismissals *DismissalStore
	inflight   *InFlightStore
	view       *IssueViewStore
}

// Option configures a Coordinator at construction time.
type Option func(*options)

type options struct {
	clock Clock
	sink  telemetry.Sink
	ids   telemetry.IDGenerator
}

// WithClock overrides the wall clock. Tests use a deterministic clock to
// simulate elapsed time instead of sleeping.
func WithClock(clock Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithTelemetrySink overrides the telemetry sink remediation outcomes are
// reported to.
func WithTelemetrySink(sink telemetry.Sink) Option {
	return func(o *options) { o.sink = sink }
}

// WithIDGenerator overrides the telemetry event id generator.
func WithIDGenerator(ids telemetry.IDGenerator) Option {
	return func(o *options) { o.ids = ids }
}

// NewCoordinator wires the four stores around the given registry and user
// resolver.
func NewCoordinator(registry *config.Registry, resolver UserResolver, opts ...Option) *Coordinator {
	o := &options{
		clock: SystemClock(),
		sink:  telemetry.SlogSink{},
		ids:   telemetry.UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(o)
	}

	dismissals := newDismissalStore(o.clock, registry)
	inflight := newInFlightStore(o.clock, o.sink, o.ids)
	sources := newSourceDataStore(o.clock, registry, dismissals, inflight)
	view := newIssueViewStore(registry, sources, dismissals, resolver)

	return &Coordinator{
		clock:      o.clock,
		registry:   registry,
		resolver:   resolver,
		sources:    sources,
		dismissals: dismissals,
		inflight:   inflight,
		view:       view,
	}
}

// LoadPersistedState hydrates dismissal and first-seen records from the
// persister. Must be called at startup before the first read; raw source
// data and in-flight actions always start empty.
func (c *Coordinator) LoadPersistedState(p Persister) {
	c.dismissals.LoadState(p)
}

// PersistableSnapshot returns the dismissal records in durable form for an
// externally triggered save.
func (c *Coordinator) PersistableSnapshot() []PersistedDismissal {
	return c.dismissals.Snapshot()
}

// SetSourceData sets the latest payload for the given source and returns
// true if this changed the externally visible aggregated view.
//
// A nil payload evicts the entry and clears the source's dismissal
// records. Fails with InvalidRequestError if the registry does not declare
// the (source, package, user) combination.
func (c *Coordinator) SetSourceData(payload *issue.Payload, sourceID, packageName string, userID issue.UserID) (bool, error) {
	changed, err := c.sources.SetData(payload, sourceID, packageName, userID)
	if err != nil {
		return false, err
	}
	if changed {
		c.view.updateIssuesForUser(userID)
	}
	return changed, nil
}

// DismissIssue marks the issue as dismissed at the current instant. The
// issue's notification counts as dismissed too for as long as the issue
// dismissal holds.
func (c *Coordinator) DismissIssue(key issue.IssueKey) {
	c.dismissals.DismissIssue(key)
	c.view.updateIssuesForUser(key.UserID)
}

// DismissNotification marks the issue's notification as dismissed. The
// issue itself is not dismissed and stays in the ranked view.
func (c *Coordinator) DismissNotification(key issue.IssueKey) {
	c.dismissals.DismissNotification(key)
	c.view.updateIssuesForUser(key.UserID)
}

// ReportSourceError marks the source as errored, keeping its last-known
// payload inspectable, and returns true if this changed the aggregated
// view. Fails with InvalidRequestError on undeclared combinations.
func (c *Coordinator) ReportSourceError(sourceID, packageName string, userID issue.UserID) (bool, error) {
	changed, err := c.sources.ReportError(sourceID, packageName, userID)
	if err != nil {
		return false, err
	}
	if changed {
		c.view.updateIssuesForUser(userID)
	}
	return changed, nil
}

// MarkRefreshTimedOut marks the source as errored because its refresh
// deadline passed without a response. Returns true if this changed the
// aggregated view.
func (c *Coordinator) MarkRefreshTimedOut(key issue.SourceKey) bool {
	changed := c.sources.MarkRefreshTimedOut(key)
	if changed {
		c.view.updateIssuesForUser(key.UserID)
	}
	return changed
}

// ClearSourceErrors clears error flags for all sources covering the group,
// used when a new refresh cycle starts.
func (c *Coordinator) ClearSourceErrors(group issue.UserProfileGroup) {
	c.sources.ClearErrors(group)
	c.view.updateIssuesForGroup(group)
}

// MarkActionInFlight marks the remediation action as executing. Idempotent.
func (c *Coordinator) MarkActionInFlight(actionID issue.IssueActionID) {
	c.inflight.MarkInFlight(actionID)
	c.view.updateIssuesForUser(actionID.IssueKey.UserID)
}

// UnmarkActionInFlight removes the action from the pending set, reports
// the outcome to telemetry, and returns true if this changed the
// aggregated view. Unmarking an absent action is a no-op returning false.
func (c *Coordinator) UnmarkActionInFlight(actionID issue.IssueActionID, snapshot *issue.Issue, outcome telemetry.Outcome) bool {
	changed := c.inflight.UnmarkInFlight(actionID, snapshot, outcome)
	if changed {
		c.view.updateIssuesForUser(actionID.IssueKey.UserID)
	}
	return changed
}

// ClearForUser drops all state for the user across all four stores. Other
// users' state is untouched.
func (c *Coordinator) ClearForUser(userID issue.UserID) {
	c.sources.clearForUser(userID)
	c.inflight.clearForUser(userID)
	c.dismissals.clearForUser(userID)
	c.view.clearForUser(userID)
	slog.Debug("cleared all state for user", "user_id", userID)
}

// Clear drops all stored state across all four stores.
func (c *Coordinator) Clear() {
	c.sources.clear()
	c.dismissals.clear()
	c.inflight.clear()
	c.view.clear()
	slog.Debug("cleared all state")
}

// IsIssueDismissed reports whether the issue is currently dismissed under
// the severity's resurface window.
func (c *Coordinator) IsIssueDismissed(key issue.IssueKey, severity issue.Severity) bool {
	return c.dismissals.IsIssueDismissed(key, severity)
}

// IsNotificationDismissedNow reports whether the issue's notification is
// dismissed now, either directly or because the issue itself is dismissed.
func (c *Coordinator) IsNotificationDismissedNow(key issue.IssueKey, severity issue.Severity) bool {
	return c.dismissals.IsNotificationDismissedNow(key, severity)
}

// IssueFirstSeenAt returns the instant the issue was first observed; ok is
// false if the key has never been observed.
func (c *Coordinator) IssueFirstSeenAt(key issue.IssueKey) (time.Time, bool) {
	return c.dismissals.IssueFirstSeenAt(key)
}

// IssuesDedupedSortedDescFor returns the ranked, deduplicated issues of
// all active users in the group.
func (c *Coordinator) IssuesDedupedSortedDescFor(group issue.UserProfileGroup) []issue.Info {
	return c.view.IssuesDedupedSortedDescFor(group)
}

// CountLoggableIssuesFor counts ranked issues from loggable sources for
// all active users in the group.
func (c *Coordinator) CountLoggableIssuesFor(group issue.UserProfileGroup) int {
	return c.view.CountLoggableIssuesFor(group)
}

// IssuesForUser returns the unfiltered, pre-dedup issues for the user.
func (c *Coordinator) IssuesForUser(userID issue.UserID) []issue.Info {
	return c.view.IssuesForUser(userID)
}

// MostRecentFilteredOutDuplicateIssues returns the issues dropped as
// duplicates in the most recent recompute for the user.
func (c *Coordinator) MostRecentFilteredOutDuplicateIssues(userID issue.UserID) []issue.Info {
	return c.view.MostRecentFilteredOutDuplicateIssues(userID)
}

// GroupMappingFor returns the ids of the groups the issue is relevant to.
func (c *Coordinator) GroupMappingFor(key issue.IssueKey) []string {
	return c.view.GroupMappingFor(key)
}

// ActionIsInFlight reports whether the remediation action is executing.
func (c *Coordinator) ActionIsInFlight(actionID issue.IssueActionID) bool {
	return c.inflight.ActionIsInFlight(actionID)
}

// SourceData returns the last-known payload for the source after request
// validation. Nil if never reported or evicted.
func (c *Coordinator) SourceData(sourceID, packageName string, userID issue.UserID) (*issue.Payload, error) {
	return c.sources.Data(sourceID, packageName, userID)
}

// SourceDataForKey returns the last-known payload without validation.
func (c *Coordinator) SourceDataForKey(key issue.SourceKey) *issue.Payload {
	return c.sources.DataForKey(key)
}

// SourceHasError reports whether the source is flagged as errored.
func (c *Coordinator) SourceHasError(key issue.SourceKey) bool {
	return c.sources.HasError(key)
}

// SourceState returns the source's current data/error state.
func (c *Coordinator) SourceState(key issue.SourceKey) SourceState {
	return c.sources.State(key)
}

// SourceLastUpdated returns the instant the source's entry last changed,
// or the zero time if it never did.
func (c *Coordinator) SourceLastUpdated(key issue.SourceKey) time.Time {
	return c.sources.LastUpdated(key)
}

// Issue returns the issue from its source's latest payload, or nil.
func (c *Coordinator) Issue(key issue.IssueKey) *issue.Issue {
	return c.sources.Issue(key)
}

// IssueAction returns the remediation action, or nil if its issue is
// missing or dismissed, or if the action is in flight.
func (c *Coordinator) IssueAction(actionID issue.IssueActionID) *issue.Action {
	return c.sources.Action(actionID)
}
