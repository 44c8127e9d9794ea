// Package config holds the source-of-truth configuration for safetyhub:
// which sources exist, which groups they belong to, and how long dismissed
// issues stay hidden per severity level.
//
// The registry is immutable after construction. The core data layer treats
// it as an opaque validation and lookup provider; it never mutates it.
package config

import (
	"fmt"
	"sort"
	"time"

	"safetyhub/internal/issue"
)

// Source declares one safety source known to the registry.
type Source struct {
	// ID is the unique source identifier.
	ID string

	// PackageName is the only package allowed to report for this source.
	PackageName string

	// Loggable controls whether issues from this source count towards
	// loggable-issue statistics.
	Loggable bool
}

// Group declares a named set of sources presented together.
type Group struct {
	ID        string
	SourceIDs []string
}

// Window is the resurface window for one severity level.
//
// Never means a dismissed issue of that severity stays dismissed forever.
// Otherwise the issue resurfaces once Delay has elapsed since dismissal.
type Window struct {
	Delay time.Duration
	Never bool
}

// Registry is the compiled, validated configuration.
type Registry struct {
	sources        map[string]Source
	groups         []Group // declaration order preserved
	groupsBySource map[string][]string
	windows        map[issue.Severity]Window
}

// NewRegistry builds a registry from declared sources, groups and resurface
// windows.
//
// Validation rules:
//   - source ids are unique and non-empty, with non-empty package names
//   - group ids are unique and only reference declared sources
//
// Severity levels without a configured window default to Never: an
// unconfigured level keeps dismissals sticky rather than silently
// resurfacing issues.
func NewRegistry(sources []Source, groups []Group, windows map[issue.Severity]Window) (*Registry, error) {
	r := &Registry{
		sources:        make(map[string]Source, len(sources)),
		groupsBySource: make(map[string][]string),
		windows:        make(map[issue.Severity]Window, len(windows)),
	}

	for _, s := range sources {
		if s.ID == "" {
			return nil, fmt.Errorf("source with empty id")
		}
		if s.PackageName == "" {
			return nil, fmt.Errorf("source %s: empty package name", s.ID)
		}
		if _, ok := r.sources[s.ID]; ok {
			return nil, fmt.Errorf("duplicate source id: %s", s.ID)
		}
		r.sources[s.ID] = s
	}

	seenGroups := make(map[string]bool, len(groups))
	for _, g := range groups {
		if g.ID == "" {
			return nil, fmt.Errorf("group with empty id")
		}
		if seenGroups[g.ID] {
			return nil, fmt.Errorf("duplicate group id: %s", g.ID)
		}
		seenGroups[g.ID] = true
		for _, sourceID := range g.SourceIDs {
			if _, ok := r.sources[sourceID]; !ok {
				return nil, fmt.Errorf("group %s: unknown source %s", g.ID, sourceID)
			}
			r.groupsBySource[sourceID] = append(r.groupsBySource[sourceID], g.ID)
		}
		r.groups = append(r.groups, g)
	}

	for sev, w := range windows {
		if w.Delay < 0 {
			return nil, fmt.Errorf("severity %s: negative resurface delay", sev)
		}
		r.windows[sev] = w
	}

	return r, nil
}

// Source returns the declared source with the given id.
func (r *Registry) Source(sourceID string) (Source, bool) {
	s, ok := r.sources[sourceID]
	return s, ok
}

// SourceIDs returns all declared source ids in lexical order.
func (r *Registry) SourceIDs() []string {
	ids := make([]string, 0, len(r.sources))
	for id := range r.sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsLoggable reports whether the given source counts towards loggable-issue
// statistics. Unknown sources are not loggable.
func (r *Registry) IsLoggable(sourceID string) bool {
	s, ok := r.sources[sourceID]
	return ok && s.Loggable
}

// Groups returns all declared groups in declaration order.
func (r *Registry) Groups() []Group {
	return r.groups
}

// GroupsForSource returns the ids of all groups configured to include the
// given source, in declaration order. Empty for unknown or ungrouped
// sources.
func (r *Registry) GroupsForSource(sourceID string) []string {
	return r.groupsBySource[sourceID]
}

// ResurfaceWindow returns the dismissal resurface window for a severity
// level. Unconfigured levels never resurface.
func (r *Registry) ResurfaceWindow(severity issue.Severity) Window {
	if w, ok := r.windows[severity]; ok {
		return w
	}
	return Window{Never: true}
}
