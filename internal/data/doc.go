// Package data is the in-memory state-coordination core of safetyhub.
//
// It holds four cooperating repositories - source data, dismissals,
// in-flight actions, and the derived issue view - behind a single
// Coordinator entry point. On every mutation that could change the derived
// view, the Coordinator synchronously recomputes the view for the affected
// user scope before returning, so a read issued after a completed write can
// never observe stale derived state.
//
// Thread-safety model: the package is NOT internally thread-safe. All
// operations assume one coarse-grained mutual-exclusion scope held by the
// caller. Concurrent invocation without external locking is undefined
// behavior. This keeps the consistency rule auditable in one place instead
// of spreading lock ordering across four stores.
//
// No operation blocks on I/O or yields mid-mutation. Persistence and
// telemetry are synchronous external calls made at well-defined points:
// dismissal state loads at startup before the first read, saves are
// triggered externally, and telemetry fires exactly once per effective
// in-flight unmark.
package data
