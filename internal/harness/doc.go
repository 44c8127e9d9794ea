// Package harness provides a scenario-driven conformance harness for the
// aggregation core.
//
// A scenario is a YAML file describing a sequence of mutations against a
// freshly wired coordinator: source reports, dismissals, in-flight action
// bookkeeping and simulated time advances. The harness executes the steps
// with a deterministic clock and fixed telemetry event ids, then renders
// the step trace, the emitted telemetry and the final state dump into one
// report compared against a golden file.
//
// Scenarios exercise the real coordinator, not a stub: every changed
// mutation recomputes the derived issue view exactly as in production, so
// golden reports pin down dedup, ranking and resurface behavior end to end.
package harness
