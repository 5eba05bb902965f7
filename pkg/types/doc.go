// Package types defines the shared data model of the analysis engine:
// requests, per-worker results, phase outcomes and the final result
// envelope handed back to the caller.
//
// All failure states are modeled as values. A worker fault never leaves
// the scheduler as an error; it is folded into a WorkerResult and later
// into the confidence accounting.
package types
