// Package reconcile implements the compare-and-converge engine shared by
// every resource module: normalization of desired and observed records into
// a canonical comparable shape, field-level drift detection, the four-outcome
// reconciliation state machine (create, update, delete, noop), the bulk
// reorder primitive for ordered rule collections, and bulk delete.
//
// The reconciler is a pure function of its inputs plus the remote state it
// reads: one invocation performs one lookup followed by at most one mutation,
// strictly in that order. Check mode threads through as a boolean and
// suppresses every mutating call while still reporting the predicted
// outcome. Repeat invocations with identical inputs converge to noop; that
// idempotence is the engine's central correctness property.
package reconcile
