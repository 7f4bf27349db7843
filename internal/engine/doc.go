// Package engine implements the entrain co-simulation core.
//
// The engine advances a hierarchy of independently-paced nodes in
// lockstep without letting any node run ahead of the rest, and lets
// nodes interact through a shared broker (the Opera) of scheduled,
// priority-ordered side effects.
//
// ARCHITECTURE:
//
// Single-Writer Step Loop:
// All mutation happens synchronously inside a single Step call. This
// ensures:
// - Predictable advance order (children first, insertion order)
// - Reproducible execution logs across runs
// - Simple reasoning about causality between node advances and broker
//   actions
//
// Step Processing Flow:
//  1. Compute the frontier: the minimum projected time across the whole
//     tree, folded with the earliest pending future action.
//  2. Pre-step sweep: PreAdvance(frontier) on every node, pre-order,
//     exactly once per external Step call.
//  3. Recursive advance: depth-first; a node advances only when its own
//     projected time equals the frontier exactly.
//  4. Root-only post-step: drain immediate actions until empty, execute
//     due futures, run every control.
//
// CRITICAL PATTERNS:
//
// Insertion Sequence:
// Every broker entry is stamped with a monotonic seq counter. Ties
// between equal-priority immediates and simultaneously-due futures are
// broken by seq. NEVER order broker entries by anything else.
//
// Strict Frontier Equality:
// A node whose projected time is greater than the frontier is skipped,
// not advanced. Advancing it would let it front-run slower nodes and
// corrupt every downstream interaction ordering.
//
// One Broker Per Component:
// Every node of a connected hierarchy shares exactly one Opera and one
// directory. Attach merges the two; detach splits them along action
// ownership. No other sharing exists.
package engine
