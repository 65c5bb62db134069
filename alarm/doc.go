// Package alarm contains the rule evaluation and lifecycle half of the
// pipeline: stateless criteria that turn store contents into decisions, the
// engine that turns decisions into lifecycle transitions, and the worker
// loop that drives one tick per reading.
//
// Criteria are pure: they read a captured state.View and return decisions,
// no I/O and no mutation. The engine is the sole writer of alarm-state
// transitions, which makes transition order per key total. For any key the
// emitted sequence is a valid string in (RAISED (UPDATED)* CLEARED)*.
package alarm
