// Package domain defines the core entities of the alarm processing pipeline:
// sensor readings and spectra on the way in, alarm keys, states, decisions
// and lifecycle events on the way through, and counters and snapshots on the
// way out.
//
// Timestamps are carried as Unix milliseconds (see pkg/timestamp); every type
// that crosses a wire marshals them as RFC3339 UTC strings. Types are plain
// values: the state store owns the only long-lived copies, everything else
// passes them around or receives copies via snapshots.
package domain
