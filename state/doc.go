// Package state holds the authoritative in-memory model of the monitored
// line: the latest value per sensor, the latest spectrum per spectral
// channel, the alarm-state table, a bounded event history and the running
// counters.
//
// All access is serialized under one mutex; every operation is in-memory
// only, so the lock is never held across I/O. Writers are the alarm worker
// and engine; readers take consistent copies via View (per tick) or Snapshot
// (UI and notifications), both captured under a single lock acquisition.
package state
