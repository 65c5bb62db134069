// Package api exposes the read side of the pipeline over HTTP: health,
// Prometheus metrics, store snapshots, alarm and event queries, a history
// clear action and a websocket event stream.
//
// Every data endpoint serves copies captured from the store, so handlers
// never hold pipeline locks across a response write. The websocket stream
// gives each client a bounded send queue and drops clients that fall behind;
// a slow dashboard must never back up the bus.
package api
