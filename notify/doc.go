// Package notify is the outbound side of the pipeline: a bus subscriber that
// joins each alarm event with the store's running totals into a delivery
// payload, a bounded pending queue, a webhook worker that POSTs payloads with
// retry, and an optional NATS bridge.
//
// Delivery is best effort by contract. The queue drops oldest on overflow and
// the worker's failures never propagate upstream: a dead webhook endpoint
// costs notifications, not alarm evaluation.
package notify
