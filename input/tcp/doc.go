// Package tcp implements the inbound sensor feed: a TCP client that reads
// newline-delimited JSON frames, decodes them into domain measurements and
// pushes them onto the bounded readings queue.
//
// The feed is treated as unreliable by contract. Connect failures, read
// timeouts and clean EOF all funnel into one reconnect loop with exponential
// backoff and jitter that runs until shutdown. Malformed frames are counted
// and skipped; a bad line never stops the stream.
//
// Backpressure is drop-oldest: when the readings queue is full the oldest
// queued measurement is discarded for the newest, because a stale reading is
// worth less than a current one to alarm evaluation.
package tcp
