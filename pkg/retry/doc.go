// Package retry provides simple exponential backoff retry logic for transient failures.
//
// # Overview
//
// This package offers a minimal retry mechanism with exponential backoff,
// designed to handle transient failures in network operations: webhook
// delivery, the transport reconnect loop, and broker connections at startup.
//
// # Core Functions
//
//   - Do: Execute function with retry and exponential backoff
//   - DoWithResult: Execute function with retry, returns both result and error
//   - Backoff: delay generator for loops that retry indefinitely
//
// # Configuration Presets
//
//   - DefaultConfig(): 3 attempts, 100ms-5s delay (normal operations)
//   - Quick(): 10 attempts, 50ms-1s delay (component startup)
//
// # Usage Examples
//
// Bounded retry with defaults:
//
//	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
//	    return client.Deliver(payload)
//	})
//
// Marking an error as not worth retrying (e.g. the receiver rejected the
// payload):
//
//	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
//	    return retry.NonRetryable(err)
//	}
//
// Indefinite reconnect loop:
//
//	backoff := retry.Backoff{Initial: 500 * time.Millisecond, Max: 30 * time.Second, Multiplier: 2, Jitter: 0.2}
//	for {
//	    if err := dial(); err != nil {
//	        sleep(backoff.Next())
//	        continue
//	    }
//	    backoff.Reset()
//	    serve()
//	}
//
// # Design Philosophy
//
// This package is intentionally minimal:
//
//   - No circuit breakers (use a separate package)
//   - No metrics collection (use instrumentation at call site)
//   - No complex error classification (caller decides what to retry)
//   - Just exponential backoff with jitter
//
// # Context Cancellation
//
// All bounded retry operations respect context cancellation and stop retrying
// when the context is cancelled, either during operation execution or during
// backoff delay.
//
// # Thread Safety
//
// Do and DoWithResult are safe for concurrent use; the jitter mechanism uses a
// thread-safe random source. A Backoff instance belongs to a single loop.
package retry
