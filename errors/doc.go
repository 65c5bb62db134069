// Package errors provides standardized error handling patterns for linewatch components.
//
// # Overview
//
// The errors package implements a three-class error classification system for
// the alarm pipeline: Transient (temporary, retryable), Invalid (bad input,
// non-retryable), and Fatal (unrecoverable, stop processing).
//
// This classification lets components make informed decisions about retries,
// graceful degradation, and failure recovery without hardcoded error string
// matching: the transport decoder reconnects on Transient socket errors, the
// notification worker retries Transient delivery failures and drops Invalid
// (4xx) ones, and the runtime aborts startup on Fatal configuration errors.
//
// # Error Classification
//
// Errors are classified based on their type or content:
//
//   - Transient: Network timeouts, connection issues, temporary unavailability (retry recommended)
//   - Invalid: Malformed frames, validation failures, receiver rejection (do not retry)
//   - Fatal: Bad configuration, unrecoverable states (stop processing)
//
// The classification system integrates with Go's standard error handling,
// supporting errors.Is(), errors.As(), and error wrapping chains.
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "Component", "Method", "action")  // For retryable errors
//	errors.WrapInvalid(err, "Component", "Method", "action")    // For validation errors
//	errors.WrapFatal(err, "Component", "Method", "action")      // For unrecoverable errors
//
// The generic Wrap() preserves the original error's classification:
//
//	errors.Wrap(err, "Component", "Method", "action")
//
// # Standard Error Variables
//
// Pre-defined error variables cover the common conditions in this system,
// organized by category:
//
//   - Component lifecycle: ErrAlreadyStarted, ErrNotStarted, ErrShuttingDown
//   - Connection issues: ErrNoConnection, ErrConnectionLost, ErrConnectionTimeout
//   - Frame decoding: ErrInvalidData, ErrParsingFailed, ErrOversizedFrame,
//     ErrUnknownType, ErrSpectrumLength, ErrMissingField, ErrNonFiniteValue
//   - Store lookups: ErrNotFound, ErrBufferFull
//   - Configuration: ErrInvalidConfig, ErrMissingConfig
//   - Delivery: ErrMaxRetriesExceeded, ErrRejectedByReceiver
//
// Use these variables instead of creating custom error messages:
//
//	// Good - uses standard variable
//	if spectrumLen != channelLen {
//	    return errors.ErrSpectrumLength
//	}
//
// # Context Cancellation
//
// Context errors (context.DeadlineExceeded, context.Canceled) are classified
// as Transient, so context-based timeouts and shutdown take the same handling
// path as network timeouts.
//
// # Thread Safety
//
// All classification and wrapping operations are thread-safe. Error variables
// are immutable and safe for concurrent access.
package errors
