// Package errors provides standardized error handling patterns for ringbuff components.
//
// # Overview
//
// The errors package implements a three-class error classification system: Transient
// (temporary, retryable), Invalid (bad input, non-retryable), and Fatal (unrecoverable,
// stop processing). Callers branch on the class instead of matching error strings.
//
// # Ring Buffer Errors
//
// The buffer packages report misuse through four sentinels, all classified Invalid:
//
//   - ErrInvalidCapacity: a buffer was constructed with capacity 0 or less
//   - ErrEmptyBuffer: Pop or Peek on a buffer with no live elements
//   - ErrIndexOutOfRange: Get or GetMut with a logical index >= Len()
//   - ErrConcurrentModification: the buffer changed while an iterator was live
//
// Hot-path operations return these sentinels unwrapped so they never allocate.
// Construction and configuration paths wrap them with component context:
//
//	r, err := ring.New[int](0)
//	// err.Error() == "Ring.New: validate capacity failed: invalid capacity"
//	errors.Is(err, errors.ErrInvalidCapacity) // true
//	errors.IsInvalid(err)                     // true
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
// The generic Wrap() function adds context without setting a class.
//
// # Integration with errors.As/Is
//
//	var ce *errors.ClassifiedError
//	if errors.As(err, &ce) {
//	    logger.Warn("buffer error", "component", ce.Component, "class", ce.Class)
//	}
//
// Context errors (context.DeadlineExceeded, context.Canceled) are classified as
// Transient, which is how a Block-policy write that timed out is reported.
//
// # Thread Safety
//
// All classification and wrapping operations are safe for concurrent use. Error
// variables are immutable.
package errors
