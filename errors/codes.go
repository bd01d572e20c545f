package errors

// ErrorCategory classifies errors by their nature and retry semantics.
type ErrorCategory string

// Error categories define how errors should be handled.
const (
	// CategoryTransient indicates temporary failures where retry may succeed.
	// Examples: capability call timeouts, dead client connections.
	CategoryTransient ErrorCategory = "transient"

	// CategoryPermanent indicates failures where retry will not help.
	// Examples: invalid metadata, duplicate id, resource not found.
	CategoryPermanent ErrorCategory = "permanent"

	// CategoryInternal indicates unexpected errors, bugs, or system failures.
	// Examples: handler panics, corrupted registry files.
	CategoryInternal ErrorCategory = "internal"
)

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// IsRetryable returns true if errors in this category may succeed on retry.
// The runtime itself never retries; this informs external collaborators
// wrapping the capability executor.
func (c ErrorCategory) IsRetryable() bool {
	return c == CategoryTransient
}

// ErrorCode identifies specific error types within categories.
type ErrorCode string

// Error codes for the orchestration runtime.
const (
	// Transient errors
	ErrCodeTimeout        ErrorCode = "TIMEOUT"         // Operation timed out
	ErrCodeDeliveryFailed ErrorCode = "DELIVERY_FAILED" // Send to a live connection failed

	// Permanent errors
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"         // Agent, workflow or execution does not exist
	ErrCodeDuplicateID      ErrorCode = "DUPLICATE_ID"      // Agent id already registered
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED" // Metadata failed validation rules
	ErrCodeCanceled         ErrorCode = "CANCELED"          // Operation was canceled
	ErrCodeCapabilityFailed ErrorCode = "CAPABILITY_FAILED" // Agent capability call failed

	// Internal errors
	ErrCodeInternal        ErrorCode = "INTERNAL"         // Unexpected internal error
	ErrCodeSubscriberPanic ErrorCode = "SUBSCRIBER_PANIC" // Bus handler panicked
	ErrCodeCorruption      ErrorCode = "CORRUPTION"       // Registry file corrupt or unreadable
)

// codeCategories maps codes to their default category.
var codeCategories = map[ErrorCode]ErrorCategory{
	ErrCodeTimeout:          CategoryTransient,
	ErrCodeDeliveryFailed:   CategoryTransient,
	ErrCodeNotFound:         CategoryPermanent,
	ErrCodeDuplicateID:      CategoryPermanent,
	ErrCodeValidationFailed: CategoryPermanent,
	ErrCodeCanceled:         CategoryPermanent,
	ErrCodeCapabilityFailed: CategoryPermanent,
	ErrCodeInternal:         CategoryInternal,
	ErrCodeSubscriberPanic:  CategoryInternal,
	ErrCodeCorruption:       CategoryInternal,
}

// codeDescriptions provides default human-readable messages per code.
var codeDescriptions = map[ErrorCode]string{
	ErrCodeTimeout:          "operation timed out",
	ErrCodeDeliveryFailed:   "delivery to connection failed",
	ErrCodeNotFound:         "resource not found",
	ErrCodeDuplicateID:      "id already registered",
	ErrCodeValidationFailed: "metadata validation failed",
	ErrCodeCanceled:         "operation canceled",
	ErrCodeCapabilityFailed: "capability execution failed",
	ErrCodeInternal:         "internal error",
	ErrCodeSubscriberPanic:  "subscriber panicked",
	ErrCodeCorruption:       "data corruption detected",
}

// String returns the string representation of the code.
func (c ErrorCode) String() string {
	return string(c)
}

// DefaultCategory returns the category this code belongs to.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	if cat, ok := codeCategories[c]; ok {
		return cat
	}
	return CategoryInternal
}

// Description returns the default message for this code.
func (c ErrorCode) Description() string {
	if d, ok := codeDescriptions[c]; ok {
		return d
	}
	return "unknown error"
}
