package errors

import "fmt"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AppError carries the classification the pipeline needs to decide between
// advancing to the next candidate slot and aborting the whole run.
type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

// NewAuthenticationError reports a failed sign-in or expired session on the
// booking site. Not retryable: the credentials will not get better tonight.
func NewAuthenticationError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        "E100",
		Message:     fmt.Sprintf("booking site authentication failed: %s", underlyingMsg),
		UserMessage: "Could not sign in to the booking site. Check the club credentials.",
		Severity:    SeverityCritical,
		Retryable:   false,
		cause:       cause,
	}
}

// NewPageParseError reports page content that no longer matches the expected
// layout, usually meaning the site changed under us.
func NewPageParseError(detail string, cause error) *AppError {
	return &AppError{
		Code:        "E200",
		Message:     fmt.Sprintf("unrecognized page structure: %s", detail),
		UserMessage: "The booking site layout looks different. The parser needs attention.",
		Severity:    SeverityHigh,
		Retryable:   false,
		cause:       cause,
	}
}

// NewSlotUnavailableError reports a slot claimed by someone else between the
// fetch and the submission. The agent moves on to the next candidate.
func NewSlotUnavailableError(slotKey string) *AppError {
	return &AppError{
		Code:        "E300",
		Message:     fmt.Sprintf("slot no longer available: %s", slotKey),
		UserMessage: "That slot was taken before we could book it.",
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}

// NewAutomationTimeoutError reports a browser step that did not complete in
// time (element not found, navigation hang).
func NewAutomationTimeoutError(step string, cause error) *AppError {
	return &AppError{
		Code:        "E400",
		Message:     fmt.Sprintf("browser automation timed out during %s", step),
		UserMessage: "The booking site was too slow to respond. Will try again on the next run.",
		Severity:    SeverityMedium,
		Retryable:   false,
		cause:       cause,
	}
}

// NewNotificationError reports a failed chat message delivery. Logged, never
// retried.
func NewNotificationError(cause error) *AppError {
	return &AppError{
		Code:        "E500",
		Message:     "notification delivery failed",
		UserMessage: "",
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       cause,
	}
}

// NewStorageError reports a failed subscriber or history store operation.
// Retryable: these are transient infrastructure hiccups.
func NewStorageError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        "E600",
		Message:     fmt.Sprintf("storage error: %s", underlyingMsg),
		UserMessage: "A temporary problem occurred. Please try again.",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}
