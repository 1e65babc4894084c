package internal

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different types of errors
type ErrorType int

const (
	ErrAuthentication ErrorType = iota
	ErrRequestFailure
	ErrTransport
	ErrParse
	ErrUnsupported
	ErrIntegrity
	ErrInvalidResponse
)

// ErrorSeverity represents the severity of an error
type ErrorSeverity int

const (
	SeverityWarning ErrorSeverity = iota
	SeverityError
	SeverityCritical
)

// GazelleError represents a tracker-client error with detailed information
type GazelleError struct {
	Type       ErrorType     `json:"type"`
	Severity   ErrorSeverity `json:"severity"`
	StatusCode int           `json:"status_code,omitempty"`
	Message    string        `json:"message"`
	Tracker    string        `json:"tracker,omitempty"`
	Endpoint   string        `json:"endpoint,omitempty"`
	Suggestion string        `json:"suggestion,omitempty"`
	Wrapped    error         `json:"-"`
}

// Error implements the error interface
func (e *GazelleError) Error() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("%s error", e.Type.String()))

	if e.Tracker != "" {
		parts = append(parts, fmt.Sprintf("tracker: %s", e.Tracker))
	}
	if e.Endpoint != "" {
		parts = append(parts, fmt.Sprintf("endpoint: %s", e.Endpoint))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.StatusCode != 0 {
		parts = append(parts, fmt.Sprintf("status: %d", e.StatusCode))
	}

	return strings.Join(parts, " - ")
}

// Unwrap returns the wrapped cause, if any
func (e *GazelleError) Unwrap() error {
	return e.Wrapped
}

// DetailedError returns a detailed error message with all available information
func (e *GazelleError) DetailedError() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("[%s] %s Error", e.Severity.String(), e.Type.String()))

	if e.Tracker != "" {
		parts = append(parts, fmt.Sprintf("Tracker: %s", e.Tracker))
	}
	if e.Endpoint != "" {
		parts = append(parts, fmt.Sprintf("Endpoint: %s", e.Endpoint))
	}
	if e.StatusCode != 0 {
		parts = append(parts, fmt.Sprintf("Status: %d", e.StatusCode))
	}
	if e.Message != "" {
		parts = append(parts, fmt.Sprintf("Message: %s", e.Message))
	}
	if e.Wrapped != nil {
		parts = append(parts, fmt.Sprintf("Cause: %v", e.Wrapped))
	}
	if e.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("Suggestion: %s", e.Suggestion))
	}

	return strings.Join(parts, "\n")
}

// String returns the string representation of ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrAuthentication:
		return "Authentication"
	case ErrRequestFailure:
		return "RequestFailure"
	case ErrTransport:
		return "Transport"
	case ErrParse:
		return "Parse"
	case ErrUnsupported:
		return "Unsupported"
	case ErrIntegrity:
		return "Integrity"
	case ErrInvalidResponse:
		return "InvalidResponse"
	default:
		return "Unknown"
	}
}

// String returns the string representation of ErrorSeverity
func (es ErrorSeverity) String() string {
	switch es {
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// NewGazelleError creates a new GazelleError with detailed information
func NewGazelleError(errorType ErrorType, message string) *GazelleError {
	return &GazelleError{
		Type:       errorType,
		Severity:   defaultSeverity(errorType),
		Message:    message,
		Suggestion: defaultSuggestion(errorType),
	}
}

// WithTracker adds tracker context to the error
func (e *GazelleError) WithTracker(tracker string) *GazelleError {
	e.Tracker = tracker
	return e
}

// WithEndpoint adds endpoint context to the error
func (e *GazelleError) WithEndpoint(endpoint string) *GazelleError {
	e.Endpoint = endpoint
	return e
}

// WithStatusCode adds the HTTP status code to the error
func (e *GazelleError) WithStatusCode(code int) *GazelleError {
	e.StatusCode = code
	return e
}

// WithSuggestion adds a custom suggestion to the error
func (e *GazelleError) WithSuggestion(suggestion string) *GazelleError {
	e.Suggestion = suggestion
	return e
}

// WithCause attaches the underlying error
func (e *GazelleError) WithCause(err error) *GazelleError {
	e.Wrapped = err
	return e
}

// IsType reports whether err is a GazelleError of the given type
func IsType(err error, errorType ErrorType) bool {
	var ge *GazelleError
	if errors.As(err, &ge) {
		return ge.Type == errorType
	}
	return false
}

// defaultSeverity returns the default severity for an error type
func defaultSeverity(errorType ErrorType) ErrorSeverity {
	switch errorType {
	case ErrAuthentication:
		return SeverityCritical
	case ErrRequestFailure:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// defaultSuggestion returns a default suggestion based on error type
func defaultSuggestion(errorType ErrorType) string {
	switch errorType {
	case ErrAuthentication:
		return "Check your API key or username/password; a stale session cookie file can be deleted to force a fresh login"
	case ErrRequestFailure:
		return "The tracker rejected the request; check the reported message for the field it objects to"
	case ErrTransport:
		return "Check your network connection and the tracker's status page"
	case ErrParse:
		return "The tracker response did not contain the expected fields; the site layout or API may have changed"
	case ErrUnsupported:
		return "This operation is not available for the selected tracker variant"
	case ErrIntegrity:
		return "The downloaded payload failed checksum verification; retry the fetch"
	case ErrInvalidResponse:
		return "The tracker returned an unrecognized response shape"
	default:
		return "Please check the error details and try again"
	}
}

// Common error constructors for frequently used errors

// NewAuthenticationError creates an error for failed authentication
func NewAuthenticationError(tracker, message string) *GazelleError {
	return NewGazelleError(ErrAuthentication, message).WithTracker(tracker)
}

// NewRequestFailure creates an error carrying the tracker's failure message
func NewRequestFailure(message string) *GazelleError {
	return NewGazelleError(ErrRequestFailure, message)
}

// NewTransportError creates an error for a failed HTTP exchange
func NewTransportError(statusCode int, message string) *GazelleError {
	return NewGazelleError(ErrTransport, message).WithStatusCode(statusCode)
}

// NewParseError creates an error for missing or malformed response fields
func NewParseError(message string) *GazelleError {
	return NewGazelleError(ErrParse, message)
}

// NewUnsupportedError creates an error for operations a variant does not offer
func NewUnsupportedError(tracker, operation string) *GazelleError {
	return NewGazelleError(ErrUnsupported, fmt.Sprintf("%s does not provide %s", tracker, operation)).
		WithTracker(tracker)
}

// NewIntegrityError creates an error for checksum mismatches on binary fetches
func NewIntegrityError(message string) *GazelleError {
	return NewGazelleError(ErrIntegrity, message)
}
