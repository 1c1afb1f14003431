package clients

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"
)

// Error codes for machine-readable error classification.
const (
	CodeConnection = "connection_error"
	CodeTimeout    = "timeout"
	CodeValidation = "validation_error"
	CodeService    = "service_error"
)

// Error is returned for every failed call to the scanning service.
type Error struct {
	// Code is one of the Code* constants.
	Code string
	// Message is a human-readable description.
	Message string
	// StatusCode is the HTTP status code, zero when no response was received.
	StatusCode int
	// ApiCode is the service's own error code, e.g. 401006 for an invalid api key.
	ApiCode int
	// Cause is the underlying error, if any.
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func NewConnectionError(msg string, cause error) *Error {
	return &Error{Code: CodeConnection, Message: msg, Cause: cause}
}

func NewTimeoutError(msg string, cause error) *Error {
	return &Error{Code: CodeTimeout, Message: msg, Cause: cause}
}

func NewValidationError(msg string, cause error) *Error {
	return &Error{Code: CodeValidation, Message: msg, Cause: cause}
}

func NewServiceError(msg string, statusCode int, apiCode int, cause error) *Error {
	return &Error{Code: CodeService, Message: msg, StatusCode: statusCode, ApiCode: apiCode, Cause: cause}
}

func hasCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsConnectionError reports whether err is or wraps a connection error.
func IsConnectionError(err error) bool { return hasCode(err, CodeConnection) }

// IsTimeoutError reports whether err is or wraps a timeout error.
func IsTimeoutError(err error) bool { return hasCode(err, CodeTimeout) }

// IsValidationError reports whether err is or wraps a validation error.
func IsValidationError(err error) bool { return hasCode(err, CodeValidation) }

// IsServiceError reports whether err is or wraps a service error.
func IsServiceError(err error) bool { return hasCode(err, CodeService) }

// isBreakerSuccess keeps client-side rejections (bad key, bad request) from
// tripping the breaker; only transport failures and 5xx responses count.
func isBreakerSuccess(err error) bool {
	if err == nil || errors.Is(err, errHashNotFound) {
		return true
	}

	var e *Error
	if errors.As(err, &e) {
		switch e.Code {
		case CodeValidation:
			return true
		case CodeService:
			return e.StatusCode > 0 && e.StatusCode < 500
		}
	}
	return false
}

func classifyTransportError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return NewConnectionError("service temporarily unavailable", err)
	}
	if errors.Is(err, context.Canceled) {
		return NewTimeoutError("request canceled", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError("request timed out", err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return NewTimeoutError("request timed out", err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return NewConnectionError("DNS resolution failed", err)
	}

	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return NewConnectionError("connection failed", err)
	}

	return NewConnectionError("request failed", err)
}

func joinMessages(messages []string) string {
	return strings.Join(messages, "; ")
}
