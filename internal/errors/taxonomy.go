// Package errors defines the gateway's error taxonomy: a small set of codes
// used to decide how a failure propagates (retried locally, surfaced to the
// caller, or escalated as a defect) rather than relying on error string
// matching at call sites.
package errors

import "fmt"

// Code classifies a failure for propagation purposes.
type Code string

const (
	// InvalidSignature: chat edge rejects without touching downstream.
	InvalidSignature Code = "invalid_signature"
	// MalformedInput: webhook edge returns 400 with explanation.
	MalformedInput Code = "malformed_input"
	// TransientDownstream: retryable in-component (throttling, 5xx, timeouts).
	TransientDownstream Code = "transient_downstream"
	// TerminalDownstream: non-retryable (4xx, permanent config errors).
	TerminalDownstream Code = "terminal_downstream"
	// ParseFailure: non-fatal; downgrades the affected record's fidelity only.
	ParseFailure Code = "parse_failure"
	// ExportFailure: fatal for the record; must alert.
	ExportFailure Code = "export_failure"
)

// Error wraps a cause with a taxonomy code so callers can branch on
// Code() without parsing strings, while %v/%w still unwraps correctly.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a taxonomy error without a wrapped cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a taxonomy error around an existing cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the taxonomy code from err, returning "" if err is nil or
// not (or does not wrap) a *Error.
func CodeOf(err error) Code {
	var te *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			te = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if te == nil {
		return ""
	}
	return te.Code
}

// IsRetryable reports whether err carries a code that a retry engine should
// act on locally (transient_downstream) rather than propagate.
func IsRetryable(err error) bool {
	return CodeOf(err) == TransientDownstream
}
