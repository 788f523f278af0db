// Package errors defines the error taxonomy shared by every call issued
// through the dispatcher: encoding, transport, server and decoding failures.
// It also carries the recoverability classification callers may use to
// decide on their own retry policy; nothing in the SDK retries on its own.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Sentinels for errors.Is checks at the boundary.
var (
	ErrEncoding   = stderrors.New("request encoding failed")
	ErrTransport  = stderrors.New("transport failure")
	ErrCancelled  = stderrors.New("request cancelled")
	ErrTimeout    = stderrors.New("request timed out")
	ErrConnection = stderrors.New("connection failure")
	ErrServer     = stderrors.New("server error")
	ErrDecoding   = stderrors.New("response decoding failed")
)

// ErrorCategory determines how a caller may treat an error.
type ErrorCategory int

const (
	// Recoverable errors may succeed if the caller issues the call again.
	// Examples: 500 Internal Server Error, network timeouts, connection failures.
	Recoverable ErrorCategory = iota

	// Irrecoverable errors will fail again unchanged.
	// Examples: 401 Unauthorized, 403 Forbidden, 400 Bad Request, encoding failures.
	Irrecoverable
)

// String returns a human-readable representation of the error category.
func (c ErrorCategory) String() string {
	switch c {
	case Recoverable:
		return "Recoverable"
	case Irrecoverable:
		return "Irrecoverable"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// EncodingError reports a descriptor that could not be turned into a
// well-formed request (missing path parameter, unencodable body, no host).
type EncodingError struct {
	Op  string
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Op, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

func (e *EncodingError) Is(target error) bool { return target == ErrEncoding }

// TransportReason tells why no response was obtained.
type TransportReason int

const (
	Connection TransportReason = iota
	Cancelled
	Timeout
)

func (r TransportReason) String() string {
	switch r {
	case Cancelled:
		return "cancelled"
	case Timeout:
		return "timeout"
	default:
		return "connection"
	}
}

func (r TransportReason) sentinel() error {
	switch r {
	case Cancelled:
		return ErrCancelled
	case Timeout:
		return ErrTimeout
	default:
		return ErrConnection
	}
}

// TransportError is a network-level failure before a response was obtained.
type TransportError struct {
	Reason TransportReason
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("transport %s", e.Reason)
	}
	return fmt.Sprintf("transport %s: %v", e.Reason, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport || target == e.Reason.sentinel()
}

// FieldError is one field-level validation message reported by the backend.
type FieldError struct {
	FieldName string `json:"fieldName"`
	Message   string `json:"message"`
}

// ServerError is a response whose status code signals failure.
type ServerError struct {
	StatusCode  int
	Title       string
	Description string
	FieldErrors []FieldError
	Body        string // raw response body for debugging
}

func (e *ServerError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Title)
	}
	return fmt.Sprintf("HTTP %d: %s: %s", e.StatusCode, e.Title, e.Description)
}

func (e *ServerError) Is(target error) bool { return target == ErrServer }

// DecodingError reports a successful response whose body did not match the
// requested result shape.
type DecodingError struct {
	Shape string
	Err   error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("decode %s response: %v", e.Shape, e.Err)
}

func (e *DecodingError) Unwrap() error { return e.Err }

func (e *DecodingError) Is(target error) bool { return target == ErrDecoding }

// Category classifies err for callers building their own retry policy.
// Unknown errors are treated as recoverable.
func Category(err error) ErrorCategory {
	var (
		se *ServerError
		te *TransportError
	)
	switch {
	case stderrors.As(err, &se):
		return httpCategory(se.StatusCode)
	case stderrors.As(err, &te):
		if te.Reason == Cancelled {
			return Irrecoverable
		}
		return Recoverable
	case stderrors.Is(err, ErrEncoding), stderrors.Is(err, ErrDecoding):
		return Irrecoverable
	default:
		return Recoverable
	}
}

// IsIrrecoverable returns true if issuing the same call again cannot help.
func IsIrrecoverable(err error) bool {
	return err != nil && Category(err) == Irrecoverable
}
