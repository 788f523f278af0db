package client

import (
	"errors"

	apierrors "github.com/Theruz/8aAscents/client/internal/errors"
	"github.com/Theruz/8aAscents/client/internal/shardqueue"
	"github.com/Theruz/8aAscents/client/internal/types"
)

// Re-export the error taxonomy so callers compare against a single symbol.
var (
	ErrEncoding     = apierrors.ErrEncoding
	ErrTransport    = apierrors.ErrTransport
	ErrCancelled    = apierrors.ErrCancelled
	ErrTimeout      = apierrors.ErrTimeout
	ErrConnection   = apierrors.ErrConnection
	ErrServer       = apierrors.ErrServer
	ErrDecoding     = apierrors.ErrDecoding
	ErrInvalidInput = types.ErrInvalidInput
)

type (
	EncodingError  = apierrors.EncodingError
	TransportError = apierrors.TransportError
	ServerError    = apierrors.ServerError
	DecodingError  = apierrors.DecodingError
	FieldError     = apierrors.FieldError
)

// ErrBackPressure is returned when the worker pool stayed full for the whole
// admission window. It arrives wrapped in a connection TransportError.
var ErrBackPressure = shardqueue.ErrQueueFull

// IsBackPressure reports whether err is a back-pressure error.
func IsBackPressure(err error) bool { return errors.Is(err, ErrBackPressure) }

// IsIrrecoverable reports whether issuing the same call again cannot help.
func IsIrrecoverable(err error) bool { return apierrors.IsIrrecoverable(err) }

// IsUnauthorized reports whether the backend rejected the call with 401.
func IsUnauthorized(err error) bool {
	var se *ServerError
	return errors.As(err, &se) && se.StatusCode == 401
}
