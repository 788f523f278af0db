package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

const defaultTitle = "Server Error"

// NewServerError builds the ServerError for a failed status. It is a pure
// function of status and body: when the body is a JSON object the title is
// its "message" and the description lists its "fieldErrors"; otherwise the
// description is derived from the status code. Members of the wrong type
// are skipped one by one so a malformed entry never hides the rest.
func NewServerError(statusCode int, body []byte) *ServerError {
	se := &ServerError{
		StatusCode: statusCode,
		Title:      defaultTitle,
		Body:       string(body),
	}

	var doc map[string]any
	if len(body) > 0 && isJSONObject(body) && json.Unmarshal(body, &doc) == nil {
		if msg, ok := doc["message"].(string); ok {
			se.Title = msg
		}
		entries, _ := doc["fieldErrors"].([]any)
		var b strings.Builder
		for _, entry := range entries {
			obj, _ := entry.(map[string]any)
			name, _ := obj["fieldName"].(string)
			msg, _ := obj["message"].(string)
			if name == "" || msg == "" {
				continue
			}
			se.FieldErrors = append(se.FieldErrors, FieldError{FieldName: name, Message: msg})
			fmt.Fprintf(&b, "%s: %s\n", name, msg)
		}
		se.Description = b.String()
		return se
	}

	se.Description = statusDescription(statusCode)
	return se
}

// ClassifyTransport wraps a transport failure with its reason.
// context.Canceled maps to Cancelled, deadlines and net timeouts to Timeout,
// everything else to Connection.
func ClassifyTransport(err error) *TransportError {
	var te *TransportError
	if stderrors.As(err, &te) {
		return te
	}
	reason := Connection
	var ne net.Error
	switch {
	case stderrors.Is(err, context.Canceled):
		reason = Cancelled
	case stderrors.Is(err, context.DeadlineExceeded):
		reason = Timeout
	case stderrors.As(err, &ne) && ne.Timeout():
		reason = Timeout
	}
	return &TransportError{Reason: reason, Err: err}
}

// httpCategory maps HTTP status codes to error categories.
func httpCategory(statusCode int) ErrorCategory {
	switch {
	case statusCode >= 400 && statusCode < 500:
		switch statusCode {
		case http.StatusRequestTimeout, http.StatusTooManyRequests:
			return Recoverable
		default:
			return Irrecoverable
		}
	case statusCode >= 500 && statusCode < 600:
		return Recoverable
	default:
		return Recoverable
	}
}

func statusDescription(statusCode int) string {
	if text := http.StatusText(statusCode); text != "" {
		return fmt.Sprintf("%d %s", statusCode, text)
	}
	return fmt.Sprintf("%d Unknown Status", statusCode)
}

func isJSONObject(body []byte) bool {
	trimmed := strings.TrimSpace(string(body))
	return strings.HasPrefix(trimmed, "{")
}
