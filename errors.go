package publer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// ErrorKind classifies an APIError into a stable, branchable category.
// The values are deterministic identifiers and remain stable across versions.
type ErrorKind string

const (
	// HTTP response classifications.
	ErrInvalidRequest  ErrorKind = "invalid_request"  // 400
	ErrUnauthenticated ErrorKind = "unauthenticated"  // 401
	ErrForbidden       ErrorKind = "forbidden"        // 403
	ErrNotFound        ErrorKind = "not_found"        // 404
	ErrRateLimited     ErrorKind = "rate_limited"     // 429, carries RetryAfter
	ErrServerFault     ErrorKind = "server_fault"     // 500, 502, 503, 504
	ErrUnclassified    ErrorKind = "unclassified"     // any other status >= 400

	// Failures with no HTTP status: connection, timeout, DNS, or a 2xx
	// body that is not valid JSON.
	ErrTransport ErrorKind = "transport"

	// Poller outcomes.
	ErrJobTimedOut ErrorKind = "job_timed_out"
	ErrJobFailed   ErrorKind = "job_failed"
)

// APIError is a typed remote-API failure. It is immutable once constructed.
//
// Lifecycle misuse (closed session, conflicting request bodies, missing
// credential) is deliberately NOT an APIError; those surface as plain
// sentinel errors because they signal a bug in the caller, not a remote
// condition.
type APIError struct {
	Kind    ErrorKind
	Message string

	// Status is the HTTP status code, 0 when no response was received.
	Status int

	// Body is the decoded error envelope, nil when the response body was
	// absent or not a JSON object.
	Body map[string]any

	// FieldErrors holds the strings of the envelope's "errors" array, in
	// response order.
	FieldErrors []string

	// RetryAfter is a back-off hint in seconds. Only meaningful when
	// Kind is ErrRateLimited; 0 means absent. The library never retries
	// on its own.
	RetryAfter int

	cause error
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("publer: [%d] %s", e.Status, e.Message)
	}
	if e.cause != nil {
		return fmt.Sprintf("publer: %s: %v", e.Message, e.cause)
	}
	return "publer: " + e.Message
}

func (e *APIError) Unwrap() error { return e.cause }

// KindOf returns the kind of err when an APIError is in its chain, or the
// empty string otherwise.
func KindOf(err error) ErrorKind {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// IsKind reports whether err carries an APIError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

func kindForStatus(status int) ErrorKind {
	switch status {
	case http.StatusBadRequest:
		return ErrInvalidRequest
	case http.StatusUnauthorized:
		return ErrUnauthenticated
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return ErrServerFault
	default:
		return ErrUnclassified
	}
}

// Classify maps a non-2xx response onto an APIError. It is a pure mapping
// and always returns a value.
//
// The message is assembled from the envelope's "errors" array when present,
// else from the raw body text, else from the status code. On 429 the
// Retry-After header wins over a "retry_after" body field.
func Classify(status int, header http.Header, body []byte) *APIError {
	e := &APIError{Kind: kindForStatus(status), Status: status}

	var envelope map[string]any
	if len(body) > 0 && json.Unmarshal(body, &envelope) == nil {
		e.Body = envelope
		if raw, ok := envelope["errors"].([]any); ok {
			for _, item := range raw {
				if s, ok := item.(string); ok {
					e.FieldErrors = append(e.FieldErrors, s)
				}
			}
		}
	}

	switch {
	case len(e.FieldErrors) > 0:
		e.Message = strings.Join(e.FieldErrors, "; ")
	case len(bytes.TrimSpace(body)) > 0:
		e.Message = string(bytes.TrimSpace(body))
	default:
		e.Message = fmt.Sprintf("HTTP %d", status)
	}

	if status == http.StatusTooManyRequests {
		if v := header.Get("Retry-After"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				e.RetryAfter = n
			}
		}
		if e.RetryAfter == 0 && envelope != nil {
			if f, ok := envelope["retry_after"].(float64); ok {
				e.RetryAfter = int(f)
			}
		}
	}

	return e
}

// transportError wraps a connection, timeout, or decode failure.
func transportError(message string, cause error) *APIError {
	return &APIError{Kind: ErrTransport, Message: message, cause: cause}
}
