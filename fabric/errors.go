// Package fabric provides a client for the Microsoft Fabric Apache Airflow
// job REST API: token acquisition and caching, a request pipeline with
// typed error classification, and the multi-part item definition codec.
package fabric

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, fabric.ErrNotFound) to check.
var (
	ErrValidation      = errors.New("fabric: validation failed")
	ErrUnauthenticated = errors.New("fabric: unauthenticated")
	ErrForbidden       = errors.New("fabric: forbidden")
	ErrNotFound        = errors.New("fabric: not found")
	ErrClient          = errors.New("fabric: client error")
	ErrServer          = errors.New("fabric: server error")
)

// ErrConfiguration marks missing credential or client configuration.
// It is never produced by a network failure.
var ErrConfiguration = errors.New("fabric: configuration error")

// APIError wraps a sentinel error with the HTTP status, the human-readable
// message extracted from the response, the service-side request correlation
// id, and the full response body and headers for debugging.
type APIError struct {
	Status    int
	Message   string
	RequestID string
	Body      any
	Headers   http.Header
	Err       error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("[%d] %s (Request ID: %s)", e.Status, e.Message, e.RequestID)
	}

	return fmt.Sprintf("[%d] %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps a failure status code to a sentinel error.
// Only called for statuses outside the success set.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrValidation
	case http.StatusUnauthorized:
		return ErrUnauthenticated
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	default:
		if code >= http.StatusBadRequest && code < http.StatusInternalServerError {
			return ErrClient
		}

		return ErrServer
	}
}

// isSuccess reports whether the status code counts as success.
// The service uses 200/201/202/204; everything else is a failure.
func isSuccess(code int) bool {
	switch code {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent:
		return true
	default:
		return false
	}
}

// errorMessage extracts a human-readable message from a parsed error body.
// JSON objects are probed for the fields the service layers actually use;
// anything else falls back to the raw response text.
func errorMessage(body any, text string, status int) string {
	if m, ok := body.(map[string]any); ok {
		for _, key := range []string{"description", "message", "error"} {
			switch v := m[key].(type) {
			case string:
				if v != "" {
					return v
				}
			case map[string]any:
				// Some layers nest {"error": {"message": ...}}.
				if msg, ok := v["message"].(string); ok && msg != "" {
					return msg
				}
			}
		}
	}

	if body != nil {
		if data, err := json.Marshal(body); err == nil {
			return string(data)
		}
	}

	if text != "" {
		return text
	}

	return fmt.Sprintf("HTTP %d", status)
}
