package store

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the store, carrying the status and the
// decoded error body.
type APIError struct {
	Status  int
	Message string
	Data    map[string]any
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("store: status %d", e.Status)
	}
	return fmt.Sprintf("store: status %d: %s", e.Status, e.Message)
}

// StatusOf extracts the HTTP status from an error chain, or 0 when the error
// did not originate from a store response.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsAuthError reports whether the error is a 401/403 store response, the
// signal that the current session has been invalidated remotely.
func IsAuthError(err error) bool {
	status := StatusOf(err)
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

// IsValidationError reports whether the store rejected a submitted payload.
func IsValidationError(err error) bool {
	return StatusOf(err) == http.StatusBadRequest
}
