package panapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/isoshare/internal/common"
)

// APIError is a non-success answer from the API: either a non-2xx HTTP
// status or an envelope with code != 0.
type APIError struct {
	Op         string
	HTTPStatus int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: code %d: %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: http %d: %s", e.Op, e.HTTPStatus, e.Message)
}

// Unauthorized reports whether the token was rejected.
func (e *APIError) Unauthorized() bool {
	return e.HTTPStatus == http.StatusUnauthorized || e.Code == http.StatusUnauthorized
}

// Retryable reports whether the same request may succeed later.
func (e *APIError) Retryable() bool {
	if e.HTTPStatus == http.StatusTooManyRequests || e.HTTPStatus >= 500 {
		return true
	}
	return e.Code == http.StatusTooManyRequests
}

// Unwrap lets callers match a rejected token with errors.Is(err, common.ErrUnauthorized).
func (e *APIError) Unwrap() error {
	if e.Unauthorized() {
		return common.ErrUnauthorized
	}
	return nil
}

// IsUnauthorized reports whether err carries a token rejection.
func IsUnauthorized(err error) bool {
	return errors.Is(err, common.ErrUnauthorized)
}
