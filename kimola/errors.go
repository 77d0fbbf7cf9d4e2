package kimola

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrMissingAPIKey is returned by New when no API key is configured.
	ErrMissingAPIKey = errors.New("kimola: api key is required")
	// ErrInvalidPresetKey indicates a blank or too short preset key.
	ErrInvalidPresetKey = errors.New("kimola: a valid preset key is required")
	// ErrEmptyText indicates a prediction request without text.
	ErrEmptyText = errors.New("kimola: text is required")
	// ErrEmptyResponse indicates a successful response without a usable body.
	ErrEmptyResponse = errors.New("kimola: empty response body")
	// ErrClosed is returned for calls made after Client.Close.
	ErrClosed = errors.New("kimola: client is closed")
)

// APIError is returned when the API responds with a non-success status.
type APIError struct {
	StatusCode int
	// Body is the raw response body, possibly empty.
	Body    string
	Message string
}

func (e *APIError) Error() string {
	if e == nil {
		return "kimola: api error"
	}
	return "kimola: " + e.Message
}

func newAPIError(status int, body string) *APIError {
	trimmed := strings.TrimSpace(body)
	var msg string
	switch status {
	case http.StatusBadRequest:
		if strings.Contains(strings.ToLower(trimmed), "bearer") {
			msg = "Bad Request – missing Bearer token (Authorization: Bearer <apiKey>)."
		} else {
			msg = "Bad Request – missing/invalid Authorization header."
		}
	case http.StatusUnauthorized:
		msg = "Unauthorized – invalid API key."
	case http.StatusForbidden:
		msg = "Forbidden – your key cannot access this resource."
	default:
		msg = fmt.Sprintf("HTTP %d – API request failed.", status)
	}
	if trimmed != "" {
		msg += " Body: " + trimmed
	}
	return &APIError{StatusCode: status, Body: body, Message: msg}
}

// StatusCode returns the HTTP status carried by err, or 0 if err is not an APIError.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsBadRequest reports whether err is a 400 response.
func IsBadRequest(err error) bool { return StatusCode(err) == http.StatusBadRequest }

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool { return StatusCode(err) == http.StatusUnauthorized }

// IsForbidden reports whether err is a 403 response.
func IsForbidden(err error) bool { return StatusCode(err) == http.StatusForbidden }

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool { return StatusCode(err) == http.StatusNotFound }

// IsRateLimited reports whether err is a 429 response.
func IsRateLimited(err error) bool { return StatusCode(err) == http.StatusTooManyRequests }

// IsServerError reports whether err is a 5xx response.
func IsServerError(err error) bool {
	code := StatusCode(err)
	return code >= 500 && code <= 599
}
