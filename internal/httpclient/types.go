package httpclient

import (
	"errors"
	"fmt"
)

// ErrNoEntity is returned when a successful response carries no body
var ErrNoEntity = errors.New("response did not return an entity")

// HTTPError represents an HTTP error
type HTTPError struct {
	StatusCode int
	Message    string
	URL        string

	// Body holds the start of the response body (at most MaxErrorBodySize bytes)
	Body []byte
}

// Error returns the error message
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Message)
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(statusCode int, url, message string) error {
	return &HTTPError{
		StatusCode: statusCode,
		URL:        url,
		Message:    message,
	}
}

// NewHTTPErrorWithBody creates a new HTTP error that keeps the response body for diagnostics
func NewHTTPErrorWithBody(statusCode int, url, message string, body []byte) error {
	return &HTTPError{
		StatusCode: statusCode,
		URL:        url,
		Message:    message,
		Body:       body,
	}
}
