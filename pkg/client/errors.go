package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNoToken means a login call succeeded but the response carried no token.
var ErrNoToken = errors.New("no token in response")

// HTTPError represents a non-2xx HTTP response from the API.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsStatus returns true if err (or any wrapped error) is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}

// IsUnauthorized reports a 401 from the API.
func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized)
}

// IsForbidden reports a 403 from the API.
func IsForbidden(err error) bool {
	return IsStatus(err, http.StatusForbidden)
}

// newHTTPError takes the message from the first of the message, error and
// title members, falling back to the body text and then the status text.
func newHTTPError(status int, body []byte) *HTTPError {
	var apiErr struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Title   string `json:"title"`
	}
	if json.Unmarshal(body, &apiErr) == nil {
		for _, m := range []string{apiErr.Message, apiErr.Error, apiErr.Title} {
			if m != "" {
				return &HTTPError{StatusCode: status, Message: m}
			}
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &HTTPError{StatusCode: status, Message: msg}
}
