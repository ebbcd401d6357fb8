package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx reply from the admin server.
type APIError struct {
	StatusCode int
	Title      string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Title, e.Detail)
	}
	return e.Title
}

// IsNotFound reports whether err is a 404 from the admin server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsConflict reports whether err is a 409 from the admin server.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict
}

// decodeError understands both RFC 7807 problems and the unhealthy probe
// envelope.
func decodeError(status int, body []byte) error {
	apiErr := &APIError{StatusCode: status, Title: http.StatusText(status)}

	var problem struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &problem) == nil && problem.Title != "" {
		apiErr.Title = problem.Title
		apiErr.Detail = problem.Detail
		return apiErr
	}

	var env envelope
	if json.Unmarshal(body, &env) == nil && env.Error != "" {
		apiErr.Detail = env.Error
		return apiErr
	}

	if len(body) > 0 {
		apiErr.Detail = string(body)
	}
	return apiErr
}
