package apiclient

import (
	"errors"
	"fmt"
)

// NetworkError is a transport-level failure: the request never produced an
// HTTP response.
type NetworkError struct {
	Method   string
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s %s: %v", e.Method, e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPError is a non-2xx response other than an authenticated 401.
type HTTPError struct {
	Status  int
	Message string
	Body    ErrorBody
}

func (e *HTTPError) Error() string {
	return e.Message
}

// UnauthorizedError is returned after an authenticated request was rejected
// with 401 and the session was torn down.
type UnauthorizedError struct {
	Endpoint string
}

func (e *UnauthorizedError) Error() string {
	return "Unauthorized"
}

func (e *UnauthorizedError) Is(target error) bool {
	_, ok := target.(*UnauthorizedError)
	return ok
}

// ErrUnauthorized matches any UnauthorizedError with errors.Is.
var ErrUnauthorized error = &UnauthorizedError{}

// StatusCode returns the HTTP status carried by err, 401 for an
// UnauthorizedError, or 0.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	if errors.Is(err, ErrUnauthorized) {
		return 401
	}
	return 0
}

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
