package api

import (
	"errors"
	"fmt"
	"net/http"
)

// AuthError reports a rejected or missing bearer token. Callers terminate
// the session when they see it.
type AuthError struct {
	Method string
	Path   string
	Err    error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed on %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// StatusError is a non-2xx, non-401 response from the API.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api error (%d) on %s %s: %s", e.StatusCode, e.Method, e.Path, e.Message)
}

// NetworkError is a transport failure: the request never got a response.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("executing request %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var aErr *AuthError
	return errors.As(err, &aErr)
}

// IsNetworkError reports whether err is a transport failure.
func IsNetworkError(err error) bool {
	var nErr *NetworkError
	return errors.As(err, &nErr)
}

// IsNotFound reports whether the API answered 404.
func IsNotFound(err error) bool {
	var sErr *StatusError
	return errors.As(err, &sErr) && sErr.StatusCode == http.StatusNotFound
}
