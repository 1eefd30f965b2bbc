package domain

import (
	"errors"
	"fmt"
)

// Fetch errors
var (
	ErrTimeout = errors.New("request timed out")
	ErrNetwork = errors.New("network error")
	ErrServer  = errors.New("server error")
	ErrParse   = errors.New("malformed catalog payload")
)

// Storage errors
var (
	ErrFileIO          = errors.New("catalog file i/o failed")
	ErrCatalogNotFound = errors.New("catalog not found")
)

// ServerError reports a non-2xx upstream response. It matches ErrServer.
type ServerError struct {
	StatusCode int
	Reason     string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server responded with %d: %s", e.StatusCode, e.Reason)
}

func (e *ServerError) Is(target error) bool {
	return target == ErrServer
}

// FetchError wraps any failure of a catalog fetch. Timeouts and connection
// failures carry a message meant to be shown to an operator as is.
type FetchError struct {
	Kind Kind
	Err  error
}

func (e *FetchError) Error() string {
	switch {
	case errors.Is(e.Err, ErrTimeout):
		return fmt.Sprintf("%s data request timed out. Please try again later.", e.Kind.Title())
	case errors.Is(e.Err, ErrNetwork):
		return fmt.Sprintf("Could not connect to %s data service. Please check your internet connection.", e.Kind)
	default:
		return fmt.Sprintf("fetch %s list: %v", e.Kind, e.Err)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
