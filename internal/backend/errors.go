package backend

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a backend failure so callers can decide whether a
// retry on another backend is worthwhile.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindConnection
	KindTimeout
	KindAuth
	KindRateLimited
	KindServer
	KindInvalidResponse
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindTimeout:
		return "timeout"
	case KindAuth:
		return "auth"
	case KindRateLimited:
		return "rate_limited"
	case KindServer:
		return "server"
	case KindInvalidResponse:
		return "invalid_response"
	default:
		return "unknown"
	}
}

// BackendError wraps a failure from a single backend with its classification.
type BackendError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *BackendError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *BackendError) Unwrap() error { return e.Cause }

func newBackendError(kind ErrorKind, message string, cause error) *BackendError {
	return &BackendError{Kind: kind, Message: message, Cause: cause}
}

// ErrAllBackendsFailed is the sentinel matched with errors.Is when every
// candidate backend was tried and none produced a response.
var ErrAllBackendsFailed = errors.New("all generation backends failed")

// AllFailedError carries the individual failures behind ErrAllBackendsFailed.
type AllFailedError struct {
	Attempts []GenerationError
}

func (e *AllFailedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, attempt := range e.Attempts {
		parts = append(parts, attempt.Error())
	}
	return "all generation backends failed: " + strings.Join(parts, "; ")
}

func (e *AllFailedError) Is(target error) bool { return target == ErrAllBackendsFailed }
