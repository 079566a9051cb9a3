package util

import (
	"errors"
	"fmt"
)

// AuthErrorKind distinguishes credential failures that tear the session down.
type AuthErrorKind string

const (
	AuthInvalidToken       AuthErrorKind = "INVALID_TOKEN"
	AuthRefreshUnavailable AuthErrorKind = "REFRESH_UNAVAILABLE"
	AuthRefreshFailed      AuthErrorKind = "REFRESH_FAILED"
)

// AuthError signals a credential problem. Every AuthError routes through
// session teardown as a side effect; the triggering call still receives it.
type AuthError struct {
	Kind AuthErrorKind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("auth %s", e.Kind)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError constructs an AuthError.
func NewAuthError(kind AuthErrorKind, err error) error {
	return &AuthError{Kind: kind, Err: err}
}

// ValidationError reports a local format mismatch. It blocks a request
// before dispatch and never reaches the network layer.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation: %s", e.Message)
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// ServerError carries a non-2xx response from the remote API. Detail is the
// server-provided human-readable message, surfaced verbatim to the caller.
type ServerError struct {
	StatusCode int
	Detail     string
}

func (e *ServerError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("server %d", e.StatusCode)
}

// NewServerError constructs a ServerError.
func NewServerError(status int, detail string) error {
	return &ServerError{StatusCode: status, Detail: detail}
}

// NetworkError wraps a transport-level failure (DNS, refused connection,
// timeout). Transient; never retried automatically beyond the single
// 401-triggered retry.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError constructs a NetworkError.
func NewNetworkError(err error) error {
	return &NetworkError{Err: err}
}

// IsAuthError reports whether err is an AuthError, optionally of a specific kind.
func IsAuthError(err error, kinds ...AuthErrorKind) bool {
	var ae *AuthError
	if !errors.As(err, &ae) {
		return false
	}
	if len(kinds) == 0 {
		return true
	}
	for _, kind := range kinds {
		if ae.Kind == kind {
			return true
		}
	}
	return false
}

// IsUnauthorized reports whether err is a ServerError with status 401.
func IsUnauthorized(err error) bool {
	var se *ServerError
	return errors.As(err, &se) && se.StatusCode == 401
}

// ServerDetail extracts the server-provided detail string, or falls back to
// the error's own message.
func ServerDetail(err error) string {
	var se *ServerError
	if errors.As(err, &se) && se.Detail != "" {
		return se.Detail
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
