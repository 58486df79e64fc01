package domain

import (
	"errors"
	"fmt"
)

// Session errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrLoginFailed        = errors.New("login failed")
	ErrNoCredential       = errors.New("no credential stored")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidInput       = errors.New("invalid input")
)

// Transport errors.
var (
	ErrNetworkFailure    = errors.New("network failure")
	ErrTimeout           = errors.New("request timed out")
	ErrServerError       = errors.New("server error")
	ErrForbidden         = errors.New("access forbidden")
	ErrMalformedResponse = errors.New("malformed response body")
)

// ErrPermissionDenied names a failed section check. AccessController never
// returns it; it exists for callers that want to surface a denial as an error.
var ErrPermissionDenied = errors.New("permission denied")

// Repair deletion errors.
var (
	ErrRepairNotFound   = errors.New("repair not found")
	ErrNotArchived      = errors.New("repair is not archived")
	ErrMasterKeyUnset   = errors.New("master key not configured")
	ErrMasterKeyInvalid = errors.New("master key rejected")
)

// LoginFailedError carries the server-supplied reason for a non-auth login failure.
type LoginFailedError struct {
	Message string
}

func (e *LoginFailedError) Error() string {
	if e.Message == "" {
		return ErrLoginFailed.Error()
	}
	return fmt.Sprintf("%s: %s", ErrLoginFailed, e.Message)
}

func (e *LoginFailedError) Unwrap() error { return ErrLoginFailed }

// StatusError is a non-2xx response from the backend. Kind is one of the
// sentinels above (ErrSessionExpired, ErrForbidden or ErrServerError).
type StatusError struct {
	Status  int
	Message string
	Body    []byte
	Kind    error
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Kind, e.Status)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Kind, e.Status, e.Message)
}

func (e *StatusError) Unwrap() error { return e.Kind }

// IsAuthRejection reports whether err is a confirmed 401/403 rejection of the
// stored credential, the only condition that may invalidate a session.
func IsAuthRejection(err error) bool {
	if errors.Is(err, ErrSessionExpired) {
		return true
	}
	var se *StatusError
	return errors.As(err, &se) && (se.Status == 401 || se.Status == 403)
}
