package core

import (
	"errors"

	"github.com/vortelan/chatsync/internal/api"
)

// Error codes for the engine's failure taxonomy.
const (
	ErrCodeUnauthenticated   = "unauthenticated"
	ErrCodeInvalidTarget     = "invalid_target"
	ErrCodeNotFound          = "not_found"
	ErrCodeRemoteFailure     = "remote_failure"
	ErrCodeValidationFailure = "validation_failure"
)

// ErrUnauthenticated is returned by guards before any network attempt.
var ErrUnauthenticated = &Error{Code: ErrCodeUnauthenticated, Message: "not authenticated"}

// Error wraps a stable code and human-readable message.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func invalidTarget(msg string) *Error {
	return &Error{Code: ErrCodeInvalidTarget, Message: msg}
}

func notFound(msg string) *Error {
	return &Error{Code: ErrCodeNotFound, Message: msg}
}

// remoteError classifies an api failure: 4xx responses carry validation
// semantics, everything else (5xx, transport) is a remote failure. The
// server-provided message is surfaced when available.
func remoteError(err error) *Error {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		if apiErr.IsClient() {
			return &Error{Code: ErrCodeValidationFailure, Message: apiErr.Message}
		}
		return &Error{Code: ErrCodeRemoteFailure, Message: apiErr.Message}
	}
	return &Error{Code: ErrCodeRemoteFailure, Message: err.Error()}
}

// CodeOf extracts the taxonomy code from an error, empty if it is not ours.
func CodeOf(err error) string {
	var coreErr *Error
	if errors.As(err, &coreErr) {
		return coreErr.Code
	}
	return ""
}
