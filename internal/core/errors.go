package core

import "errors"

// Error codes sent to pages over the bridge.
const (
	ErrCodeBadRequest        = "bad_request"
	ErrCodeInvalidRoom       = "invalid_room"
	ErrCodeEngineUnavailable = "engine_unavailable"
	ErrCodeAlreadyAttached   = "already_attached"
	ErrCodeNotAttached       = "not_attached"
)

var (
	ErrInvalidRoom    = errors.New("invalid room id")
	ErrJoinFailed     = errors.New("join request failed")
	ErrLeaveFailed    = errors.New("leave request failed")
	ErrBackendRefused = errors.New("backend returned an error")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

// NewError builds a CoreError.
func NewError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
