package game

import "errors"

// Code is a machine-readable error code, stable across transports.
type Code string

const (
	CodeUnknown           Code = "UNKNOWN"
	CodePlayerNotFound    Code = "PLAYER_NOT_FOUND"
	CodeWordPoolExhausted Code = "WORD_POOL_EXHAUSTED"
	CodeNoActiveSession   Code = "NO_ACTIVE_SESSION"
	CodeSessionActive     Code = "SESSION_ACTIVE"
	CodeInvalidInput      Code = "INVALID_INPUT"
	CodeConflict          Code = "CONFLICT"
)

// Error is a domain error carrying a Code. Errors are compared by identity,
// so wrap the sentinels below with %w rather than building new ones.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrPlayerNotFound    = &Error{Code: CodePlayerNotFound, Message: "player not found"}
	ErrWordPoolExhausted = &Error{Code: CodeWordPoolExhausted, Message: "all words have been used"}
	ErrNoActiveSession   = &Error{Code: CodeNoActiveSession, Message: "player has no game in progress"}
	ErrSessionActive     = &Error{Code: CodeSessionActive, Message: "session is still in progress"}
	ErrInvalidInput      = &Error{Code: CodeInvalidInput, Message: "invalid input"}
	ErrConflict          = &Error{Code: CodeConflict, Message: "already exists"}
)

// CodeOf extracts the Code of the first *Error in err's chain.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}
