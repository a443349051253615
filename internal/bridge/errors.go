package bridge

import "errors"

// Kind classifies a bridge failure.
type Kind string

const (
	KindDestinationUnwritable Kind = "destination_unwritable"
	KindRequestBlocked        Kind = "request_blocked"
	KindEngineExecutionFailed Kind = "engine_execution_failed"
)

// Code is the host error code every bridge error carries.
const Code = "http_request_failed"

// Sentinels for errors.Is.
var (
	ErrDestinationUnwritable = errors.New("destination directory for file streaming does not exist or is not writable")
	ErrRequestBlocked        = errors.New("request blocked")
	ErrEngineExecutionFailed = errors.New("engine execution failed")
)

const (
	msgUnwritable = "Destination directory for file streaming does not exist or is not writable."
	msgBlocked    = "User has blocked requests through HTTP."
	msgInvalidURL = "A valid URL was not provided."
)

// Error is the value returned to host callers for every failed call.
type Error struct {
	Kind    Kind
	Message string
	// Err is the engine error for KindEngineExecutionFailed.
	Err error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrDestinationUnwritable:
		return e.Kind == KindDestinationUnwritable
	case ErrRequestBlocked:
		return e.Kind == KindRequestBlocked
	case ErrEngineExecutionFailed:
		return e.Kind == KindEngineExecutionFailed
	}
	return false
}

func (e *Error) Code() string { return Code }

func unwritable() *Error {
	return &Error{Kind: KindDestinationUnwritable, Message: msgUnwritable}
}

func blocked(reason string) *Error {
	if reason == "" {
		reason = msgBlocked
	}
	return &Error{Kind: KindRequestBlocked, Message: reason}
}

func engineFailed(err error) *Error {
	return &Error{Kind: KindEngineExecutionFailed, Message: err.Error(), Err: err}
}
