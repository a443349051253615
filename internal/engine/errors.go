package engine

import (
	"errors"
	"fmt"
)

var (
	ErrTooManyRedirects = errors.New("too many redirects")
	ErrInvalidCABundle  = errors.New("certificate bundle contains no usable certificates")
)

// Error is returned for every failure inside Request.
type Error struct {
	Op  string
	URL string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
