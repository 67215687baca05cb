package upstream

import (
	"errors"
	"fmt"
)

// ErrUnreachable indicates the upstream could not be reached at the
// transport level (DNS, connect, timeout). It is distinct from an upstream
// HTTP error status, which is relayed to the caller verbatim instead.
var ErrUnreachable = errors.New("upstream unreachable")

// Error wraps a transport-level upstream failure with the path involved.
type Error struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Path, e.Err)
}

// Unwrap exposes the underlying transport error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrUnreachable) match any transport failure.
func (e *Error) Is(target error) bool {
	return target == ErrUnreachable
}
