package store

import (
	"errors"
	"fmt"
)

// ErrUnavailable is matched by every error the adapters return for transport,
// auth, query or scan failures.
var ErrUnavailable = errors.New("store unavailable")

// UnavailableError records which adapter operation failed and why.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

func unavailable(op string, err error) error {
	return &UnavailableError{Op: op, Err: err}
}
