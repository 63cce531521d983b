package nestapi

import (
	"github.com/pkg/errors"
)

// Failure kinds.  Errors returned by this package match one or more of
// these with errors.Is.
var (
	ErrAuth           = errors.New("authentication rejected")
	ErrNetwork        = errors.New("network failure")
	ErrProtocol       = errors.New("unexpected response from the Nest service")
	ErrDeviceNotFound = errors.New("device not found")
	ErrIndex          = errors.New("device index out of range")
	ErrPut            = errors.New("put operation failed")
	ErrNoSession      = errors.New("no cached session")
)

type kindError struct {
	kind error
	err  error
}

func newError(kind error, err error) error {
	return &kindError{kind: kind, err: err}
}

func (e *kindError) Error() string {
	if e.err == nil {
		return e.kind.Error()
	}
	return e.kind.Error() + ": " + e.err.Error()
}

func (e *kindError) Unwrap() error {
	return e.err
}

func (e *kindError) Is(target error) bool {
	return target == e.kind
}
