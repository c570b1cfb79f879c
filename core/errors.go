package core

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyInput      = errors.New("empty input")
	ErrNoChunks        = errors.New("document produced no chunks")
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrNotFound        = errors.New("not found")
	ErrMissingConfig   = errors.New("missing configuration")
	ErrUpstream        = errors.New("upstream service failed")
)

// ServiceError wraps a failure with the operation and component it came from.
type ServiceError struct {
	Op        string
	Component string
	Err       error
}

func (e *ServiceError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("%s [%s]: %v", e.Op, e.Component, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func NewServiceError(op, component string, err error) *ServiceError {
	return &ServiceError{Op: op, Component: component, Err: err}
}

// IsValidation reports whether err is caused by bad caller input rather than an
// upstream service failure. The endpoint layer maps these to 4xx responses.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrNoChunks) ||
		errors.Is(err, ErrUnsupportedFile)
}
