package client

import (
	"fmt"

	xerrors "sells-service/internal/pkg/errors"
)

// TransportError means the backend could not be reached or answered with a
// status the client has no better mapping for.
type TransportError struct {
	Method string
	Path   string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == xerrors.ErrTransport }

// NotFoundError means the entity has no backend record.
type NotFoundError struct {
	Path    string
	Message string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: not found: %s", e.Path, e.Message)
}

func (e *NotFoundError) Is(target error) bool { return target == xerrors.ErrNotFound }

// ValidationError is input rejected either locally before sending or by the
// backend with 400 or 409.
type ValidationError struct {
	Field   string
	Message string
	Status  int
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	if target == xerrors.ErrConflict {
		return e.Status == 409
	}
	return target == xerrors.ErrInvalidInput
}

// UnexpectedShapeError means a successful response could not be decoded or
// lacked a required field.
type UnexpectedShapeError struct {
	Path   string
	Reason string
	Err    error
}

func (e *UnexpectedShapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: unexpected response: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: unexpected response: %s", e.Path, e.Reason)
}

func (e *UnexpectedShapeError) Unwrap() error { return e.Err }

func (e *UnexpectedShapeError) Is(target error) bool { return target == xerrors.ErrUnexpectedShape }
