package engine

import (
	"errors"
	"fmt"
)

// ErrMalformedValue is matched by every MalformedValueError.
var ErrMalformedValue = errors.New("malformed value")

// MalformedValueError reports a value update payload that has no numeric
// interpretation.
type MalformedValueError struct {
	Value any
}

func (e *MalformedValueError) Error() string {
	return fmt.Sprintf("malformed value %v (%T)", e.Value, e.Value)
}

func (e *MalformedValueError) Unwrap() error {
	return ErrMalformedValue
}
