package haptics

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupported means the device lacks the required capability
	ErrUnsupported = errors.New("haptics: unsupported on this device")
	// ErrStartFailed means the engine could not be constructed or started
	ErrStartFailed = errors.New("haptics: engine start failed")
	// ErrValidation means a caller argument was out of range
	ErrValidation = errors.New("haptics: invalid argument")
	// ErrInvalidated means the engine was interrupted and must be recreated
	ErrInvalidated = errors.New("haptics: engine invalidated")
	// ErrShutdown means the façade has been shut down
	ErrShutdown = errors.New("haptics: shut down")
)

// StartError carries the backend cause of a failed engine start
type StartError struct {
	Cause error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("%v: %v", ErrStartFailed, e.Cause)
}

func (e *StartError) Unwrap() []error {
	return []error{ErrStartFailed, e.Cause}
}

// ValidationError reports the rejected argument
type ValidationError struct {
	Field string
	Value float64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s=%v", ErrValidation, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
