package mcu

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed indicates the client has been closed.
	ErrClosed = errors.New("client closed")
	// ErrUnknownOpcode indicates an opcode outside the firmware command set.
	ErrUnknownOpcode = errors.New("unknown opcode")
)

// TransportError indicates the byte stream failed: the device could not be
// opened, was closed, or ended while a reply was expected.
//
// Response bytes that arrive but belong to a different request can't be
// detected, there is no framing to check them against.
type TransportError struct {
	Op  string
	Err error
}

// Error implements error.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError returns true if err is or wraps a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// RangeError indicates a parameter outside the range the MCU can store.
// Nothing is sent when it's returned.
type RangeError struct {
	Field string
	Value int
	Max   int
}

// Error implements error.
func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %d out of range [0, %d]", e.Field, e.Value, e.Max)
}

func checkRange(field string, value, max int) error {
	if value < 0 || value > max {
		return &RangeError{Field: field, Value: value, Max: max}
	}
	return nil
}
