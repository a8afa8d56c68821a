package partialgen

import (
	"errors"
	"fmt"
)

// ErrNilProperty is returned when a nullable property is copied into a
// destination that cannot hold nil.
var ErrNilProperty = errors.New("partialgen: nil property value")

// NilPropertyError reports the type and property whose nil value could not
// be assigned to a non-nullable destination.
type NilPropertyError struct {
	Type     string // Declaring type name
	Property string // Property name
}

// Error returns the error string.
func (e *NilPropertyError) Error() string {
	return fmt.Sprintf("partialgen: property %s.%s is nil and the destination is not nullable", e.Type, e.Property)
}

// Is reports whether the target error matches NilPropertyError.
// This allows errors.Is(err, ErrNilProperty) to return true.
func (e *NilPropertyError) Is(err error) bool {
	return err == ErrNilProperty
}

// NewNilPropertyError returns a new NilPropertyError.
func NewNilPropertyError(typ, property string) *NilPropertyError {
	return &NilPropertyError{Type: typ, Property: property}
}

// IsNilProperty returns true if the error is a NilPropertyError.
func IsNilProperty(err error) bool {
	if err == nil {
		return false
	}
	var e *NilPropertyError
	return errors.As(err, &e) || errors.Is(err, ErrNilProperty)
}

// PropertyTypeError is raised when a stored property value does not match
// the type requested by a typed read.
type PropertyTypeError struct {
	Property string
	Want     string
	Got      string
}

// Error returns the error string.
func (e *PropertyTypeError) Error() string {
	return fmt.Sprintf("partialgen: property %q holds %s, not %s", e.Property, e.Got, e.Want)
}
