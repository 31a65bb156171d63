package target

import (
	"errors"
	"fmt"
	"reflect"
)

// MissingError reports that a target has no data yet. It lets callers tell
// "never built" apart from a failed read.
type MissingError struct {
	Path string
	Err  error
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("target not found: %s", e.Path)
}

func (e *MissingError) Unwrap() error {
	return e.Err
}

// IsMissing reports whether err (or anything it wraps) is a MissingError.
func IsMissing(err error) bool {
	var missing *MissingError
	return errors.As(err, &missing)
}

// ConfigError reports a target configuration problem, such as an unknown root
// key or a URI that matches no registered prefix.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return e.Msg
}

// RejectedError is returned by a serializer candidate that does not accept a
// type. The chain treats it as "try the next candidate".
type RejectedError struct {
	Type   reflect.Type
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("serializer rejected %v: %s", e.Type, e.Reason)
}

// Reject builds a RejectedError.
func Reject(typ reflect.Type, reason string) error {
	return &RejectedError{Type: typ, Reason: reason}
}

// NoSerializerError is returned when no candidate accepts a type.
type NoSerializerError struct {
	Type     reflect.Type
	Rejected []error
}

func (e *NoSerializerError) Error() string {
	return fmt.Sprintf("no serializer found for type %v (%d candidates rejected)", e.Type, len(e.Rejected))
}
