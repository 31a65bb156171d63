package task

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrNoCompletion is returned for tasks with neither Complete nor an output.
	ErrNoCompletion = errors.New("task defines neither Complete nor an output")

	// ErrUnregistered is returned when a task's type is not in the registry.
	ErrUnregistered = errors.New("task type is not registered")

	// ErrNoRegistry is returned when a context carries no registry.
	ErrNoRegistry = errors.New("no task registry in context")

	// ErrIncompleteDependency is returned by RequireComplete.
	ErrIncompleteDependency = errors.New("dynamic dependency is not complete")
)

// NotFoundError reports a namespace/family with no registered type.
type NotFoundError struct {
	Namespace string
	Family    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no task registered as %q", Key(e.Namespace, e.Family))
}

// IsNotFound checks if an error is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// DuplicateError reports a registration clash.
type DuplicateError struct {
	Key       string
	Existing  reflect.Type
	Duplicate reflect.Type
}

func (e *DuplicateError) Error() string {
	if e.Existing == e.Duplicate {
		return fmt.Sprintf("task type %v registered twice", e.Duplicate)
	}
	return fmt.Sprintf("task %q already registered by %v, cannot register %v", e.Key, e.Existing, e.Duplicate)
}

// ReferenceError reports a task reference without its type tags.
type ReferenceError struct {
	Missing string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("task reference is missing %q", e.Missing)
}

// ValidationError reports reference fields that don't fit the task type.
type ValidationError struct {
	Namespace string
	Family    string
	Field     string
	Err       error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid reference for %s: field %s: %v", Key(e.Namespace, e.Family), e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// VersionMismatchError is returned by checked runs when a task's declared
// version differs from the version its type expects.
type VersionMismatchError struct {
	Namespace string
	Family    string
	Expected  string
	Actual    string
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("version mismatch for %s: task has %q, implementation expects %q",
		Key(e.Namespace, e.Family), e.Actual, e.Expected)
}
