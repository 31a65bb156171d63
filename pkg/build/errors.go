package build

import (
	"errors"
	"fmt"
	"strings"
)

// Operations reported by TaskError.
const (
	OpComplete = "complete"
	OpRun      = "run"
	OpVersion  = "version"
	OpCallback = "callback"
	OpIdentity = "identity"
)

// TaskError locates a failure in the graph. It wraps the cause, so errors.Is
// and errors.As see through it.
type TaskError struct {
	Namespace string
	Family    string
	ID        string
	Op        string
	Err       error
}

func (e *TaskError) Error() string {
	key := e.Family
	if e.Namespace != "" {
		key = e.Namespace + "." + e.Family
	}
	return fmt.Sprintf("task %s (%s) failed during %s: %v", key, e.ID, e.Op, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// CyclicDependencyError reports a task that requires itself. Path holds the
// ids along the cycle, starting and ending with the repeated id.
type CyclicDependencyError struct {
	Path   []string
	Labels []string
}

func (e *CyclicDependencyError) Error() string {
	steps := make([]string, len(e.Path))
	for i, id := range e.Path {
		steps[i] = fmt.Sprintf("%s(%s)", e.Labels[i], shortID(id))
	}
	return "cyclic dependency: " + strings.Join(steps, " -> ")
}

// IsCyclic reports whether err contains a CyclicDependencyError.
func IsCyclic(err error) bool {
	var cyc *CyclicDependencyError
	return errors.As(err, &cyc)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
